package catalog

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/dairy-mcp/internal/domain/models"
)

// CountryLister fetches the backend's country list.
type CountryLister interface {
	ListCountries(ctx context.Context) ([]models.Country, error)
}

// Service keeps an in-memory copy of the backend country list.
type Service struct {
	lister    CountryLister
	logger    *zap.Logger
	mu        sync.RWMutex
	countries []models.Country
	loadedAt  time.Time
}

// NewService creates a catalog backed by lister. Nothing is fetched until the
// first Refresh or Countries call.
func NewService(lister CountryLister, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{lister: lister, logger: logger}
}

// Refresh replaces the cached list with a fresh copy from the backend. On failure
// the previous list is kept.
func (s *Service) Refresh(ctx context.Context) error {
	countries, err := s.lister.ListCountries(ctx)
	if err != nil {
		return fmt.Errorf("refresh countries: %w", err)
	}

	s.mu.Lock()
	s.countries = countries
	s.loadedAt = time.Now()
	s.mu.Unlock()

	s.logger.Info("country catalog refreshed", zap.Int("countries", len(countries)))
	return nil
}

// Countries returns the cached list, loading it on first use.
func (s *Service) Countries(ctx context.Context) ([]models.Country, error) {
	if countries, ok := s.snapshot(); ok {
		return countries, nil
	}
	if err := s.Refresh(ctx); err != nil {
		return nil, err
	}
	countries, _ := s.snapshot()
	return countries, nil
}

// Lookup finds a country by id, loading the list on first use. A failed load is
// reported as not found.
func (s *Service) Lookup(ctx context.Context, id string) (models.Country, bool) {
	countries, err := s.Countries(ctx)
	if err != nil {
		s.logger.Warn("country lookup skipped", zap.String("country_id", id), zap.Error(err))
		return models.Country{}, false
	}
	for _, c := range countries {
		if c.ID == id {
			return c, true
		}
	}
	return models.Country{}, false
}

func (s *Service) snapshot() ([]models.Country, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.loadedAt.IsZero() {
		return nil, false
	}
	return append([]models.Country(nil), s.countries...), true
}
