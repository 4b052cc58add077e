// Package nutrition is a client for the feed formulation backend that performs
// dairy diet evaluation and least-cost diet recommendation.
package nutrition

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/dairy-mcp/internal/domain/models"
)

const (
	recommendationPath = "/diet-recommendation-working/"
	evaluationPath     = "/diet-evaluation-working/"
	feedsPath          = "/feeds/"
	countriesPath      = "/auth/countries"

	recommendationPrefix = "sim"
	evaluationPrefix     = "eval"
)

// Config holds everything needed to build a Client.
type Config struct {
	BaseURL     string
	Credentials Credentials
	Logger      *zap.Logger
}

// Client talks to the backend on behalf of one caller identity. The auth mode is
// fixed at construction; build a new Client to switch credentials.
type Client struct {
	t      *transport
	auth   authenticator
	logger *zap.Logger
	now    func() time.Time
}

// New validates the credentials and builds a client. The API key takes priority
// over an email and PIN pair.
func New(cfg Config) (*Client, error) {
	mode, err := cfg.Credentials.Mode()
	if err != nil {
		return nil, err
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	apiKey := ""
	if mode == ModeAPIKey {
		apiKey = cfg.Credentials.APIKey
	}

	c := &Client{
		t:      newTransport(cfg.BaseURL, apiKey, logger),
		logger: logger,
		now:    time.Now,
	}

	switch mode {
	case ModeAPIKey:
		c.auth = &apiKeyAuth{detect: c.DetectCountry}
	case ModeEmailPin:
		c.auth = &emailPinAuth{email: cfg.Credentials.Email, pin: cfg.Credentials.PIN, t: c.t}
	}
	return c, nil
}

// Mode returns the authentication strategy chosen at construction.
func (c *Client) Mode() Mode {
	return c.auth.mode()
}

// Authenticate logs in once and returns the cached user id on later calls.
// Only available in email and PIN mode.
func (c *Client) Authenticate(ctx context.Context) (string, error) {
	s, err := c.session(ctx)
	if err != nil {
		return "", err
	}
	return s.UserID, nil
}

// UserID returns the authenticated user id. Only available in email and PIN mode.
func (c *Client) UserID(ctx context.Context) (string, error) {
	return c.Authenticate(ctx)
}

// CountryID returns the authenticated user's country id. Only available in email and PIN mode.
func (c *Client) CountryID(ctx context.Context) (string, error) {
	s, err := c.session(ctx)
	if err != nil {
		return "", err
	}
	return s.CountryID, nil
}

func (c *Client) session(ctx context.Context) (*Session, error) {
	a, ok := c.auth.(*emailPinAuth)
	if !ok {
		return nil, fmt.Errorf("%w: identity accessors require email and pin credentials, api key callers pass identity per request", ErrUnsupportedOperation)
	}
	return a.authenticate(ctx)
}

// RecommendationParams are the inputs of a least-cost diet recommendation.
type RecommendationParams struct {
	CattleInfo    models.CattleInfo
	FeedSelection []models.FeedSelection
	CountryID     string
	UserID        string
}

type dietRecommendationRequest struct {
	SimulationID  string                 `json:"simulation_id"`
	UserID        string                 `json:"user_id"`
	CattleInfo    models.CattleInfo      `json:"cattle_info"`
	FeedSelection []models.FeedSelection `json:"feed_selection"`
	CountryID     string                 `json:"country_id,omitempty"`
}

// GetDietRecommendation asks the backend for the least-cost diet over the offered feeds.
// The result is returned untouched.
func (c *Client) GetDietRecommendation(ctx context.Context, p RecommendationParams) (json.RawMessage, error) {
	feedIDs := make([]string, 0, len(p.FeedSelection))
	for _, f := range p.FeedSelection {
		feedIDs = append(feedIDs, f.FeedID)
	}

	id, err := c.resolveIdentity(ctx, identityRequest{UserID: p.UserID, CountryID: p.CountryID, FeedIDs: feedIDs})
	if err != nil {
		return nil, fmt.Errorf("diet recommendation: %w", err)
	}

	req := dietRecommendationRequest{
		SimulationID:  c.simulationID(recommendationPrefix),
		UserID:        id.UserID,
		CattleInfo:    p.CattleInfo,
		FeedSelection: p.FeedSelection,
		CountryID:     id.CountryID,
	}
	c.logger.Info("requesting diet recommendation",
		zap.String("simulation_id", req.SimulationID),
		zap.String("country_id", req.CountryID),
		zap.Int("feeds", len(req.FeedSelection)))

	body, err := c.t.post(ctx, "diet recommendation", recommendationPath, req)
	if err != nil {
		return nil, err
	}
	return json.RawMessage(body), nil
}

// EvaluationParams are the inputs of a diet evaluation.
type EvaluationParams struct {
	CattleInfo     models.CattleInfo
	FeedEvaluation []models.FeedEvaluation
	CountryID      string
	Currency       string
	UserID         string
}

type dietEvaluationRequest struct {
	SimulationID   string                  `json:"simulation_id"`
	UserID         string                  `json:"user_id"`
	CountryID      string                  `json:"country_id"`
	Currency       string                  `json:"currency"`
	CattleInfo     models.CattleInfo       `json:"cattle_info"`
	FeedEvaluation []models.FeedEvaluation `json:"feed_evaluation"`
}

// EvaluateDiet asks the backend how well an existing ration covers the animal's requirements.
// The result is returned untouched.
func (c *Client) EvaluateDiet(ctx context.Context, p EvaluationParams) (json.RawMessage, error) {
	feedIDs := make([]string, 0, len(p.FeedEvaluation))
	for _, f := range p.FeedEvaluation {
		feedIDs = append(feedIDs, f.FeedID)
	}

	id, err := c.resolveIdentity(ctx, identityRequest{
		UserID:    p.UserID,
		CountryID: p.CountryID,
		Currency:  p.Currency,
		FeedIDs:   feedIDs,
	})
	if err != nil {
		return nil, fmt.Errorf("diet evaluation: %w", err)
	}

	req := dietEvaluationRequest{
		SimulationID:   c.simulationID(evaluationPrefix),
		UserID:         id.UserID,
		CountryID:      id.CountryID,
		Currency:       id.Currency,
		CattleInfo:     p.CattleInfo,
		FeedEvaluation: p.FeedEvaluation,
	}
	c.logger.Info("requesting diet evaluation",
		zap.String("simulation_id", req.SimulationID),
		zap.String("country_id", req.CountryID),
		zap.String("currency", req.Currency),
		zap.Int("feeds", len(req.FeedEvaluation)))

	body, err := c.t.post(ctx, "diet evaluation", evaluationPath, req)
	if err != nil {
		return nil, err
	}
	return json.RawMessage(body), nil
}

// GetFeedByID fetches one feed record. Any non-2xx response yields a *FeedNotFoundError.
func (c *Client) GetFeedByID(ctx context.Context, feedID string) (*models.FeedRecord, error) {
	body, err := c.t.get(ctx, "feed lookup", feedsPath+url.PathEscape(feedID), nil)
	if err != nil {
		var httpErr *HTTPError
		if errors.As(err, &httpErr) {
			return nil, &FeedNotFoundError{FeedID: feedID, HTTPError: httpErr}
		}
		return nil, err
	}

	var record models.FeedRecord
	if err := decode("feed lookup", body, &record); err != nil {
		return nil, err
	}
	return &record, nil
}

// SearchFeeds lists feeds matching q. The backend answers either with a bare array
// or with a {"feeds": [...]} envelope; both decode to the same slice.
func (c *Client) SearchFeeds(ctx context.Context, q models.FeedQuery) ([]models.FeedRecord, error) {
	body, err := c.t.get(ctx, "feed search", feedsPath, feedQueryParams(q))
	if err != nil {
		return nil, err
	}

	feeds := []models.FeedRecord{}
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		if err := decode("feed search", trimmed, &feeds); err != nil {
			return nil, err
		}
		return feeds, nil
	}

	var envelope struct {
		Feeds []models.FeedRecord `json:"feeds"`
	}
	if err := decode("feed search", trimmed, &envelope); err != nil {
		return nil, err
	}
	if envelope.Feeds != nil {
		feeds = envelope.Feeds
	}
	return feeds, nil
}

// ListCountries returns the countries known to the backend.
func (c *Client) ListCountries(ctx context.Context) ([]models.Country, error) {
	body, err := c.t.get(ctx, "country listing", countriesPath, nil)
	if err != nil {
		return nil, err
	}

	countries := []models.Country{}
	if err := decode("country listing", body, &countries); err != nil {
		return nil, err
	}
	return countries, nil
}

func (c *Client) resolveIdentity(ctx context.Context, req identityRequest) (Identity, error) {
	id, err := c.auth.resolve(ctx, req)
	if err != nil {
		return Identity{}, err
	}
	if id.CountryID == "" {
		return Identity{}, fmt.Errorf("%w: the authenticated account has no country, pass country_id explicitly", ErrMissingCountryContext)
	}
	return id, nil
}

// simulationID tags a request with the current unix milliseconds. Two calls within
// the same millisecond produce the same id.
func (c *Client) simulationID(prefix string) string {
	return prefix + "-" + strconv.FormatInt(c.now().UnixMilli(), 10)
}

func feedQueryParams(q models.FeedQuery) map[string]string {
	params := map[string]string{}
	if q.CountryID != "" {
		params["country_id"] = q.CountryID
	}
	if q.FeedType != "" {
		params["feed_type"] = q.FeedType
	}
	if q.FeedCategory != "" {
		params["feed_category"] = q.FeedCategory
	}
	if q.Limit > 0 {
		params["limit"] = strconv.Itoa(q.Limit)
	}
	if q.Offset > 0 {
		params["offset"] = strconv.Itoa(q.Offset)
	}
	return params
}
