package nutrition

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mamadbah2/dairy-mcp/internal/domain/models"
)

// Mode is the authentication strategy selected at construction.
type Mode int

const (
	ModeAPIKey Mode = iota + 1
	ModeEmailPin
)

func (m Mode) String() string {
	switch m {
	case ModeAPIKey:
		return "api_key"
	case ModeEmailPin:
		return "email_pin"
	default:
		return "unknown"
	}
}

const (
	// DefaultCurrency is used whenever neither the caller nor the backend names one.
	DefaultCurrency = "USD"

	loginPath = "/auth/login"
)

// ServiceAccountUserID identifies an organization-level caller acting without an individual user.
var ServiceAccountUserID = uuid.Nil.String()

// Credentials are the secrets a client may authenticate with. An API key wins over email and PIN.
type Credentials struct {
	APIKey string
	Email  string
	PIN    string
}

// Mode resolves which authentication strategy the credentials select.
func (c Credentials) Mode() (Mode, error) {
	switch {
	case c.APIKey != "":
		return ModeAPIKey, nil
	case c.Email != "" && c.PIN != "":
		return ModeEmailPin, nil
	default:
		return 0, ErrMissingCredentials
	}
}

// Session is the identity established by an email and PIN login.
type Session struct {
	UserID    string
	CountryID string
	Currency  string
}

// Identity is the fully resolved caller context embedded into diet requests.
type Identity struct {
	UserID    string
	CountryID string
	Currency  string
}

// identityRequest carries the caller-supplied overrides and the feeds used for detection.
type identityRequest struct {
	UserID    string
	CountryID string
	Currency  string
	FeedIDs   []string
}

// authenticator is implemented by apiKeyAuth and emailPinAuth only.
type authenticator interface {
	mode() Mode
	resolve(ctx context.Context, req identityRequest) (Identity, error)
}

type apiKeyAuth struct {
	detect func(ctx context.Context, feedIDs []string) Detection
}

func (a *apiKeyAuth) mode() Mode { return ModeAPIKey }

func (a *apiKeyAuth) resolve(ctx context.Context, req identityRequest) (Identity, error) {
	id := Identity{
		UserID:    firstNonEmpty(req.UserID, ServiceAccountUserID),
		CountryID: req.CountryID,
		Currency:  firstNonEmpty(req.Currency, DefaultCurrency),
	}
	if id.CountryID != "" {
		return id, nil
	}

	detection := a.detect(ctx, req.FeedIDs)
	if !detection.Found() {
		return Identity{}, fmt.Errorf("%w: pass country_id explicitly (auto-detection %s)", ErrMissingCountryContext, detection.Status)
	}
	id.CountryID = detection.CountryID
	return id, nil
}

// emailPinAuth logs in lazily and memoizes the session for the client's lifetime.
// Concurrent first calls may each log in; they store the same identity, so the
// last write wins without harm and no lock is taken.
type emailPinAuth struct {
	email   string
	pin     string
	t       *transport
	session atomic.Pointer[Session]
}

func (a *emailPinAuth) mode() Mode { return ModeEmailPin }

func (a *emailPinAuth) resolve(ctx context.Context, req identityRequest) (Identity, error) {
	s, err := a.authenticate(ctx)
	if err != nil {
		return Identity{}, err
	}
	return Identity{
		UserID:    s.UserID,
		CountryID: firstNonEmpty(req.CountryID, s.CountryID),
		Currency:  firstNonEmpty(req.Currency, s.Currency, DefaultCurrency),
	}, nil
}

type loginRequest struct {
	EmailID string `json:"email_id"`
	PIN     string `json:"pin"`
}

type loginResponse struct {
	Success *bool `json:"success"`
	User    *struct {
		ID        models.FlexString `json:"id"`
		CountryID models.FlexString `json:"country_id"`
		Country   *struct {
			Currency string `json:"currency"`
		} `json:"country"`
	} `json:"user"`
}

func (a *emailPinAuth) authenticate(ctx context.Context) (*Session, error) {
	if s := a.session.Load(); s != nil {
		return s, nil
	}

	body, err := a.t.post(ctx, "login", loginPath, loginRequest{EmailID: a.email, PIN: a.pin})
	if err != nil {
		var httpErr *HTTPError
		if errors.As(err, &httpErr) {
			return nil, &AuthError{Status: httpErr.Status, Body: httpErr.Body}
		}
		return nil, &AuthError{Err: err}
	}

	var resp loginResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &AuthError{Reason: "malformed login response", Body: string(body)}
	}
	if resp.Success == nil || !*resp.Success || resp.User == nil {
		return nil, &AuthError{Reason: "login response missing success flag or user", Body: string(body)}
	}

	s := &Session{
		UserID:    string(resp.User.ID),
		CountryID: string(resp.User.CountryID),
		Currency:  DefaultCurrency,
	}
	if resp.User.Country != nil && resp.User.Country.Currency != "" {
		s.Currency = resp.User.Country.Currency
	}
	a.session.Store(s)
	a.t.logger.Debug("authenticated", zap.String("user_id", s.UserID), zap.String("country_id", s.CountryID))
	return s, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
