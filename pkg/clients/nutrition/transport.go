package nutrition

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// transport issues single-attempt JSON calls against the backend.
type transport struct {
	http   *resty.Client
	logger *zap.Logger
}

func newTransport(baseURL, apiKey string, logger *zap.Logger) *transport {
	rc := resty.New().
		SetBaseURL(strings.TrimSuffix(baseURL, "/")).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")
	if apiKey != "" {
		rc.SetAuthToken(apiKey)
	}
	return &transport{http: rc, logger: logger}
}

// get performs a GET and returns the raw response body.
func (t *transport) get(ctx context.Context, op, path string, query map[string]string) ([]byte, error) {
	req := t.http.R().SetContext(ctx)
	if len(query) > 0 {
		req.SetQueryParams(query)
	}
	resp, err := req.Get(path)
	return t.finish(op, resp, err)
}

// post performs a POST of body and returns the raw response body.
func (t *transport) post(ctx context.Context, op, path string, body any) ([]byte, error) {
	resp, err := t.http.R().
		SetContext(ctx).
		SetBody(body).
		Post(path)
	return t.finish(op, resp, err)
}

func (t *transport) finish(op string, resp *resty.Response, err error) ([]byte, error) {
	if err != nil {
		return nil, fmt.Errorf("%s failed: %w", op, err)
	}

	t.logger.Debug("backend call completed",
		zap.String("op", op),
		zap.String("method", resp.Request.Method),
		zap.String("url", resp.Request.URL),
		zap.Int("status", resp.StatusCode()),
		zap.Duration("duration", resp.Time()))

	if !resp.IsSuccess() {
		return nil, &HTTPError{Op: op, Status: resp.StatusCode(), Body: resp.String()}
	}
	return resp.Body(), nil
}

func decode(op string, body []byte, out any) error {
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%s: decode response: %w", op, err)
	}
	return nil
}
