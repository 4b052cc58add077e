package tools

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/dairy-mcp/internal/domain/models"
	"github.com/mamadbah2/dairy-mcp/internal/metrics"
	"github.com/mamadbah2/dairy-mcp/pkg/clients/nutrition"
)

type stubBackend struct {
	mode           nutrition.Mode
	recommendation nutrition.RecommendationParams
	evaluation     nutrition.EvaluationParams
	query          models.FeedQuery
	calls          int

	result json.RawMessage
	feed   *models.FeedRecord
	feeds  []models.FeedRecord
	err    error
}

func (s *stubBackend) Mode() nutrition.Mode { return s.mode }

func (s *stubBackend) GetDietRecommendation(_ context.Context, p nutrition.RecommendationParams) (json.RawMessage, error) {
	s.calls++
	s.recommendation = p
	return s.result, s.err
}

func (s *stubBackend) EvaluateDiet(_ context.Context, p nutrition.EvaluationParams) (json.RawMessage, error) {
	s.calls++
	s.evaluation = p
	return s.result, s.err
}

func (s *stubBackend) GetFeedByID(_ context.Context, _ string) (*models.FeedRecord, error) {
	s.calls++
	return s.feed, s.err
}

func (s *stubBackend) SearchFeeds(_ context.Context, q models.FeedQuery) ([]models.FeedRecord, error) {
	s.calls++
	s.query = q
	return s.feeds, s.err
}

type stubCatalog struct {
	countries []models.Country
	err       error
}

func (s stubCatalog) Countries(context.Context) ([]models.Country, error) {
	return s.countries, s.err
}

func (s stubCatalog) Lookup(_ context.Context, id string) (models.Country, bool) {
	for _, c := range s.countries {
		if c.ID == id {
			return c, true
		}
	}
	return models.Country{}, false
}

type memoryRecorder struct {
	mu   sync.Mutex
	seen []models.ToolInvocation
}

func (m *memoryRecorder) Record(_ context.Context, inv models.ToolInvocation) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seen = append(m.seen, inv)
}

func (m *memoryRecorder) last(t *testing.T) models.ToolInvocation {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	require.NotEmpty(t, m.seen)
	return m.seen[len(m.seen)-1]
}

func connect(t *testing.T, server *mcp.Server) *mcp.ClientSession {
	t.Helper()
	ctx := context.Background()
	st, ct := mcp.NewInMemoryTransports()

	ss, err := server.Connect(ctx, st, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ss.Close() })

	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "v0.0.1"}, nil)
	cs, err := client.Connect(ctx, ct, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = cs.Close() })
	return cs
}

func sampleCattle() models.CattleInfo {
	return models.CattleInfo{
		BodyWeight:      550,
		Breed:           "Holstein",
		Lactating:       true,
		MilkProduction:  25,
		DaysInMilk:      120,
		Parity:          2,
		MilkProtein:     3.2,
		MilkFat:         3.8,
		Temperature:     22,
		Topography:      models.TopographyFlat,
		Distance:        1,
		CalvingInterval: 390,
	}
}

// arguments converts v to the generic map the client sends.
func arguments(t *testing.T, v any) map[string]any {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	var out map[string]any
	require.NoError(t, json.Unmarshal(data, &out))
	return out
}

func textOf(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.Len(t, res.Content, 1)
	text, ok := res.Content[0].(*mcp.TextContent)
	require.True(t, ok)
	return text.Text
}

func feedSelection(n int) []models.FeedSelection {
	out := make([]models.FeedSelection, n)
	for i := range out {
		out[i] = models.FeedSelection{FeedID: "f" + string(rune('a'+i)), PricePerKg: 0.3}
	}
	return out
}

func TestListTools(t *testing.T) {
	t.Run("Should register every tool when a catalog is present", func(t *testing.T) {
		cs := connect(t, NewServer(&stubBackend{}, Deps{Catalog: stubCatalog{}}))
		res, err := cs.ListTools(context.Background(), &mcp.ListToolsParams{})
		require.NoError(t, err)

		names := make([]string, 0, len(res.Tools))
		for _, tool := range res.Tools {
			names = append(names, tool.Name)
			require.NotNil(t, tool.Annotations)
			assert.True(t, tool.Annotations.ReadOnlyHint)
		}
		assert.ElementsMatch(t, []string{toolRecommend, toolEvaluate, toolFeedByID, toolSearchFeeds, toolListCountries}, names)
	})

	t.Run("Should omit the country tool without a catalog", func(t *testing.T) {
		cs := connect(t, NewServer(&stubBackend{}, Deps{}))
		res, err := cs.ListTools(context.Background(), &mcp.ListToolsParams{})
		require.NoError(t, err)
		assert.Len(t, res.Tools, 4)
	})
}

func TestDietRecommendationTool(t *testing.T) {
	t.Run("Should pass arguments through and return the backend payload", func(t *testing.T) {
		backend := &stubBackend{mode: nutrition.ModeAPIKey, result: json.RawMessage(`{"least_cost_diet":[],"total_cost":1.5}`)}
		recorder := &memoryRecorder{}
		registry := prometheus.NewRegistry()
		cs := connect(t, NewServer(backend, Deps{Recorder: recorder, Metrics: metrics.New(registry)}))

		in := DietRecommendationInput{CattleInfo: sampleCattle(), FeedSelection: feedSelection(6), CountryID: "c-ke"}
		res, err := cs.CallTool(context.Background(), &mcp.CallToolParams{Name: toolRecommend, Arguments: arguments(t, in)})
		require.NoError(t, err)

		assert.False(t, res.IsError)
		assert.JSONEq(t, `{"least_cost_diet":[],"total_cost":1.5}`, textOf(t, res))
		assert.Equal(t, "c-ke", backend.recommendation.CountryID)
		assert.Len(t, backend.recommendation.FeedSelection, 6)
		assert.Equal(t, 550.0, backend.recommendation.CattleInfo.BodyWeight)

		inv := recorder.last(t)
		assert.Equal(t, toolRecommend, inv.Tool)
		assert.Equal(t, models.InvocationOK, inv.Status)
		assert.Equal(t, "api_key", inv.AuthMode)
		count, err := testutil.GatherAndCount(registry, "dairy_mcp_tools_calls_total")
		require.NoError(t, err)
		assert.Equal(t, 1, count)
	})

	t.Run("Should reject too few feeds without calling the backend", func(t *testing.T) {
		backend := &stubBackend{}
		recorder := &memoryRecorder{}
		cs := connect(t, NewServer(backend, Deps{Recorder: recorder}))

		in := DietRecommendationInput{CattleInfo: sampleCattle(), FeedSelection: feedSelection(3)}
		res, err := cs.CallTool(context.Background(), &mcp.CallToolParams{Name: toolRecommend, Arguments: arguments(t, in)})
		require.NoError(t, err)

		assert.True(t, res.IsError)
		assert.Contains(t, textOf(t, res), "feed_selection needs at least 6 entries")
		assert.Zero(t, backend.calls)
		assert.Equal(t, models.InvocationError, recorder.last(t).Status)
	})

	t.Run("Should report out of range animal values by json path", func(t *testing.T) {
		backend := &stubBackend{}
		cs := connect(t, NewServer(backend, Deps{}))

		cattle := sampleCattle()
		cattle.BodyWeight = 50
		in := DietRecommendationInput{CattleInfo: cattle, FeedSelection: feedSelection(6)}
		res, err := cs.CallTool(context.Background(), &mcp.CallToolParams{Name: toolRecommend, Arguments: arguments(t, in)})
		require.NoError(t, err)

		assert.True(t, res.IsError)
		assert.Contains(t, textOf(t, res), "cattle_info.body_weight must be >= 100")
		assert.Zero(t, backend.calls)
	})
}

func TestEvaluateDietTool(t *testing.T) {
	t.Run("Should surface backend failures as an error payload with status", func(t *testing.T) {
		backend := &stubBackend{
			mode: nutrition.ModeEmailPin,
			err:  &nutrition.HTTPError{Op: "diet evaluation", Status: 422, Body: `{"detail":"bad feed"}`},
		}
		recorder := &memoryRecorder{}
		cs := connect(t, NewServer(backend, Deps{Recorder: recorder}))

		in := DietEvaluationInput{
			CattleInfo:     sampleCattle(),
			FeedEvaluation: []models.FeedEvaluation{{FeedID: "f1", QuantityAsFed: 10, PricePerKg: 0.2}},
			Currency:       "KES",
		}
		res, err := cs.CallTool(context.Background(), &mcp.CallToolParams{Name: toolEvaluate, Arguments: arguments(t, in)})
		require.NoError(t, err)
		require.True(t, res.IsError)

		var payload errorPayload
		require.NoError(t, json.Unmarshal([]byte(textOf(t, res)), &payload))
		assert.Equal(t, 422, payload.Status)
		assert.Contains(t, payload.Error, "diet evaluation failed: 422")
		assert.Equal(t, "KES", backend.evaluation.Currency)

		inv := recorder.last(t)
		assert.Equal(t, 422, inv.HTTPStatus)
		assert.Equal(t, "email_pin", inv.AuthMode)
	})

	t.Run("Should take the currency of an explicit country from the catalog", func(t *testing.T) {
		catalog := stubCatalog{countries: []models.Country{{ID: "c-ke", Currency: "KES"}}}
		ration := []models.FeedEvaluation{{FeedID: "f1", QuantityAsFed: 10, PricePerKg: 0.2}}

		tests := []struct {
			name      string
			countryID string
			currency  string
			want      string
		}{
			{name: "known country", countryID: "c-ke", want: "KES"},
			{name: "caller currency wins", countryID: "c-ke", currency: "USD", want: "USD"},
			{name: "unknown country", countryID: "c-zz", want: ""},
			{name: "no country", want: ""},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				backend := &stubBackend{result: json.RawMessage(`{}`)}
				cs := connect(t, NewServer(backend, Deps{Catalog: catalog}))

				in := DietEvaluationInput{CattleInfo: sampleCattle(), FeedEvaluation: ration, CountryID: tt.countryID, Currency: tt.currency}
				res, err := cs.CallTool(context.Background(), &mcp.CallToolParams{Name: toolEvaluate, Arguments: arguments(t, in)})
				require.NoError(t, err)
				assert.False(t, res.IsError)
				assert.Equal(t, tt.want, backend.evaluation.Currency)
			})
		}
	})

	t.Run("Should reject a zero quantity", func(t *testing.T) {
		backend := &stubBackend{}
		cs := connect(t, NewServer(backend, Deps{}))

		in := DietEvaluationInput{
			CattleInfo:     sampleCattle(),
			FeedEvaluation: []models.FeedEvaluation{{FeedID: "f1", QuantityAsFed: 0}},
		}
		res, err := cs.CallTool(context.Background(), &mcp.CallToolParams{Name: toolEvaluate, Arguments: arguments(t, in)})
		require.NoError(t, err)
		assert.True(t, res.IsError)
		assert.Contains(t, textOf(t, res), "feed_evaluation[0].quantity_as_fed must be > 0")
		assert.Zero(t, backend.calls)
	})
}

func TestFeedTools(t *testing.T) {
	t.Run("Should return the full feed record", func(t *testing.T) {
		var feed models.FeedRecord
		require.NoError(t, json.Unmarshal([]byte(`{"id":"f1","fd_name":"Maize silage","fd_cp":8.1,"fd_extra":"kept"}`), &feed))
		cs := connect(t, NewServer(&stubBackend{feed: &feed}, Deps{}))

		res, err := cs.CallTool(context.Background(), &mcp.CallToolParams{Name: toolFeedByID, Arguments: map[string]any{"feed_id": "f1"}})
		require.NoError(t, err)
		assert.False(t, res.IsError)
		assert.JSONEq(t, `{"id":"f1","fd_name":"Maize silage","fd_cp":8.1,"fd_extra":"kept"}`, textOf(t, res))
	})

	t.Run("Should report a missing feed with its status", func(t *testing.T) {
		notFound := &nutrition.FeedNotFoundError{FeedID: "zz", HTTPError: &nutrition.HTTPError{Op: "feed lookup", Status: 404, Body: "nope"}}
		cs := connect(t, NewServer(&stubBackend{err: notFound}, Deps{}))

		res, err := cs.CallTool(context.Background(), &mcp.CallToolParams{Name: toolFeedByID, Arguments: map[string]any{"feed_id": "zz"}})
		require.NoError(t, err)
		assert.True(t, res.IsError)
		assert.JSONEq(t, `{"error":"feed zz not found: 404 - nope","status":404}`, textOf(t, res))
	})

	t.Run("Should wrap search results with a count", func(t *testing.T) {
		backend := &stubBackend{feeds: []models.FeedRecord{{ID: "f1"}, {ID: "f2"}}}
		cs := connect(t, NewServer(backend, Deps{}))

		res, err := cs.CallTool(context.Background(), &mcp.CallToolParams{
			Name:      toolSearchFeeds,
			Arguments: map[string]any{"country_id": "c-ke", "feed_type": "Forage", "limit": 50},
		})
		require.NoError(t, err)
		assert.False(t, res.IsError)

		var out struct {
			Count int                 `json:"count"`
			Feeds []models.FeedRecord `json:"feeds"`
		}
		require.NoError(t, json.Unmarshal([]byte(textOf(t, res)), &out))
		assert.Equal(t, 2, out.Count)
		assert.Len(t, out.Feeds, 2)
		assert.Equal(t, models.FeedQuery{CountryID: "c-ke", FeedType: "Forage", Limit: 50}, backend.query)
	})

	t.Run("Should reject an oversized page", func(t *testing.T) {
		backend := &stubBackend{}
		cs := connect(t, NewServer(backend, Deps{}))

		res, err := cs.CallTool(context.Background(), &mcp.CallToolParams{Name: toolSearchFeeds, Arguments: map[string]any{"limit": 1000}})
		require.NoError(t, err)
		assert.True(t, res.IsError)
		assert.Contains(t, textOf(t, res), "limit must be <= 500")
		assert.Zero(t, backend.calls)
	})
}

func TestCountries(t *testing.T) {
	countries := []models.Country{{ID: "c-ke", Name: "Kenya", Code: "KE", Currency: "KES"}}

	t.Run("Should list countries as a tool", func(t *testing.T) {
		cs := connect(t, NewServer(&stubBackend{}, Deps{Catalog: stubCatalog{countries: countries}}))

		res, err := cs.CallTool(context.Background(), &mcp.CallToolParams{Name: toolListCountries, Arguments: map[string]any{}})
		require.NoError(t, err)
		assert.False(t, res.IsError)
		assert.JSONEq(t, `{"countries":[{"id":"c-ke","name":"Kenya","country_code":"KE","currency":"KES"}]}`, textOf(t, res))
	})

	t.Run("Should serve the country resource", func(t *testing.T) {
		cs := connect(t, NewServer(&stubBackend{}, Deps{Catalog: stubCatalog{countries: countries}}))

		res, err := cs.ReadResource(context.Background(), &mcp.ReadResourceParams{URI: countriesURI})
		require.NoError(t, err)
		require.Len(t, res.Contents, 1)
		assert.Equal(t, jsonMIMEType, res.Contents[0].MIMEType)
		assert.Contains(t, res.Contents[0].Text, `"Kenya"`)
	})

	t.Run("Should report catalog failures", func(t *testing.T) {
		cs := connect(t, NewServer(&stubBackend{}, Deps{Catalog: stubCatalog{err: errors.New("backend down")}}))

		res, err := cs.CallTool(context.Background(), &mcp.CallToolParams{Name: toolListCountries, Arguments: map[string]any{}})
		require.NoError(t, err)
		assert.True(t, res.IsError)
		assert.JSONEq(t, `{"error":"backend down"}`, textOf(t, res))
	})
}

func TestValidateInput(t *testing.T) {
	tests := []struct {
		name    string
		in      any
		wantErr string
	}{
		{name: "valid lookup", in: FeedLookupInput{FeedID: "f1"}},
		{name: "empty lookup", in: FeedLookupInput{}, wantErr: "feed_id is required"},
		{name: "bad currency", in: DietEvaluationInput{
			CattleInfo:     sampleCattle(),
			FeedEvaluation: []models.FeedEvaluation{{FeedID: "f1", QuantityAsFed: 1}},
			Currency:       "KENYA",
		}, wantErr: "currency must be 3 characters"},
		{name: "bad topography", in: DietRecommendationInput{
			CattleInfo: func() models.CattleInfo {
				c := sampleCattle()
				c.Topography = "Swamp"
				return c
			}(),
			FeedSelection: feedSelection(6),
		}, wantErr: "cattle_info.topography must be one of [Flat Hilly Mountainous]"},
		{name: "too many feeds", in: DietRecommendationInput{CattleInfo: sampleCattle(), FeedSelection: feedSelection(21)}, wantErr: "feed_selection allows at most 20 entries"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateInput(tt.in)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestErrorResult(t *testing.T) {
	res := errorResult("diet evaluation failed: 502 - <html>Bad Gateway</html> & retry", 502)

	assert.True(t, res.IsError)
	assert.Equal(t, `{"error":"diet evaluation failed: 502 - <html>Bad Gateway</html> & retry","status":502}`, textOf(t, res))
}

func TestJSONResult(t *testing.T) {
	res, err := jsonResult(feedSearchOutput{Count: 1, Feeds: []models.FeedRecord{{ID: "f1", Name: "Maize & beans"}}})
	require.NoError(t, err)
	assert.Equal(t, `{"count":1,"feeds":[{"id":"f1","fd_name":"Maize & beans"}]}`, textOf(t, res))
}
