// Package tools exposes the nutrition backend operations as MCP tools.
package tools

import (
	"context"
	"encoding/json"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/mamadbah2/dairy-mcp/internal/domain/models"
	"github.com/mamadbah2/dairy-mcp/internal/metrics"
	"github.com/mamadbah2/dairy-mcp/pkg/clients/nutrition"
)

const (
	serverName        = "dairy-nutrition"
	countriesURI      = "dairy://countries"
	jsonMIMEType      = "application/json"
	toolRecommend     = "get_diet_recommendation"
	toolEvaluate      = "evaluate_diet"
	toolFeedByID      = "get_feed_by_id"
	toolSearchFeeds   = "search_feeds"
	toolListCountries = "list_countries"
)

// Backend is the subset of the nutrition client the tools call.
type Backend interface {
	Mode() nutrition.Mode
	GetDietRecommendation(ctx context.Context, p nutrition.RecommendationParams) (json.RawMessage, error)
	EvaluateDiet(ctx context.Context, p nutrition.EvaluationParams) (json.RawMessage, error)
	GetFeedByID(ctx context.Context, feedID string) (*models.FeedRecord, error)
	SearchFeeds(ctx context.Context, q models.FeedQuery) ([]models.FeedRecord, error)
}

// CountryCatalog serves the cached country list.
type CountryCatalog interface {
	Countries(ctx context.Context) ([]models.Country, error)
	Lookup(ctx context.Context, id string) (models.Country, bool)
}

// Recorder receives one entry per tool call.
type Recorder interface {
	Record(ctx context.Context, invocation models.ToolInvocation)
}

// Deps are the optional collaborators of the tool server.
type Deps struct {
	Catalog  CountryCatalog
	Recorder Recorder
	Metrics  *metrics.Metrics
	Logger   *zap.Logger
	Version  string
}

type toolServer struct {
	backend Backend
	deps    Deps
	logger  *zap.Logger
	now     func() time.Time
}

// NewServer builds an MCP server whose tools call backend.
func NewServer(backend Backend, deps Deps) *mcp.Server {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	version := deps.Version
	if version == "" {
		version = "dev"
	}

	ts := &toolServer{backend: backend, deps: deps, logger: logger, now: time.Now}

	server := mcp.NewServer(&mcp.Implementation{Name: serverName, Version: version}, nil)
	ts.register(server)
	return server
}

func boolPtr(b bool) *bool { return &b }

// readOnlyAnnotations marks tools that only query the backend.
func readOnlyAnnotations() *mcp.ToolAnnotations {
	return &mcp.ToolAnnotations{
		ReadOnlyHint:   true,
		IdempotentHint: true,
		OpenWorldHint:  boolPtr(true),
	}
}

func (ts *toolServer) register(server *mcp.Server) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        toolRecommend,
		Title:       "Least-cost diet recommendation",
		Description: "Compute the least-cost ration meeting a dairy cow's nutrient requirements from 6 to 20 candidate feeds with prices. Mix forages and concentrates.",
		Annotations: readOnlyAnnotations(),
	}, ts.handleRecommendation)

	mcp.AddTool(server, &mcp.Tool{
		Name:        toolEvaluate,
		Title:       "Diet evaluation",
		Description: "Evaluate whether a dairy cow's current ration meets its energy, protein and mineral requirements and report its cost.",
		Annotations: readOnlyAnnotations(),
	}, ts.handleEvaluation)

	mcp.AddTool(server, &mcp.Tool{
		Name:        toolFeedByID,
		Title:       "Feed lookup",
		Description: "Fetch the full nutritional profile of one feed by id.",
		Annotations: readOnlyAnnotations(),
	}, ts.handleFeedByID)

	mcp.AddTool(server, &mcp.Tool{
		Name:        toolSearchFeeds,
		Title:       "Feed search",
		Description: "List feeds filtered by country, type and category. Use it to pick feed ids for recommendations and evaluations.",
		Annotations: readOnlyAnnotations(),
	}, ts.handleSearchFeeds)

	if ts.deps.Catalog != nil {
		mcp.AddTool(server, &mcp.Tool{
			Name:        toolListCountries,
			Title:       "Countries",
			Description: "List the countries the backend has feed data for, with their ids and currencies.",
			Annotations: readOnlyAnnotations(),
		}, ts.handleListCountries)

		server.AddResource(&mcp.Resource{
			URI:         countriesURI,
			Name:        "countries",
			Description: "Countries supported by the feed database.",
			MIMEType:    jsonMIMEType,
		}, ts.readCountries)
	}
}

func (ts *toolServer) handleRecommendation(ctx context.Context, _ *mcp.CallToolRequest, in DietRecommendationInput) (*mcp.CallToolResult, any, error) {
	return ts.run(ctx, toolRecommend, in, func(ctx context.Context) (any, error) {
		return ts.backend.GetDietRecommendation(ctx, nutrition.RecommendationParams{
			CattleInfo:    in.CattleInfo,
			FeedSelection: in.FeedSelection,
			CountryID:     in.CountryID,
			UserID:        in.UserID,
		})
	})
}

func (ts *toolServer) handleEvaluation(ctx context.Context, _ *mcp.CallToolRequest, in DietEvaluationInput) (*mcp.CallToolResult, any, error) {
	return ts.run(ctx, toolEvaluate, in, func(ctx context.Context) (any, error) {
		return ts.backend.EvaluateDiet(ctx, nutrition.EvaluationParams{
			CattleInfo:     in.CattleInfo,
			FeedEvaluation: in.FeedEvaluation,
			CountryID:      in.CountryID,
			Currency:       ts.currencyFor(ctx, in.CountryID, in.Currency),
			UserID:         in.UserID,
		})
	})
}

// currencyFor fills in the currency of an explicitly named country when the caller
// gave none.
func (ts *toolServer) currencyFor(ctx context.Context, countryID, currency string) string {
	if currency != "" || countryID == "" || ts.deps.Catalog == nil {
		return currency
	}
	if c, ok := ts.deps.Catalog.Lookup(ctx, countryID); ok {
		return c.Currency
	}
	return ""
}

func (ts *toolServer) handleFeedByID(ctx context.Context, _ *mcp.CallToolRequest, in FeedLookupInput) (*mcp.CallToolResult, any, error) {
	return ts.run(ctx, toolFeedByID, in, func(ctx context.Context) (any, error) {
		return ts.backend.GetFeedByID(ctx, in.FeedID)
	})
}

type feedSearchOutput struct {
	Count int                 `json:"count"`
	Feeds []models.FeedRecord `json:"feeds"`
}

func (ts *toolServer) handleSearchFeeds(ctx context.Context, _ *mcp.CallToolRequest, in FeedSearchInput) (*mcp.CallToolResult, any, error) {
	return ts.run(ctx, toolSearchFeeds, in, func(ctx context.Context) (any, error) {
		feeds, err := ts.backend.SearchFeeds(ctx, models.FeedQuery{
			CountryID:    in.CountryID,
			FeedType:     in.FeedType,
			FeedCategory: in.FeedCategory,
			Limit:        in.Limit,
			Offset:       in.Offset,
		})
		if err != nil {
			return nil, err
		}
		return feedSearchOutput{Count: len(feeds), Feeds: feeds}, nil
	})
}

type countriesOutput struct {
	Countries []models.Country `json:"countries"`
}

func (ts *toolServer) handleListCountries(ctx context.Context, _ *mcp.CallToolRequest, in ListCountriesInput) (*mcp.CallToolResult, any, error) {
	return ts.run(ctx, toolListCountries, in, func(ctx context.Context) (any, error) {
		countries, err := ts.deps.Catalog.Countries(ctx)
		if err != nil {
			return nil, err
		}
		return countriesOutput{Countries: countries}, nil
	})
}

func (ts *toolServer) readCountries(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	countries, err := ts.deps.Catalog.Countries(ctx)
	if err != nil {
		return nil, err
	}
	data, err := encodeJSON(countriesOutput{Countries: countries})
	if err != nil {
		return nil, err
	}
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{URI: req.Params.URI, MIMEType: jsonMIMEType, Text: string(data)}},
	}, nil
}
