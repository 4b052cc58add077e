package sheets

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"google.golang.org/api/option"
	sheetsapi "google.golang.org/api/sheets/v4"
)

type appendCall struct {
	path  string
	query string
	body  sheetsapi.ValueRange
}

func newFakeSheets(t *testing.T, status int) (*GoogleSheetRepository, *[]appendCall) {
	t.Helper()
	var calls []appendCall
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		call := appendCall{path: r.URL.Path, query: r.URL.RawQuery}
		_ = json.NewDecoder(r.Body).Decode(&call.body)
		calls = append(calls, call)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if status >= http.StatusBadRequest {
			_, _ = w.Write([]byte(`{"error":{"code":403,"message":"quota exceeded"}}`))
			return
		}
		_, _ = w.Write([]byte(`{"spreadsheetId":"sheet-1"}`))
	}))
	t.Cleanup(srv.Close)

	service, err := sheetsapi.NewService(context.Background(), option.WithEndpoint(srv.URL+"/"), option.WithoutAuthentication())
	require.NoError(t, err)
	return &GoogleSheetRepository{service: service, spreadsheetID: "sheet-1", logger: zap.NewNop()}, &calls
}

func TestWriteRow(t *testing.T) {
	t.Run("Should append one raw row to the range", func(t *testing.T) {
		repo, calls := newFakeSheets(t, http.StatusOK)

		row := []interface{}{"2025-03-01T10:00:00Z", "search_feeds", "api_key", "ok", 0, 12, ""}
		require.NoError(t, repo.WriteRow(context.Background(), "Invocations!A:G", row))

		require.Len(t, *calls, 1)
		call := (*calls)[0]
		assert.True(t, strings.HasPrefix(call.path, "/v4/spreadsheets/sheet-1/values/"))
		assert.True(t, strings.HasSuffix(call.path, ":append"))
		assert.Contains(t, call.query, "valueInputOption=RAW")
		assert.Contains(t, call.query, "insertDataOption=INSERT_ROWS")
		require.Len(t, call.body.Values, 1)
		assert.Equal(t, "search_feeds", call.body.Values[0][1])
		assert.Len(t, call.body.Values[0], 7)
	})

	t.Run("Should reject an empty range without calling the api", func(t *testing.T) {
		repo, calls := newFakeSheets(t, http.StatusOK)
		assert.Error(t, repo.WriteRow(context.Background(), "", nil))
		assert.Empty(t, *calls)
	})

	t.Run("Should surface api errors", func(t *testing.T) {
		repo, _ := newFakeSheets(t, http.StatusForbidden)
		err := repo.WriteRow(context.Background(), "Invocations!A:G", []interface{}{"x"})
		assert.ErrorContains(t, err, "append row into range Invocations!A:G")
	})
}
