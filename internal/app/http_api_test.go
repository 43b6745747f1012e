package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"skillcat/internal/infra/telemetry"
)

func newAPIHandler(t *testing.T, content string) (*Application, http.Handler, string) {
	t.Helper()
	path := writeConfig(t, content)
	application, cleanup, err := New(nil).Open(context.Background(), ServeConfig{ConfigPath: path})
	require.NoError(t, err)
	t.Cleanup(cleanup)
	return application, telemetry.NewHTTPHandler(telemetry.HTTPServerOptions{Routes: application.Routes()}), path
}

func getJSON(t *testing.T, handler http.Handler, target string, out any) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	if out != nil && rec.Code == http.StatusOK {
		require.NoError(t, json.NewDecoder(rec.Body).Decode(out))
	}
	return rec
}

func TestRoutes_Catalog(t *testing.T) {
	application, handler, _ := newAPIHandler(t, testCatalog)

	var info catalogInfo
	rec := getJSON(t, handler, "/v1/catalog", &info)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
	assert.Equal(t, uint64(1), info.Revision)
	assert.Equal(t, application.Catalog().ETag, info.ETag)
	assert.Equal(t, 1, info.Tools)
	assert.Equal(t, 2, info.Skills)
	assert.True(t, info.Healthy)
}

func TestRoutes_Recommend(t *testing.T) {
	application, handler, _ := newAPIHandler(t, testCatalog)

	var resp struct {
		Query   string `json:"query"`
		Results []struct {
			Record struct {
				ID string `json:"id"`
			} `json:"record"`
			Reason string `json:"reason"`
		} `json:"results"`
	}
	rec := getJSON(t, handler, "/v1/recommend?q=please+debug+my+code&threshold=0.1&limit=1", &resp)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "please debug my code", resp.Query)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "skill.debug", resp.Results[0].Record.ID)
	assert.NotEmpty(t, resp.Results[0].Reason)
	assert.Equal(t, 1, application.Engine().Stats().CacheEntries)

	req := httptest.NewRequest(http.MethodGet, "/v1/recommend?q=debug", nil)
	req.Header.Set("X-Request-ID", "req-42")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, "req-42", rec.Header().Get("X-Request-ID"))
}

func TestRoutes_RecommendUsesLiveDefaults(t *testing.T) {
	application, handler, path := newAPIHandler(t, testCatalog)

	var resp recommendResponse
	require.Equal(t, http.StatusOK, getJSON(t, handler, "/v1/recommend?q=debug+code+and+fix+bugs", &resp).Code)
	require.NotEmpty(t, resp.Results)

	raised := testCatalog + "recommend:\n  threshold: 1\n"
	require.NoError(t, os.WriteFile(path, []byte(raised), 0o600))
	require.NoError(t, application.provider.Reload(context.Background()))

	resp = recommendResponse{}
	require.Equal(t, http.StatusOK, getJSON(t, handler, "/v1/recommend?q=debug+code+and+fix+bugs", &resp).Code)
	assert.Equal(t, uint64(2), resp.Revision)
	assert.Empty(t, resp.Results)
}

func TestRoutes_RejectsBadRequests(t *testing.T) {
	_, handler, _ := newAPIHandler(t, testCatalog)

	for _, target := range []string{
		"/v1/recommend?q=debug&limit=0",
		"/v1/recommend?q=debug&limit=abc",
		"/v1/recommend?q=debug&threshold=2",
	} {
		rec := getJSON(t, handler, target, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code, target)
	}

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/catalog", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Equal(t, http.MethodGet, rec.Header().Get("Allow"))
}
