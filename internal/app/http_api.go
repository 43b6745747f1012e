package app

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"skillcat/internal/infra/recommend"
	"skillcat/internal/infra/telemetry"
)

type catalogInfo struct {
	Revision uint64    `json:"revision"`
	ETag     string    `json:"etag"`
	LoadedAt time.Time `json:"loadedAt"`
	Tools    int       `json:"tools"`
	Skills   int       `json:"skills"`
	Healthy  bool      `json:"healthy"`
}

type recommendResponse struct {
	Query    string                     `json:"query"`
	Revision uint64                     `json:"revision"`
	Intents  []recommend.IntentMatch    `json:"intents"`
	Results  []recommend.Recommendation `json:"results"`
}

type apiError struct {
	Error string `json:"error"`
}

// Routes returns the read-only catalog endpoints served by the daemon.
func (a *Application) Routes() map[string]http.Handler {
	return map[string]http.Handler{
		"/v1/catalog":   a.apiHandler(a.handleCatalog),
		"/v1/recommend": a.apiHandler(a.handleRecommend),
	}
}

func (a *Application) apiHandler(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.Header().Set("Allow", http.MethodGet)
			telemetry.WriteJSON(w, http.StatusMethodNotAllowed, apiError{Error: "method not allowed"})
			return
		}
		ctx := r.Context()
		if id := strings.TrimSpace(r.Header.Get("X-Request-ID")); id != "" {
			ctx = telemetry.WithRequestID(ctx, id)
		}
		ctx, id := telemetry.EnsureRequestID(ctx)
		w.Header().Set("X-Request-ID", id)
		next(w, r.WithContext(ctx))
	})
}

func (a *Application) handleCatalog(w http.ResponseWriter, _ *http.Request) {
	state := a.Catalog()
	telemetry.WriteJSON(w, http.StatusOK, catalogInfo{
		Revision: state.Revision,
		ETag:     state.ETag,
		LoadedAt: state.LoadedAt,
		Tools:    len(state.Catalog.Tools),
		Skills:   len(state.Catalog.Skills),
		Healthy:  a.Index().HealthCheck().Healthy,
	})
}

// handleRecommend serves GET /v1/recommend?q=...&limit=N&threshold=F.
// Missing limit and threshold fall back to the catalog's recommend defaults.
func (a *Application) handleRecommend(w http.ResponseWriter, r *http.Request) {
	state := a.Catalog()
	defaults := state.Catalog.Runtime.Recommend
	params := r.URL.Query()

	limit := defaults.Limit
	if raw := params.Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			telemetry.WriteJSON(w, http.StatusBadRequest, apiError{Error: "limit must be a positive integer"})
			return
		}
		limit = parsed
	}
	threshold := defaults.Threshold
	if raw := params.Get("threshold"); raw != "" {
		parsed, err := strconv.ParseFloat(raw, 64)
		if err != nil || parsed < 0 || parsed > 1 {
			telemetry.WriteJSON(w, http.StatusBadRequest, apiError{Error: "threshold must be between 0 and 1"})
			return
		}
		threshold = parsed
	}

	query := params.Get("q")
	results := a.engine.Recommend(r.Context(), query,
		recommend.WithLimit(limit),
		recommend.WithThreshold(threshold),
	)
	telemetry.LoggerWithRequest(r.Context(), a.logger).Debug("recommend served",
		telemetry.QueryField(query),
		zap.Int("results", len(results)),
	)
	telemetry.WriteJSON(w, http.StatusOK, recommendResponse{
		Query:    query,
		Revision: state.Revision,
		Intents:  a.engine.AnalyzeIntent(query),
		Results:  results,
	})
}
