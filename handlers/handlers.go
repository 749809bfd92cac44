// Package handlers provides HTTP request handlers for the search API
// endpoints. It includes handlers for medication search, health checks,
// statistics, and cache management with input validation and consistent
// JSON responses.
package handlers

import (
	"encoding/json"
	"net/http"
	"runtime"
	"time"

	"github.com/openrx/medsearch-api/interfaces"
	"github.com/openrx/medsearch-api/logging"
	"github.com/openrx/medsearch-api/metrics"
	"github.com/openrx/medsearch-api/search"
)

// RespondWithJSON writes a JSON response
func RespondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		logging.Error("Failed to marshal JSON response", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	w.Write(data)
}

// RespondWithError writes a JSON error response
func RespondWithError(w http.ResponseWriter, code int, message string) {
	RespondWithJSON(w, code, map[string]string{"error": message})
}

// SearchMedications handles GET /search?q=&limit=&generics=
func SearchMedications(searcher interfaces.Searcher, validator interfaces.QueryValidator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query().Get("q")
		if err := validator.ValidateQuery(query); err != nil {
			logging.Warn("Rejected search query", "query", query, "error", err)
			RespondWithError(w, http.StatusBadRequest, err.Error())
			return
		}

		limit, err := validator.ValidateLimit(r.URL.Query().Get("limit"))
		if err != nil {
			RespondWithError(w, http.StatusBadRequest, err.Error())
			return
		}

		opts := search.DefaultOptions()
		opts.Limit = limit
		if r.URL.Query().Get("generics") == "false" {
			opts.IncludeGenerics = false
		}

		result := searcher.Search(r.Context(), query, opts)

		metrics.SearchRequestTotals.WithLabelValues(result.Source).Inc()
		metrics.SearchDuration.Observe(float64(result.SearchTimeMs) / 1000)

		RespondWithJSON(w, http.StatusOK, result)
	}
}

// HealthCheck returns server health information
func HealthCheck(checker interfaces.HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status, data, httpStatus := checker.HealthCheck(r.Context())

		var m runtime.MemStats
		runtime.ReadMemStats(&m)

		response := map[string]any{
			"status": status,
			"data":   data,
			"system": map[string]any{
				"goroutines": runtime.NumGoroutine(),
				"memory": map[string]any{
					"alloc_mb": int(m.Alloc / 1024 / 1024),
					"sys_mb":   int(m.Sys / 1024 / 1024),
					"num_gc":   m.NumGC,
				},
			},
			"timestamp": time.Now().Format(time.RFC3339),
		}

		RespondWithJSON(w, httpStatus, response)
	}
}

// GetStats returns aggregate search, cache, client, and breaker statistics
func GetStats(searcher interfaces.Searcher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		RespondWithJSON(w, http.StatusOK, searcher.Stats(r.Context()))
	}
}

// ClearCache handles DELETE /cache
func ClearCache(searcher interfaces.Searcher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		searcher.ClearCache(r.Context())
		logging.Info("Cache cleared", "remote_addr", r.RemoteAddr)
		RespondWithJSON(w, http.StatusOK, map[string]string{"status": "cache cleared"})
	}
}

// CancelRequests handles DELETE /requests
func CancelRequests(searcher interfaces.Searcher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		searcher.CancelAllRequests()
		logging.Info("Cancelled all in-flight requests", "remote_addr", r.RemoteAddr)
		RespondWithJSON(w, http.StatusOK, map[string]string{"status": "requests cancelled"})
	}
}
