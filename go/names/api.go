package names

import (
	"encoding/json"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

const (
	defaultLimit = 10
	maxLimit     = 100
)

// NewAPI builds the autocomplete HTTP surface over a loaded Index.
func NewAPI(ix *Index) http.Handler {
	var a = api{ix: ix}
	var router = mux.NewRouter()

	router.Path("/").Methods("GET").HandlerFunc(a.serveRoot)
	router.Path("/api/autocomplete").Methods("GET").HandlerFunc(a.serveAutocomplete)
	router.Path("/api/stats").Methods("GET").HandlerFunc(a.serveStats)
	router.Path("/api/health").Methods("GET").HandlerFunc(a.serveHealth)

	return router
}

type api struct {
	ix *Index
}

func (a api) serveRoot(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Resupply Planner API",
		"endpoints": map[string]string{
			"autocomplete": "/api/autocomplete",
			"stats":        "/api/stats",
			"health":       "/api/health",
		},
	})
}

func (a api) serveAutocomplete(w http.ResponseWriter, r *http.Request) {
	var started = time.Now()
	var query = r.URL.Query().Get("q")

	var limit = defaultLimit
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			http.Error(w, "limit must be an integer", http.StatusBadRequest)
			return
		}
		limit = clampLimit(n)
	}

	var results = a.ix.Search(query, limit)
	if results == nil {
		results = []string{}
	}
	var elapsed = float64(time.Since(started).Microseconds()) / 1000

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"query":            query,
		"results":          results,
		"count":            len(results),
		"limit":            limit,
		"response_time_ms": math.Round(elapsed*100) / 100,
		"success":          true,
	})
}

func (a api) serveStats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"service": "system_autocomplete",
		"stats":   a.ix.Stats(),
		"success": true,
	})
}

func (a api) serveHealth(w http.ResponseWriter, _ *http.Request) {
	var stats = a.ix.Stats()
	var status = "healthy"
	if !stats.Loaded || stats.TotalSystems == 0 {
		status = "unhealthy"
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":        status,
		"loaded":        stats.Loaded,
		"total_systems": stats.TotalSystems,
		"memory_mb":     math.Round(stats.EstimatedMemoryMB*10) / 10,
		"success":       true,
	})
}

func clampLimit(n int) int {
	if n < 1 {
		return 1
	}
	if n > maxLimit {
		return maxLimit
	}
	return n
}

func writeJSON(w http.ResponseWriter, code int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.WithError(err).Warn("writing response failed")
	}
}
