package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/w-h-a/calls/index"
	"github.com/w-h-a/calls/internal/service/search"
	"github.com/w-h-a/calls/record"
	"github.com/w-h-a/calls/store"
)

const (
	defaultK    = 5
	maxK        = 100
	previewSize = 200
)

// filterParams are the query parameters /search turns into metadata filters.
var filterParams = []string{"client_id", "sentiment_label", "primary_intent", "risk_level"}

type Searcher interface {
	Search(ctx context.Context, query string, k int, opts ...search.Option) ([]index.Match, error)
}

type CallSummary struct {
	CallID           string   `json:"call_id"`
	ClientID         string   `json:"client_id"`
	DurationSeconds  *float64 `json:"duration_seconds"`
	Sentiment        *string  `json:"sentiment"`
	PrimaryIntent    *string  `json:"primary_intent"`
	RiskLevel        *string  `json:"risk_level"`
	QualityScore     *int     `json:"quality_score"`
	ResolutionStatus *string  `json:"resolution_status"`
	Facets           []string `json:"facets"`
}

type SearchResult struct {
	CallID   string         `json:"call_id"`
	Distance float64        `json:"distance"`
	Metadata map[string]any `json:"metadata"`
	Preview  string         `json:"preview"`
}

type Handler struct {
	store    store.Store
	searcher Searcher
}

func (h *Handler) ListCalls(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	ids, err := h.store.List(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "failed to list records", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list records")
		return
	}

	calls := make([]CallSummary, 0, len(ids))

	for _, id := range ids {
		rec, err := h.store.Load(ctx, id)
		if err != nil {
			slog.WarnContext(ctx, "skipping unreadable record", "call_id", id, "error", err)
			continue
		}
		calls = append(calls, Summarize(rec))
	}

	writeJSON(w, http.StatusOK, map[string]any{"calls": calls})
}

func (h *Handler) GetCall(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := mux.Vars(r)["id"]

	rec, err := h.store.Load(ctx, id)
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "record not found")
		return
	case errors.Is(err, store.ErrCorrupt):
		slog.ErrorContext(ctx, "corrupt record", "call_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "record is corrupt")
		return
	case err != nil:
		slog.ErrorContext(ctx, "failed to load record", "call_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load record")
		return
	}

	writeJSON(w, http.StatusOK, rec)
}

func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	k := defaultK
	if raw := q.Get("k"); len(raw) > 0 {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > maxK {
			writeError(w, http.StatusBadRequest, "k must be an integer between 1 and 100")
			return
		}
		k = n
	}

	filter := map[string]any{}
	for _, p := range filterParams {
		if v := q.Get(p); len(v) > 0 {
			filter[p] = v
		}
	}

	var opts []search.Option
	if len(filter) > 0 {
		opts = append(opts, search.WithFilter(filter))
	}

	matches, err := h.searcher.Search(ctx, q.Get("q"), k, opts...)
	if errors.Is(err, search.ErrBlankQuery) || errors.Is(err, search.ErrInvalidLimit) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		slog.ErrorContext(ctx, "search failed", "error", err)
		writeError(w, http.StatusBadGateway, "search failed")
		return
	}

	results := make([]SearchResult, 0, len(matches))
	for _, m := range matches {
		results = append(results, SearchResult{
			CallID:   m.ID,
			Distance: m.Distance,
			Metadata: m.Metadata,
			Preview:  search.Preview(m.Text, previewSize),
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"query":   q.Get("q"),
		"k":       k,
		"results": results,
	})
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Summarize flattens the headline facet values of rec for listing.
func Summarize(rec *record.CallRecord) CallSummary {
	s := CallSummary{
		CallID:          rec.Metadata.CallID,
		ClientID:        rec.Metadata.ClientID,
		DurationSeconds: rec.Metadata.DurationSeconds,
		Facets:          []string{},
	}

	for _, f := range record.Facets {
		if rec.HasFacet(f) {
			s.Facets = append(s.Facets, f.String())
		}
	}

	if rec.Sentiment != nil {
		v := string(rec.Sentiment.Overall)
		s.Sentiment = &v
	}
	if rec.IntentAndTopics != nil {
		s.PrimaryIntent = rec.IntentAndTopics.PrimaryIntent
	}
	if rec.CallQuality != nil {
		s.QualityScore = rec.CallQuality.OverallQualityScore
	}
	if rec.ComplianceAndRisk != nil {
		v := string(rec.ComplianceAndRisk.RiskLevel)
		s.RiskLevel = &v
	}
	if rec.OutcomeAndFollowup != nil {
		v := string(rec.OutcomeAndFollowup.ResolutionStatus)
		s.ResolutionStatus = &v
	}

	return s
}

func NewRouter(h *Handler) *mux.Router {
	router := mux.NewRouter()

	router.HandleFunc("/healthz", h.Health).Methods(http.MethodGet)
	router.HandleFunc("/calls", h.ListCalls).Methods(http.MethodGet)
	router.HandleFunc("/calls/{id}", h.GetCall).Methods(http.MethodGet)
	router.HandleFunc("/search", h.Search).Methods(http.MethodGet)

	return router
}

func NewHandler(s store.Store, searcher Searcher) *Handler {
	return &Handler{
		store:    s,
		searcher: searcher,
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
