package handler

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/alanyoungcy/arblens/internal/domain"
	"github.com/alanyoungcy/arblens/internal/pairview"
	"github.com/alanyoungcy/arblens/internal/service"
)

// PairService defines the methods that the pair handler requires.
type PairService interface {
	List(ctx context.Context, q service.ListQuery) (service.ListResult, error)
	Get(ctx context.Context, id string) (domain.MarketPair, error)
	Create(ctx context.Context, p domain.MarketPair) (domain.MarketPair, error)
	Override(ctx context.Context, id string, confidence int, reason string) (domain.MarketPair, error)
	BulkApply(ctx context.Context, action domain.BulkAction, ids []string, reason string) ([]domain.MarketPair, error)
}

// PairHandler serves the market pair endpoints.
type PairHandler struct {
	pairs  PairService
	logger *slog.Logger
}

// NewPairHandler creates a PairHandler.
func NewPairHandler(pairs PairService, logger *slog.Logger) *PairHandler {
	return &PairHandler{pairs: pairs, logger: logHandler(logger, "pairs")}
}

// ListPairs returns one page of the filtered, sorted pair view.
// GET /api/pairs?search=&min_confidence=&venue=&category=&status=&sort=&dir=&limit=&offset=
func (h *PairHandler) ListPairs(w http.ResponseWriter, r *http.Request) {
	q, err := parseListQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	res, err := h.pairs.List(r.Context(), q)
	if err != nil {
		writeServiceError(w, r, h.logger, err, "failed to list pairs")
		return
	}
	if res.Pairs == nil {
		res.Pairs = []domain.MarketPair{}
	}
	writeJSON(w, http.StatusOK, res)
}

// GetPair returns a pair with its confidence factors and price history.
// GET /api/pairs/{id}
func (h *PairHandler) GetPair(w http.ResponseWriter, r *http.Request) {
	p, err := h.pairs.Get(r.Context(), pathParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, h.logger, err, "failed to get pair")
		return
	}
	writeJSON(w, http.StatusOK, pairview.Analyze(p))
}

// CreatePair adds a new pending pair.
// POST /api/pairs
func (h *PairHandler) CreatePair(w http.ResponseWriter, r *http.Request) {
	var p domain.MarketPair
	if err := decodeJSON(r, &p); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	created, err := h.pairs.Create(r.Context(), p)
	if err != nil {
		writeServiceError(w, r, h.logger, err, "failed to create pair")
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

type overrideRequest struct {
	Confidence *int   `json:"confidence"`
	Reason     string `json:"reason"`
}

// OverridePair sets a pair's confidence by hand.
// POST /api/pairs/{id}/override
func (h *PairHandler) OverridePair(w http.ResponseWriter, r *http.Request) {
	var req overrideRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Confidence == nil {
		writeError(w, http.StatusBadRequest, "confidence is required")
		return
	}
	p, err := h.pairs.Override(r.Context(), pathParam(r, "id"), *req.Confidence, req.Reason)
	if err != nil {
		writeServiceError(w, r, h.logger, err, "failed to override pair")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

type bulkRequest struct {
	Action string   `json:"action"`
	IDs    []string `json:"ids"`
	Reason string   `json:"reason"`
}

type bulkResponse struct {
	Action domain.BulkAction   `json:"action"`
	Pairs  []domain.MarketPair `json:"pairs"`
}

// BulkApply applies one action to many pairs at once.
// POST /api/pairs/bulk
func (h *PairHandler) BulkApply(w http.ResponseWriter, r *http.Request) {
	var req bulkRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	action, err := domain.ParseBulkAction(req.Action)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	updated, err := h.pairs.BulkApply(r.Context(), action, req.IDs, req.Reason)
	if err != nil {
		writeServiceError(w, r, h.logger, err, "failed to apply bulk action")
		return
	}
	writeJSON(w, http.StatusOK, bulkResponse{Action: action, Pairs: updated})
}

// parseListQuery reads the pair view query string. Multi-valued filters
// accept repeated keys or comma-separated values.
func parseListQuery(r *http.Request) (service.ListQuery, error) {
	v := r.URL.Query()
	q := service.ListQuery{
		Search: v.Get("search"),
		Filter: domain.DefaultFilterState(),
		Sort:   domain.DefaultSort(),
	}

	if s := v.Get("min_confidence"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			return q, fmt.Errorf("min_confidence: %q is not a number", s)
		}
		q.Filter.MinConfidence = &n
	}
	for _, s := range multi(v["venue"]) {
		q.Filter.Venues = append(q.Filter.Venues, domain.Venue(s))
	}
	for _, s := range multi(v["category"]) {
		q.Filter.Categories = append(q.Filter.Categories, domain.Category(s))
	}
	if s := v.Get("status"); s != "" {
		q.Filter.Status = s
	}

	if s := v.Get("sort"); s != "" {
		key, err := domain.ParseSortKey(s)
		if err != nil {
			return q, err
		}
		q.Sort = domain.SortConfig{Key: key, Direction: domain.SortAsc}
	}
	switch strings.ToLower(v.Get("dir")) {
	case "":
	case "asc":
		q.Sort.Direction = domain.SortAsc
	case "desc":
		q.Sort.Direction = domain.SortDesc
	default:
		return q, fmt.Errorf("dir: must be asc or desc")
	}

	opts := parseListOpts(r)
	if v.Get("limit") == "" {
		opts.Limit = 0
	}
	q.Limit, q.Offset = opts.Limit, opts.Offset
	return q, nil
}

func multi(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
