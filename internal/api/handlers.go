package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"newstrader/pkg/newstrader"
)

func (h *handler) health(w http.ResponseWriter, r *http.Request) {
	writeSuccess(w, map[string]string{"status": "ok"})
}

func (h *handler) getLatestRecommendations(w http.ResponseWriter, r *http.Request) {
	items, err := h.core.GetLatestRecommendations(r.Context())
	if err != nil {
		writeErrorResponse(w, http.StatusInternalServerError, err)
		return
	}
	writeSuccess(w, items)
}

func (h *handler) getRecommendationHistory(w http.ResponseWriter, r *http.Request) {
	asset := chi.URLParam(r, "asset")
	if asset == "" {
		writeErrorResponse(w, http.StatusBadRequest,
			newstrader.NewError(newstrader.ErrCodeInvalidInput, "asset is required"))
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeErrorResponse(w, http.StatusBadRequest,
				newstrader.NewError(newstrader.ErrCodeInvalidInput, "limit must be a non-negative integer"))
			return
		}
		limit = n
	}

	items, err := h.core.GetRecommendationHistory(r.Context(), asset, limit)
	if err != nil {
		writeErrorResponse(w, http.StatusInternalServerError, err)
		return
	}
	writeSuccess(w, items)
}

type resolveRequest struct {
	Asset     newstrader.AssetContext      `json:"asset"`
	Market    newstrader.MarketSnapshot    `json:"market"`
	Portfolio *newstrader.PortfolioContext `json:"portfolio,omitempty"`
	Persist   bool                         `json:"persist,omitempty"`
}

// resolve runs one on-demand resolution for a caller-supplied asset and
// market snapshot. Without an explicit portfolio context the asset is treated
// as a one-position portfolio.
func (h *handler) resolve(w http.ResponseWriter, r *http.Request) {
	if h.resolver == nil {
		writeErrorResponse(w, http.StatusNotImplemented,
			newstrader.NewError(newstrader.ErrCodeUnsupported, "no AI backend configured"))
		return
	}

	var req resolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorResponse(w, http.StatusBadRequest,
			newstrader.WrapError(newstrader.ErrCodeInvalidInput, "invalid request body", err))
		return
	}
	if req.Asset.Name == "" {
		writeErrorResponse(w, http.StatusBadRequest,
			newstrader.NewError(newstrader.ErrCodeInvalidInput, "asset name is required"))
		return
	}

	portfolio := newstrader.BuildPortfolioContext([]newstrader.AssetContext{req.Asset}, req.Asset, req.Market)
	if req.Portfolio != nil {
		portfolio = *req.Portfolio
	}

	rec := h.resolver.Resolve(r.Context(), req.Asset, req.Market, portfolio, nil)

	if req.Persist && h.core != nil {
		if _, err := h.core.SaveRecommendation(r.Context(), req.Asset, portfolio,
			h.resolver.ProviderName(), h.resolver.ProviderModel(), rec); err != nil {
			writeErrorResponse(w, http.StatusInternalServerError, err)
			return
		}
	}

	writeSuccess(w, map[string]any{
		"asset":          req.Asset.Name,
		"portfolio":      portfolio,
		"recommendation": rec,
	})
}

func (h *handler) getLatestDebugSession(w http.ResponseWriter, r *http.Request) {
	session, err := h.core.GetLatestDebugSession(r.Context())
	if err != nil {
		writeErrorResponse(w, http.StatusInternalServerError, err)
		return
	}
	writeSuccess(w, session)
}
