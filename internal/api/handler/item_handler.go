package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	apimw "github.com/mediahub/library-notifier/internal/api/middleware"
	"github.com/mediahub/library-notifier/internal/domain"
	"github.com/mediahub/library-notifier/internal/service"
)

// ItemHandler serves the library ingest surface: this is where the scanner
// reports new items and where metadata enrichment lands provider ids.
type ItemHandler struct {
	svc    *service.LibraryService
	logger *zap.Logger
}

func NewItemHandler(svc *service.LibraryService, logger *zap.Logger) *ItemHandler {
	return &ItemHandler{svc: svc, logger: logger}
}

// Create handles POST /api/v1/library/items
//
// Persists the item and raises the item-added event that feeds the
// notification pipeline.
func (h *ItemHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	item, err := h.svc.AddItem(r.Context(), req)
	if err != nil {
		h.logger.Warn("create item failed",
			zap.String("correlation_id", apimw.GetCorrelationID(r.Context())),
			zap.Error(err),
		)
		mapError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, item)
}

// GetByID handles GET /api/v1/library/items/{id}
func (h *ItemHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	item, err := h.svc.GetItem(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		mapError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, item)
}

// List handles GET /api/v1/library/items
func (h *ItemHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if l, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && l > 0 && l <= 500 {
		limit = l
	}

	items, err := h.svc.ListItems(r.Context(), limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list items")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"data":  items,
		"limit": limit,
	})
}

// AttachProviders handles PUT /api/v1/library/items/{id}/providers
//
// Merging at least one provider id marks the item metadata-ready; a queued
// item is promoted on the next reconcile pass.
func (h *ItemHandler) AttachProviders(w http.ResponseWriter, r *http.Request) {
	var req domain.AttachProvidersRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	item, err := h.svc.AttachProviders(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		mapError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, item)
}

// Delete handles DELETE /api/v1/library/items/{id}
func (h *ItemHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteItem(r.Context(), chi.URLParam(r, "id")); err != nil {
		mapError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
