// Package handler serves the module catalog. The catalog is static for
// the life of the process, so these endpoints read straight from the
// registry without a service layer.
package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"vendo/internal/catalog"
	"vendo/pkg/platform/httputil"
)

type Handler struct {
	registry *catalog.Registry
}

func New(registry *catalog.Registry) *Handler {
	return &Handler{registry: registry}
}

func (h *Handler) Register(r chi.Router) {
	r.Get("/catalog/modules", h.HandleListModules)
	r.Get("/catalog/categories", h.HandleListCategories)
}

type ModuleListResponse struct {
	Modules []catalog.Module `json:"modules"`
}

type CategoryListResponse struct {
	Categories []catalog.BusinessCategory `json:"categories"`
}

func (h *Handler) HandleListModules(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, &ModuleListResponse{Modules: h.registry.Modules()})
}

func (h *Handler) HandleListCategories(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, &CategoryListResponse{Categories: h.registry.Categories()})
}
