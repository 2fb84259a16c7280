package handlers

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"solarfarm/internal/core"
	"solarfarm/internal/sunlight"
)

// CityCatalog lists the cities of a sunlight table.
type CityCatalog interface {
	Cities() []sunlight.City
	City(cityID string) (sunlight.City, error)
}

// CityHandler exposes the local sunlight table.
type CityHandler struct {
	catalog CityCatalog
	logger  *slog.Logger
}

// NewCityHandler creates a CityHandler.
func NewCityHandler(catalog CityCatalog, logger *slog.Logger) *CityHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &CityHandler{catalog: catalog, logger: logger}
}

// RegisterRoutes mounts the city endpoints.
func (h *CityHandler) RegisterRoutes(r chi.Router) {
	r.Get("/cities", h.HandleList)
	r.Get("/cities/{id}", h.HandleGet)
}

// HandleList handles GET /v1/cities. Cities are ordered by id; an optional
// region query parameter filters them.
func (h *CityHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	cities := h.catalog.Cities()
	if region := r.URL.Query().Get("region"); region != "" {
		filtered := cities[:0:0]
		for _, c := range cities {
			if c.Region == region {
				filtered = append(filtered, c)
			}
		}
		cities = filtered
	}

	w.Header().Set("Cache-Control", "public, max-age=3600")
	core.JSON(w, r, http.StatusOK, core.APIResponse{
		Data: cities,
		Meta: &core.ResponseMeta{Count: len(cities)},
	})
}

// HandleGet handles GET /v1/cities/{id}.
func (h *CityHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	city, err := h.catalog.City(chi.URLParam(r, "id"))
	if err != nil {
		core.Error(w, r, err)
		return
	}

	w.Header().Set("Cache-Control", "public, max-age=3600")
	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: city})
}
