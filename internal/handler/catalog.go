package handler

import (
	"log/slog"
	"net/http"

	"github.com/sakif/keep-bouncing-back/internal/auth"
	"github.com/sakif/keep-bouncing-back/internal/service"
)

// CatalogHandler serves the read-mostly trick and equipment catalogs.
type CatalogHandler struct {
	catalog *service.CatalogService
	logger  *slog.Logger
}

func NewCatalogHandler(catalog *service.CatalogService, logger *slog.Logger) *CatalogHandler {
	return &CatalogHandler{catalog: catalog, logger: logger}
}

// HandleListTricks: GET /tricks?level=2
func (h *CatalogHandler) HandleListTricks(w http.ResponseWriter, r *http.Request) {
	var level *int
	if n, ok, err := queryInt(r, "level"); err != nil {
		writeError(w, h.logger, err)
		return
	} else if ok {
		level = &n
	}

	tricks, err := h.catalog.ListTricks(r.Context(), level)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, tricks)
}

// HandleListEquipment: GET /equipment
func (h *CatalogHandler) HandleListEquipment(w http.ResponseWriter, r *http.Request) {
	items, err := h.catalog.ListEquipment(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

type equipmentRequest struct {
	Name string `json:"name"`
}

// HandleCreateEquipment: POST /equipment (RequireAuth) → 201
func (h *CatalogHandler) HandleCreateEquipment(w http.ResponseWriter, r *http.Request) {
	var req equipmentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	current, _ := auth.AccountFromContext(r.Context())
	item, err := h.catalog.CreateEquipment(r.Context(), current, req.Name)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, item)
}
