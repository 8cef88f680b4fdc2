package api

import (
	"encoding/json"
	"net/http"

	"github.com/erazemk/zaloga/internal/inventory"
	"github.com/erazemk/zaloga/internal/metrics"
	"github.com/erazemk/zaloga/internal/model"
)

// ItemsHandler handles spare part and machine CRUD endpoints.
type ItemsHandler struct {
	Service *inventory.Service
	Metrics *metrics.Metrics
}

// itemRequest.Quantity accepts a number or a string; anything unparsable
// becomes 0.
type itemRequest struct {
	ImageURL     string          `json:"image_url"`
	Name         string          `json:"name"`
	SerialNumber string          `json:"serial_number"`
	Quantity     json.RawMessage `json:"quantity"`
}

func (req itemRequest) form() inventory.Form {
	f := inventory.Form{
		ImageURL:     req.ImageURL,
		Name:         req.Name,
		SerialNumber: req.SerialNumber,
		Quantity:     "0",
	}
	var s string
	switch {
	case len(req.Quantity) == 0:
	case json.Unmarshal(req.Quantity, &s) == nil:
		f.Quantity = s
	default:
		f.Quantity = string(req.Quantity)
	}
	return f
}

type listResponse struct {
	Items    []model.Item `json:"items"`
	LowStock []model.Item `json:"low_stock"`
}

func pathKind(w http.ResponseWriter, r *http.Request) (model.Kind, bool) {
	kind, err := model.ParseKind(r.PathValue("kind"))
	if err != nil {
		jsonError(w, http.StatusNotFound, "unknown catalog")
		return "", false
	}
	return kind, true
}

// List handles GET /api/{kind}.
func (h *ItemsHandler) List(w http.ResponseWriter, r *http.Request) {
	kind, ok := pathKind(w, r)
	if !ok {
		return
	}

	items, err := h.Service.List(r.Context(), kind)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to list items")
		return
	}

	low := h.Service.LowStock(items)
	if low == nil {
		low = []model.Item{}
	}
	jsonResponse(w, http.StatusOK, listResponse{Items: items, LowStock: low})
}

// Get handles GET /api/{kind}/{id}.
func (h *ItemsHandler) Get(w http.ResponseWriter, r *http.Request) {
	kind, ok := pathKind(w, r)
	if !ok {
		return
	}

	item, err := h.Service.Get(r.Context(), kind, r.PathValue("id"))
	if err != nil {
		serviceError(w, err, "failed to get item")
		return
	}
	jsonResponse(w, http.StatusOK, item)
}

// Create handles POST /api/{kind}.
func (h *ItemsHandler) Create(w http.ResponseWriter, r *http.Request) {
	kind, ok := pathKind(w, r)
	if !ok {
		return
	}

	var req itemRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	item, err := inventory.NewEditor(kind, nil).Submit(r.Context(), h.Service, req.form())
	h.Metrics.Write(string(kind), "create", err)
	if err != nil {
		serviceError(w, err, "failed to create item")
		return
	}

	jsonResponse(w, http.StatusCreated, item)
}

// Update handles PUT /api/{kind}/{id}.
func (h *ItemsHandler) Update(w http.ResponseWriter, r *http.Request) {
	kind, ok := pathKind(w, r)
	if !ok {
		return
	}

	var req itemRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	target := &model.Item{ID: r.PathValue("id"), Kind: kind}
	item, err := inventory.NewEditor(kind, target).Submit(r.Context(), h.Service, req.form())
	h.Metrics.Write(string(kind), "update", err)
	if err != nil {
		serviceError(w, err, "failed to update item")
		return
	}

	jsonResponse(w, http.StatusOK, item)
}

// Delete handles DELETE /api/{kind}/{id}?confirm=true.
func (h *ItemsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	kind, ok := pathKind(w, r)
	if !ok {
		return
	}

	confirmed := r.URL.Query().Get("confirm") == "true"
	err := h.Service.Delete(r.Context(), kind, r.PathValue("id"), confirmed)
	if confirmed {
		h.Metrics.Write(string(kind), "delete", err)
	}
	if err != nil {
		serviceError(w, err, "failed to delete item")
		return
	}

	jsonResponse(w, http.StatusOK, map[string]string{"message": "item deleted"})
}
