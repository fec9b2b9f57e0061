package httpx

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/growthfarm/market-api/internal/farms"
	"github.com/growthfarm/market-api/internal/market"
)

type FarmService interface {
	List(ctx context.Context, caller market.Caller, offset, limit int) ([]farms.Farm, error)
	Get(ctx context.Context, caller market.Caller, id int64) (farms.Farm, error)
	Create(ctx context.Context, caller market.Caller, in farms.NewFarm) (farms.Farm, error)
	Update(ctx context.Context, caller market.Caller, id int64, p farms.Patch) (farms.Farm, error)
	Delete(ctx context.Context, caller market.Caller, id int64) error
	Zones(ctx context.Context, caller market.Caller, farmID int64) ([]farms.Zone, error)
	CreateZone(ctx context.Context, caller market.Caller, farmID int64, in farms.NewZone) (farms.Zone, error)
	Plantings(ctx context.Context, caller market.Caller, farmID, zoneID int64) ([]farms.Planting, error)
	CreatePlanting(ctx context.Context, caller market.Caller, farmID, zoneID int64, in farms.NewPlanting) (farms.Planting, error)
	Dashboard(ctx context.Context, caller market.Caller, farmID int64) (farms.Dashboard, error)
}

type FarmsHandler struct {
	Farms FarmService
	Log   zerolog.Logger
}

func (h *FarmsHandler) Register(r chi.Router) {
	r.Get("/farms", h.list)
	r.Post("/farms", h.create)
	r.Get("/farms/{id}", h.get)
	r.Put("/farms/{id}", h.update)
	r.Delete("/farms/{id}", h.delete)
	r.Get("/farms/{id}/dashboard", h.dashboard)
	r.Get("/farms/{id}/zones", h.zones)
	r.Post("/farms/{id}/zones", h.createZone)
	r.Get("/farms/{id}/zones/{zoneID}/plantings", h.plantings)
	r.Post("/farms/{id}/zones/{zoneID}/plantings", h.createPlanting)
}

func (h *FarmsHandler) list(w http.ResponseWriter, r *http.Request) {
	var offset, limit int
	q := r.URL.Query()
	for name, dst := range map[string]*int{"skip": &offset, "limit": &limit} {
		if v := q.Get(name); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				badRequest(w, "invalid query parameter")
				return
			}
			*dst = n
		}
	}
	caller, _ := CallerFrom(r.Context())
	fs, err := h.Farms.List(r.Context(), caller, offset, limit)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, fs)
}

func (h *FarmsHandler) create(w http.ResponseWriter, r *http.Request) {
	var in farms.NewFarm
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		badRequest(w, "invalid json")
		return
	}
	caller, _ := CallerFrom(r.Context())
	f, err := h.Farms.Create(r.Context(), caller, in)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusCreated, f)
}

func (h *FarmsHandler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	caller, _ := CallerFrom(r.Context())
	f, err := h.Farms.Get(r.Context(), caller, id)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, f)
}

func (h *FarmsHandler) update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var patch farms.Patch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		badRequest(w, "invalid json")
		return
	}
	caller, _ := CallerFrom(r.Context())
	f, err := h.Farms.Update(r.Context(), caller, id, patch)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, f)
}

func (h *FarmsHandler) delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	caller, _ := CallerFrom(r.Context())
	if err := h.Farms.Delete(r.Context(), caller, id); err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *FarmsHandler) dashboard(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	caller, _ := CallerFrom(r.Context())
	d, err := h.Farms.Dashboard(r.Context(), caller, id)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (h *FarmsHandler) zones(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	caller, _ := CallerFrom(r.Context())
	zs, err := h.Farms.Zones(r.Context(), caller, id)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, zs)
}

func (h *FarmsHandler) createZone(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var in farms.NewZone
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		badRequest(w, "invalid json")
		return
	}
	caller, _ := CallerFrom(r.Context())
	z, err := h.Farms.CreateZone(r.Context(), caller, id, in)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusCreated, z)
}

func (h *FarmsHandler) plantings(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	zoneID, ok := pathInt(w, r, "zoneID")
	if !ok {
		return
	}
	caller, _ := CallerFrom(r.Context())
	ps, err := h.Farms.Plantings(r.Context(), caller, id, zoneID)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, ps)
}

func (h *FarmsHandler) createPlanting(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	zoneID, ok := pathInt(w, r, "zoneID")
	if !ok {
		return
	}
	var in farms.NewPlanting
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		badRequest(w, "invalid json")
		return
	}
	caller, _ := CallerFrom(r.Context())
	p, err := h.Farms.CreatePlanting(r.Context(), caller, id, zoneID, in)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}
