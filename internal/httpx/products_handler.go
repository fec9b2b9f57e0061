package httpx

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/growthfarm/market-api/internal/catalog"
	"github.com/growthfarm/market-api/internal/market"
)

type CatalogService interface {
	List(ctx context.Context, f catalog.Filter) ([]market.Product, error)
	Get(ctx context.Context, id int64) (market.Product, error)
	Create(ctx context.Context, caller market.Caller, in catalog.NewProduct) (market.Product, error)
	Update(ctx context.Context, caller market.Caller, id int64, p catalog.Patch) (market.Product, error)
	Deactivate(ctx context.Context, caller market.Caller, id int64) error
	Mine(ctx context.Context, caller market.Caller) ([]market.Product, error)
	Categories(ctx context.Context) ([]string, error)
}

type ProductsHandler struct {
	Catalog CatalogService
	Log     zerolog.Logger
}

func (h *ProductsHandler) RegisterPublic(r chi.Router) {
	r.Get("/products", h.list)
	r.Get("/products/categories", h.categories)
	r.Get("/products/{id}", h.get)
}

func (h *ProductsHandler) RegisterSeller(r chi.Router) {
	r.Get("/products/mine", h.mine)
	r.Post("/products", h.create)
	r.Patch("/products/{id}", h.update)
	r.Delete("/products/{id}", h.deactivate)
}

func parseFilter(r *http.Request) (catalog.Filter, bool) {
	q := r.URL.Query()
	f := catalog.Filter{Category: q.Get("category")}
	for name, dst := range map[string]**decimal.Decimal{"min_price": &f.MinPrice, "max_price": &f.MaxPrice} {
		if v := q.Get(name); v != "" {
			d, err := decimal.NewFromString(v)
			if err != nil {
				return f, false
			}
			*dst = &d
		}
	}
	for name, dst := range map[string]*int{"skip": &f.Offset, "limit": &f.Limit} {
		if v := q.Get(name); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return f, false
			}
			*dst = n
		}
	}
	if v := q.Get("organic_only"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return f, false
		}
		f.OrganicOnly = b
	}
	return f, true
}

func (h *ProductsHandler) list(w http.ResponseWriter, r *http.Request) {
	f, ok := parseFilter(r)
	if !ok {
		badRequest(w, "invalid query parameter")
		return
	}
	ps, err := h.Catalog.List(r.Context(), f)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, ps)
}

func (h *ProductsHandler) categories(w http.ResponseWriter, r *http.Request) {
	cs, err := h.Catalog.Categories(r.Context())
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]string{"categories": cs})
}

func (h *ProductsHandler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	p, err := h.Catalog.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *ProductsHandler) mine(w http.ResponseWriter, r *http.Request) {
	caller, _ := CallerFrom(r.Context())
	ps, err := h.Catalog.Mine(r.Context(), caller)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, ps)
}

func (h *ProductsHandler) create(w http.ResponseWriter, r *http.Request) {
	var in catalog.NewProduct
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		badRequest(w, "invalid json")
		return
	}
	caller, _ := CallerFrom(r.Context())
	p, err := h.Catalog.Create(r.Context(), caller, in)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (h *ProductsHandler) update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var patch catalog.Patch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		badRequest(w, "invalid json")
		return
	}
	caller, _ := CallerFrom(r.Context())
	p, err := h.Catalog.Update(r.Context(), caller, id, patch)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *ProductsHandler) deactivate(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	caller, _ := CallerFrom(r.Context())
	if err := h.Catalog.Deactivate(r.Context(), caller, id); err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
