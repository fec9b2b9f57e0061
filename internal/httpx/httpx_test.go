package httpx

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/growthfarm/market-api/internal/auth"
	"github.com/growthfarm/market-api/internal/catalog"
	"github.com/growthfarm/market-api/internal/farms"
	"github.com/growthfarm/market-api/internal/market"
	"github.com/growthfarm/market-api/internal/orders"
)

var callers = map[string]market.Caller{
	"buyer-token":  {ID: 10, Role: market.RoleBuyer},
	"farmer-token": {ID: 20, Role: market.RoleFarmer},
	"other-token":  {ID: 55, Role: market.RoleBuyer},
	"guest-token":  {ID: 30, Role: market.RoleGuest},
}

type tokenVerifier struct{}

func (tokenVerifier) Verify(token string) (market.Caller, error) {
	c, ok := callers[token]
	if !ok {
		return market.Caller{}, auth.ErrInvalidToken
	}
	return c, nil
}

type fakeOrders struct {
	placed    int
	placeErr  error
	byID      map[int64]orders.Order
	lastInput orders.PlaceOrderInput
}

func (f *fakeOrders) PlaceOrder(_ context.Context, c market.Caller, in orders.PlaceOrderInput) (orders.Order, error) {
	f.lastInput = in
	if f.placeErr != nil {
		return orders.Order{}, f.placeErr
	}
	if c.Role == market.RoleGuest {
		return orders.Order{}, market.ErrUnauthorized
	}
	f.placed++
	o := orders.Order{
		ID: int64(100 + f.placed), OrderNumber: "AB12CD34", BuyerID: c.ID, SellerID: 20,
		TotalAmount: decimal.RequireFromString("31.50"), Status: orders.StatusPending,
	}
	f.byID[o.ID] = o
	return o, nil
}

func (f *fakeOrders) UpdateOrderStatus(_ context.Context, c market.Caller, id int64, s orders.Status) (orders.Order, error) {
	o, ok := f.byID[id]
	if !ok {
		return orders.Order{}, market.ErrNotFound
	}
	if o.SellerID != c.ID {
		return orders.Order{}, market.ErrUnauthorized
	}
	if !s.Valid() {
		return orders.Order{}, market.ErrInvalidRequest
	}
	o.Status = s
	f.byID[id] = o
	return o, nil
}

func (f *fakeOrders) GetOrder(_ context.Context, c market.Caller, id int64) (orders.Order, error) {
	o, ok := f.byID[id]
	if !ok {
		return orders.Order{}, market.ErrNotFound
	}
	return o, orders.CanView(c, o)
}

func (f *fakeOrders) ListOrders(_ context.Context, c market.Caller) ([]orders.Order, error) {
	out := []orders.Order{}
	for _, o := range f.byID {
		if o.BuyerID == c.ID || o.SellerID == c.ID {
			out = append(out, o)
		}
	}
	return out, nil
}

type memCache struct {
	idem        map[string]int64
	orders      map[int64]orders.Order
	invalidated []int64
	fail        bool
}

func newMemCache() *memCache {
	return &memCache{idem: map[string]int64{}, orders: map[int64]orders.Order{}}
}

var errCacheDown = errors.New("redis down")

func (c *memCache) IdempotentOrder(_ context.Context, callerID int64, key string) (int64, bool, error) {
	if c.fail {
		return 0, false, errCacheDown
	}
	id, ok := c.idem[fmt.Sprint(callerID, key)]
	return id, ok, nil
}

func (c *memCache) RememberIdempotent(_ context.Context, callerID int64, key string, orderID int64) error {
	if c.fail {
		return errCacheDown
	}
	c.idem[fmt.Sprint(callerID, key)] = orderID
	return nil
}

func (c *memCache) CachedOrder(_ context.Context, id int64) (orders.Order, bool, error) {
	if c.fail {
		return orders.Order{}, false, errCacheDown
	}
	o, ok := c.orders[id]
	return o, ok, nil
}

func (c *memCache) StoreOrder(_ context.Context, o orders.Order) error {
	if c.fail {
		return errCacheDown
	}
	c.orders[o.ID] = o
	return nil
}

func (c *memCache) InvalidateOrder(_ context.Context, id int64) error {
	c.invalidated = append(c.invalidated, id)
	delete(c.orders, id)
	return nil
}

type stubCatalog struct{ lastFilter catalog.Filter }

func (s *stubCatalog) List(_ context.Context, f catalog.Filter) ([]market.Product, error) {
	s.lastFilter = f
	return []market.Product{{ID: 1, Name: "Tomato"}}, nil
}
func (s *stubCatalog) Get(_ context.Context, id int64) (market.Product, error) {
	if id != 1 {
		return market.Product{}, market.ErrNotFound
	}
	return market.Product{ID: 1, Name: "Tomato"}, nil
}
func (s *stubCatalog) Create(_ context.Context, c market.Caller, in catalog.NewProduct) (market.Product, error) {
	if c.Role != market.RoleFarmer {
		return market.Product{}, market.ErrUnauthorized
	}
	return market.Product{ID: 2, SellerID: c.ID, Name: in.Name}, nil
}
func (s *stubCatalog) Update(_ context.Context, _ market.Caller, id int64, p catalog.Patch) (market.Product, error) {
	return p.Apply(market.Product{ID: id, Name: "Tomato"}), nil
}
func (s *stubCatalog) Deactivate(context.Context, market.Caller, int64) error { return nil }
func (s *stubCatalog) Mine(_ context.Context, c market.Caller) ([]market.Product, error) {
	return []market.Product{{ID: 1, SellerID: c.ID}}, nil
}
func (s *stubCatalog) Categories(context.Context) ([]string, error) {
	return []string{"fruit", "vegetables"}, nil
}

type stubFarms struct{ lastOffset, lastLimit int }

// stubFarms knows farm 1 with zone 3, both owned by the farmer token.
func (s *stubFarms) farm(c market.Caller, id int64) (farms.Farm, error) {
	if id != 1 {
		return farms.Farm{}, market.ErrNotFound
	}
	if c.ID != 20 {
		return farms.Farm{}, market.ErrUnauthorized
	}
	return farms.Farm{ID: 1, OwnerID: 20, Name: "North field"}, nil
}
func (s *stubFarms) List(_ context.Context, c market.Caller, offset, limit int) ([]farms.Farm, error) {
	s.lastOffset, s.lastLimit = offset, limit
	return []farms.Farm{{ID: 1, OwnerID: c.ID}}, nil
}
func (s *stubFarms) Get(_ context.Context, c market.Caller, id int64) (farms.Farm, error) {
	return s.farm(c, id)
}
func (s *stubFarms) Create(_ context.Context, c market.Caller, in farms.NewFarm) (farms.Farm, error) {
	if c.Role != market.RoleFarmer {
		return farms.Farm{}, market.ErrUnauthorized
	}
	return farms.Farm{ID: 2, OwnerID: c.ID, Name: in.Name}, nil
}
func (s *stubFarms) Update(_ context.Context, c market.Caller, id int64, p farms.Patch) (farms.Farm, error) {
	f, err := s.farm(c, id)
	return p.Apply(f), err
}
func (s *stubFarms) Delete(_ context.Context, c market.Caller, id int64) error {
	_, err := s.farm(c, id)
	return err
}
func (s *stubFarms) Zones(_ context.Context, c market.Caller, farmID int64) ([]farms.Zone, error) {
	if _, err := s.farm(c, farmID); err != nil {
		return nil, err
	}
	return []farms.Zone{{ID: 3, FarmID: farmID, Name: "Bed A", Code: "A1"}}, nil
}
func (s *stubFarms) CreateZone(_ context.Context, c market.Caller, farmID int64, in farms.NewZone) (farms.Zone, error) {
	if _, err := s.farm(c, farmID); err != nil {
		return farms.Zone{}, err
	}
	return farms.Zone{ID: 4, FarmID: farmID, Name: in.Name, Code: in.Code}, nil
}
func (s *stubFarms) Plantings(_ context.Context, c market.Caller, farmID, zoneID int64) ([]farms.Planting, error) {
	if _, err := s.farm(c, farmID); err != nil {
		return nil, err
	}
	if zoneID != 3 {
		return nil, market.ErrNotFound
	}
	return []farms.Planting{{ID: 5, ZoneID: zoneID, CropName: "Kale"}}, nil
}
func (s *stubFarms) CreatePlanting(_ context.Context, c market.Caller, farmID, zoneID int64, in farms.NewPlanting) (farms.Planting, error) {
	if _, err := s.farm(c, farmID); err != nil {
		return farms.Planting{}, err
	}
	if zoneID != 3 {
		return farms.Planting{}, market.ErrNotFound
	}
	return farms.Planting{ID: 6, ZoneID: zoneID, CropName: in.CropName, PlantingDate: in.PlantingDate}, nil
}
func (s *stubFarms) Dashboard(_ context.Context, c market.Caller, farmID int64) (farms.Dashboard, error) {
	f, err := s.farm(c, farmID)
	if err != nil {
		return farms.Dashboard{}, err
	}
	return farms.Dashboard{Farm: f, Stats: farms.Stats{ZonesCount: 1}, RecentActivity: "Farm has 1 zones and 0 active plantings"}, nil
}

type stubAuth struct{}

func (stubAuth) Register(_ context.Context, in auth.Registration) (auth.User, error) {
	if in.Role == market.RoleAdmin {
		return auth.User{}, market.ErrInvalidRequest
	}
	return auth.User{ID: 1, Username: in.Username, Role: in.Role}, nil
}
func (stubAuth) Login(_ context.Context, login, password string) (auth.Session, error) {
	if password != "hunter22" {
		return auth.Session{}, auth.ErrBadCredentials
	}
	return auth.Session{Token: "buyer-token", TokenType: "bearer"}, nil
}

type harness struct {
	router  *chi.Mux
	orders  *fakeOrders
	cache   *memCache
	catalog *stubCatalog
	farms   *stubFarms
}

func newHarness(t *testing.T, limiter *RateLimiter) *harness {
	t.Helper()
	h := &harness{
		orders:  &fakeOrders{byID: map[int64]orders.Order{}},
		cache:   newMemCache(),
		catalog: &stubCatalog{},
		farms:   &stubFarms{},
	}
	log := zerolog.Nop()
	h.router = NewRouter(log, nil)
	API{
		Auth:     &AuthHandler{Auth: stubAuth{}, Log: log},
		Products: &ProductsHandler{Catalog: h.catalog, Log: log},
		Orders:   &OrdersHandler{Orders: h.orders, Cache: h.cache, Limiter: limiter, Log: log},
		Farms:    &FarmsHandler{Farms: h.farms, Log: log},
		Verifier: tokenVerifier{},
	}.Mount(h.router)
	return h
}

func (h *harness) do(method, path, token, body string, headers ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, req)
	return rec
}

const orderBody = `{"items":[{"product_id":1,"quantity":3}],"payment_method":"cash","shipping_cost":1.50}`

func TestPlaceOrder_Created(t *testing.T) {
	h := newHarness(t, nil)

	rec := h.do(http.MethodPost, "/orders", "buyer-token", orderBody)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"total_amount":"31.5"`)
	assert.True(t, h.orders.lastInput.ShippingCost.Equal(decimal.RequireFromString("1.5")))
	assert.Contains(t, h.cache.orders, int64(101))
}

func TestPlaceOrder_NeedsToken(t *testing.T) {
	h := newHarness(t, nil)

	assert.Equal(t, http.StatusUnauthorized, h.do(http.MethodPost, "/orders", "", orderBody).Code)
	assert.Equal(t, http.StatusUnauthorized, h.do(http.MethodPost, "/orders", "forged", orderBody).Code)
	assert.Zero(t, h.orders.placed)
}

func TestPlaceOrder_IdempotencyKeyReplays(t *testing.T) {
	h := newHarness(t, nil)

	first := h.do(http.MethodPost, "/orders", "buyer-token", orderBody, "Idempotency-Key", "abc")
	require.Equal(t, http.StatusCreated, first.Code)
	again := h.do(http.MethodPost, "/orders", "buyer-token", orderBody, "Idempotency-Key", "abc")
	require.Equal(t, http.StatusOK, again.Code)
	assert.JSONEq(t, first.Body.String(), again.Body.String())
	assert.Equal(t, 1, h.orders.placed)

	other := h.do(http.MethodPost, "/orders", "other-token", orderBody, "Idempotency-Key", "abc")
	assert.Equal(t, http.StatusCreated, other.Code)
	assert.Equal(t, 2, h.orders.placed)
}

func TestPlaceOrder_CacheOutageDoesNotFailRequest(t *testing.T) {
	h := newHarness(t, nil)
	h.cache.fail = true

	rec := h.do(http.MethodPost, "/orders", "buyer-token", orderBody, "Idempotency-Key", "abc")
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestPlaceOrder_ErrorMapping(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		token string
		body  string
		code  int
	}{
		{"insufficient stock", fmt.Errorf("%w: tomato", market.ErrInsufficientStock), "buyer-token", orderBody, http.StatusBadRequest},
		{"invalid request", market.ErrInvalidRequest, "buyer-token", orderBody, http.StatusBadRequest},
		{"not found", market.ErrNotFound, "buyer-token", orderBody, http.StatusNotFound},
		{"storage failure", market.ErrStorageFailure, "buyer-token", orderBody, http.StatusServiceUnavailable},
		{"unknown", errors.New("kaboom"), "buyer-token", orderBody, http.StatusInternalServerError},
		{"guest", nil, "guest-token", orderBody, http.StatusForbidden},
		{"bad json", nil, "buyer-token", `{"items":`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, nil)
			h.orders.placeErr = tt.err

			rec := h.do(http.MethodPost, "/orders", tt.token, tt.body)
			assert.Equal(t, tt.code, rec.Code)
			if tt.code == http.StatusServiceUnavailable {
				assert.Equal(t, "1", rec.Header().Get("Retry-After"))
			}
			if tt.code == http.StatusInternalServerError {
				assert.NotContains(t, rec.Body.String(), "kaboom")
			}
		})
	}
}

func TestPlaceOrder_RateLimited(t *testing.T) {
	lim := NewRateLimiter(0.001, 1)
	h := newHarness(t, lim)

	assert.Equal(t, http.StatusCreated, h.do(http.MethodPost, "/orders", "buyer-token", orderBody).Code)
	rec := h.do(http.MethodPost, "/orders", "buyer-token", orderBody)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))

	// buckets are per caller
	assert.Equal(t, http.StatusCreated, h.do(http.MethodPost, "/orders", "other-token", orderBody).Code)
	assert.Equal(t, 2, h.orders.placed)
}

func TestRateLimiter_Refills(t *testing.T) {
	now := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	lim := NewRateLimiter(1, 1)
	lim.now = func() time.Time { return now }
	h := newHarness(t, lim)

	assert.Equal(t, http.StatusCreated, h.do(http.MethodPost, "/orders", "buyer-token", orderBody).Code)
	assert.Equal(t, http.StatusTooManyRequests, h.do(http.MethodPost, "/orders", "buyer-token", orderBody).Code)
	now = now.Add(time.Second)
	assert.Equal(t, http.StatusCreated, h.do(http.MethodPost, "/orders", "buyer-token", orderBody).Code)
}

func TestGetOrder_CacheAndVisibility(t *testing.T) {
	h := newHarness(t, nil)
	require.Equal(t, http.StatusCreated, h.do(http.MethodPost, "/orders", "buyer-token", orderBody).Code)

	assert.Equal(t, http.StatusOK, h.do(http.MethodGet, "/orders/101", "buyer-token", "").Code)
	assert.Equal(t, http.StatusOK, h.do(http.MethodGet, "/orders/101", "farmer-token", "").Code)
	assert.Equal(t, http.StatusForbidden, h.do(http.MethodGet, "/orders/101", "other-token", "").Code)

	delete(h.cache.orders, 101)
	assert.Equal(t, http.StatusForbidden, h.do(http.MethodGet, "/orders/101", "other-token", "").Code)
	assert.Equal(t, http.StatusOK, h.do(http.MethodGet, "/orders/101", "buyer-token", "").Code)
	assert.Contains(t, h.cache.orders, int64(101), "read-through refills the cache")

	assert.Equal(t, http.StatusNotFound, h.do(http.MethodGet, "/orders/999", "buyer-token", "").Code)
	assert.Equal(t, http.StatusBadRequest, h.do(http.MethodGet, "/orders/abc", "buyer-token", "").Code)
}

func TestUpdateStatus(t *testing.T) {
	h := newHarness(t, nil)
	require.Equal(t, http.StatusCreated, h.do(http.MethodPost, "/orders", "buyer-token", orderBody).Code)

	rec := h.do(http.MethodPut, "/orders/101/status", "farmer-token", `{"status":"confirmed"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"confirmed"`)
	assert.Equal(t, []int64{101}, h.cache.invalidated)
	assert.NotContains(t, h.cache.orders, int64(101))

	assert.Equal(t, http.StatusForbidden, h.do(http.MethodPut, "/orders/101/status", "buyer-token", `{"status":"cancelled"}`).Code)
	assert.Equal(t, http.StatusBadRequest, h.do(http.MethodPut, "/orders/101/status", "farmer-token", `{"status":"lost"}`).Code)
	assert.Equal(t, http.StatusNotFound, h.do(http.MethodPut, "/orders/5/status", "farmer-token", `{"status":"confirmed"}`).Code)
}

func TestListOrders(t *testing.T) {
	h := newHarness(t, nil)
	require.Equal(t, http.StatusCreated, h.do(http.MethodPost, "/orders", "buyer-token", orderBody).Code)

	rec := h.do(http.MethodGet, "/orders", "farmer-token", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"order_number":"AB12CD34"`)

	rec = h.do(http.MethodGet, "/orders", "other-token", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestProductsRoutes(t *testing.T) {
	h := newHarness(t, nil)

	rec := h.do(http.MethodGet, "/products?category=fruit&min_price=1.5&organic_only=true&skip=10&limit=20", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	f := h.catalog.lastFilter
	assert.Equal(t, "fruit", f.Category)
	require.NotNil(t, f.MinPrice)
	assert.True(t, f.MinPrice.Equal(decimal.RequireFromString("1.5")))
	assert.Nil(t, f.MaxPrice)
	assert.True(t, f.OrganicOnly)
	assert.Equal(t, 10, f.Offset)
	assert.Equal(t, 20, f.Limit)

	assert.Equal(t, http.StatusBadRequest, h.do(http.MethodGet, "/products?min_price=cheap", "", "").Code)
	assert.Equal(t, http.StatusOK, h.do(http.MethodGet, "/products/1", "", "").Code)
	assert.Equal(t, http.StatusNotFound, h.do(http.MethodGet, "/products/2", "", "").Code)
	assert.JSONEq(t, `{"categories":["fruit","vegetables"]}`, h.do(http.MethodGet, "/products/categories", "", "").Body.String())

	assert.Equal(t, http.StatusUnauthorized, h.do(http.MethodGet, "/products/mine", "", "").Code)
	assert.Equal(t, http.StatusOK, h.do(http.MethodGet, "/products/mine", "farmer-token", "").Code)

	assert.Equal(t, http.StatusCreated, h.do(http.MethodPost, "/products", "farmer-token", `{"name":"Kale","price":"2.00"}`).Code)
	assert.Equal(t, http.StatusForbidden, h.do(http.MethodPost, "/products", "buyer-token", `{"name":"Kale","price":"2.00"}`).Code)

	rec = h.do(http.MethodPatch, "/products/1", "farmer-token", `{"name":"Roma"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"name":"Roma"`)

	assert.Equal(t, http.StatusNoContent, h.do(http.MethodDelete, "/products/1", "farmer-token", "").Code)
}

func TestAuthRoutes(t *testing.T) {
	h := newHarness(t, nil)

	assert.Equal(t, http.StatusCreated, h.do(http.MethodPost, "/auth/register", "", `{"username":"sari","email":"s@f.id","password":"hunter22","role":"farmer"}`).Code)
	assert.Equal(t, http.StatusBadRequest, h.do(http.MethodPost, "/auth/register", "", `{"username":"root","role":"admin"}`).Code)

	rec := h.do(http.MethodPost, "/auth/login", "", `{"username":"sari","password":"hunter22"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"access_token":"buyer-token"`)

	assert.Equal(t, http.StatusUnauthorized, h.do(http.MethodPost, "/auth/login", "", `{"username":"sari","password":"nope"}`).Code)
}

func TestFarmsRoutes(t *testing.T) {
	h := newHarness(t, nil)

	assert.Equal(t, http.StatusUnauthorized, h.do(http.MethodGet, "/farms", "", "").Code)
	require.Equal(t, http.StatusOK, h.do(http.MethodGet, "/farms?skip=5&limit=7", "farmer-token", "").Code)
	assert.Equal(t, 5, h.farms.lastOffset)
	assert.Equal(t, 7, h.farms.lastLimit)
	assert.Equal(t, http.StatusBadRequest, h.do(http.MethodGet, "/farms?limit=many", "farmer-token", "").Code)

	assert.Equal(t, http.StatusCreated, h.do(http.MethodPost, "/farms", "farmer-token", `{"name":"Hillside","latitude":"-6.2","established_date":"2019-03-01"}`).Code)
	assert.Equal(t, http.StatusForbidden, h.do(http.MethodPost, "/farms", "buyer-token", `{"name":"Hillside"}`).Code)
	assert.Equal(t, http.StatusBadRequest, h.do(http.MethodPost, "/farms", "farmer-token", `{"name":`).Code)

	assert.Equal(t, http.StatusOK, h.do(http.MethodGet, "/farms/1", "farmer-token", "").Code)
	assert.Equal(t, http.StatusForbidden, h.do(http.MethodGet, "/farms/1", "other-token", "").Code)
	assert.Equal(t, http.StatusNotFound, h.do(http.MethodGet, "/farms/9", "farmer-token", "").Code)
	assert.Equal(t, http.StatusBadRequest, h.do(http.MethodGet, "/farms/x", "farmer-token", "").Code)

	rec := h.do(http.MethodPut, "/farms/1", "farmer-token", `{"address":"Ridge road"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"address":"Ridge road"`)
	assert.Contains(t, rec.Body.String(), `"name":"North field"`)

	assert.Equal(t, http.StatusNoContent, h.do(http.MethodDelete, "/farms/1", "farmer-token", "").Code)

	rec = h.do(http.MethodGet, "/farms/1/zones", "farmer-token", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"zone_code":"A1"`)
	assert.Equal(t, http.StatusCreated, h.do(http.MethodPost, "/farms/1/zones", "farmer-token", `{"zone_name":"Bed B","zone_code":"B1"}`).Code)

	assert.Equal(t, http.StatusOK, h.do(http.MethodGet, "/farms/1/zones/3/plantings", "farmer-token", "").Code)
	assert.Equal(t, http.StatusNotFound, h.do(http.MethodGet, "/farms/1/zones/8/plantings", "farmer-token", "").Code)
	assert.Equal(t, http.StatusBadRequest, h.do(http.MethodGet, "/farms/1/zones/x/plantings", "farmer-token", "").Code)
	rec = h.do(http.MethodPost, "/farms/1/zones/3/plantings", "farmer-token", `{"crop_name":"Kale","planting_date":"2024-04-01"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), `"planting_date":"2024-04-01"`)

	rec = h.do(http.MethodGet, "/farms/1/dashboard", "farmer-token", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"farm_info":{`)
	assert.Contains(t, rec.Body.String(), `"zones_count":1`)
}

func TestHealthz(t *testing.T) {
	ok := NewRouter(zerolog.Nop(), func(context.Context) error { return nil })
	rec := httptest.NewRecorder()
	ok.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	down := NewRouter(zerolog.Nop(), func(context.Context) error { return errors.New("pg down") })
	rec = httptest.NewRecorder()
	down.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
