package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"saborlimeno/gorest/models"
	"saborlimeno/gorest/services"
	"saborlimeno/gorest/store"
)

type testEnv struct {
	api    *API
	h      http.Handler
	signer *services.ReceiptSigner
	admin  string
	client string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()
	st := store.NewMemory()
	identity := services.NewIdentity(st, store.NewMemorySessions())
	catalog := services.NewCatalog(st)
	_, err := catalog.SeedMenu(ctx)
	require.NoError(t, err)

	signer := services.NewReceiptSigner("test-secret", "http://localhost:8080")
	orders := services.NewOrders(st, nil)
	api := &API{
		Identity:      identity,
		Catalog:       catalog,
		Orders:        orders,
		Payments:      services.NewPayments(st, services.OfflineGateway{}, signer, nil),
		Reports:       services.NewReports(st),
		TrackInterval: 10 * time.Millisecond,
	}

	_, _, err = identity.EnsureAdmin(ctx, services.RegisterInput{Name: "Admin", Email: "admin@saborlimeno.com", Password: "admin123"})
	require.NoError(t, err)
	_, err = identity.Register(ctx, services.RegisterInput{Name: "Ana", Email: "ana@correo.pe", Password: "clave"})
	require.NoError(t, err)

	env := &testEnv{api: api, h: api.Router(), signer: signer}
	env.admin = env.login(t, "admin@saborlimeno.com", "admin123")
	env.client = env.login(t, "ana@correo.pe", "clave")
	return env
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.h.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) login(t *testing.T, email, password string) string {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"email": email, "password": password})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp loginResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.Token
}

func (e *testEnv) placeOrder(t *testing.T, token string) int {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/api/orders", token, map[string]any{
		"items":           []map[string]int{{"productId": 4, "quantity": 2}},
		"paymentMethod":   "efectivo",
		"deliveryAddress": "Av. Arequipa 456",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var resp struct {
		OrderID int              `json:"orderId"`
		Pedido  models.OrderView `json:"pedido"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, resp.OrderID, resp.Pedido.ID)
	return resp.OrderID
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestWelcomeAndUnknownRoute(t *testing.T) {
	e := newTestEnv(t)

	rec := e.do(t, http.MethodGet, "/", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Sabor Limeño")

	rec = e.do(t, http.MethodGet, "/api/nada", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAuthEndpoints(t *testing.T) {
	e := newTestEnv(t)

	rec := e.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{"nombre": "Luis", "email": "luis@correo.pe", "password": "x"})
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.NotContains(t, rec.Body.String(), "password")

	rec = e.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{"nombre": "Luis", "email": "LUIS@correo.pe", "password": "x"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = e.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{"email": "sin@nombre.pe", "password": "x"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = e.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"email": "luis@correo.pe", "password": "mala"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	token := e.login(t, "luis@correo.pe", "x")
	rec = e.do(t, http.MethodGet, "/api/auth/me", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	me := decodeBody[models.User](t, rec)
	assert.Equal(t, "Luis", me.Name)
	assert.Equal(t, models.CategoryNew, me.Category)

	rec = e.do(t, http.MethodPost, "/api/auth/logout", token, map[string]string{})
	require.Equal(t, http.StatusOK, rec.Code)
	rec = e.do(t, http.MethodGet, "/api/auth/me", token, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMenuEndpoints(t *testing.T) {
	e := newTestEnv(t)

	rec := e.do(t, http.MethodGet, "/api/menu", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeBody[[]models.Dish](t, rec), 10)

	assert.Equal(t, http.StatusUnauthorized, e.do(t, http.MethodGet, "/api/menu/all", "", nil).Code)
	assert.Equal(t, http.StatusForbidden, e.do(t, http.MethodGet, "/api/menu/all", e.client, nil).Code)
	rec = e.do(t, http.MethodGet, "/api/menu/all", e.admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeBody[[]models.Dish](t, rec), 13)

	rec = e.do(t, http.MethodPost, "/api/menu", e.admin, map[string]any{"name": "Papa Rellena", "price": 5990, "category": "entradas"})
	require.Equal(t, http.StatusCreated, rec.Code)
	dish := decodeBody[models.Dish](t, rec)
	assert.Equal(t, 14, dish.ID)
	assert.True(t, dish.Available)

	path := fmt.Sprintf("/api/menu/%d/availability", dish.ID)
	rec = e.do(t, http.MethodPatch, path, e.admin, map[string]bool{"disponible": false})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, decodeBody[models.Dish](t, rec).Available)
	assert.Equal(t, http.StatusBadRequest, e.do(t, http.MethodPatch, path, e.admin, map[string]string{}).Code)

	assert.Equal(t, http.StatusNotFound, e.do(t, http.MethodGet, "/api/menu/999", "", nil).Code)
}

func TestCreateOrder(t *testing.T) {
	e := newTestEnv(t)

	t.Run("guest", func(t *testing.T) {
		id := e.placeOrder(t, "")
		rec := e.do(t, http.MethodGet, fmt.Sprintf("/api/orders/%d", id), "", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		v := decodeBody[models.OrderView](t, rec)
		assert.Equal(t, models.StatusPending, v.Status)
		assert.Equal(t, models.GuestName, v.ClientName)
		assert.Equal(t, int64(25980), v.TotalAmount)
	})

	t.Run("bad token is rejected, not treated as guest", func(t *testing.T) {
		rec := e.do(t, http.MethodPost, "/api/orders", "forged", map[string]any{"items": []map[string]int{{"productId": 1, "quantity": 1}}})
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("empty cart", func(t *testing.T) {
		rec := e.do(t, http.MethodPost, "/api/orders", e.client, map[string]any{"items": []map[string]int{{"productId": 5, "quantity": 1}}})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("wrong content type", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/orders", strings.NewReader(`{"items":[]}`))
		req.Header.Set("Content-Type", "text/plain")
		rec := httptest.NewRecorder()
		e.h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
	})
}

func TestMyOrdersAndLatest(t *testing.T) {
	e := newTestEnv(t)
	first := e.placeOrder(t, e.client)
	second := e.placeOrder(t, e.client)
	e.placeOrder(t, "")

	rec := e.do(t, http.MethodGet, "/api/orders/mine", e.client, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	mine := decodeBody[[]models.OrderView](t, rec)
	require.Len(t, mine, 2)
	assert.ElementsMatch(t, []int{first, second}, []int{mine[0].ID, mine[1].ID})

	rec = e.do(t, http.MethodGet, "/api/orders/latest", e.client, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, second, decodeBody[models.OrderView](t, rec).ID)

	assert.Equal(t, http.StatusForbidden, e.do(t, http.MethodGet, "/api/orders", e.client, nil).Code)
	rec = e.do(t, http.MethodGet, "/api/orders", e.admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeBody[[]models.OrderView](t, rec), 3)
}

func TestOrderStatusAndCancel(t *testing.T) {
	e := newTestEnv(t)
	id := e.placeOrder(t, e.client)
	status := fmt.Sprintf("/api/orders/%d/status", id)
	cancel := fmt.Sprintf("/api/orders/%d/cancel", id)

	assert.Equal(t, http.StatusForbidden, e.do(t, http.MethodPatch, status, e.client, map[string]string{"status": "preparando"}).Code)
	assert.Equal(t, http.StatusBadRequest, e.do(t, http.MethodPatch, status, e.admin, map[string]string{"status": "volando"}).Code)
	assert.Equal(t, http.StatusConflict, e.do(t, http.MethodPatch, status, e.admin, map[string]string{"status": "pendiente"}).Code)

	for _, s := range []string{"preparando", "completado"} {
		rec := e.do(t, http.MethodPatch, status, e.admin, map[string]string{"status": s})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	}
	rec := e.do(t, http.MethodPatch, status, e.admin, map[string]string{"status": "en_ruta", "repartidorNombre": "Carlos Rojas"})
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody[struct {
		Pedido models.OrderView `json:"pedido"`
	}](t, rec)
	assert.Equal(t, models.StatusEnRoute, body.Pedido.Status)
	assert.Equal(t, "Carlos Rojas", body.Pedido.Driver)

	assert.Equal(t, http.StatusConflict, e.do(t, http.MethodPost, cancel, e.client, map[string]string{}).Code)

	other := e.placeOrder(t, e.client)
	assert.Equal(t, http.StatusUnauthorized, e.do(t, http.MethodPost, fmt.Sprintf("/api/orders/%d/cancel", other), "", map[string]string{}).Code)
	rec = e.do(t, http.MethodPost, fmt.Sprintf("/api/orders/%d/cancel", other), e.client, map[string]string{})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"anulado"`)
}

func TestPaymentAndReceipt(t *testing.T) {
	e := newTestEnv(t)
	id := e.placeOrder(t, e.client)

	rec := e.do(t, http.MethodPost, "/api/payments", "", map[string]any{"order_id": id, "metodo": "yape"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	paid := decodeBody[paymentResponse](t, rec)
	assert.Equal(t, int64(25980), paid.Payment.Amount)
	assert.Equal(t, "Ana", paid.Receipt.ClientName)

	assert.Equal(t, http.StatusConflict, e.do(t, http.MethodPost, "/api/payments", "", map[string]any{"order_id": id, "metodo": "yape"}).Code)
	assert.Equal(t, http.StatusNotFound, e.do(t, http.MethodPost, "/api/payments", "", map[string]any{"order_id": 999, "metodo": "yape"}).Code)

	rec = e.do(t, http.MethodGet, fmt.Sprintf("/api/orders/%d", id), "", nil)
	v := decodeBody[models.OrderView](t, rec)
	assert.True(t, v.Paid)
	assert.Equal(t, paid.Receipt.ID, v.ReceiptID)

	rec = e.do(t, http.MethodGet, fmt.Sprintf("/api/orders/%d/receipt", id), "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, paid.Receipt.ID, decodeBody[models.Receipt](t, rec).ID)

	rec = e.do(t, http.MethodGet, fmt.Sprintf("/api/orders/%d/receipt/qr", id), "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))

	link, err := e.signer.VerifyURL(paid.Receipt)
	require.NoError(t, err)
	rec = e.do(t, http.MethodGet, strings.TrimPrefix(link, "http://localhost:8080"), "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"valid":true`)

	assert.Equal(t, http.StatusUnauthorized, e.do(t, http.MethodGet, "/api/receipts/verify?token=abc", "", nil).Code)
	assert.Equal(t, http.StatusBadRequest, e.do(t, http.MethodGet, "/api/receipts/verify", "", nil).Code)
}

func TestReportsAndAdminUsers(t *testing.T) {
	e := newTestEnv(t)
	e.placeOrder(t, e.client)

	assert.Equal(t, http.StatusUnauthorized, e.do(t, http.MethodGet, "/api/reports/ventas", "", nil).Code)
	assert.Equal(t, http.StatusForbidden, e.do(t, http.MethodGet, "/api/reports/ventas", e.client, nil).Code)

	rec := e.do(t, http.MethodGet, "/api/reports/ventas", e.admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"total_ventas":25980,"cantidad_pedidos":1}`, rec.Body.String())

	rec = e.do(t, http.MethodGet, "/api/reports/dashboard", e.admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	d := decodeBody[models.Dashboard](t, rec)
	assert.Equal(t, int64(1), d.ActiveOrders)
	assert.Equal(t, int64(1), d.ClientsByCategory[models.CategoryNew])

	rec = e.do(t, http.MethodGet, "/api/admin/users", e.admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	users := decodeBody[[]models.User](t, rec)
	require.Len(t, users, 2)

	rec = e.do(t, http.MethodPatch, "/api/admin/users/2", e.admin, map[string]string{"categoria": "vip"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.CategoryVIP, decodeBody[models.User](t, rec).Category)
	assert.Equal(t, http.StatusBadRequest, e.do(t, http.MethodPatch, "/api/admin/users/2", e.admin, map[string]string{"categoria": "oro"}).Code)
}

func TestNotifications(t *testing.T) {
	e := newTestEnv(t)

	rec := e.do(t, http.MethodPost, "/api/notifications", "", map[string]string{"email": "ana@correo.pe"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"message":"Notificación enviada a ana@correo.pe"}`, rec.Body.String())

	assert.Equal(t, http.StatusBadRequest, e.do(t, http.MethodPost, "/api/notifications", "", map[string]string{"email": ""}).Code)
}

func TestTrackOrderSocket(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	id := e.placeOrder(t, "")

	srv := httptest.NewServer(e.h)
	defer srv.Close()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + fmt.Sprintf("/api/orders/%d/track", id)

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	var v models.OrderView
	require.NoError(t, conn.ReadJSON(&v))
	assert.Equal(t, models.StatusPending, v.Status)

	_, err = e.api.Orders.MarkPreparing(ctx, id)
	require.NoError(t, err)
	_, err = e.api.Orders.MarkReady(ctx, id)
	require.NoError(t, err)
	_, err = e.api.Orders.Dispatch(ctx, id, "Lucía Torres")
	require.NoError(t, err)
	_, err = e.api.Orders.Deliver(ctx, id)
	require.NoError(t, err)

	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	for v.Status != models.StatusDelivered {
		require.NoError(t, conn.ReadJSON(&v))
	}
	assert.Equal(t, "Lucía Torres", v.Driver)

	_, _, err = conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "got %v", err)

	rec := e.do(t, http.MethodGet, "/api/orders/999/track", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestBodilessCommands(t *testing.T) {
	e := newTestEnv(t)
	id := e.placeOrder(t, e.client)
	cancel := fmt.Sprintf("/api/orders/%d/cancel", id)

	assert.Equal(t, http.StatusUnauthorized, e.do(t, http.MethodPost, cancel, "", nil).Code)

	rec := e.do(t, http.MethodPost, cancel, e.client, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"status":"anulado"`)

	rec = e.do(t, http.MethodPost, "/api/auth/logout", e.client, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, http.StatusUnauthorized, e.do(t, http.MethodGet, "/api/auth/me", e.client, nil).Code)

	// routes that read a body still insist on one
	status := fmt.Sprintf("/api/orders/%d/status", e.placeOrder(t, ""))
	assert.Equal(t, http.StatusUnsupportedMediaType, e.do(t, http.MethodPatch, status, e.admin, nil).Code)
}

func TestCORSOrigins(t *testing.T) {
	e := newTestEnv(t)

	preflight := func(h http.Handler, origin string) http.Header {
		req := httptest.NewRequest(http.MethodOptions, "/api/orders", nil)
		req.Header.Set("Origin", origin)
		req.Header.Set("Access-Control-Request-Method", http.MethodPost)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Header()
	}

	open := preflight(e.h, "https://cualquiera.pe")
	assert.NotEmpty(t, open.Get("Access-Control-Allow-Origin"))
	assert.Empty(t, open.Get("Access-Control-Allow-Credentials"))

	e.api.AllowedOrigins = []string{"https://saborlimeno.pe"}
	h := e.api.Router()

	allowed := preflight(h, "https://saborlimeno.pe")
	assert.Equal(t, "https://saborlimeno.pe", allowed.Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", allowed.Get("Access-Control-Allow-Credentials"))

	denied := preflight(h, "https://evil.example")
	assert.Empty(t, denied.Get("Access-Control-Allow-Origin"))
}

func TestCreateOrder_HugeQuantityRejected(t *testing.T) {
	e := newTestEnv(t)

	rec := e.do(t, http.MethodPost, "/api/orders", "", map[string]any{
		"items": []map[string]int64{{"productId": 1, "quantity": 1_000_000_000_000_000}},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = e.do(t, http.MethodGet, "/api/reports/ventas", e.admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"total_ventas":0,"cantidad_pedidos":0}`, rec.Body.String())
}
