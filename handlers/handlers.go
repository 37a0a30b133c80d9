// Package handlers exposes the ordering services over HTTP.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"slices"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"saborlimeno/gorest/logging"
	"saborlimeno/gorest/middleware"
	"saborlimeno/gorest/models"
	"saborlimeno/gorest/services"
	"saborlimeno/gorest/telem"
)

// API holds the services behind the HTTP routes.
type API struct {
	Identity *services.Identity
	Catalog  *services.Catalog
	Orders   *services.Orders
	Payments *services.Payments
	Reports  *services.Reports
	Notifier services.Notifier

	// TrackInterval is how often the tracking socket pushes the order.
	TrackInterval  time.Duration
	AllowedOrigins []string
}

func chain(h http.HandlerFunc, mws ...func(http.Handler) http.Handler) http.Handler {
	var out http.Handler = h
	for i := len(mws) - 1; i >= 0; i-- {
		out = mws[i](out)
	}
	return out
}

// Router builds the route table wrapped in CORS handling. outer middleware
// runs before routing, outermost first.
func (a *API) Router(outer ...func(http.Handler) http.Handler) http.Handler {
	r := mux.NewRouter()
	r.Use(telem.HTTPMetrics)
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		middleware.WriteError(w, http.StatusNotFound, "route not found")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		middleware.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	r.HandleFunc("/", a.welcome).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()

	guest := middleware.Authenticate(a.Identity, true)
	user := middleware.Authenticate(a.Identity, false)
	admin := middleware.RequireRole(models.RoleAdmin)
	// only routes that decode a request body check it; cancel and logout take none
	body := middleware.RequireJSON

	api.Handle("/auth/register", chain(a.register, body)).Methods(http.MethodPost)
	api.Handle("/auth/login", chain(a.login, body)).Methods(http.MethodPost)
	api.Handle("/auth/me", chain(a.me, user)).Methods(http.MethodGet)
	api.Handle("/auth/logout", chain(a.logout, user)).Methods(http.MethodPost)

	api.Handle("/menu", chain(a.listMenu)).Methods(http.MethodGet)
	api.Handle("/menu/all", chain(a.listAllDishes, user, admin)).Methods(http.MethodGet)
	api.Handle("/menu/{id:[0-9]+}", chain(a.getDish)).Methods(http.MethodGet)
	api.Handle("/menu", chain(a.createDish, user, admin, body)).Methods(http.MethodPost)
	api.Handle("/menu/{id:[0-9]+}", chain(a.updateDish, user, admin, body)).Methods(http.MethodPut)
	api.Handle("/menu/{id:[0-9]+}/availability", chain(a.setDishAvailability, user, admin, body)).Methods(http.MethodPatch)

	api.Handle("/orders", chain(a.createOrder, guest, body)).Methods(http.MethodPost)
	api.Handle("/orders", chain(a.listOrders, user, admin)).Methods(http.MethodGet)
	api.Handle("/orders/mine", chain(a.myOrders, user)).Methods(http.MethodGet)
	api.Handle("/orders/latest", chain(a.latestOrder, user)).Methods(http.MethodGet)
	api.Handle("/orders/{id:[0-9]+}", chain(a.getOrder)).Methods(http.MethodGet)
	api.Handle("/orders/{id:[0-9]+}/cancel", chain(a.cancelOrder, user)).Methods(http.MethodPost)
	api.Handle("/orders/{id:[0-9]+}/status", chain(a.updateOrderStatus, user, admin, body)).Methods(http.MethodPatch)
	api.Handle("/orders/{id:[0-9]+}/track", chain(a.trackOrder)).Methods(http.MethodGet)
	api.Handle("/orders/{id:[0-9]+}/receipt", chain(a.getReceipt)).Methods(http.MethodGet)
	api.Handle("/orders/{id:[0-9]+}/receipt/qr", chain(a.getReceiptQR)).Methods(http.MethodGet)

	api.Handle("/receipts/verify", chain(a.verifyReceipt)).Methods(http.MethodGet)
	api.Handle("/payments", chain(a.recordPayment, body)).Methods(http.MethodPost)

	api.Handle("/reports/ventas", chain(a.salesReport, user, admin)).Methods(http.MethodGet)
	api.Handle("/reports/dashboard", chain(a.dashboard, user, admin)).Methods(http.MethodGet)

	api.Handle("/admin/users", chain(a.listUsers, user, admin)).Methods(http.MethodGet)
	api.Handle("/admin/users/{id:[0-9]+}", chain(a.updateUser, user, admin, body)).Methods(http.MethodPatch)

	api.Handle("/notifications", chain(a.notify, body)).Methods(http.MethodPost)

	origins := a.origins()
	c := cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Authorization", "Content-Type", "token", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		// credentials only go to an explicit allow list
		AllowCredentials: !slices.Contains(origins, "*"),
	})

	var h http.Handler = c.Handler(r)
	for i := len(outer) - 1; i >= 0; i-- {
		h = outer[i](h)
	}
	return h
}

func (a *API) origins() []string {
	if len(a.AllowedOrigins) == 0 {
		return []string{"*"}
	}
	return a.AllowedOrigins
}

func (a *API) originAllowed(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	allowed := a.origins()
	return origin == "" || slices.Contains(allowed, "*") || slices.Contains(allowed, origin)
}

func (a *API) welcome(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": "API de Sabor Limeño funcionando"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return false
	}
	return true
}

func pathID(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil || id <= 0 {
		middleware.WriteError(w, http.StatusBadRequest, "invalid id")
		return 0, false
	}
	return id, true
}

// writeServiceError maps service errors onto HTTP statuses. Anything
// unrecognised is logged and reported as a 500.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *services.ValidationError
	switch {
	case errors.As(err, &verr):
		middleware.WriteError(w, http.StatusBadRequest, verr.Error())
	case errors.Is(err, services.ErrInvalidCart):
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, services.ErrUnauthorized), errors.Is(err, services.ErrInvalidCredentials):
		middleware.WriteError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, services.ErrPaymentDeclined):
		middleware.WriteError(w, http.StatusPaymentRequired, err.Error())
	case errors.Is(err, services.ErrForbidden):
		middleware.WriteError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, services.ErrNotFound):
		middleware.WriteError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, services.ErrInvalidTransition),
		errors.Is(err, services.ErrAlreadyPaid),
		errors.Is(err, services.ErrEmailTaken):
		middleware.WriteError(w, http.StatusConflict, err.Error())
	default:
		logging.FromContext(r.Context()).Error("request failed", "path", r.URL.Path, "error", err)
		middleware.WriteError(w, http.StatusInternalServerError, "internal server error")
	}
}
