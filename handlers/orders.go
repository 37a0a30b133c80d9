package handlers

import (
	"net/http"

	"saborlimeno/gorest/middleware"
	"saborlimeno/gorest/models"
	"saborlimeno/gorest/services"
)

type createOrderResponse struct {
	OrderID int               `json:"orderId"`
	Order   *models.OrderView `json:"pedido"`
}

type statusRequest struct {
	Status string `json:"status"`
	Driver string `json:"repartidorNombre"`
}

func (a *API) createOrder(w http.ResponseWriter, r *http.Request) {
	var in services.CreateOrderInput
	if !decode(w, r, &in) {
		return
	}
	view, err := a.Orders.Create(r.Context(), middleware.CurrentUser(r.Context()), in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, createOrderResponse{OrderID: view.ID, Order: view})
}

func (a *API) listOrders(w http.ResponseWriter, r *http.Request) {
	views, err := a.Orders.ListAll(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, views)
}

func (a *API) myOrders(w http.ResponseWriter, r *http.Request) {
	user := middleware.CurrentUser(r.Context())
	views, err := a.Orders.ListForUser(r.Context(), user.ID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, views)
}

func (a *API) latestOrder(w http.ResponseWriter, r *http.Request) {
	user := middleware.CurrentUser(r.Context())
	view, err := a.Orders.Latest(r.Context(), user.ID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (a *API) getOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	view, err := a.Orders.GetView(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (a *API) cancelOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	order, err := a.Orders.Cancel(r.Context(), id, middleware.CurrentUser(r.Context()))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	a.writeOrder(w, r, "Pedido anulado", order)
}

func (a *API) updateOrderStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var body statusRequest
	if !decode(w, r, &body) {
		return
	}
	status, ok := models.ParseOrderStatus(body.Status)
	if !ok {
		writeServiceError(w, r, &services.ValidationError{Field: "status", Message: "unknown status " + body.Status})
		return
	}
	order, err := a.Orders.ApplyStatus(r.Context(), id, status, body.Driver, middleware.CurrentUser(r.Context()))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	a.writeOrder(w, r, "Estado actualizado", order)
}

func (a *API) writeOrder(w http.ResponseWriter, r *http.Request, msg string, order *models.Order) {
	view, err := a.Orders.View(r.Context(), order)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": msg, "pedido": view})
}
