package handlers

import (
	"net/http"

	"saborlimeno/gorest/models"
	"saborlimeno/gorest/services"
)

type paymentResponse struct {
	Message string          `json:"message"`
	Payment *models.Payment `json:"pago"`
	Receipt *models.Receipt `json:"recibo"`
}

func (a *API) recordPayment(w http.ResponseWriter, r *http.Request) {
	var in services.PaymentInput
	if !decode(w, r, &in) {
		return
	}
	payment, receipt, err := a.Payments.Record(r.Context(), in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, paymentResponse{Message: "Pago registrado", Payment: payment, Receipt: receipt})
}

func (a *API) getReceipt(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	receipt, err := a.Payments.ReceiptForOrder(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, receipt)
}

func (a *API) getReceiptQR(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	png, err := a.Payments.ReceiptQR(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(png)
}

func (a *API) verifyReceipt(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		writeServiceError(w, r, &services.ValidationError{Field: "token", Message: "is required"})
		return
	}
	receipt, err := a.Payments.VerifyReceipt(r.Context(), token)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"valid": true, "recibo": receipt})
}
