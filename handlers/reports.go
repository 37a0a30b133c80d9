package handlers

import "net/http"

func (a *API) salesReport(w http.ResponseWriter, r *http.Request) {
	summary, err := a.Reports.Sales(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (a *API) dashboard(w http.ResponseWriter, r *http.Request) {
	d, err := a.Reports.Dashboard(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (a *API) notify(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email string `json:"email"`
	}
	if !decode(w, r, &body) {
		return
	}
	msg, err := a.Notifier.Acknowledge(body.Email)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": msg})
}
