package handlers

import (
	"net/http"

	"saborlimeno/gorest/services"
)

func (a *API) listMenu(w http.ResponseWriter, r *http.Request) {
	dishes, err := a.Catalog.ListAvailable(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dishes)
}

func (a *API) listAllDishes(w http.ResponseWriter, r *http.Request) {
	dishes, err := a.Catalog.ListAll(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dishes)
}

func (a *API) getDish(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	dish, err := a.Catalog.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dish)
}

func (a *API) createDish(w http.ResponseWriter, r *http.Request) {
	var in services.DishInput
	if !decode(w, r, &in) {
		return
	}
	dish, err := a.Catalog.Create(r.Context(), in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, dish)
}

func (a *API) updateDish(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var in services.DishInput
	if !decode(w, r, &in) {
		return
	}
	dish, err := a.Catalog.Update(r.Context(), id, in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dish)
}

func (a *API) setDishAvailability(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var body struct {
		Available *bool `json:"disponible"`
	}
	if !decode(w, r, &body) {
		return
	}
	if body.Available == nil {
		writeServiceError(w, r, &services.ValidationError{Field: "disponible", Message: "is required"})
		return
	}
	dish, err := a.Catalog.SetAvailability(r.Context(), id, *body.Available)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dish)
}
