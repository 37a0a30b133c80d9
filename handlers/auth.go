package handlers

import (
	"net/http"

	"saborlimeno/gorest/middleware"
	"saborlimeno/gorest/models"
	"saborlimeno/gorest/services"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

func (a *API) register(w http.ResponseWriter, r *http.Request) {
	var in services.RegisterInput
	if !decode(w, r, &in) {
		return
	}
	user, err := a.Identity.Register(r.Context(), in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"message": "Usuario registrado", "user": user})
}

func (a *API) login(w http.ResponseWriter, r *http.Request) {
	var in loginRequest
	if !decode(w, r, &in) {
		return
	}
	token, user, err := a.Identity.Login(r.Context(), in.Email, in.Password)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, loginResponse{Token: token, User: user})
}

func (a *API) me(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, middleware.CurrentUser(r.Context()))
}

func (a *API) logout(w http.ResponseWriter, r *http.Request) {
	if err := a.Identity.Logout(r.Context(), middleware.BearerToken(r)); err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Sesión cerrada"})
}

func (a *API) listUsers(w http.ResponseWriter, r *http.Request) {
	users, err := a.Identity.ListUsers(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

func (a *API) updateUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var upd services.UserUpdate
	if !decode(w, r, &upd) {
		return
	}
	user, err := a.Identity.UpdateUser(r.Context(), id, upd)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}
