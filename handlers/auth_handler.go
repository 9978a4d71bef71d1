package handlers

import (
	"errors"
	"net/http"

	"github.com/Dosada05/run-contest/models"
	"github.com/Dosada05/run-contest/services"
)

type AuthHandler struct {
	authService services.AuthService
}

func NewAuthHandler(authService services.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// CreateAccountHandler handles POST /auth/accounts. The API key in the
// response is shown once.
func (h *AuthHandler) CreateAccountHandler(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Address string `json:"address"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	address := models.NormalizeAddress(input.Address)
	if !address.Valid() {
		badRequestResponse(w, r, errors.New("address is required"))
		return
	}

	account, key, err := h.authService.CreateAccount(r.Context(), address)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusCreated, jsonResponse{"account": account, "api_key": key}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// TokenHandler handles POST /auth/token
func (h *AuthHandler) TokenHandler(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Address string `json:"address"`
		APIKey  string `json:"api_key"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if input.Address == "" || input.APIKey == "" {
		badRequestResponse(w, r, errors.New("address and api_key are required"))
		return
	}

	token, expires, err := h.authService.IssueToken(r.Context(), models.NormalizeAddress(input.Address), input.APIKey)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"token": token, "expires_at": expires}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
