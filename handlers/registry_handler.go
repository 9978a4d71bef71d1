package handlers

import (
	"errors"
	"net/http"

	"github.com/Dosada05/run-contest/models"
	"github.com/Dosada05/run-contest/services"
)

type RegistryHandler struct {
	registryService services.RegistryService
}

func NewRegistryHandler(rs services.RegistryService) *RegistryHandler {
	return &RegistryHandler{registryService: rs}
}

// DeployHandler handles POST /registry
func (h *RegistryHandler) DeployHandler(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFromRequest(w, r)
	if !ok {
		return
	}
	reg, err := h.registryService.Deploy(r.Context(), caller)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusCreated, jsonResponse{"registry": reg}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// CurrentHandler handles GET /registry
func (h *RegistryHandler) CurrentHandler(w http.ResponseWriter, r *http.Request) {
	reg, err := h.registryService.Current(r.Context())
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"registry": reg}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// GetHandler handles GET /registries/{registryAddress}
func (h *RegistryHandler) GetHandler(w http.ResponseWriter, r *http.Request) {
	address, err := addressFromURL(r, "registryAddress")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	reg, err := h.registryService.Get(r.Context(), address)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"registry": reg}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// ListContestsHandler handles GET /registries/{registryAddress}/contests
func (h *RegistryHandler) ListContestsHandler(w http.ResponseWriter, r *http.Request) {
	address, err := addressFromURL(r, "registryAddress")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	contests, err := h.registryService.ListContests(r.Context(), address)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"contests": contests}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// CurrentContestHandler handles GET /registries/{registryAddress}/current
func (h *RegistryHandler) CurrentContestHandler(w http.ResponseWriter, r *http.Request) {
	address, err := addressFromURL(r, "registryAddress")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	current, err := h.registryService.CurrentContest(r.Context(), address)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"contest": current}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// AddContestHandler handles POST /registries/{registryAddress}/contests
func (h *RegistryHandler) AddContestHandler(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFromRequest(w, r)
	if !ok {
		return
	}
	address, err := addressFromURL(r, "registryAddress")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	var input struct {
		Contest string `json:"contest"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	handle := models.NormalizeAddress(input.Contest)
	if !handle.Valid() {
		badRequestResponse(w, r, errors.New("contest is required"))
		return
	}

	reg, err := h.registryService.AddContest(r.Context(), caller, address, handle)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"registry": reg}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// DeploymentsHandler handles GET /deployments
func (h *RegistryHandler) DeploymentsHandler(w http.ResponseWriter, r *http.Request) {
	deployments, err := h.registryService.Deployments(r.Context())
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"deployments": deployments}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
