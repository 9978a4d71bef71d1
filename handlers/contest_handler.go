package handlers

import (
	"errors"
	"net/http"

	"github.com/Dosada05/run-contest/models"
	"github.com/Dosada05/run-contest/repositories"
	"github.com/Dosada05/run-contest/services"
)

type ContestHandler struct {
	contestService services.ContestService
}

func NewContestHandler(cs services.ContestService) *ContestHandler {
	return &ContestHandler{contestService: cs}
}

type deployContestInput struct {
	// Preset selects a configured parameter set instead of the inline ones.
	Preset *int `json:"preset,omitempty"`
	models.ContestParams
}

// DeployHandler handles POST /contests
func (h *ContestHandler) DeployHandler(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFromRequest(w, r)
	if !ok {
		return
	}

	var input deployContestInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var (
		view *models.ContestView
		err  error
	)
	if input.Preset != nil {
		view, err = h.contestService.DeployPreset(r.Context(), caller, *input.Preset)
	} else {
		input.Asset = models.NormalizeAddress(input.Asset.String())
		view, err = h.contestService.Deploy(r.Context(), caller, input.ContestParams)
	}
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"contest": view}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// PresetsHandler handles GET /contests/presets
func (h *ContestHandler) PresetsHandler(w http.ResponseWriter, r *http.Request) {
	if err := writeJSON(w, http.StatusOK, jsonResponse{"presets": h.contestService.Presets()}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// ListHandler handles GET /contests
func (h *ContestHandler) ListHandler(w http.ResponseWriter, r *http.Request) {
	var filter repositories.ListContestsFilter
	query := r.URL.Query()

	if ownerStr := query.Get("owner"); ownerStr != "" {
		owner := models.NormalizeAddress(ownerStr)
		filter.Owner = &owner
	}
	if statusStr := query.Get("status"); statusStr != "" {
		status := models.ContestStatus(statusStr)
		switch status {
		case models.StatusRegistering, models.StatusStarted, models.StatusEnded, models.StatusCanceled:
			filter.Status = &status
		default:
			badRequestResponse(w, r, errors.New("invalid status query parameter"))
			return
		}
	}
	var err error
	if filter.Limit, err = intQuery(r, "limit", 20, 1); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if filter.Offset, err = intQuery(r, "offset", 0, 0); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	contests, err := h.contestService.List(r.Context(), filter)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"contests": contests}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// GetHandler handles GET /contests/{contestAddress}
func (h *ContestHandler) GetHandler(w http.ResponseWriter, r *http.Request) {
	address, err := addressFromURL(r, "contestAddress")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	view, err := h.contestService.Get(r.Context(), address)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"contest": view}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// AccountRegistrationsHandler handles GET /accounts/{accountAddress}/registrations
func (h *ContestHandler) AccountRegistrationsHandler(w http.ResponseWriter, r *http.Request) {
	account, err := addressFromURL(r, "accountAddress")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	regs, err := h.contestService.ListRegistrations(r.Context(), account)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"registrations": regs}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// SetDescriptionHandler handles PUT /contests/{contestAddress}/description
func (h *ContestHandler) SetDescriptionHandler(w http.ResponseWriter, r *http.Request) {
	caller, address, ok := h.target(w, r)
	if !ok {
		return
	}
	var input struct {
		Description string `json:"description"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	c, err := h.contestService.SetDescription(r.Context(), caller, address, input.Description)
	h.respond(w, r, http.StatusOK, "contest", c, err)
}

// RegisterRunnerHandler handles POST /contests/{contestAddress}/runners
func (h *ContestHandler) RegisterRunnerHandler(w http.ResponseWriter, r *http.Request) {
	caller, address, ok := h.target(w, r)
	if !ok {
		return
	}
	var input struct {
		RunnerID *models.RunnerID `json:"runner_id"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if input.RunnerID == nil {
		badRequestResponse(w, r, errors.New("runner_id is required"))
		return
	}

	reg, err := h.contestService.RegisterRunner(r.Context(), caller, address, *input.RunnerID)
	h.respond(w, r, http.StatusCreated, "registration", reg, err)
}

// CancelHandler handles POST /contests/{contestAddress}/cancel
func (h *ContestHandler) CancelHandler(w http.ResponseWriter, r *http.Request) {
	caller, address, ok := h.target(w, r)
	if !ok {
		return
	}
	c, err := h.contestService.Cancel(r.Context(), caller, address)
	h.respond(w, r, http.StatusOK, "contest", c, err)
}

// StartHandler handles POST /contests/{contestAddress}/start
func (h *ContestHandler) StartHandler(w http.ResponseWriter, r *http.Request) {
	caller, address, ok := h.target(w, r)
	if !ok {
		return
	}
	c, err := h.contestService.Start(r.Context(), caller, address)
	h.respond(w, r, http.StatusOK, "contest", c, err)
}

// WithdrawHandler handles POST /contests/{contestAddress}/withdraw
func (h *ContestHandler) WithdrawHandler(w http.ResponseWriter, r *http.Request) {
	caller, address, ok := h.target(w, r)
	if !ok {
		return
	}
	payout, err := h.contestService.Withdraw(r.Context(), caller, address)
	h.respond(w, r, http.StatusOK, "payout", payout, err)
}

// EndHandler handles POST /contests/{contestAddress}/end
func (h *ContestHandler) EndHandler(w http.ResponseWriter, r *http.Request) {
	caller, address, ok := h.target(w, r)
	if !ok {
		return
	}
	var input struct {
		First  *models.RunnerID `json:"first"`
		Second *models.RunnerID `json:"second"`
		Third  *models.RunnerID `json:"third"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if input.First == nil || input.Second == nil || input.Third == nil {
		badRequestResponse(w, r, errors.New("first, second and third are required"))
		return
	}

	c, err := h.contestService.End(r.Context(), caller, address, *input.First, *input.Second, *input.Third)
	h.respond(w, r, http.StatusOK, "contest", c, err)
}

// CollectWinningsHandler handles POST /contests/{contestAddress}/winnings/{runnerID}
func (h *ContestHandler) CollectWinningsHandler(w http.ResponseWriter, r *http.Request) {
	caller, address, ok := h.target(w, r)
	if !ok {
		return
	}
	runner, err := runnerIDFromURL(r, "runnerID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	payout, err := h.contestService.CollectWinnings(r.Context(), caller, address, runner)
	h.respond(w, r, http.StatusOK, "payout", payout, err)
}

// ProcessRefundHandler handles POST /contests/{contestAddress}/refunds/{runnerID}
func (h *ContestHandler) ProcessRefundHandler(w http.ResponseWriter, r *http.Request) {
	caller, address, ok := h.target(w, r)
	if !ok {
		return
	}
	runner, err := runnerIDFromURL(r, "runnerID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	payout, err := h.contestService.ProcessRefund(r.Context(), caller, address, runner)
	h.respond(w, r, http.StatusOK, "payout", payout, err)
}

func (h *ContestHandler) target(w http.ResponseWriter, r *http.Request) (models.Address, models.Address, bool) {
	caller, ok := callerFromRequest(w, r)
	if !ok {
		return "", "", false
	}
	address, err := addressFromURL(r, "contestAddress")
	if err != nil {
		badRequestResponse(w, r, err)
		return "", "", false
	}
	return caller, address, true
}

func (h *ContestHandler) respond(w http.ResponseWriter, r *http.Request, status int, key string, data interface{}, err error) {
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, status, jsonResponse{key: data}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
