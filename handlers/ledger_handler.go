package handlers

import (
	"errors"
	"net/http"

	"github.com/Dosada05/run-contest/models"
	"github.com/Dosada05/run-contest/services"
	"github.com/shopspring/decimal"
)

type LedgerHandler struct {
	ledgerService services.LedgerService
}

func NewLedgerHandler(ls services.LedgerService) *LedgerHandler {
	return &LedgerHandler{ledgerService: ls}
}

// ApproveHandler handles POST /assets/{assetAddress}/approvals
func (h *LedgerHandler) ApproveHandler(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFromRequest(w, r)
	if !ok {
		return
	}
	asset, err := addressFromURL(r, "assetAddress")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	var input struct {
		Spender string           `json:"spender"`
		Amount  *decimal.Decimal `json:"amount"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if input.Amount == nil {
		badRequestResponse(w, r, errors.New("amount is required"))
		return
	}

	allowance, err := h.ledgerService.Approve(r.Context(), caller, asset, models.NormalizeAddress(input.Spender), *input.Amount)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"allowance": allowance}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// BalanceHandler handles GET /assets/{assetAddress}/balances/{accountAddress}
func (h *LedgerHandler) BalanceHandler(w http.ResponseWriter, r *http.Request) {
	asset, err := addressFromURL(r, "assetAddress")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	account, err := addressFromURL(r, "accountAddress")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	balance, err := h.ledgerService.BalanceOf(r.Context(), asset, account)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	resp := jsonResponse{"asset": asset, "account": account, "balance": balance}
	if err := writeJSON(w, http.StatusOK, resp, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// AllowanceHandler handles GET /assets/{assetAddress}/allowances/{ownerAddress}/{spenderAddress}
func (h *LedgerHandler) AllowanceHandler(w http.ResponseWriter, r *http.Request) {
	asset, err := addressFromURL(r, "assetAddress")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	owner, err := addressFromURL(r, "ownerAddress")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	spender, err := addressFromURL(r, "spenderAddress")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	allowance, err := h.ledgerService.Allowance(r.Context(), asset, owner, spender)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"allowance": allowance}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// TransfersHandler handles GET /assets/{assetAddress}/transfers
func (h *LedgerHandler) TransfersHandler(w http.ResponseWriter, r *http.Request) {
	asset, err := addressFromURL(r, "assetAddress")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	limit, err := intQuery(r, "limit", 100, 1)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	account := models.NormalizeAddress(r.URL.Query().Get("account"))

	transfers, err := h.ledgerService.ListTransfers(r.Context(), asset, account, limit)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"transfers": transfers}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
