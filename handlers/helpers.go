package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/Dosada05/run-contest/contest"
	"github.com/Dosada05/run-contest/middleware"
	"github.com/Dosada05/run-contest/models"
	"github.com/Dosada05/run-contest/services"
	"github.com/go-chi/chi/v5"
)

type jsonResponse map[string]interface{}

func readJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	maxBytes := 1_048_576
	r.Body = http.MaxBytesReader(w, r.Body, int64(maxBytes))

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	err := dec.Decode(dst)
	if err != nil {
		var syntaxError *json.SyntaxError
		var unmarshalTypeError *json.UnmarshalTypeError
		var invalidUnmarshalError *json.InvalidUnmarshalError
		var maxBytesError *http.MaxBytesError

		switch {
		case errors.As(err, &syntaxError):
			return fmt.Errorf("body contains badly-formed JSON (at character %d)", syntaxError.Offset)
		case errors.Is(err, io.ErrUnexpectedEOF):
			return errors.New("body contains badly-formed JSON")
		case errors.As(err, &unmarshalTypeError):
			if unmarshalTypeError.Field != "" {
				return fmt.Errorf("body contains incorrect JSON type for field %q", unmarshalTypeError.Field)
			}
			return fmt.Errorf("body contains incorrect JSON type (at character %d)", unmarshalTypeError.Offset)
		case errors.Is(err, io.EOF):
			return errors.New("body must not be empty")
		case strings.HasPrefix(err.Error(), "json: unknown field "):
			fieldName := strings.TrimPrefix(err.Error(), "json: unknown field ")
			return fmt.Errorf("body contains unknown key %s", fieldName)
		case errors.As(err, &maxBytesError):
			return fmt.Errorf("body must not be larger than %d bytes", maxBytes)
		case errors.As(err, &invalidUnmarshalError):
			panic(err)
		default:
			return err
		}
	}

	err = dec.Decode(&struct{}{})
	if !errors.Is(err, io.EOF) {
		return errors.New("body must only contain a single JSON value")
	}

	return nil
}

func writeJSON(w http.ResponseWriter, status int, data interface{}, headers http.Header) error {
	js, err := json.MarshalIndent(data, "", "\t")
	if err != nil {
		return err
	}
	js = append(js, '\n')

	for key, value := range headers {
		w.Header()[key] = value
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, err = w.Write(js)
	return err
}

func errorResponse(w http.ResponseWriter, r *http.Request, status int, message interface{}) {
	writeError(w, r, status, jsonResponse{"error": message})
}

func writeError(w http.ResponseWriter, r *http.Request, status int, env jsonResponse) {
	if err := writeJSON(w, status, env, nil); err != nil {
		slog.ErrorContext(r.Context(), "failed to write error response", slog.Any("error", err))
		w.WriteHeader(http.StatusInternalServerError)
	}
}

func serverErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	slog.ErrorContext(r.Context(), "internal server error",
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.Any("error", err),
	)
	message := "the server encountered a problem and could not process your request"
	errorResponse(w, r, http.StatusInternalServerError, message)
}

func badRequestResponse(w http.ResponseWriter, r *http.Request, err error) {
	errorResponse(w, r, http.StatusBadRequest, err.Error())
}

func notFoundResponse(w http.ResponseWriter, r *http.Request, message string) {
	errorResponse(w, r, http.StatusNotFound, message)
}

func conflictResponse(w http.ResponseWriter, r *http.Request, message string) {
	errorResponse(w, r, http.StatusConflict, message)
}

func unauthorizedResponse(w http.ResponseWriter, r *http.Request, message string) {
	errorResponse(w, r, http.StatusUnauthorized, message)
}

func failedValidationResponse(w http.ResponseWriter, r *http.Request, message string) {
	errorResponse(w, r, http.StatusUnprocessableEntity, message)
}

// contestStatus maps a contest reason code to its HTTP status.
func contestStatus(code contest.Code) int {
	switch code {
	case contest.CodeUnauthorized, contest.CodeEscrowCaller:
		return http.StatusForbidden
	case contest.CodeEmptyRegistry:
		return http.StatusNotFound
	case contest.CodeTransferFailed, contest.CodeInsufficientAllowance, contest.CodeInsufficientBalance:
		return http.StatusPaymentRequired
	case contest.CodeUnregisteredWinner, contest.CodeDuplicateWinner, contest.CodeNotAWinner,
		contest.CodeNotEligibleForRefund, contest.CodeInsufficientQuorumConfig,
		contest.CodeInsufficientPayoutFunding, contest.CodeInvalidParams:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusConflict
	}
}

func mapServiceErrorToHTTP(w http.ResponseWriter, r *http.Request, err error) {
	if code := contest.CodeOf(err); code != "" {
		writeError(w, r, contestStatus(code), jsonResponse{"error": err.Error(), "code": code})
		return
	}

	switch {
	case errors.Is(err, services.ErrNotFound),
		errors.Is(err, services.ErrContestNotFound),
		errors.Is(err, services.ErrRegistryNotFound),
		errors.Is(err, services.ErrAccountNotFound),
		errors.Is(err, services.ErrPresetNotFound):
		notFoundResponse(w, r, err.Error())

	case errors.Is(err, services.ErrRegistryNotDeployed),
		errors.Is(err, services.ErrRegistryAlreadyDeployed),
		errors.Is(err, services.ErrAccountExists),
		errors.Is(err, services.ErrReservedAddress):
		conflictResponse(w, r, err.Error())

	case errors.Is(err, services.ErrValidationFailed):
		failedValidationResponse(w, r, err.Error())

	case errors.Is(err, services.ErrAuthenticationFailed),
		errors.Is(err, services.ErrInvalidCredentials):
		unauthorizedResponse(w, r, err.Error())

	default:
		serverErrorResponse(w, r, err)
	}
}

func callerFromRequest(w http.ResponseWriter, r *http.Request) (models.Address, bool) {
	account, err := middleware.GetAccountFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "authentication required")
		return "", false
	}
	return account, true
}

func addressFromURL(r *http.Request, param string) (models.Address, error) {
	raw := chi.URLParam(r, param)
	if strings.TrimSpace(raw) == "" {
		return "", fmt.Errorf("missing %s", param)
	}
	return models.NormalizeAddress(raw), nil
}

func runnerIDFromURL(r *http.Request, param string) (models.RunnerID, error) {
	return models.ParseRunnerID(chi.URLParam(r, param))
}

func intQuery(r *http.Request, key string, def, min int) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < min {
		return 0, fmt.Errorf("invalid %s query parameter", key)
	}
	return v, nil
}
