package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/garnizeh/hirehub/pkg/models"
)

// maxBodyBytes caps every JSON request body.
const maxBodyBytes = 1 << 20

type messageResponse struct {
	Message string `json:"message"`
}

// errorResponse is the single error shape of the API.
type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("encode response", slog.Any("err", err))
	}
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, messageResponse{Message: msg})
}

func writeErrorStatus(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

var errorTable = []struct {
	target error
	status int
	code   string
}{
	{models.ErrDuplicateAccount, http.StatusConflict, "duplicate_account"},
	{models.ErrDuplicateApplication, http.StatusConflict, "duplicate_application"},
	{models.ErrOtpInvalidOrExpired, http.StatusBadRequest, "otp_invalid_or_expired"},
	{models.ErrAccountNotFound, http.StatusNotFound, "account_not_found"},
	{models.ErrJobNotFound, http.StatusNotFound, "job_not_found"},
	{models.ErrApplicationNotFound, http.StatusNotFound, "application_not_found"},
	{models.ErrRecruiterNotFound, http.StatusNotFound, "recruiter_not_found"},
	{models.ErrNotificationNotFound, http.StatusNotFound, "notification_not_found"},
	{models.ErrInvalidCredentials, http.StatusUnauthorized, "invalid_credentials"},
	{models.ErrAccountDeactivated, http.StatusForbidden, "account_deactivated"},
	{models.ErrInvalidTransition, http.StatusConflict, "invalid_transition"},
	{models.ErrJobClosed, http.StatusConflict, "job_closed"},
	{models.ErrForbidden, http.StatusForbidden, "forbidden"},
}

// writeError maps a service error onto its HTTP status. Storage failures and
// anything unrecognised become a 500 with a generic message.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *models.ValidationError
	if errors.As(err, &verr) {
		writeErrorStatus(w, http.StatusBadRequest, "validation_error", verr.Error())
		return
	}
	for _, e := range errorTable {
		if errors.Is(err, e.target) {
			writeErrorStatus(w, e.status, e.code, e.target.Error())
			return
		}
	}
	logger.Error("request failed",
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.String("request_id", RequestIDFrom(r.Context())),
		slog.Any("err", err),
	)
	writeErrorStatus(w, http.StatusInternalServerError, "internal_error", "internal server error")
}

// decodeJSON reads a bounded JSON body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return models.NewValidationError("body", "invalid JSON request body")
	}
	return nil
}

func readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	b, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return nil, models.NewValidationError("body", "request body too large")
	}
	return b, nil
}

// pathID parses the named mux variable as a positive id.
func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(mux.Vars(r)[name], 10, 64)
	if err != nil || id <= 0 {
		return 0, models.NewValidationError(name, "must be a positive integer")
	}
	return id, nil
}

// queryInt parses an optional non-negative integer query parameter. A
// missing parameter yields 0.
func queryInt(r *http.Request, name string) (int, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, models.NewValidationError(name, "must be a non-negative integer")
	}
	return n, nil
}
