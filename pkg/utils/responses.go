package utils

import (
	"encoding/json"
	"errors"
	"net/http"

	"charger-booking/pkg/apperror"
)

// Response is the envelope every endpoint answers with. Code carries the
// failure kind so clients can tell an already-cancelled booking from a
// malformed request even though both are 400.
type Response struct {
	Status  bool   `json:"status"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
	Errors  any    `json:"errors,omitempty"`
}

const (
	CodeRateLimited = "RATE_LIMITED"
	CodeInternal    = "INTERNAL"
)

func writeEnvelope(w http.ResponseWriter, httpStatus int, body Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpStatus)
	_ = json.NewEncoder(w).Encode(body)
}

// ResponseJSON writes a success or failure envelope with a custom status code.
func ResponseJSON(w http.ResponseWriter, httpStatus int, status bool, message string, data, errs any) {
	writeEnvelope(w, httpStatus, Response{Status: status, Message: message, Data: data, Errors: errs})
}

// ------------- Success responses -------------

func ResponseSuccess(w http.ResponseWriter, message string, data any) {
	ResponseJSON(w, http.StatusOK, true, message, data, nil)
}

func ResponseCreated(w http.ResponseWriter, message string, data any) {
	ResponseJSON(w, http.StatusCreated, true, message, data, nil)
}

// ------------- Error responses -------------

func responseFailure(w http.ResponseWriter, httpStatus int, code, message string, errs any) {
	writeEnvelope(w, httpStatus, Response{Code: code, Message: message, Errors: errs})
}

// ResponseAppError answers with the status and code of err's kind. Details
// of internal failures are never written.
func ResponseAppError(w http.ResponseWriter, err *apperror.Error) {
	status := apperror.HTTPStatus(err)
	if status == http.StatusInternalServerError {
		responseFailure(w, status, CodeInternal, err.Message, nil)
		return
	}
	responseFailure(w, status, string(err.Kind), err.Message, err.Details)
}

func ResponseBadRequest(w http.ResponseWriter, message string, errs any) {
	responseFailure(w, http.StatusBadRequest, string(apperror.KindValidation), message, errs)
}

func ResponseNotFound(w http.ResponseWriter, message string) {
	responseFailure(w, http.StatusNotFound, string(apperror.KindNotFound), message, nil)
}

// ResponseConflict lists the bookings holding the requested slot in errs.
func ResponseConflict(w http.ResponseWriter, message string, errs any) {
	responseFailure(w, http.StatusConflict, string(apperror.KindConflict), message, errs)
}

func ResponseTooManyRequests(w http.ResponseWriter, message string) {
	responseFailure(w, http.StatusTooManyRequests, CodeRateLimited, message, nil)
}

func ResponseInternalError(w http.ResponseWriter, message string) {
	responseFailure(w, http.StatusInternalServerError, CodeInternal, message, nil)
}

// ResponseError writes err as an envelope, falling back to a bare 500 for
// errors that carry no kind.
func ResponseError(w http.ResponseWriter, err error) {
	var appErr *apperror.Error
	if errors.As(err, &appErr) {
		ResponseAppError(w, appErr)
		return
	}
	ResponseInternalError(w, "Internal server error")
}
