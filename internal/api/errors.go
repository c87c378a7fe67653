package api

import (
	"errors"
	"net/http"
)

type AppError struct {
	Code    int    `json:"-"`
	Message string `json:"error"`
}

func (e *AppError) Error() string {
	return e.Message
}

var (
	ErrBadRequest         = &AppError{Code: http.StatusBadRequest, Message: "bad request"}
	ErrUnauthorized       = &AppError{Code: http.StatusUnauthorized, Message: "Authentication required"}
	ErrInvalidToken       = &AppError{Code: http.StatusUnauthorized, Message: "Invalid authentication"}
	ErrForbidden          = &AppError{Code: http.StatusForbidden, Message: "forbidden"}
	ErrNotFound           = &AppError{Code: http.StatusNotFound, Message: "not found"}
	ErrInternalServer     = &AppError{Code: http.StatusInternalServerError, Message: "Internal server error"}
	ErrOwnershipViolation = &AppError{Code: http.StatusForbidden, Message: "access denied: ownership mismatch"}
	ErrRequestTooLarge    = &AppError{Code: http.StatusRequestEntityTooLarge, Message: "request body too large"}

	// Generation pipeline outcomes. Upstream and parse failures share one
	// generic message so nothing about the provider leaks to the caller.
	ErrUsageLimit       = &AppError{Code: http.StatusForbidden, Message: "Usage limit exceeded. Please upgrade your plan."}
	ErrTooManyRequests  = &AppError{Code: http.StatusTooManyRequests, Message: "Too many requests. Please wait a minute before trying again."}
	ErrGenerationFailed = &AppError{Code: http.StatusInternalServerError, Message: "An error occurred. Please try again."}

	// Payments
	ErrMissingPayment          = &AppError{Code: http.StatusBadRequest, Message: "Missing payment details"}
	ErrInvalidSignature        = &AppError{Code: http.StatusBadRequest, Message: "Invalid payment signature"}
	ErrGatewayNotConfigured    = &AppError{Code: http.StatusInternalServerError, Message: "Payment gateway not configured"}
	ErrPaymentAlreadyProcessed = &AppError{Code: http.StatusConflict, Message: "Payment already processed"}
)

func NewBadRequestError(msg string) *AppError {
	return &AppError{Code: http.StatusBadRequest, Message: msg}
}

func NewNotFoundError(msg string) *AppError {
	return &AppError{Code: http.StatusNotFound, Message: msg}
}

func NewValidationError(msg string) *AppError {
	return &AppError{Code: http.StatusBadRequest, Message: msg}
}

func NewInternalError(msg string) *AppError {
	return &AppError{Code: http.StatusInternalServerError, Message: msg}
}

func HandleError(w http.ResponseWriter, err error) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		JSONErrorMessage(w, appErr.Code, appErr.Message)
		return
	}
	JSONErrorMessage(w, http.StatusInternalServerError, ErrInternalServer.Message)
}
