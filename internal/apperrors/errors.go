package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrMalformedOrder     = errors.New("malformed order: missing order id")
	ErrMissingAddress     = errors.New("delivery address not found in order")
	ErrMissingCustomer    = errors.New("customer data not found in order")
	ErrCarrierRejected    = errors.New("carrier rejected request")
	ErrStorefrontRejected = errors.New("storefront rejected request")
	ErrTransientIO        = errors.New("transient io error")
	ErrCircuitOpen        = errors.New("circuit breaker open")
)

// Platforms
const (
	PlatformCarrier    = "carrier"
	PlatformStorefront = "storefront"
)

// RemoteError is a non-success response from one of the remote platforms
type RemoteError struct {
	Platform   string
	Operation  string
	StatusCode int
	Body       string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("%s %s [HTTP %d]: %s", e.Platform, e.Operation, e.StatusCode, e.Body)
}

// Is matches the rejected sentinel of the platform that answered
func (e *RemoteError) Is(target error) bool {
	switch target {
	case ErrCarrierRejected:
		return e.Platform == PlatformCarrier
	case ErrStorefrontRejected:
		return e.Platform == PlatformStorefront
	}
	return false
}

// TransientError wraps network failures and timeouts
type TransientError struct {
	Operation string
	Err       error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("%s: %v", e.Operation, e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

func (e *TransientError) Is(target error) bool { return target == ErrTransientIO }

// Transient wraps err as a TransientError
func Transient(operation string, err error) error {
	if err == nil {
		return nil
	}
	return &TransientError{Operation: operation, Err: err}
}

// HTTPStatus maps a sync error to the status code answered to the inbound caller
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrMalformedOrder):
		return http.StatusBadRequest
	case errors.Is(err, ErrMissingAddress), errors.Is(err, ErrMissingCustomer):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ErrCarrierRejected), errors.Is(err, ErrStorefrontRejected):
		return http.StatusBadGateway
	case errors.Is(err, ErrTransientIO):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// Reason returns a short metric label for err
func Reason(err error) string {
	switch {
	case errors.Is(err, ErrMalformedOrder):
		return "malformed_order"
	case errors.Is(err, ErrMissingAddress):
		return "missing_address"
	case errors.Is(err, ErrMissingCustomer):
		return "missing_customer"
	case errors.Is(err, ErrCarrierRejected):
		return "carrier_rejected"
	case errors.Is(err, ErrStorefrontRejected):
		return "storefront_rejected"
	case errors.Is(err, ErrTransientIO):
		return "transient_io"
	default:
		return "internal"
	}
}
