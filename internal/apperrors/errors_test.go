package apperrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRemoteErrorMatchesPlatformSentinel(t *testing.T) {
	carrier := &RemoteError{Platform: PlatformCarrier, Operation: "create_shipment", StatusCode: 422, Body: "invalid"}
	storefront := &RemoteError{Platform: PlatformStorefront, Operation: "mark_shipped", StatusCode: 500}

	assert.True(t, errors.Is(carrier, ErrCarrierRejected))
	assert.False(t, errors.Is(carrier, ErrStorefrontRejected))
	assert.True(t, errors.Is(fmt.Errorf("wrapped: %w", storefront), ErrStorefrontRejected))

	var remote *RemoteError
	assert.True(t, errors.As(fmt.Errorf("wrapped: %w", carrier), &remote))
	assert.Equal(t, 422, remote.StatusCode)
	assert.Contains(t, carrier.Error(), "HTTP 422")
}

func TestTransientError(t *testing.T) {
	cause := errors.New("connection reset")
	err := Transient("query_delivery", cause)

	assert.True(t, errors.Is(err, ErrTransientIO))
	assert.True(t, errors.Is(err, cause))
	assert.Nil(t, Transient("noop", nil))
}

func TestHTTPStatus(t *testing.T) {
	assert.Equal(t, http.StatusOK, HTTPStatus(nil))
	assert.Equal(t, http.StatusBadRequest, HTTPStatus(ErrMalformedOrder))
	assert.Equal(t, http.StatusUnprocessableEntity, HTTPStatus(ErrMissingAddress))
	assert.Equal(t, http.StatusUnprocessableEntity, HTTPStatus(ErrMissingCustomer))
	assert.Equal(t, http.StatusBadGateway, HTTPStatus(&RemoteError{Platform: PlatformCarrier}))
	assert.Equal(t, http.StatusGatewayTimeout, HTTPStatus(Transient("x", errors.New("timeout"))))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(errors.New("boom")))
}

func TestReason(t *testing.T) {
	assert.Equal(t, "carrier_rejected", Reason(&RemoteError{Platform: PlatformCarrier}))
	assert.Equal(t, "storefront_rejected", Reason(&RemoteError{Platform: PlatformStorefront}))
	assert.Equal(t, "missing_address", Reason(ErrMissingAddress))
	assert.Equal(t, "internal", Reason(errors.New("db down")))
}
