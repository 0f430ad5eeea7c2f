package core

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestGatewayErrorMessage(t *testing.T) {
	err := NewBackendError("bedrock", "stream interrupted", nil)
	want := "[bedrock] backend_error: stream interrupted"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}

	cfgErr := NewConfigurationError("unknown provider kind: foo", nil)
	if cfgErr.Error() != "configuration_error: unknown provider kind: foo" {
		t.Errorf("Error() = %q", cfgErr.Error())
	}
}

func TestGatewayErrorStatusCodes(t *testing.T) {
	cases := []struct {
		err  *GatewayError
		want int
	}{
		{NewConfigurationError("bad", nil), http.StatusBadRequest},
		{NewInvalidRequestError("bad", nil), http.StatusBadRequest},
		{NewBackendError("openai", "down", nil), http.StatusBadGateway},
		{&GatewayError{Type: ErrorTypeBackend}, http.StatusBadGateway},
		{&GatewayError{Type: "mystery"}, http.StatusInternalServerError},
	}

	for _, tc := range cases {
		if got := tc.err.HTTPStatusCode(); got != tc.want {
			t.Errorf("HTTPStatusCode() for %s = %d, want %d", tc.err.Type, got, tc.want)
		}
	}
}

func TestGatewayErrorUnwrap(t *testing.T) {
	inner := fmt.Errorf("connection refused")
	err := NewBackendError("anthropic", "request failed", inner)

	if !errors.Is(err, inner) {
		t.Error("expected errors.Is to find the wrapped error")
	}
}

func TestGatewayErrorToJSON(t *testing.T) {
	err := NewConfigurationError("missing api_key", nil)
	body := err.ToJSON()

	inner, ok := body["error"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected nested error object, got %v", body)
	}
	if inner["type"] != ErrorTypeConfiguration {
		t.Errorf("type = %v", inner["type"])
	}
	if inner["message"] != "missing api_key" {
		t.Errorf("message = %v", inner["message"])
	}
}
