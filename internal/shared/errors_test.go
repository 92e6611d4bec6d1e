package shared

import (
	"net/http"
	"testing"
)

func TestAPIErrorHelpers(t *testing.T) {
	tests := []struct {
		name   string
		err    *APIError
		status int
	}{
		{"bad request", NewAPIError("invalid_request", "bad"), http.StatusBadRequest},
		{"not found", NewAPIError("form_not_found", "missing"), http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			httpErr := tt.err.ToHTTP(tt.status)
			if httpErr.Code != tt.status {
				t.Errorf("expected status %d, got %d", tt.status, httpErr.Code)
			}
			apiErr, ok := httpErr.Message.(*APIError)
			if !ok {
				t.Fatalf("expected APIError payload, got %T", httpErr.Message)
			}
			if apiErr.Code != tt.err.Code {
				t.Errorf("expected code %s, got %s", tt.err.Code, apiErr.Code)
			}
		})
	}
}

func TestBadRequestStatus(t *testing.T) {
	if err := BadRequest("x", "y"); err.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", err.Code)
	}
	if err := Forbidden("x", "y"); err.Code != http.StatusForbidden {
		t.Errorf("expected 403, got %d", err.Code)
	}
	if err := NotFound("x", "y"); err.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", err.Code)
	}
	if err := Conflict("x", "y"); err.Code != http.StatusConflict {
		t.Errorf("expected 409, got %d", err.Code)
	}
	if err := InternalError("x", "y"); err.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", err.Code)
	}
}

func TestAPIError_WithDetails(t *testing.T) {
	err := NewAPIError("invalid_fields", "bad").WithDetails(map[string]string{"field": "f1"})
	if err.Details == nil {
		t.Error("expected details to be attached")
	}
}
