package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name     string
		appErr   *AppError
		expected string
	}{
		{
			name:     "error without wrapped error",
			appErr:   ErrNoFaceDetected,
			expected: "No face detected in the image",
		},
		{
			name: "error with wrapped error",
			appErr: &AppError{
				Code:       "TEST_ERROR",
				Message:    "Test message",
				StatusCode: 500,
				Err:        errors.New("underlying error"),
			},
			expected: "Test message: underlying error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.appErr.Error(); got != tt.expected {
				t.Errorf("Error() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestAppError_Unwrap(t *testing.T) {
	underlying := errors.New("underlying error")
	appErr := &AppError{
		Code:       "TEST",
		Message:    "test",
		StatusCode: 500,
		Err:        underlying,
	}

	if got := appErr.Unwrap(); got != underlying {
		t.Errorf("Unwrap() = %v, want %v", got, underlying)
	}

	if got := ErrNoLandmarks.Unwrap(); got != nil {
		t.Errorf("Unwrap() = %v, want nil", got)
	}
}

func TestAppError_WithError(t *testing.T) {
	underlying := errors.New("deepface timeout")
	newErr := ErrModelUnavailable.WithError(underlying)

	if newErr.Code != ErrModelUnavailable.Code {
		t.Errorf("Code = %v, want %v", newErr.Code, ErrModelUnavailable.Code)
	}

	if newErr.StatusCode != ErrModelUnavailable.StatusCode {
		t.Errorf("StatusCode = %v, want %v", newErr.StatusCode, ErrModelUnavailable.StatusCode)
	}

	if !errors.Is(newErr, underlying) {
		t.Errorf("errors.Is should return true for wrapped error")
	}

	if !errors.Is(newErr, ErrModelUnavailable) {
		t.Errorf("errors.Is should match the sentinel after WithError")
	}
}

func TestErrorsIs_ThroughFmtWrap(t *testing.T) {
	err := fmt.Errorf("score pair: %w", ErrNoFaceDetected.WithError(errors.New("empty detection")))

	if !errors.Is(err, ErrNoFaceDetected) {
		t.Errorf("errors.Is should find NO_FACE_DETECTED through fmt wrapping")
	}
	if errors.Is(err, ErrNoLandmarks) {
		t.Errorf("errors.Is must not match a different code")
	}

	var appErr *AppError
	if !errors.As(err, &appErr) {
		t.Fatalf("errors.As should match AppError")
	}
	if appErr.Code != "NO_FACE_DETECTED" {
		t.Errorf("Code = %v, want NO_FACE_DETECTED", appErr.Code)
	}
}

func TestPredefinedErrors(t *testing.T) {
	tests := []struct {
		err        *AppError
		code       string
		statusCode int
	}{
		{ErrInternal, "INTERNAL_ERROR", 500},
		{ErrBadRequest, "BAD_REQUEST", 400},
		{ErrNotFound, "NOT_FOUND", 404},
		{ErrInvalidImage, "INVALID_IMAGE", 422},
		{ErrNoFaceDetected, "NO_FACE_DETECTED", 422},
		{ErrNoLandmarks, "NO_LANDMARKS", 422},
		{ErrModelUnavailable, "MODEL_UNAVAILABLE", 503},
		{ErrProcessingTimeout, "PROCESSING_TIMEOUT", 408},
		{ErrInconsistentDocumentData, "INCONSISTENT_DOCUMENT_DATA", 422},
		{ErrLivenessFailed, "LIVENESS_FAILED", 422},
		{ErrRateLimitExceeded, "RATE_LIMIT_EXCEEDED", 429},
		{ErrValidationFailed, "VALIDATION_FAILED", 422},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			if tt.err.Code != tt.code {
				t.Errorf("Code = %v, want %v", tt.err.Code, tt.code)
			}
			if tt.err.StatusCode != tt.statusCode {
				t.Errorf("StatusCode = %v, want %v", tt.err.StatusCode, tt.statusCode)
			}
		})
	}
}
