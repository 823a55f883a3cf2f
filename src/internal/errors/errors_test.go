package errors

import (
	"errors"
	"syscall"
	"testing"
)

func TestError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		expected string
	}{
		{
			name:     "error without cause",
			err:      &Error{Code: ErrCodeConfig, Message: "invalid configuration"},
			expected: "[CONFIG_ERROR] invalid configuration",
		},
		{
			name:     "error with cause",
			err:      Wrap(ErrCodeSocket, "failed to bind to device wlan0", errors.New("operation not permitted")),
			expected: "[SOCKET_ERROR] failed to bind to device wlan0: operation not permitted",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.expected {
				t.Errorf("Error() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestError_Is(t *testing.T) {
	err1 := NewDNSError("exchange failed", nil)
	err2 := New(ErrCodeDNS, "another")
	err3 := NewInterfaceError("listing failed", nil)

	if !errors.Is(err1, err2) {
		t.Errorf("Expected errors with same code to match")
	}
	if errors.Is(err1, err3) {
		t.Errorf("Expected errors with different codes to not match")
	}
}

func TestError_UnwrapChain(t *testing.T) {
	err := NewSocketError("setsockopt", syscall.EPERM)

	if !errors.Is(err, syscall.EPERM) {
		t.Errorf("Expected wrapped errno to be reachable through errors.Is")
	}

	var target *Error
	if !errors.As(err, &target) || target.Code != ErrCodeSocket {
		t.Errorf("Expected errors.As to extract socket error, got %v", target)
	}
}

func TestConstructors(t *testing.T) {
	cause := errors.New("cause")
	tests := []struct {
		err  *Error
		code ErrorCode
	}{
		{NewConfigError("m", cause), ErrCodeConfig},
		{NewInterfaceError("m", cause), ErrCodeInterface},
		{NewSocketError("m", cause), ErrCodeSocket},
		{NewDNSError("m", cause), ErrCodeDNS},
		{NewValidationError("m", cause), ErrCodeValidation},
		{NewInternalError("m", cause), ErrCodeInternal},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			if tt.err.Code != tt.code {
				t.Errorf("Code = %v, want %v", tt.err.Code, tt.code)
			}
			if tt.err.Cause != cause {
				t.Errorf("Cause not preserved")
			}
		})
	}
}
