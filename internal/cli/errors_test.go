package cli

import (
	"crypto/x509"
	"errors"
	"fmt"
	"net"
	"strings"
	"testing"
)

func TestAuthRequiredError(t *testing.T) {
	t.Run("error message includes guidance", func(t *testing.T) {
		err := &AuthRequiredError{}
		msg := err.Error()

		if !strings.Contains(msg, "byn auth login") {
			t.Error("expected error message to contain login command")
		}
		if !strings.Contains(msg, "byn auth status") {
			t.Error("expected error message to contain status command")
		}
	})

	t.Run("errors.Is works with wrapped error", func(t *testing.T) {
		authErr := &AuthRequiredError{}
		wrappedErr := fmt.Errorf("wrapped: %w", authErr)

		if !errors.Is(wrappedErr, &AuthRequiredError{}) {
			t.Error("expected errors.Is to find wrapped AuthRequiredError")
		}
	})

	t.Run("Is returns false for different type", func(t *testing.T) {
		err := &AuthRequiredError{}
		if err.Is(errors.New("some error")) {
			t.Error("expected Is to return false for a different type")
		}
	})
}

func TestAuthFailedError(t *testing.T) {
	t.Run("error message includes reason and guidance", func(t *testing.T) {
		err := &AuthFailedError{Reason: errors.New("invalid email or password")}
		msg := err.Error()

		if !strings.Contains(msg, "invalid email or password") {
			t.Error("expected error message to contain the reason")
		}
		if !strings.Contains(msg, "byn auth login") {
			t.Error("expected error message to contain login command")
		}
	})

	t.Run("Unwrap returns the reason", func(t *testing.T) {
		reason := errors.New("rejected")
		err := &AuthFailedError{Reason: reason}

		if !errors.Is(err, reason) {
			t.Error("expected errors.Is to find the underlying reason")
		}
	})
}

func TestClassifyConnectionError(t *testing.T) {
	endpoint := "https://api.example.com"

	t.Run("nil error returns nil", func(t *testing.T) {
		if got := ClassifyConnectionError(nil, endpoint); got != nil {
			t.Errorf("expected nil, got %+v", got)
		}
	})

	tests := []struct {
		name string
		err  error
		want ConnectionErrorType
	}{
		{
			name: "connection refused is a network error",
			err:  errors.New(`dial tcp 127.0.0.1:8000: connect: connection refused`),
			want: ConnectionErrorNetwork,
		},
		{
			name: "DNS failure",
			err:  &net.DNSError{Err: "no such host", Name: "api.example.com"},
			want: ConnectionErrorDNS,
		},
		{
			name: "certificate error",
			err:  x509.UnknownAuthorityError{},
			want: ConnectionErrorTLS,
		},
		{
			name: "x509 message without typed error",
			err:  errors.New("Get https://api.example.com: x509: certificate signed by unknown authority"),
			want: ConnectionErrorTLS,
		},
		{
			name: "deadline exceeded is a timeout",
			err:  errors.New("context deadline exceeded"),
			want: ConnectionErrorTimeout,
		},
		{
			name: "anything else is unknown",
			err:  errors.New("boom"),
			want: ConnectionErrorUnknown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ClassifyConnectionError(tt.err, endpoint)
			if got == nil {
				t.Fatal("expected a classified error")
			}
			if got.Type != tt.want {
				t.Errorf("Type = %s, want %s", got.Type, tt.want)
			}
			if got.Endpoint != endpoint {
				t.Errorf("Endpoint = %q, want %q", got.Endpoint, endpoint)
			}
			if !errors.Is(got, tt.err) {
				t.Error("expected the classified error to wrap the original")
			}
		})
	}
}

func TestConnectionError_Error(t *testing.T) {
	err := ClassifyConnectionError(
		errors.New("dial tcp 127.0.0.1:8000: connect: connection refused"),
		"http://localhost:8000/api",
	)

	msg := err.Error()
	if !strings.Contains(msg, "Network error") {
		t.Errorf("expected the category in %q", msg)
	}
	if !strings.Contains(msg, "http://localhost:8000/api") {
		t.Errorf("expected the endpoint in %q", msg)
	}
}

func TestFormatReason(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{
			name: "nil error",
			err:  nil,
			want: "unknown error",
		},
		{
			name: "x509 prefix is stripped to the core issue",
			err:  errors.New("Get https://x: x509: certificate has expired"),
			want: "x509: certificate has expired",
		},
		{
			name: "connect prefix extraction",
			err:  errors.New("dial tcp 1.2.3.4:443: connect: connection refused"),
			want: "connect: connection refused",
		},
		{
			name: "plain error passes through",
			err:  errors.New("boom"),
			want: "boom",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatReason(tt.err); got != tt.want {
				t.Errorf("FormatReason() = %q, want %q", got, tt.want)
			}
		})
	}
}
