package apierr

import (
	"errors"
	"fmt"
	"testing"
)

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"network", &NetworkError{Message: "connection refused"}, true},
		{"timeout", &TimeoutError{Message: "deadline exceeded"}, true},
		{"wrapped network", fmt.Errorf("stage: %w", &NetworkError{Message: "reset"}), true},
		{"auth", &AuthError{Status: 401, Message: "unauthorised"}, false},
		{"validation", &ValidationError{Status: 422, Message: "bad email"}, false},
		{"server", &ServerError{Status: 500, Message: "boom"}, false},
		{"cancelled", &CancelledError{}, false},
		{"plain", errors.New("something"), false},
		{"nil", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRetryable(tt.err); got != tt.want {
				t.Errorf("IsRetryable(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestUserMessage(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{
			name: "auth error",
			err:  &AuthError{Status: 401, Message: "unauthorised"},
			want: "Your email or password was not recognised.",
		},
		{
			name: "validation first message",
			err:  &ValidationError{Status: 422, Message: "Email is required"},
			want: "Email is required",
		},
		{
			name: "validation without message",
			err:  &ValidationError{Status: 422},
			want: "The submitted values were not accepted.",
		},
		{
			name: "unknown falls back to generic",
			err:  errors.New("mystery"),
			want: genericMessage,
		},
		{
			name: "api error falls back to generic",
			err:  &APIError{Status: 200, Message: "missing field"},
			want: genericMessage,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := UserMessage(tt.err); got != tt.want {
				t.Errorf("UserMessage() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestUnwrapChains(t *testing.T) {
	cause := errors.New("root cause")

	wrapped := fmt.Errorf("pipeline: %w", &AuthError{Message: "refresh failed", Err: cause})
	if !errors.Is(wrapped, cause) {
		t.Error("AuthError should unwrap to its cause")
	}

	var authErr *AuthError
	if !errors.As(wrapped, &authErr) {
		t.Fatal("errors.As should find AuthError through wrapping")
	}
	if authErr.Message != "refresh failed" {
		t.Errorf("Message = %q, want %q", authErr.Message, "refresh failed")
	}
}

func TestStatusOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"auth", &AuthError{Status: 401}, 401},
		{"validation", &ValidationError{Status: 422}, 422},
		{"client", &ClientError{Status: 404}, 404},
		{"server", &ServerError{Status: 503}, 503},
		{"api", &APIError{Status: 418}, 418},
		{"wrapped", fmt.Errorf("op: %w", &ServerError{Status: 500}), 500},
		{"network carries none", &NetworkError{Message: "refused"}, 0},
		{"nil", nil, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StatusOf(tt.err); got != tt.want {
				t.Errorf("StatusOf(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}
