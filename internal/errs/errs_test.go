package errs

import (
	"fmt"
	"testing"
)

func TestResult(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, "ok"},
		{"not found", NotFound, "not_found"},
		{"invalid state", InvalidState, "invalid_state"},
		{"session busy", SessionBusy, "session_busy"},
		{"invalid request", InvalidRequest, "invalid_request"},
		{"internal", Internal, "error"},
		{"wrapped not found", fmt.Errorf("migrate job x: %w", NotFound), "not_found"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Result(tt.err); got != tt.want {
				t.Errorf("Result(%v) = %q, want %q", tt.err, got, tt.want)
			}
		})
	}
}
