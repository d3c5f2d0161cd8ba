// Package errs defines the sentinel error kinds shared by every core package.
// Handlers at the API boundary use errors.Is against these sentinels to pick
// an HTTP status code; nothing inside the simulation core panics or uses
// exceptions for control flow.
package errs

import "errors"

// Sentinel error kinds. Wrap with fmt.Errorf("...: %w", errs.NotFound) to add
// context while keeping errors.Is(err, errs.NotFound) working.
var (
	// NotFound marks an unknown rack, server, job, failure, scenario or agent.
	NotFound = errors.New("not found")
	// InvalidState marks an action issued outside its precondition.
	InvalidState = errors.New("invalid state")
	// SessionBusy marks an attempt to start a session while one is active.
	SessionBusy = errors.New("session busy")
	// InvalidRequest marks an unknown failure type or malformed params.
	InvalidRequest = errors.New("invalid request")
	// Internal marks a precondition violated by the implementation; should be unreachable.
	Internal = errors.New("internal error")
)

// Result returns the audit-log result label for an error: "ok" for nil,
// otherwise a short machine-readable label derived from the sentinel kind.
func Result(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, NotFound):
		return "not_found"
	case errors.Is(err, InvalidState):
		return "invalid_state"
	case errors.Is(err, SessionBusy):
		return "session_busy"
	case errors.Is(err, InvalidRequest):
		return "invalid_request"
	default:
		return "error"
	}
}
