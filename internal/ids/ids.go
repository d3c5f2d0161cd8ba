// Package ids builds the canonical string identifiers used across every
// model (spec.md §3 "Identifiers"). Kept dependency-free so every model
// package can import it without risking an import cycle.
package ids

import "fmt"

// Server returns the canonical "rack-{r}-srv-{s}" identifier.
func Server(rack, srv int) string {
	return fmt.Sprintf("rack-%d-srv-%d", rack, srv)
}

// GPU returns the canonical "rack-{r}-srv-{s}-gpu-{g}" identifier.
func GPU(rack, srv, gpu int) string {
	return fmt.Sprintf("rack-%d-srv-%d-gpu-%d", rack, srv, gpu)
}

// Crac returns the canonical "crac-{c}" identifier used as a failure target.
func Crac(crac int) string {
	return fmt.Sprintf("crac-%d", crac)
}

// Rack returns the canonical "rack-{r}" identifier used as a failure target.
func Rack(rack int) string {
	return fmt.Sprintf("rack-%d", rack)
}
