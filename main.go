// Entrypoint that delegates to the Cobra root command in cmd/root.go.
package main

import (
	"github.com/gpudc/simulator/cmd"
)

func main() {
	cmd.Execute()
}
