// Purpose: Provide the program entrypoint and invoke command execution.
// Exports: main.
// Role: Binary entrypoint for the taskboard CLI.
// Invariants: Only delegates to execute(); version is injected via ldflags.
// Notes: Errors are handled by cmd helpers in this package.
package main

// version is set via ldflags at release time
var version = "dev"

func main() {
	execute()
}
