package cmd

import "fmt"

// Version is injected at build time via ldflags.
var Version = "development"

// runVersion displays version information.
func runVersion() {
	fmt.Printf("catalogo %s\n", Version)
}
