// Package main provides the geofuse CLI: merge, fuse, template and
// inspect operations over geospatial feature containers.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "geofuse:", err)
		os.Exit(exitCode(err))
	}
}
