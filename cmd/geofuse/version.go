// Version command for the geofuse CLI.
package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/meridianworks/geofuse/pkg/geofuse"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the geofuse version",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("geofuse", geofuse.Version)
	},
}
