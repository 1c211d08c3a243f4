// Fuse command: merge differently-structured containers through a
// field mapping.
package main

import (
	"github.com/spf13/cobra"

	"github.com/meridianworks/geofuse/pkg/types"
)

var (
	fuseOutput  string
	fuseMapping string
	fuseLayers  []string
	fuseForce   bool
)

var fuseCmd = &cobra.Command{
	Use:   "fuse <primary> <secondary>",
	Short: "Fuse two containers through a field mapping",
	Long: `Fuse merges a secondary container into a primary one whose layers are
structured differently. The primary defines the output layer set and
coordinate references; secondary attributes are carried over through a
field mapping (--mapping, or an auto-generated default). The output
schema per layer is the primary schema extended by the mapping's new
fields.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		req := types.MergeRequest{
			Mode:        types.ModeMapped,
			Primary:     args[0],
			Secondary:   args[1],
			Output:      fuseOutput,
			Layers:      fuseLayers,
			DefaultCRS:  types.CRS(cfg.GetString(cfgKeyDefaultCRS)),
			MappingFile: fuseMapping,
			Overwrite:   fuseForce || cfg.GetBool(cfgKeyOverwriteOutput),
		}
		rep, err := orch.MergeMapped(req)
		return reportResult(rep, err)
	},
}

func init() {
	fuseCmd.Flags().StringVarP(&fuseOutput, "output", "o", "", "output container path (required)")
	fuseCmd.Flags().StringVarP(&fuseMapping, "mapping", "m", "", "mapping document applied to every fused layer")
	fuseCmd.Flags().StringArrayVar(&fuseLayers, "layer", nil, "restrict the fuse to a layer (repeatable)")
	fuseCmd.Flags().BoolVar(&fuseForce, "force", false, "replace an existing output container")
	fuseCmd.MarkFlagRequired("output")
}
