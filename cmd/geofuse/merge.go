// Merge command: concatenate containers that share a schema.
package main

import (
	"github.com/spf13/cobra"

	"github.com/meridianworks/geofuse/pkg/types"
)

var (
	mergeOutput string
	mergeLayers []string
	mergeForce  bool
)

var mergeCmd = &cobra.Command{
	Use:   "merge <container> <container>...",
	Short: "Merge containers that share a schema",
	Long: `Merge concatenates the features of two or more containers whose layers
share a schema. The first container is the baseline: its layer set,
schemas and coordinate references define the output. Layers of later
containers that disagree with the baseline schema are skipped with a
diagnostic.`,
	Args: cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		req := types.MergeRequest{
			Mode:       types.ModeUniform,
			Inputs:     args,
			Output:     mergeOutput,
			Layers:     mergeLayers,
			DefaultCRS: types.CRS(cfg.GetString(cfgKeyDefaultCRS)),
			Overwrite:  mergeForce || cfg.GetBool(cfgKeyOverwriteOutput),
		}
		rep, err := orch.MergeUniform(req)
		return reportResult(rep, err)
	},
}

func init() {
	mergeCmd.Flags().StringVarP(&mergeOutput, "output", "o", "", "output container path (required)")
	mergeCmd.Flags().StringArrayVar(&mergeLayers, "layer", nil, "restrict the merge to a layer (repeatable)")
	mergeCmd.Flags().BoolVar(&mergeForce, "force", false, "replace an existing output container")
	mergeCmd.MarkFlagRequired("output")
}
