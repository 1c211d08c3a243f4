// Template command: generate a mapping document for review.
package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/meridianworks/geofuse/pkg/types"
)

var (
	templateLayer            string
	templateOutput           string
	templateIncludeUnmatched bool
	templateForce            bool
)

var templateCmd = &cobra.Command{
	Use:   "template <primary> <secondary>",
	Short: "Generate a mapping template between two containers",
	Long: `Template writes the default field mapping between one layer of the two
containers as a JSON document meant to be reviewed and edited before a
fuse. Source fields matching a primary field by name get a direct or
type-converting rule; unmatched fields are left out unless
--include-unmatched is set.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		req := types.TemplateRequest{
			Primary:          args[0],
			Secondary:        args[1],
			Layer:            templateLayer,
			Output:           templateOutput,
			IncludeUnmatched: templateIncludeUnmatched,
			Overwrite:        templateForce,
		}
		m, err := orch.GenerateTemplate(req)
		if err != nil {
			return err
		}
		fmt.Printf("wrote %s (%d rules)\n", templateOutput, m.Len())
		return nil
	},
}

func init() {
	templateCmd.Flags().StringVarP(&templateLayer, "layer", "l", "", "layer to map (required)")
	templateCmd.Flags().StringVarP(&templateOutput, "output", "o", "", "mapping document path (required)")
	templateCmd.Flags().BoolVar(&templateIncludeUnmatched, "include-unmatched", false, "emit new_field rules for unmatched source fields")
	templateCmd.Flags().BoolVar(&templateForce, "force", false, "replace an existing mapping document")
	templateCmd.MarkFlagRequired("layer")
	templateCmd.MarkFlagRequired("output")
}
