// Inspect command: describe a container's layers.
package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/meridianworks/geofuse/internal/geopackage"
	"github.com/meridianworks/geofuse/pkg/types"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <container>",
	Short: "Describe the layers of a container",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := geopackage.NewReader().Open(args[0])
		if err != nil {
			return err
		}
		defer c.Close()

		var infos []types.LayerInfo
		for _, layer := range c.Layers() {
			schema, err := c.Schema(layer)
			if err != nil {
				return err
			}
			crs, err := c.CRS(layer)
			if err != nil {
				return err
			}
			count, err := c.FeatureCount(layer)
			if err != nil {
				return err
			}
			infos = append(infos, types.LayerInfo{
				Name:         layer,
				Schema:       schema,
				CRS:          crs,
				FeatureCount: count,
			})
		}

		if flagJSON {
			data, err := json.MarshalIndent(infos, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(data))
			return nil
		}

		for _, info := range infos {
			crs := string(info.CRS)
			if crs == "" {
				crs = "undeclared"
			}
			fmt.Printf("%s: %s, %s, %d features\n",
				info.Name, info.Schema.GeometryKind(), crs, info.FeatureCount)
			for _, f := range info.Schema.Fields() {
				fmt.Printf("  %s %s\n", f.Name, f.Type)
			}
		}
		return nil
	},
}
