// Shared helpers for geofuse CLI commands.
package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/meridianworks/geofuse/internal/fusion"
	"github.com/meridianworks/geofuse/pkg/types"
)

// reportResult prints the session report and passes the merge error
// through for exit-code mapping. Diagnostics go to stderr so stdout
// stays machine-readable under --json.
func reportResult(rep *fusion.Report, err error) error {
	if rep != nil {
		for _, d := range rep.Diagnostics {
			fmt.Fprintln(os.Stderr, "warning:", d.String())
		}
	}
	if err != nil {
		return err
	}

	if flagJSON {
		data, jerr := json.MarshalIndent(rep, "", "  ")
		if jerr != nil {
			return jerr
		}
		fmt.Println(string(data))
		return nil
	}

	total := 0
	for _, n := range rep.LayerCounts {
		total += n
	}
	fmt.Printf("merged %d features across %d layers (%d warnings)\n",
		total, len(rep.LayerCounts), len(rep.Diagnostics))
	return nil
}

// exitCode maps an error to the CLI exit code. User-correctable
// failures exit 1; environment and I/O failures exit 2.
func exitCode(err error) int {
	if err == nil {
		return exitSuccess
	}
	var me *types.MergeError
	if errors.As(err, &me) {
		switch me.Kind {
		case types.KindInvalidInput, types.KindMappingInvalid, types.KindSchemaIncompatible:
			return exitUserError
		default:
			return exitSysError
		}
	}
	if errors.Is(err, types.ErrNotFound) || errors.Is(err, types.ErrInvalidContainer) ||
		errors.Is(err, types.ErrLayerNotFound) {
		return exitUserError
	}
	return exitSysError
}
