package fusion

import (
	"github.com/google/uuid"

	"github.com/meridianworks/geofuse/pkg/types"
)

// Session states, in order of progression. A session that hits a fatal
// error moves to StateFailed from wherever it was.
const (
	StateIdle           = "idle"
	StateValidating     = "validating"
	StateCreatingOutput = "creating_output"
	StateProcessing     = "processing"
	StateFinalizing     = "finalizing"
	StateDone           = "done"
	StateFailed         = "failed"
)

// Report describes the outcome of one merge session: where it ended up,
// what was written, and every non-fatal problem encountered on the way.
type Report struct {
	SessionID   string             `json:"session_id"`
	State       string             `json:"state"`
	LayerCounts map[string]int     `json:"layer_counts"`
	Diagnostics []types.Diagnostic `json:"diagnostics,omitempty"`
}

func newReport() *Report {
	return &Report{
		SessionID:   uuid.NewString(),
		State:       StateIdle,
		LayerCounts: map[string]int{},
	}
}

func (r *Report) diag(d types.Diagnostic) {
	r.Diagnostics = append(r.Diagnostics, d)
}

// fail marks the report failed and returns err unchanged, so call sites
// can write "return rep.fail(err)".
func (r *Report) fail(err error) error {
	r.State = StateFailed
	return err
}
