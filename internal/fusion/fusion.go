// Package fusion orchestrates merge sessions: it owns the input and
// output container handles, drives schema reconciliation and field
// mapping, and accounts for everything in a Report.
package fusion

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/paulmach/orb"
	"github.com/rs/zerolog"

	"github.com/meridianworks/geofuse/internal/mapping"
	"github.com/meridianworks/geofuse/internal/reconcile"
	"github.com/meridianworks/geofuse/pkg/types"
)

// appendBatch is the number of features buffered before a write.
const appendBatch = 256

// Orchestrator runs merge sessions against pluggable container and
// reprojection collaborators. It is stateless between calls; each call is
// one complete session.
type Orchestrator struct {
	reader types.Reader
	writer types.Writer
	reproj types.Reprojector
	log    zerolog.Logger
}

// New builds an Orchestrator.
func New(reader types.Reader, writer types.Writer, reproj types.Reprojector, log zerolog.Logger) *Orchestrator {
	return &Orchestrator{
		reader: reader,
		writer: writer,
		reproj: reproj,
		log:    log.With().Str("component", "fusion").Logger(),
	}
}

// Merge dispatches on the request mode.
func (o *Orchestrator) Merge(req types.MergeRequest) (*Report, error) {
	switch req.Mode {
	case types.ModeUniform:
		return o.MergeUniform(req)
	case types.ModeMapped:
		return o.MergeMapped(req)
	default:
		rep := newReport()
		return rep, rep.fail(types.NewMergeError(types.KindInvalidInput, "",
			"unknown merge mode %q", req.Mode))
	}
}

// MergeUniform concatenates the features of containers sharing one
// schema. The first input is the baseline: its layer set, schemas and CRS
// define the output. A non-baseline container whose layer disagrees with
// the baseline schema is skipped for that layer with a diagnostic rather
// than aborting the session.
func (o *Orchestrator) MergeUniform(req types.MergeRequest) (*Report, error) {
	rep := newReport()
	rep.State = StateValidating
	log := o.log.With().Str("session", rep.SessionID).Logger()
	log.Info().Stringer("request", req).Msg("starting merge")

	if err := req.Validate(); err != nil {
		return rep, rep.fail(err)
	}

	baseline, err := o.reader.Open(req.Inputs[0])
	if err != nil {
		return rep, rep.fail(openError(err, req.Inputs[0]))
	}
	defer baseline.Close()

	// A failed secondary open degrades to a diagnostic; the baseline
	// above is load-bearing and already aborted the session.
	others := make([]types.Container, 0, len(req.Inputs)-1)
	otherPaths := make([]string, 0, len(req.Inputs)-1)
	defer func() {
		for _, c := range others {
			c.Close()
		}
	}()
	for _, path := range req.Inputs[1:] {
		c, err := o.reader.Open(path)
		if err != nil {
			rep.diag(types.Diagnostic{
				Kind:    types.KindIOFailure,
				Message: fmt.Sprintf("skipping container %s: %v", path, err),
			})
			log.Warn().Str("path", path).Err(err).Msg("skipping unreadable container")
			continue
		}
		others = append(others, c)
		otherPaths = append(otherPaths, path)
	}

	layers, missing, err := selectLayers(baseline, req.Layers)
	if err != nil {
		return rep, rep.fail(err)
	}
	for _, l := range missing {
		rep.diag(types.Diagnostic{
			Kind:    types.KindInvalidInput,
			Layer:   l,
			Message: "requested layer not present in the baseline container; dropped from the merge",
		})
	}

	rep.State = StateCreatingOutput
	out, err := o.createOutput(req.Output, req.Overwrite)
	if err != nil {
		return rep, rep.fail(err)
	}
	defer out.Close()

	rep.State = StateProcessing
	for _, layer := range layers {
		schema, err := baseline.Schema(layer)
		if err != nil {
			return rep, rep.fail(types.WrapMergeError(types.KindIOFailure, layer, err, "reading baseline schema"))
		}
		crs, err := baseline.CRS(layer)
		if err != nil {
			return rep, rep.fail(types.WrapMergeError(types.KindIOFailure, layer, err, "reading baseline CRS"))
		}
		crs = orDefault(crs, req.DefaultCRS)
		if err := out.CreateLayer(layer, schema, crs); err != nil {
			return rep, rep.fail(types.WrapMergeError(types.KindIOFailure, layer, err, "creating output layer"))
		}

		n, err := o.copyLayer(out, baseline, layer, crs, crs)
		if err != nil {
			return rep, rep.fail(err)
		}
		rep.LayerCounts[layer] += n

		for i, c := range others {
			if !hasLayer(c, layer) {
				rep.diag(types.Diagnostic{
					Kind:    types.KindSchemaIncompatible,
					Layer:   layer,
					Message: fmt.Sprintf("container %s has no layer %q", otherPaths[i], layer),
				})
				continue
			}
			otherSchema, err := c.Schema(layer)
			if err != nil {
				return rep, rep.fail(types.WrapMergeError(types.KindIOFailure, layer, err, "reading schema"))
			}
			if same, diffs := reconcile.Compare(schema, otherSchema); !same {
				rep.diag(types.Diagnostic{
					Kind:  types.KindSchemaIncompatible,
					Layer: layer,
					Message: fmt.Sprintf("container %s differs from baseline on: %s",
						otherPaths[i], strings.Join(diffs, ", ")),
				})
				log.Warn().Str("layer", layer).Str("path", otherPaths[i]).
					Strs("diffs", diffs).Msg("skipping incompatible layer")
				continue
			}
			otherCRS, err := c.CRS(layer)
			if err != nil {
				return rep, rep.fail(types.WrapMergeError(types.KindIOFailure, layer, err, "reading CRS"))
			}
			otherCRS = orDefault(otherCRS, req.DefaultCRS)
			if err := o.checkCRSPair(layer, otherCRS, crs); err != nil {
				return rep, rep.fail(err)
			}
			n, err := o.copyLayer(out, c, layer, otherCRS, crs)
			if err != nil {
				return rep, rep.fail(err)
			}
			rep.LayerCounts[layer] += n
		}
	}

	rep.State = StateFinalizing
	if err := out.Finalize(); err != nil {
		return rep, rep.fail(types.WrapMergeError(types.KindIOFailure, "", err, "finalizing output"))
	}
	rep.State = StateDone
	log.Info().Interface("layer_counts", rep.LayerCounts).
		Int("diagnostics", len(rep.Diagnostics)).Msg("merge complete")
	return rep, nil
}

// MergeMapped fuses a secondary container into a primary one through a
// field mapping. The primary defines the output layer set and CRS; the
// realized output schema per layer is the primary schema extended by the
// mapping's new fields. Primary features pass through identity-mapped;
// secondary features go through the mapping engine.
func (o *Orchestrator) MergeMapped(req types.MergeRequest) (*Report, error) {
	rep := newReport()
	rep.State = StateValidating
	log := o.log.With().Str("session", rep.SessionID).Logger()
	log.Info().Stringer("request", req).Msg("starting merge")

	if err := req.Validate(); err != nil {
		return rep, rep.fail(err)
	}

	primary, err := o.reader.Open(req.Primary)
	if err != nil {
		return rep, rep.fail(openError(err, req.Primary))
	}
	defer primary.Close()
	secondary, err := o.reader.Open(req.Secondary)
	if err != nil {
		return rep, rep.fail(openError(err, req.Secondary))
	}
	defer secondary.Close()

	layers, missing, err := selectLayers(primary, req.Layers)
	if err != nil {
		return rep, rep.fail(err)
	}
	for _, l := range missing {
		rep.diag(types.Diagnostic{
			Kind:    types.KindInvalidInput,
			Layer:   l,
			Message: "requested layer not present in the primary container; dropped from the merge",
		})
	}

	rep.State = StateCreatingOutput
	out, err := o.createOutput(req.Output, req.Overwrite)
	if err != nil {
		return rep, rep.fail(err)
	}
	defer out.Close()

	rep.State = StateProcessing
	for _, layer := range layers {
		pSchema, err := primary.Schema(layer)
		if err != nil {
			return rep, rep.fail(types.WrapMergeError(types.KindIOFailure, layer, err, "reading primary schema"))
		}
		pCRS, err := primary.CRS(layer)
		if err != nil {
			return rep, rep.fail(types.WrapMergeError(types.KindIOFailure, layer, err, "reading primary CRS"))
		}
		pCRS = orDefault(pCRS, req.DefaultCRS)

		if !hasLayer(secondary, layer) {
			// Copy-through: the layer still appears in the output, built
			// from primary features alone.
			rep.diag(types.Diagnostic{
				Kind:    types.KindSchemaIncompatible,
				Layer:   layer,
				Message: "layer not present in secondary container; primary features copied through",
			})
			if err := out.CreateLayer(layer, pSchema, pCRS); err != nil {
				return rep, rep.fail(types.WrapMergeError(types.KindIOFailure, layer, err, "creating output layer"))
			}
			n, err := o.copyLayer(out, primary, layer, pCRS, pCRS)
			if err != nil {
				return rep, rep.fail(err)
			}
			rep.LayerCounts[layer] = n
			continue
		}

		sSchema, err := secondary.Schema(layer)
		if err != nil {
			return rep, rep.fail(types.WrapMergeError(types.KindIOFailure, layer, err, "reading secondary schema"))
		}
		sCRS, err := secondary.CRS(layer)
		if err != nil {
			return rep, rep.fail(types.WrapMergeError(types.KindIOFailure, layer, err, "reading secondary CRS"))
		}
		sCRS = orDefault(sCRS, req.DefaultCRS)
		if err := o.checkCRSPair(layer, sCRS, pCRS); err != nil {
			return rep, rep.fail(err)
		}

		engine := mapping.NewEngine(log)
		if err := o.resolveMapping(engine, req, layer, sSchema, pSchema); err != nil {
			return rep, rep.fail(err)
		}
		if issues := engine.Validate(sSchema); len(issues) > 0 {
			return rep, rep.fail(types.NewMergeError(types.KindMappingInvalid, layer,
				"mapping rejected: %s", strings.Join(issues, "; ")))
		}
		target, err := reconcile.DeriveTarget(pSchema, sSchema, engine.Mapping())
		if err != nil {
			return rep, rep.fail(err)
		}

		if err := out.CreateLayer(layer, target, pCRS); err != nil {
			return rep, rep.fail(types.WrapMergeError(types.KindIOFailure, layer, err, "creating output layer"))
		}

		// Primary features first. Fields the mapping added stay null.
		n, err := o.copyWidened(out, primary, layer, target)
		if err != nil {
			return rep, rep.fail(err)
		}
		rep.LayerCounts[layer] = n

		n, err = o.fuseLayer(out, secondary, layer, sCRS, pCRS, engine, target, rep)
		if err != nil {
			return rep, rep.fail(err)
		}
		rep.LayerCounts[layer] += n
	}

	rep.State = StateFinalizing
	if err := out.Finalize(); err != nil {
		return rep, rep.fail(types.WrapMergeError(types.KindIOFailure, "", err, "finalizing output"))
	}
	rep.State = StateDone
	log.Info().Interface("layer_counts", rep.LayerCounts).
		Int("diagnostics", len(rep.Diagnostics)).Msg("merge complete")
	return rep, nil
}

// GenerateTemplate writes the default mapping between one layer of the
// two containers as a reviewable document.
func (o *Orchestrator) GenerateTemplate(req types.TemplateRequest) (*types.Mapping, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	primary, err := o.reader.Open(req.Primary)
	if err != nil {
		return nil, openError(err, req.Primary)
	}
	defer primary.Close()
	secondary, err := o.reader.Open(req.Secondary)
	if err != nil {
		return nil, openError(err, req.Secondary)
	}
	defer secondary.Close()

	pSchema, err := primary.Schema(req.Layer)
	if err != nil {
		return nil, types.WrapMergeError(types.KindInvalidInput, req.Layer, err, "primary container")
	}
	sSchema, err := secondary.Schema(req.Layer)
	if err != nil {
		return nil, types.WrapMergeError(types.KindInvalidInput, req.Layer, err, "secondary container")
	}

	engine := mapping.NewEngine(o.log)
	m := engine.Create(sSchema, pSchema, req.IncludeUnmatched)
	if err := engine.SaveFile(req.Output, req.Overwrite); err != nil {
		return nil, err
	}
	o.log.Info().Str("layer", req.Layer).Str("output", req.Output).
		Int("rules", m.Len()).Msg("mapping template written")
	return m, nil
}

// resolveMapping installs the layer's mapping into the engine following
// the precedence: per-layer request mapping, then the shared mapping
// file, then an auto-generated default.
func (o *Orchestrator) resolveMapping(engine *mapping.Engine, req types.MergeRequest, layer string, source, target *types.Schema) error {
	if m, ok := req.Mappings[layer]; ok && m != nil {
		engine.SetMapping(m.Clone())
		return nil
	}
	if req.MappingFile != "" {
		return engine.LoadFile(req.MappingFile)
	}
	engine.Create(source, target, false)
	return nil
}

// copyLayer streams a layer verbatim into the output, reprojecting
// geometry when the source CRS differs from the output CRS.
func (o *Orchestrator) copyLayer(out types.Output, c types.Container, layer string, from, to types.CRS) (int, error) {
	seq, err := c.Features(layer)
	if err != nil {
		return 0, types.WrapMergeError(types.KindIOFailure, layer, err, "reading features")
	}
	defer seq.Close()

	b := newBatcher(out, layer)
	for f, ok := seq.Next(); ok; f, ok = seq.Next() {
		g, err := o.reproj.Reproject(f.Geometry, from, to)
		if err != nil {
			return b.written, types.WrapMergeError(types.KindInvalidInput, layer, err, "reprojecting")
		}
		f.Geometry = g
		if err := b.add(f); err != nil {
			return b.written, err
		}
	}
	if err := seq.Err(); err != nil {
		return b.written, types.WrapMergeError(types.KindIOFailure, layer, err, "streaming features")
	}
	return b.written, b.flush()
}

// copyWidened streams primary features into a target schema that is a
// superset of theirs. Target fields the feature does not carry come out
// as nulls.
func (o *Orchestrator) copyWidened(out types.Output, c types.Container, layer string, target *types.Schema) (int, error) {
	seq, err := c.Features(layer)
	if err != nil {
		return 0, types.WrapMergeError(types.KindIOFailure, layer, err, "reading features")
	}
	defer seq.Close()

	b := newBatcher(out, layer)
	for f, ok := seq.Next(); ok; f, ok = seq.Next() {
		wide := types.NewFeature(target, f.Geometry)
		for name, v := range f.Properties {
			if target.Has(name) {
				wide.Properties[name] = v
			}
		}
		if err := b.add(wide); err != nil {
			return b.written, err
		}
	}
	if err := seq.Err(); err != nil {
		return b.written, types.WrapMergeError(types.KindIOFailure, layer, err, "streaming features")
	}
	return b.written, b.flush()
}

// fuseLayer streams secondary features through the mapping engine into
// the output, collecting per-value conversion diagnostics on the report.
func (o *Orchestrator) fuseLayer(out types.Output, c types.Container, layer string, from, to types.CRS, engine *mapping.Engine, target *types.Schema, rep *Report) (int, error) {
	seq, err := c.Features(layer)
	if err != nil {
		return 0, types.WrapMergeError(types.KindIOFailure, layer, err, "reading features")
	}
	defer seq.Close()

	b := newBatcher(out, layer)
	for f, ok := seq.Next(); ok; f, ok = seq.Next() {
		g, err := o.reproj.Reproject(f.Geometry, from, to)
		if err != nil {
			return b.written, types.WrapMergeError(types.KindInvalidInput, layer, err, "reprojecting")
		}
		f.Geometry = g
		mapped, diags := engine.Apply(f, layer, target)
		for _, d := range diags {
			rep.diag(d)
		}
		if err := b.add(mapped); err != nil {
			return b.written, err
		}
	}
	if err := seq.Err(); err != nil {
		return b.written, types.WrapMergeError(types.KindIOFailure, layer, err, "streaming features")
	}
	return b.written, b.flush()
}

// createOutput prepares the output path and creates the container. The
// parent directory is created if missing; an occupied path is only
// cleared when overwrite is set.
func (o *Orchestrator) createOutput(path string, overwrite bool) (types.Output, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, types.WrapMergeError(types.KindIOFailure, "", err, "creating output directory")
		}
	}
	if overwrite {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, types.WrapMergeError(types.KindIOFailure, "", err, "removing existing output")
		}
	}
	out, err := o.writer.Create(path)
	if errors.Is(err, types.ErrAlreadyExists) {
		return nil, types.WrapMergeError(types.KindInvalidInput, "", err,
			"output exists; pass overwrite to replace it")
	}
	if err != nil {
		return nil, types.WrapMergeError(types.KindIOFailure, "", err, "creating output container")
	}
	return out, nil
}

// orDefault substitutes the request's default CRS for an undeclared one.
func orDefault(crs, def types.CRS) types.CRS {
	if crs.Undefined() {
		return def
	}
	return crs
}

// checkCRSPair probes the reprojector with a throwaway point so an
// unsupported pair fails before any feature of the layer is streamed.
func (o *Orchestrator) checkCRSPair(layer string, from, to types.CRS) error {
	if _, err := o.reproj.Reproject(orb.Point{}, from, to); err != nil {
		return types.WrapMergeError(types.KindInvalidInput, layer, err, "coordinate references")
	}
	return nil
}

// selectLayers intersects the requested layer filter with the container's
// catalog, in catalog order. An empty filter selects every layer. Filter
// entries the catalog lacks are returned in missing for the caller to
// report; only an empty intersection is an error.
func selectLayers(c types.Container, requested []string) (selected, missing []string, err error) {
	all := c.Layers()
	if len(requested) == 0 {
		return all, nil, nil
	}
	wanted := make(map[string]bool, len(requested))
	for _, l := range requested {
		wanted[l] = true
	}
	for _, l := range all {
		if wanted[l] {
			selected = append(selected, l)
			delete(wanted, l)
		}
	}
	for _, l := range requested {
		if wanted[l] {
			missing = append(missing, l)
		}
	}
	if len(selected) == 0 {
		return nil, nil, types.NewMergeError(types.KindInvalidInput, "",
			"no requested layer is present in the container")
	}
	return selected, missing, nil
}

func hasLayer(c types.Container, layer string) bool {
	for _, l := range c.Layers() {
		if l == layer {
			return true
		}
	}
	return false
}

func openError(err error, path string) error {
	kind := types.KindIOFailure
	if errors.Is(err, types.ErrNotFound) || errors.Is(err, types.ErrInvalidContainer) {
		kind = types.KindInvalidInput
	}
	return types.WrapMergeError(kind, "", err, "opening "+path)
}

// batcher buffers appends so each write hits the output in chunks.
type batcher struct {
	out     types.Output
	layer   string
	buf     []types.Feature
	written int
}

func newBatcher(out types.Output, layer string) *batcher {
	return &batcher{out: out, layer: layer, buf: make([]types.Feature, 0, appendBatch)}
}

func (b *batcher) add(f types.Feature) error {
	b.buf = append(b.buf, f)
	if len(b.buf) >= appendBatch {
		return b.flush()
	}
	return nil
}

func (b *batcher) flush() error {
	if len(b.buf) == 0 {
		return nil
	}
	if err := b.out.Append(b.layer, b.buf...); err != nil {
		return types.WrapMergeError(types.KindIOFailure, b.layer, err, "writing features")
	}
	b.written += len(b.buf)
	b.buf = b.buf[:0]
	return nil
}
