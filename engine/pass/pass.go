// Copyright 2024 Gustavo C. Viegas. All rights reserved.

// Package pass registers the render core's fixed set of passes, caches
// their per-material graphics pipelines, and exposes the typed
// descriptor-binding API each pass's command recording uses.
package pass

import (
	"fmt"

	"github.com/shard3d/shard/driver"
)

// ID is a stable integer identifying one of the nine registered
// passes. Values are part of the wire contract between C4-C6's
// gathered data and C7's recording order; they must never be
// renumbered.
type ID int

const (
	IDHighZ ID = iota
	IDShadowOpaque
	IDShadowAlphaCutout
	IDDepthPrepassOpaque
	IDDepthPrepassAlphaCutout
	IDColorOpaque
	IDColorAlphaCutout
	IDTransparent
	IDRayTracing // optional; degrades to a skip when the backend lacks BLAS/TLAS support
	idCount
)

func (id ID) String() string {
	names := [idCount]string{
		"high_z", "shadow_opaque", "shadow_alpha_cutout",
		"depth_prepass_opaque", "depth_prepass_alpha_cutout",
		"color_opaque", "color_alpha_cutout", "transparent", "ray_tracing",
	}
	if id < 0 || id >= idCount {
		return fmt.Sprintf("pass.ID(%d)", int(id))
	}
	return names[id]
}

// RecordOrder holds the fixed, ordered sequence of recognized pass IDs.
// RecordOrder runs shadow -> depth prepass -> HZB -> cluster -> opaque
// color -> transparent -> effects -> present; note that IDHighZ's
// pipeline is built here but the HZB build itself runs as a compute
// stage in the effect chain, consuming the previous frame's depth.
var RecordOrder = [...]ID{
	IDShadowOpaque, IDShadowAlphaCutout,
	IDDepthPrepassOpaque, IDDepthPrepassAlphaCutout,
	IDHighZ,
	IDColorOpaque, IDColorAlphaCutout,
	IDTransparent,
	IDRayTracing,
}

// BuildFunc creates the graphics pipeline for one (pass, material)
// combination. Runner calls it at most once per combination.
type BuildFunc func(id ID, materialSlot int32) (driver.Pipeline, error)

// Runner owns, per registered pass, a cache of graphics pipelines
// keyed by material slot, and that pass's FRAMES_IN_FLIGHT-indexed
// descriptor table.
type Runner struct {
	framesInFlight int
	pipelines      []map[int32]driver.Pipeline
	descTables     [][]driver.DescTable // [pass][frame]
}

// NewRunner creates a Runner. descTables supplies one already-built
// driver.DescTable per (pass, frame-in-flight) slot, indexed
// descTables[id][frame]; table layout is pass-specific and is built
// once, outside the hot per-frame path. len(descTables) must be
// idCount.
func NewRunner(framesInFlight int, descTables [][]driver.DescTable) *Runner {
	r := &Runner{
		framesInFlight: framesInFlight,
		pipelines:      make([]map[int32]driver.Pipeline, idCount),
		descTables:     descTables,
	}
	for i := range r.pipelines {
		r.pipelines[i] = make(map[int32]driver.Pipeline)
	}
	return r
}

// Pipeline returns the cached pipeline for (id, materialSlot),
// building and caching it via build on first use.
func (r *Runner) Pipeline(id ID, materialSlot int32, build BuildFunc) (driver.Pipeline, error) {
	if pl, ok := r.pipelines[id][materialSlot]; ok {
		return pl, nil
	}
	pl, err := build(id, materialSlot)
	if err != nil {
		return nil, err
	}
	r.pipelines[id][materialSlot] = pl
	return pl, nil
}

// DescTable returns the descriptor table for (id, frame).
func (r *Runner) DescTable(id ID, frame int) driver.DescTable {
	return r.descTables[id][frame]
}

// Destroy releases every cached pipeline.
func (r *Runner) Destroy() {
	for i := range r.pipelines {
		for _, pl := range r.pipelines[i] {
			pl.Destroy()
		}
		r.pipelines[i] = nil
	}
}
