// Copyright 2024 Gustavo C. Viegas. All rights reserved.

// Package objset gathers a frame's visible renderables from the
// world view, computes draw keys, and classifies them into the
// opaque/alpha-cutout/transparent lists the bin generator consumes.
package objset

import (
	"sort"

	"github.com/shard3d/shard/engine/internal/shader"
	"github.com/shard3d/shard/engine/internal/worldview"
	"github.com/shard3d/shard/linear"
)

// Key orders renderables so that a scan over a sorted sequence
// produces runs sharing pipeline/layout/material bindings (material
// slot, material-instance slot, mesh slot, vertex-layout bits,
// data-size class).
type Key struct {
	MaterialSlot  int32
	MatInstSlot   int32
	MeshSlot      int32
	VertexLayout  uint32
	DataSizeClass uint8
}

// Less implements the total order used to sort object indices.
func (k Key) Less(o Key) bool {
	switch {
	case k.MaterialSlot != o.MaterialSlot:
		return k.MaterialSlot < o.MaterialSlot
	case k.MatInstSlot != o.MatInstSlot:
		return k.MatInstSlot < o.MatInstSlot
	case k.MeshSlot != o.MeshSlot:
		return k.MeshSlot < o.MeshSlot
	case k.VertexLayout != o.VertexLayout:
		return k.VertexLayout < o.VertexLayout
	default:
		return k.DataSizeClass < o.DataSizeClass
	}
}

func keyOf(r *worldview.Renderable) Key {
	return Key{
		MaterialSlot:  r.MaterialSlot,
		MatInstSlot:   r.MatInstSlot,
		MeshSlot:      r.MeshSlot,
		VertexLayout:  r.VertexLayoutBit,
		DataSizeClass: r.DataSizeClass,
	}
}

// Object is one gathered, keyed renderable. Index is the object's
// position in the owning Set's ids/records slices, i.e. the value
// that ends up as DrawIndirectCmd.FirstInstance for its bin.
type Object struct {
	Key    Key
	Entity worldview.EntityRef
	Index  int
	Z      float32 // valid only in the transparent list

	srcMode worldview.RenderMode
}

// Set is the gathered, sorted object set for one frame, split into
// the three rendering-mode buckets. Static and dynamic renderables
// are gathered separately so a clean frame (StaticDirty == false)
// can skip recomputing the static portion's records, while the
// cached static objects still take part in every frame's bins.
type Set struct {
	Opaque      []Object
	AlphaCutout []Object
	Transparent []Object

	// records holds one GPU-ready shader.DrawableLayout per gathered
	// object, indexed the same way as Object.Index.
	records []shader.DrawableLayout

	// The static region: cached across frames so a non-dirty frame
	// can reuse it instead of recomputing and re-writing records.
	staticObjects []Object
	staticRecords []shader.DrawableLayout

	staticDirty    int // ticks remaining that must still rewrite the static region
	framesInFlight int
}

// New creates an empty Set. framesInFlight must equal the
// orchestrator's FRAMES_IN_FLIGHT constant; it governs how many
// subsequent frames a static_dirty pulse keeps rewriting the static
// region for.
func New(framesInFlight int) *Set {
	return &Set{framesInFlight: framesInFlight}
}

// Records returns the GPU-ready per-object records, indexed by
// Object.Index.
func (s *Set) Records() []shader.DrawableLayout { return s.records }

// Gather rebuilds the set from a world-view snapshot. Disabled
// entities are skipped. The static list's records are only
// recomputed when view.StaticDirty() is true or the dirty pulse from
// a previous frame has not yet fully propagated through
// FRAMES_IN_FLIGHT frames; the cached static objects still take part
// in every frame's bucket classification and sort.
func (s *Set) Gather(view worldview.View) {
	if view.StaticDirty() {
		s.staticDirty = s.framesInFlight
	}
	rebuildStatic := s.staticDirty > 0
	if rebuildStatic {
		s.staticDirty--
	}

	if rebuildStatic {
		stat := view.StaticRenderables()
		s.staticObjects = s.staticObjects[:0]
		if cap(s.staticRecords) < len(stat) {
			s.staticRecords = make([]shader.DrawableLayout, 0, len(stat))
		} else {
			s.staticRecords = s.staticRecords[:0]
		}
		for i := range stat {
			obj, rec, ok := build(&stat[i], len(s.staticObjects))
			if !ok {
				continue
			}
			s.staticObjects = append(s.staticObjects, obj)
			s.staticRecords = append(s.staticRecords, rec)
		}
	}

	dyn := view.DynamicRenderables()
	dynObjects := make([]Object, 0, len(dyn))
	dynRecords := make([]shader.DrawableLayout, 0, len(dyn))
	for i := range dyn {
		obj, rec, ok := build(&dyn[i], len(s.staticObjects)+len(dynObjects))
		if !ok {
			continue
		}
		dynObjects = append(dynObjects, obj)
		dynRecords = append(dynRecords, rec)
	}

	total := len(s.staticObjects) + len(dynObjects)
	if cap(s.records) < total {
		s.records = make([]shader.DrawableLayout, total)
	} else {
		s.records = s.records[:total]
	}
	copy(s.records, s.staticRecords)
	copy(s.records[len(s.staticObjects):], dynRecords)

	s.Opaque = s.Opaque[:0]
	s.AlphaCutout = s.AlphaCutout[:0]
	s.Transparent = s.Transparent[:0]
	classify := func(obj Object) {
		switch obj.srcMode {
		case worldview.ModeOpaque:
			s.Opaque = append(s.Opaque, obj)
		case worldview.ModeAlphaCutout:
			s.AlphaCutout = append(s.AlphaCutout, obj)
		case worldview.ModeTransparent:
			s.Transparent = append(s.Transparent, obj)
		}
	}
	for _, obj := range s.staticObjects {
		classify(obj)
	}
	for _, obj := range dynObjects {
		classify(obj)
	}

	sort.SliceStable(s.Opaque, func(i, j int) bool { return s.Opaque[i].Key.Less(s.Opaque[j].Key) })
	sort.SliceStable(s.AlphaCutout, func(i, j int) bool { return s.AlphaCutout[i].Key.Less(s.AlphaCutout[j].Key) })
	// Transparent objects are never key-sorted: back-to-front
	// view-space depth order is required instead. This is
	// intentionally coarse: sorting by object position, not
	// per-triangle, can still show visible ordering errors for large
	// transparent meshes that cross the camera's near plane.
	sort.SliceStable(s.Transparent, func(i, j int) bool { return s.Transparent[i].Z > s.Transparent[j].Z })
}

// build computes the GPU record and bucket key for one renderable at
// the given record index. ok is false for disabled entities, which
// contribute neither a record nor an Object.
func build(r *worldview.Renderable, idx int) (obj Object, rec shader.DrawableLayout, ok bool) {
	if r.Disabled {
		return
	}
	world := r.Model
	var rot, rotInv linear.M3
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			rot[i][j] = world[i][j]
		}
	}
	rotInv.Invert(&rot)
	var normal linear.M4
	normal.I()
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			normal[i][j] = rotInv[j][i] // transpose of the inverse
		}
	}
	rec.SetWorld(&world)
	rec.SetNormal(&normal)
	rec.SetID(uint32(r.Entity.ID))

	obj = Object{Key: keyOf(r), Entity: r.Entity, Index: idx, Z: r.TransparentZ, srcMode: r.Mode}
	ok = true
	return
}
