// Copyright 2024 Gustavo C. Viegas. All rights reserved.

// Package raytrace assembles the acceleration structures that back
// the optional ray tracing pass: a BLAS per distinct mesh slot and a
// per-frame TLAS instancing the gathered object set against them.
//
// The backend that ships today (driver/vk) returns driver.ErrNoRayTracing
// from both NewBLAS and NewTLAS, so every entry point here treats that
// error as "ray tracing unsupported" and degrades to an empty result
// rather than failing the frame - consistent with pass.IDRayTracing's
// documented skip behavior.
package raytrace

import (
	"errors"

	"github.com/shard3d/shard/driver"
	"github.com/shard3d/shard/engine"
	"github.com/shard3d/shard/engine/objset"
	"github.com/shard3d/shard/linear"
)

// blasBuildPerCall throttles how many new BLAS a single Build call
// starts, spreading a large batch of newly-loaded meshes across
// several frames instead of stalling one.
const blasBuildPerCall = 16

// MeshLookup resolves a gathered object's mesh slot to the mesh that
// owns its geometry and the number of primitives to build BLAS
// geometry from. The render core keeps no registry of its own mapping
// slots to meshes; the embedder supplies one.
type MeshLookup func(meshSlot int32) (mesh *engine.Mesh, primCount int)

// BlasSet owns one BLAS per mesh slot, built lazily and throttled: a
// slot queued by Queue is not necessarily built by the next Build
// call, only eventually. A slot whose mesh cannot produce any
// triangle geometry, or whose backend lacks ray tracing support, is
// marked unsupported and never retried.
type BlasSet struct {
	blas        map[int32]driver.BLAS
	pending     []int32
	queued      map[int32]bool
	unsupported map[int32]bool
}

// NewBlasSet creates an empty BlasSet.
func NewBlasSet() *BlasSet {
	return &BlasSet{
		blas:        make(map[int32]driver.BLAS),
		queued:      make(map[int32]bool),
		unsupported: make(map[int32]bool),
	}
}

// Queue marks meshSlot as needing a BLAS, unless it already has one,
// is already queued, or was previously found unsupported.
func (s *BlasSet) Queue(meshSlot int32) {
	if s.blas[meshSlot] != nil || s.queued[meshSlot] || s.unsupported[meshSlot] {
		return
	}
	s.queued[meshSlot] = true
	s.pending = append(s.pending, meshSlot)
}

// Build constructs up to blasBuildPerCall queued BLAS, resolving each
// slot's geometry through lookup. It returns a non-nil error only for
// failures unrelated to ray tracing support (e.g. an out-of-memory
// allocation); a backend that lacks ray tracing entirely yields a nil
// error, and each slot taken from the queue by this call is marked
// unsupported (slots left queued beyond the per-call limit are not).
func (s *BlasSet) Build(gpu driver.GPU, lookup MeshLookup) error {
	n := len(s.pending)
	if n > blasBuildPerCall {
		n = blasBuildPerCall
	}
	batch := s.pending[:n]
	s.pending = s.pending[n:]
	for _, slot := range batch {
		delete(s.queued, slot)
		mesh, primCount := lookup(slot)
		if mesh == nil {
			s.unsupported[slot] = true
			continue
		}
		var geoms []driver.BLASGeometry
		for p := 0; p < primCount; p++ {
			g, ok := mesh.BLASGeometry(p)
			if !ok {
				continue
			}
			geoms = append(geoms, g)
		}
		if len(geoms) == 0 {
			s.unsupported[slot] = true
			continue
		}
		b, err := gpu.NewBLAS(geoms)
		if err != nil {
			if errors.Is(err, driver.ErrNoRayTracing) {
				s.unsupported[slot] = true
				continue
			}
			return err
		}
		s.blas[slot] = b
	}
	return nil
}

// Get returns the BLAS built for meshSlot, if any.
func (s *BlasSet) Get(meshSlot int32) (driver.BLAS, bool) {
	b, ok := s.blas[meshSlot]
	return b, ok
}

// Destroy releases every built BLAS.
func (s *BlasSet) Destroy() {
	for _, b := range s.blas {
		b.Destroy()
	}
	s.blas = make(map[int32]driver.BLAS)
}

// BuildInstances assembles the TLASInstance list for objs' opaque and
// alpha-cutout objects, skipping any whose mesh slot has no BLAS yet
// (still queued, or found unsupported). Transparent objects are
// excluded: ray queries test opaque occluders and closest hits, not
// blended surfaces. The result is ready to pass to driver.TLAS.Build,
// which the caller must invoke from its own BeginBlit/EndBlit section.
func BuildInstances(objs *objset.Set, blas *BlasSet) []driver.TLASInstance {
	records := objs.Records()
	instances := make([]driver.TLASInstance, 0, len(objs.Opaque)+len(objs.AlphaCutout))
	appendAll := func(list []objset.Object) {
		for _, o := range list {
			b, ok := blas.Get(o.Key.MeshSlot)
			if !ok {
				continue
			}
			world := records[o.Index].World()
			instances = append(instances, driver.TLASInstance{
				Blas:      b,
				Transform: rowMajor3x4(&world),
				CustomIdx: uint32(o.Index),
				Mask:      0xff,
			})
		}
	}
	appendAll(objs.Opaque)
	appendAll(objs.AlphaCutout)
	return instances
}

// rowMajor3x4 converts m, a column-major linear.M4, into the
// row-major 3x4 affine transform driver.TLASInstance expects.
func rowMajor3x4(m *linear.M4) [12]float32 {
	var out [12]float32
	for r := 0; r < 3; r++ {
		for c := 0; c < 4; c++ {
			out[r*4+c] = m[c][r]
		}
	}
	return out
}
