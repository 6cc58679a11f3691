// Copyright 2024 Gustavo C. Viegas. All rights reserved.

package pass

// StateTracker decides, while iterating a pass's draw bins in order,
// which of the three independent rebind axes actually need a new
// command: pipeline, vertex buffer, and material-UBO. Each axis is
// keyed by a different field of the bin's draw key, so a run of bins
// that only differs by, say, data-size class rebinds only the
// material UBO.
type StateTracker struct {
	havePipeline bool
	materialSlot int32
	vertexLayout uint32

	haveVertex    bool
	lastVtxLayout uint32

	haveMaterial bool
	lastDataSize uint8
}

// NeedsPipeline reports whether a bin with the given material slot
// and vertex layout requires a new SetPipeline call, and records it
// as the current state regardless of the answer (a skipped bin must
// not desync the tracker from the commands actually recorded).
func (t *StateTracker) NeedsPipeline(materialSlot int32, vertexLayout uint32) bool {
	need := !t.havePipeline || materialSlot != t.materialSlot || vertexLayout != t.vertexLayout
	t.havePipeline = true
	t.materialSlot = materialSlot
	t.vertexLayout = vertexLayout
	return need
}

// NeedsVertexBuf reports whether vertexLayout differs from the last
// bin's, which is the only condition that changes which vertex
// buffers are bound.
func (t *StateTracker) NeedsVertexBuf(vertexLayout uint32) bool {
	need := !t.haveVertex || vertexLayout != t.lastVtxLayout
	t.haveVertex = true
	t.lastVtxLayout = vertexLayout
	return need
}

// NeedsMaterialRebind reports whether dataSizeClass differs from the
// last bin's, the only condition that requires rebinding the
// material-UBO range.
func (t *StateTracker) NeedsMaterialRebind(dataSizeClass uint8) bool {
	need := !t.haveMaterial || dataSizeClass != t.lastDataSize
	t.haveMaterial = true
	t.lastDataSize = dataSizeClass
	return need
}

// Reset clears the tracker, forcing every axis to rebind on the next
// query. Call between passes, since pipeline/vertex/material state
// never carries across pass boundaries.
func (t *StateTracker) Reset() { *t = StateTracker{} }

// BinReady reports whether a bin's referenced mesh, material and
// textures are all ready for drawing; not-ready bins are skipped, not
// treated as an error.
func BinReady(meshReady, materialReady, texturesReady bool) bool {
	return meshReady && materialReady && texturesReady
}
