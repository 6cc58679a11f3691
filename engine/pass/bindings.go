// Copyright 2024 Gustavo C. Viegas. All rights reserved.

package pass

import (
	"github.com/shard3d/shard/driver"
	"github.com/shard3d/shard/engine/internal/shader"
)

// Bindings is a small typed descriptor-writing API: each method
// writes into one pass's frame-indexed descriptor set. All writes
// must happen on the render thread before the command buffer
// referencing the set is submitted.
type Bindings struct {
	heap  driver.DescHeap
	cpy   int
	start int
}

// NewBindings wraps the descriptor heap copy backing one pass's
// frame-in-flight slot.
func NewBindings(heap driver.DescHeap, frame int) Bindings {
	return Bindings{heap: heap, cpy: frame}
}

// Binding numbers within a pass's descriptor heap. A pass that does
// not declare a given layout (e.g. the shadow pass has no AO image)
// simply never calls the corresponding method.
const (
	nrSunShadow     = 0
	nrAOImage       = 1
	nrLightClusters = 2
	nrObjectData    = 3
	nrObjectIDs     = 4
	nrHZB           = 5
)

// UpdateSunShadowBindings rebinds the constant range holding the fit
// sun cascades' view/projection matrices for this frame. cascadeBuf
// must already hold the cascade data, uploaded by the caller.
func (b Bindings) UpdateSunShadowBindings(cascadeBuf driver.Buffer, size int64) {
	b.heap.SetBuffer(b.cpy, nrSunShadow, b.start, []driver.Buffer{cascadeBuf}, []int64{0}, []int64{size})
}

// UpdateAOImageBinding binds the ambient-occlusion texture produced
// by the effect chain's AO stage.
func (b Bindings) UpdateAOImageBinding(view driver.ImageView) {
	b.heap.SetImage(b.cpy, nrAOImage, b.start, []driver.ImageView{view})
}

// UpdateLightClustersBinding rebinds the froxel grid's flattened
// light-index buffer for this frame.
func (b Bindings) UpdateLightClustersBinding(buf driver.Buffer, size int64) {
	b.heap.SetBuffer(b.cpy, nrLightClusters, b.start, []driver.Buffer{buf}, []int64{0}, []int64{size})
}

// UpdateObjectDataBindings binds the per-object DrawableLayout record
// array and the parallel object-ID buffer gathered by C4.
func (b Bindings) UpdateObjectDataBindings(objectData, objectIDs driver.Buffer, recordCount int) {
	const recordSize = int64(len(shader.DrawableLayout{})) * 4
	b.heap.SetBuffer(b.cpy, nrObjectData, b.start, []driver.Buffer{objectData}, []int64{0}, []int64{int64(recordCount) * recordSize})
	b.heap.SetBuffer(b.cpy, nrObjectIDs, b.start, []driver.Buffer{objectIDs}, []int64{0}, []int64{int64(recordCount) * 4})
}

// UpdateHZBBinding binds the hierarchical-Z pyramid built by C8's HZB
// stage, consumed by C5's occlusion test next frame.
func (b Bindings) UpdateHZBBinding(view driver.ImageView) {
	b.heap.SetImage(b.cpy, nrHZB, b.start, []driver.ImageView{view})
}
