// Copyright 2024 Gustavo C. Viegas. All rights reserved.

// Package cull builds draw bins from a sorted object set and drives
// the GPU compute pass that turns visible bins into indexed indirect
// draw records.
//
// The CPU side (BuildBins) only ever scans a sequence that is already
// key-sorted by objset.Set.Gather; it never sorts. The GPU side
// (Culler) dispatches a compute shader that frustum- and
// HZB-occlusion-tests one object per invocation and appends a
// DrawIndirectCmd to the bin's region of the alternate's indirect
// buffer when the object survives.
package cull

import (
	"time"
	"unsafe"

	"github.com/shard3d/shard/driver"
	"github.com/shard3d/shard/engine/internal/shader"
	"github.com/shard3d/shard/engine/objset"
)

// DrawBin is one contiguous run of objects sharing a draw key: a
// single pipeline/material/mesh/vertex-layout/data-size combination.
// Offset/Count index into the objset.Set's object list (and thus,
// 1:1, the record/indirect-command ranges derived from it).
type DrawBin struct {
	Key    objset.Key
	Offset int
	Count  int
}

// BuildBins scans a key-sorted object slice and returns one DrawBin
// per contiguous run of equal keys. objs must already be sorted by
// Key.Less (as objset.Set.Gather leaves its Opaque/AlphaCutout
// lists); BuildBins performs no sorting of its own.
func BuildBins(objs []objset.Object) []DrawBin {
	var bins []DrawBin
	for i := 0; i < len(objs); {
		j := i + 1
		for j < len(objs) && objs[j].Key == objs[i].Key {
			j++
		}
		bins = append(bins, DrawBin{Key: objs[i].Key, Offset: i, Count: j - i})
		i = j
	}
	return bins
}

// cullWorkgroupSize must match the compute shader's declared
// local_size_x.
const cullWorkgroupSize = 64

// consumerWaitTimeout bounds how long a Cull call will wait for the
// prior frame's indirect-draw pass to finish reading the alternate
// it is about to overwrite.
const consumerWaitTimeout = 2 * time.Second

// Culler owns the two ping-pong alternates of GPU-visible indirect
// draw/count buffers and the compute pipeline that populates them.
// Alternate index is frame_idx % 2.
type Culler struct {
	pipeline  driver.Pipeline
	descHeap  driver.DescHeap
	descTable driver.DescTable

	indirect [2]driver.Buffer
	count    [2]driver.Buffer
	cullData [2]driver.Buffer

	// consumerJob[alt] is the Job of the indirect-draw pass that last
	// read alternate alt; Cull waits on it before overwriting that
	// alternate, so a reset can never race the pass still consuming
	// the previous frame's counts (see the note on ping-pong timing
	// in Cull's doc).
	consumerJob [2]*driver.Job

	maxDraws int
}

// NewCuller creates a Culler whose indirect buffers can hold up to
// maxDraws records each, running cullFunc as the culling compute
// shader on gpu. cullFunc's descriptor table is: binding 0 a
// CullLayout constant, binding 1 the per-object DrawableLayout array
// (read), binding 2 the indirect-command buffer (write), binding 3
// the draw count (write).
func NewCuller(gpu driver.GPU, maxDraws int, cullFunc driver.ShaderFunc) (*Culler, error) {
	dh, err := gpu.NewDescHeap([]driver.Descriptor{
		{Type: driver.DConstant, Stages: driver.SCompute, Nr: 0, Len: 1},
		{Type: driver.DBuffer, Stages: driver.SCompute, Nr: 1, Len: 1},
		{Type: driver.DBuffer, Stages: driver.SCompute, Nr: 2, Len: 1},
		{Type: driver.DBuffer, Stages: driver.SCompute, Nr: 3, Len: 1},
	})
	if err != nil {
		return nil, err
	}
	if err = dh.New(2); err != nil { // one copy per alternate
		dh.Destroy()
		return nil, err
	}
	dt, err := gpu.NewDescTable([]driver.DescHeap{dh})
	if err != nil {
		dh.Destroy()
		return nil, err
	}

	pl, err := gpu.NewPipeline(&driver.CompState{
		Func: cullFunc,
		Desc: dt,
	})
	if err != nil {
		dt.Destroy()
		return nil, err
	}

	c := &Culler{pipeline: pl, descHeap: dh, descTable: dt, maxDraws: maxDraws}
	const cmdSize = 20 // sizeof(driver.DrawIndirectCmd), GPU-packed
	for i := range c.indirect {
		c.indirect[i], err = gpu.NewBuffer(int64(maxDraws*cmdSize), false, driver.UIndirectDraw|driver.UShaderWrite)
		if err != nil {
			c.Destroy()
			return nil, err
		}
		c.count[i], err = gpu.NewBuffer(4, false, driver.UIndirectDraw|driver.UShaderWrite)
		if err != nil {
			c.Destroy()
			return nil, err
		}
		c.cullData[i], err = gpu.NewBuffer(int64(len(shader.CullLayout{}))*4, true, driver.UShaderRead)
		if err != nil {
			c.Destroy()
			return nil, err
		}
	}
	return c, nil
}

// IndirectBuffer returns the indirect-command buffer for alternate
// alt (0 or 1), suitable for driver.CmdBuffer.DrawIndexedIndirectCount.
func (c *Culler) IndirectBuffer(alt int) driver.Buffer { return c.indirect[alt&1] }

// CountBuffer returns the draw-count buffer for alternate alt.
func (c *Culler) CountBuffer(alt int) driver.Buffer { return c.count[alt&1] }

// NotifyConsumed records the Job of the indirect-draw pass that reads
// alternate alt this frame. The next Cull call targeting the same
// alternate waits on it before resetting and overwriting the count.
func (c *Culler) NotifyConsumed(alt int, job *driver.Job) { c.consumerJob[alt&1] = job }

// Cull resets alternate alt's draw count and dispatches the culling
// compute shader over objectCount candidates, recording commands into
// cb. layout must already describe the current frame's frustum,
// camera position and HZB dimensions; objectData is the per-object
// DrawableLayout array gathered by C4, one record per candidate in
// [0, objectCount). Cull writes layout into its own host-visible
// constant buffer and rebinds both descriptors before dispatching, so
// the shader never reads stale data left over from a previous frame.
//
// The reset is sequenced strictly behind both the prior writer (this
// same cb, program order) and the prior reader: Cull first waits for
// the Job registered via NotifyConsumed for this alternate, so the
// zero-fill can never race the indirect-draw pass still reading the
// previous frame's counts from the same alternate.
func (c *Culler) Cull(cb driver.CmdBuffer, alt int, layout *shader.CullLayout, objectData driver.Buffer, objectCount int) error {
	alt &= 1
	if err := c.awaitConsumer(alt); err != nil {
		return err
	}
	layout.SetObjectCount(uint32(objectCount))
	copy(c.cullData[alt].Bytes(), unsafe.Slice((*byte)(unsafe.Pointer(layout)), len(layout)*4))

	const recordSize = int64(len(shader.DrawableLayout{})) * 4
	c.descHeap.SetBuffer(alt, 0, 0, []driver.Buffer{c.cullData[alt]}, []int64{0}, []int64{c.cullData[alt].Cap()})
	c.descHeap.SetBuffer(alt, 1, 0, []driver.Buffer{objectData}, []int64{0}, []int64{int64(objectCount) * recordSize})

	cb.Fill(c.count[alt], 0, 0, 4)
	cb.SetPipeline(c.pipeline)
	cb.SetDescTableComp(c.descTable, 0, []int{alt})
	groups := (objectCount + cullWorkgroupSize - 1) / cullWorkgroupSize
	if groups > 0 {
		cb.Dispatch(groups, 1, 1)
	}
	return nil
}

func (c *Culler) awaitConsumer(alt int) error {
	job := c.consumerJob[alt]
	if job == nil {
		return nil
	}
	_, err := job.Wait(consumerWaitTimeout)
	return err
}

// Destroy releases the culler's GPU resources.
func (c *Culler) Destroy() {
	for i := range c.indirect {
		if c.indirect[i] != nil {
			c.indirect[i].Destroy()
		}
		if c.count[i] != nil {
			c.count[i].Destroy()
		}
		if c.cullData[i] != nil {
			c.cullData[i].Destroy()
		}
	}
	if c.pipeline != nil {
		c.pipeline.Destroy()
	}
	if c.descTable != nil {
		c.descTable.Destroy()
	}
	if c.descHeap != nil {
		c.descHeap.Destroy()
	}
}
