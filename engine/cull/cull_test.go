// Copyright 2024 Gustavo C. Viegas. All rights reserved.

package cull

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/shard3d/shard/driver"
	"github.com/shard3d/shard/engine/internal/shader"
	"github.com/shard3d/shard/engine/objset"
	"github.com/shard3d/shard/linear"
)

func float32FromBytes(b []byte) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(b))
}

func obj(matSlot, matInstSlot, meshSlot int32, layout uint32, size uint8) objset.Object {
	return objset.Object{Key: objset.Key{
		MaterialSlot:  matSlot,
		MatInstSlot:   matInstSlot,
		MeshSlot:      meshSlot,
		VertexLayout:  layout,
		DataSizeClass: size,
	}}
}

func TestBuildBinsEmpty(t *testing.T) {
	if bins := BuildBins(nil); len(bins) != 0 {
		t.Fatalf("have %d bins, want 0", len(bins))
	}
}

func TestBuildBinsSingleRun(t *testing.T) {
	objs := []objset.Object{obj(1, 1, 1, 0, 0), obj(1, 1, 1, 0, 0), obj(1, 1, 1, 0, 0)}
	bins := BuildBins(objs)
	if len(bins) != 1 {
		t.Fatalf("have %d bins, want 1", len(bins))
	}
	if bins[0].Offset != 0 || bins[0].Count != 3 {
		t.Fatalf("have {%d,%d}, want {0,3}", bins[0].Offset, bins[0].Count)
	}
}

// TestBuildBinsContiguousKeyRuns checks the draw-key ordering
// property: scanning a key-sorted sequence must produce bins whose
// material/mesh/layout/size fields are internally constant, with no
// bin's key reappearing after a different key has started a new run.
func TestBuildBinsContiguousKeyRuns(t *testing.T) {
	objs := []objset.Object{
		obj(1, 0, 1, 0, 0),
		obj(1, 0, 1, 0, 0),
		obj(1, 0, 2, 0, 0),
		obj(2, 0, 1, 0, 0),
		obj(2, 0, 1, 0, 0),
		obj(2, 0, 1, 0, 0),
	}
	bins := BuildBins(objs)
	want := []DrawBin{
		{Key: objs[0].Key, Offset: 0, Count: 2},
		{Key: objs[2].Key, Offset: 2, Count: 1},
		{Key: objs[3].Key, Offset: 3, Count: 3},
	}
	if len(bins) != len(want) {
		t.Fatalf("have %d bins, want %d", len(bins), len(want))
	}
	for i := range want {
		if bins[i] != want[i] {
			t.Fatalf("bin %d: have %+v, want %+v", i, bins[i], want[i])
		}
	}
	seen := map[objset.Key]bool{}
	for _, b := range bins {
		if seen[b.Key] {
			t.Fatalf("key %+v reappeared in a later bin", b.Key)
		}
		seen[b.Key] = true
	}
}

func TestBuildBinsCoverAllObjects(t *testing.T) {
	objs := []objset.Object{
		obj(1, 0, 1, 0, 0),
		obj(1, 0, 1, 0, 1),
		obj(3, 0, 1, 0, 0),
	}
	bins := BuildBins(objs)
	total := 0
	for _, b := range bins {
		total += b.Count
	}
	if total != len(objs) {
		t.Fatalf("bins cover %d objects, want %d", total, len(objs))
	}
}

// setBufferCall records one DescHeap.SetBuffer invocation, for
// asserting that Cull actually rebinds the CullLayout constant and
// the per-object data buffer before dispatching.
type setBufferCall struct {
	cpy, nr, start int
	buf            []driver.Buffer
	off, size      []int64
}

type fakeDescHeap struct {
	calls []setBufferCall
}

func (h *fakeDescHeap) Destroy()    {}
func (h *fakeDescHeap) New(int) error { return nil }
func (h *fakeDescHeap) SetBuffer(cpy, nr, start int, buf []driver.Buffer, off, size []int64) {
	h.calls = append(h.calls, setBufferCall{cpy, nr, start, buf, off, size})
}
func (h *fakeDescHeap) SetImage(int, int, int, []driver.ImageView)   {}
func (h *fakeDescHeap) SetSampler(int, int, int, []driver.Sampler)   {}
func (h *fakeDescHeap) Count() int                                   { return 2 }

type fakeDescTable struct{}

func (fakeDescTable) Destroy() {}

type fakePipeline struct{}

func (fakePipeline) Destroy() {}

// fakeBuffer is a host-visible buffer backed by a plain byte slice,
// enough for Cull to write CullLayout data through Bytes().
type fakeBuffer struct {
	data    []byte
	visible bool
}

func (b *fakeBuffer) Destroy()      {}
func (b *fakeBuffer) Visible() bool { return b.visible }
func (b *fakeBuffer) Bytes() []byte {
	if !b.visible {
		return nil
	}
	return b.data
}
func (b *fakeBuffer) Cap() int64 { return int64(len(b.data)) }

// fakeCullCmdBuf records the calls Cull makes to it, so a test can
// assert a dispatch actually happened with the expected group count.
type fakeCullCmdBuf struct {
	filled     []driver.Buffer
	dispatches [][3]int
	boundTable driver.DescTable
	boundCopy  []int
}

func (b *fakeCullCmdBuf) Destroy()                                                          {}
func (b *fakeCullCmdBuf) Begin() error                                                       { return nil }
func (b *fakeCullCmdBuf) BeginPass(driver.RenderPass, driver.Framebuf, []driver.ClearValue) {}
func (b *fakeCullCmdBuf) NextSubpass()                                                       {}
func (b *fakeCullCmdBuf) EndPass()                                                           {}
func (b *fakeCullCmdBuf) BeginWork(bool)                                                     {}
func (b *fakeCullCmdBuf) EndWork()                                                           {}
func (b *fakeCullCmdBuf) BeginBlit(bool)                                                     {}
func (b *fakeCullCmdBuf) EndBlit()                                                           {}
func (b *fakeCullCmdBuf) SetPipeline(driver.Pipeline)                                        {}
func (b *fakeCullCmdBuf) SetViewport([]driver.Viewport)                                      {}
func (b *fakeCullCmdBuf) SetScissor([]driver.Scissor)                                        {}
func (b *fakeCullCmdBuf) SetBlendColor(float32, float32, float32, float32)                   {}
func (b *fakeCullCmdBuf) SetStencilRef(uint32)                                               {}
func (b *fakeCullCmdBuf) SetVertexBuf(int, []driver.Buffer, []int64)                         {}
func (b *fakeCullCmdBuf) SetIndexBuf(driver.IndexFmt, driver.Buffer, int64)                  {}
func (b *fakeCullCmdBuf) SetDescTableGraph(driver.DescTable, int, []int)                     {}
func (b *fakeCullCmdBuf) SetDescTableComp(dt driver.DescTable, cpy int, copies []int) {
	b.boundTable = dt
	b.boundCopy = copies
}
func (b *fakeCullCmdBuf) Draw(int, int, int, int)             {}
func (b *fakeCullCmdBuf) DrawIndexed(int, int, int, int, int) {}
func (b *fakeCullCmdBuf) Dispatch(x, y, z int)                 { b.dispatches = append(b.dispatches, [3]int{x, y, z}) }
func (b *fakeCullCmdBuf) DrawIndexedIndirect(driver.Buffer, int64, int, int64) {}
func (b *fakeCullCmdBuf) DrawIndexedIndirectCount(driver.Buffer, int64, driver.Buffer, int64, int, int64) {
}
func (b *fakeCullCmdBuf) CopyBuffer(*driver.BufferCopy)   {}
func (b *fakeCullCmdBuf) CopyImage(*driver.ImageCopy)     {}
func (b *fakeCullCmdBuf) CopyBufToImg(*driver.BufImgCopy) {}
func (b *fakeCullCmdBuf) CopyImgToBuf(*driver.BufImgCopy) {}
func (b *fakeCullCmdBuf) Fill(buf driver.Buffer, off int64, val byte, size int64) {
	b.filled = append(b.filled, buf)
}
func (b *fakeCullCmdBuf) Barrier([]driver.Barrier)       {}
func (b *fakeCullCmdBuf) Transition([]driver.Transition) {}
func (b *fakeCullCmdBuf) End() error                     { return nil }
func (b *fakeCullCmdBuf) Reset() error                   { return nil }

type fakeCullGPU struct{}

func (fakeCullGPU) Driver() driver.Driver { return nil }
func (fakeCullGPU) Commit(wk *driver.WorkItem, ch chan<- *driver.WorkItem) error {
	ch <- wk
	return nil
}
func (fakeCullGPU) NewCmdBuffer(driver.Queue) (driver.CmdBuffer, error) { return &fakeCullCmdBuf{}, nil }
func (fakeCullGPU) NewRenderPass([]driver.Attachment, []driver.Subpass) (driver.RenderPass, error) {
	return nil, nil
}
func (fakeCullGPU) NewShaderCode([]byte) (driver.ShaderCode, error) { return nil, nil }
func (fakeCullGPU) NewDescHeap([]driver.Descriptor) (driver.DescHeap, error) {
	return &fakeDescHeap{}, nil
}
func (fakeCullGPU) NewDescTable([]driver.DescHeap) (driver.DescTable, error) {
	return fakeDescTable{}, nil
}
func (fakeCullGPU) NewPipeline(any) (driver.Pipeline, error) { return fakePipeline{}, nil }
func (fakeCullGPU) NewBuffer(size int64, visible bool, usg driver.Usage) (driver.Buffer, error) {
	return &fakeBuffer{data: make([]byte, size), visible: visible}, nil
}
func (fakeCullGPU) NewImage(driver.PixelFmt, driver.Dim3D, int, int, int, driver.Usage) (driver.Image, error) {
	return nil, nil
}
func (fakeCullGPU) NewSampler(*driver.Sampling) (driver.Sampler, error) { return nil, nil }
func (fakeCullGPU) NewBLAS([]driver.BLASGeometry) (driver.BLAS, error) {
	return nil, driver.ErrNoRayTracing
}
func (fakeCullGPU) NewTLAS(int) (driver.TLAS, error) { return nil, driver.ErrNoRayTracing }
func (fakeCullGPU) Limits() driver.Limits            { return driver.Limits{} }

func TestCullWritesLayoutAndObjectBufferBeforeDispatch(t *testing.T) {
	gpu := fakeCullGPU{}
	c, err := NewCuller(gpu, 64, driver.ShaderFunc{})
	if err != nil {
		t.Fatalf("NewCuller: %v", err)
	}
	defer c.Destroy()

	var layout shader.CullLayout
	planes := [6]linear.V4{
		{1, 0, 0, 0}, {-1, 0, 0, 10},
		{0, 1, 0, 0}, {0, -1, 0, 10},
		{0, 0, 1, 0}, {0, 0, -1, 10},
	}
	layout.SetFrustum(&planes)
	camPos := linear.V3{1, 2, 3}
	layout.SetCamPos(&camPos)
	layout.SetHZB(4, 512, 512)

	objData := &fakeBuffer{data: make([]byte, 4*int64(len(shader.DrawableLayout{}))*4), visible: true}

	cb := &fakeCullCmdBuf{}
	const objectCount = 130 // spans 3 workgroups of 64
	if err := c.Cull(cb, 0, &layout, objData, objectCount); err != nil {
		t.Fatalf("Cull: %v", err)
	}

	dh := c.descHeap.(*fakeDescHeap)
	if len(dh.calls) != 2 {
		t.Fatalf("SetBuffer calls: have %d, want 2", len(dh.calls))
	}
	if dh.calls[0].nr != 0 || dh.calls[0].buf[0] != c.cullData[0] {
		t.Fatalf("binding 0: have %+v, want the alternate's CullLayout buffer", dh.calls[0])
	}
	if dh.calls[1].nr != 1 || dh.calls[1].buf[0] != objData {
		t.Fatalf("binding 1: have %+v, want the supplied object-data buffer", dh.calls[1])
	}

	gotLayout := c.cullData[0].Bytes()
	if len(gotLayout) != len(layout)*4 {
		t.Fatalf("cullData size: have %d bytes, want %d", len(gotLayout), len(layout)*4)
	}
	var decoded shader.CullLayout
	for i := range decoded {
		decoded[i] = float32FromBytes(gotLayout[i*4 : i*4+4])
	}
	layout.SetObjectCount(objectCount) // Cull must have baked this in too
	if decoded != layout {
		t.Fatalf("cullData content:\nhave %v\nwant %v", decoded, layout)
	}

	if len(cb.dispatches) != 1 {
		t.Fatalf("dispatches: have %d, want 1", len(cb.dispatches))
	}
	if want := (objectCount + cullWorkgroupSize - 1) / cullWorkgroupSize; cb.dispatches[0][0] != want {
		t.Fatalf("dispatch groups: have %d, want %d", cb.dispatches[0][0], want)
	}
	if len(cb.filled) != 1 || cb.filled[0] != c.count[0] {
		t.Fatalf("Fill: have %+v, want a single reset of alternate 0's count buffer", cb.filled)
	}
}

func TestCullAwaitsConsumerBeforeReuse(t *testing.T) {
	gpu := fakeCullGPU{}
	c, err := NewCuller(gpu, 8, driver.ShaderFunc{})
	if err != nil {
		t.Fatalf("NewCuller: %v", err)
	}
	defer c.Destroy()

	var layout shader.CullLayout
	objData := &fakeBuffer{data: make([]byte, 64), visible: true}
	cb := &fakeCullCmdBuf{}

	if err := c.Cull(cb, 1, &layout, objData, 0); err != nil {
		t.Fatalf("first Cull: %v", err)
	}
	if len(cb.dispatches) != 0 {
		t.Fatalf("objectCount 0 should not dispatch, got %d dispatches", len(cb.dispatches))
	}

	job := &driver.Job{}
	c.NotifyConsumed(1, job)
	if c.consumerJob[1] != job {
		t.Fatal("NotifyConsumed did not record the job for alternate 1")
	}
}
