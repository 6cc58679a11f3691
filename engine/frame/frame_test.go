// Copyright 2024 Gustavo C. Viegas. All rights reserved.

package frame

import (
	"errors"
	"testing"
	"time"

	"github.com/shard3d/shard/driver"
	"github.com/shard3d/shard/engine"
)

// fakeCmdBuf is a no-op driver.CmdBuffer, enough to let Orchestrator
// exercise its channel-driven control flow without a real backend.
type fakeCmdBuf struct{ destroyed bool }

func (b *fakeCmdBuf) Destroy()                                               { b.destroyed = true }
func (b *fakeCmdBuf) Begin() error                                           { return nil }
func (b *fakeCmdBuf) BeginPass(driver.RenderPass, driver.Framebuf, []driver.ClearValue) {}
func (b *fakeCmdBuf) NextSubpass()                                           {}
func (b *fakeCmdBuf) EndPass()                                               {}
func (b *fakeCmdBuf) BeginWork(bool)                                         {}
func (b *fakeCmdBuf) EndWork()                                               {}
func (b *fakeCmdBuf) BeginBlit(bool)                                         {}
func (b *fakeCmdBuf) EndBlit()                                               {}
func (b *fakeCmdBuf) SetPipeline(driver.Pipeline)                            {}
func (b *fakeCmdBuf) SetViewport([]driver.Viewport)                          {}
func (b *fakeCmdBuf) SetScissor([]driver.Scissor)                           {}
func (b *fakeCmdBuf) SetBlendColor(float32, float32, float32, float32)       {}
func (b *fakeCmdBuf) SetStencilRef(uint32)                                   {}
func (b *fakeCmdBuf) SetVertexBuf(int, []driver.Buffer, []int64)             {}
func (b *fakeCmdBuf) SetIndexBuf(driver.IndexFmt, driver.Buffer, int64)      {}
func (b *fakeCmdBuf) SetDescTableGraph(driver.DescTable, int, []int)         {}
func (b *fakeCmdBuf) SetDescTableComp(driver.DescTable, int, []int)          {}
func (b *fakeCmdBuf) Draw(int, int, int, int)                                {}
func (b *fakeCmdBuf) DrawIndexed(int, int, int, int, int)                    {}
func (b *fakeCmdBuf) Dispatch(int, int, int)                                 {}
func (b *fakeCmdBuf) DrawIndexedIndirect(driver.Buffer, int64, int, int64)   {}
func (b *fakeCmdBuf) DrawIndexedIndirectCount(driver.Buffer, int64, driver.Buffer, int64, int, int64) {
}
func (b *fakeCmdBuf) CopyBuffer(*driver.BufferCopy)   {}
func (b *fakeCmdBuf) CopyImage(*driver.ImageCopy)     {}
func (b *fakeCmdBuf) CopyBufToImg(*driver.BufImgCopy) {}
func (b *fakeCmdBuf) CopyImgToBuf(*driver.BufImgCopy) {}
func (b *fakeCmdBuf) Fill(driver.Buffer, int64, byte, int64) {}
func (b *fakeCmdBuf) Barrier([]driver.Barrier)         {}
func (b *fakeCmdBuf) Transition([]driver.Transition)   {}
func (b *fakeCmdBuf) End() error                       { return nil }
func (b *fakeCmdBuf) Reset() error                     { return nil }

// fakeGPU commits every work item immediately on the calling
// goroutine, simulating a backend whose GPU work completes
// synchronously. Only Driver/Commit/NewCmdBuffer/Limits are given
// real bodies; nothing in the orchestrator's control flow touches
// the rest.
type fakeGPU struct{}

func (fakeGPU) Driver() driver.Driver { return nil }

func (fakeGPU) Commit(wk *driver.WorkItem, ch chan<- *driver.WorkItem) error {
	ch <- wk
	return nil
}

func (fakeGPU) NewCmdBuffer(driver.Queue) (driver.CmdBuffer, error) { return &fakeCmdBuf{}, nil }
func (fakeGPU) NewRenderPass([]driver.Attachment, []driver.Subpass) (driver.RenderPass, error) {
	return nil, nil
}
func (fakeGPU) NewShaderCode([]byte) (driver.ShaderCode, error)        { return nil, nil }
func (fakeGPU) NewDescHeap([]driver.Descriptor) (driver.DescHeap, error) { return nil, nil }
func (fakeGPU) NewDescTable([]driver.DescHeap) (driver.DescTable, error) { return nil, nil }
func (fakeGPU) NewPipeline(any) (driver.Pipeline, error)               { return nil, nil }
func (fakeGPU) NewBuffer(int64, bool, driver.Usage) (driver.Buffer, error) {
	return nil, nil
}
func (fakeGPU) NewImage(driver.PixelFmt, driver.Dim3D, int, int, int, driver.Usage) (driver.Image, error) {
	return nil, nil
}
func (fakeGPU) NewSampler(*driver.Sampling) (driver.Sampler, error) { return nil, nil }
func (fakeGPU) NewBLAS([]driver.BLASGeometry) (driver.BLAS, error) { return nil, driver.ErrNoRayTracing }
func (fakeGPU) NewTLAS(int) (driver.TLAS, error)                   { return nil, driver.ErrNoRayTracing }
func (fakeGPU) Limits() driver.Limits                              { return driver.Limits{} }

func newTestOrchestrator(t *testing.T, framesInFlight int, record RecordFunc) *Orchestrator {
	t.Helper()
	o, err := New(fakeGPU{}, framesInFlight, 2, 2, 2, record, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return o
}

func TestAcquireEnqueueReturnsFrameToFreeQueue(t *testing.T) {
	recorded := make(chan int, 1)
	o := newTestOrchestrator(t, 2, func(f *Frame) (driver.Queue, error) {
		recorded <- f.Index
		return driver.QMain, nil
	})
	defer o.Shutdown()

	f, err := o.Acquire()
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if err := o.Enqueue(f); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	select {
	case <-recorded:
	case <-time.After(time.Second):
		t.Fatal("record func was never invoked")
	}

	select {
	case back := <-o.free:
		o.free <- back // put it back so Shutdown's bookkeeping is untouched
		if back.Job == nil {
			t.Fatal("frame returned to the free queue without a Job recorded")
		}
	case <-time.After(time.Second):
		t.Fatal("frame was never returned to the free queue")
	}
}

func TestNoTwoFramesShareAnIndexInFlight(t *testing.T) {
	const n = 3
	seen := make(chan int, n)
	o := newTestOrchestrator(t, n, func(f *Frame) (driver.Queue, error) {
		seen <- f.Index
		return driver.QMain, nil
	})
	defer o.Shutdown()

	out := make([]*Frame, n)
	for i := range out {
		f, err := o.Acquire()
		if err != nil {
			t.Fatalf("Acquire: %v", err)
		}
		out[i] = f
	}

	// All n slots are now checked out: indices must be pairwise
	// distinct, matching the no-two-frames-share-an-index invariant.
	idx := map[int]bool{}
	for _, f := range out {
		if idx[f.Index] {
			t.Fatalf("frame index %d checked out twice simultaneously", f.Index)
		}
		idx[f.Index] = true
	}
	for _, f := range out {
		if err := o.Enqueue(f); err != nil {
			t.Fatalf("Enqueue: %v", err)
		}
	}
	for range out {
		select {
		case <-seen:
		case <-time.After(time.Second):
			t.Fatal("record func was never invoked for a checked-out frame")
		}
	}
}

func TestRenderOneWaitsOnPreviousJobBeforeRecording(t *testing.T) {
	var waited bool
	o := newTestOrchestrator(t, 1, func(f *Frame) (driver.Queue, error) {
		if f.Job != nil {
			waited = true
		}
		return driver.QMain, nil
	})
	defer o.Shutdown()

	f, _ := o.Acquire()
	if err := o.Enqueue(f); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	f2 := <-o.free
	if f2.Job == nil {
		t.Fatal("first pass through the loop should have recorded a Job")
	}
	if err := o.Enqueue(f2); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	<-o.free
	if !waited {
		t.Fatal("renderOne did not observe the previous frame's Job on its second pass")
	}
}

func TestRecordErrorAbandonsTheFrameWithoutAJob(t *testing.T) {
	wantErr := errors.New("surface invalidated")
	o := newTestOrchestrator(t, 1, func(f *Frame) (driver.Queue, error) {
		return driver.QMain, wantErr
	})
	defer o.Shutdown()

	f, _ := o.Acquire()
	o.Enqueue(f)
	back := <-o.free
	if back.Job != nil {
		t.Fatal("a failed record must not leave a stale Job on the frame")
	}
}

func TestRayTracingDegradesToEmptyInstancesWithoutBackendSupport(t *testing.T) {
	recorded := make(chan []driver.TLASInstance, 1)
	o := newTestOrchestrator(t, 1, func(f *Frame) (driver.Queue, error) {
		recorded <- f.RTInstances
		return driver.QMain, nil
	})
	defer o.Shutdown()
	o.EnableRayTracing(func(int32) (*engine.Mesh, int) { return nil, 0 })

	f, _ := o.Acquire()
	if err := o.Enqueue(f); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	select {
	case rt := <-recorded:
		if len(rt) != 0 {
			t.Fatalf("RTInstances: have %d, want 0 (fakeGPU has no ray tracing support)", len(rt))
		}
	case <-time.After(time.Second):
		t.Fatal("record func was never invoked")
	}
}

func TestShutdownDrainsPendingAndJoinsTheRenderGoroutine(t *testing.T) {
	done := make(chan struct{})
	o := newTestOrchestrator(t, 2, func(f *Frame) (driver.Queue, error) {
		return driver.QMain, nil
	})
	f1, _ := o.Acquire()
	o.Enqueue(f1)

	go func() {
		o.Shutdown()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Shutdown did not return")
	}

	if _, err := o.Acquire(); err == nil {
		t.Fatal("Acquire after Shutdown must fail")
	}
}
