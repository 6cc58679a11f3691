// Copyright 2024 Gustavo C. Viegas. All rights reserved.

// Package frame owns the FRAMES_IN_FLIGHT ring of frame slots and
// drives each one through the pipeline: snapshot the world view on
// the main thread, hand the slot to the render thread, wait on its
// previous GPU job, record, submit, and return the slot to the free
// queue.
//
// Frame indices are never shared across two in-flight frames: a slot
// only leaves the free channel once and only re-enters it once its
// submission's Job has been stored, so the caller can read that Job
// to bound how far ahead of the GPU it runs.
package frame

import (
	"context"
	"errors"
	"time"

	"github.com/shard3d/shard/driver"
	"github.com/shard3d/shard/engine/cluster"
	"github.com/shard3d/shard/engine/internal/worldview"
	"github.com/shard3d/shard/engine/objset"
	"github.com/shard3d/shard/engine/raytrace"
	"github.com/shard3d/shard/linear"
	"github.com/shard3d/shard/rtelemetry"
)

// Frame is one ring slot: its own command buffer, the previous job
// that must complete before the buffer is recorded into again, and
// the object/light state snapshotted for the frame it is currently
// carrying.
type Frame struct {
	Index  int
	CmdBuf driver.CmdBuffer
	Job    *driver.Job

	Objects objset.Set
	Lights  *cluster.LightList

	CanvasWidth  int
	CanvasHeight int

	// RTInstances is the frame's TLAS instance list, populated on the
	// render thread ahead of RecordFunc when ray tracing is enabled
	// (see Orchestrator.EnableRayTracing). It is nil otherwise.
	RTInstances []driver.TLASInstance
}

// RecordFunc records every pass for f into f.CmdBuf and returns the
// Queue the resulting work item should be submitted on. It must not
// submit or present; the Orchestrator does that once RecordFunc
// returns.
type RecordFunc func(f *Frame) (driver.Queue, error)

// DrainFunc flushes any pending factory uploads (buffer/texture
// staging, GC of dropped handles) before a frame records. It runs on
// the render thread, once per frame, ahead of RecordFunc.
type DrainFunc func()

var errShutdown = errors.New("frame: orchestrator is shutting down")

// Orchestrator owns the bounded free/pending channels and the render
// goroutine that drains the pending channel.
//
// Grid is shared across every frame slot: clustering only rebuilds
// when camera intrinsics change, not once per slot, so it lives on
// the Orchestrator rather than on each Frame.
type Orchestrator struct {
	Grid *cluster.Grid

	gpu    driver.GPU
	record RecordFunc
	drain  DrainFunc

	frames []Frame
	free   chan *Frame
	pend   chan *Frame

	shutdown chan struct{}
	done     chan struct{}

	waitTimeout time.Duration
	tracer      *rtelemetry.Tracer

	rtBlas   *raytrace.BlasSet
	rtLookup raytrace.MeshLookup
}

// SetTracer attaches a tracer that opens one span per recorded frame.
// It is optional: an Orchestrator with no tracer set records no spans.
func (o *Orchestrator) SetTracer(t rtelemetry.Tracer) { o.tracer = &t }

// EnableRayTracing turns on TLAS instance assembly for every recorded
// frame, resolving mesh slots through lookup. On a backend without
// ray tracing support this degrades to every frame's RTInstances
// staying empty, rather than failing (see package raytrace).
func (o *Orchestrator) EnableRayTracing(lookup raytrace.MeshLookup) {
	o.rtBlas = raytrace.NewBlasSet()
	o.rtLookup = lookup
}

// New creates an Orchestrator with framesInFlight slots, each holding
// its own command buffer from gpu. gridW/gridH/gridD size the shared
// froxel grid (see cluster.NewGrid). The render goroutine is started
// immediately and begins waiting on the pending channel.
func New(gpu driver.GPU, framesInFlight, gridW, gridH, gridD int, record RecordFunc, drain DrainFunc) (*Orchestrator, error) {
	o := &Orchestrator{
		Grid:        cluster.NewGrid(gridW, gridH, gridD),
		gpu:         gpu,
		record:      record,
		drain:       drain,
		frames:      make([]Frame, framesInFlight),
		free:        make(chan *Frame, framesInFlight),
		pend:        make(chan *Frame, framesInFlight),
		shutdown:    make(chan struct{}),
		done:        make(chan struct{}),
		waitTimeout: 2 * time.Second,
	}
	for i := range o.frames {
		cb, err := gpu.NewCmdBuffer(driver.QMain)
		if err != nil {
			o.destroyFrames()
			return nil, err
		}
		o.frames[i].Index = i
		o.frames[i].CmdBuf = cb
		o.free <- &o.frames[i]
	}
	go o.renderLoop()
	return o, nil
}

func (o *Orchestrator) destroyFrames() {
	for i := range o.frames {
		if o.frames[i].CmdBuf != nil {
			o.frames[i].CmdBuf.Destroy()
		}
	}
}

// Acquire pops the next free frame slot, blocking until one is
// available. This is one of the core's three host-side suspension
// points: it never spin-loops.
func (o *Orchestrator) Acquire() (*Frame, error) {
	select {
	case f := <-o.free:
		return f, nil
	case <-o.shutdown:
		return nil, errShutdown
	}
}

// Snapshot captures view's static/dynamic renderables, lights,
// cameras and canvas size into f. It must run on the main thread,
// strictly before f is submitted to Enqueue, so that the object
// snapshot for this frame is fully captured before the render thread
// can see it.
func (o *Orchestrator) Snapshot(f *Frame, view worldview.View) {
	f.Objects.Gather(view)
	f.CanvasWidth, f.CanvasHeight = view.CanvasSize()

	cams := view.Cameras()
	if len(cams) > 0 {
		cam := cams[0]
		o.Grid.Rebuild(cluster.Intrinsics{
			Fovy: cam.Fovy, Aspect: cam.Aspect, Near: cam.Znear, Far: cam.Zfar,
		})
		var camView linear.M4
		camView.Invert(&cam.Model)
		f.Lights = o.Grid.BindLights(&camView, view.Lights(), cluster.DefaultMaxLightsPerFroxel)
	}
}

// Enqueue hands f to the render thread. Returns errShutdown if the
// orchestrator is shutting down, in which case the caller must return
// f to the free queue itself (the render thread will not see it).
func (o *Orchestrator) Enqueue(f *Frame) error {
	select {
	case o.pend <- f:
		return nil
	case <-o.shutdown:
		return errShutdown
	}
}

// renderLoop is the sole render-thread goroutine: it is the only
// reader of o.pend and the only writer of descriptor-set state, per
// the single-writer policy on descriptor updates.
func (o *Orchestrator) renderLoop() {
	defer close(o.done)
	for {
		select {
		case f := <-o.pend:
			o.renderOne(f)
			o.free <- f
		case <-o.shutdown:
			// Drain whatever is already pending before exiting: frames
			// already handed off must still reach the free queue so
			// Shutdown can account for every slot.
			for {
				select {
				case f := <-o.pend:
					o.renderOne(f)
					o.free <- f
				default:
					return
				}
			}
		}
	}
}

// updateRayTracing queues every opaque/alpha-cutout mesh slot f's
// object set references, builds whatever BLAS the throttle allows
// this frame, and assembles f.RTInstances from whatever BLAS already
// exist. A slot with no BLAS yet simply has its objects skipped this
// frame; they reappear once the slot's BLAS finishes building.
func (o *Orchestrator) updateRayTracing(f *Frame) {
	for _, obj := range f.Objects.Opaque {
		o.rtBlas.Queue(obj.Key.MeshSlot)
	}
	for _, obj := range f.Objects.AlphaCutout {
		o.rtBlas.Queue(obj.Key.MeshSlot)
	}
	o.rtBlas.Build(o.gpu, o.rtLookup)
	f.RTInstances = raytrace.BuildInstances(&f.Objects, o.rtBlas)
}

func (o *Orchestrator) renderOne(f *Frame) {
	if o.tracer != nil {
		_, span := o.tracer.StartFrame(context.Background(), f.Index)
		defer span.End()
	}
	if f.Job != nil {
		f.Job.Wait(o.waitTimeout)
	}
	if o.drain != nil {
		o.drain()
	}
	if o.rtBlas != nil {
		o.updateRayTracing(f)
	}
	q, err := o.record(f)
	if err != nil {
		f.Job = nil
		return
	}
	job, err := driver.SubmitAndTrack(o.gpu, &driver.WorkItem{
		Queue:  q,
		Work:   []driver.CmdBuffer{f.CmdBuf},
		Custom: f.Index,
	})
	if err != nil {
		f.Job = nil
		return
	}
	f.Job = job
}

// Shutdown drains both channels and waits on every in-flight job
// before returning. It is safe to call at most once.
func (o *Orchestrator) Shutdown() {
	close(o.shutdown)
	<-o.done
	for i := range o.frames {
		if o.frames[i].Job != nil {
			o.frames[i].Job.Wait(0)
		}
	}
	o.destroyFrames()
	if o.rtBlas != nil {
		o.rtBlas.Destroy()
	}
}
