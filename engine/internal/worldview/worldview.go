// Copyright 2024 Gustavo C. Viegas. All rights reserved.

// Package worldview defines the interface through which the render
// core receives a frame's renderables, lights, cameras and global
// lighting state from the entity-component system.
//
// The render core never imports the ECS; it only ever sees values
// shaped like these, supplied by whatever owns the scene graph.
package worldview

import "github.com/shard3d/shard/linear"

// EntityRef identifies an ECS entity without the render core holding
// a pointer into scene-graph memory. Version distinguishes reused
// entity ids across frames.
type EntityRef struct {
	ID      uint64
	Version uint32
}

// RenderMode selects which draw-key bucket a Renderable falls into.
type RenderMode uint8

const (
	ModeOpaque RenderMode = iota
	ModeAlphaCutout
	ModeTransparent
)

// RenderFlags carries per-object bits consumed by C4/C5 (e.g. casts
// shadow, is skinned).
type RenderFlags uint32

const (
	FlagCastShadow RenderFlags = 1 << iota
	FlagSkinned
	FlagReceiveDecals
)

// Renderable is one static or dynamic entity eligible for drawing.
type Renderable struct {
	Entity          EntityRef
	MeshSlot        int32
	MaterialSlot    int32
	MatInstSlot     int32
	VertexLayoutBit uint32
	DataSizeClass   uint8
	Model           linear.M4
	Mode            RenderMode
	Flags           RenderFlags
	Disabled        bool
	// TransparentZ is the view-space depth used to back-to-front
	// sort ModeTransparent renderables; the world view fills it in
	// only when Mode == ModeTransparent.
	TransparentZ float32
}

// LightKind mirrors engine.Light's internal type tag.
type LightKind uint8

const (
	LightSun LightKind = iota
	LightPoint
	LightSpot
)

// LightInstance is one light entity for a frame.
type LightInstance struct {
	Entity     EntityRef
	Kind       LightKind
	Model      linear.M4
	Direction  linear.V3
	Position   linear.V3
	Range      float32
	InnerAngle float32
	OuterAngle float32
	Intensity  float32
	Color      linear.V3
	Disabled   bool
}

// Camera is one active camera for a frame.
type Camera struct {
	Model  linear.M4
	Fovy   float32
	Aspect float32
	Znear  float32
	Zfar   float32
}

// GlobalLighting carries scene-wide lighting parameters that are not
// per-entity (sun direction redundancy aside, ambient/exposure live
// here since they are singletons, not components).
type GlobalLighting struct {
	AmbientColor linear.V3
	Exposure     float32
}

// View is the per-frame snapshot the render core pulls from the
// world view owner. Static and Dynamic are kept separate so C4 can
// skip rebuilding the static list when StaticDirty is false.
type View interface {
	StaticRenderables() []Renderable
	DynamicRenderables() []Renderable
	Lights() []LightInstance
	Cameras() []Camera
	GlobalLighting() GlobalLighting
	CanvasSize() (width, height int)
	StaticDirty() bool
}
