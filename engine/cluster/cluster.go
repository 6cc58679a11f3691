// Copyright 2024 Gustavo C. Viegas. All rights reserved.

// Package cluster builds the froxel grid used to bin lights for the
// clustered-shading color pass, and fits the sun light's shadow
// cascades.
//
// A froxel (frustum voxel) is one cell of a view-space grid of fixed
// (W, H, D) dimensions. The grid's side planes only depend on the
// camera's intrinsics (fovy, aspect), so they are rebuilt only when
// those change; the Z slicing depends additionally on near/far.
package cluster

import (
	"math"

	"github.com/shard3d/shard/engine/internal/worldview"
	"github.com/shard3d/shard/linear"
)

// Default grid dimensions and per-froxel light cap. These are
// reasonable defaults for a 1080p-class viewport; callers needing a
// different balance of bin granularity against rebuild cost can pass
// their own dimensions to NewGrid and their own cap to BindLights.
const (
	DefaultGridW             = 16
	DefaultGridH             = 9
	DefaultGridD             = 24
	DefaultMaxLightsPerFroxel = 32
)

// ShadowCascadeCount is the fixed number of cascades fit for the
// scene's sun light.
const ShadowCascadeCount = 4

// Intrinsics is the subset of a camera's projection parameters that
// determine froxel side-plane shape. Bounds are rebuilt only when
// these change from the last call to Rebuild.
type Intrinsics struct {
	Fovy, Aspect, Near, Far float32
}

// plane is a view-space plane through the camera origin: a point p is
// inside when n.Dot(p) + d >= 0.
type plane struct {
	n linear.V3
	d float32
}

func (p *plane) distance(center *linear.V3) float32 { return p.n.Dot(center) + p.d }

// FroxelBounds is one grid cell's culling volume: four side planes
// (left, right, bottom, top) through the camera origin, plus a
// view-space Z range.
type FroxelBounds struct {
	sides      [4]plane
	minZ, maxZ float32
}

// Grid is the froxel grid for one viewport. Bounds are indexed
// z*W*H + y*W + x.
type Grid struct {
	W, H, D int
	bounds  []FroxelBounds
	last    Intrinsics
	built   bool
}

// NewGrid creates an empty Grid of the given dimensions. Rebuild must
// be called at least once before Bounds/BindLights are used.
func NewGrid(w, h, d int) *Grid {
	return &Grid{W: w, H: h, D: d, bounds: make([]FroxelBounds, w*h*d)}
}

// Rebuild recomputes the grid's side planes and Z slices if intr
// differs from the intrinsics used by the last Rebuild (or if Rebuild
// has never been called). It reports whether a rebuild happened.
func (g *Grid) Rebuild(intr Intrinsics) bool {
	if g.built && intr == g.last {
		return false
	}
	halfH := float32(math.Tan(float64(intr.Fovy) / 2))
	halfW := halfH * intr.Aspect

	for z := 0; z < g.D; z++ {
		minZ, maxZ := sliceZ(intr.Near, intr.Far, z, g.D)
		for y := 0; y < g.H; y++ {
			yMin := -halfH + 2*halfH*float32(y)/float32(g.H)
			yMax := -halfH + 2*halfH*float32(y+1)/float32(g.H)
			for x := 0; x < g.W; x++ {
				xMin := -halfW + 2*halfW*float32(x)/float32(g.W)
				xMax := -halfW + 2*halfW*float32(x+1)/float32(g.W)
				idx := z*g.W*g.H + y*g.W + x
				g.bounds[idx] = FroxelBounds{
					sides: [4]plane{
						sidePlane(xMin, -1, true),  // left: inward normal points +x
						sidePlane(xMax, -1, false), // right: inward normal points -x
						sideYPlane(yMin, true),
						sideYPlane(yMax, false),
					},
					minZ: minZ,
					maxZ: maxZ,
				}
			}
		}
	}
	g.last = intr
	g.built = true
	return true
}

// sliceZ returns the depth range (positive distance in front of the
// camera, i.e. -view_space_z) of slice i out of d linear slices
// between near and far.
func sliceZ(near, far float32, i, d int) (minZ, maxZ float32) {
	step := (far - near) / float32(d)
	return near + step*float32(i), near + step*float32(i+1)
}

// sidePlane builds a plane through the origin and the vertical edge
// at screen-space x = xAtZ1 (the frustum's cross-section at z = -1),
// whose normal points toward increasing x when left is true (i.e.
// toward the frustum interior for the grid's left-hand boundary).
func sidePlane(xAtZ1 float32, zAtUnit float32, left bool) plane {
	a := linear.V3{xAtZ1, -1, zAtUnit}
	b := linear.V3{xAtZ1, 1, zAtUnit}
	var n linear.V3
	if left {
		n.Cross(&a, &b)
	} else {
		n.Cross(&b, &a)
	}
	n.Norm(&n)
	return plane{n: n}
}

func sideYPlane(yAtZ1 float32, bottom bool) plane {
	a := linear.V3{-1, yAtZ1, -1}
	b := linear.V3{1, yAtZ1, -1}
	var n linear.V3
	if bottom {
		n.Cross(&b, &a)
	} else {
		n.Cross(&a, &b)
	}
	n.Norm(&n)
	return plane{n: n}
}

// LightList is the per-froxel light index assembly for one frame.
type LightList struct {
	indices  [][]uint32 // len W*H*D, each entry sized up to maxPerFroxel
	Overflow uint64     // count of (froxel, light) insertions dropped because the froxel was full
}

// Indices returns the light indices assigned to froxel idx (as
// returned by z*W*H + y*W + x addressing matching Grid.bounds).
func (l *LightList) Indices(idx int) []uint32 { return l.indices[idx] }

// BindLights intersects each clusterable light's bounding sphere (in
// view space) against every froxel, appending the light's index to
// any froxel it overlaps, up to maxPerFroxel entries. Overflow beyond
// that cap is dropped and counted, never causing an error: a light
// that does not fit simply stops being binned into additional
// froxels once a given froxel is full.
//
// Sun lights (worldview.LightSun) are never clustered — scenes carry
// at most one, handled separately by shadow cascade fitting.
func (g *Grid) BindLights(view *linear.M4, lights []worldview.LightInstance, maxPerFroxel int) *LightList {
	ll := &LightList{indices: make([][]uint32, len(g.bounds))}
	for li := range lights {
		lt := &lights[li]
		if lt.Disabled || lt.Kind == worldview.LightSun {
			continue
		}
		center := transformPoint(view, &lt.Position)
		radius := lt.Range
		if radius <= 0 {
			continue
		}
		for idx := range g.bounds {
			b := &g.bounds[idx]
			if -center[2]+radius < b.minZ || -center[2]-radius > b.maxZ {
				continue
			}
			inside := true
			for i := range b.sides {
				if b.sides[i].distance(&center) < -radius {
					inside = false
					break
				}
			}
			if !inside {
				continue
			}
			if len(ll.indices[idx]) >= maxPerFroxel {
				ll.Overflow++
				continue
			}
			ll.indices[idx] = append(ll.indices[idx], uint32(li))
		}
	}
	return ll
}

// transformPoint applies m to the point p (implicit w=1), discarding
// the resulting w.
func transformPoint(m *linear.M4, p *linear.V3) linear.V3 {
	var r linear.V3
	for row := 0; row < 3; row++ {
		r[row] = m[0][row]*p[0] + m[1][row]*p[1] + m[2][row]*p[2] + m[3][row]
	}
	return r
}
