// Copyright 2024 Gustavo C. Viegas. All rights reserved.

package cluster

import (
	"math"

	"github.com/shard3d/shard/linear"
)

// CascadeSplit is one sun-shadow cascade's depth range, expressed as
// distances from the camera (not view-space Z).
type CascadeSplit struct {
	Near, Far float32
}

// LinearSplits divides [near, far] into ShadowCascadeCount equal
// slices. Scenes wanting a logarithmic split can build their own
// []CascadeSplit and call FitCascade directly.
func LinearSplits(near, far float32) [ShadowCascadeCount]CascadeSplit {
	var splits [ShadowCascadeCount]CascadeSplit
	step := (far - near) / ShadowCascadeCount
	for i := range splits {
		splits[i] = CascadeSplit{Near: near + step*float32(i), Far: near + step*float32(i+1)}
	}
	return splits
}

// Cascade is one fit shadow cascade: an orthographic light-space
// view/projection pair sized to exactly cover its depth slice of the
// camera frustum.
type Cascade struct {
	View   linear.M4
	Proj   linear.M4
	Radius float32
}

// farExtensionFactor multiplies Radius to decide how far behind the
// cascade center the light's near plane sits, implementing step (e):
// zeroing the back frustum plane so that casters behind the eye are
// not culled.
const farExtensionFactor = 4

// FitCascade fits a single cascade covering split, given the camera's
// world transform (camModel: column 0 = right, column 1 = up, column
// 2 = back i.e. -forward, column 3 = world position), its
// fovy/aspect, the sun's world-space direction (the direction light
// travels, already normalized) and the shadow map's texel resolution.
//
// Steps, matching the five-step fitting algorithm:
//  1. project the camera frustum for the cascade's depth slice
//  2. take half the slice's longest diagonal as the bounding radius
//  3. snap the cascade center to texel multiples of 2·radius/resolution
//  4. build an orthographic projection spanning -radius..radius on every axis
//  5. push the light's near plane back by farExtensionFactor·radius so
//     casters behind the eye still appear in the depth range
func FitCascade(camModel *linear.M4, fovy, aspect float32, split CascadeSplit, sunDir *linear.V3, resolution float32) Cascade {
	right := linear.V3{camModel[0][0], camModel[0][1], camModel[0][2]}
	up := linear.V3{camModel[1][0], camModel[1][1], camModel[1][2]}
	back := linear.V3{camModel[2][0], camModel[2][1], camModel[2][2]}
	var forward linear.V3
	forward.Scale(-1, &back)
	pos := linear.V3{camModel[3][0], camModel[3][1], camModel[3][2]}

	corners := frustumCorners(&pos, &right, &up, &forward, fovy, aspect, split.Near, split.Far)

	var center linear.V3
	for i := range corners {
		var s linear.V3
		s.Add(&center, &corners[i])
		center = s
	}
	center.Scale(1/float32(len(corners)), &center)

	// Half the diagonal from a near corner to its opposite far corner
	// bounds the whole slice; corners are ordered near x4, far x4,
	// with index i+4 diagonally opposite index (3-i).
	var diag linear.V3
	diag.Sub(&corners[4], &corners[3])
	radius := diag.Len() / 2
	for i := 1; i < 4; i++ {
		diag.Sub(&corners[4+i], &corners[3-i])
		if r := diag.Len() / 2; r > radius {
			radius = r
		}
	}

	lightRight, lightUp, lightFwd := lightBasis(sunDir)
	lsCenter := linear.V3{lightRight.Dot(&center), lightUp.Dot(&center), lightFwd.Dot(&center)}
	lsCenter = SnapCascadeCenter(lsCenter, radius, resolution)
	// Back-project the snapped light-space center into world space.
	var wCenter linear.V3
	for i := 0; i < 3; i++ {
		wCenter[i] = lightRight[i]*lsCenter[0] + lightUp[i]*lsCenter[1] + lightFwd[i]*lsCenter[2]
	}

	var eyeOff linear.V3
	eyeOff.Scale(-radius*farExtensionFactor, sunDir)
	var eye linear.V3
	eye.Add(&wCenter, &eyeOff)

	c := Cascade{Radius: radius}
	c.View = lookAt(&eye, sunDir, &lightUp)
	c.Proj.I()
	near := float32(0)
	far := radius * (farExtensionFactor + 1)
	orthoZO(&c.Proj, -radius, radius, -radius, radius, near, far)
	return c
}

// frustumCorners returns the 8 corners of the camera frustum sliced
// between near and far, ordered near-bottom-left, near-bottom-right,
// near-top-left, near-top-right, then the same four at far.
func frustumCorners(pos, right, up, forward *linear.V3, fovy, aspect, near, far float32) [8]linear.V3 {
	var out [8]linear.V3
	depths := [2]float32{near, far}
	for d, depth := range depths {
		halfH := depth * float32(math.Tan(float64(fovy)/2))
		halfW := halfH * aspect
		i := 0
		for _, sy := range [2]float32{-1, 1} {
			for _, sx := range [2]float32{-1, 1} {
				var p, t linear.V3
				t.Scale(depth, forward)
				p.Add(pos, &t)
				t.Scale(sx*halfW, right)
				p.Add(&p, &t)
				t.Scale(sy*halfH, up)
				p.Add(&p, &t)
				out[d*4+i] = p
				i++
			}
		}
	}
	return out
}

// SnapCascadeCenter snaps a light-space cascade center to texel-sized
// multiples of 2·radius/resolution on every axis, so a small camera
// or light-direction change does not sub-pixel-shift the shadow map's
// content (which would otherwise shimmer).
func SnapCascadeCenter(center linear.V3, radius, resolution float32) linear.V3 {
	texel := 2 * radius / resolution
	var out linear.V3
	for i := range out {
		out[i] = float32(math.Round(float64(center[i]/texel))) * texel
	}
	return out
}

// lightBasis builds an orthonormal basis with forward = dir.
func lightBasis(dir *linear.V3) (right, up, forward linear.V3) {
	forward = *dir
	ref := linear.V3{0, 1, 0}
	if math.Abs(float64(forward.Dot(&ref))) > 0.999 {
		ref = linear.V3{0, 0, 1}
	}
	right.Cross(&ref, &forward)
	right.Norm(&right)
	up.Cross(&forward, &right)
	up.Norm(&up)
	return
}

// lookAt builds a view matrix for an eye at pos looking along dir
// with the given up reference.
func lookAt(pos, dir, up *linear.V3) linear.M4 {
	var f, r, u linear.V3
	f.Norm(dir)
	r.Cross(&f, up)
	r.Norm(&r)
	u.Cross(&r, &f)

	var m linear.M4
	m[0] = linear.V4{r[0], u[0], -f[0], 0}
	m[1] = linear.V4{r[1], u[1], -f[1], 0}
	m[2] = linear.V4{r[2], u[2], -f[2], 0}
	m[3] = linear.V4{-r.Dot(pos), -u.Dot(pos), f.Dot(pos), 1}
	return m
}

// orthoZO writes a zero-to-one-depth orthographic projection into m.
func orthoZO(m *linear.M4, left, right, bottom, top, near, far float32) {
	m[0] = linear.V4{2 / (right - left), 0, 0, 0}
	m[1] = linear.V4{0, 2 / (top - bottom), 0, 0}
	m[2] = linear.V4{0, 0, -1 / (far - near), 0}
	m[3] = linear.V4{
		-(right + left) / (right - left),
		-(top + bottom) / (top - bottom),
		-near / (far - near),
		1,
	}
}
