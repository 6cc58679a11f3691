// Copyright 2024 Gustavo C. Viegas. All rights reserved.

// Package effect implements the fixed-order post-processing chain
// that runs after opaque/transparent color and before present: HZB
// build, AO, sun shafts, bloom, adaptive luminance, tonemap, antialias
// and the final blit to the surface.
//
// Each stage owns its own intermediate textures, recreated whenever
// the canvas is resized; nothing here decides canvas size, only reacts
// to it.
package effect

import (
	"errors"
	"fmt"

	"github.com/shard3d/shard/driver"
	"github.com/shard3d/shard/engine/internal/ctxt"
)

// Stage identifies one link of the fixed chain. Order is
// the only legal recording order for the stages.
type Stage int

const (
	StageHZBBuild Stage = iota
	StageAO
	StageSunShafts
	StageBloom
	StageAdaptiveLuminance
	StageTonemap
	StageAntialias
	StageBlitToSurface
	stageCount
)

// Order is the fixed recording order of the chain's stages.
var Order = [...]Stage{
	StageHZBBuild, StageAO, StageSunShafts, StageBloom,
	StageAdaptiveLuminance, StageTonemap, StageAntialias, StageBlitToSurface,
}

func (s Stage) String() string {
	names := [stageCount]string{
		"hzb_build", "ao", "sun_shafts", "bloom",
		"adaptive_luminance", "tonemap", "antialias", "blit_to_surface",
	}
	if s < 0 || s >= stageCount {
		return fmt.Sprintf("effect.Stage(%d)", int(s))
	}
	return names[s]
}

// Config selects the chain's configurable behavior. Exactly one of
// SMAA/FXAA/LXAA must be true.
type Config struct {
	SMAA, FXAA, LXAA bool
}

func (c Config) validate() error {
	n := 0
	for _, b := range [3]bool{c.SMAA, c.FXAA, c.LXAA} {
		if b {
			n++
		}
	}
	if n != 1 {
		return errors.New("effect: exactly one of SMAA/FXAA/LXAA must be enabled")
	}
	return nil
}

// intermediate is one stage's GPU-resident scratch image.
type intermediate struct {
	img  driver.Image
	view driver.ImageView
}

func (im *intermediate) destroy() {
	if im.view != nil {
		im.view.Destroy()
	}
	if im.img != nil {
		im.img.Destroy()
	}
	*im = intermediate{}
}

// Chain owns the intermediate textures for every stage and the
// antialias mode in effect.
type Chain struct {
	cfg           Config
	width, height int
	mipCount      int
	stages        [stageCount]intermediate
}

// NewChain creates a Chain sized for (width, height) under cfg.
func NewChain(width, height int, cfg Config) (*Chain, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	c := &Chain{cfg: cfg}
	if err := c.Resize(width, height); err != nil {
		return nil, err
	}
	return c, nil
}

// Resize recreates every stage's intermediate textures for the new
// canvas size. It is a no-op if the size has not changed.
func (c *Chain) Resize(width, height int) error {
	if width == c.width && height == c.height && c.stages[StageHZBBuild].img != nil {
		return nil
	}
	for i := range c.stages {
		c.stages[i].destroy()
	}
	c.width, c.height = width, height
	c.mipCount = mipCount(width, height)

	gpu := ctxt.GPU()
	mk := func(stage Stage, levels int, usage driver.Usage) error {
		img, err := gpu.NewImage(driver.R16f, driver.Dim3D{Width: width, Height: height, Depth: 0}, 1, levels, 1, usage)
		if err != nil {
			return err
		}
		view, err := img.NewView(driver.IView2D, 0, 1, 0, levels)
		if err != nil {
			img.Destroy()
			return err
		}
		c.stages[stage] = intermediate{img: img, view: view}
		return nil
	}

	rw := driver.UShaderRead | driver.UShaderWrite | driver.UShaderSample
	if err := mk(StageHZBBuild, c.mipCount, rw); err != nil {
		return err
	}
	if err := mk(StageAO, 1, rw); err != nil {
		return err
	}
	if err := mk(StageSunShafts, 1, rw); err != nil {
		return err
	}
	if err := mk(StageBloom, bloomLevels(c.mipCount), rw); err != nil {
		return err
	}
	if err := mk(StageAdaptiveLuminance, 1, rw); err != nil {
		return err
	}
	if err := mk(StageTonemap, 1, rw); err != nil {
		return err
	}
	if err := mk(StageAntialias, 1, rw); err != nil {
		return err
	}
	// StageBlitToSurface has no intermediate: it writes directly to
	// the swapchain image.
	return nil
}

// View returns the intermediate image view for stage, or nil for
// StageBlitToSurface.
func (c *Chain) View(stage Stage) driver.ImageView { return c.stages[stage].view }

// mipCount returns the HZB pyramid's level count: one level per halving
// until both dimensions reach 1, matching the occlusion test's need
// for a full min-reduction chain.
func mipCount(width, height int) int {
	n := 1
	for width > 1 || height > 1 {
		if width > 1 {
			width /= 2
		}
		if height > 1 {
			height /= 2
		}
		n++
	}
	return n
}

// bloomLevels caps the bloom progressive downscale chain well short
// of the full HZB pyramid depth: below a handful of pixels across,
// further downscaling contributes no visible glow.
func bloomLevels(hzbLevels int) int {
	const maxBloomLevels = 6
	if hzbLevels < maxBloomLevels {
		return hzbLevels
	}
	return maxBloomLevels
}

// Destroy releases every stage's intermediate textures.
func (c *Chain) Destroy() {
	for i := range c.stages {
		c.stages[i].destroy()
	}
}
