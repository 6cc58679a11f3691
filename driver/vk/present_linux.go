// Copyright 2022 Gustavo C. Viegas. All rights reserved.

//go:build !android

package vk

// #include <proc.h>
import "C"

import (
	"github.com/shard3d/shard/driver"
	"github.com/shard3d/shard/surface"
)

func (s *swapchain) initSurface() error {
	switch s.win.(type) {
	case nil:
		return s.initDisplaySurface()
	case surface.Wayland:
		return s.initWaylandSurface()
	case surface.XCB:
		return s.initXCBSurface()
	}
	return driver.ErrCannotPresent
}

// TODO
func (s *swapchain) initWaylandSurface() error {
	if !s.d.exts[extWaylandSurface] {
		return driver.ErrCannotPresent
	}
	panic("not implemented")
}
