// Copyright 2022 Gustavo C. Viegas. All rights reserved.

//go:build !linux && !windows

package vk

import (
	"github.com/shard3d/shard/driver"
	"github.com/shard3d/shard/surface"
)

// initSurface creates a new surface from s.win.
// s.d and s.win must have been set to valid values.
// It sets the qfam and sf fields of s.
func (s *swapchain) initSurface() error {
	switch s.win.(type) {
	case nil:
		return s.initDisplaySurface()
	case surface.XCB:
		return s.initXCBSurface()
	}
	return driver.ErrCannotPresent
}
