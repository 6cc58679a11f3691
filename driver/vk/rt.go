// Copyright 2024 Gustavo C. Viegas. All rights reserved.

package vk

import "github.com/shard3d/shard/driver"

// NewBLAS is not implemented by this backend.
// Building the VK_KHR_acceleration_structure plumbing is left
// for a driver revision that targets ray tracing hardware.
func (d *Driver) NewBLAS(geom []driver.BLASGeometry) (driver.BLAS, error) {
	return nil, driver.ErrNoRayTracing
}

// NewTLAS is not implemented by this backend.
func (d *Driver) NewTLAS(cap int) (driver.TLAS, error) {
	return nil, driver.ErrNoRayTracing
}
