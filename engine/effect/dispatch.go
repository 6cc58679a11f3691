// Copyright 2024 Gustavo C. Viegas. All rights reserved.

package effect

// const workgroupSize must match every compute shader in this
// chain's declared local_size_x/y.
const workgroupSize = 8

// groupCounts returns the compute workgroup counts covering a
// width x height dispatch target.
func groupCounts(width, height int) (x, y int) {
	x = (width + workgroupSize - 1) / workgroupSize
	y = (height + workgroupSize - 1) / workgroupSize
	return
}

// mipSize returns the dimensions of mip level, derived from the base
// (level 0) width/height by successive halving with a floor of 1.
func mipSize(width, height, level int) (w, h int) {
	w, h = width, height
	for i := 0; i < level; i++ {
		if w > 1 {
			w /= 2
		}
		if h > 1 {
			h /= 2
		}
	}
	return
}

// HZBDispatch returns the compute dispatch (group counts) for mip
// level of the HZB pyramid built from a base width x height depth
// buffer. The HZB build is a chain of min-downsample passes, one per
// mip, each reading the previous level.
func (c *Chain) HZBDispatch(level int) (x, y int) {
	w, h := mipSize(c.width, c.height, level+1)
	return groupCounts(w, h)
}

// BloomDownsampleDispatch returns the dispatch for the progressive
// downscale step writing bloom mip level.
func (c *Chain) BloomDownsampleDispatch(level int) (x, y int) {
	w, h := mipSize(c.width, c.height, level+1)
	return groupCounts(w, h)
}

// BloomUpsampleDispatch returns the dispatch for the progressive
// upscale-with-additive-combine step writing bloom mip level (counting
// down from the smallest mip toward the full-resolution image).
func (c *Chain) BloomUpsampleDispatch(level int) (x, y int) {
	w, h := mipSize(c.width, c.height, level)
	return groupCounts(w, h)
}
