// Copyright 2024 Gustavo C. Viegas. All rights reserved.

package engine

import "github.com/shard3d/shard/engine/internal/assets"

// LoadTextureView reads path from p and uploads it into t's view,
// bypassing any CPU-side format conversion: the bytes read must
// already match the view's pixel layout and size. commit forces the
// staging buffer to flush immediately rather than batching with other
// pending uploads.
func LoadTextureView(t *Texture, view int, p assets.Provider, path string, commit bool) error {
	data, err := p.Read(path)
	if err != nil {
		return err
	}
	return t.CopyToView(view, data, commit)
}
