// Copyright 2024 Gustavo C. Viegas. All rights reserved.

// Package lof implements the engine's shipping package format: a
// Library Of Files holding zstd-compressed asset blobs addressed by a
// trailing manifest.
//
// Layout:
//
//	u32 version (=0)
//	u64 manifest_offset
//	u64 manifest_size
//	<zstd-compressed blob>...
//	<zstd-compressed, msgpack-encoded manifest>
//
// The header's offset/size fields are written as zero, then patched
// once the manifest has actually been written, since neither value is
// known until every blob has been placed.
package lof

import (
	"encoding/binary"
	"errors"
	"io"
	"io/fs"
	"sort"

	"github.com/klauspost/compress/zstd"
	"github.com/vmihailenco/msgpack/v5"
)

// Version is the only package format version this implementation
// reads or writes.
const Version = 0

// headerSize is the byte length of the fixed header: one u32 plus
// two u64 fields.
const headerSize = 4 + 8 + 8

var (
	// ErrVersion means the package's version field does not match
	// Version.
	ErrVersion = errors.New("lof: unsupported package version")
	// ErrNotFound means the requested asset path has no manifest
	// entry.
	ErrNotFound = errors.New("lof: asset not found")
)

// entry is one manifest record: the compressed blob's location within
// the package.
type entry struct {
	Offset uint64 `msgpack:"offset"`
	Size   uint64 `msgpack:"size"`
}

// manifest is the msgpack-encoded, zstd-compressed trailer mapping
// asset paths to their blob location.
type manifest struct {
	Assets map[string]entry `msgpack:"assets"`
}

// Create writes every regular file under fsys into w as a package,
// compressing each file's bytes independently and appending a
// compressed manifest. Paths are recorded exactly as returned by
// fs.WalkDir, so the caller controls path normalization (e.g. via
// fs.Sub) before calling Create.
func Create(w io.WriteSeeker, fsys fs.FS) error {
	var hdr [headerSize]byte
	if _, err := w.Write(hdr[:]); err != nil {
		return err
	}

	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return err
	}
	defer enc.Close()

	assets := make(map[string]entry)
	var offset uint64 = headerSize

	err = fs.WalkDir(fsys, ".", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		data, err := fs.ReadFile(fsys, path)
		if err != nil {
			return err
		}
		blob := enc.EncodeAll(data, nil)
		n, err := w.Write(blob)
		if err != nil {
			return err
		}
		assets[path] = entry{Offset: offset, Size: uint64(n)}
		offset += uint64(n)
		return nil
	})
	if err != nil {
		return err
	}

	manifestBytes, err := msgpack.Marshal(&manifest{Assets: assets})
	if err != nil {
		return err
	}
	manifestBlob := enc.EncodeAll(manifestBytes, nil)
	manifestOffset := offset
	if _, err := w.Write(manifestBlob); err != nil {
		return err
	}

	if _, err := w.Seek(0, io.SeekStart); err != nil {
		return err
	}
	binary.LittleEndian.PutUint32(hdr[0:4], Version)
	binary.LittleEndian.PutUint64(hdr[4:12], manifestOffset)
	binary.LittleEndian.PutUint64(hdr[12:20], uint64(len(manifestBlob)))
	_, err = w.Write(hdr[:])
	return err
}

// Package is an opened LOF ready for random-access asset reads.
type Package struct {
	r      io.ReaderAt
	assets map[string]entry
	dec    *zstd.Decoder
}

// Open parses r's header and manifest. r must support reads at
// arbitrary offsets (e.g. an *os.File or bytes.Reader).
func Open(r io.ReaderAt) (*Package, error) {
	var hdr [headerSize]byte
	if _, err := r.ReadAt(hdr[:], 0); err != nil {
		return nil, err
	}
	if binary.LittleEndian.Uint32(hdr[0:4]) != Version {
		return nil, ErrVersion
	}
	manifestOffset := binary.LittleEndian.Uint64(hdr[4:12])
	manifestSize := binary.LittleEndian.Uint64(hdr[12:20])

	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, err
	}

	manifestBlob := make([]byte, manifestSize)
	if _, err := r.ReadAt(manifestBlob, int64(manifestOffset)); err != nil {
		dec.Close()
		return nil, err
	}
	manifestBytes, err := dec.DecodeAll(manifestBlob, nil)
	if err != nil {
		dec.Close()
		return nil, err
	}
	var m manifest
	if err := msgpack.Unmarshal(manifestBytes, &m); err != nil {
		dec.Close()
		return nil, err
	}
	return &Package{r: r, assets: m.Assets, dec: dec}, nil
}

// Read returns the decompressed bytes of the named asset.
func (p *Package) Read(name string) ([]byte, error) {
	e, ok := p.assets[name]
	if !ok {
		return nil, ErrNotFound
	}
	blob := make([]byte, e.Size)
	if _, err := p.r.ReadAt(blob, int64(e.Offset)); err != nil {
		return nil, err
	}
	return p.dec.DecodeAll(blob, nil)
}

// ReadStr is Read decoded as a string, for text assets (shader
// source, config files).
func (p *Package) ReadStr(name string) (string, error) {
	b, err := p.Read(name)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Names returns every asset path recorded in the manifest, sorted.
func (p *Package) Names() []string {
	names := make([]string, 0, len(p.assets))
	for name := range p.assets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Close releases the decoder's resources. It does not close the
// underlying reader.
func (p *Package) Close() {
	p.dec.Close()
}
