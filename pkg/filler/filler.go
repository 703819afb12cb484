// Package filler consumes the free space of a volume with zero-filled dummy
// files and removes them again.
package filler

import (
	"fmt"
	"math"
	"path/filepath"

	"github.com/spf13/afero"

	"fillstorage/pkg/log"
)

const (
	// FreeSpaceFloor is the free space a fill never goes below.
	FreeSpaceFloor int64 = 100 * 1024 * 1024
	// MaxFileSize caps a single dummy file, keeping clear of filesystem file size limits.
	MaxFileSize int64 = 4 * 1024 * 1024 * 1024
	// ChunkSize is the size of one write; cancellation and progress happen per chunk.
	ChunkSize = 16 * 1024 * 1024

	dummyPrefix = "dummy"
	filePerm    = 0o644
)

// SpaceFunc reports the free bytes of the volume holding dir.
type SpaceFunc func(dir string) (uint64, error)

// ProgressFunc receives the free space after every written chunk.
type ProgressFunc func(freeBytes uint64)

// Filler fills and resets a single target directory. It does not lock:
// callers must not run Fill and Reset concurrently on the same directory.
type Filler struct {
	dir   string
	fs    afero.Fs
	space SpaceFunc

	floor       int64
	maxFileSize int64
	chunkSize   int
}

// Option customizes a Filler.
type Option func(*Filler)

// WithFs replaces the filesystem dummy files are written to.
func WithFs(fs afero.Fs) Option {
	return func(f *Filler) {
		f.fs = fs
	}
}

// WithSpaceFunc replaces the free space probe.
func WithSpaceFunc(space SpaceFunc) Option {
	return func(f *Filler) {
		f.space = space
	}
}

// New creates a Filler for dir, writing through the OS filesystem by default.
func New(dir string, opts ...Option) *Filler {
	f := &Filler{
		dir:         dir,
		fs:          afero.NewOsFs(),
		space:       VolumeFreeBytes,
		floor:       FreeSpaceFloor,
		maxFileSize: MaxFileSize,
		chunkSize:   ChunkSize,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Dir returns the target directory.
func (f *Filler) Dir() string {
	return f.dir
}

// Path returns the path of the dummy file with the given index.
func (f *Filler) Path(index int) string {
	return filepath.Join(f.dir, fmt.Sprintf("%s%d", dummyPrefix, index))
}

// FreeBytes returns the free bytes of the target volume, or 0 when the
// directory cannot be resolved.
func (f *Filler) FreeBytes() uint64 {
	free, err := f.space(f.dir)
	if err != nil {
		log.Debug().Err(err).Str("dir", f.dir).Msg("Failed to query free space")
		return 0
	}
	return free
}

func toInt64(v uint64) int64 {
	if v > math.MaxInt64 {
		return math.MaxInt64
	}
	return int64(v)
}
