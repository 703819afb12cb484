package filler

import (
	"errors"
	"os"
	"sync"

	"github.com/spf13/afero"
)

const mib = 1024 * 1024

var errDiskFull = errors.New("no space left on device")

// volume simulates a disk of fixed capacity on top of an afero filesystem;
// free space is the capacity minus the bytes held by files in dir.
type volume struct {
	fs       afero.Fs
	dir      string
	capacity uint64
	external uint64
}

func (v *volume) free(dir string) (uint64, error) {
	if dir != v.dir {
		return 0, os.ErrNotExist
	}
	infos, err := afero.ReadDir(v.fs, dir)
	if err != nil {
		return 0, err
	}
	used := v.external
	for _, info := range infos {
		used += uint64(info.Size())
	}
	if used > v.capacity {
		return 0, nil
	}
	return v.capacity - used, nil
}

// limitedFs fails writes once limit bytes went through it and counts the
// handles that are currently open.
type limitedFs struct {
	afero.Fs

	mu      sync.Mutex
	limit   int64
	written int64
	open    int
	opened  int
}

func newLimitedFs(base afero.Fs, limit int64) *limitedFs {
	return &limitedFs{Fs: base, limit: limit}
}

func (l *limitedFs) OpenFile(name string, flag int, perm os.FileMode) (afero.File, error) {
	file, err := l.Fs.OpenFile(name, flag, perm)
	if err != nil {
		return nil, err
	}
	l.mu.Lock()
	l.open++
	l.opened++
	l.mu.Unlock()
	return &limitedFile{File: file, fs: l}, nil
}

func (l *limitedFs) openHandles() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.open
}

func (l *limitedFs) bytesWritten() int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.written
}

func (l *limitedFs) setLimit(limit int64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.limit = limit
}

type limitedFile struct {
	afero.File
	fs *limitedFs
}

func (f *limitedFile) Write(p []byte) (int, error) {
	f.fs.mu.Lock()
	remaining := f.fs.limit - f.fs.written
	f.fs.mu.Unlock()

	if remaining <= 0 {
		return 0, errDiskFull
	}

	var failure error
	if int64(len(p)) > remaining {
		p = p[:remaining]
		failure = errDiskFull
	}

	n, err := f.File.Write(p)

	f.fs.mu.Lock()
	f.fs.written += int64(n)
	f.fs.mu.Unlock()

	if err != nil {
		return n, err
	}
	return n, failure
}

func (f *limitedFile) Close() error {
	f.fs.mu.Lock()
	f.fs.open--
	f.fs.mu.Unlock()
	return f.File.Close()
}
