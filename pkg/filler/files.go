package filler

import (
	"errors"
	"io/fs"
)

// DummyFile describes one existing dummy file.
type DummyFile struct {
	Index int
	Path  string
	Size  int64
}

// Files lists the dummy files from index 0 up to the first missing one.
func (f *Filler) Files() ([]DummyFile, error) {
	var files []DummyFile
	for index := 0; ; index++ {
		path := f.Path(index)
		info, err := f.fs.Stat(path)
		if errors.Is(err, fs.ErrNotExist) {
			return files, nil
		}
		if err != nil {
			return files, err
		}
		files = append(files, DummyFile{Index: index, Path: path, Size: info.Size()})
	}
}
