package filler

import (
	"errors"
	"io/fs"

	"fillstorage/pkg/log"
)

// Reset deletes dummy0, dummy1, ... and stops at the first missing index.
// A file that exists but cannot be removed also stops the loop and is
// reported as a *RemoveError. It returns the number of deleted files.
func (f *Filler) Reset() (int, error) {
	for index := 0; ; index++ {
		path := f.Path(index)

		if err := f.fs.Remove(path); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				log.Info().Str("dir", f.dir).Int("deleted", index).Msg("Reset finished")
				return index, nil
			}
			log.Error().Err(err).Str("file", path).Int("deleted", index).Msg("Failed to delete dummy file")
			return index, &RemoveError{Path: path, Err: err}
		}

		log.Info().Str("file", path).Msg("Dummy file deleted")
	}
}
