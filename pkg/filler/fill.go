package filler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"fillstorage/pkg/log"
)

// errInterrupted stops a single file extension when the fill context is done.
var errInterrupted = errors.New("interrupted")

// Fill writes dummy files until the free space of the target volume reaches
// the floor, a write fails, or ctx is cancelled. It returns the bytes that
// were left to write; a positive value with a nil error means a write error
// stopped the fill early. On cancellation the open file is still closed and
// a final free space report is issued before ErrCancelled is returned.
func (f *Filler) Fill(ctx context.Context, report ProgressFunc) (int64, error) {
	if report == nil {
		report = func(uint64) {}
	}

	buffer := make([]byte, f.chunkSize)
	size := toInt64(f.FreeBytes()) - f.floor
	iterations := 0
	running := true
	cancelled := false

	log.Info().Str("dir", f.dir).Int64("to_write", size).Msg("Starting fill")

	for running && size > 0 {
		if ctx.Err() != nil {
			cancelled = true
			break
		}

		written, err := f.extend(ctx, iterations, size, buffer, report)
		size -= written
		switch {
		case errors.Is(err, errInterrupted):
			cancelled = true
			running = false
		case err != nil:
			running = false
		}
		iterations++
	}

	// Not tied to ctx: a cancelled run must not leave a stale value behind.
	report(f.FreeBytes())

	if cancelled {
		log.Info().Str("dir", f.dir).Int64("remaining", size).Msg("Fill cancelled")
		return size, fmt.Errorf("%w: %w", ErrCancelled, context.Cause(ctx))
	}

	log.Info().Str("dir", f.dir).Int64("remaining", size).Int("files", iterations).Msg("Fill finished")
	return size, nil
}

// extend grows the dummy file at index towards min(size, maxFileSize) and
// returns the number of bytes appended. The file is closed on every path.
func (f *Filler) extend(ctx context.Context, index int, size int64, buffer []byte, report ProgressFunc) (int64, error) {
	path := f.Path(index)

	file, err := f.fs.OpenFile(path, os.O_RDWR|os.O_CREATE, filePerm)
	if err != nil {
		log.Warn().Err(err).Str("file", path).Msg("Failed to open dummy file, aborting")
		return 0, err
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil {
			log.Warn().Err(closeErr).Str("file", path).Msg("Failed to close dummy file")
		}
	}()

	info, err := file.Stat()
	if err != nil {
		log.Warn().Err(err).Str("file", path).Msg("Failed to stat dummy file, aborting")
		return 0, err
	}

	toCreate := min(size, f.maxFileSize) - info.Size()
	if toCreate <= 0 {
		log.Debug().Str("file", path).Int64("length", info.Size()).Msg("Dummy file already full, skipping")
		return 0, nil
	}

	if _, err := file.Seek(0, io.SeekEnd); err != nil {
		log.Warn().Err(err).Str("file", path).Msg("Failed to seek dummy file, aborting")
		return 0, err
	}

	log.Info().Str("file", path).Int64("size", toCreate).Msg("Extending dummy file")

	var written int64
	for toCreate > 0 {
		chunk := int(min(toCreate, int64(len(buffer))))
		n, err := file.Write(buffer[:chunk])
		written += int64(n)
		toCreate -= int64(n)
		if err != nil {
			log.Warn().Err(err).Str("file", path).Int64("written", written).Msg("Write failed, aborting")
			return written, err
		}

		report(f.FreeBytes())

		if ctx.Err() != nil {
			return written, errInterrupted
		}
	}

	return written, nil
}
