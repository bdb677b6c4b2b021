package vfs

import (
	"context"
	"io"

	"github.com/unfound-os/unfoundfs/pkg/store"
)

// FileInfo describes an open file as seen through a descriptor.
type FileInfo struct {
	File   store.FileID
	Path   string
	Size   int64
	Offset int64
}

// Seek repositions the descriptor's offset. Whence is one of
// io.SeekStart, io.SeekCurrent, or io.SeekEnd. Seeking past the end of
// the file is allowed (a later write there zero-fills the gap);
// seeking before the start is not.
func (e *Engine) Seek(ctx context.Context, fd int, offset int64, whence int) (int64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	d, err := e.descriptor(fd)
	if err != nil {
		return 0, err
	}

	var base int64
	switch whence {
	case io.SeekStart:
		base = 0
	case io.SeekCurrent:
		base = d.offset
	case io.SeekEnd:
		size, err := e.store.Size(ctx, d.file)
		if err != nil {
			return 0, err
		}
		base = size
	default:
		return 0, ErrInvalidArgument
	}

	pos := base + offset
	if pos < 0 {
		return 0, ErrOutOfRange
	}
	d.offset = pos
	return pos, nil
}

// Stat reports the file behind the descriptor.
func (e *Engine) Stat(ctx context.Context, fd int) (FileInfo, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	d, err := e.descriptor(fd)
	if err != nil {
		return FileInfo{}, err
	}
	size, err := e.store.Size(ctx, d.file)
	if err != nil {
		return FileInfo{}, err
	}
	return FileInfo{File: d.file, Path: d.path, Size: size, Offset: d.offset}, nil
}

// Dup allocates a new descriptor for the same file. The copy starts at
// the source's current offset but advances independently afterwards.
func (e *Engine) Dup(fd int) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	d, err := e.descriptor(fd)
	if err != nil {
		return -1, err
	}
	cp := *d
	return e.allocFD(&cp), nil
}

// Dup2 copies the descriptor into the slot newfd, closing whatever was
// there. Dup2(fd, fd) is a no-op returning fd.
func (e *Engine) Dup2(fd, newfd int) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	d, err := e.descriptor(fd)
	if err != nil {
		return -1, err
	}
	if newfd < 0 {
		return -1, ErrInvalidArgument
	}
	if newfd == fd {
		return newfd, nil
	}

	cp := *d
	for len(e.fds) <= newfd {
		e.fds = append(e.fds, nil)
	}
	e.fds[newfd] = &cp
	return newfd, nil
}
