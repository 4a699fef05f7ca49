// Package follow tails a growing solver log file, handing complete lines to a
// callback as they are written. It survives truncation and recreation of the
// file, which happens when a case is rerun with output redirected to the
// same path.
package follow

import (
	"bufio"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const DefaultPollInterval = 500 * time.Millisecond

type Option func(*Follower)

// FromEnd skips content already in the file when following starts.
func FromEnd() Option {
	return func(f *Follower) { f.fromEnd = true }
}

// WithPollInterval sets how often the file is re-read even without a
// filesystem event. Some filesystems (NFS, bind mounts) never deliver one.
func WithPollInterval(d time.Duration) Option {
	return func(f *Follower) {
		if d > 0 {
			f.poll = d
		}
	}
}

// OnRestart registers a hook fired when the file is truncated or replaced.
func OnRestart(fn func()) Option {
	return func(f *Follower) { f.onRestart = fn }
}

func WithLogger(l *zap.Logger) Option {
	return func(f *Follower) {
		if l != nil {
			f.logger = l
		}
	}
}

type Follower struct {
	path      string
	fromEnd   bool
	poll      time.Duration
	onRestart func()
	logger    *zap.Logger

	file    *os.File
	reader  *bufio.Reader
	pos     int64
	partial strings.Builder
	opened  bool
}

func New(path string, opts ...Option) *Follower {
	f := &Follower{
		path:   path,
		poll:   DefaultPollInterval,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Run follows the file until ctx is done, calling onLine for each complete
// line without its trailing newline. A missing file is waited for. Run
// returns nil on cancellation.
func (f *Follower) Run(ctx context.Context, onLine func(string)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	// The directory is watched rather than the file so creation after a
	// remove or rename is still seen.
	dir := filepath.Dir(f.path)
	if err := watcher.Add(dir); err != nil {
		return err
	}
	f.logger.Debug("following log", zap.String("path", f.path))

	defer f.closeFile()
	if err := f.open(f.fromEnd); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	f.drain(onLine)

	ticker := time.NewTicker(f.poll)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != filepath.Clean(f.path) {
				continue
			}
			switch {
			case event.Has(fsnotify.Create):
				if !f.isCurrent() {
					f.restart()
				}
			case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
				f.drain(onLine)
				f.closeFile()
				continue
			}
			f.drain(onLine)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			f.logger.Warn("watch error", zap.String("path", f.path), zap.Error(err))

		case <-ticker.C:
			f.drain(onLine)
		}
	}
}

func (f *Follower) open(atEnd bool) error {
	file, err := os.Open(f.path)
	if err != nil {
		return err
	}
	f.pos = 0
	if atEnd {
		pos, err := file.Seek(0, io.SeekEnd)
		if err != nil {
			file.Close()
			return err
		}
		f.pos = pos
	}
	f.file = file
	f.reader = bufio.NewReader(file)
	f.partial.Reset()
	f.opened = true
	return nil
}

// isCurrent reports whether the open handle still refers to the file at path.
func (f *Follower) isCurrent() bool {
	if f.file == nil {
		return false
	}
	open, err := f.file.Stat()
	if err != nil {
		return false
	}
	onDisk, err := os.Stat(f.path)
	if err != nil {
		return false
	}
	return os.SameFile(open, onDisk)
}

func (f *Follower) closeFile() {
	if f.file != nil {
		f.file.Close()
		f.file = nil
		f.reader = nil
	}
}

func (f *Follower) restart() {
	seen := f.opened
	f.closeFile()
	if err := f.open(false); err != nil {
		f.logger.Debug("reopen failed", zap.String("path", f.path), zap.Error(err))
		return
	}
	if !seen {
		return
	}
	f.logger.Info("log restarted", zap.String("path", f.path))
	if f.onRestart != nil {
		f.onRestart()
	}
}

// drain reads every complete line currently available.
func (f *Follower) drain(onLine func(string)) {
	if f.file == nil {
		if _, err := os.Stat(f.path); err != nil {
			return
		}
		f.restart()
		if f.file == nil {
			return
		}
	}

	if info, err := f.file.Stat(); err == nil && info.Size() < f.pos {
		f.logger.Info("log truncated", zap.String("path", f.path))
		f.restart()
		if f.file == nil {
			return
		}
	}

	for {
		chunk, err := f.reader.ReadString('\n')
		f.pos += int64(len(chunk))
		if err != nil {
			// Keep the unterminated tail until the writer finishes it.
			f.partial.WriteString(chunk)
			if !errors.Is(err, io.EOF) {
				f.logger.Warn("read failed", zap.String("path", f.path), zap.Error(err))
			}
			return
		}
		line := chunk[:len(chunk)-1]
		if f.partial.Len() > 0 {
			f.partial.WriteString(line)
			line = f.partial.String()
			f.partial.Reset()
		}
		onLine(strings.TrimSuffix(line, "\r"))
	}
}
