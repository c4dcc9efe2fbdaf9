// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package extract materializes manifest entries from a sharded object store
// into a destination tree. Each entry is resolved, checked for existence and
// size, copied, and recorded as a types.Result. Per-entry failures never stop
// a run; only cancellation of the context does.
package extract

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/pdiddy/asset-extract/internal/objects"
	"github.com/pdiddy/asset-extract/pkg/types"
)

// tempPattern names in-flight copies in the destination directory.
const tempPattern = ".asset-extract-*.tmp"

// Observer is notified after every entry with the entry's result and the
// running counters.
type Observer interface {
	EntryDone(r types.Result, c types.Counts)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(r types.Result, c types.Counts)

// EntryDone calls f(r, c).
func (f ObserverFunc) EntryDone(r types.Result, c types.Counts) {
	f(r, c)
}

// Options carries the collaborators injected into an Engine.
type Options struct {
	// Logger receives per-entry warnings and the run summary. Nil discards.
	Logger *slog.Logger

	// Observer, if set, is called after each entry.
	Observer Observer
}

// Engine extracts manifests for one object store and one destination root.
type Engine struct {
	objectsDir      string
	outputDir       string
	verifyHash      bool
	preserveModTime bool

	logger   *slog.Logger
	observer Observer
}

// New returns an Engine configured from cfg. Only the ObjectsDir, OutputDir,
// VerifyHash and PreserveModTime fields are used.
func New(cfg types.ExtractionConfig, opts Options) *Engine {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Engine{
		objectsDir:      cfg.ObjectsDir,
		outputDir:       cfg.OutputDir,
		verifyHash:      cfg.VerifyHash,
		preserveModTime: cfg.PreserveModTime,
		logger:          logger,
		observer:        opts.Observer,
	}
}

// Run extracts every entry of m in order and returns the run summary. The
// returned error is non-nil only when ctx is cancelled; the summary then
// covers the entries processed before the interrupt.
func (e *Engine) Run(ctx context.Context, m *types.Manifest) (*types.Summary, error) {
	if m == nil {
		m = &types.Manifest{}
	}

	s := &types.Summary{
		Counts:    types.Counts{Total: m.Len()},
		StartedAt: time.Now(),
		Results:   make([]types.Result, 0, m.Len()),
	}
	e.logger.Info("extracting resource files",
		"entries", s.Total,
		"objects", e.objectsDir,
		"output", e.outputDir)

	for _, entry := range m.Entries {
		if err := ctx.Err(); err != nil {
			s.Interrupted = true
			s.FinishedAt = time.Now()
			e.logger.Warn("extraction interrupted", "done", s.Done(), "total", s.Total)
			return s, err
		}

		r := e.Extract(entry)
		s.Results = append(s.Results, r)
		if r.Outcome.Failed() {
			s.Failed++
		} else {
			s.Success++
			s.Bytes += entry.Size
		}
		if e.observer != nil {
			e.observer.EntryDone(r, s.Counts)
		}
	}

	s.FinishedAt = time.Now()
	e.logger.Info("extraction complete",
		"success", s.Success,
		"fail", s.Failed,
		"total", s.Total,
		"bytes", humanize.Bytes(uint64(s.Bytes)),
		"elapsed", s.FinishedAt.Sub(s.StartedAt).Round(time.Millisecond))
	return s, nil
}

// Extract materializes a single entry and reports what happened. It never
// returns an error; failures are carried in the Result.
func (e *Engine) Extract(entry types.Entry) types.Result {
	r := types.Result{
		Entry:  entry,
		Source: objects.Path(e.objectsDir, entry.Hash),
		Dest:   filepath.Join(e.outputDir, filepath.FromSlash(entry.Path)),
	}

	destDir := filepath.Dir(r.Dest)
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return e.fail(r, types.OutcomeDirectoryCreateFailed, fmt.Errorf("creating directory %s: %w", destDir, err))
	}

	info, err := os.Stat(r.Source)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return e.fail(r, types.OutcomeMissingSource, fmt.Errorf("source object %s does not exist", r.Source))
		}
		return e.fail(r, types.OutcomeCopyFailed, fmt.Errorf("inspecting source: %w", err))
	}
	if !info.Mode().IsRegular() {
		return e.fail(r, types.OutcomeCopyFailed, fmt.Errorf("source %s is not a regular file", r.Source))
	}
	if info.Size() != entry.Size {
		return e.fail(r, types.OutcomeSizeMismatch, sizeError(entry.Size, info.Size()))
	}

	if outcome, err := e.materialize(r, info); err != nil {
		return e.fail(r, outcome, err)
	}

	r.Outcome = types.OutcomeCopied
	e.logger.Debug("copied", "path", entry.Path, "size", humanize.Bytes(uint64(entry.Size)))
	return r
}

// materialize copies the source object to a temporary file beside the
// destination and renames it into place, so the destination path only ever
// holds complete content. On failure the temporary file is removed and the
// outcome describing the failure is returned.
func (e *Engine) materialize(r types.Result, info fs.FileInfo) (types.Outcome, error) {
	src, err := os.Open(r.Source)
	if err != nil {
		return types.OutcomeCopyFailed, fmt.Errorf("opening source: %w", err)
	}
	defer src.Close()

	tmp, err := os.CreateTemp(filepath.Dir(r.Dest), tempPattern)
	if err != nil {
		return types.OutcomeCopyFailed, fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	var w io.Writer = tmp
	digest := newDigest(r.Entry.Hash)
	if e.verifyHash && digest != nil {
		w = io.MultiWriter(tmp, digest)
	}

	n, err := io.Copy(w, src)
	if err != nil {
		tmp.Close()
		return types.OutcomeCopyFailed, fmt.Errorf("copying content: %w", err)
	}
	if n != r.Entry.Size {
		tmp.Close()
		return types.OutcomeSizeMismatch, sizeError(r.Entry.Size, n)
	}
	if e.verifyHash && digest != nil {
		if got := digestHex(digest); !hashEqual(got, r.Entry.Hash) {
			tmp.Close()
			return types.OutcomeHashMismatch, fmt.Errorf("content digest %s does not match hash %s", got, r.Entry.Hash)
		}
	}

	if err := tmp.Chmod(info.Mode().Perm()); err != nil {
		tmp.Close()
		return types.OutcomeCopyFailed, fmt.Errorf("setting permissions: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return types.OutcomeCopyFailed, fmt.Errorf("closing temp file: %w", err)
	}
	if e.preserveModTime {
		mtime := info.ModTime()
		if err := os.Chtimes(tmpPath, mtime, mtime); err != nil {
			return types.OutcomeCopyFailed, fmt.Errorf("setting modification time: %w", err)
		}
	}
	if err := os.Rename(tmpPath, r.Dest); err != nil {
		return types.OutcomeCopyFailed, fmt.Errorf("renaming into place: %w", err)
	}

	success = true
	return types.OutcomeCopied, nil
}

// fail records a failed outcome on r and logs it. Warnings cover problems
// with the store's content, errors cover problems writing the destination.
func (e *Engine) fail(r types.Result, outcome types.Outcome, err error) types.Result {
	r.Outcome = outcome
	r.Err = err

	switch outcome {
	case types.OutcomeMissingSource:
		e.logger.Warn("source file doesn't exist", "path", r.Entry.Path, "source", r.Source)
	case types.OutcomeSizeMismatch:
		e.logger.Warn("file size doesn't match", "path", r.Entry.Path, "error", err)
	case types.OutcomeHashMismatch:
		e.logger.Warn("file hash doesn't match", "path", r.Entry.Path, "error", err)
	case types.OutcomeDirectoryCreateFailed:
		e.logger.Error("create directory failed", "path", r.Entry.Path, "error", err)
	default:
		e.logger.Error("copy file failed", "path", r.Entry.Path, "error", err)
	}
	return r
}

func sizeError(expected, actual int64) error {
	return fmt.Errorf("size mismatch (expected: %d, actual: %d)", expected, actual)
}
