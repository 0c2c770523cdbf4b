// Package export implements the bulk manifest exporter: a cursor-driven
// scan of the whole keyspace, two pipelined round trips per batch, and a
// streaming JSON writer, so memory stays bounded by one batch regardless of
// keyspace size.
//
// The manifest is written to a temporary file and promoted to its final
// path only on completion; a cancelled or failed export deletes the
// temporary file and leaves the final path untouched. Cancellation is
// cooperative through the run context, observed at the top of every batch
// and before every entry write; pipelined round trips already in flight
// run to completion.
package export

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	enc "github.com/vecdump/vecdump/pkg/encoding"
	"github.com/vecdump/vecdump/pkg/storage"
	"github.com/vecdump/vecdump/pkg/store"
)

// ErrBusy is returned by Run when the exporter has already been started.
var ErrBusy = errors.New("export: already started")

// Defaults and thresholds.
const (
	DefaultBatchSize       int64 = 100
	DefaultProgressEvery   int64 = 1000
	DefaultCollectionLimit int64 = 101
	DefaultEmbeddingField        = "embedding"

	// LargeKeyspaceThreshold is the advisory key count above which an
	// export warns that it may take a while. Behavior does not change.
	LargeKeyspaceThreshold int64 = 100_000
)

// Options configures an Exporter.
type Options struct {
	// BatchSize is the SCAN count hint. Default DefaultBatchSize.
	BatchSize int64

	// Match scopes the export to keys matching a glob pattern.
	// Empty exports every key.
	Match string

	// ProgressEvery is the entry granularity of progress snapshots.
	// Default DefaultProgressEvery.
	ProgressEvery int64

	// EmbeddingField is the hash field decoded as a packed vector.
	// Default DefaultEmbeddingField.
	EmbeddingField string

	// CollectionLimit caps exported list and sorted-set elements.
	// Default DefaultCollectionLimit.
	CollectionLimit int64

	// Logger is optional. If nil, uses slog.Default().
	Logger *slog.Logger
}

// Result summarizes a completed export.
type Result struct {
	// Path is the final manifest location within the file store.
	Path string

	// Exported is the number of entries written.
	Exported int64

	// Total is the advisory key-count snapshot taken at export start.
	Total int64

	// LargeKeyspace reports that Total exceeded LargeKeyspaceThreshold.
	LargeKeyspace bool

	Duration time.Duration
	Bytes    int64
	Checksum enc.HexData
}

// Exporter writes one manifest of the whole keyspace. It is single-use:
// Run may be called once, and a second call returns ErrBusy whether the
// first is still in flight or already finished. Create a new Exporter for
// another export.
type Exporter struct {
	client store.Client
	files  storage.FileStore
	opts   Options
	logger *slog.Logger

	state    atomic.Int32
	progress chan Progress
}

// New creates an Exporter over a store client and a manifest sink.
func New(client store.Client, files storage.FileStore, opts Options) *Exporter {
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	if opts.ProgressEvery <= 0 {
		opts.ProgressEvery = DefaultProgressEvery
	}
	if opts.EmbeddingField == "" {
		opts.EmbeddingField = DefaultEmbeddingField
	}
	if opts.CollectionLimit <= 0 {
		opts.CollectionLimit = DefaultCollectionLimit
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Exporter{
		client:   client,
		files:    files,
		opts:     opts,
		logger:   logger,
		progress: make(chan Progress, 1),
	}
}

// State returns the exporter's lifecycle state.
func (e *Exporter) State() State {
	return State(e.state.Load())
}

// Progress returns the snapshot stream for this exporter's single run.
// Snapshots arrive at the configured entry granularity plus one final
// snapshot on completion; the channel closes at the terminal state. A slow
// consumer never blocks the export: stale snapshots are replaced.
func (e *Exporter) Progress() <-chan Progress {
	return e.progress
}

// Run exports every matching key to a manifest at path. It blocks until
// the export reaches a terminal state and returns the result on
// completion, ctx.Err() on cancellation, or the first failure otherwise.
func (e *Exporter) Run(ctx context.Context, path string) (*Result, error) {
	if !e.state.CompareAndSwap(int32(StateIdle), int32(StateRunning)) {
		return nil, ErrBusy
	}
	opID := uuid.NewString()[:8]
	logger := e.logger.With("op", opID, "path", path)

	res, err := e.run(ctx, path, opID, logger)
	switch {
	case err == nil:
		e.finish(StateCompleted)
		logger.Info("export: completed",
			"keys", res.Exported, "bytes", res.Bytes, "duration", res.Duration)
		return res, nil
	case ctx.Err() != nil:
		e.finish(StateCancelled)
		logger.Info("export: cancelled, partial output removed")
		return nil, err
	default:
		e.finish(StateFailed)
		logger.Error("export: failed", "error", err)
		return nil, err
	}
}

func (e *Exporter) run(ctx context.Context, path, opID string, logger *slog.Logger) (*Result, error) {
	start := time.Now()
	if err := e.client.Ping(ctx); err != nil {
		return nil, err
	}
	total, err := e.client.DBSize(ctx)
	if err != nil {
		return nil, fmt.Errorf("export: key count: %w", err)
	}
	large := total > LargeKeyspaceThreshold
	if large {
		logger.Warn("export: large keyspace, this may take a while", "keys", total)
	}
	logger.Info("export: starting", "keys", total, "match", e.opts.Match)

	tmp := fmt.Sprintf("%s.%s.tmp", path, opID)
	sink, err := e.files.Write(ctx, tmp)
	if err != nil {
		return nil, fmt.Errorf("export: open sink: %w", err)
	}
	mw := newManifestWriter(sink)

	// Every exit but promotion removes the temp file. Cleanup must
	// survive a cancelled run context.
	committed := false
	defer func() {
		if committed {
			return
		}
		_ = mw.abort()
		if err := e.files.Delete(context.WithoutCancel(ctx), tmp); err != nil {
			logger.Error("export: removing partial manifest failed", "file", tmp, "error", err)
		}
	}()

	if err := mw.begin(start, total); err != nil {
		return nil, fmt.Errorf("export: write header: %w", err)
	}

	fetch := FetchOptions{
		EmbeddingField:  e.opts.EmbeddingField,
		CollectionLimit: e.opts.CollectionLimit,
	}
	var exported, lastReport int64
	for keys, err := range store.ScanAll(ctx, e.client, e.opts.Match, e.opts.BatchSize) {
		if err != nil {
			return nil, err
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		entries, err := FetchBatch(ctx, e.client, keys, fetch)
		if err != nil {
			return nil, err
		}
		for _, entry := range entries {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			if err := mw.writeEntry(entry); err != nil {
				return nil, err
			}
			exported++
			if exported-lastReport >= e.opts.ProgressEvery {
				lastReport = exported
				e.report(snapshot(exported, total))
				logger.Debug("export: progress", "exported", exported, "total", total)
			}
		}
	}

	if err := mw.finish(); err != nil {
		return nil, fmt.Errorf("export: finalize manifest: %w", err)
	}
	if err := e.files.Rename(ctx, tmp, path); err != nil {
		return nil, fmt.Errorf("export: promote manifest: %w", err)
	}
	committed = true
	e.report(snapshot(exported, total))

	return &Result{
		Path:          path,
		Exported:      exported,
		Total:         total,
		LargeKeyspace: large,
		Duration:      time.Since(start),
		Bytes:         mw.bytesWritten(),
		Checksum:      mw.checksum(),
	}, nil
}

// report delivers a snapshot without ever blocking the export loop. When
// the consumer lags, the stale snapshot is dropped for the new one.
func (e *Exporter) report(p Progress) {
	for {
		select {
		case e.progress <- p:
			return
		default:
			select {
			case <-e.progress:
			default:
			}
		}
	}
}

func (e *Exporter) finish(s State) {
	e.state.Store(int32(s))
	close(e.progress)
}
