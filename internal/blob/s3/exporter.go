package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/alanyoungcy/arblens/internal/domain"
)

// Exporter writes point-in-time snapshots of the pair table and the audit log
// to object storage as JSONL files.
//
//	snapshots/2026/10/16/<run-id>/pairs.jsonl
//	snapshots/2026/10/16/<run-id>/audit.jsonl
type Exporter struct {
	writer domain.BlobWriter
	reader domain.BlobReader
	pairs  domain.PairStore
	audit  domain.AuditStore
	prefix string
	logger *slog.Logger
	now    func() time.Time

	// mu serializes runs so a cron tick and a manual trigger never interleave.
	mu sync.Mutex
}

// NewExporter creates an Exporter. reader may be nil, in which case List
// returns an empty result.
func NewExporter(
	writer domain.BlobWriter,
	reader domain.BlobReader,
	pairs domain.PairStore,
	audit domain.AuditStore,
	prefix string,
	logger *slog.Logger,
) *Exporter {
	return &Exporter{
		writer: writer,
		reader: reader,
		pairs:  pairs,
		audit:  audit,
		prefix: strings.Trim(prefix, "/"),
		logger: logger.With(slog.String("component", "exporter")),
		now:    time.Now,
	}
}

// SetClock overrides the time source.
func (e *Exporter) SetClock(now func() time.Time) { e.now = now }

// Export writes one snapshot and records it in the audit log. The audit file
// holds the log as it was before this run's own entry.
func (e *Exporter) Export(ctx context.Context) (domain.ExportResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.now().UTC()
	res := domain.ExportResult{
		RunID:      uuid.NewString(),
		ExportedAt: now,
	}

	pairs, err := e.pairs.List(ctx)
	if err != nil {
		return res, fmt.Errorf("s3blob: export pairs query: %w", err)
	}
	entries, err := e.audit.List(ctx, domain.ListOpts{})
	if err != nil {
		return res, fmt.Errorf("s3blob: export audit query: %w", err)
	}

	dir := e.runDir(now, res.RunID)

	pairsBuf, err := marshalJSONL(pairs)
	if err != nil {
		return res, fmt.Errorf("s3blob: export pairs marshal: %w", err)
	}
	auditBuf, err := marshalJSONL(entries)
	if err != nil {
		return res, fmt.Errorf("s3blob: export audit marshal: %w", err)
	}

	for _, f := range []struct {
		name string
		buf  []byte
	}{
		{"pairs.jsonl", pairsBuf},
		{"audit.jsonl", auditBuf},
	} {
		key := path.Join(dir, f.name)
		if err := e.put(ctx, key, f.buf); err != nil {
			return res, err
		}
		res.Paths = append(res.Paths, key)
	}
	res.Pairs = len(pairs)
	res.AuditRows = len(entries)

	if err := e.audit.Log(ctx, "snapshot_exported", map[string]any{
		"run_id": res.RunID,
		"paths":  res.Paths,
		"pairs":  res.Pairs,
		"audit":  res.AuditRows,
	}); err != nil {
		return res, fmt.Errorf("s3blob: export audit log: %w", err)
	}

	e.logger.InfoContext(ctx, "snapshot exported",
		slog.String("run_id", res.RunID),
		slog.Int("pairs", res.Pairs),
		slog.Int("audit_rows", res.AuditRows),
	)
	return res, nil
}

// List returns the objects previously written under the export prefix.
func (e *Exporter) List(ctx context.Context) ([]domain.BlobInfo, error) {
	if e.reader == nil {
		return []domain.BlobInfo{}, nil
	}
	prefix := e.prefix
	if prefix != "" {
		prefix += "/"
	}
	infos, err := e.reader.List(ctx, prefix)
	if err != nil {
		return nil, err
	}
	if infos == nil {
		infos = []domain.BlobInfo{}
	}
	return infos, nil
}

// RunCron runs Export on the given six-field schedule until ctx is cancelled.
// Failed runs are logged and retried on the next tick.
func (e *Exporter) RunCron(ctx context.Context, spec string) error {
	c := cron.New(cron.WithSeconds(), cron.WithLocation(time.UTC))
	if _, err := c.AddFunc(spec, func() {
		if _, err := e.Export(ctx); err != nil {
			e.logger.ErrorContext(ctx, "scheduled export failed", slog.String("error", err.Error()))
		}
	}); err != nil {
		return fmt.Errorf("s3blob: export schedule %q: %w", spec, err)
	}

	e.logger.Info("export schedule started", slog.String("cron", spec))
	c.Start()
	<-ctx.Done()
	<-c.Stop().Done()
	e.logger.Info("export schedule stopped")
	return nil
}

func (e *Exporter) runDir(at time.Time, runID string) string {
	return path.Join(e.prefix, at.Format("2006/01/02"), runID)
}

func (e *Exporter) put(ctx context.Context, key string, buf []byte) error {
	var err error
	if int64(len(buf)) > minPartSize {
		err = e.writer.PutMultipart(ctx, key, bytes.NewReader(buf), minPartSize)
	} else {
		err = e.writer.Put(ctx, key, bytes.NewReader(buf), jsonlContentType)
	}
	if err != nil {
		return fmt.Errorf("s3blob: export upload %s: %w", key, err)
	}
	return nil
}

// marshalJSONL serialises a slice of values as newline-delimited JSON (JSONL).
// Each element is marshalled as a single compact JSON line followed by '\n'.
func marshalJSONL[T any](records []T) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	for i, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return nil, fmt.Errorf("jsonl encode record %d: %w", i, err)
		}
	}
	return buf.Bytes(), nil
}
