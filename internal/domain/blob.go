package domain

import (
	"context"
	"io"
	"time"
)

// BlobInfo describes a stored object.
type BlobInfo struct {
	Path         string    `json:"path"`
	Size         int64     `json:"size"`
	LastModified time.Time `json:"last_modified"`
}

// BlobWriter uploads data to object storage.
type BlobWriter interface {
	Put(ctx context.Context, path string, data io.Reader, contentType string) error
	PutMultipart(ctx context.Context, path string, data io.Reader, partSize int64) error
}

// BlobReader lists data in object storage.
type BlobReader interface {
	List(ctx context.Context, prefix string) ([]BlobInfo, error)
}

// ExportResult summarizes one snapshot export run.
type ExportResult struct {
	RunID      string    `json:"run_id"`
	Paths      []string  `json:"paths"`
	Pairs      int       `json:"pairs"`
	AuditRows  int       `json:"audit_rows"`
	ExportedAt time.Time `json:"exported_at"`
}
