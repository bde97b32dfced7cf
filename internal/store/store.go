// Package store persists document versions, searchable metadata, and the
// Drive-folder name-to-document mapping.
package store

import (
	"context"
	"time"
)

// Version is a snapshot of a document's plain text taken before an update
// cycle rewrites it.
type Version struct {
	ID           string
	DocID        string
	TeamID       string
	Content      string
	CharCount    int
	MessageCount int
	// TriggerType records what flushed the version: "threshold", "forced",
	// or "manual".
	TriggerType string
	CreatedAt   time.Time
}

// Metadata is the searchable description of a managed document.
type Metadata struct {
	DocID       string
	TeamID      string
	Title       string
	Description string
	UpdatedAt   time.Time
}

// Mapping binds a document name inside the managed Drive folder to its
// document ID.
type Mapping struct {
	Name     string
	DocID    string
	FolderID string
	SyncedAt time.Time
}

// Store defines the persistence interface for the updater service.
type Store interface {
	// SaveVersion records a snapshot and returns its generated ID.
	SaveVersion(ctx context.Context, v Version) (string, error)

	// ListVersions returns the snapshots for a document, newest first,
	// capped at limit (limit <= 0 means no cap).
	ListVersions(ctx context.Context, docID string, limit int) ([]Version, error)

	// LatestVersion returns the most recent snapshot for a document, or nil
	// if none exists.
	LatestVersion(ctx context.Context, docID string) (*Version, error)

	// UpsertMetadata inserts or replaces a document's metadata.
	UpsertMetadata(ctx context.Context, m Metadata) error

	// GetMetadata returns the metadata for a document, or nil if unknown.
	GetMetadata(ctx context.Context, docID string) (*Metadata, error)

	// SearchMetadata returns documents whose title or description contains
	// the query, compared case-insensitively across Unicode.
	SearchMetadata(ctx context.Context, query string) ([]Metadata, error)

	// ReplaceMappings atomically replaces the folder mapping set for a
	// folder with the given entries.
	ReplaceMappings(ctx context.Context, folderID string, mappings []Mapping) error

	// GetMapping resolves a document name to its mapping, or nil if unknown.
	GetMapping(ctx context.Context, name string) (*Mapping, error)

	// ListMappings returns all known mappings ordered by name.
	ListMappings(ctx context.Context) ([]Mapping, error)

	// Close closes the store and releases resources.
	Close() error
}
