package updater

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"

	"git.home.luguber.info/inful/archivist/internal/drive"
	"git.home.luguber.info/inful/archivist/internal/store"
)

// FolderLister lists the documents in a Drive folder. Satisfied by
// *drive.Client.
type FolderLister interface {
	ListFolder(ctx context.Context, folderID string) ([]drive.File, error)
}

// FolderSyncer keeps the local name-to-document mapping aligned with the
// managed Drive folder.
type FolderSyncer struct {
	lister    FolderLister
	store     store.Store
	folderID  string
	scheduler gocron.Scheduler
}

// NewFolderSyncer builds a syncer for one Drive folder.
func NewFolderSyncer(lister FolderLister, st store.Store, folderID string) *FolderSyncer {
	return &FolderSyncer{lister: lister, store: st, folderID: folderID}
}

// SyncOnce refreshes the mapping and metadata from the folder's current
// contents.
func (fs *FolderSyncer) SyncOnce(ctx context.Context) error {
	files, err := fs.lister.ListFolder(ctx, fs.folderID)
	if err != nil {
		return fmt.Errorf("listing drive folder: %w", err)
	}

	now := time.Now()
	mappings := make([]store.Mapping, 0, len(files))
	for _, f := range files {
		mappings = append(mappings, store.Mapping{
			Name:     f.Name,
			DocID:    f.ID,
			FolderID: fs.folderID,
			SyncedAt: now,
		})
	}
	if err := fs.store.ReplaceMappings(ctx, fs.folderID, mappings); err != nil {
		return fmt.Errorf("replacing folder mappings: %w", err)
	}

	for _, f := range files {
		if err := fs.store.UpsertMetadata(ctx, store.Metadata{
			DocID:     f.ID,
			Title:     f.Name,
			UpdatedAt: now,
		}); err != nil {
			return fmt.Errorf("updating metadata for %q: %w", f.Name, err)
		}
	}

	slog.Info("folder mapping synced", "folder_id", fs.folderID, "documents", len(files))
	return nil
}

// Schedule starts a periodic sync job. An immediate first run primes the
// mapping before the first interval elapses.
func (fs *FolderSyncer) Schedule(ctx context.Context, interval time.Duration) error {
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return fmt.Errorf("creating scheduler: %w", err)
	}

	_, err = scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			if err := fs.SyncOnce(ctx); err != nil {
				slog.Error("scheduled folder sync failed", "error", err)
			}
		}),
		gocron.WithStartAt(gocron.WithStartImmediately()),
	)
	if err != nil {
		_ = scheduler.Shutdown()
		return fmt.Errorf("scheduling sync job: %w", err)
	}

	scheduler.Start()
	fs.scheduler = scheduler
	return nil
}

// Stop shuts the scheduler down, waiting for a running sync to finish.
func (fs *FolderSyncer) Stop() error {
	if fs.scheduler == nil {
		return nil
	}
	return fs.scheduler.Shutdown()
}
