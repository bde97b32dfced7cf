// Package updater is the long-running service: it consumes update requests
// from the queue, stacks them per document until a character threshold is
// reached, and drives full conversion/patch cycles with version snapshots,
// metrics, and whole-cycle retry.
package updater

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"git.home.luguber.info/inful/archivist/internal/convert"
	"git.home.luguber.info/inful/archivist/internal/drive"
	"git.home.luguber.info/inful/archivist/internal/errors"
	"git.home.luguber.info/inful/archivist/internal/metrics"
	"git.home.luguber.info/inful/archivist/internal/observability"
	"git.home.luguber.info/inful/archivist/internal/retry"
	"git.home.luguber.info/inful/archivist/internal/store"
)

// Engine runs one conversion/patch cycle. Satisfied by *convert.Engine.
type Engine interface {
	ApplyUpdate(ctx context.Context, docID, oldText, newMarkup string) (*convert.UpdateResult, error)
}

// TextReader fetches the live document text for the cycle baseline.
type TextReader interface {
	DocumentText(ctx context.Context, docID string) (string, error)
}

// DocumentDirectory locates or creates target documents when a request names
// a document instead of carrying its ID. Satisfied by *drive.Client.
type DocumentDirectory interface {
	SearchByName(ctx context.Context, name, folderID string) ([]drive.File, error)
	Create(ctx context.Context, title, parentFolderID string) (string, error)
}

// Message is one unit of conversational content.
type Message struct {
	Author string `json:"author,omitempty"`
	Text   string `json:"text"`
}

// Thread groups the messages of one conversation.
type Thread struct {
	Messages []Message `json:"messages"`
}

// UpdateRequest is the queue payload: new content for one document. Producers
// address the document by ID, or by name when a directory is configured; a
// named document that does not exist yet is created in the managed folder.
type UpdateRequest struct {
	TeamID  string   `json:"team_id"`
	DocID   string   `json:"doc_id,omitempty"`
	DocName string   `json:"doc_name,omitempty"`
	Threads []Thread `json:"threads"`
	// Force flushes the document's stack regardless of the threshold.
	Force bool `json:"force,omitempty"`
}

// Markup renders the request's threads as markup: messages joined by
// newlines, threads separated by blank lines.
func (r *UpdateRequest) Markup() string {
	var parts []string
	for _, th := range r.Threads {
		var lines []string
		for _, m := range th.Messages {
			if m.Text != "" {
				lines = append(lines, m.Text)
			}
		}
		if len(lines) > 0 {
			parts = append(parts, strings.Join(lines, "\n"))
		}
	}
	return strings.Join(parts, "\n\n")
}

func (r *UpdateRequest) messageCount() int {
	n := 0
	for _, th := range r.Threads {
		n += len(th.Messages)
	}
	return n
}

// docStack accumulates pending content for one document.
type docStack struct {
	teamID   string
	chunks   []string
	chars    int
	messages int
}

// Service stacks update requests per document and flushes them through the
// conversion engine.
type Service struct {
	engine    Engine
	remote    TextReader
	store     store.Store
	rec       metrics.Recorder
	policy    retry.Policy
	threshold int
	directory DocumentDirectory
	folderID  string

	mu     sync.Mutex
	stacks map[string]*docStack
}

// NewService wires the updater. threshold <= 0 disables stacking: every
// request flushes immediately.
func NewService(engine Engine, remote TextReader, st store.Store, threshold int, policy retry.Policy) *Service {
	return &Service{
		engine:    engine,
		remote:    remote,
		store:     st,
		rec:       metrics.NoopRecorder{},
		policy:    policy,
		threshold: threshold,
		stacks:    make(map[string]*docStack),
	}
}

// WithRecorder replaces the metrics recorder. Call before Start.
func (s *Service) WithRecorder(rec metrics.Recorder) *Service {
	if rec != nil {
		s.rec = rec
	}
	return s
}

// WithDirectory enables doc_name resolution against folderID: requests
// without a document ID are resolved via the mapping, then a Drive search,
// creating the document when it does not exist yet.
func (s *Service) WithDirectory(dir DocumentDirectory, folderID string) *Service {
	s.directory = dir
	s.folderID = folderID
	return s
}

// Enqueue stacks a request and runs an update cycle when the document's
// accumulated content crosses the threshold or the request forces a flush.
func (s *Service) Enqueue(ctx context.Context, req *UpdateRequest) error {
	if req.DocID == "" && req.DocName == "" {
		return errors.ValidationError("update request missing doc_id or doc_name")
	}
	if req.TeamID == "" {
		return errors.ValidationError("update request missing team_id")
	}

	markup := req.Markup()
	if markup == "" && !req.Force {
		observability.DebugContext(observability.WithDocID(ctx, req.DocID), "empty update request ignored")
		return nil
	}

	if req.DocID == "" {
		docID, err := s.resolveDoc(ctx, req)
		if err != nil {
			return err
		}
		req.DocID = docID
	}

	s.mu.Lock()
	st, ok := s.stacks[req.DocID]
	if !ok {
		st = &docStack{teamID: req.TeamID}
		s.stacks[req.DocID] = st
	}
	if markup != "" {
		st.chunks = append(st.chunks, markup)
		st.chars += utf8.RuneCountInString(markup)
		st.messages += req.messageCount()
	}
	s.rec.SetStackedChars(req.DocID, st.chars)

	flush := req.Force || st.chars >= s.threshold || s.threshold <= 0
	var pending *docStack
	if flush {
		pending = st
		delete(s.stacks, req.DocID)
	}
	s.mu.Unlock()

	if !flush || len(pending.chunks) == 0 {
		return nil
	}

	trigger := "threshold"
	if req.Force {
		trigger = "forced"
	}
	s.rec.SetStackedChars(req.DocID, 0)
	return s.flush(ctx, req.DocID, pending, trigger)
}

// FlushAll drains every pending stack, typically on shutdown.
func (s *Service) FlushAll(ctx context.Context) error {
	s.mu.Lock()
	pending := s.stacks
	s.stacks = make(map[string]*docStack)
	s.mu.Unlock()

	var firstErr error
	for docID, st := range pending {
		s.rec.SetStackedChars(docID, 0)
		if err := s.flush(ctx, docID, st, "forced"); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Pending returns the stacked character count for a document; zero when
// nothing is stacked.
func (s *Service) Pending(docID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st, ok := s.stacks[docID]; ok {
		return st.chars
	}
	return 0
}

// resolveDoc maps a document name to its ID: the stored mapping first, then a
// Drive search in the managed folder, finally creating the document there.
func (s *Service) resolveDoc(ctx context.Context, req *UpdateRequest) (string, error) {
	m, err := s.store.GetMapping(ctx, req.DocName)
	if err != nil {
		return "", errors.WrapError(err, errors.CategoryStorage, "resolving document mapping")
	}
	if m != nil {
		return m.DocID, nil
	}
	if s.directory == nil {
		return "", errors.ValidationError("unknown document name: " + req.DocName)
	}

	files, err := s.directory.SearchByName(ctx, req.DocName, s.folderID)
	if err != nil {
		return "", errors.WrapRetryable(err, errors.CategoryRemote, errors.SeverityError, "searching for document")
	}
	var docID string
	if len(files) > 0 {
		docID = files[0].ID
	} else {
		docID, err = s.directory.Create(ctx, req.DocName, s.folderID)
		if err != nil {
			return "", errors.WrapRetryable(err, errors.CategoryRemote, errors.SeverityError, "creating document")
		}
		observability.InfoContext(observability.WithDocID(ctx, docID), "created document",
			slog.String("name", req.DocName))
	}

	// The folder sync job rebuilds the mapping; metadata makes the document
	// searchable right away.
	if err := s.store.UpsertMetadata(ctx, store.Metadata{
		DocID:  docID,
		TeamID: req.TeamID,
		Title:  req.DocName,
	}); err != nil {
		return "", errors.WrapError(err, errors.CategoryStorage, "recording document metadata")
	}
	return docID, nil
}

func (s *Service) flush(ctx context.Context, docID string, st *docStack, trigger string) error {
	ctx = observability.WithDocID(observability.WithTeamID(ctx, st.teamID), docID)
	markup := strings.Join(st.chunks, "\n\n")

	start := time.Now()
	attempts := 0
	err := retry.Do(ctx, s.policy, func(ctx context.Context) error {
		attempts++
		if attempts > 1 {
			s.rec.IncRetries()
		}
		return s.cycle(ctx, docID, st, markup, trigger)
	})
	s.rec.ObserveCycleDuration(time.Since(start))
	if err != nil {
		s.rec.IncCycleOutcome(metrics.OutcomeFailed)
		observability.ErrorContext(ctx, "update cycle failed",
			slog.String("trigger", trigger), slog.Int("attempts", attempts), slog.Any("error", err))
		return err
	}
	return nil
}

// cycle runs one full update: snapshot the live text, then convert and patch.
// Re-running the cycle is idempotent, so the whole of it retries as a unit.
func (s *Service) cycle(ctx context.Context, docID string, st *docStack, markup, trigger string) error {
	ctx = observability.WithStage(ctx, "cycle")

	live, err := s.remote.DocumentText(ctx, docID)
	if err != nil {
		return errors.WrapRetryable(err, errors.CategoryRemote, errors.SeverityError, "reading live document text")
	}

	if _, err := s.store.SaveVersion(ctx, store.Version{
		DocID:        docID,
		TeamID:       st.teamID,
		Content:      live,
		CharCount:    utf8.RuneCountInString(live),
		MessageCount: st.messages,
		TriggerType:  trigger,
	}); err != nil {
		return errors.WrapError(err, errors.CategoryStorage, "saving version snapshot")
	}

	newMarkup := markup
	if live != "" {
		newMarkup = live + "\n\n" + markup
	}

	s.rec.IncConversions()
	res, err := s.engine.ApplyUpdate(ctx, docID, live, newMarkup)
	if err != nil {
		return err
	}

	switch {
	case res.Skipped:
		s.rec.IncCycleOutcome(metrics.OutcomeSkipped)
	case res.Fallback:
		s.rec.IncPatchPlans(true)
		s.rec.IncCycleOutcome(metrics.OutcomeFallback)
	default:
		s.rec.IncPatchPlans(false)
		s.rec.ObserveBatchCount(res.Batches)
		s.rec.ObserveRequestCount(res.Requests)
		s.rec.IncCycleOutcome(metrics.OutcomeSuccess)
	}

	observability.InfoContext(ctx, "update cycle complete",
		slog.String("trigger", trigger), slog.Bool("fallback", res.Fallback),
		slog.Int("requests", res.Requests))
	return nil
}
