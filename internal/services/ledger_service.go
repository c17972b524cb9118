// Package services keeps per-user ledger sessions in step with snapshot storage and
// the snapshot event stream.
package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"sync/atomic"

	"fintrack/internal/amqp"
	"fintrack/internal/core"
	"fintrack/internal/ledger"
	applog "fintrack/internal/log"
	"fintrack/internal/storage"
)

var (
	ErrInvalidUser = errors.New("invalid user id")
	// ErrStorage wraps every failure of the snapshot repository.
	ErrStorage = errors.New("storage failure")
)

// EventPublisher announces that a user's snapshot changed.
type EventPublisher interface {
	PublishSnapshotChanged(ctx context.Context, userID, reason string) error
}

type session struct {
	// mu serialises mutate+persist so stored snapshots follow mutation order.
	mu    sync.Mutex
	store *ledger.Store

	// version identifies the committed state; replaced with mu held.
	version atomic.Uint64
}

// LedgerService keeps one ledger session per user on top of a snapshot repository.
type LedgerService struct {
	repo   storage.SnapshotRepository
	events EventPublisher
	logger *applog.StructuredLogger
	log    *applog.Logger

	mu       sync.Mutex
	sessions map[string]*session
	// versions hands out session versions; unique across reloads.
	versions atomic.Uint64
}

// NewLedgerService wires the service. events and logger may be nil.
func NewLedgerService(repo storage.SnapshotRepository, events EventPublisher, logger *applog.Logger) *LedgerService {
	if logger == nil {
		logger = applog.FromContext(context.Background())
	}
	logger = logger.WithComponent(applog.ComponentLedger)
	return &LedgerService{
		repo:     repo,
		events:   events,
		logger:   applog.NewStructuredLogger(logger),
		log:      logger,
		sessions: make(map[string]*session),
	}
}

// Ledger returns the user's store, loading it from storage on first use.
func (s *LedgerService) Ledger(ctx context.Context, userID string) (*ledger.Store, error) {
	sess, _, err := s.session(ctx, userID)
	if err != nil {
		return nil, err
	}
	return sess.store, nil
}

// Mutate applies fn to the user's store. On success the snapshot is persisted and an
// event published; neither failure is returned to the caller.
func (s *LedgerService) Mutate(ctx context.Context, userID, operation string, fn func(*ledger.Store) error) error {
	sess, userID, err := s.session(ctx, userID)
	if err != nil {
		return err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	if err := fn(sess.store); err != nil {
		return err
	}
	sess.version.Store(s.versions.Add(1))
	s.logger.LogMutation(ctx, userID, operation, nil)
	s.persist(ctx, userID, sess.store)
	s.publish(ctx, userID, amqp.ReasonMutation)
	return nil
}

// Upload replaces the user's document with raw. The session is swapped only after
// the repository accepted the write.
func (s *LedgerService) Upload(ctx context.Context, userID string, raw []byte) (ledger.ParseReport, error) {
	sess, userID, err := s.session(ctx, userID)
	if err != nil {
		return ledger.ParseReport{}, err
	}

	doc, report, err := ledger.ParseSnapshot(raw)
	if err != nil {
		return report, err
	}
	if !report.Clean() {
		s.log.WarnContext(ctx, "Uploaded snapshot normalised",
			applog.FieldUserID, userID,
			"defaulted", report.Defaulted,
			"dropped", report.Dropped)
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	if err := s.repo.PutSnapshot(ctx, userID, raw); err != nil {
		s.logger.LogError(ctx, "Failed to store uploaded snapshot", err, applog.OpUpload, applog.NewFields().WithUser(userID))
		return report, fmt.Errorf("%w: %w", ErrStorage, err)
	}
	sess.store.Replace(doc)
	sess.version.Store(s.versions.Add(1))
	s.logger.LogMutation(ctx, userID, applog.OpUpload, nil)
	s.publish(ctx, userID, amqp.ReasonUpload)
	return report, nil
}

// Version identifies the committed state of the user's ledger. It changes on every
// mutation, upload and reset, so readers caching derived figures key them by it.
func (s *LedgerService) Version(ctx context.Context, userID string) (uint64, error) {
	sess, _, err := s.session(ctx, userID)
	if err != nil {
		return 0, err
	}
	return sess.version.Load(), nil
}

// View returns a copy of the user's document together with the version it reflects.
func (s *LedgerService) View(ctx context.Context, userID string) (core.Snapshot, uint64, error) {
	sess, _, err := s.session(ctx, userID)
	if err != nil {
		return core.Snapshot{}, 0, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.store.Snapshot(), sess.version.Load(), nil
}

// Download returns the stored document, or nil when the user has none.
func (s *LedgerService) Download(ctx context.Context, userID string) ([]byte, error) {
	userID, err := normaliseUser(userID)
	if err != nil {
		return nil, err
	}
	data, ok, err := s.repo.GetSnapshot(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStorage, err)
	}
	if !ok {
		return nil, nil
	}
	return data, nil
}

// Reset empties the user's ledger and removes the stored document.
func (s *LedgerService) Reset(ctx context.Context, userID string) error {
	sess, userID, err := s.session(ctx, userID)
	if err != nil {
		return err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	sess.store.Reset()
	sess.version.Store(s.versions.Add(1))
	if err := s.repo.DeleteSnapshot(ctx, userID); err != nil {
		s.logger.LogError(ctx, "Failed to delete snapshot", err, applog.OpReset, applog.NewFields().WithUser(userID))
	}
	s.logger.LogMutation(ctx, userID, applog.OpReset, nil)
	s.publish(ctx, userID, amqp.ReasonReset)
	return nil
}

// Forget drops the cached session so the next access reloads from storage.
func (s *LedgerService) Forget(userID string) {
	s.mu.Lock()
	delete(s.sessions, strings.TrimSpace(userID))
	s.mu.Unlock()
}

// Close releases the repository and the publisher when they hold resources.
func (s *LedgerService) Close() error {
	var errs []error
	if c, ok := s.repo.(io.Closer); ok {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}
	if c, ok := s.events.(io.Closer); ok {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("events: %w", err))
		}
	}
	return errors.Join(errs...)
}

// session returns the user's session and the normalised user id.
func (s *LedgerService) session(ctx context.Context, userID string) (*session, string, error) {
	userID, err := normaliseUser(userID)
	if err != nil {
		return nil, "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[userID]; ok {
		return sess, userID, nil
	}

	store, err := s.load(ctx, userID)
	if err != nil {
		return nil, "", err
	}
	sess := &session{store: store}
	sess.version.Store(s.versions.Add(1))
	s.sessions[userID] = sess
	return sess, userID, nil
}

func (s *LedgerService) load(ctx context.Context, userID string) (*ledger.Store, error) {
	data, ok, err := s.repo.GetSnapshot(ctx, userID)
	if err != nil {
		s.logger.LogError(ctx, "Failed to load snapshot", err, applog.OpRead, applog.NewFields().WithUser(userID))
		return nil, fmt.Errorf("%w: %w", ErrStorage, err)
	}
	if !ok {
		return ledger.New(), nil
	}

	doc, report, err := ledger.ParseSnapshot(data)
	if err != nil {
		s.log.WarnContext(ctx, "Stored snapshot unreadable, starting empty",
			applog.FieldUserID, userID, applog.FieldError, err)
		return ledger.New(), nil
	}
	if !report.Clean() {
		s.log.DebugContext(ctx, "Stored snapshot normalised",
			applog.FieldUserID, userID,
			"defaulted", report.Defaulted,
			"dropped", report.Dropped)
	}
	return ledger.FromSnapshot(doc), nil
}

func (s *LedgerService) persist(ctx context.Context, userID string, store *ledger.Store) {
	data, err := ledger.EncodeSnapshot(store.Snapshot())
	if err == nil {
		err = s.repo.PutSnapshot(ctx, userID, data)
	}
	if err != nil {
		s.logger.LogError(ctx, "Failed to persist snapshot", err, applog.OpUpdate, applog.NewFields().WithUser(userID))
	}
}

func (s *LedgerService) publish(ctx context.Context, userID, reason string) {
	if s.events == nil {
		s.log.DebugContext(ctx, "No event publisher, skipping snapshot event", applog.FieldUserID, userID)
		return
	}
	if err := s.events.PublishSnapshotChanged(ctx, userID, reason); err != nil {
		s.logger.LogError(ctx, "Failed to publish snapshot event", err, applog.OpPublish,
			applog.NewFields().WithUser(userID))
	}
}

func normaliseUser(userID string) (string, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return "", ErrInvalidUser
	}
	return userID, nil
}
