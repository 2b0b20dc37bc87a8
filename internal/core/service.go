package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/datamapper/internal/config"
	"github.com/JonMunkholm/datamapper/internal/logging"
	"github.com/JonMunkholm/datamapper/internal/processor"
)

var (
	// ErrSessionNotFound is returned for unknown, closed or evicted sessions.
	ErrSessionNotFound = errors.New("session not found")

	// ErrTooManySessions is returned when Session.MaxSessions are open.
	ErrTooManySessions = errors.New("too many open sessions")

	// ErrColumnNotFound is returned when a column is not in the session schema.
	ErrColumnNotFound = errors.New("column not found")

	// ErrNoDatabase is returned by query and config store calls on a service
	// built without a database.
	ErrNoDatabase = errors.New("no database configured")
)

// Service owns the live processor sessions and the saved config store.
// Every session has its own lock, so calls on one session are serialized
// while different sessions proceed in parallel.
type Service struct {
	db      DBTX
	cfg     *config.Config
	limiter *LoadLimiter
	now     func() time.Time

	mu       sync.RWMutex
	sessions map[string]*session
}

type session struct {
	id        string
	queryName string
	source    SessionSource
	truncated bool
	createdAt time.Time
	logger    *slog.Logger

	// lastUsed is unix nanoseconds, read by the sweeper without mu.
	lastUsed atomic.Int64

	mu   sync.Mutex
	proc *processor.Processor
}

// NewService creates a Service. db may be nil, in which case only record
// and CSV sessions are available. A nil cfg uses the defaults.
func NewService(db DBTX, cfg *config.Config) *Service {
	if cfg == nil {
		cfg = config.Defaults()
	}
	return &Service{
		db:       db,
		cfg:      cfg,
		limiter:  NewLoadLimiter(cfg.Query.MaxConcurrent, cfg.Query.MaxWaitTime),
		now:      time.Now,
		sessions: make(map[string]*session),
	}
}

// Limiter returns the query load limiter.
func (s *Service) Limiter() *LoadLimiter { return s.limiter }

// HasDatabase reports whether query sessions and saved configs are available.
func (s *Service) HasDatabase() bool { return s.db != nil }

// SessionCount returns the number of open sessions.
func (s *Service) SessionCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// checkCapacity fails early, before any data is loaded, when the session
// table is full. openSession checks again under the write lock.
func (s *Service) checkCapacity() error {
	if max := s.cfg.Session.MaxSessions; max > 0 && s.SessionCount() >= max {
		return ErrTooManySessions
	}
	return nil
}

// openSession wraps records in a processor and registers it.
func (s *Service) openSession(queryName string, source SessionSource, records []processor.Record, truncated bool) (*SessionInfo, error) {
	id := uuid.New().String()
	logger := logging.ForSession(id, queryName)

	proc, err := processor.New(records, queryName,
		processor.WithLogger(logger),
		processor.WithClock(s.now),
	)
	if err != nil {
		return nil, fmt.Errorf("create processor: %w", err)
	}

	now := s.now()
	sess := &session{
		id:        id,
		queryName: queryName,
		source:    source,
		truncated: truncated,
		createdAt: now,
		logger:    logger,
		proc:      proc,
	}
	sess.lastUsed.Store(now.UnixNano())

	s.mu.Lock()
	if max := s.cfg.Session.MaxSessions; max > 0 && len(s.sessions) >= max {
		s.mu.Unlock()
		return nil, ErrTooManySessions
	}
	s.sessions[id] = sess
	s.mu.Unlock()

	logger.Info("session opened",
		"source", source,
		"rows", len(records),
		"columns", len(proc.Columns()),
		"truncated", truncated,
	)

	info := sess.info()
	return &info, nil
}

// OpenRecordsSession starts a session over caller-supplied records. Rows
// past Session.MaxRows are dropped and the session is marked truncated.
func (s *Service) OpenRecordsSession(ctx context.Context, name string, records []processor.Record) (*SessionInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := s.checkCapacity(); err != nil {
		return nil, err
	}
	if records == nil {
		records = []processor.Record{}
	}

	truncated := false
	if max := s.cfg.Session.MaxRows; max > 0 && len(records) > max {
		records = records[:max]
		truncated = true
	}
	return s.openSession(name, SourceRecords, records, truncated)
}

// OpenCSVSession parses an uploaded CSV and starts a session over its rows.
// The header row names the fields and every cell is loaded as a string.
func (s *Service) OpenCSVSession(ctx context.Context, name string, r io.Reader) (*SessionInfo, error) {
	if err := s.checkCapacity(); err != nil {
		return nil, err
	}

	result, err := ReadCSV(WrapCSVReader(r, s.cfg.Server.MaxBodySize), s.cfg.Session.MaxRows)
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.openSession(name, SourceCSV, result.Records, result.Truncated)
}

// lookup finds a session without touching it.
func (s *Service) lookup(id string) (*session, error) {
	s.mu.RLock()
	sess, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return sess, nil
}

// withSession runs fn holding the session lock and marks the session used.
func (s *Service) withSession(id string, fn func(*session) error) error {
	sess, err := s.lookup(id)
	if err != nil {
		return err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.lastUsed.Store(s.now().UnixNano())
	return fn(sess)
}

// info builds a snapshot. The caller holds sess.mu.
func (sess *session) info() SessionInfo {
	return SessionInfo{
		ID:            sess.id,
		QueryName:     sess.queryName,
		Source:        sess.source,
		OriginalRows:  len(sess.proc.OriginalData()),
		ProcessedRows: len(sess.proc.Data()),
		Operations:    len(sess.proc.Operations()),
		Truncated:     sess.truncated,
		Columns:       sess.proc.Columns(),
		CreatedAt:     sess.createdAt,
		LastUsed:      time.Unix(0, sess.lastUsed.Load()),
	}
}

// Session returns a snapshot of one session.
func (s *Service) Session(id string) (*SessionInfo, error) {
	var info SessionInfo
	err := s.withSession(id, func(sess *session) error {
		info = sess.info()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &info, nil
}

// ListSessions returns every open session, oldest first.
func (s *Service) ListSessions() []SessionInfo {
	s.mu.RLock()
	all := make([]*session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		all = append(all, sess)
	}
	s.mu.RUnlock()

	infos := make([]SessionInfo, 0, len(all))
	for _, sess := range all {
		sess.mu.Lock()
		infos = append(infos, sess.info())
		sess.mu.Unlock()
	}
	sort.Slice(infos, func(i, j int) bool {
		if infos[i].CreatedAt.Equal(infos[j].CreatedAt) {
			return infos[i].ID < infos[j].ID
		}
		return infos[i].CreatedAt.Before(infos[j].CreatedAt)
	})
	return infos
}

// CloseSession drops a session and its data.
func (s *Service) CloseSession(id string) error {
	s.mu.Lock()
	sess, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	sess.logger.Info("session closed")
	return nil
}

// Apply runs one operation on a session. With validate set, the operation
// is checked against the current schema first and rejected with a
// *processor.ValidationError instead of being applied permissively.
func (s *Service) Apply(ctx context.Context, id string, op processor.Operation, validate bool) (*SessionInfo, error) {
	var info SessionInfo
	err := s.withSession(id, func(sess *session) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if validate {
			if err := sess.proc.Validate(op); err != nil {
				return err
			}
		}
		start := time.Now()
		before := len(sess.proc.Data())
		sess.proc.Apply(op)
		sess.logger.Debug("operation applied",
			"op", op.Type,
			"summary", op.Describe(),
			"rows_before", before,
			"rows_after", len(sess.proc.Data()),
			"duration_ms", time.Since(start).Milliseconds(),
		)
		info = sess.info()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &info, nil
}

// Undo removes the last operation of a session.
func (s *Service) Undo(ctx context.Context, id string) (*SessionInfo, error) {
	return s.mutate(ctx, id, func(p *processor.Processor) { p.Undo() })
}

// Reset restores a session to its loaded data.
func (s *Service) Reset(ctx context.Context, id string) (*SessionInfo, error) {
	return s.mutate(ctx, id, func(p *processor.Processor) { p.Reset() })
}

// ImportConfig replays a config's operations onto a session's data.
func (s *Service) ImportConfig(ctx context.Context, id string, cfg processor.Config) (*SessionInfo, error) {
	return s.mutate(ctx, id, func(p *processor.Processor) {
		if cfg.QueryName != "" && cfg.QueryName != p.QueryName() {
			s.logger(id).Warn("importing config from another query",
				"config_query", cfg.QueryName,
				"operations", len(cfg.Operations),
			)
		}
		p.ImportConfig(cfg)
	})
}

func (s *Service) mutate(ctx context.Context, id string, fn func(*processor.Processor)) (*SessionInfo, error) {
	var info SessionInfo
	err := s.withSession(id, func(sess *session) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		fn(sess.proc)
		info = sess.info()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &info, nil
}

// logger returns the session logger, or the default one if id is gone.
func (s *Service) logger(id string) *slog.Logger {
	if sess, err := s.lookup(id); err == nil {
		return sess.logger
	}
	return slog.Default()
}

// Operations returns a session's operation log.
func (s *Service) Operations(id string) ([]processor.Operation, error) {
	var ops []processor.Operation
	err := s.withSession(id, func(sess *session) error {
		ops = sess.proc.Operations()
		return nil
	})
	return ops, err
}

// Page returns one page of a session's processed rows. A non-positive size
// uses Session.PageSize; larger sizes are capped at Session.MaxPageSize.
func (s *Service) Page(id string, page, size int) (processor.Page, error) {
	if size <= 0 {
		size = s.cfg.Session.PageSize
	}
	if max := s.cfg.Session.MaxPageSize; max > 0 && size > max {
		size = max
	}
	var out processor.Page
	err := s.withSession(id, func(sess *session) error {
		out = sess.proc.Page(page, size)
		// Sort reorders the backing array in place; hand out a copy.
		out.Rows = append([]processor.Record(nil), out.Rows...)
		return nil
	})
	return out, err
}

// Columns returns a session's current schema.
func (s *Service) Columns(id string) ([]processor.Column, error) {
	var cols []processor.Column
	err := s.withSession(id, func(sess *session) error {
		cols = sess.proc.Columns()
		return nil
	})
	return cols, err
}

// Stats summarizes one column of a session's processed rows.
func (s *Service) Stats(id, column string) (processor.ColumnStats, error) {
	var stats processor.ColumnStats
	err := s.withSession(id, func(sess *session) error {
		if !hasColumn(sess.proc.Columns(), column) {
			return fmt.Errorf("%w: %s", ErrColumnNotFound, column)
		}
		stats = sess.proc.ColumnStats(column)
		return nil
	})
	return stats, err
}

// SetColumnVisible shows or hides a column in a session's views.
func (s *Service) SetColumnVisible(id, column string, visible bool) error {
	return s.withSession(id, func(sess *session) error {
		if !sess.proc.SetColumnVisible(column, visible) {
			return fmt.Errorf("%w: %s", ErrColumnNotFound, column)
		}
		return nil
	})
}

// ExportConfig returns the config that rebuilds a session's current state.
func (s *Service) ExportConfig(id string) (processor.Config, error) {
	var cfg processor.Config
	err := s.withSession(id, func(sess *session) error {
		cfg = sess.proc.ExportConfig()
		return nil
	})
	return cfg, err
}

// Snapshot is a consistent copy of a session's visible data for export.
type Snapshot struct {
	Name    string
	Columns []processor.Column
	Rows    []processor.Record
}

// Snapshot copies the visible columns and processed rows of a session.
func (s *Service) Snapshot(id string) (*Snapshot, error) {
	var snap Snapshot
	err := s.withSession(id, func(sess *session) error {
		snap = Snapshot{
			Name:    sess.queryName,
			Columns: sess.proc.VisibleColumns(),
			Rows:    append([]processor.Record(nil), sess.proc.Data()...),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &snap, nil
}

// evictIdle closes sessions unused since before cutoff and returns how many
// were closed.
func (s *Service) evictIdle(cutoff time.Time) int {
	limit := cutoff.UnixNano()

	s.mu.Lock()
	var evicted []*session
	for id, sess := range s.sessions {
		if sess.lastUsed.Load() < limit {
			evicted = append(evicted, sess)
			delete(s.sessions, id)
		}
	}
	s.mu.Unlock()

	for _, sess := range evicted {
		sess.logger.Info("session evicted", "idle_since", time.Unix(0, sess.lastUsed.Load()).UTC())
	}
	return len(evicted)
}

func hasColumn(cols []processor.Column, name string) bool {
	for _, c := range cols {
		if c.Name == name {
			return true
		}
	}
	return false
}
