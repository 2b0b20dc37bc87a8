package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/JonMunkholm/datamapper/internal/logging"
	"github.com/JonMunkholm/datamapper/internal/processor"
)

// ErrUnknownQuery is returned when a query name is not in the catalog.
var ErrUnknownQuery = errors.New("unknown query")

// ListQueries returns the catalog in group order.
func (s *Service) ListQueries() []QueryDefinition {
	return All()
}

// ListQueriesByGroup returns the catalog keyed by menu group.
func (s *Service) ListQueriesByGroup() map[string][]QueryDefinition {
	result := make(map[string][]QueryDefinition)
	for _, group := range Groups() {
		result[group] = ByGroup(group)
	}
	return result
}

// OpenQuerySession runs a saved query and starts a session over its result.
// Loads share a LoadLimiter slot pool and are bounded by Query.Timeout.
// Results longer than Session.MaxRows are truncated.
func (s *Service) OpenQuerySession(ctx context.Context, queryName string) (*SessionInfo, error) {
	def, ok := GetQuery(queryName)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownQuery, queryName)
	}
	if s.db == nil {
		return nil, ErrNoDatabase
	}
	if err := s.checkCapacity(); err != nil {
		return nil, err
	}

	if err := s.limiter.Acquire(ctx); err != nil {
		return nil, err
	}
	defer s.limiter.Release()

	log := logging.WithFields(ctx, "query", queryName, "group", def.Group)
	start := time.Now()
	records, truncated, err := s.runQuery(ctx, def.SQL, s.cfg.Session.MaxRows)
	if err != nil {
		log.Warn("query load failed", "error", err, "duration_ms", time.Since(start).Milliseconds())
		return nil, fmt.Errorf("load query %s: %w", queryName, err)
	}

	log.Info("query loaded",
		"rows", len(records),
		"truncated", truncated,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return s.openSession(queryName, SourceQuery, records, truncated)
}

// runQuery executes sql and converts at most maxRows result rows.
func (s *Service) runQuery(ctx context.Context, sql string, maxRows int) ([]processor.Record, bool, error) {
	if timeout := s.cfg.Query.Timeout; timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	rows, err := s.db.Query(ctx, sql)
	if err != nil {
		return nil, false, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = f.Name
	}
	// Joins can return the same column name twice.
	names = makeHeader(names)

	records := []processor.Record{}
	truncated := false
	for rows.Next() {
		if maxRows > 0 && len(records) >= maxRows {
			truncated = true
			break
		}
		values, err := rows.Values()
		if err != nil {
			return nil, false, fmt.Errorf("read row: %w", err)
		}
		rec := make(processor.Record, len(names))
		for i, v := range values {
			if i < len(names) {
				rec[names[i]] = CellFromPg(v)
			}
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, false, fmt.Errorf("iterate rows: %w", err)
	}
	return records, truncated, nil
}
