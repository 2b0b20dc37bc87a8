package core

// configs.go persists processor configs in Postgres so a transformation
// built on one load can be replayed on the next.
//
// Configs are stored as JSONB in the operation wire format. Names are
// unique per query; saving a duplicate fails with a duplicate key error.

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/JonMunkholm/datamapper/internal/processor"
)

var (
	// ErrConfigNotFound is returned when no saved config has the given ID.
	ErrConfigNotFound = errors.New("saved config not found")

	// ErrConfigNameRequired is returned when saving without a name.
	ErrConfigNameRequired = errors.New("config name is required")
)

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS transform_configs (
		id              UUID PRIMARY KEY,
		name            TEXT NOT NULL,
		query_name      TEXT NOT NULL,
		operation_count INTEGER NOT NULL,
		config          JSONB NOT NULL,
		ip_address      TEXT,
		user_agent      TEXT,
		created_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
		UNIQUE (query_name, name)
	)`,
	`CREATE INDEX IF NOT EXISTS transform_configs_query_created_idx
		ON transform_configs (query_name, created_at DESC)`,
}

const configColumns = `id, name, query_name, operation_count, config, ip_address, user_agent, created_at`

// EnsureSchema creates the saved config table if it does not exist.
func (s *Service) EnsureSchema(ctx context.Context) error {
	if s.db == nil {
		return ErrNoDatabase
	}
	for _, stmt := range schemaStatements {
		if _, err := s.db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

// SaveConfig stores the current config of a session under name. The client
// IP and user agent are taken from ctx.
func (s *Service) SaveConfig(ctx context.Context, sessionID, name string) (*SavedConfig, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrConfigNameRequired
	}
	if s.db == nil {
		return nil, ErrNoDatabase
	}

	cfg, err := s.ExportConfig(sessionID)
	if err != nil {
		return nil, err
	}
	body, err := json.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}

	saved := &SavedConfig{
		ID:             uuid.New().String(),
		Name:           name,
		QueryName:      cfg.QueryName,
		OperationCount: len(cfg.Operations),
		Config:         cfg,
		IPAddress:      GetIPAddressFromContext(ctx),
		UserAgent:      GetUserAgentFromContext(ctx),
	}

	err = s.db.QueryRow(ctx,
		`INSERT INTO transform_configs (id, name, query_name, operation_count, config, ip_address, user_agent)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING created_at`,
		ToPgUUID(saved.ID),
		saved.Name,
		saved.QueryName,
		int32(saved.OperationCount),
		body,
		ToPgText(saved.IPAddress),
		ToPgText(saved.UserAgent),
	).Scan(&saved.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("save config %q: %w", name, err)
	}

	s.logger(sessionID).Info("config saved",
		"config_id", saved.ID,
		"name", name,
		"operations", saved.OperationCount,
	)
	return saved, nil
}

// ListConfigs returns saved configs, newest first. An empty queryName lists
// configs for every query.
func (s *Service) ListConfigs(ctx context.Context, queryName string) ([]SavedConfig, error) {
	if s.db == nil {
		return nil, ErrNoDatabase
	}

	rows, err := s.db.Query(ctx,
		`SELECT `+configColumns+`
		 FROM transform_configs
		 WHERE $1 = '' OR query_name = $1
		 ORDER BY created_at DESC, name`,
		queryName,
	)
	if err != nil {
		return nil, fmt.Errorf("list configs: %w", err)
	}
	defer rows.Close()

	configs := []SavedConfig{}
	for rows.Next() {
		sc, err := scanConfig(rows)
		if err != nil {
			return nil, err
		}
		configs = append(configs, *sc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list configs: %w", err)
	}
	return configs, nil
}

// GetConfig loads one saved config.
func (s *Service) GetConfig(ctx context.Context, id string) (*SavedConfig, error) {
	if s.db == nil {
		return nil, ErrNoDatabase
	}
	pgID := ToPgUUID(id)
	if !pgID.Valid {
		return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, id)
	}

	row := s.db.QueryRow(ctx,
		`SELECT `+configColumns+` FROM transform_configs WHERE id = $1`,
		pgID,
	)
	sc, err := scanConfig(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, id)
	}
	return sc, err
}

// DeleteConfig removes a saved config.
func (s *Service) DeleteConfig(ctx context.Context, id string) error {
	if s.db == nil {
		return ErrNoDatabase
	}
	pgID := ToPgUUID(id)
	if !pgID.Valid {
		return fmt.Errorf("%w: %s", ErrConfigNotFound, id)
	}

	tag, err := s.db.Exec(ctx, `DELETE FROM transform_configs WHERE id = $1`, pgID)
	if err != nil {
		return fmt.Errorf("delete config: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", ErrConfigNotFound, id)
	}
	return nil
}

// ApplySavedConfig replays a saved config onto a session.
func (s *Service) ApplySavedConfig(ctx context.Context, sessionID, configID string) (*SessionInfo, error) {
	if _, err := s.lookup(sessionID); err != nil {
		return nil, err
	}
	sc, err := s.GetConfig(ctx, configID)
	if err != nil {
		return nil, err
	}
	return s.ImportConfig(ctx, sessionID, sc.Config)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanConfig(row rowScanner) (*SavedConfig, error) {
	var (
		id        pgtype.UUID
		name      string
		queryName string
		opCount   int32
		body      []byte
		ip        pgtype.Text
		ua        pgtype.Text
		createdAt time.Time
	)
	if err := row.Scan(&id, &name, &queryName, &opCount, &body, &ip, &ua, &createdAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan config: %w", err)
	}

	cfg, err := processor.ParseConfig(body)
	if err != nil {
		return nil, fmt.Errorf("config %s: %w", PgUUIDToString(id), err)
	}

	return &SavedConfig{
		ID:             PgUUIDToString(id),
		Name:           name,
		QueryName:      queryName,
		OperationCount: int(opCount),
		Config:         cfg,
		IPAddress:      ip.String,
		UserAgent:      ua.String,
		CreatedAt:      createdAt,
	}, nil
}
