package core

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/JonMunkholm/datamapper/internal/processor"
)

// DBTX is the interface for database operations.
// Satisfied by both *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// QueryDefinition is a saved query from the catalog.
type QueryDefinition struct {
	Name        string `json:"name" yaml:"name"`               // Unique identifier: "monthly_sales"
	Label       string `json:"label" yaml:"label"`             // Display name: "Monthly Sales"
	Group       string `json:"group" yaml:"group"`             // Menu group: "Finance"
	SQL         string `json:"-" yaml:"sql"`                   // Statement run against Postgres
	Description string `json:"description,omitempty" yaml:"description"`
}

// SessionSource records where a session's original data came from.
type SessionSource string

const (
	SourceQuery   SessionSource = "query"
	SourceRecords SessionSource = "records"
	SourceCSV     SessionSource = "csv"
)

// SessionInfo is a snapshot of one live processor session.
type SessionInfo struct {
	ID            string             `json:"id"`
	QueryName     string             `json:"query_name"`
	Source        SessionSource      `json:"source"`
	OriginalRows  int                `json:"original_rows"`
	ProcessedRows int                `json:"processed_rows"`
	Operations    int                `json:"operations"`
	Truncated     bool               `json:"truncated"`
	Columns       []processor.Column `json:"columns"`
	CreatedAt     time.Time          `json:"created_at"`
	LastUsed      time.Time          `json:"last_used"`
}

// SavedConfig is a processor config persisted under a name.
type SavedConfig struct {
	ID             string           `json:"id"`
	Name           string           `json:"name"`
	QueryName      string           `json:"query_name"`
	OperationCount int              `json:"operation_count"`
	Config         processor.Config `json:"config"`
	IPAddress      string           `json:"ip_address,omitempty"`
	UserAgent      string           `json:"user_agent,omitempty"`
	CreatedAt      time.Time        `json:"created_at"`
}
