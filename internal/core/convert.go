package core

// convert.go maps values between Postgres and processor cells.
//
// Query results arrive as whatever pgx decodes for each column type:
//   - integers and floats become numbers
//   - numeric becomes a number when it fits a float64
//   - date becomes "2006-01-02", timestamps become RFC 3339
//   - uuid, bytea and json become their text form
//
// Anything unrecognized is rendered with fmt so no column is dropped.

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/JonMunkholm/datamapper/internal/processor"
)

// CellFromPg converts one value returned by pgx.Rows.Values.
func CellFromPg(v any) processor.Value {
	switch t := v.(type) {
	case nil:
		return processor.Null()
	case string:
		return processor.String(t)
	case bool:
		return processor.Bool(t)
	case int16:
		return processor.Number(float64(t))
	case int32:
		return processor.Number(float64(t))
	case int64:
		return processor.Number(float64(t))
	case int:
		return processor.Number(float64(t))
	case float32:
		return finiteNumber(float64(t))
	case float64:
		return finiteNumber(t)
	case pgtype.Numeric:
		return numericCell(t)
	case time.Time:
		return processor.String(formatTime(t))
	case pgtype.Date:
		if !t.Valid {
			return processor.Null()
		}
		return processor.String(t.Time.Format("2006-01-02"))
	case pgtype.Timestamptz:
		if !t.Valid {
			return processor.Null()
		}
		return processor.String(t.Time.UTC().Format(time.RFC3339Nano))
	case pgtype.Text:
		if !t.Valid {
			return processor.Null()
		}
		return processor.String(t.String)
	case [16]byte:
		return processor.String(uuid.UUID(t).String())
	case pgtype.UUID:
		if !t.Valid {
			return processor.Null()
		}
		return processor.String(PgUUIDToString(t))
	case []byte:
		return processor.String(string(t))
	case map[string]any, []any:
		raw, err := json.Marshal(t)
		if err != nil {
			return processor.String(fmt.Sprint(t))
		}
		return processor.String(string(raw))
	case fmt.Stringer:
		return processor.String(t.String())
	}
	return processor.String(fmt.Sprint(v))
}

// numericCell converts a Postgres numeric. NaN and infinities become null.
func numericCell(n pgtype.Numeric) processor.Value {
	if !n.Valid || n.NaN || n.InfinityModifier != pgtype.Finite {
		return processor.Null()
	}
	f, err := n.Float64Value()
	if err != nil || !f.Valid {
		return processor.Null()
	}
	return finiteNumber(f.Float64)
}

func finiteNumber(f float64) processor.Value {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return processor.Null()
	}
	return processor.Number(f)
}

// formatTime renders midnight UTC values as plain dates, which is how pgx
// decodes the date type.
func formatTime(t time.Time) string {
	if t.Location() == time.UTC && t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0 {
		return t.Format("2006-01-02")
	}
	return t.Format(time.RFC3339Nano)
}

// ToPgText converts a string to pgtype.Text.
// Returns invalid if the string is empty or only whitespace.
func ToPgText(s string) pgtype.Text {
	s = strings.TrimSpace(s)
	if s == "" {
		return pgtype.Text{Valid: false}
	}
	return pgtype.Text{String: s, Valid: true}
}

// ToPgUUID converts a string to pgtype.UUID.
// Returns invalid if the string is empty or not a valid UUID.
func ToPgUUID(s string) pgtype.UUID {
	if s == "" {
		return pgtype.UUID{Valid: false}
	}
	parsed, err := uuid.Parse(s)
	if err != nil {
		return pgtype.UUID{Valid: false}
	}
	return pgtype.UUID{Bytes: parsed, Valid: true}
}

// PgUUIDToString converts a pgtype.UUID to its string representation.
// Returns empty string if the UUID is invalid.
func PgUUIDToString(u pgtype.UUID) string {
	if !u.Valid {
		return ""
	}
	return uuid.UUID(u.Bytes).String()
}

// CleanHeader removes common spreadsheet artifacts from a CSV header cell:
// surrounding whitespace, an Excel formula wrapper (="...") and quotes.
func CleanHeader(s string) string {
	s = strings.TrimSpace(s)

	if strings.HasPrefix(s, "=\"") && strings.HasSuffix(s, "\"") {
		s = s[2 : len(s)-1]
	} else if strings.HasPrefix(s, "=") {
		s = s[1:]
	}

	return strings.TrimSpace(strings.Trim(s, `"'`))
}
