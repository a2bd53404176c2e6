package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
)

// DetectDSNType classifies a DSN as "postgres" or "sqlite". Connection
// strings and URLs are Postgres, plain file paths are SQLite.
func DetectDSNType(dsn string) string {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") || strings.Contains(dsn, "host=") {
		return "postgres"
	}
	return "sqlite"
}

// nilIfEmpty returns nil if s is empty, otherwise returns s.
// Used for nullable database columns.
func nilIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// encodeRunJSON serializes the slice and map columns of a run record.
func encodeRunJSON(r RunRecord) (apps string, counts string, err error) {
	appsRaw, err := json.Marshal(r.Apps)
	if err != nil {
		return "", "", fmt.Errorf("failed to encode apps: %w", err)
	}
	countsRaw, err := json.Marshal(r.EntryCounts)
	if err != nil {
		return "", "", fmt.Errorf("failed to encode entry counts: %w", err)
	}
	return string(appsRaw), string(countsRaw), nil
}

// scanRun scans a RunRecord from sql.Rows.
func scanRun(rows *sql.Rows) (RunRecord, error) {
	var r RunRecord
	var apps, counts string
	var outputPath, quality sql.NullString
	err := rows.Scan(
		&r.ID, &r.StartedAt, &r.FinishedAt, &r.Success, &apps, &counts,
		&r.ErrorCount, &outputPath, &quality,
		&r.RealismScore, &r.DiversityScore, &r.CoherenceScore,
	)
	if err != nil {
		return r, fmt.Errorf("scan run failed: %w", err)
	}
	r.OutputPath = outputPath.String
	r.OverallQuality = quality.String
	if err := json.Unmarshal([]byte(apps), &r.Apps); err != nil {
		return r, fmt.Errorf("decode apps failed: %w", err)
	}
	if err := json.Unmarshal([]byte(counts), &r.EntryCounts); err != nil {
		return r, fmt.Errorf("decode entry counts failed: %w", err)
	}
	return r, nil
}
