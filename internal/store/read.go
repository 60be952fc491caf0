package store

import (
	"context"
	"database/sql"
	"fmt"
)

// ReadRuns returns recorded runs, all of them when entity is empty.
// Results are ordered by seq ASC, instance ASC COLLATE BINARY.
//
// Returns an empty slice (not nil) if nothing matches.
func (s *Store) ReadRuns(ctx context.Context, entity string) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, instance, entity, model, status, code, error
		FROM runs
		WHERE ? = '' OR entity = ?
		ORDER BY seq ASC, instance COLLATE BINARY ASC
	`, entity, entity)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		var r Run
		if err := rows.Scan(&r.Seq, &r.Instance, &r.Entity, &r.Model, &r.Status, &r.Code, &r.Error); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// ReadOutputs returns the outputs recorded for a run instance.
func (s *Store) ReadOutputs(ctx context.Context, instance string) ([]Output, error) {
	return s.queryOutputs(ctx, `
		SELECT seq, instance, port, digest, data
		FROM outputs
		WHERE instance = ?
		ORDER BY seq ASC, instance COLLATE BINARY ASC
	`, instance)
}

// FindByDigest returns every output with the given payload digest.
func (s *Store) FindByDigest(ctx context.Context, digest string) ([]Output, error) {
	return s.queryOutputs(ctx, `
		SELECT seq, instance, port, digest, data
		FROM outputs
		WHERE digest = ?
		ORDER BY seq ASC, instance COLLATE BINARY ASC
	`, digest)
}

func (s *Store) queryOutputs(ctx context.Context, query string, args ...any) ([]Output, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query outputs: %w", err)
	}
	defer rows.Close()

	outs := []Output{}
	for rows.Next() {
		o, err := scanOutput(rows)
		if err != nil {
			return nil, err
		}
		outs = append(outs, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate outputs: %w", err)
	}
	return outs, nil
}

func scanOutput(rows *sql.Rows) (Output, error) {
	var o Output
	if err := rows.Scan(&o.Seq, &o.Instance, &o.Port, &o.Digest, &o.Data); err != nil {
		return Output{}, fmt.Errorf("scan output: %w", err)
	}
	return o, nil
}
