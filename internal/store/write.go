package store

import (
	"context"
	"fmt"

	"github.com/roach88/dutkit/internal/ir"
)

// Run statuses.
const (
	StatusOK     = "ok"
	StatusFailed = "failed"
)

// Run is one recorded entity run.
type Run struct {
	Seq      int64
	Instance string
	Entity   string
	Model    string
	Status   string
	Code     string // error code of a failed run
	Error    string
}

// Output is one recorded output port of a run.
type Output struct {
	Seq      int64
	Instance string
	Port     string
	Digest   string
	Data     string // canonical JSON of the payload
}

// RecordRun writes a run and the payloads it published in one transaction.
//
// Seq values are assigned by the store's clock: the run first, then each
// payload in the order given. Recording an instance that is already stored
// is a no-op for that row (ON CONFLICT DO NOTHING).
func (s *Store) RecordRun(ctx context.Context, run Run, payloads []ir.Payload) error {
	if run.Instance == "" {
		return fmt.Errorf("record run: instance is required")
	}
	if run.Status != StatusOK && run.Status != StatusFailed {
		return fmt.Errorf("record run: invalid status %q", run.Status)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("record run: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (seq, instance, entity, model, status, code, error)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(instance) DO NOTHING
	`, s.clock.Next(), run.Instance, run.Entity, run.Model, run.Status, run.Code, run.Error)
	if err != nil {
		return fmt.Errorf("record run %s: %w", run.Instance, err)
	}

	for _, p := range payloads {
		if p.Instance != run.Instance {
			return fmt.Errorf("record run %s: payload for port %s belongs to instance %s", run.Instance, p.Port, p.Instance)
		}
		data, err := p.MarshalCanonical()
		if err != nil {
			return fmt.Errorf("record run %s: port %s: %w", run.Instance, p.Port, err)
		}
		digest, err := p.Digest()
		if err != nil {
			return fmt.Errorf("record run %s: port %s: %w", run.Instance, p.Port, err)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO outputs (seq, instance, port, digest, data)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT DO NOTHING
		`, s.clock.Next(), p.Instance, p.Port, digest, string(data))
		if err != nil {
			return fmt.Errorf("record run %s: port %s: %w", run.Instance, p.Port, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("record run %s: commit: %w", run.Instance, err)
	}
	return nil
}
