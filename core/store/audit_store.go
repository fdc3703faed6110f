package store

import (
	"context"
	"fmt"
	"time"
)

type AuditEntry struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	Action    string    `json:"action"`
	Details   string    `json:"details,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type AuditStore interface {
	Log(ctx context.Context, username, action, details string) error
	List(ctx context.Context, limit int) ([]AuditEntry, error)
	PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

type auditStore struct {
	db *DB
}

func NewAuditStore(db *DB) AuditStore {
	return &auditStore{db: db}
}

func (s *auditStore) Log(ctx context.Context, username, action, details string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_log(username, action, details, created_at)
		VALUES(?,?,?,?)`, username, action, details, time.Now().UTC())
	return err
}

func (s *auditStore) List(ctx context.Context, limit int) ([]AuditEntry, error) {
	query := `SELECT id, username, action, COALESCE(details, ''), created_at FROM audit_log ORDER BY id DESC`
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []AuditEntry
	for rows.Next() {
		var e AuditEntry
		if err := rows.Scan(&e.ID, &e.Username, &e.Action, &e.Details, &e.CreatedAt); err != nil {
			return nil, err
		}
		res = append(res, e)
	}
	return res, rows.Err()
}

func (s *auditStore) PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM audit_log WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, err
	}
	n, _ := res.RowsAffected()
	return n, nil
}
