package audit

import (
	"context"
	"database/sql"
)

var (
	_ Sink   = (*PGSink)(nil)
	_ Lister = (*PGSink)(nil)
)

// PGSink appends entries to the audit_entries table. Append-only: no update
// or delete statements exist against this table.
type PGSink struct {
	db *sql.DB
}

func NewPGSink(db *sql.DB) *PGSink {
	return &PGSink{db: db}
}

func (s *PGSink) Append(ctx context.Context, e *Entry) error {
	_, err := s.db.ExecContext(ctx,
		`insert into audit_entries(id, occurred_at, actor_id, actor_name, action, entity_type,
			entity_id, detail, category, ip, user_agent, method, path, status, request_id)
		 values($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)`,
		e.ID, e.OccurredAt, e.ActorID, e.ActorName, e.Action, e.EntityType,
		e.EntityID, e.Detail, e.Category, e.IP, e.UserAgent, e.Method, e.Path, e.Status, e.RequestID,
	)
	return err
}

func (s *PGSink) List(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		`select id, occurred_at, actor_id, actor_name, action, entity_type, entity_id,
			detail, category, ip, user_agent, method, path, status, request_id
		 from audit_entries order by occurred_at desc limit $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.OccurredAt, &e.ActorID, &e.ActorName, &e.Action,
			&e.EntityType, &e.EntityID, &e.Detail, &e.Category, &e.IP, &e.UserAgent,
			&e.Method, &e.Path, &e.Status, &e.RequestID); err != nil {
			return nil, err
		}
		res = append(res, e)
	}
	return res, rows.Err()
}
