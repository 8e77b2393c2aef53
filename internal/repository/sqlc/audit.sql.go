package sqlc

import (
	"context"
	"time"
)

const insertAuditLog = `-- name: InsertAuditLog :exec
INSERT INTO form_audit_log (id, action, form_id, actor, details, created_at)
VALUES ($1, $2, $3, $4, $5, NOW())`

type InsertAuditLogParams struct {
	ID      string `json:"id"`
	Action  string `json:"action"`
	FormID  int64  `json:"form_id"`
	Actor   string `json:"actor"`
	Details []byte `json:"details"`
}

func (q *Queries) InsertAuditLog(ctx context.Context, arg InsertAuditLogParams) error {
	_, err := q.db.Exec(ctx, insertAuditLog,
		arg.ID,
		arg.Action,
		arg.FormID,
		arg.Actor,
		arg.Details,
	)
	return err
}

const listAuditLogByForm = `-- name: ListAuditLogByForm :many
SELECT id, action, form_id, actor, details, created_at FROM form_audit_log
WHERE form_id = $1
ORDER BY created_at, id`

func (q *Queries) ListAuditLogByForm(ctx context.Context, formID int64) ([]FormAuditLog, error) {
	rows, err := q.db.Query(ctx, listAuditLogByForm, formID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []FormAuditLog
	for rows.Next() {
		var i FormAuditLog
		if err := rows.Scan(
			&i.ID,
			&i.Action,
			&i.FormID,
			&i.Actor,
			&i.Details,
			&i.CreatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const deleteAuditLogBefore = `-- name: DeleteAuditLogBefore :execrows
DELETE FROM form_audit_log
WHERE created_at < $1`

func (q *Queries) DeleteAuditLogBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := q.db.Exec(ctx, deleteAuditLogBefore, cutoff)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}
