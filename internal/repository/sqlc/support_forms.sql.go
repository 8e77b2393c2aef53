package sqlc

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const upsertSupportForm = `-- name: UpsertSupportForm :exec
INSERT INTO support_form (form_id, code, name, status, active, date_create)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (form_id) DO UPDATE SET
    code        = EXCLUDED.code,
    name        = EXCLUDED.name,
    status      = EXCLUDED.status,
    active      = EXCLUDED.active,
    date_create = EXCLUDED.date_create`

type UpsertSupportFormParams struct {
	FormID     int64              `json:"form_id"`
	Code       string             `json:"code"`
	Name       string             `json:"name"`
	Status     int16              `json:"status"`
	Active     bool               `json:"active"`
	DateCreate pgtype.Timestamptz `json:"date_create"`
}

func (q *Queries) UpsertSupportForm(ctx context.Context, arg UpsertSupportFormParams) error {
	_, err := q.db.Exec(ctx, upsertSupportForm,
		arg.FormID,
		arg.Code,
		arg.Name,
		arg.Status,
		arg.Active,
		arg.DateCreate,
	)
	return err
}

const deactivateSupportForm = `-- name: DeactivateSupportForm :execrows
UPDATE support_form SET active = FALSE WHERE form_id = $1`

func (q *Queries) DeactivateSupportForm(ctx context.Context, formID int64) (int64, error) {
	result, err := q.db.Exec(ctx, deactivateSupportForm, formID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

const getSupportForm = `-- name: GetSupportForm :one
SELECT form_id, code, name, status, active, date_create FROM support_form WHERE form_id = $1`

func (q *Queries) GetSupportForm(ctx context.Context, formID int64) (SupportForm, error) {
	row := q.db.QueryRow(ctx, getSupportForm, formID)
	var i SupportForm
	err := row.Scan(
		&i.FormID,
		&i.Code,
		&i.Name,
		&i.Status,
		&i.Active,
		&i.DateCreate,
	)
	return i, err
}

const listSupportForms = `-- name: ListSupportForms :many
SELECT form_id, code, name, status, active, date_create FROM support_form
ORDER BY name ASC, date_create DESC`

func (q *Queries) ListSupportForms(ctx context.Context) ([]SupportForm, error) {
	rows, err := q.db.Query(ctx, listSupportForms)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []SupportForm
	for rows.Next() {
		var i SupportForm
		if err := rows.Scan(
			&i.FormID,
			&i.Code,
			&i.Name,
			&i.Status,
			&i.Active,
			&i.DateCreate,
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
