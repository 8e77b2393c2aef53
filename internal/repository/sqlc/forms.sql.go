package sqlc

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const formColumns = `id, code, xml_id, name, status, active, previous_versions, is_sync, is_deleted, date_create`

func scanForm(row interface{ Scan(...any) error }) (Form, error) {
	var i Form
	err := row.Scan(
		&i.ID,
		&i.Code,
		&i.XmlID,
		&i.Name,
		&i.Status,
		&i.Active,
		&i.PreviousVersions,
		&i.IsSync,
		&i.IsDeleted,
		&i.DateCreate,
	)
	return i, err
}

const insertForm = `-- name: InsertForm :one
INSERT INTO form (code, xml_id, name, status, active, previous_versions, is_sync, is_deleted, date_create)
VALUES ($1, $2, $3, $4, $5, $6, $7, FALSE, $8)
RETURNING ` + formColumns

type InsertFormParams struct {
	Code             string             `json:"code"`
	XmlID            pgtype.Text        `json:"xml_id"`
	Name             string             `json:"name"`
	Status           int16              `json:"status"`
	Active           bool               `json:"active"`
	PreviousVersions string             `json:"previous_versions"`
	IsSync           bool               `json:"is_sync"`
	DateCreate       pgtype.Timestamptz `json:"date_create"`
}

func (q *Queries) InsertForm(ctx context.Context, arg InsertFormParams) (Form, error) {
	row := q.db.QueryRow(ctx, insertForm,
		arg.Code,
		arg.XmlID,
		arg.Name,
		arg.Status,
		arg.Active,
		arg.PreviousVersions,
		arg.IsSync,
		arg.DateCreate,
	)
	return scanForm(row)
}

const getForm = `-- name: GetForm :one
SELECT ` + formColumns + ` FROM form WHERE id = $1`

func (q *Queries) GetForm(ctx context.Context, id int64) (Form, error) {
	return scanForm(q.db.QueryRow(ctx, getForm, id))
}

const getFormForUpdate = `-- name: GetFormForUpdate :one
SELECT ` + formColumns + ` FROM form WHERE id = $1 FOR UPDATE`

func (q *Queries) GetFormForUpdate(ctx context.Context, id int64) (Form, error) {
	return scanForm(q.db.QueryRow(ctx, getFormForUpdate, id))
}

// Every column is optional; a NULL argument keeps the stored value. xml_id is
// nullable itself, so it is guarded by set_xml_id instead.
const updateForm = `-- name: UpdateForm :one
UPDATE form SET
    code              = COALESCE($2, code),
    xml_id            = CASE WHEN $3::boolean THEN $4::text ELSE xml_id END,
    name              = COALESCE($5, name),
    status            = COALESCE($6, status),
    active            = COALESCE($7, active),
    previous_versions = COALESCE($8, previous_versions),
    date_create       = COALESCE($9, date_create),
    is_sync           = COALESCE($10, is_sync),
    is_deleted        = COALESCE($11, is_deleted)
WHERE id = $1
RETURNING ` + formColumns

type UpdateFormParams struct {
	ID               int64              `json:"id"`
	Code             pgtype.Text        `json:"code"`
	SetXmlID         bool               `json:"set_xml_id"`
	XmlID            pgtype.Text        `json:"xml_id"`
	Name             pgtype.Text        `json:"name"`
	Status           pgtype.Int2        `json:"status"`
	Active           pgtype.Bool        `json:"active"`
	PreviousVersions pgtype.Text        `json:"previous_versions"`
	DateCreate       pgtype.Timestamptz `json:"date_create"`
	IsSync           pgtype.Bool        `json:"is_sync"`
	IsDeleted        pgtype.Bool        `json:"is_deleted"`
}

func (q *Queries) UpdateForm(ctx context.Context, arg UpdateFormParams) (Form, error) {
	row := q.db.QueryRow(ctx, updateForm,
		arg.ID,
		arg.Code,
		arg.SetXmlID,
		arg.XmlID,
		arg.Name,
		arg.Status,
		arg.Active,
		arg.PreviousVersions,
		arg.DateCreate,
		arg.IsSync,
		arg.IsDeleted,
	)
	return scanForm(row)
}

const deleteForm = `-- name: DeleteForm :execrows
DELETE FROM form WHERE id = $1`

func (q *Queries) DeleteForm(ctx context.Context, id int64) (int64, error) {
	result, err := q.db.Exec(ctx, deleteForm, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

const listForms = `-- name: ListForms :many
SELECT ` + formColumns + ` FROM form
WHERE ($1::smallint IS NULL OR status = $1)
  AND ($2::text = '' OR name ILIKE '%' || $2 || '%')
  AND ($3::boolean IS NULL OR is_sync = $3)
  AND ($4::boolean OR is_deleted = FALSE)
ORDER BY id DESC
LIMIT $5 OFFSET $6`

type ListFormsParams struct {
	Status         pgtype.Int2 `json:"status"`
	NameContains   string      `json:"name_contains"`
	IsSync         pgtype.Bool `json:"is_sync"`
	IncludeDeleted bool        `json:"include_deleted"`
	Limit          int32       `json:"limit"`
	Offset         int32       `json:"offset"`
}

func (q *Queries) ListForms(ctx context.Context, arg ListFormsParams) ([]Form, error) {
	rows, err := q.db.Query(ctx, listForms,
		arg.Status,
		arg.NameContains,
		arg.IsSync,
		arg.IncludeDeleted,
		arg.Limit,
		arg.Offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Form
	for rows.Next() {
		i, err := scanForm(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const listFormsByIDsAndStatus = `-- name: ListFormsByIDsAndStatus :many
SELECT ` + formColumns + ` FROM form
WHERE id = ANY($1::bigint[]) AND status = $2
ORDER BY id`

type ListFormsByIDsAndStatusParams struct {
	Ids    []int64 `json:"ids"`
	Status int16   `json:"status"`
}

func (q *Queries) ListFormsByIDsAndStatus(ctx context.Context, arg ListFormsByIDsAndStatusParams) ([]Form, error) {
	rows, err := q.db.Query(ctx, listFormsByIDsAndStatus, arg.Ids, arg.Status)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Form
	for rows.Next() {
		i, err := scanForm(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const listUnsyncedForms = `-- name: ListUnsyncedForms :many
SELECT ` + formColumns + ` FROM form
WHERE is_sync = FALSE
ORDER BY id
LIMIT $1`

func (q *Queries) ListUnsyncedForms(ctx context.Context, limit int32) ([]Form, error) {
	rows, err := q.db.Query(ctx, listUnsyncedForms, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Form
	for rows.Next() {
		i, err := scanForm(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
