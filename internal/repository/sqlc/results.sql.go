package sqlc

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const insertResult = `-- name: InsertResult :one
INSERT INTO form_result (form_id, user_id, date_create)
VALUES ($1, $2, $3)
RETURNING id, form_id, user_id, date_create`

type InsertResultParams struct {
	FormID     int64              `json:"form_id"`
	UserID     pgtype.Int8        `json:"user_id"`
	DateCreate pgtype.Timestamptz `json:"date_create"`
}

func (q *Queries) InsertResult(ctx context.Context, arg InsertResultParams) (FormResult, error) {
	row := q.db.QueryRow(ctx, insertResult, arg.FormID, arg.UserID, arg.DateCreate)
	var i FormResult
	err := row.Scan(
		&i.ID,
		&i.FormID,
		&i.UserID,
		&i.DateCreate,
	)
	return i, err
}

const insertResultValue = `-- name: InsertResultValue :one
INSERT INTO form_result_value (result_id, field_id, value)
VALUES ($1, $2, $3)
RETURNING id`

type InsertResultValueParams struct {
	ResultID int64  `json:"result_id"`
	FieldID  int64  `json:"field_id"`
	Value    string `json:"value"`
}

func (q *Queries) InsertResultValue(ctx context.Context, arg InsertResultValueParams) (int64, error) {
	row := q.db.QueryRow(ctx, insertResultValue, arg.ResultID, arg.FieldID, arg.Value)
	var id int64
	err := row.Scan(&id)
	return id, err
}

const countResultsByForm = `-- name: CountResultsByForm :one
SELECT COUNT(*) FROM form_result WHERE form_id = $1`

func (q *Queries) CountResultsByForm(ctx context.Context, formID int64) (int64, error) {
	row := q.db.QueryRow(ctx, countResultsByForm, formID)
	var count int64
	err := row.Scan(&count)
	return count, err
}
