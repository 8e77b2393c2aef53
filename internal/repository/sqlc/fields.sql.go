package sqlc

import (
	"context"
)

const fieldColumns = `id, form_id, code, name, type, sort, active, required, multiple, settings`

func scanField(row interface{ Scan(...any) error }) (FormField, error) {
	var i FormField
	err := row.Scan(
		&i.ID,
		&i.FormID,
		&i.Code,
		&i.Name,
		&i.Type,
		&i.Sort,
		&i.Active,
		&i.Required,
		&i.Multiple,
		&i.Settings,
	)
	return i, err
}

func collectFields(rows interface {
	Next() bool
	Scan(...any) error
	Err() error
	Close()
}) ([]FormField, error) {
	defer rows.Close()
	var items []FormField
	for rows.Next() {
		i, err := scanField(rows)
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

const insertField = `-- name: InsertField :one
INSERT INTO form_field (form_id, code, name, type, sort, active, required, multiple, settings)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
RETURNING ` + fieldColumns

type InsertFieldParams struct {
	FormID   int64  `json:"form_id"`
	Code     string `json:"code"`
	Name     string `json:"name"`
	Type     string `json:"type"`
	Sort     int32  `json:"sort"`
	Active   bool   `json:"active"`
	Required bool   `json:"required"`
	Multiple bool   `json:"multiple"`
	Settings []byte `json:"settings"`
}

func (q *Queries) InsertField(ctx context.Context, arg InsertFieldParams) (FormField, error) {
	row := q.db.QueryRow(ctx, insertField,
		arg.FormID,
		arg.Code,
		arg.Name,
		arg.Type,
		arg.Sort,
		arg.Active,
		arg.Required,
		arg.Multiple,
		arg.Settings,
	)
	return scanField(row)
}

// CopyField duplicates a field row onto another form in one statement.
const copyField = `-- name: CopyField :one
INSERT INTO form_field (form_id, code, name, type, sort, active, required, multiple, settings)
SELECT $2, code, name, type, sort, active, required, multiple, settings
FROM form_field WHERE id = $1
RETURNING id`

type CopyFieldParams struct {
	ID     int64 `json:"id"`
	FormID int64 `json:"form_id"`
}

func (q *Queries) CopyField(ctx context.Context, arg CopyFieldParams) (int64, error) {
	row := q.db.QueryRow(ctx, copyField, arg.ID, arg.FormID)
	var id int64
	err := row.Scan(&id)
	return id, err
}

const copyFieldEnums = `-- name: CopyFieldEnums :execrows
INSERT INTO form_field_enum (field_id, value, xml_id, sort, is_default)
SELECT $2, value, xml_id, sort, is_default
FROM form_field_enum WHERE field_id = $1
ORDER BY id`

type CopyFieldEnumsParams struct {
	SourceFieldID int64 `json:"source_field_id"`
	TargetFieldID int64 `json:"target_field_id"`
}

func (q *Queries) CopyFieldEnums(ctx context.Context, arg CopyFieldEnumsParams) (int64, error) {
	result, err := q.db.Exec(ctx, copyFieldEnums, arg.SourceFieldID, arg.TargetFieldID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

const copyFieldValidators = `-- name: CopyFieldValidators :execrows
INSERT INTO form_field_validator (field_id, name, settings)
SELECT $2, name, settings
FROM form_field_validator WHERE field_id = $1
ORDER BY id`

type CopyFieldValidatorsParams struct {
	SourceFieldID int64 `json:"source_field_id"`
	TargetFieldID int64 `json:"target_field_id"`
}

func (q *Queries) CopyFieldValidators(ctx context.Context, arg CopyFieldValidatorsParams) (int64, error) {
	result, err := q.db.Exec(ctx, copyFieldValidators, arg.SourceFieldID, arg.TargetFieldID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

const listFieldIDsByForm = `-- name: ListFieldIDsByForm :many
SELECT id FROM form_field WHERE form_id = $1 ORDER BY id ASC`

func (q *Queries) ListFieldIDsByForm(ctx context.Context, formID int64) ([]int64, error) {
	rows, err := q.db.Query(ctx, listFieldIDsByForm, formID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		items = append(items, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const listFieldsByForm = `-- name: ListFieldsByForm :many
SELECT ` + fieldColumns + ` FROM form_field
WHERE form_id = $1
ORDER BY id ASC`

func (q *Queries) ListFieldsByForm(ctx context.Context, formID int64) ([]FormField, error) {
	rows, err := q.db.Query(ctx, listFieldsByForm, formID)
	if err != nil {
		return nil, err
	}
	return collectFields(rows)
}

const listActiveFieldsByForm = `-- name: ListActiveFieldsByForm :many
SELECT ` + fieldColumns + ` FROM form_field
WHERE form_id = $1 AND active = TRUE
ORDER BY sort ASC, id ASC`

func (q *Queries) ListActiveFieldsByForm(ctx context.Context, formID int64) ([]FormField, error) {
	rows, err := q.db.Query(ctx, listActiveFieldsByForm, formID)
	if err != nil {
		return nil, err
	}
	return collectFields(rows)
}

const insertFieldEnum = `-- name: InsertFieldEnum :one
INSERT INTO form_field_enum (field_id, value, xml_id, sort, is_default)
VALUES ($1, $2, $3, $4, $5)
RETURNING id, field_id, value, xml_id, sort, is_default`

type InsertFieldEnumParams struct {
	FieldID   int64  `json:"field_id"`
	Value     string `json:"value"`
	XmlID     string `json:"xml_id"`
	Sort      int32  `json:"sort"`
	IsDefault bool   `json:"is_default"`
}

func (q *Queries) InsertFieldEnum(ctx context.Context, arg InsertFieldEnumParams) (FormFieldEnum, error) {
	row := q.db.QueryRow(ctx, insertFieldEnum,
		arg.FieldID,
		arg.Value,
		arg.XmlID,
		arg.Sort,
		arg.IsDefault,
	)
	var i FormFieldEnum
	err := row.Scan(
		&i.ID,
		&i.FieldID,
		&i.Value,
		&i.XmlID,
		&i.Sort,
		&i.IsDefault,
	)
	return i, err
}

const listEnumsByFields = `-- name: ListEnumsByFields :many
SELECT id, field_id, value, xml_id, sort, is_default FROM form_field_enum
WHERE field_id = ANY($1::bigint[])
ORDER BY field_id, sort, id`

func (q *Queries) ListEnumsByFields(ctx context.Context, fieldIds []int64) ([]FormFieldEnum, error) {
	rows, err := q.db.Query(ctx, listEnumsByFields, fieldIds)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []FormFieldEnum
	for rows.Next() {
		var i FormFieldEnum
		if err := rows.Scan(
			&i.ID,
			&i.FieldID,
			&i.Value,
			&i.XmlID,
			&i.Sort,
			&i.IsDefault,
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

const insertFieldValidator = `-- name: InsertFieldValidator :one
INSERT INTO form_field_validator (field_id, name, settings)
VALUES ($1, $2, $3)
RETURNING id, field_id, name, settings`

type InsertFieldValidatorParams struct {
	FieldID  int64  `json:"field_id"`
	Name     string `json:"name"`
	Settings []byte `json:"settings"`
}

func (q *Queries) InsertFieldValidator(ctx context.Context, arg InsertFieldValidatorParams) (FormFieldValidator, error) {
	row := q.db.QueryRow(ctx, insertFieldValidator, arg.FieldID, arg.Name, arg.Settings)
	var i FormFieldValidator
	err := row.Scan(
		&i.ID,
		&i.FieldID,
		&i.Name,
		&i.Settings,
	)
	return i, err
}

const listValidatorsByFields = `-- name: ListValidatorsByFields :many
SELECT id, field_id, name, settings FROM form_field_validator
WHERE field_id = ANY($1::bigint[])
ORDER BY field_id, id`

func (q *Queries) ListValidatorsByFields(ctx context.Context, fieldIds []int64) ([]FormFieldValidator, error) {
	rows, err := q.db.Query(ctx, listValidatorsByFields, fieldIds)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []FormFieldValidator
	for rows.Next() {
		var i FormFieldValidator
		if err := rows.Scan(
			&i.ID,
			&i.FieldID,
			&i.Name,
			&i.Settings,
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
