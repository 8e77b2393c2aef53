// Package pgstore is the PostgreSQL backend of the form store, built on the
// sqlc queries and a shared pgxpool.
package pgstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"formbuilder.io/formbuilder/internal/domain"
	apperrors "formbuilder.io/formbuilder/internal/pkg/errors"
	"formbuilder.io/formbuilder/internal/repository/sqlc"
)

// PostgreSQL SQLSTATE codes the store translates.
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

type txKey struct{}

// Store implements formstore.Backend and the field, result and audit
// repositories over one pool.
type Store struct {
	pool    *pgxpool.Pool
	queries *sqlc.Queries
}

func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool, queries: sqlc.New(pool)}
}

// Queries returns the queries bound to the transaction in ctx, or to the
// pool when there is none.
func (s *Store) Queries(ctx context.Context) *sqlc.Queries {
	if tx := txFrom(ctx); tx != nil {
		return s.queries.WithTx(tx)
	}
	return s.queries
}

// Tx returns the transaction carried by ctx, if any.
func Tx(ctx context.Context) (pgx.Tx, bool) {
	tx := txFrom(ctx)
	return tx, tx != nil
}

func txFrom(ctx context.Context) pgx.Tx {
	tx, _ := ctx.Value(txKey{}).(pgx.Tx)
	return tx
}

// InTx runs fn in a transaction. When ctx already carries one, fn runs in a
// savepoint of it: an error rolls back to the savepoint and the outer
// transaction stays usable.
func (s *Store) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	var (
		tx  pgx.Tx
		err error
	)
	if outer := txFrom(ctx); outer != nil {
		tx, err = outer.Begin(ctx)
		if err != nil {
			return fmt.Errorf("open savepoint: %w", err)
		}
	} else {
		tx, err = s.pool.Begin(ctx)
		if err != nil {
			return fmt.Errorf("begin tx: %w", err)
		}
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (s *Store) InsertForm(ctx context.Context, attrs domain.FormAttributes) (*domain.Form, error) {
	row, err := s.Queries(ctx).InsertForm(ctx, sqlc.InsertFormParams{
		Code:             attrs.Code,
		XmlID:            textOrNull(attrs.XMLID),
		Name:             attrs.Name,
		Status:           int16(attrs.Status),
		Active:           attrs.Active,
		PreviousVersions: attrs.PreviousVersions.String(),
		IsSync:           false,
		DateCreate:       timestamptz(attrs.DateCreate),
	})
	if err != nil {
		return nil, translate(err, "insert form")
	}
	return toForm(row)
}

func (s *Store) GetForm(ctx context.Context, id int64, forUpdate bool) (*domain.Form, error) {
	q := s.Queries(ctx)
	var (
		row sqlc.Form
		err error
	)
	if forUpdate && txFrom(ctx) != nil {
		row, err = q.GetFormForUpdate(ctx, id)
	} else {
		row, err = q.GetForm(ctx, id)
	}
	if err != nil {
		return nil, translate(err, fmt.Sprintf("get form %d", id))
	}
	return toForm(row)
}

func (s *Store) UpdateForm(ctx context.Context, id int64, patch domain.FormPatch) (*domain.Form, error) {
	arg := sqlc.UpdateFormParams{ID: id}
	if patch.Code != nil {
		arg.Code = pgtype.Text{String: *patch.Code, Valid: true}
	}
	if patch.XMLID != nil {
		arg.SetXmlID = true
		arg.XmlID = textOrNull(domain.NormalizeXMLID(patch.XMLID))
	}
	if patch.Name != nil {
		arg.Name = pgtype.Text{String: *patch.Name, Valid: true}
	}
	if patch.Status != nil {
		arg.Status = pgtype.Int2{Int16: int16(*patch.Status), Valid: true}
	}
	if patch.Active != nil {
		arg.Active = pgtype.Bool{Bool: *patch.Active, Valid: true}
	}
	if patch.PreviousVersions != nil {
		arg.PreviousVersions = pgtype.Text{String: patch.PreviousVersions.String(), Valid: true}
	}
	if patch.DateCreate != nil {
		arg.DateCreate = timestamptz(*patch.DateCreate)
	}
	if patch.IsSync != nil {
		arg.IsSync = pgtype.Bool{Bool: *patch.IsSync, Valid: true}
	}
	if patch.IsDeleted != nil {
		arg.IsDeleted = pgtype.Bool{Bool: *patch.IsDeleted, Valid: true}
	}

	row, err := s.Queries(ctx).UpdateForm(ctx, arg)
	if err != nil {
		return nil, translate(err, fmt.Sprintf("update form %d", id))
	}
	return toForm(row)
}

// DeleteForm removes the form row. Fields, enum values, validators, results
// and result values go with it through ON DELETE CASCADE.
func (s *Store) DeleteForm(ctx context.Context, id int64) error {
	n, err := s.Queries(ctx).DeleteForm(ctx, id)
	if err != nil {
		return translate(err, fmt.Sprintf("delete form %d", id))
	}
	if n == 0 {
		return fmt.Errorf("delete form %d: %w", id, apperrors.ErrNotFound)
	}
	return nil
}

func (s *Store) ListForms(ctx context.Context, filter domain.FormFilter) ([]domain.Form, error) {
	arg := sqlc.ListFormsParams{
		NameContains:   filter.NameContains,
		IncludeDeleted: filter.IncludeDeleted,
		Limit:          int32(filter.Limit),
		Offset:         int32(filter.Offset),
	}
	if filter.Status != nil {
		arg.Status = pgtype.Int2{Int16: int16(*filter.Status), Valid: true}
	}
	if filter.IsSync != nil {
		arg.IsSync = pgtype.Bool{Bool: *filter.IsSync, Valid: true}
	}
	rows, err := s.Queries(ctx).ListForms(ctx, arg)
	if err != nil {
		return nil, translate(err, "list forms")
	}
	return toForms(rows)
}

func (s *Store) ListFormsByIDsAndStatus(ctx context.Context, ids []int64, status domain.Status) ([]domain.Form, error) {
	rows, err := s.Queries(ctx).ListFormsByIDsAndStatus(ctx, sqlc.ListFormsByIDsAndStatusParams{
		Ids:    ids,
		Status: int16(status),
	})
	if err != nil {
		return nil, translate(err, "list forms by id")
	}
	return toForms(rows)
}

func (s *Store) ListUnsyncedForms(ctx context.Context, limit int) ([]domain.Form, error) {
	rows, err := s.Queries(ctx).ListUnsyncedForms(ctx, int32(limit))
	if err != nil {
		return nil, translate(err, "list unsynced forms")
	}
	return toForms(rows)
}

func (s *Store) UpsertSupport(ctx context.Context, rec domain.SupportRecord) error {
	err := s.Queries(ctx).UpsertSupportForm(ctx, sqlc.UpsertSupportFormParams{
		FormID:     rec.FormID,
		Code:       rec.Code,
		Name:       rec.Name,
		Status:     int16(rec.Status),
		Active:     rec.Active,
		DateCreate: timestamptz(rec.DateCreate),
	})
	if err != nil {
		return translate(err, fmt.Sprintf("upsert support record %d", rec.FormID))
	}
	return nil
}

// DeactivateSupport sets active=false on the support record. A form without
// a support record has nothing to deactivate.
func (s *Store) DeactivateSupport(ctx context.Context, formID int64) error {
	if _, err := s.Queries(ctx).DeactivateSupportForm(ctx, formID); err != nil {
		return translate(err, fmt.Sprintf("deactivate support record %d", formID))
	}
	return nil
}

func (s *Store) GetSupport(ctx context.Context, formID int64) (*domain.SupportRecord, error) {
	row, err := s.Queries(ctx).GetSupportForm(ctx, formID)
	if err != nil {
		return nil, translate(err, fmt.Sprintf("get support record %d", formID))
	}
	rec := toSupport(row)
	return &rec, nil
}

func (s *Store) ListSupport(ctx context.Context) ([]domain.SupportRecord, error) {
	rows, err := s.Queries(ctx).ListSupportForms(ctx)
	if err != nil {
		return nil, translate(err, "list support records")
	}
	out := make([]domain.SupportRecord, 0, len(rows))
	for _, r := range rows {
		out = append(out, toSupport(r))
	}
	return out, nil
}

// translate maps driver errors onto the store sentinels.
func translate(err error, action string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s: %w", action, apperrors.ErrNotFound)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return fmt.Errorf("%s: %s: %w", action, pgErr.ConstraintName, apperrors.ErrConflict)
		case pgForeignKeyViolation:
			return fmt.Errorf("%s: %s: %w", action, pgErr.ConstraintName, apperrors.ErrNotFound)
		}
	}
	return fmt.Errorf("%s: %w", action, err)
}

func toForm(row sqlc.Form) (*domain.Form, error) {
	chain, err := domain.ParseVersionChain(row.PreviousVersions)
	if err != nil {
		return nil, fmt.Errorf("form %d: %w", row.ID, err)
	}
	var xmlID *string
	if row.XmlID.Valid {
		v := row.XmlID.String
		xmlID = &v
	}
	return &domain.Form{
		ID: row.ID,
		FormAttributes: domain.FormAttributes{
			Code:             row.Code,
			XMLID:            xmlID,
			Name:             row.Name,
			Status:           domain.Status(row.Status),
			Active:           row.Active,
			PreviousVersions: chain,
			DateCreate:       row.DateCreate.Time.UTC(),
		},
		IsSync:    row.IsSync,
		IsDeleted: row.IsDeleted,
	}, nil
}

func toForms(rows []sqlc.Form) ([]domain.Form, error) {
	out := make([]domain.Form, 0, len(rows))
	for _, r := range rows {
		f, err := toForm(r)
		if err != nil {
			return nil, err
		}
		out = append(out, *f)
	}
	return out, nil
}

func toSupport(row sqlc.SupportForm) domain.SupportRecord {
	return domain.SupportRecord{
		FormID:     row.FormID,
		Code:       row.Code,
		Name:       row.Name,
		Status:     domain.Status(row.Status),
		Active:     row.Active,
		DateCreate: row.DateCreate.Time.UTC(),
	}
}

func textOrNull(v *string) pgtype.Text {
	if v == nil {
		return pgtype.Text{}
	}
	return pgtype.Text{String: *v, Valid: true}
}

func timestamptz(t time.Time) pgtype.Timestamptz {
	if t.IsZero() {
		return pgtype.Timestamptz{}
	}
	return pgtype.Timestamptz{Time: t.UTC(), Valid: true}
}
