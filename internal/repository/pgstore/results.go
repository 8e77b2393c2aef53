package pgstore

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgtype"

	"formbuilder.io/formbuilder/internal/domain"
	"formbuilder.io/formbuilder/internal/repository/sqlc"
)

// InsertResult stores a submission and its values in one transaction.
func (s *Store) InsertResult(ctx context.Context, result domain.Result) (*domain.Result, error) {
	var saved *domain.Result
	err := s.InTx(ctx, func(ctx context.Context) error {
		q := s.Queries(ctx)
		var userID pgtype.Int8
		if result.UserID != nil {
			userID = pgtype.Int8{Int64: *result.UserID, Valid: true}
		}
		row, err := q.InsertResult(ctx, sqlc.InsertResultParams{
			FormID:     result.FormID,
			UserID:     userID,
			DateCreate: timestamptz(result.DateCreate),
		})
		if err != nil {
			return translate(err, fmt.Sprintf("insert result of form %d", result.FormID))
		}

		out := &domain.Result{
			ID:         row.ID,
			FormID:     row.FormID,
			UserID:     result.UserID,
			DateCreate: row.DateCreate.Time.UTC(),
		}
		for _, v := range result.Values {
			id, err := q.InsertResultValue(ctx, sqlc.InsertResultValueParams{
				ResultID: row.ID,
				FieldID:  v.FieldID,
				Value:    v.Value,
			})
			if err != nil {
				return translate(err, fmt.Sprintf("insert value of field %d", v.FieldID))
			}
			out.Values = append(out.Values, domain.ResultValue{
				ID:       id,
				ResultID: row.ID,
				FieldID:  v.FieldID,
				Value:    v.Value,
			})
		}
		saved = out
		return nil
	})
	if err != nil {
		return nil, err
	}
	return saved, nil
}

func (s *Store) CountResults(ctx context.Context, formID int64) (int64, error) {
	n, err := s.Queries(ctx).CountResultsByForm(ctx, formID)
	if err != nil {
		return 0, translate(err, fmt.Sprintf("count results of form %d", formID))
	}
	return n, nil
}
