package pgstore

import (
	"context"
	"encoding/json"
	"fmt"

	"formbuilder.io/formbuilder/internal/domain"
	"formbuilder.io/formbuilder/internal/repository/sqlc"
)

// ListFieldIDs returns the ids of every field of formID in ascending order.
func (s *Store) ListFieldIDs(ctx context.Context, formID int64) ([]int64, error) {
	ids, err := s.Queries(ctx).ListFieldIDsByForm(ctx, formID)
	if err != nil {
		return nil, translate(err, fmt.Sprintf("list fields of form %d", formID))
	}
	return ids, nil
}

// CopyField duplicates field fieldID, its enum values and its validators onto
// overrides.FormID and returns the new field id.
func (s *Store) CopyField(ctx context.Context, fieldID int64, overrides domain.FieldOverrides) (int64, error) {
	var newID int64
	err := s.InTx(ctx, func(ctx context.Context) error {
		q := s.Queries(ctx)
		id, err := q.CopyField(ctx, sqlc.CopyFieldParams{ID: fieldID, FormID: overrides.FormID})
		if err != nil {
			return translate(err, fmt.Sprintf("copy field %d", fieldID))
		}
		if _, err := q.CopyFieldEnums(ctx, sqlc.CopyFieldEnumsParams{SourceFieldID: fieldID, TargetFieldID: id}); err != nil {
			return translate(err, fmt.Sprintf("copy enum values of field %d", fieldID))
		}
		if _, err := q.CopyFieldValidators(ctx, sqlc.CopyFieldValidatorsParams{SourceFieldID: fieldID, TargetFieldID: id}); err != nil {
			return translate(err, fmt.Sprintf("copy validators of field %d", fieldID))
		}
		newID = id
		return nil
	})
	return newID, err
}

// CreateField inserts a field with its enum values and validators.
func (s *Store) CreateField(ctx context.Context, field domain.Field) (*domain.Field, error) {
	settings, err := marshalSettings(field.Settings)
	if err != nil {
		return nil, err
	}

	var created *domain.Field
	err = s.InTx(ctx, func(ctx context.Context) error {
		q := s.Queries(ctx)
		row, err := q.InsertField(ctx, sqlc.InsertFieldParams{
			FormID:   field.FormID,
			Code:     field.Code,
			Name:     field.Name,
			Type:     field.Type,
			Sort:     int32(field.Sort),
			Active:   field.Active,
			Required: field.Required,
			Multiple: field.Multiple,
			Settings: settings,
		})
		if err != nil {
			return translate(err, fmt.Sprintf("insert field into form %d", field.FormID))
		}
		f, err := toField(row)
		if err != nil {
			return err
		}

		for _, e := range field.Enums {
			enum, err := q.InsertFieldEnum(ctx, sqlc.InsertFieldEnumParams{
				FieldID:   f.ID,
				Value:     e.Value,
				XmlID:     e.XMLID,
				Sort:      int32(e.Sort),
				IsDefault: e.IsDefault,
			})
			if err != nil {
				return translate(err, fmt.Sprintf("insert enum value of field %d", f.ID))
			}
			f.Enums = append(f.Enums, toEnum(enum))
		}

		for _, v := range field.Validators {
			vs, err := marshalSettings(v.Settings)
			if err != nil {
				return err
			}
			row, err := q.InsertFieldValidator(ctx, sqlc.InsertFieldValidatorParams{
				FieldID:  f.ID,
				Name:     v.Name,
				Settings: vs,
			})
			if err != nil {
				return translate(err, fmt.Sprintf("insert validator of field %d", f.ID))
			}
			val, err := toValidator(row)
			if err != nil {
				return err
			}
			f.Validators = append(f.Validators, val)
		}

		created = f
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// ListFields returns the fields of formID with their enum values and
// validators. activeOnly restricts to active fields in display order
// (sort, id); otherwise every field is returned by id.
func (s *Store) ListFields(ctx context.Context, formID int64, activeOnly bool) ([]domain.Field, error) {
	q := s.Queries(ctx)
	var (
		rows []sqlc.FormField
		err  error
	)
	if activeOnly {
		rows, err = q.ListActiveFieldsByForm(ctx, formID)
	} else {
		rows, err = q.ListFieldsByForm(ctx, formID)
	}
	if err != nil {
		return nil, translate(err, fmt.Sprintf("list fields of form %d", formID))
	}
	if len(rows) == 0 {
		return nil, nil
	}

	ids := make([]int64, len(rows))
	byID := make(map[int64]int, len(rows))
	fields := make([]domain.Field, len(rows))
	for i, r := range rows {
		f, err := toField(r)
		if err != nil {
			return nil, err
		}
		fields[i] = *f
		ids[i] = r.ID
		byID[r.ID] = i
	}

	enums, err := q.ListEnumsByFields(ctx, ids)
	if err != nil {
		return nil, translate(err, fmt.Sprintf("list enum values of form %d", formID))
	}
	for _, e := range enums {
		i := byID[e.FieldID]
		fields[i].Enums = append(fields[i].Enums, toEnum(e))
	}

	validators, err := q.ListValidatorsByFields(ctx, ids)
	if err != nil {
		return nil, translate(err, fmt.Sprintf("list validators of form %d", formID))
	}
	for _, v := range validators {
		val, err := toValidator(v)
		if err != nil {
			return nil, err
		}
		i := byID[v.FieldID]
		fields[i].Validators = append(fields[i].Validators, val)
	}

	return fields, nil
}

func marshalSettings(settings map[string]any) ([]byte, error) {
	if len(settings) == 0 {
		return []byte("{}"), nil
	}
	b, err := json.Marshal(settings)
	if err != nil {
		return nil, fmt.Errorf("marshal settings: %w", err)
	}
	return b, nil
}

func unmarshalSettings(raw []byte) (map[string]any, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}
	if len(m) == 0 {
		return nil, nil
	}
	return m, nil
}

func toField(r sqlc.FormField) (*domain.Field, error) {
	settings, err := unmarshalSettings(r.Settings)
	if err != nil {
		return nil, fmt.Errorf("field %d: %w", r.ID, err)
	}
	return &domain.Field{
		ID:       r.ID,
		FormID:   r.FormID,
		Code:     r.Code,
		Name:     r.Name,
		Type:     r.Type,
		Sort:     int(r.Sort),
		Active:   r.Active,
		Required: r.Required,
		Multiple: r.Multiple,
		Settings: settings,
	}, nil
}

func toEnum(r sqlc.FormFieldEnum) domain.EnumValue {
	return domain.EnumValue{
		ID:        r.ID,
		FieldID:   r.FieldID,
		Value:     r.Value,
		XMLID:     r.XmlID,
		Sort:      int(r.Sort),
		IsDefault: r.IsDefault,
	}
}

func toValidator(r sqlc.FormFieldValidator) (domain.Validator, error) {
	settings, err := unmarshalSettings(r.Settings)
	if err != nil {
		return domain.Validator{}, fmt.Errorf("validator %d: %w", r.ID, err)
	}
	return domain.Validator{
		ID:       r.ID,
		FieldID:  r.FieldID,
		Name:     r.Name,
		Settings: settings,
	}, nil
}
