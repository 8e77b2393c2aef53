package main

import (
	"context"
	"fmt"
	"io"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"formbuilder.io/formbuilder/internal/domain"
	apperrors "formbuilder.io/formbuilder/internal/pkg/errors"
	"formbuilder.io/formbuilder/internal/pkg/logger"
	"formbuilder.io/formbuilder/internal/service"
)

// Fixture is the seed file layout.
type Fixture struct {
	Forms []FormFixture `yaml:"forms"`
}

type FormFixture struct {
	Code   string         `yaml:"code"`
	XMLID  string         `yaml:"xml_id"`
	Name   string         `yaml:"name"`
	Status string         `yaml:"status"`
	Active *bool          `yaml:"active"`
	Fields []FieldFixture `yaml:"fields"`
}

type FieldFixture struct {
	Code       string             `yaml:"code"`
	Name       string             `yaml:"name"`
	Type       string             `yaml:"type"`
	Sort       int                `yaml:"sort"`
	Inactive   bool               `yaml:"inactive"`
	Required   bool               `yaml:"required"`
	Multiple   bool               `yaml:"multiple"`
	Settings   map[string]any     `yaml:"settings"`
	Enums      []string           `yaml:"enums"`
	Validators []ValidatorFixture `yaml:"validators"`
}

type ValidatorFixture struct {
	Name     string         `yaml:"name"`
	Settings map[string]any `yaml:"settings"`
}

// SeedReport counts what Apply did.
type SeedReport struct {
	Forms   int
	Fields  int
	Skipped int
}

// LoadFixture decodes and checks a fixture. Unknown keys are rejected.
func LoadFixture(r io.Reader) (*Fixture, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var f Fixture
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("decode fixture: %w", err)
	}
	for i, form := range f.Forms {
		if form.Code == "" || form.Name == "" {
			return nil, fmt.Errorf("forms[%d]: code and name are required", i)
		}
		if form.Status != "" {
			status, err := domain.ParseStatus(form.Status)
			if err != nil {
				return nil, fmt.Errorf("forms[%d]: %w", i, err)
			}
			if status == domain.StatusArchived {
				return nil, fmt.Errorf("forms[%d]: archived forms cannot be seeded", i)
			}
		}
	}
	return &f, nil
}

func (ff FormFixture) attributes() domain.FormAttributes {
	attrs := domain.FormAttributes{
		Code:   ff.Code,
		Name:   ff.Name,
		Status: domain.StatusEditing,
		Active: true,
	}
	if ff.XMLID != "" {
		attrs.XMLID = domain.Ptr(ff.XMLID)
	}
	if ff.Status != "" {
		attrs.Status, _ = domain.ParseStatus(ff.Status)
	}
	if ff.Active != nil {
		attrs.Active = *ff.Active
	}
	return attrs
}

func (ff FieldFixture) field() domain.Field {
	f := domain.Field{
		Code:     ff.Code,
		Name:     ff.Name,
		Type:     ff.Type,
		Sort:     ff.Sort,
		Active:   !ff.Inactive,
		Required: ff.Required,
		Multiple: ff.Multiple,
		Settings: ff.Settings,
	}
	if f.Sort == 0 {
		f.Sort = 500
	}
	for i, v := range ff.Enums {
		f.Enums = append(f.Enums, domain.EnumValue{Value: v, Sort: (i + 1) * 10})
	}
	for _, v := range ff.Validators {
		f.Validators = append(f.Validators, domain.Validator{Name: v.Name, Settings: v.Settings})
	}
	return f
}

// Apply creates every form of the fixture with its fields. Forms are built
// while editing and published last. Forms whose code is already taken are
// skipped, so seeding twice is harmless.
func (f *Fixture) Apply(ctx context.Context, forms *service.FormService) (SeedReport, error) {
	var report SeedReport
	for _, ff := range f.Forms {
		attrs := ff.attributes()
		target := attrs.Status
		attrs.Status = domain.StatusEditing

		form, err := forms.Create(ctx, attrs)
		if err != nil {
			if appErr, ok := apperrors.IsAppError(err); ok && appErr.Code == apperrors.CodeFormCodeTaken {
				logger.Info("seed: form exists, skipped", zap.String("code", ff.Code))
				report.Skipped++
				continue
			}
			return report, fmt.Errorf("seed form %q: %w", ff.Code, err)
		}
		report.Forms++

		for _, fld := range ff.Fields {
			if _, err := forms.AddField(ctx, form.ID, fld.field()); err != nil {
				return report, fmt.Errorf("seed field %q of form %q: %w", fld.Code, ff.Code, err)
			}
			report.Fields++
		}

		if target != domain.StatusEditing {
			attrs = form.FormAttributes
			attrs.Status = target
			if _, err := forms.Save(ctx, form.ID, attrs); err != nil {
				return report, fmt.Errorf("publish form %q: %w", ff.Code, err)
			}
		}
	}
	return report, nil
}
