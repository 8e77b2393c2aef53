package domain

import "time"

// Field is one input of a form. Settings are type specific and opaque to the
// lifecycle code.
type Field struct {
	ID         int64          `json:"id"`
	FormID     int64          `json:"form_id"`
	Code       string         `json:"code"`
	Name       string         `json:"name"`
	Type       string         `json:"type"`
	Sort       int            `json:"sort"`
	Active     bool           `json:"active"`
	Required   bool           `json:"required"`
	Multiple   bool           `json:"multiple"`
	Settings   map[string]any `json:"settings,omitempty"`
	Enums      []EnumValue    `json:"enums,omitempty"`
	Validators []Validator    `json:"validators,omitempty"`
}

type EnumValue struct {
	ID        int64  `json:"id"`
	FieldID   int64  `json:"field_id"`
	Value     string `json:"value"`
	XMLID     string `json:"xml_id"`
	Sort      int    `json:"sort"`
	IsDefault bool   `json:"is_default"`
}

type Validator struct {
	ID       int64          `json:"id"`
	FieldID  int64          `json:"field_id"`
	Name     string         `json:"name"`
	Settings map[string]any `json:"settings,omitempty"`
}

// FieldOverrides are applied to a field copy.
type FieldOverrides struct {
	FormID int64
}

// FormDefinition is a published form with its active fields, in display order.
type FormDefinition struct {
	Form   Form    `json:"form"`
	Fields []Field `json:"fields"`
}

// Result is one submission of a form.
type Result struct {
	ID         int64         `json:"id"`
	FormID     int64         `json:"form_id"`
	UserID     *int64        `json:"user_id,omitempty"`
	DateCreate time.Time     `json:"date_create"`
	Values     []ResultValue `json:"values"`
}

type ResultValue struct {
	ID       int64  `json:"id"`
	ResultID int64  `json:"result_id"`
	FieldID  int64  `json:"field_id"`
	Value    string `json:"value"`
}
