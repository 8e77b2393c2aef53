package sqlc

import (
	"github.com/jackc/pgx/v5/pgtype"
)

type Form struct {
	ID               int64              `json:"id"`
	Code             string             `json:"code"`
	XmlID            pgtype.Text        `json:"xml_id"`
	Name             string             `json:"name"`
	Status           int16              `json:"status"`
	Active           bool               `json:"active"`
	PreviousVersions string             `json:"previous_versions"`
	IsSync           bool               `json:"is_sync"`
	IsDeleted        bool               `json:"is_deleted"`
	DateCreate       pgtype.Timestamptz `json:"date_create"`
}

type SupportForm struct {
	FormID     int64              `json:"form_id"`
	Code       string             `json:"code"`
	Name       string             `json:"name"`
	Status     int16              `json:"status"`
	Active     bool               `json:"active"`
	DateCreate pgtype.Timestamptz `json:"date_create"`
}

type FormField struct {
	ID       int64  `json:"id"`
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

type FormFieldEnum struct {
	ID        int64  `json:"id"`
	FieldID   int64  `json:"field_id"`
	Value     string `json:"value"`
	XmlID     string `json:"xml_id"`
	Sort      int32  `json:"sort"`
	IsDefault bool   `json:"is_default"`
}

type FormFieldValidator struct {
	ID       int64  `json:"id"`
	FieldID  int64  `json:"field_id"`
	Name     string `json:"name"`
	Settings []byte `json:"settings"`
}

type FormResult struct {
	ID         int64              `json:"id"`
	FormID     int64              `json:"form_id"`
	UserID     pgtype.Int8        `json:"user_id"`
	DateCreate pgtype.Timestamptz `json:"date_create"`
}

type FormResultValue struct {
	ID       int64  `json:"id"`
	ResultID int64  `json:"result_id"`
	FieldID  int64  `json:"field_id"`
	Value    string `json:"value"`
}

type FormAuditLog struct {
	ID        string             `json:"id"`
	Action    string             `json:"action"`
	FormID    int64              `json:"form_id"`
	Actor     string             `json:"actor"`
	Details   []byte             `json:"details"`
	CreatedAt pgtype.Timestamptz `json:"created_at"`
}
