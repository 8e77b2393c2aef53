package domain

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Status is the lifecycle state of a form.
type Status int16

const (
	StatusEditing   Status = 1
	StatusPublished Status = 2
	StatusArchived  Status = 3
)

var statusNames = map[Status]string{
	StatusEditing:   "EDITING",
	StatusPublished: "PUBLISHED",
	StatusArchived:  "ARCHIVED",
}

// statusTitles are the labels shown in the form options list.
var statusTitles = map[Status]string{
	StatusEditing:   "Editing",
	StatusPublished: "Published",
	StatusArchived:  "Archived",
}

func (s Status) IsValid() bool {
	_, ok := statusNames[s]
	return ok
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return "UNKNOWN(" + strconv.Itoa(int(s)) + ")"
}

// Title is the human readable status name.
func (s Status) Title() string {
	if title, ok := statusTitles[s]; ok {
		return title
	}
	return s.String()
}

// ParseStatus accepts a status name (case-insensitive) or its numeric code.
func ParseStatus(raw string) (Status, error) {
	raw = strings.TrimSpace(raw)
	if n, err := strconv.Atoi(raw); err == nil {
		s := Status(n)
		if !s.IsValid() {
			return 0, fmt.Errorf("unknown form status %d", n)
		}
		return s, nil
	}
	for s, name := range statusNames {
		if strings.EqualFold(name, raw) {
			return s, nil
		}
	}
	return 0, fmt.Errorf("unknown form status %q", raw)
}

func (s Status) MarshalJSON() ([]byte, error) {
	if !s.IsValid() {
		return nil, fmt.Errorf("marshal form status: unknown value %d", s)
	}
	return json.Marshal(s.String())
}

func (s *Status) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	var text string
	switch v := raw.(type) {
	case string:
		text = v
	case float64:
		text = strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Errorf("form status must be a string or number, got %s", data)
	}
	parsed, err := ParseStatus(text)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// VersionChain lists the ids of the earlier versions a form was forked from,
// oldest first.
type VersionChain []int64

// ParseVersionChain decodes the persisted "1,2,3" form. An empty string is an
// empty chain.
func ParseVersionChain(raw string) (VersionChain, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	parts := strings.Split(raw, ",")
	chain := make(VersionChain, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		id, err := strconv.ParseInt(p, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parse version chain %q: %w", raw, err)
		}
		chain = append(chain, id)
	}
	return chain, nil
}

func (c VersionChain) String() string {
	parts := make([]string, len(c))
	for i, id := range c {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return strings.Join(parts, ",")
}

// Append returns a new chain with id added at the end. The receiver is not
// modified.
func (c VersionChain) Append(id int64) VersionChain {
	out := make(VersionChain, len(c), len(c)+1)
	copy(out, c)
	return append(out, id)
}

// FormAttributes are the user-editable attributes of a form.
type FormAttributes struct {
	Code             string       `json:"code"`
	XMLID            *string      `json:"xml_id,omitempty"`
	Name             string       `json:"name"`
	Status           Status       `json:"status"`
	Active           bool         `json:"active"`
	PreviousVersions VersionChain `json:"previous_versions"`
	DateCreate       time.Time    `json:"date_create"`
}

// Form is a persisted form row.
type Form struct {
	ID int64 `json:"id"`
	FormAttributes
	IsSync    bool `json:"is_sync"`
	IsDeleted bool `json:"is_deleted"`
}

// SupportRecord returns the projection kept in support_form for f.
func (f *Form) SupportRecord() SupportRecord {
	return SupportRecord{
		FormID:     f.ID,
		Code:       f.Code,
		Name:       f.Name,
		Status:     f.Status,
		Active:     f.Active && f.Status == StatusPublished && !f.IsDeleted,
		DateCreate: f.DateCreate,
	}
}

// SupportRecord is the denormalized copy of a form read by other modules.
// Active is true only for an active published form that is not deleted.
type SupportRecord struct {
	FormID     int64     `json:"form_id"`
	Code       string    `json:"code"`
	Name       string    `json:"name"`
	Status     Status    `json:"status"`
	Active     bool      `json:"active"`
	DateCreate time.Time `json:"date_create"`
}

// FormPatch is a partial update. A nil field is not supplied. A supplied
// XMLID of "" clears it.
type FormPatch struct {
	Code             *string       `json:"code,omitempty"`
	XMLID            *string       `json:"xml_id,omitempty"`
	Name             *string       `json:"name,omitempty"`
	Status           *Status       `json:"status,omitempty"`
	Active           *bool         `json:"active,omitempty"`
	PreviousVersions *VersionChain `json:"previous_versions,omitempty"`
	DateCreate       *time.Time    `json:"date_create,omitempty"`
	IsSync           *bool         `json:"-"`
	IsDeleted        *bool         `json:"-"`
}

// PatchFromAttributes supplies every attribute of a.
func PatchFromAttributes(a FormAttributes) FormPatch {
	xmlID := ""
	if a.XMLID != nil {
		xmlID = *a.XMLID
	}
	chain := append(VersionChain(nil), a.PreviousVersions...)
	return FormPatch{
		Code:             &a.Code,
		XMLID:            &xmlID,
		Name:             &a.Name,
		Status:           &a.Status,
		Active:           &a.Active,
		PreviousVersions: &chain,
		DateCreate:       &a.DateCreate,
	}
}

// TouchesSupport reports whether p supplies an attribute mirrored into the
// support record.
func (p FormPatch) TouchesSupport() bool {
	return p.Code != nil || p.Name != nil || p.Status != nil || p.Active != nil || p.DateCreate != nil
}

func (p FormPatch) IsEmpty() bool {
	return !p.TouchesSupport() && p.XMLID == nil && p.PreviousVersions == nil &&
		p.IsSync == nil && p.IsDeleted == nil
}

// ApplyTo returns a with every supplied attribute of p replaced.
func (p FormPatch) ApplyTo(a FormAttributes) FormAttributes {
	if p.Code != nil {
		a.Code = *p.Code
	}
	if p.XMLID != nil {
		a.XMLID = NormalizeXMLID(p.XMLID)
	}
	if p.Name != nil {
		a.Name = *p.Name
	}
	if p.Status != nil {
		a.Status = *p.Status
	}
	if p.Active != nil {
		a.Active = *p.Active
	}
	if p.PreviousVersions != nil {
		a.PreviousVersions = append(VersionChain(nil), (*p.PreviousVersions)...)
	}
	if p.DateCreate != nil {
		a.DateCreate = p.DateCreate.UTC()
	}
	return a
}

// Merge layers o over p: attributes supplied by o win.
func (p FormPatch) Merge(o FormPatch) FormPatch {
	if o.Code != nil {
		p.Code = o.Code
	}
	if o.XMLID != nil {
		p.XMLID = o.XMLID
	}
	if o.Name != nil {
		p.Name = o.Name
	}
	if o.Status != nil {
		p.Status = o.Status
	}
	if o.Active != nil {
		p.Active = o.Active
	}
	if o.PreviousVersions != nil {
		p.PreviousVersions = o.PreviousVersions
	}
	if o.DateCreate != nil {
		p.DateCreate = o.DateCreate
	}
	if o.IsSync != nil {
		p.IsSync = o.IsSync
	}
	if o.IsDeleted != nil {
		p.IsDeleted = o.IsDeleted
	}
	return p
}

// NormalizeXMLID maps an empty external id to nil.
func NormalizeXMLID(v *string) *string {
	if v == nil || strings.TrimSpace(*v) == "" {
		return nil
	}
	s := strings.TrimSpace(*v)
	return &s
}

// TimestampedCode prefixes code with the unix time of t. Archived versions
// and fresh forks carry such codes so the plain code stays free for the
// published version.
func TimestampedCode(t time.Time, code string) string {
	return strconv.FormatInt(t.Unix(), 10) + "_" + code
}

// DeleteOutcome reports how a delete completed. SoftDeleted means the row
// could not be removed together with its support record and was flagged
// for the sync job instead.
type DeleteOutcome struct {
	FormID      int64 `json:"form_id"`
	SoftDeleted bool  `json:"soft_deleted"`
}

// FormFilter selects forms for the admin list.
type FormFilter struct {
	Status         *Status
	NameContains   string
	IsSync         *bool
	IncludeDeleted bool
	Limit          int
	Offset         int
}

// SupportOption is one entry of the form selector.
type SupportOption struct {
	FormID int64  `json:"form_id"`
	Label  string `json:"label"`
}

// Ptr returns a pointer to v. Handy for building patches.
func Ptr[T any](v T) *T {
	return &v
}
