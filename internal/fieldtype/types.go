package fieldtype

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	String    = "string"
	Text      = "text"
	Number    = "number"
	Boolean   = "boolean"
	List      = "list"
	Email     = "email"
	Date      = "date"
	TextBlock = "text_block"
)

func builtInTypes() []Type {
	return []Type{
		stringType{name: String},
		stringType{name: Text, keepNewlines: true},
		numberType{},
		booleanType{},
		listType{},
		emailType{},
		dateType{},
		textBlockType{},
	}
}

type stringType struct {
	name         string
	keepNewlines bool
}

func (t stringType) Name() string       { return t.name }
func (t stringType) SupportsEnum() bool { return false }

func (t stringType) NormalizeFromRequest(raw any) (string, bool, error) {
	s, err := scalarString(raw)
	if err != nil {
		return "", false, err
	}
	s = strings.TrimSpace(s)
	if !t.keepNewlines {
		s = strings.Join(strings.Fields(s), " ")
	}
	return s, s != "", nil
}

type numberType struct{}

func (numberType) Name() string       { return Number }
func (numberType) SupportsEnum() bool { return false }

func (numberType) NormalizeFromRequest(raw any) (string, bool, error) {
	var f float64
	switch v := raw.(type) {
	case float64:
		f = v
	case int:
		f = float64(v)
	case int64:
		f = float64(v)
	case json.Number:
		parsed, err := v.Float64()
		if err != nil {
			return "", false, fmt.Errorf("%q is not a number", v)
		}
		f = parsed
	case string:
		s := strings.ReplaceAll(strings.TrimSpace(v), ",", ".")
		if s == "" {
			return "", false, nil
		}
		parsed, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return "", false, fmt.Errorf("%q is not a number", v)
		}
		f = parsed
	default:
		return "", false, fmt.Errorf("unsupported number value %T", raw)
	}
	return strconv.FormatFloat(f, 'f', -1, 64), true, nil
}

// booleanType stores Y or N.
type booleanType struct{}

func (booleanType) Name() string       { return Boolean }
func (booleanType) SupportsEnum() bool { return false }

func (booleanType) NormalizeFromRequest(raw any) (string, bool, error) {
	switch v := raw.(type) {
	case bool:
		return yn(v), true, nil
	case float64:
		return yn(v != 0), true, nil
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "y", "yes", "true", "1", "on":
			return "Y", true, nil
		case "n", "no", "false", "0", "off", "":
			return "N", true, nil
		}
		return "", false, fmt.Errorf("%q is not a boolean", v)
	default:
		return "", false, fmt.Errorf("unsupported boolean value %T", raw)
	}
}

func yn(b bool) string {
	if b {
		return "Y"
	}
	return "N"
}

// listType stores the chosen enum value id.
type listType struct{}

func (listType) Name() string       { return List }
func (listType) SupportsEnum() bool { return true }

func (listType) NormalizeFromRequest(raw any) (string, bool, error) {
	s, err := scalarString(raw)
	if err != nil {
		return "", false, err
	}
	s = strings.TrimSpace(s)
	return s, s != "", nil
}

type emailType struct{}

func (emailType) Name() string       { return Email }
func (emailType) SupportsEnum() bool { return false }

func (emailType) NormalizeFromRequest(raw any) (string, bool, error) {
	s, err := scalarString(raw)
	if err != nil {
		return "", false, err
	}
	s = strings.TrimSpace(s)
	return s, s != "", nil
}

var dateLayouts = []string{"2006-01-02", "02.01.2006", time.RFC3339}

// dateType stores dates as YYYY-MM-DD.
type dateType struct{}

func (dateType) Name() string       { return Date }
func (dateType) SupportsEnum() bool { return false }

func (dateType) NormalizeFromRequest(raw any) (string, bool, error) {
	s, err := scalarString(raw)
	if err != nil {
		return "", false, err
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false, nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("2006-01-02"), true, nil
		}
	}
	return "", false, fmt.Errorf("%q is not a date", s)
}

// textBlockType is static text shown on the form; it never has a value.
type textBlockType struct{}

func (textBlockType) Name() string       { return TextBlock }
func (textBlockType) SupportsEnum() bool { return false }

func (textBlockType) NormalizeFromRequest(any) (string, bool, error) {
	return "", false, nil
}

func scalarString(raw any) (string, error) {
	switch v := raw.(type) {
	case string:
		return v, nil
	case json.Number:
		return v.String(), nil
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	case int:
		return strconv.Itoa(v), nil
	case int64:
		return strconv.FormatInt(v, 10), nil
	case bool:
		return strconv.FormatBool(v), nil
	default:
		return "", fmt.Errorf("unsupported value %T", raw)
	}
}
