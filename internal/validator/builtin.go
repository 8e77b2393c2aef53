package validator

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"unicode/utf8"

	playground "github.com/go-playground/validator/v10"
)

const (
	Length      = "length"
	Regexp      = "regexp"
	NumberRange = "number_range"
	Email       = "email"
)

func builtInFactories() map[string]Factory {
	return map[string]Factory{
		Length:      newLength,
		Regexp:      newRegexp,
		NumberRange: newNumberRange,
		Email:       newEmail,
	}
}

type lengthValidator struct {
	min, max *float64
}

func newLength(settings map[string]any) (Validator, error) {
	min, err := numberSetting(settings, "min")
	if err != nil {
		return nil, err
	}
	max, err := numberSetting(settings, "max")
	if err != nil {
		return nil, err
	}
	if min != nil && max != nil && *min > *max {
		return nil, fmt.Errorf("min %v is greater than max %v", *min, *max)
	}
	return lengthValidator{min: min, max: max}, nil
}

func (v lengthValidator) Validate(_ context.Context, _, _ int64, values []string) Result {
	var res Result
	for _, s := range values {
		n := float64(utf8.RuneCountInString(s))
		if v.min != nil && n < *v.min {
			res.addf("value must be at least %v characters long", *v.min)
		}
		if v.max != nil && n > *v.max {
			res.addf("value must be at most %v characters long", *v.max)
		}
	}
	return res
}

type regexpValidator struct {
	re      *regexp.Regexp
	message string
}

func newRegexp(settings map[string]any) (Validator, error) {
	pattern, _ := settings["pattern"].(string)
	if pattern == "" {
		return nil, fmt.Errorf("pattern is required")
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("compile pattern: %w", err)
	}
	message, _ := settings["message"].(string)
	if message == "" {
		message = "value has an invalid format"
	}
	return regexpValidator{re: re, message: message}, nil
}

func (v regexpValidator) Validate(_ context.Context, _, _ int64, values []string) Result {
	var res Result
	for _, s := range values {
		if !v.re.MatchString(s) {
			res.addf("%s", v.message)
		}
	}
	return res
}

type numberRangeValidator struct {
	min, max *float64
}

func newNumberRange(settings map[string]any) (Validator, error) {
	min, err := numberSetting(settings, "min")
	if err != nil {
		return nil, err
	}
	max, err := numberSetting(settings, "max")
	if err != nil {
		return nil, err
	}
	if min != nil && max != nil && *min > *max {
		return nil, fmt.Errorf("min %v is greater than max %v", *min, *max)
	}
	return numberRangeValidator{min: min, max: max}, nil
}

func (v numberRangeValidator) Validate(_ context.Context, _, _ int64, values []string) Result {
	var res Result
	for _, s := range values {
		n, err := strconv.ParseFloat(s, 64)
		if err != nil {
			res.addf("%q is not a number", s)
			continue
		}
		if v.min != nil && n < *v.min {
			res.addf("value must be at least %v", *v.min)
		}
		if v.max != nil && n > *v.max {
			res.addf("value must be at most %v", *v.max)
		}
	}
	return res
}

type emailValidator struct {
	validate *playground.Validate
}

func newEmail(map[string]any) (Validator, error) {
	return emailValidator{validate: playground.New()}, nil
}

func (v emailValidator) Validate(_ context.Context, _, _ int64, values []string) Result {
	var res Result
	for _, s := range values {
		if err := v.validate.Var(s, "required,email"); err != nil {
			res.addf("%q is not a valid email address", s)
		}
	}
	return res
}

// numberSetting reads an optional numeric setting. JSON numbers arrive as
// float64, form posts as strings.
func numberSetting(settings map[string]any, key string) (*float64, error) {
	raw, ok := settings[key]
	if !ok || raw == nil || raw == "" {
		return nil, nil
	}
	switch v := raw.(type) {
	case float64:
		return &v, nil
	case int:
		f := float64(v)
		return &f, nil
	case string:
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, fmt.Errorf("%s: %q is not a number", key, v)
		}
		return &f, nil
	default:
		return nil, fmt.Errorf("%s: unsupported value %T", key, raw)
	}
}
