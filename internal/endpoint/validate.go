package endpoint

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"swh-client/internal/shared"
	"swh-client/pkg/swhid"
)

// DefaultMaxURLLength bounds origin URLs.
const DefaultMaxURLLength = 255

// sha1_git hash, optionally followed by a path suffix.
var hashPathRe = regexp.MustCompile(`(?i)^[a-f0-9]{40}(?:/\??\S*)?$`)

// ValidationError reports a leading parameter that does not match its endpoint's kind.
type ValidationError struct {
	Endpoint string
	Kind     Kind
	Value    string
	// Rule is the failing check: required, url, max, sha1_git, kind or swhid.
	Rule string
	// Expected is a human readable description of the accepted format.
	Expected string
	Err      error
}

func (e *ValidationError) Error() string {
	msg := fmt.Sprintf("endpoint %q expects %s (%s): %q", e.Endpoint, e.Kind, e.Rule, e.Value)
	if e.Expected != "" {
		msg += ", expected " + e.Expected
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ValidationError) Unwrap() error { return e.Err }

// Validator checks parameter values against endpoint kinds.
type Validator struct {
	v            *validator.Validate
	maxURLLength int
	urlTag       string
	log          *slog.Logger
}

// ValidatorOption configures Validator.
type ValidatorOption func(*Validator)

// WithMaxURLLength overrides the maximum accepted URL length.
func WithMaxURLLength(n int) ValidatorOption {
	return func(v *Validator) {
		if n > 0 {
			v.maxURLLength = n
		}
	}
}

// WithValidatorLogger sets the logger used for advisory notes.
func WithValidatorLogger(l *slog.Logger) ValidatorOption {
	return func(v *Validator) {
		if l != nil {
			v.log = l
		}
	}
}

// NewValidator creates a Validator with the sha1_git tag registered.
func NewValidator(opts ...ValidatorOption) *Validator {
	val := &Validator{
		v:            validator.New(validator.WithRequiredStructEnabled()),
		maxURLLength: DefaultMaxURLLength,
		log:          slog.Default(),
	}
	for _, o := range opts {
		o(val)
	}
	mustRegister(val.v, "sha1_git", func(fl validator.FieldLevel) bool {
		return hashPathRe.MatchString(fl.Field().String())
	})
	val.urlTag = fmt.Sprintf("required,url,max=%d", val.maxURLLength)
	return val
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("endpoint: register %s validation: %v", tag, err))
	}
}

// MaxURLLength returns the configured URL bound.
func (val *Validator) MaxURLLength() int { return val.maxURLLength }

// Validate checks params against d. Only the first failing rule is reported.
func (val *Validator) Validate(ctx context.Context, d Descriptor, params []any) error {
	if n := d.Placeholders(); len(params) != n {
		return shared.Errorf(shared.KindCaller, "endpoint %q takes %d parameter(s), got %d", d.Name, n, len(params))
	}
	for i, p := range params {
		if _, ok := Render(p); !ok {
			return shared.Errorf(shared.KindCaller, "endpoint %q parameter %d: unsupported type %T", d.Name, i+1, p)
		}
	}
	if len(params) == 0 {
		return nil
	}

	first := params[0]
	if d.Kind == KindInteger {
		if !isInt(first) {
			return shared.Errorf(shared.KindCaller, "endpoint %q expects an integer, got %T", d.Name, first)
		}
		return nil
	}

	s, ok := first.(string)
	if !ok {
		return shared.Errorf(shared.KindCaller, "endpoint %q expects a string %s, got %T", d.Name, d.Kind, first)
	}

	var err *ValidationError
	switch d.Kind {
	case KindURL:
		err = val.checkURL(d, s)
	case KindHash40:
		err = val.checkHash(d, s)
	case KindIdentifier:
		err = val.checkIdentifier(d, s)
	default:
		return shared.Errorf(shared.KindCaller, "endpoint %q has unknown kind %d", d.Name, d.Kind)
	}
	if err != nil {
		val.advise(ctx, d, s)
		return shared.MarkKind(err, shared.KindValidation)
	}
	return nil
}

func (val *Validator) checkURL(d Descriptor, s string) *ValidationError {
	if val.looksHash(s) {
		return &ValidationError{Endpoint: d.Name, Kind: d.Kind, Value: s, Rule: "kind",
			Expected: "an origin URL, got a sha1_git hash"}
	}
	if looksSWHID(s) {
		return &ValidationError{Endpoint: d.Name, Kind: d.Kind, Value: s, Rule: "kind",
			Expected: "an origin URL, got an identifier"}
	}
	if err := val.v.Var(s, val.urlTag); err != nil {
		rule := failedTag(err)
		ve := &ValidationError{Endpoint: d.Name, Kind: d.Kind, Value: s, Rule: rule}
		switch rule {
		case "max":
			ve.Expected = fmt.Sprintf("at most %d characters", val.maxURLLength)
		case "required":
			ve.Expected = "a non-empty URL"
		default:
			ve.Expected = "an absolute URL"
		}
		return ve
	}
	return nil
}

func (val *Validator) checkHash(d Descriptor, s string) *ValidationError {
	if val.looksURL(s) {
		return &ValidationError{Endpoint: d.Name, Kind: d.Kind, Value: s, Rule: "kind",
			Expected: "a sha1_git hash, got a URL"}
	}
	if err := val.v.Var(s, "required,sha1_git"); err != nil {
		return &ValidationError{Endpoint: d.Name, Kind: d.Kind, Value: s, Rule: failedTag(err),
			Expected: "40 hexadecimal digits"}
	}
	return nil
}

func (val *Validator) checkIdentifier(d Descriptor, s string) *ValidationError {
	core, _, _ := strings.Cut(s, ";")
	if _, err := swhid.Parse(core); err != nil {
		return &ValidationError{Endpoint: d.Name, Kind: d.Kind, Value: s, Rule: "swhid",
			Expected: swhid.Format, Err: err}
	}
	return nil
}

// advise logs which other kind the rejected value would satisfy.
func (val *Validator) advise(ctx context.Context, d Descriptor, s string) {
	var plausible []string
	if d.Kind != KindURL && val.looksURL(s) {
		plausible = append(plausible, KindURL.String())
	}
	if d.Kind != KindHash40 && val.looksHash(s) {
		plausible = append(plausible, KindHash40.String())
	}
	if d.Kind != KindIdentifier && looksSWHID(s) {
		plausible = append(plausible, KindIdentifier.String())
	}
	if _, err := strconv.Atoi(s); err == nil {
		plausible = append(plausible, KindInteger.String())
	}
	if len(plausible) == 0 {
		return
	}
	val.log.DebugContext(ctx, "parameter matches another kind",
		slog.String("endpoint", d.Name),
		slog.String("expected", d.Kind.String()),
		slog.Any("plausible", plausible))
}

func (val *Validator) looksURL(s string) bool {
	return !looksSWHID(s) && val.v.Var(s, "required,url") == nil
}

func (val *Validator) looksHash(s string) bool {
	return val.v.Var(s, "required,sha1_git") == nil
}

func looksSWHID(s string) bool {
	core, _, _ := strings.Cut(s, ";")
	_, err := swhid.Parse(core)
	return err == nil
}

func failedTag(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		return verrs[0].Tag()
	}
	return "invalid"
}

func isInt(v any) bool {
	switch v.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return true
	}
	return false
}

// Render converts a parameter into its path form. Only strings and integers are accepted.
func Render(v any) (string, bool) {
	switch x := v.(type) {
	case string:
		return x, true
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return fmt.Sprint(x), true
	}
	return "", false
}
