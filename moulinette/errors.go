package moulinette

import (
	"errors"
	"sort"
	"strings"
)

var (
	// ErrInvalidInput reports malformed project parameters. Field-level
	// details travel in FieldErrors.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNoConfig reports that no configuration applies to the department
	// at the evaluation date.
	ErrNoConfig = errors.New("no applicable configuration")

	// ErrCriterionOrder reports a cross-criterion read before the producer
	// criterion ran. This is a programming error in criterion weights or
	// declared dependencies.
	ErrCriterionOrder = errors.New("criterion must be evaluated first")
)

// FieldErrors collects per-field validation messages instead of aborting
// on the first bad field. It is an error itself: Evaluate returns the
// mapping directly, so callers recover it with errors.As and can render
// each field's messages, while errors.Is(err, ErrInvalidInput) keeps
// working through Unwrap.
type FieldErrors map[string][]string

// Add appends a message for a field.
func (fe FieldErrors) Add(field, message string) {
	fe[field] = append(fe[field], message)
}

// Empty reports whether any field has a message.
func (fe FieldErrors) Empty() bool { return len(fe) == 0 }

func (fe FieldErrors) Error() string {
	fields := make([]string, 0, len(fe))
	for f := range fe {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	var b strings.Builder
	b.WriteString(ErrInvalidInput.Error())
	for i, f := range fields {
		if i == 0 {
			b.WriteString(": ")
		} else {
			b.WriteString("; ")
		}
		b.WriteString(f)
		b.WriteString(": ")
		b.WriteString(strings.Join(fe[f], ", "))
	}
	return b.String()
}

func (fe FieldErrors) Unwrap() error { return ErrInvalidInput }
