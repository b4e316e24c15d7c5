package mutation

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/embld/contentcore/store"
)

// IDColumn is the primary key column of every mutable table.
const IDColumn = "id"

var validate = validator.New()

// Schema describes a mutable table.
type Schema struct {
	// Table is the store table.
	Table string

	// OwnerColumn holds the owning principal's id.
	// Default: "user_id"
	OwnerColumn string

	// Fields is the allow-list of caller-writable columns. A rule containing
	// "required" also makes the field mandatory on creation.
	Fields map[string]Field

	// Strict rejects payloads with fields outside the allow-list instead of
	// dropping them.
	Strict bool

	// Tags returns the invalidation tags for a written resource id. Optional.
	Tags func(id string) []string
}

// FieldType is the value type a payload field must carry.
type FieldType int

const (
	TypeString FieldType = iota
	TypeBool
	TypeStringList
)

func (t FieldType) String() string {
	switch t {
	case TypeString:
		return "string"
	case TypeBool:
		return "bool"
	case TypeStringList:
		return "string_list"
	default:
		return "unknown"
	}
}

// Field declares one writable column.
type Field struct {
	Type FieldType

	// Rule holds validator tags applied after the type check ("" for none).
	Rule string
}

// StringField returns a string field validated by rule.
func StringField(rule string) Field { return Field{Type: TypeString, Rule: rule} }

// BoolField returns a boolean field.
func BoolField() Field { return Field{Type: TypeBool} }

// StringListField returns a list-of-strings field validated by rule.
func StringListField(rule string) Field { return Field{Type: TypeStringList, Rule: rule} }

// coerce checks that v has type t and returns it in the form stored and
// validated. JSON lists arrive as []any and become []string.
func (t FieldType) coerce(v any) (any, bool) {
	switch t {
	case TypeString:
		s, ok := v.(string)
		return s, ok
	case TypeBool:
		b, ok := v.(bool)
		return b, ok
	case TypeStringList:
		switch list := v.(type) {
		case []string:
			return list, true
		case []any:
			out := make([]string, 0, len(list))
			for _, item := range list {
				s, ok := item.(string)
				if !ok {
					return nil, false
				}
				out = append(out, s)
			}
			return out, true
		}
	}
	return nil, false
}

// FieldError reports a payload field that failed validation.
type FieldError struct {
	Field string
	Rule  string
}

func (e *FieldError) Error() string {
	if e.Rule == "" {
		return fmt.Sprintf("field %q is not writable", e.Field)
	}
	return fmt.Sprintf("field %q failed %q", e.Field, e.Rule)
}

var errEmptyPatch = errors.New("no writable fields in payload")

// Owner returns the owner column name.
func (s *Schema) Owner() string {
	if s.OwnerColumn == "" {
		return "user_id"
	}
	return s.OwnerColumn
}

// Sanitize returns the allow-listed subset of payload as a store row.
//
// The id and owner columns are never taken from the payload. ownerSupplied
// reports whether the caller tried to set the owner. With creating set,
// required fields must be present.
func (s *Schema) Sanitize(payload map[string]any, creating bool) (row store.Row, ownerSupplied bool, err error) {
	owner := s.Owner()
	row = make(store.Row, len(payload))

	for _, field := range slices.Sorted(maps.Keys(payload)) {
		value := payload[field]
		if field == owner {
			ownerSupplied = true
			continue
		}
		if field == IDColumn {
			continue
		}
		spec, ok := s.Fields[field]
		if !ok {
			if s.Strict {
				return nil, ownerSupplied, &FieldError{Field: field}
			}
			continue
		}
		if value == nil && spec.Type == TypeString {
			// null clears an optional text column.
			if isRequired(spec.Rule) {
				return nil, ownerSupplied, &FieldError{Field: field, Rule: "required"}
			}
			row[field] = nil
			continue
		}
		typed, ok := spec.Type.coerce(value)
		if !ok {
			return nil, ownerSupplied, &FieldError{Field: field, Rule: "type=" + spec.Type.String()}
		}
		if spec.Rule != "" {
			if err := validate.Var(typed, spec.Rule); err != nil {
				return nil, ownerSupplied, fieldError(field, err)
			}
		}
		row[field] = typed
	}

	if creating {
		for _, field := range slices.Sorted(maps.Keys(s.Fields)) {
			if _, present := row[field]; !present && isRequired(s.Fields[field].Rule) {
				return nil, ownerSupplied, &FieldError{Field: field, Rule: "required"}
			}
		}
	} else if len(row) == 0 {
		return nil, ownerSupplied, errEmptyPatch
	}
	return row, ownerSupplied, nil
}

func fieldError(field string, err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		return &FieldError{Field: field, Rule: verrs[0].Tag()}
	}
	return fmt.Errorf("field %q: %w", field, err)
}

func isRequired(rule string) bool {
	for _, part := range strings.Split(rule, ",") {
		if part == "required" {
			return true
		}
	}
	return false
}

// tagsFor returns the union of extra and s.Tags(id), in order.
func (s *Schema) tagsFor(id string, extra []string) []string {
	tags := slices.Clone(extra)
	if s.Tags != nil {
		tags = append(tags, s.Tags(id)...)
	}
	return tags
}
