package content

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gosimple/slug"
)

type FieldType int

const (
	TypeString FieldType = iota
	TypeText
	TypeInt
	TypeBool
	TypeStringList
	TypeArray
	TypeObject
)

func (t FieldType) String() string {
	switch t {
	case TypeString, TypeText:
		return "string"
	case TypeInt:
		return "integer"
	case TypeBool:
		return "boolean"
	case TypeStringList:
		return "array of strings"
	case TypeArray:
		return "array"
	case TypeObject:
		return "object"
	default:
		return "unknown"
	}
}

// Field describes one payload key. Rules use validator tag syntax; they
// are applied after the type check.
type Field struct {
	Name  string
	Type  FieldType
	Rules string
}

func (f Field) Required() bool {
	for _, r := range strings.Split(f.Rules, ",") {
		if r == "required" {
			return true
		}
	}
	return false
}

type Schema struct {
	Kind   Kind
	Label  string
	Fields []Field
	// SlugFrom names the field a slug is derived from when none is given.
	SlugFrom string
}

// core fields shared by every kind.
var coreFields = []Field{
	{Name: "slug", Type: TypeString, Rules: "slug,max=160"},
	{Name: "status", Type: TypeString, Rules: "oneof=draft published"},
	{Name: "position", Type: TypeInt, Rules: "min=0,max=100000"},
}

// Input is a validated payload ready to be applied to a record.
type Input struct {
	Slug     *string
	Status   *string
	Position *int
	Fields   map[string]any
}

type Violation struct {
	Field string
	Rule  string
	Param string
}

type ValidationError struct {
	Violations []Violation
}

func (e *ValidationError) Error() string {
	if len(e.Violations) == 0 {
		return "validation failed"
	}
	v := e.Violations[0]
	return fmt.Sprintf("%s failed %s validation", v.Field, v.Rule)
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("slug", func(fl validator.FieldLevel) bool {
		return slug.IsSlug(fl.Field().String())
	})
	return v
}

// Parse checks body against the schema. With partial set, required rules
// are dropped so a subset of fields can be sent. Keys outside the schema
// are kept as opaque payload.
func (s Schema) Parse(body map[string]any, partial bool) (Input, error) {
	in := Input{Fields: map[string]any{}}

	fields := append(append([]Field{}, coreFields...), s.Fields...)

	values := make(map[string]any, len(fields))
	rules := make(map[string]any, len(fields))
	var violations []Violation

	for _, f := range fields {
		raw, present := body[f.Name]

		if present && raw == nil {
			switch {
			case partial && f.Required():
				violations = append(violations, Violation{Field: f.Name, Rule: "required"})
				continue
			case partial:
				if !IsReserved(f.Name) {
					in.Fields[f.Name] = nil
				}
				continue
			}
			present = false
		}

		// a blank slug means "derive one"
		if present && f.Name == "slug" {
			if sv, ok := raw.(string); ok && strings.TrimSpace(sv) == "" {
				present = false
			}
		}

		if present {
			v, ok := coerce(f.Type, raw)
			if !ok {
				violations = append(violations, Violation{Field: f.Name, Rule: "type", Param: f.Type.String()})
				continue
			}
			values[f.Name] = v
		} else if partial {
			continue
		}

		if r := ruleFor(f, partial); r != "" {
			rules[f.Name] = r
		}
	}

	for field, err := range validate.ValidateMap(values, rules) {
		violations = append(violations, violationFrom(field, err))
	}

	if len(violations) > 0 {
		order := make(map[string]int, len(fields))
		for i, f := range fields {
			order[f.Name] = i
		}
		sort.SliceStable(violations, func(i, j int) bool {
			return order[violations[i].Field] < order[violations[j].Field]
		})
		return Input{}, &ValidationError{Violations: violations}
	}

	for k, v := range values {
		switch k {
		case "slug":
			sv := v.(string)
			in.Slug = &sv
		case "status":
			sv := v.(string)
			in.Status = &sv
		case "position":
			iv := v.(int)
			in.Position = &iv
		default:
			in.Fields[k] = v
		}
	}

	known := make(map[string]bool, len(fields))
	for _, f := range fields {
		known[f.Name] = true
	}
	for k, v := range body {
		if !known[k] && !IsReserved(k) {
			in.Fields[k] = v
		}
	}

	if !partial && in.Slug == nil && s.SlugFrom != "" {
		src, _ := in.Fields[s.SlugFrom].(string)
		generated := slug.Make(src)
		if generated == "" {
			return Input{}, &ValidationError{Violations: []Violation{{Field: "slug", Rule: "required"}}}
		}
		in.Slug = &generated
	}

	return in, nil
}

func ruleFor(f Field, partial bool) string {
	if f.Rules == "" {
		return ""
	}

	parts := make([]string, 0, 4)
	required := false
	for _, r := range strings.Split(f.Rules, ",") {
		if r == "required" {
			required = true
			continue
		}
		parts = append(parts, r)
	}

	if required && !partial {
		return strings.Join(append([]string{"required"}, parts...), ",")
	}
	if required {
		// present in an update, so the remaining rules apply unconditionally
		return strings.Join(parts, ",")
	}
	if len(parts) == 0 {
		return ""
	}
	return strings.Join(append([]string{"omitempty"}, parts...), ",")
}

func violationFrom(field string, err any) Violation {
	if verrs, ok := err.(validator.ValidationErrors); ok && len(verrs) > 0 {
		return Violation{Field: field, Rule: verrs[0].Tag(), Param: verrs[0].Param()}
	}
	return Violation{Field: field, Rule: "invalid"}
}

func coerce(t FieldType, raw any) (any, bool) {
	switch t {
	case TypeString, TypeText:
		s, ok := raw.(string)
		return s, ok
	case TypeInt:
		return coerceInt(raw)
	case TypeBool:
		b, ok := raw.(bool)
		return b, ok
	case TypeStringList:
		list, ok := raw.([]any)
		if !ok {
			return nil, false
		}
		out := make([]string, 0, len(list))
		for _, item := range list {
			s, ok := item.(string)
			if !ok {
				return nil, false
			}
			out = append(out, s)
		}
		return out, true
	case TypeArray:
		list, ok := raw.([]any)
		return list, ok
	case TypeObject:
		obj, ok := raw.(map[string]any)
		return obj, ok
	}
	return nil, false
}

func coerceInt(raw any) (any, bool) {
	switch n := raw.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		if n != math.Trunc(n) || math.IsInf(n, 0) || n > math.MaxInt32 || n < math.MinInt32 {
			return nil, false
		}
		return int(n), true
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return nil, false
		}
		return int(i), true
	}
	return nil, false
}
