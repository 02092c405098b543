package evaluator

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"reflect"
	"sort"
	"strings"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"

	"AlertEngine/internal/domain/models"
)

// ParamsValidator checks raw rule params against a kind's Schema and converts
// them into the evaluator's typed params.
type ParamsValidator struct {
	validate *validator.Validate
}

func NewParamsValidator() *ParamsValidator {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return &ParamsValidator{validate: v}
}

// Validate checks raw against schema: required keys, declared types, enum
// membership and bounds. Keys not declared by the schema are rejected.
func (pv *ParamsValidator) Validate(kind models.AlertKind, schema Schema, raw map[string]any) error {
	for _, param := range schema.Params {
		v, ok := raw[param.Name]
		if !ok || v == nil {
			if param.Required {
				return &InvalidParamsError{Kind: kind, Path: param.Name, Detail: "is required"}
			}
			continue
		}
		if err := pv.checkValue(param, v); err != nil {
			return &InvalidParamsError{Kind: kind, Path: param.Name, Detail: err.Error(), Err: err}
		}
	}

	var unknown []string
	for k := range raw {
		if _, ok := schema.Param(k); !ok {
			unknown = append(unknown, k)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return &InvalidParamsError{Kind: kind, Path: unknown[0], Detail: "is not a recognised parameter"}
	}
	return nil
}

func (pv *ParamsValidator) checkValue(param ParamSpec, v any) error {
	switch param.Type {
	case ParamString:
		if _, ok := v.(string); !ok {
			return errors.New("must be a string")
		}
	case ParamBoolean:
		if _, ok := v.(bool); !ok {
			return errors.New("must be a boolean")
		}
	case ParamEnum:
		s, ok := v.(string)
		if !ok {
			return errors.New("must be a string")
		}
		if err := pv.validate.Var(s, "oneof="+strings.Join(param.Values, " ")); err != nil {
			return fmt.Errorf("must be one of: %s", strings.Join(param.Values, ", "))
		}
	case ParamInt, ParamNumber:
		f, ok := v.(float64)
		if !ok {
			return errors.New("must be a number")
		}
		if param.Type == ParamInt && f != math.Trunc(f) {
			return errors.New("must be an integer")
		}
		if tag := boundsTag(param); tag != "" {
			if err := pv.validate.Var(f, tag); err != nil {
				return errors.New(boundsMessage(param))
			}
		}
	}
	return nil
}

func boundsTag(param ParamSpec) string {
	var parts []string
	if param.Min != nil {
		op := "gte"
		if param.ExclusiveMin {
			op = "gt"
		}
		parts = append(parts, op+"="+formatFloat(*param.Min))
	}
	if param.Max != nil {
		op := "lte"
		if param.ExclusiveMax {
			op = "lt"
		}
		parts = append(parts, op+"="+formatFloat(*param.Max))
	}
	return strings.Join(parts, ",")
}

func boundsMessage(param ParamSpec) string {
	var parts []string
	if param.Min != nil {
		op := ">="
		if param.ExclusiveMin {
			op = ">"
		}
		parts = append(parts, "must be "+op+" "+formatFloat(*param.Min))
	}
	if param.Max != nil {
		op := "<="
		if param.ExclusiveMax {
			op = "<"
		}
		parts = append(parts, "must be "+op+" "+formatFloat(*param.Max))
	}
	return strings.Join(parts, " and ")
}

// Convert decodes raw JSON params into target (a pointer to the params
// struct), applying `default` tags first and `validate` tags afterwards.
func (pv *ParamsValidator) Convert(kind models.AlertKind, raw []byte, target any) error {
	if err := defaults.Set(target); err != nil {
		return &InvalidParamsError{Kind: kind, Detail: "apply defaults", Err: err}
	}
	if len(bytes.TrimSpace(raw)) > 0 {
		if err := json.Unmarshal(raw, target); err != nil {
			return &InvalidParamsError{Kind: kind, Path: jsonErrorPath(err), Detail: err.Error(), Err: err}
		}
	}
	if err := pv.validate.Struct(target); err != nil {
		var ves validator.ValidationErrors
		if errors.As(err, &ves) && len(ves) > 0 {
			fe := ves[0]
			return &InvalidParamsError{
				Kind:   kind,
				Path:   fe.Field(),
				Detail: strings.TrimSpace(fmt.Sprintf("failed %s %s", fe.Tag(), fe.Param())),
				Err:    err,
			}
		}
		return &InvalidParamsError{Kind: kind, Detail: err.Error(), Err: err}
	}
	if sv, ok := target.(interface{ Validate() error }); ok {
		if err := sv.Validate(); err != nil {
			return &InvalidParamsError{Kind: kind, Detail: err.Error(), Err: err}
		}
	}
	return nil
}

func jsonErrorPath(err error) string {
	var te *json.UnmarshalTypeError
	if errors.As(err, &te) {
		return te.Field
	}
	return ""
}
