package evaluator

// ParamType is the declared JSON type of a rule parameter.
type ParamType string

const (
	ParamInt     ParamType = "int"
	ParamNumber  ParamType = "number"
	ParamString  ParamType = "string"
	ParamBoolean ParamType = "boolean"
	ParamEnum    ParamType = "enum"
)

// ParamSpec declares one accepted parameter of an alert kind.
type ParamSpec struct {
	Name         string    `json:"name"`
	Type         ParamType `json:"type"`
	Required     bool      `json:"required"`
	Min          *float64  `json:"min,omitempty"`
	Max          *float64  `json:"max,omitempty"`
	ExclusiveMin bool      `json:"exclusiveMin,omitempty"`
	ExclusiveMax bool      `json:"exclusiveMax,omitempty"`
	Values       []string  `json:"values,omitempty"`
	Default      any       `json:"default,omitempty"`
	Description  string    `json:"description,omitempty"`
}

// Schema is the parameter contract of an alert kind.
type Schema struct {
	Description string           `json:"description"`
	Params      []ParamSpec      `json:"params"`
	Examples    []map[string]any `json:"examples,omitempty"`
}

// Param looks up a parameter definition by name.
func (s Schema) Param(name string) (ParamSpec, bool) {
	for _, p := range s.Params {
		if p.Name == name {
			return p, true
		}
	}
	return ParamSpec{}, false
}

func bound(v float64) *float64 { return &v }
