package evaluator

import (
	"bytes"
	"encoding/json"
	"math"
	"time"

	"github.com/shopspring/decimal"
)

// Payload is an insertion-ordered JSON object.
type Payload struct {
	keys   []string
	values map[string]any
}

func NewPayload() *Payload {
	return &Payload{values: make(map[string]any)}
}

// Put sets key to v. Re-putting a key keeps its original position.
func (p *Payload) Put(key string, v any) *Payload {
	if _, ok := p.values[key]; !ok {
		p.keys = append(p.keys, key)
	}
	p.values[key] = v
	return p
}

// PutFloat stores v, or null when v is NaN or infinite.
func (p *Payload) PutFloat(key string, v float64) *Payload {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return p.Put(key, nil)
	}
	return p.Put(key, v)
}

// PutFloatPtr stores *v, or null when v is nil or not finite.
func (p *Payload) PutFloatPtr(key string, v *float64) *Payload {
	if v == nil {
		return p.Put(key, nil)
	}
	return p.PutFloat(key, *v)
}

// PutDecimal stores d as a JSON number with its exact plain representation.
func (p *Payload) PutDecimal(key string, d decimal.Decimal) *Payload {
	return p.Put(key, json.Number(d.String()))
}

// PutTime stores t as an ISO-8601 UTC instant, or null when t is nil.
func (p *Payload) PutTime(key string, t *time.Time) *Payload {
	if t == nil {
		return p.Put(key, nil)
	}
	return p.Put(key, FormatInstant(*t))
}

func (p *Payload) Get(key string) (any, bool) {
	if p == nil {
		return nil, false
	}
	v, ok := p.values[key]
	return v, ok
}

// String returns the string value stored under key.
func (p *Payload) String(key string) (string, bool) {
	v, ok := p.Get(key)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

func (p *Payload) Keys() []string {
	if p == nil {
		return nil
	}
	out := make([]string, len(p.keys))
	copy(out, p.keys)
	return out
}

func (p *Payload) Len() int {
	if p == nil {
		return 0
	}
	return len(p.keys)
}

func (p *Payload) MarshalJSON() ([]byte, error) {
	if p == nil {
		return []byte("null"), nil
	}
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range p.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		vb, err := json.Marshal(p.values[k])
		if err != nil {
			return nil, err
		}
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// FormatInstant renders t in UTC with only the fractional digits it needs.
func FormatInstant(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}
