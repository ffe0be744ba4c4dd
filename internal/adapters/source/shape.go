package source

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/bezboss20/Dashboard-sub001/internal/domain/model"
)

// ShapeKind enumerates the response layouts the monitoring API has used.
type ShapeKind int

// Known response shapes.
const (
	// ShapeFlat is the payload itself.
	ShapeFlat ShapeKind = iota + 1
	// ShapeEnvelope is {success, data: payload}.
	ShapeEnvelope
	// ShapeDoubleEnvelope is {success, data: {data: payload}}.
	ShapeDoubleEnvelope
)

func (k ShapeKind) String() string {
	switch k {
	case ShapeFlat:
		return "flat"
	case ShapeEnvelope:
		return "envelope"
	case ShapeDoubleEnvelope:
		return "double_envelope"
	default:
		return "unknown"
	}
}

// Shape is a decoded response tagged with its layout. Payload is either a
// model.Record or a []any.
type Shape struct {
	Kind    ShapeKind
	Payload any
}

// Object returns the payload as a record.
func (s Shape) Object() (model.Record, bool) {
	r, ok := s.Payload.(model.Record)
	return r, ok
}

// List returns the payload as a list.
func (s Shape) List() ([]any, bool) {
	l, ok := s.Payload.([]any)
	return l, ok
}

// DetectShape decodes body and unwraps any envelope around the payload.
func DetectShape(body []byte) (Shape, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return Shape{}, fmt.Errorf("%w: %v", ErrShapeMismatch, err)
	}

	switch top := v.(type) {
	case []any:
		return Shape{Kind: ShapeFlat, Payload: top}, nil
	case map[string]any:
		rec := model.Record(top)
		success, enveloped := rec["success"].(bool)
		if !enveloped {
			return Shape{Kind: ShapeFlat, Payload: rec}, nil
		}
		if !success {
			msg := rec.FirstString("message", "error", "msg")
			return Shape{}, fmt.Errorf("%w: %s", ErrSourceRejected, msg)
		}
		return unwrap(rec)
	default:
		return Shape{}, fmt.Errorf("%w: top level is %T", ErrShapeMismatch, v)
	}
}

func unwrap(env model.Record) (Shape, error) {
	switch data := env["data"].(type) {
	case []any:
		return Shape{Kind: ShapeEnvelope, Payload: data}, nil
	case map[string]any:
		inner := model.Record(data)
		switch nested := inner["data"].(type) {
		case map[string]any:
			return Shape{Kind: ShapeDoubleEnvelope, Payload: model.Record(nested)}, nil
		case []any:
			// {data: {data: [...], total: n}} keeps the paging fields beside
			// the list, so the outer data object is the payload.
			return Shape{Kind: ShapeDoubleEnvelope, Payload: inner}, nil
		}
		return Shape{Kind: ShapeEnvelope, Payload: inner}, nil
	default:
		return Shape{}, fmt.Errorf("%w: envelope data is %T", ErrShapeMismatch, env["data"])
	}
}

// records converts list items into records, dropping non-object items.
func records(v any) (out []model.Record, dropped int) {
	list, ok := v.([]any)
	if !ok {
		return nil, 0
	}
	out = make([]model.Record, 0, len(list))
	for _, item := range list {
		m, ok := item.(map[string]any)
		if !ok {
			dropped++
			continue
		}
		out = append(out, model.Record(m))
	}
	return out, dropped
}
