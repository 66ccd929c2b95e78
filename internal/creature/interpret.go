package creature

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/efebarandurmaz/bestiary/internal/llm"
)

// PortraitField is the only field with a validation rule.
const PortraitField = "svg_portrait"

const portraitPrefix = "<svg"

// ParseError reports generated text that is not a JSON document.
// The message embeds the decoder diagnostic so it can be shown as is.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string {
	return "JSON parse error: " + e.Err.Error()
}

func (e *ParseError) Unwrap() error { return e.Err }

// Interpret turns raw generated text into a creature. Code fences are
// stripped anywhere in the text, the rest must be exactly one JSON value.
// Any JSON value is accepted; only svg_portrait is checked.
func Interpret(raw string) (*Creature, error) {
	doc, err := decode([]byte(llm.StripCodeFences(raw)))
	if err != nil {
		return nil, &ParseError{Err: err}
	}
	return FromDocument(doc), nil
}

// decode parses exactly one JSON value, keeping numbers as json.Number so
// exports reproduce the generated text.
func decode(data []byte) (any, error) {
	if !json.Valid(data) {
		var probe any
		if err := json.Unmarshal(data, &probe); err != nil {
			return nil, err
		}
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// enforcePortraitPolicy nulls svg_portrait when it is set but does not start
// with "<svg" and reports whether it did. This is an allow-list on the prefix
// only: markup after the prefix is not inspected.
func enforcePortraitPolicy(doc any) bool {
	fields, ok := doc.(map[string]any)
	if !ok {
		return false
	}
	v, ok := fields[PortraitField]
	if !ok || isEmpty(v) {
		return false
	}
	if s, ok := v.(string); ok && strings.HasPrefix(s, portraitPrefix) {
		return false
	}
	fields[PortraitField] = nil
	return true
}

// isEmpty reports the values a generated field may carry to mean "unset".
func isEmpty(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return t == ""
	case bool:
		return !t
	case json.Number:
		f, err := t.Float64()
		return err == nil && f == 0
	case float64:
		return t == 0
	}
	return false
}
