// Package inkjson reads and writes the JSON form of story content: the
// compiled story graph and the runtime objects found in state snapshots.
//
// Tokens are handled as the generic tree produced by encoding/json with
// UseNumber: map[string]any, []any, json.Number, string, bool and nil.
package inkjson

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	apperrors "github.com/louisbranch/storyloom/internal/errors"
	"github.com/louisbranch/storyloom/internal/story/value"
)

// Decode parses data into a token tree, keeping numbers as json.Number so
// integers and floats stay distinguishable.
func Decode(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var out any
	if err := dec.Decode(&out); err != nil {
		return nil, apperrors.Wrap(apperrors.CodeStoryFormatInvalid, "decode json", err)
	}
	return out, nil
}

// Encode serializes a token tree. Object keys are written in sorted order,
// so equal trees always produce equal bytes.
func Encode(token any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(token); err != nil {
		return nil, fmt.Errorf("encode json: %w", err)
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

func formatError(format string, args ...any) error {
	return apperrors.New(apperrors.CodeStoryFormatInvalid, fmt.Sprintf(format, args...))
}

// Object narrows a token to a JSON object.
func Object(token any) (map[string]any, error) {
	m, ok := token.(map[string]any)
	if !ok {
		return nil, formatError("expected object, got %T", token)
	}
	return m, nil
}

// Array narrows a token to a JSON array.
func Array(token any) ([]any, error) {
	a, ok := token.([]any)
	if !ok {
		return nil, formatError("expected array, got %T", token)
	}
	return a, nil
}

// String narrows a token to a string.
func String(token any) (string, error) {
	s, ok := token.(string)
	if !ok {
		return "", formatError("expected string, got %T", token)
	}
	return s, nil
}

// Bool narrows a token to a boolean.
func Bool(token any) (bool, error) {
	b, ok := token.(bool)
	if !ok {
		return false, formatError("expected bool, got %T", token)
	}
	return b, nil
}

// Int narrows a numeric token to an integer.
func Int(token any) (int, error) {
	switch n := token.(type) {
	case json.Number:
		i, err := strconv.Atoi(n.String())
		if err != nil {
			return 0, formatError("expected integer, got %s", n)
		}
		return i, nil
	case int:
		return n, nil
	case float64:
		if n == math.Trunc(n) {
			return int(n), nil
		}
	}
	return 0, formatError("expected integer, got %v", token)
}

// Field returns obj[key], failing when the key is absent.
func Field(obj map[string]any, key string) (any, error) {
	v, ok := obj[key]
	if !ok {
		return nil, formatError("missing field %q", key)
	}
	return v, nil
}

// IntField reads a required integer field.
func IntField(obj map[string]any, key string) (int, error) {
	v, err := Field(obj, key)
	if err != nil {
		return 0, err
	}
	return Int(v)
}

// FloatToken renders f as a JSON number that always reads back as a float.
func FloatToken(f float64) json.Number {
	switch {
	case math.IsNaN(f):
		return "0.0"
	case math.IsInf(f, 1):
		return json.Number(strconv.FormatFloat(math.MaxFloat64, 'e', -1, 64))
	case math.IsInf(f, -1):
		return json.Number(strconv.FormatFloat(-math.MaxFloat64, 'e', -1, 64))
	}
	s := value.FormatFloat(f)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return json.Number(s)
}

// IntToken renders i as a JSON number.
func IntToken(i int) json.Number {
	return json.Number(strconv.Itoa(i))
}

func numberValue(n json.Number) (*value.Value, error) {
	s := n.String()
	if strings.ContainsAny(s, ".eE") {
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, formatError("invalid float %s", s)
		}
		return value.Float(f), nil
	}
	i, err := strconv.Atoi(s)
	if err != nil {
		return nil, formatError("invalid integer %s", s)
	}
	return value.Int(i), nil
}

// ReadIntMap reads an object of integers, such as visit counts.
func ReadIntMap(token any) (map[string]int, error) {
	obj, err := Object(token)
	if err != nil {
		return nil, err
	}
	out := make(map[string]int, len(obj))
	for k, v := range obj {
		i, err := Int(v)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", k, err)
		}
		out[k] = i
	}
	return out, nil
}

// WriteIntMap writes an object of integers.
func WriteIntMap(m map[string]int) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = IntToken(v)
	}
	return out
}
