package api

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// node is a decoded JSON object. All accessors below treat an absent key and
// an explicit null the same way, and never fail on a type mismatch.
type node map[string]any

func decodeNode(data []byte) (node, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var n node
	if err := dec.Decode(&n); err != nil {
		return nil, err
	}
	return n, nil
}

func (n node) value(key string) (any, bool) {
	if n == nil {
		return nil, false
	}
	v, ok := n[key]
	if !ok || v == nil {
		return nil, false
	}
	return v, true
}

// getString returns nil when key is absent or null. Numbers and booleans are
// rendered as their JSON text.
func getString(n node, key string) *string {
	v, ok := n.value(key)
	if !ok {
		return nil
	}

	var s string
	switch t := v.(type) {
	case string:
		s = t
	case json.Number:
		s = t.String()
	case bool:
		s = strconv.FormatBool(t)
	default:
		return nil
	}
	return &s
}

func getBool(n node, key string, def bool) bool {
	if b := getOptionalBool(n, key); b != nil {
		return *b
	}
	return def
}

func getOptionalBool(n node, key string) *bool {
	v, ok := n.value(key)
	if !ok {
		return nil
	}

	var b bool
	switch t := v.(type) {
	case bool:
		b = t
	case string:
		parsed, err := strconv.ParseBool(t)
		if err != nil {
			return nil
		}
		b = parsed
	default:
		return nil
	}
	return &b
}

// getFloat returns def unless key holds a number or a numeric string.
// Booleans count as absent: prices.php sends false for a missing price.
func getFloat(n node, key string, def *float64) *float64 {
	v, ok := n.value(key)
	if !ok {
		return def
	}

	var f float64
	var err error
	switch t := v.(type) {
	case json.Number:
		f, err = t.Float64()
	case float64:
		f = t
	case string:
		f, err = strconv.ParseFloat(strings.TrimSpace(t), 64)
	default:
		return def
	}
	if err != nil {
		return def
	}
	return &f
}

// getInt is nil unless the value is a whole number that fits an int.
func getInt(n node, key string) *int {
	f := getFloat(n, key, nil)
	if f == nil || *f != math.Trunc(*f) {
		return nil
	}
	if *f < math.MinInt || *f >= -float64(math.MinInt) {
		return nil
	}
	i := int(*f)
	return &i
}

func getObject(n node, key string) node {
	v, ok := n.value(key)
	if !ok {
		return nil
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil
	}
	return node(m)
}

func getArray(n node, key string) []any {
	v, ok := n.value(key)
	if !ok {
		return nil
	}
	a, _ := v.([]any)
	return a
}

func nonEmpty(s *string) *string {
	if s == nil || *s == "" {
		return nil
	}
	return s
}
