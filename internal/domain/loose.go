package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// LooseText decodes a JSON string, number, bool or list of those into a
// single string. Model output is not consistent about scalar vs list.
type LooseText string

// UnmarshalJSON implements json.Unmarshaler.
func (t *LooseText) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*t = ""
		return nil
	}
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*t = LooseText(flatten(v))
	return nil
}

// LooseList decodes a JSON list, or a single scalar, into a list of strings.
// Anything else decodes to an empty list.
type LooseList []string

// UnmarshalJSON implements json.Unmarshaler.
func (l *LooseList) UnmarshalJSON(b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	switch x := v.(type) {
	case []any:
		out := make(LooseList, 0, len(x))
		for _, it := range x {
			if s := flatten(it); s != "" {
				out = append(out, s)
			}
		}
		*l = out
	case string:
		if strings.TrimSpace(x) == "" {
			*l = LooseList{}
			return nil
		}
		*l = LooseList{x}
	default:
		*l = LooseList{}
	}
	return nil
}

func flatten(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return fmt.Sprintf("%g", x)
	case bool:
		return fmt.Sprintf("%t", x)
	case []any:
		parts := make([]string, 0, len(x))
		for _, it := range x {
			if s := flatten(it); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, ", ")
	default:
		b, _ := json.Marshal(x)
		return string(b)
	}
}
