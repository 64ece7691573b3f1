package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// FlexID is an integer identifier that the backend may send either as a JSON
// number or as a numeric string. null and "" decode to 0.
type FlexID int64

func (id *FlexID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*id = 0
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		if s == "" {
			*id = 0
			return nil
		}
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid id %q: %w", s, err)
		}
		*id = FlexID(n)
		return nil
	}
	var n int64
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("invalid id %s: %w", b, err)
	}
	*id = FlexID(n)
	return nil
}

func (id FlexID) Int64() int64 { return int64(id) }
