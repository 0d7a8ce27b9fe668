package model

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// Flex is an identifier or code that the backend sends either as a JSON number or as a string.
// Integers without leading zeros are written back as numbers.
type Flex string

// String returns the textual id.
func (id Flex) String() string { return string(id) }

// UnmarshalJSON accepts numbers, strings and null.
func (id *Flex) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case len(b) == 0 || bytes.Equal(b, []byte("null")):
		*id = ""
		return nil
	case b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = Flex(s)
		return nil
	default:
		var n json.Number
		if err := json.Unmarshal(b, &n); err != nil {
			return err
		}
		*id = Flex(n.String())
		return nil
	}
}

// MarshalJSON writes canonical integers as numbers and everything else as a string.
func (id Flex) MarshalJSON() ([]byte, error) {
	s := string(id)
	if s == "" {
		return []byte("null"), nil
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil && strconv.FormatInt(n, 10) == s {
		return []byte(s), nil
	}
	return json.Marshal(s)
}
