package domain

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
)

var ErrInvalidID = errors.New("invalid id")

// ID is the canonical identifier for products, orders and users.
// Numeric and string forms decode to the same value, so ids compare with ==.
type ID string

func IDFromInt(n int64) ID {
	return ID(strconv.FormatInt(n, 10))
}

// ParseID normalizes a raw id coming from a URL or form value.
func ParseID(raw string) (ID, error) {
	id := ID(raw)
	if !id.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidID, raw)
	}
	return id, nil
}

func (id ID) String() string {
	return string(id)
}

func (id ID) Valid() bool {
	return id != ""
}

func (id ID) numeric() bool {
	if id == "" || len(id) > 18 {
		return false
	}
	if id[0] == '0' && len(id) > 1 {
		return false
	}
	for i := 0; i < len(id); i++ {
		if id[i] < '0' || id[i] > '9' {
			return false
		}
	}
	return true
}

// MarshalJSON writes numeric ids as JSON numbers and everything else as strings.
func (id ID) MarshalJSON() ([]byte, error) {
	if id.numeric() {
		return []byte(id), nil
	}
	return json.Marshal(string(id))
}

func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidID, data)
	}
	if i, err := n.Int64(); err == nil {
		*id = IDFromInt(i)
		return nil
	}
	// 1.0 style numbers still identify an integral record
	f, err := n.Float64()
	if err != nil || f != float64(int64(f)) {
		return fmt.Errorf("%w: %s", ErrInvalidID, data)
	}
	*id = IDFromInt(int64(f))
	return nil
}
