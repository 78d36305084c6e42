package sqlite

import (
	"encoding/json"
	"strings"

	"github.com/pkg/errors"
)

// placeholder returns a placeholder for SQLite (uses ?)
func placeholder(int) string {
	return "?"
}

// placeholders returns n placeholders for SQLite
func placeholders(n int) string {
	list := []string{}
	for i := 0; i < n; i++ {
		list = append(list, placeholder(i+1))
	}
	return strings.Join(list, ", ")
}

// marshalJSON encodes a JSON column, writing "[]" for nil slices.
func marshalJSON[T any](v []T) (string, error) {
	if v == nil {
		return "[]", nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return "", errors.Wrap(err, "failed to marshal json column")
	}
	return string(raw), nil
}

func unmarshalJSON[T any](raw string, v *[]T) error {
	if raw == "" {
		return nil
	}
	return errors.Wrap(json.Unmarshal([]byte(raw), v), "failed to unmarshal json column")
}
