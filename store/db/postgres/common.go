package postgres

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// placeholder returns a positional placeholder for PostgreSQL ($1, $2, ...).
func placeholder(n int) string {
	return fmt.Sprintf("$%d", n)
}

func placeholders(n int) string {
	list := []string{}
	for i := 0; i < n; i++ {
		list = append(list, placeholder(i+1))
	}
	return strings.Join(list, ", ")
}

// marshalJSON encodes a JSONB column, writing "[]" for nil slices.
func marshalJSON[T any](v []T) (string, error) {
	if v == nil {
		return "[]", nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return "", errors.Wrap(err, "failed to marshal jsonb column")
	}
	return string(raw), nil
}

func unmarshalJSON[T any](raw string, v *[]T) error {
	if raw == "" {
		return nil
	}
	return errors.Wrap(json.Unmarshal([]byte(raw), v), "failed to unmarshal jsonb column")
}
