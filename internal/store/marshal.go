package store

import (
	"database/sql"
	"fmt"

	"github.com/roach88/flowlua/internal/ir"
)

// marshalArgs converts call arguments to canonical JSON TEXT for storage.
func marshalArgs(args []any) (string, error) {
	if args == nil {
		args = []any{}
	}
	data, err := ir.MarshalCanonical(args)
	if err != nil {
		return "", fmt.Errorf("marshal args: %w", err)
	}
	return string(data), nil
}

// marshalResult converts a call result to canonical JSON TEXT.
// A nil result (setters and failed calls) is stored as NULL.
func marshalResult(result any) (sql.NullString, error) {
	if result == nil {
		return sql.NullString{}, nil
	}
	data, err := ir.MarshalCanonical(result)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("marshal result: %w", err)
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}
