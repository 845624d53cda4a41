package store

import (
	"context"
	"fmt"

	"github.com/roach88/flowlua/internal/detect"
)

// WriteCall appends one binding call to the log.
//
// Args and Result are serialized to canonical JSON; a value canonical JSON
// cannot represent fails the write.
func (s *Store) WriteCall(ctx context.Context, c detect.Call) error {
	argsJSON, err := marshalArgs(c.Args)
	if err != nil {
		return fmt.Errorf("write call: %w", err)
	}

	resultJSON, err := marshalResult(c.Result)
	if err != nil {
		return fmt.Errorf("write call: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO calls
		(seq, worker, flow_token, rule, binding, args, result, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		c.Seq,
		c.Worker,
		c.FlowToken,
		c.Rule,
		c.Binding,
		argsJSON,
		resultJSON,
		c.Err,
	)
	if err != nil {
		return fmt.Errorf("write call: %w", err)
	}

	return nil
}

// WriteMatch appends one rule match to the log.
func (s *Store) WriteMatch(ctx context.Context, m detect.Match) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO matches
		(seq, worker, flow_token, rule)
		VALUES (?, ?, ?, ?)
	`,
		m.Seq,
		m.Worker,
		m.FlowToken,
		m.Rule,
	)
	if err != nil {
		return fmt.Errorf("write match: %w", err)
	}

	return nil
}
