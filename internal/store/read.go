package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// CallRecord is a binding call read back from the log.
// Args and Result hold canonical JSON; Result is "" for calls that
// returned nothing.
type CallRecord struct {
	ID        int64  `json:"id"`
	Seq       int64  `json:"seq"`
	Worker    int    `json:"worker"`
	FlowToken string `json:"flow_token"`
	Rule      string `json:"rule"`
	Binding   string `json:"binding"`
	Args      string `json:"args"`
	Result    string `json:"result,omitempty"`
	Err       string `json:"error,omitempty"`
}

// MatchRecord is a rule match read back from the log.
type MatchRecord struct {
	ID        int64  `json:"id"`
	Seq       int64  `json:"seq"`
	Worker    int    `json:"worker"`
	FlowToken string `json:"flow_token"`
	Rule      string `json:"rule"`
}

// CallFilter narrows ReadCalls. Empty fields match everything.
type CallFilter struct {
	FlowToken string
	Binding   string
	Rule      string

	// FailedOnly keeps only calls that returned an error message.
	FailedOnly bool
}

// ReadCalls returns the binding calls matching f.
// Results are ordered deterministically: ORDER BY seq ASC, id ASC.
//
// Returns an empty slice (not nil) if nothing matches.
func (s *Store) ReadCalls(ctx context.Context, f CallFilter) ([]CallRecord, error) {
	var (
		where []string
		args  []any
	)
	if f.FlowToken != "" {
		where = append(where, "flow_token = ?")
		args = append(args, f.FlowToken)
	}
	if f.Binding != "" {
		where = append(where, "binding = ?")
		args = append(args, f.Binding)
	}
	if f.Rule != "" {
		where = append(where, "rule = ?")
		args = append(args, f.Rule)
	}
	if f.FailedOnly {
		where = append(where, "error != ''")
	}

	query := `
		SELECT id, seq, worker, flow_token, rule, binding, args, result, error
		FROM calls`
	if len(where) > 0 {
		query += "\n\t\tWHERE " + strings.Join(where, " AND ")
	}
	query += "\n\t\tORDER BY seq ASC, id ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query calls: %w", err)
	}
	defer rows.Close()

	calls := []CallRecord{}
	for rows.Next() {
		var (
			c      CallRecord
			result sql.NullString
		)
		if err := rows.Scan(&c.ID, &c.Seq, &c.Worker, &c.FlowToken, &c.Rule, &c.Binding, &c.Args, &result, &c.Err); err != nil {
			return nil, fmt.Errorf("scan call: %w", err)
		}
		c.Result = result.String
		calls = append(calls, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate calls: %w", err)
	}

	return calls, nil
}

// ReadMatches returns the matches recorded for flowToken, or all matches
// when flowToken is empty. Ordered by seq ASC, id ASC.
func (s *Store) ReadMatches(ctx context.Context, flowToken string) ([]MatchRecord, error) {
	query := `
		SELECT id, seq, worker, flow_token, rule
		FROM matches`
	var args []any
	if flowToken != "" {
		query += "\n\t\tWHERE flow_token = ?"
		args = append(args, flowToken)
	}
	query += "\n\t\tORDER BY seq ASC, id ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query matches: %w", err)
	}
	defer rows.Close()

	matches := []MatchRecord{}
	for rows.Next() {
		var m MatchRecord
		if err := rows.Scan(&m.ID, &m.Seq, &m.Worker, &m.FlowToken, &m.Rule); err != nil {
			return nil, fmt.Errorf("scan match: %w", err)
		}
		matches = append(matches, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate matches: %w", err)
	}

	return matches, nil
}

// FlowSummary counts the log rows of one flow.
type FlowSummary struct {
	FlowToken string `json:"flow_token"`
	Calls     int    `json:"calls"`
	Failures  int    `json:"failures"`
	Matches   int    `json:"matches"`
}

// Summaries returns per-flow row counts ordered by flow token.
func (s *Store) Summaries(ctx context.Context) ([]FlowSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT t.flow_token,
		       (SELECT COUNT(*) FROM calls c WHERE c.flow_token = t.flow_token),
		       (SELECT COUNT(*) FROM calls c WHERE c.flow_token = t.flow_token AND c.error != ''),
		       (SELECT COUNT(*) FROM matches m WHERE m.flow_token = t.flow_token)
		FROM (
			SELECT flow_token FROM calls
			UNION
			SELECT flow_token FROM matches
		) t
		ORDER BY t.flow_token COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query summaries: %w", err)
	}
	defer rows.Close()

	out := []FlowSummary{}
	for rows.Next() {
		var fs FlowSummary
		if err := rows.Scan(&fs.FlowToken, &fs.Calls, &fs.Failures, &fs.Matches); err != nil {
			return nil, fmt.Errorf("scan summary: %w", err)
		}
		out = append(out, fs)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate summaries: %w", err)
	}

	return out, nil
}

// LastSeq returns the highest packet seq in the log, or 0 for an empty log.
// A replay appended to an existing log starts its clock here.
func (s *Store) LastSeq(ctx context.Context) (int64, error) {
	var seq int64
	err := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(MAX(seq), 0) FROM (
			SELECT seq FROM calls
			UNION ALL
			SELECT seq FROM matches
		)
	`).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("query last seq: %w", err)
	}
	return seq, nil
}
