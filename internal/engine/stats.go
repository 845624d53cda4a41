package engine

import (
	"sort"
)

// Stats summarizes one Run.
type Stats struct {
	Packets      int             `json:"packets"`
	Teardowns    int             `json:"teardowns"`
	Matches      map[string]int  `json:"matches"`
	ScriptErrors int             `json:"script_errors"`
	Errors       []*RuntimeError `json:"errors,omitempty"`
	LastSeq      int64           `json:"last_seq"`

	// PerWorker counts the packets each worker processed.
	PerWorker []int `json:"per_worker,omitempty"`
}

func newStats(workers int) *Stats {
	return &Stats{
		Matches:   make(map[string]int),
		PerWorker: make([]int, workers),
	}
}

func (s *Stats) addMatch(rule string) {
	s.Matches[rule]++
}

// merge folds the stats of worker id into s.
func (s *Stats) merge(id int, o *Stats) {
	s.Packets += o.Packets
	s.Teardowns += o.Teardowns
	s.ScriptErrors += o.ScriptErrors
	s.Errors = append(s.Errors, o.Errors...)
	for rule, n := range o.Matches {
		s.Matches[rule] += n
	}
	if id < len(s.PerWorker) {
		s.PerWorker[id] = o.Packets
	}
}

func (s *Stats) sortErrors() {
	sort.SliceStable(s.Errors, func(i, j int) bool {
		return s.Errors[i].Seq < s.Errors[j].Seq
	})
}

// TotalMatches returns the number of matches across all rules.
func (s *Stats) TotalMatches() int {
	n := 0
	for _, m := range s.Matches {
		n += m
	}
	return n
}
