// Package memory is the recall store: per-agent memories plus the shared
// city knowledge pool. Recall is keyword-scored with a recency tiebreak —
// good enough to surface "what happened to me lately that matters today"
// without an external vector service.
package memory

import (
	"sort"
	"strings"
	"sync"
)

// Kind tags what a memory is about.
type Kind string

const (
	KindWitness   Kind = "witness"
	KindPersonal  Kind = "personal"
	KindGossip    Kind = "gossip"
	KindCaseNote  Kind = "case_note"
	KindNewspaper Kind = "newspaper"
)

// Entry is one stored memory.
type Entry struct {
	Agent   string `json:"agent"` // empty for city knowledge
	Day     int    `json:"day"`
	Kind    Kind   `json:"kind"`
	Content string `json:"content"`
}

// Store holds all memories behind one mutex.
type Store struct {
	mu      sync.Mutex
	entries []Entry
}

func NewStore() *Store {
	return &Store{}
}

// Remember stores a personal memory for one agent.
func (s *Store) Remember(agent string, day int, kind Kind, content string) {
	if content == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, Entry{Agent: agent, Day: day, Kind: kind, Content: content})
}

// PublishCity stores shared knowledge every agent may recall.
func (s *Store) PublishCity(day int, kind Kind, content string) {
	s.Remember("", day, kind, content)
}

var stopwords = map[string]bool{
	"the": true, "a": true, "an": true, "and": true, "or": true, "of": true,
	"to": true, "in": true, "on": true, "at": true, "is": true, "was": true,
	"i": true, "my": true, "me": true, "it": true, "that": true, "with": true,
}

func terms(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !('a' <= r && r <= 'z') && !('0' <= r && r <= '9')
	})
	var out []string
	for _, f := range fields {
		if len(f) > 1 && !stopwords[f] {
			out = append(out, f)
		}
	}
	return out
}

func score(queryTerms []string, content string) int {
	lc := strings.ToLower(content)
	n := 0
	for _, t := range queryTerms {
		if strings.Contains(lc, t) {
			n++
		}
	}
	return n
}

type scored struct {
	entry Entry
	hits  int
}

func rank(candidates []scored, k int) []string {
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].hits != candidates[j].hits {
			return candidates[i].hits > candidates[j].hits
		}
		return candidates[i].entry.Day > candidates[j].entry.Day
	})
	if len(candidates) > k {
		candidates = candidates[:k]
	}
	out := make([]string, 0, len(candidates))
	for _, c := range candidates {
		out = append(out, c.entry.Content)
	}
	return out
}

// Recall returns up to k of an agent's memories most relevant to the query.
// An empty query returns the agent's k most recent memories.
func (s *Store) Recall(agent, query string, k int) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	qt := terms(query)
	var candidates []scored
	for _, e := range s.entries {
		if e.Agent != agent {
			continue
		}
		hits := score(qt, e.Content)
		if len(qt) > 0 && hits == 0 {
			continue
		}
		candidates = append(candidates, scored{entry: e, hits: hits})
	}
	return rank(candidates, k)
}

// QueryCity searches the shared knowledge pool.
func (s *Store) QueryCity(query string, k int) []string {
	return s.Recall("", query, k)
}

// Forget removes a dead agent's personal memories. City knowledge persists.
func (s *Store) Forget(agent string) {
	if agent == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.entries[:0]
	for _, e := range s.entries {
		if e.Agent != agent {
			kept = append(kept, e)
		}
	}
	s.entries = kept
}

// Snapshot returns all entries for persistence.
func (s *Store) Snapshot() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Entry(nil), s.entries...)
}

// Restore loads persisted entries.
func (s *Store) Restore(entries []Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append([]Entry(nil), entries...)
}
