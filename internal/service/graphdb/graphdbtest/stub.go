// Package graphdbtest provides an in-memory GraphDatabase for tests that need to control
// store responses and count queries.
package graphdbtest

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// Call records one ExecuteRead invocation
type Call struct {
	Query  string
	Params map[string]any
}

type response struct {
	fragment string
	records  []*neo4j.Record
}

// Stub answers queries with the records registered for the first matching query fragment.
// Queries that match nothing return no records.
type Stub struct {
	mu        sync.Mutex
	responses []response
	err       error
	delay     time.Duration
	calls     []Call
	inFlight  int
	peak      int
	closed    bool
}

func New() *Stub {
	return &Stub{}
}

// On registers records returned for every query containing fragment
func (s *Stub) On(fragment string, records ...*neo4j.Record) *Stub {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.responses = append(s.responses, response{fragment: fragment, records: records})
	return s
}

// Fail makes every subsequent query return err; nil restores normal answers
func (s *Stub) Fail(err error) *Stub {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
	return s
}

// SetDelay makes each query block for d or until its context is done
func (s *Stub) SetDelay(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delay = d
}

func (s *Stub) ExecuteRead(ctx context.Context, query string, params map[string]any) ([]*neo4j.Record, error) {
	s.mu.Lock()
	s.calls = append(s.calls, Call{Query: query, Params: params})
	s.inFlight++
	if s.inFlight > s.peak {
		s.peak = s.inFlight
	}
	delay, err := s.delay, s.err
	var records []*neo4j.Record
	for _, r := range s.responses {
		if strings.Contains(query, r.fragment) {
			records = r.records
			break
		}
	}
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.inFlight--
		s.mu.Unlock()
	}()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	return records, nil
}

func (s *Stub) VerifyConnectivity(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *Stub) Available() bool {
	return true
}

func (s *Stub) Close(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// Calls returns a copy of every recorded call
func (s *Stub) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Call, len(s.calls))
	copy(out, s.calls)
	return out
}

func (s *Stub) CallCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

// CallsContaining counts recorded queries that contain fragment
func (s *Stub) CallsContaining(fragment string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.calls {
		if strings.Contains(c.Query, fragment) {
			n++
		}
	}
	return n
}

// PeakInFlight is the highest number of ExecuteRead calls that were running at once
func (s *Stub) PeakInFlight() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.peak
}

// Record builds a driver record from alternating key/value pairs
func Record(kv ...any) *neo4j.Record {
	rec := &neo4j.Record{}
	for i := 0; i+1 < len(kv); i += 2 {
		rec.Keys = append(rec.Keys, kv[i].(string))
		rec.Values = append(rec.Values, kv[i+1])
	}
	return rec
}

// Node builds a driver node with the given element id, labels and properties
func Node(id string, labels []string, props map[string]any) neo4j.Node {
	if props == nil {
		props = map[string]any{}
	}
	return neo4j.Node{ElementId: id, Labels: labels, Props: props}
}

// Entity builds a node carrying uid and identifier properties
func Entity(id, label, uid, identifier string) neo4j.Node {
	return Node(id, []string{label}, map[string]any{"uid": uid, "identifier": identifier})
}

func Rel(id, relType string, start, end neo4j.Node) neo4j.Relationship {
	return neo4j.Relationship{
		ElementId:      id,
		StartElementId: start.ElementId,
		EndElementId:   end.ElementId,
		Type:           relType,
		Props:          map[string]any{},
	}
}

// Path builds a one-hop path from start through rel to end
func Path(start neo4j.Node, rel neo4j.Relationship, end neo4j.Node) neo4j.Path {
	return neo4j.Path{
		Nodes:         []neo4j.Node{start, end},
		Relationships: []neo4j.Relationship{rel},
	}
}
