// Package provider implements the external search API clients and their
// shared plumbing: credential rotation, rate limiting, circuit breaking and
// response normalization.
package provider

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Kind groups providers by the phase that dispatches them.
type Kind int

const (
	KindWeb Kind = iota
	KindVideo
	KindSocial
	KindTrends
)

func (k Kind) String() string {
	switch k {
	case KindWeb:
		return "web"
	case KindVideo:
		return "video"
	case KindSocial:
		return "social"
	case KindTrends:
		return "trends"
	default:
		return "unknown"
	}
}

// SocialStats carries engagement numbers attached to a result when the
// provider returns them. Missing fields stay zero.
type SocialStats struct {
	Platform        string `json:"platform"`
	Views           int64  `json:"views,omitempty"`
	Likes           int64  `json:"likes,omitempty"`
	Comments        int64  `json:"comments,omitempty"`
	Shares          int64  `json:"shares,omitempty"`
	Retweets        int64  `json:"retweets,omitempty"`
	Replies         int64  `json:"replies,omitempty"`
	Quotes          int64  `json:"quotes,omitempty"`
	Author          string `json:"author,omitempty"`
	AuthorFollowers int64  `json:"author_followers,omitempty"`
}

// SearchResult is the normalized result shape every client emits.
type SearchResult struct {
	Title       string       `json:"title"`
	URL         string       `json:"url"`
	Snippet     string       `json:"snippet,omitempty"`
	Source      string       `json:"source"`
	Relevance   float64      `json:"relevance_score"`
	PublishedAt time.Time    `json:"published_at,omitzero"`
	Social      *SocialStats `json:"social,omitempty"`
}

// Status discriminates a provider response.
type Status int

const (
	// StatusOK means the call succeeded (possibly with zero results).
	StatusOK Status = iota

	// StatusSoftFailure means the provider could not serve this run
	// (all keys cooling, breaker open, empty response, transport error).
	StatusSoftFailure
)

// Response is the uniform outcome of one Search call. Errors never escape
// as Go errors past this type: a failed provider yields a soft failure the
// orchestrator records and moves on from.
type Response struct {
	Provider string
	Status   Status
	Results  []SearchResult
	Reason   string
}

// Success builds an OK response.
func Success(provider string, results []SearchResult) Response {
	return Response{Provider: provider, Status: StatusOK, Results: results}
}

// SoftFail builds a soft-failure response.
func SoftFail(provider, reason string) Response {
	return Response{Provider: provider, Status: StatusSoftFailure, Reason: reason}
}

// OK reports whether the call succeeded; the result list may still be empty.
func (r Response) OK() bool { return r.Status == StatusOK }

// Limits bounds one Search call.
type Limits struct {
	MaxResults int
}

// Searcher is the uniform capability every provider client implements.
type Searcher interface {
	Name() string
	Kind() Kind
	Search(ctx context.Context, query string, limits Limits) Response
}

// Registry holds registered searchers in priority order.
type Registry struct {
	mu       sync.RWMutex
	order    []string
	searcher map[string]Searcher
	priority map[string]int
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		searcher: make(map[string]Searcher),
		priority: make(map[string]int),
	}
}

// Register adds a searcher. Lower priority sorts first; registration order
// breaks ties.
func (r *Registry) Register(s Searcher, priority int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	name := s.Name()
	if _, dup := r.searcher[name]; !dup {
		r.order = append(r.order, name)
	}
	r.searcher[name] = s
	r.priority[name] = priority
	sort.SliceStable(r.order, func(i, j int) bool {
		return r.priority[r.order[i]] < r.priority[r.order[j]]
	})
}

// ByKind returns the registered searchers of one kind, in priority order.
func (r *Registry) ByKind(kind Kind) []Searcher {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Searcher
	for _, name := range r.order {
		if s := r.searcher[name]; s.Kind() == kind {
			out = append(out, s)
		}
	}
	return out
}

// Get returns a searcher by name.
func (r *Registry) Get(name string) (Searcher, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.searcher[name]
	return s, ok
}

// Names returns every registered provider name in priority order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}

// Priority returns the registered priority for tie-breaking at
// aggregation time.
func (r *Registry) Priority(name string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.priority[name]
}
