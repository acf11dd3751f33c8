// Package llm talks to chat-completion APIs on behalf of the interviewer,
// the assessor and the code judge.
package llm

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
)

var (
	ErrProviderNotFound  = errors.New("provider not found")
	ErrNoDefaultProvider = errors.New("no llm provider registered")
	ErrEmptyResponse     = errors.New("empty response")
)

// Provider is one chat-completion backend. Every collaborator call is a
// single non-streaming completion.
type Provider interface {
	Name() string
	Generate(ctx context.Context, req *Request) (*Response, error)
}

// Request is one completion. System carries the collaborator's persona and
// rubric; Messages carry the interview transcript or the submission.
type Request struct {
	Model       string // empty uses the provider's configured model
	Messages    []Message
	MaxTokens   int
	Temperature float64
	StopSeqs    []string
	System      string
	JSON        bool // judge and assessor replies must be a JSON object
}

// Message is one chat turn.
type Message struct {
	Role    Role
	Content string
}

// Role is the chat role of a message. Candidate turns map to RoleUser and
// interviewer turns to RoleAssistant.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Response is the completion text plus accounting.
type Response struct {
	Content      string
	FinishReason string
	Usage        Usage
}

// Usage counts tokens for one completion.
type Usage struct {
	InputTokens  int
	OutputTokens int
}

// APIError is a non-2xx answer from a provider's HTTP API.
type APIError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s API error (status %d): %s", e.Provider, e.StatusCode, e.Body)
}

// Registry holds the configured providers. Collaborators resolve their
// provider per call through Default, so a provider registered after startup
// is picked up without rewiring.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]Provider
	order     []string
	preferred string
}

func NewRegistry() *Registry {
	return &Registry{providers: make(map[string]Provider)}
}

// Register adds or replaces the provider under name.
func (r *Registry) Register(name string, p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.providers[name]; !ok {
		r.order = append(r.order, name)
	}
	r.providers[name] = p
}

// SetDefault picks the provider Default returns.
func (r *Registry) SetDefault(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.providers[name]; !ok {
		return fmt.Errorf("%w: %s", ErrProviderNotFound, name)
	}
	r.preferred = name
	return nil
}

func (r *Registry) Get(name string) (Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.providers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrProviderNotFound, name)
	}
	return p, nil
}

// Default returns the preferred provider, or the first one registered.
func (r *Registry) Default() (Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if p, ok := r.providers[r.preferred]; ok {
		return p, nil
	}
	if len(r.order) == 0 {
		return nil, ErrNoDefaultProvider
	}
	return r.providers[r.order[0]], nil
}

// List returns the registered names in sorted order.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := slices.Clone(r.order)
	slices.Sort(names)
	return names
}

func (r *Registry) DefaultName() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.preferred
}

// Close stops providers that hold background resources, such as the
// resilient wrapper's rate limiter.
func (r *Registry) Close() error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var errs []error
	for _, name := range r.order {
		if c, ok := r.providers[name].(interface{ Close() error }); ok {
			errs = append(errs, c.Close())
		}
	}
	return errors.Join(errs...)
}
