// Package args resolves raw command argument tokens into typed values.
//
// Parsers are registered per target type as a pair of functions: one that
// works anywhere and one that may rely on guild identity. Parse picks the
// guild-aware function whenever the invocation scope carries a guild.
package args

import (
	"context"
	"fmt"
	"reflect"
	"sync"

	"botcore/pkg/platform"
)

// ReasonNoParser is reported when a type has no registered parser.
const ReasonNoParser = "Could not locate an argument parser for the type"

// Scope is the part of an invocation that parsers may consult.
type Scope interface {
	// GuildID is empty for direct messages.
	GuildID() string
	AuthorID() string
	ChannelID() string
	Directory() platform.Directory
}

// Func parses a single raw token.
type Func[T any] func(ctx context.Context, s Scope, token string) (T, bool)

// ParseError is a failed typed argument resolution.
type ParseError struct {
	Type   reflect.Type
	Token  string
	Reason string
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	return e.Reason
}

// For renders the failure for a named argument, e.g. "*`User`*: reason".
func (e *ParseError) For(argument string) string {
	return fmt.Sprintf("*`%s`*: %s", argument, e.Reason)
}

type entry struct {
	parse      any
	guildParse any
	reason     string
}

// Registry maps target types to their parsers.
type Registry struct {
	mu      sync.RWMutex
	parsers map[reflect.Type]entry
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{parsers: make(map[reflect.Type]entry)}
}

// NewDefaultRegistry creates a registry holding the built-in parsers.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	registerBuiltins(r)
	return r
}

// Register binds parsers for T. A nil guildParse reuses parse inside guilds;
// a nil parse makes T unavailable outside guilds. Registering T again
// replaces the previous pair.
func Register[T any](r *Registry, parse, guildParse Func[T], reason string) error {
	if parse == nil && guildParse == nil {
		return fmt.Errorf("registering parser for %s: no parse function", reflect.TypeFor[T]())
	}
	if guildParse == nil {
		guildParse = parse
	}

	var p any
	if parse != nil {
		p = parse
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.parsers[reflect.TypeFor[T]()] = entry{parse: p, guildParse: guildParse, reason: reason}
	return nil
}

// Has reports whether a parser is registered for t.
func (r *Registry) Has(t reflect.Type) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.parsers[t]
	return ok
}

// Types lists the registered target types.
func (r *Registry) Types() []reflect.Type {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]reflect.Type, 0, len(r.parsers))
	for t := range r.parsers {
		out = append(out, t)
	}
	return out
}

// Parse resolves token into a T using the parser registered for T.
func Parse[T any](ctx context.Context, r *Registry, s Scope, token string) (T, error) {
	var zero T
	t := reflect.TypeFor[T]()

	r.mu.RLock()
	e, ok := r.parsers[t]
	r.mu.RUnlock()
	if !ok {
		return zero, &ParseError{Type: t, Token: token, Reason: ReasonNoParser}
	}

	fn := e.parse
	if s.GuildID() != "" {
		fn = e.guildParse
	}
	if fn == nil {
		return zero, &ParseError{Type: t, Token: token, Reason: e.reason}
	}

	v, ok := fn.(Func[T])(ctx, s, token)
	if !ok {
		return zero, &ParseError{Type: t, Token: token, Reason: e.reason}
	}
	return v, nil
}

// Reason returns the failure reason registered for t.
func (r *Registry) Reason(t reflect.Type) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if e, ok := r.parsers[t]; ok {
		return e.reason
	}
	return ReasonNoParser
}
