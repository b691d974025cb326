package commands

import (
	"fmt"
	"strings"
	"sync"

	"botcore/pkg/args"
)

// Base collection defaults.
const (
	BaseCollectionName        = "Basic"
	BaseCollectionDescription = "Contains all basic commands"
)

// Collection groups related commands for help listings.
type Collection struct {
	Name        string
	Description string

	mu       sync.RWMutex
	commands []*Command
}

// Commands returns the commands in registration order.
func (c *Collection) Commands() []*Command {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]*Command(nil), c.commands...)
}

// Len returns the number of commands in the collection.
func (c *Collection) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.commands)
}

func (c *Collection) add(cmd *Command) {
	c.mu.Lock()
	c.commands = append(c.commands, cmd)
	c.mu.Unlock()
}

// String returns the collection name.
func (c *Collection) String() string { return c.Name }

// Registry manages command registration and lookup. Registration happens at
// startup; Seal ends the registration phase before traffic is accepted.
type Registry struct {
	mu          sync.RWMutex
	parsers     *args.Registry
	commands    map[string]*Command
	ordered     []*Command
	collections []*Collection
	base        *Collection
	sealed      bool
}

// NewRegistry creates a registry validating argument types against parsers.
func NewRegistry(parsers *args.Registry) *Registry {
	return &Registry{
		parsers:  parsers,
		commands: make(map[string]*Command),
		base:     &Collection{Name: BaseCollectionName, Description: BaseCollectionDescription},
	}
}

// Parsers returns the argument parser registry.
func (r *Registry) Parsers() *args.Registry {
	return r.parsers
}

// Base returns the default collection.
func (r *Registry) Base() *Collection {
	return r.base
}

// NewCollection creates and registers a collection. Names are unique,
// compared case-insensitively.
func (r *Registry) NewCollection(name, description string) (*Collection, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("collection name cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.sealed {
		return nil, fmt.Errorf("collection %s: registry is sealed", name)
	}
	if strings.EqualFold(name, r.base.Name) {
		return nil, fmt.Errorf("collection %s already registered", name)
	}
	for _, c := range r.collections {
		if strings.EqualFold(c.Name, name) {
			return nil, fmt.Errorf("collection %s already registered", name)
		}
	}

	c := &Collection{Name: name, Description: description}
	r.collections = append(r.collections, c)
	return c, nil
}

// Register validates cmd, derives its argument bounds and context
// requirements, and adds it under identifier to collection (the base
// collection when nil). The first registration of an identifier wins.
func (r *Registry) Register(identifier string, cmd *Command, collection *Collection) error {
	identifier = strings.TrimSpace(identifier)
	fail := func(format string, a ...any) error {
		return &SetupError{Identifier: identifier, Reason: fmt.Sprintf(format, a...)}
	}

	if identifier == "" {
		return fail("identifier cannot be empty")
	}
	if strings.ContainsRune(identifier, ':') {
		return fail("identifier cannot contain ':'")
	}
	if cmd == nil {
		return fail("command cannot be nil")
	}
	if cmd.Behavior == nil {
		return fail("no behavior bound")
	}
	if cmd.Behavior.ExecMethod() == None {
		return fail("no execution handler bound for any context")
	}
	if strings.TrimSpace(cmd.Summary) == "" {
		return fail("summary cannot be empty")
	}

	minArgs, maxArgs, err := argumentBounds(cmd.Arguments)
	if err != nil {
		return fail("%v", err)
	}
	for _, a := range cmd.Arguments {
		if a.Type != nil && r.parsers != nil && !r.parsers.Has(a.Type) {
			return fail("argument %q: no parser registered for %s", a.Name, a.Type)
		}
	}

	requireGuild := cmd.Behavior.ParseMethod() == GuildOnly || cmd.Behavior.ExecMethod() == GuildOnly
	for _, list := range [][]Precondition{cmd.ExecutePreconditions, cmd.ViewPreconditions} {
		for _, p := range list {
			if err := p.validate(); err != nil {
				return fail("%v", err)
			}
			requireGuild = requireGuild || p.RequireGuild
		}
	}

	if collection == nil {
		collection = r.base
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.sealed {
		return fail("registry is sealed")
	}
	if cmd.identifier != "" {
		return fail("command instance already registered as %q", cmd.identifier)
	}
	if _, exists := r.commands[identifier]; exists {
		return fail("command %s already registered", identifier)
	}

	cmd.identifier = identifier
	cmd.collection = collection
	cmd.minArgs = minArgs
	cmd.maxArgs = maxArgs
	cmd.requireGuild = requireGuild

	r.commands[identifier] = cmd
	r.ordered = append(r.ordered, cmd)
	collection.add(cmd)
	return nil
}

// Seal ends the registration phase.
func (r *Registry) Seal() {
	r.mu.Lock()
	r.sealed = true
	r.mu.Unlock()
}

// Sealed reports whether the registration phase has ended.
func (r *Registry) Sealed() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sealed
}

// Lookup retrieves a command by exact identifier.
func (r *Registry) Lookup(identifier string) (*Command, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cmd, ok := r.commands[identifier]
	return cmd, ok
}

// Resolve looks up identifier and classifies n observed arguments against
// the command's bounds.
func (r *Registry) Resolve(identifier string, n int) (*Command, SearchResult) {
	cmd, ok := r.Lookup(identifier)
	if !ok {
		return nil, NoMatch
	}
	switch {
	case n > cmd.maxArgs:
		return cmd, TooManyArguments
	case n < cmd.minArgs:
		return cmd, TooFewArguments
	default:
		return cmd, PerfectMatch
	}
}

// Commands returns all commands in registration order.
func (r *Registry) Commands() []*Command {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]*Command(nil), r.ordered...)
}

// Collections returns the non-base collections in creation order.
func (r *Registry) Collections() []*Collection {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]*Collection(nil), r.collections...)
}

// Collection finds a collection by name, case-insensitively. The base
// collection is included.
func (r *Registry) Collection(name string) (*Collection, bool) {
	if strings.EqualFold(name, r.base.Name) {
		return r.base, true
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, c := range r.collections {
		if strings.EqualFold(c.Name, name) {
			return c, true
		}
	}
	return nil, false
}
