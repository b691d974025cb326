// Package commands turns message text into typed, precondition-checked
// command invocations: text parsing, the command registry, preconditions,
// and the per-context handler bindings.
package commands

import (
	"fmt"
	"math"
	"reflect"
	"strings"
)

// Unbounded is the maximum argument count of a command with a Multiple argument.
const Unbounded = math.MaxInt

// Embed colors.
const (
	ColorDefault = 0xFFFFFF
	ColorError   = 0xFF0000
)

// HandledContexts classifies which contexts a parse or execute step supports.
type HandledContexts int

const (
	None HandledContexts = iota
	DMOnly
	GuildOnly
	Both
)

// String implements fmt.Stringer.
func (h HandledContexts) String() string {
	switch h {
	case None:
		return "None"
	case DMOnly:
		return "DMOnly"
	case GuildOnly:
		return "GuildOnly"
	case Both:
		return "Both"
	default:
		return fmt.Sprintf("HandledContexts(%d)", int(h))
	}
}

// ContextKind is where a message was sent.
type ContextKind int

const (
	KindDM ContextKind = iota
	KindGuild
)

// String implements fmt.Stringer.
func (k ContextKind) String() string {
	if k == KindGuild {
		return "Guild"
	}
	return "DM"
}

// SearchResult is the outcome of resolving an identifier and argument count.
type SearchResult int

const (
	NoMatch SearchResult = iota
	PerfectMatch
	TooFewArguments
	TooManyArguments
)

// String implements fmt.Stringer.
func (r SearchResult) String() string {
	switch r {
	case NoMatch:
		return "NoMatch"
	case PerfectMatch:
		return "PerfectMatch"
	case TooFewArguments:
		return "TooFewArguments"
	case TooManyArguments:
		return "TooManyArguments"
	default:
		return fmt.Sprintf("SearchResult(%d)", int(r))
	}
}

// Argument describes one positional argument of a command.
type Argument struct {
	Name string
	Help string
	// Optional arguments must all come after the required ones.
	Optional bool
	// Multiple consumes all remaining tokens; only valid on the last argument.
	Multiple bool
	// Type, when set, must have a parser in the argument parser registry.
	Type reflect.Type
}

// String renders the argument as <name>, (name) or [name].
func (a Argument) String() string {
	switch {
	case a.Multiple:
		return "[" + a.Name + "]"
	case a.Optional:
		return "(" + a.Name + ")"
	default:
		return "<" + a.Name + ">"
	}
}

// Command is a registered command. Populate the exported descriptor fields
// and pass it to Registry.Register; it must not be modified afterwards.
type Command struct {
	Summary string
	Remarks string
	Link    string

	Arguments            []Argument
	ExecutePreconditions []Precondition
	ViewPreconditions    []Precondition

	// Async commands run on the work queue instead of the ingestion path.
	Async    bool
	Behavior Behavior

	identifier   string
	collection   *Collection
	minArgs      int
	maxArgs      int
	requireGuild bool
}

// Identifier returns the registered identifier.
func (c *Command) Identifier() string { return c.identifier }

// Collection returns the owning collection.
func (c *Command) Collection() *Collection { return c.collection }

// MinimumArgumentCount is the number of leading required arguments.
func (c *Command) MinimumArgumentCount() int { return c.minArgs }

// MaximumArgumentCount is the declared argument count, or Unbounded.
func (c *Command) MaximumArgumentCount() int { return c.maxArgs }

// RequireGuildContext reports whether the command can only run inside a guild.
func (c *Command) RequireGuildContext() bool { return c.requireGuild }

// ParseMethod returns the contexts the argument parsing step supports.
func (c *Command) ParseMethod() HandledContexts { return c.Behavior.ParseMethod() }

// ExecMethod returns the contexts the execution step supports.
func (c *Command) ExecMethod() HandledContexts { return c.Behavior.ExecMethod() }

// Accepts reports whether n arguments fall inside [min, max].
func (c *Command) Accepts(n int) bool {
	return n >= c.minArgs && n <= c.maxArgs
}

// String returns the identifier.
func (c *Command) String() string { return c.identifier }

// argumentBounds derives min and max argument counts and validates the
// argument ordering rules.
func argumentBounds(arguments []Argument) (minArgs, maxArgs int, err error) {
	maxArgs = len(arguments)
	seenOptional := false
	for i, a := range arguments {
		if strings.TrimSpace(a.Name) == "" {
			return 0, 0, fmt.Errorf("argument %d has no name", i)
		}
		if a.Multiple {
			if i != len(arguments)-1 {
				return 0, 0, fmt.Errorf("argument %q is Multiple but not last", a.Name)
			}
			maxArgs = Unbounded
		}
		if a.Optional {
			seenOptional = true
			continue
		}
		if seenOptional {
			return 0, 0, fmt.Errorf("required argument %q follows an optional one", a.Name)
		}
		minArgs = i + 1
	}
	return minArgs, maxArgs, nil
}

// SetupError is a malformed command registration.
type SetupError struct {
	Identifier string
	Reason     string
}

// Error implements the error interface.
func (e *SetupError) Error() string {
	return fmt.Sprintf("registering command %q: %s", e.Identifier, e.Reason)
}

// ParseError is a user-facing argument parsing failure.
type ParseError struct {
	Argument string
	Reason   string
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	if e.Argument == "" {
		return e.Reason
	}
	return fmt.Sprintf("*`%s`*: %s", e.Argument, e.Reason)
}

// Invalid builds a ParseError for argument.
func Invalid(argument, reason string) *ParseError {
	return &ParseError{Argument: argument, Reason: reason}
}

// PreconditionError aggregates failed precondition checks.
type PreconditionError struct {
	Failures []string
}

// Error implements the error interface.
func (e *PreconditionError) Error() string {
	return strings.Join(e.Failures, "\n")
}
