package commands

import (
	"strings"
	"sync"
)

// DefaultPrefix is the prefix used when none is configured.
const DefaultPrefix = "/"

// Text is a message split into a command identifier and its raw arguments.
type Text struct {
	Identifier      string
	ArgumentSection string
	Arguments       []string
}

// Count returns the number of argument tokens.
func (t Text) Count() int {
	return len(t.Arguments)
}

// Parser splits message content of the form "<prefix><identifier>[: a, b]".
type Parser struct {
	mu     sync.RWMutex
	prefix string

	// DropTrailingEmpty removes a final empty token, so "/cmd: a," has one argument.
	DropTrailingEmpty bool
}

// NewParser creates a parser for prefix. An empty prefix falls back to DefaultPrefix.
func NewParser(prefix string) *Parser {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Parser{prefix: prefix}
}

// Prefix returns the current command prefix.
func (p *Parser) Prefix() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.prefix
}

// SetPrefix swaps the command prefix. Empty prefixes are ignored.
func (p *Parser) SetPrefix(prefix string) {
	if prefix == "" {
		return
	}
	p.mu.Lock()
	p.prefix = prefix
	p.mu.Unlock()
}

// IsPotentialCommand reports whether content starts with the prefix and has
// something after it.
func (p *Parser) IsPotentialCommand(content string) bool {
	prefix := p.Prefix()
	return strings.HasPrefix(content, prefix) && len(content) > len(prefix)
}

// Parse splits content into identifier and argument tokens. ok is false when
// content is not a potential command.
func (p *Parser) Parse(content string) (Text, bool) {
	prefix := p.Prefix()
	if !strings.HasPrefix(content, prefix) || len(content) <= len(prefix) {
		return Text{}, false
	}

	body := strings.TrimSpace(content[len(prefix):])
	colon := indexUnescaped(body, ':')
	if colon < 0 {
		return Text{Identifier: body}, true
	}

	text := Text{Identifier: strings.TrimSpace(body[:colon])}
	if colon == len(body)-1 {
		return text, true
	}

	text.ArgumentSection = body[colon+1:]
	text.Arguments = Tokenize(text.ArgumentSection)
	if p.DropTrailingEmpty {
		if n := len(text.Arguments); n > 0 && text.Arguments[n-1] == "" {
			text.Arguments = text.Arguments[:n-1]
		}
	}
	return text, true
}

// Syntax renders the invocation syntax of a command, e.g. "/man: (Command Identifier)".
func (p *Parser) Syntax(identifier string, arguments ...Argument) string {
	syntax := p.Prefix() + identifier
	if len(arguments) == 0 {
		return syntax
	}
	parts := make([]string, len(arguments))
	for i, a := range arguments {
		parts[i] = a.String()
	}
	return syntax + ": " + strings.Join(parts, ", ")
}

// Invocation renders message content that invokes identifier with tokens.
func (p *Parser) Invocation(identifier string, tokens ...string) string {
	if len(tokens) == 0 {
		return p.Prefix() + identifier
	}
	return p.Prefix() + identifier + ": " + Join(tokens)
}

// Tokenize splits an argument section at unescaped commas. Each token is
// trimmed and "\," becomes ",". An empty or blank section has no tokens;
// consecutive commas produce empty tokens.
func Tokenize(section string) []string {
	if strings.TrimSpace(section) == "" {
		return nil
	}

	count := 1
	for i := 0; i < len(section); i++ {
		if section[i] == ',' && !escaped(section, i) {
			count++
		}
	}

	tokens := make([]string, 0, count)
	start := 0
	for i := 0; i < len(section); i++ {
		if section[i] == ',' && !escaped(section, i) {
			tokens = append(tokens, unescapeToken(section[start:i]))
			start = i + 1
		}
	}
	tokens = append(tokens, unescapeToken(section[start:]))
	return tokens
}

// Join is the inverse of Tokenize for trimmed tokens: commas are escaped and
// tokens are separated by ", ".
func Join(tokens []string) string {
	var sb strings.Builder
	for i, t := range tokens {
		if i > 0 {
			// A token ending in a backslash would escape the separator.
			if strings.HasSuffix(tokens[i-1], `\`) {
				sb.WriteByte(' ')
			}
			sb.WriteString(", ")
		}
		sb.WriteString(strings.ReplaceAll(t, ",", `\,`))
	}
	return sb.String()
}

// RemoveArgumentsFront drops the first count tokens from section and returns
// the remaining raw text.
func RemoveArgumentsFront(count int, section string) string {
	if count <= 0 {
		return strings.TrimSpace(section)
	}
	seen := 0
	for i := 0; i < len(section); i++ {
		if section[i] == ',' && !escaped(section, i) {
			seen++
			if seen == count {
				return strings.TrimSpace(section[i+1:])
			}
		}
	}
	return ""
}

func escaped(s string, i int) bool {
	return i > 0 && s[i-1] == '\\'
}

func indexUnescaped(s string, c byte) int {
	for i := 0; i < len(s); i++ {
		if s[i] == c && !escaped(s, i) {
			return i
		}
	}
	return -1
}

func unescapeToken(raw string) string {
	return strings.ReplaceAll(strings.TrimSpace(raw), `\,`, ",")
}
