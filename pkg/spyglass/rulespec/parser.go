package rulespec

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/chosenoffset/spyglass/pkg/spyglass"
	"github.com/chosenoffset/spyglass/pkg/spyglass/object"
)

// Parser turns token streams into core rules, accumulating errors
// instead of stopping at the first one.
type Parser struct {
	lexer  *Lexer
	cur    Token
	peek   Token
	errors []string
}

func New(lexer *Lexer) *Parser {
	p := &Parser{lexer: lexer}
	p.nextToken()
	p.nextToken()
	return p
}

func (p *Parser) nextToken() {
	p.cur = p.peek
	p.peek = p.lexer.NextToken()
}

// Errors returns the accumulated parse errors.
func (p *Parser) Errors() []string {
	return p.errors
}

func (p *Parser) errorf(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	p.errors = append(p.errors, fmt.Sprintf("line %d: %s", p.cur.Line, msg))
}

// ParseRules consumes the whole input and returns every rule that
// parsed cleanly. Check Errors afterward.
func (p *Parser) ParseRules() []spyglass.Rule {
	var rules []spyglass.Rule
	for p.cur.Type != EOF {
		if p.cur.Type == SEPARATOR {
			p.nextToken()
			continue
		}
		if rule, ok := p.parseRule(); ok {
			rules = append(rules, rule)
		}
		p.skipToSeparator()
	}
	return rules
}

func (p *Parser) parseRule() (spyglass.Rule, bool) {
	var rule spyglass.Rule

	if p.cur.Type != IDENT {
		p.errorf("expected rule kind, got %q", p.cur.Literal)
		return rule, false
	}
	kind := p.cur.Literal

	if kind == "all" {
		rule = spyglass.MatchAll()
		p.nextToken()
		return p.parseTransform(rule, "all")
	}

	switch kind {
	case "prefix":
		rule.Kind = spyglass.MatchPrefix
	case "suffix":
		rule.Kind = spyglass.MatchSuffix
	case "includes":
		rule.Kind = spyglass.MatchIncludes
	case "regex":
		rule.Kind = spyglass.MatchRegex
	default:
		p.errorf("unknown rule kind %q", kind)
		return rule, false
	}
	p.nextToken()

	if p.cur.Type != STRING {
		p.errorf("expected quoted pattern after %q, got %q", kind, p.cur.Literal)
		return rule, false
	}
	pattern := p.cur.Literal
	if rule.Kind == spyglass.MatchRegex {
		re, err := regexp.Compile(pattern)
		if err != nil {
			p.errorf("bad regex %q: %v", pattern, err)
			return rule, false
		}
		rule.Regex = re
	} else {
		if pattern == "" {
			p.errorf("empty pattern for %q rule", kind)
			return rule, false
		}
		rule.Pattern = pattern
	}
	p.nextToken()

	return p.parseTransform(rule, kind)
}

func (p *Parser) parseTransform(rule spyglass.Rule, kind string) (spyglass.Rule, bool) {
	if p.cur.Type != ARROW {
		return rule, true
	}
	p.nextToken()
	if p.cur.Type != IDENT {
		p.errorf("expected transform name after =>, got %q", p.cur.Literal)
		return rule, false
	}
	switch p.cur.Literal {
	case "keep":
		// Default behavior: output the key.
	case "strip":
		if rule.Kind != spyglass.MatchPrefix && rule.Kind != spyglass.MatchSuffix {
			p.errorf("strip transform requires a prefix or suffix rule, not %q", kind)
			return rule, false
		}
		rule.Transform = spyglass.StripAffix(rule.Kind)
	case "lower":
		rule.Transform = lowerTransform
	default:
		p.errorf("unknown transform %q", p.cur.Literal)
		return rule, false
	}
	p.nextToken()
	return rule, true
}

func (p *Parser) skipToSeparator() {
	for p.cur.Type != SEPARATOR && p.cur.Type != EOF {
		p.nextToken()
	}
}

func lowerTransform(key string, _ object.Value, _ string) string {
	return strings.ToLower(key)
}

// Compile parses src and returns the rules, or an error aggregating
// every parse problem.
func Compile(src string) ([]spyglass.Rule, error) {
	p := New(NewLexer(src))
	rules := p.ParseRules()
	if errs := p.Errors(); len(errs) > 0 {
		return nil, fmt.Errorf("rulespec: %s", strings.Join(errs, "; "))
	}
	return rules, nil
}

// MustCompile is Compile for known-good sources; it panics on error.
func MustCompile(src string) []spyglass.Rule {
	rules, err := Compile(src)
	if err != nil {
		panic(err)
	}
	return rules
}
