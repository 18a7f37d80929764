// Package rulespec parses the textual rule syntax into core match
// rules. One declaration per line (or semicolon-separated):
//
//	prefix "on" => strip
//	suffix "Listener"
//	regex "^(get|set)[A-Z]"
//	includes "fetch" => lower
//	all
//
// Kinds: prefix, suffix, includes, regex, all. Transforms: strip
// (remove the matched affix), lower (lowercase the key), keep (emit
// the key unchanged, the default). Comments run from # to end of line.
package rulespec

type TokenType int

const (
	ILLEGAL TokenType = iota
	EOF

	IDENT  // rule kinds and transform names
	STRING // quoted patterns

	ARROW     // =>
	SEPARATOR // newline or ;
)

type Token struct {
	Type    TokenType
	Literal string
	Line    int
	Column  int
}

type Lexer struct {
	input        string
	position     int
	readPosition int
	ch           byte
	line         int
	column       int
}

func NewLexer(input string) *Lexer {
	l := &Lexer{
		input: input,
		line:  1,
	}
	l.readChar()
	return l
}

func (l *Lexer) readChar() {
	if l.readPosition >= len(l.input) {
		l.ch = 0
	} else {
		l.ch = l.input[l.readPosition]
	}
	l.position = l.readPosition
	l.readPosition++
	if l.ch == '\n' {
		l.line++
		l.column = 0
	} else {
		l.column++
	}
}

func (l *Lexer) peekChar() byte {
	if l.readPosition >= len(l.input) {
		return 0
	}
	return l.input[l.readPosition]
}

func (l *Lexer) NextToken() Token {
	l.skipBlanksAndComments()

	tok := Token{Line: l.line, Column: l.column}

	switch l.ch {
	case 0:
		tok.Type = EOF
	case '\n', ';':
		tok.Type = SEPARATOR
		tok.Literal = string(l.ch)
		l.readChar()
	case '=':
		if l.peekChar() == '>' {
			tok.Type = ARROW
			tok.Literal = "=>"
			l.readChar()
			l.readChar()
		} else {
			tok.Type = ILLEGAL
			tok.Literal = string(l.ch)
			l.readChar()
		}
	case '"':
		tok.Type = STRING
		tok.Literal = l.readString()
	default:
		if isLetter(l.ch) {
			tok.Type = IDENT
			tok.Literal = l.readIdentifier()
		} else {
			tok.Type = ILLEGAL
			tok.Literal = string(l.ch)
			l.readChar()
		}
	}
	return tok
}

// skipBlanksAndComments consumes spaces, tabs, carriage returns, and
// # comments, but not newlines: those are separators.
func (l *Lexer) skipBlanksAndComments() {
	for {
		switch l.ch {
		case ' ', '\t', '\r':
			l.readChar()
		case '#':
			for l.ch != '\n' && l.ch != 0 {
				l.readChar()
			}
		default:
			return
		}
	}
}

func (l *Lexer) readIdentifier() string {
	start := l.position
	for isLetter(l.ch) || isDigit(l.ch) {
		l.readChar()
	}
	return l.input[start:l.position]
}

// readString consumes a double-quoted pattern. Backslash escapes the
// next character, which keeps regex patterns writable.
func (l *Lexer) readString() string {
	var out []byte
	l.readChar() // opening quote
	for l.ch != '"' && l.ch != 0 {
		if l.ch == '\\' && l.peekChar() == '"' {
			l.readChar()
		}
		out = append(out, l.ch)
		l.readChar()
	}
	l.readChar() // closing quote
	return string(out)
}

func isLetter(ch byte) bool {
	return 'a' <= ch && ch <= 'z' || 'A' <= ch && ch <= 'Z' || ch == '_'
}

func isDigit(ch byte) bool {
	return '0' <= ch && ch <= '9'
}
