package cif

import (
	"strings"
)

// Lexer tokenizes CIF 1.1 text. Tokens are produced on demand by Next; the
// lexer holds only its cursor, so memory use does not grow with the input.
type Lexer struct {
	input string
	file  string
	pos   int // Current byte offset in input
	line  int // Current line number (1-based)
	col   int // Current column number (1-based, in runes)
}

// NewLexer creates a new lexer for the given input. A leading UTF-8 byte
// order mark is skipped; offsets still count its bytes.
func NewLexer(input string) *Lexer {
	l := &Lexer{
		input: input,
		line:  1,
		col:   1,
	}
	if strings.HasPrefix(input, byteOrderMark) {
		l.pos = len(byteOrderMark)
	}
	return l
}

const byteOrderMark = "\ufeff"

// WithFilename sets the file name reported in token positions.
func (l *Lexer) WithFilename(name string) *Lexer {
	l.file = name
	return l
}

// Next returns the next token. Once the input is exhausted it keeps
// returning a TokenEOF token.
func (l *Lexer) Next() (Token, error) {
	l.skipWhitespace()

	start := l.currentPos()
	if l.pos >= len(l.input) {
		return Token{Kind: TokenEOF, Pos: start}, nil
	}

	switch ch := l.peek(); {
	case ch == '#':
		return l.scanComment(start)
	case ch == ';' && l.col == 1:
		return l.scanTextField(start)
	case ch == '\'' || ch == '"':
		return l.scanQuoted(start, ch)
	default:
		return l.scanWord(start)
	}
}

// scanComment consumes a comment up to, but not including, the line break.
func (l *Lexer) scanComment(start Position) (Token, error) {
	l.advance() // consume #
	begin := l.pos
	for l.pos < len(l.input) && l.peek() != '\n' {
		if ch := l.peek(); isControl(ch) {
			return Token{}, lexErrorf(l.currentPos(), "unexpected character %q in comment", ch)
		}
		l.advance()
	}
	return Token{Kind: TokenComment, Value: strings.TrimSuffix(l.input[begin:l.pos], "\r"), Pos: start}, nil
}

// scanTextField scans a semicolon-delimited text field. The value runs from
// just after the opening semicolon to the line break that precedes the
// closing semicolon.
func (l *Lexer) scanTextField(start Position) (Token, error) {
	begin := l.pos + 1
	end := strings.Index(l.input[begin:], "\n;")
	if end < 0 {
		return Token{}, lexErrorf(start, "unterminated text field")
	}
	end += begin

	// Skip to the closing semicolon, then past it.
	for l.pos <= end+1 {
		if ch := l.peek(); l.pos >= begin && l.pos < end && isControl(ch) {
			return Token{}, lexErrorf(l.currentPos(), "unexpected character %q in text field", ch)
		}
		l.advance()
	}

	value := strings.TrimSuffix(l.input[begin:end], "\r")
	return Token{Kind: TokenTextField, Value: value, Pos: start}, nil
}

// scanQuoted scans a single- or double-quoted string. The closing quote must
// be followed by whitespace or the end of input; any other occurrence of the
// quote character is part of the content.
func (l *Lexer) scanQuoted(start Position, quote byte) (Token, error) {
	l.advance() // consume opening quote
	begin := l.pos

	for {
		if l.pos >= len(l.input) {
			return Token{}, lexErrorf(start, "unterminated quoted string")
		}
		ch := l.peek()
		if ch == '\n' || ch == '\r' {
			return Token{}, lexErrorf(start, "unterminated quoted string")
		}
		if isControl(ch) {
			return Token{}, lexErrorf(l.currentPos(), "unexpected character %q in quoted string", ch)
		}
		if ch == quote && (l.pos+1 >= len(l.input) || isWhitespace(l.input[l.pos+1])) {
			value := l.input[begin:l.pos]
			l.advance() // consume closing quote
			return Token{Kind: TokenQuoted, Value: value, Pos: start}, nil
		}
		l.advance()
	}
}

// scanWord scans a whitespace-delimited token and classifies it as a
// keyword, a tag or an unquoted value.
func (l *Lexer) scanWord(start Position) (Token, error) {
	begin := l.pos
	for l.pos < len(l.input) && !isWhitespace(l.peek()) {
		if ch := l.peek(); isControl(ch) {
			return Token{}, lexErrorf(l.currentPos(), "unexpected character %q", ch)
		}
		l.advance()
	}
	word := l.input[begin:l.pos]

	if word[0] == '_' {
		if len(word) == 1 {
			return Token{}, lexErrorf(start, "tag has no name")
		}
		return Token{Kind: TokenTag, Value: word, Pos: start}, nil
	}

	switch {
	case hasPrefixFold(word, "data_"):
		if len(word) == len("data_") {
			return Token{}, lexErrorf(start, "data block header has no name")
		}
		return Token{Kind: TokenDataHeader, Value: word[len("data_"):], Pos: start}, nil
	case hasPrefixFold(word, "save_"):
		if len(word) == len("save_") {
			return Token{Kind: TokenSaveEnd, Pos: start}, nil
		}
		return Token{Kind: TokenSaveHeader, Value: word[len("save_"):], Pos: start}, nil
	case hasPrefixFold(word, "loop_"):
		if len(word) != len("loop_") {
			return Token{}, lexErrorf(start, "unexpected characters after loop_ in %q", word)
		}
		return Token{Kind: TokenLoop, Pos: start}, nil
	case strings.EqualFold(word, "global_"), strings.EqualFold(word, "stop_"):
		return Token{}, lexErrorf(start, "reserved word %q must be quoted", word)
	}

	return Token{Kind: TokenUnquoted, Value: word, Pos: start}, nil
}

// skipWhitespace skips spaces, tabs and line breaks.
func (l *Lexer) skipWhitespace() {
	for l.pos < len(l.input) && isWhitespace(l.peek()) {
		l.advance()
	}
}

// Helper methods

func (l *Lexer) peek() byte {
	if l.pos >= len(l.input) {
		return 0
	}
	return l.input[l.pos]
}

func (l *Lexer) advance() {
	if l.pos >= len(l.input) {
		return
	}
	ch := l.input[l.pos]
	l.pos++
	switch {
	case ch == '\n':
		l.line++
		l.col = 1
	case ch&0xC0 != 0x80: // UTF-8 continuation bytes share the column of their lead byte
		l.col++
	}
}

func (l *Lexer) currentPos() Position {
	return Position{File: l.file, Line: l.line, Column: l.col, Offset: l.pos}
}

// Character classification

func isWhitespace(ch byte) bool {
	return ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r'
}

func isControl(ch byte) bool {
	return (ch < 0x20 && !isWhitespace(ch)) || ch == 0x7f
}

func hasPrefixFold(s, prefix string) bool {
	return len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix)
}
