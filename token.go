package cif

import "fmt"

// TokenKind represents the type of a lexer token.
type TokenKind uint8

const (
	TokenEOF TokenKind = iota

	// Structural keywords
	TokenDataHeader // data_<name>
	TokenSaveHeader // save_<name>
	TokenSaveEnd    // save_
	TokenLoop       // loop_

	TokenTag // _name

	// Values
	TokenQuoted    // 'text' or "text"
	TokenTextField // ;text\n;
	TokenUnquoted  // bare word

	TokenComment // # to end of line
)

var tokenNames = [...]string{
	TokenEOF:        "EOF",
	TokenDataHeader: "DATA",
	TokenSaveHeader: "SAVE",
	TokenSaveEnd:    "SAVE_END",
	TokenLoop:       "LOOP",
	TokenTag:        "TAG",
	TokenQuoted:     "QUOTED",
	TokenTextField:  "TEXT_FIELD",
	TokenUnquoted:   "UNQUOTED",
	TokenComment:    "COMMENT",
}

// String returns the token kind name.
func (k TokenKind) String() string {
	if int(k) < len(tokenNames) {
		return tokenNames[k]
	}
	return "UNKNOWN"
}

// IsValue reports whether tokens of this kind can stand as a data value.
func (k TokenKind) IsValue() bool {
	return k == TokenQuoted || k == TokenTextField || k == TokenUnquoted
}

// Token represents a lexer token. For headers, Value holds the name after the
// keyword prefix; for quoted strings and text fields it holds the content
// without delimiters.
type Token struct {
	Kind  TokenKind
	Value string
	Pos   Position
}

// String returns a debug representation of the token.
func (t Token) String() string {
	if t.Value == "" {
		return t.Kind.String()
	}
	return fmt.Sprintf("%s(%q)", t.Kind, t.Value)
}

// describe names the token for error messages.
func (t Token) describe() string {
	switch t.Kind {
	case TokenEOF:
		return "end of input"
	case TokenDataHeader:
		return fmt.Sprintf("data block header data_%s", t.Value)
	case TokenSaveHeader:
		return fmt.Sprintf("save frame header save_%s", t.Value)
	case TokenSaveEnd:
		return "save frame terminator save_"
	case TokenLoop:
		return "loop_"
	case TokenTag:
		return fmt.Sprintf("tag %s", t.Value)
	default:
		return fmt.Sprintf("value %q", t.Value)
	}
}
