// Package cif provides parsing of CIF 1.1 (Crystallographic Information File)
// documents, including the mmCIF/PDBx dialect.
package cif

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// parseState is the grammar context the parser is in.
type parseState uint8

const (
	stateDocument   parseState = iota // before the first data_ header
	stateBlock                        // inside a data block
	stateFrame                        // inside a save frame
	stateLoopTags                     // reading the column tags after loop_
	stateLoopValues                   // reading the values of a loop
)

func (s parseState) String() string {
	switch s {
	case stateDocument:
		return "document"
	case stateBlock:
		return "block"
	case stateFrame:
		return "frame"
	case stateLoopTags:
		return "loop tags"
	case stateLoopValues:
		return "loop values"
	default:
		return "unknown"
	}
}

// Parser provides configurable parsing of CIF documents. A Parser holds no
// per-parse state and may be shared between goroutines.
type Parser struct {
	logger   *slog.Logger
	maxSize  int64
	filename string
}

// NewParser creates a new Parser with default configuration.
func NewParser() *Parser {
	return &Parser{
		logger: slog.New(slog.DiscardHandler),
	}
}

// WithLogger configures the logger used for debug output.
func (p *Parser) WithLogger(logger *slog.Logger) *Parser {
	if logger != nil {
		p.logger = logger
	}
	return p
}

// WithMaxSize rejects inputs larger than n bytes before lexing. Zero or a
// negative n means no limit.
func (p *Parser) WithMaxSize(n int64) *Parser {
	p.maxSize = n
	return p
}

// WithFilename sets the file name reported in error positions.
func (p *Parser) WithFilename(name string) *Parser {
	p.filename = name
	return p
}

// Parse parses CIF text held in memory.
func (p *Parser) Parse(content string) (*Document, error) {
	if p.maxSize > 0 && int64(len(content)) > p.maxSize {
		return nil, fmt.Errorf("input is %d bytes, limit is %d", len(content), p.maxSize)
	}

	run := &parseRun{
		lex:    NewLexer(content).WithFilename(p.filename),
		logger: p.logger,
		doc:    newDocument(),
	}
	if err := run.parse(); err != nil {
		return nil, err
	}

	p.logger.Debug("parsed CIF document",
		"file", p.filename,
		"bytes", len(content),
		"blocks", run.doc.Len(),
	)
	return run.doc, nil
}

// ParseDocument reads r fully and parses it.
func (p *Parser) ParseDocument(r io.Reader) (*Document, error) {
	if p.maxSize > 0 {
		// One extra byte tells an input at the limit from one above it.
		r = io.LimitReader(r, p.maxSize+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read input: %w", err)
	}
	return p.Parse(string(data))
}

// ParseFile reads the file at path and parses it. Error positions carry the
// path unless a file name was set with WithFilename.
func (p *Parser) ParseFile(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %q: %w", path, err)
	}
	q := *p
	if q.filename == "" {
		q.filename = path
	}
	return q.Parse(string(data))
}

// Parse parses CIF text with the default parser.
func Parse(content string) (*Document, error) {
	return NewParser().Parse(content)
}

// ParseReader parses CIF text read from r with the default parser.
func ParseReader(r io.Reader) (*Document, error) {
	return NewParser().ParseDocument(r)
}

// ParseFile parses the CIF file at path with the default parser.
func ParseFile(path string) (*Document, error) {
	return NewParser().ParseFile(path)
}

// parseRun is the state of a single parse: a state machine over the token
// stream with one token of lookahead.
type parseRun struct {
	lex    *Lexer
	logger *slog.Logger

	state    parseState
	pending  *Token // token pushed back by unread
	seenData bool   // a non-comment token has been read

	doc   *Document
	block *Block
	frame *Frame
	loop  *Loop

	blockPos Position
	framePos Position
	loopPos  Position
}

// next returns the next non-comment token.
func (r *parseRun) next() (Token, error) {
	if r.pending != nil {
		tok := *r.pending
		r.pending = nil
		return tok, nil
	}
	for {
		tok, err := r.lex.Next()
		if err != nil {
			return Token{}, err
		}
		if tok.Kind != TokenComment {
			r.seenData = true
			return tok, nil
		}
		if !r.seenData && r.doc.version == "" && strings.HasPrefix(tok.Value, `\#CIF_`) {
			r.doc.version = strings.TrimSpace(tok.Value[2:])
		}
	}
}

func (r *parseRun) unread(tok Token) {
	r.pending = &tok
}

// current returns the scope items and loops are added to.
func (r *parseRun) current() *scope {
	if r.frame != nil {
		return &r.frame.scope
	}
	return &r.block.scope
}

// parse runs the state machine to the end of input or the first error.
func (r *parseRun) parse() error {
	for {
		tok, err := r.next()
		if err != nil {
			return err
		}

		var done bool
		switch r.state {
		case stateDocument:
			done, err = r.inDocument(tok)
		case stateBlock, stateFrame:
			done, err = r.inScope(tok)
		case stateLoopTags:
			err = r.inLoopTags(tok)
		case stateLoopValues:
			err = r.inLoopValues(tok)
		}
		if err != nil {
			return err
		}
		if done {
			return nil
		}
	}
}

func (r *parseRun) inDocument(tok Token) (bool, error) {
	switch tok.Kind {
	case TokenEOF:
		return true, nil
	case TokenDataHeader:
		r.openBlock(tok)
		return false, nil
	default:
		return false, structuralErrorf(tok.Pos, "expected data block header, found %s", tok.describe())
	}
}

// inScope handles a token at block or frame level.
func (r *parseRun) inScope(tok Token) (bool, error) {
	switch tok.Kind {
	case TokenTag:
		return false, r.parseItem(tok)

	case TokenLoop:
		r.loop = newLoop()
		r.loopPos = tok.Pos
		r.state = stateLoopTags
		return false, nil

	case TokenSaveHeader:
		if r.frame != nil {
			return false, structuralErrorf(tok.Pos, "save frame %q opened inside save frame %q", tok.Value, r.frame.name)
		}
		r.frame = newFrame(tok.Value)
		r.framePos = tok.Pos
		r.state = stateFrame
		return false, nil

	case TokenSaveEnd:
		if r.frame == nil {
			return false, structuralErrorf(tok.Pos, "save_ without an open save frame")
		}
		return false, r.closeFrame()

	case TokenDataHeader:
		if r.frame != nil {
			return false, r.unterminatedFrame(tok)
		}
		if err := r.closeBlock(); err != nil {
			return false, err
		}
		r.openBlock(tok)
		return false, nil

	case TokenEOF:
		if r.frame != nil {
			return false, r.unterminatedFrame(tok)
		}
		return true, r.closeBlock()

	default:
		return false, structuralErrorf(tok.Pos, "expected tag, loop_ or header, found %s", tok.describe())
	}
}

// parseItem reads the value that must follow a tag outside a loop.
func (r *parseRun) parseItem(tag Token) error {
	val, err := r.next()
	if err != nil {
		return err
	}
	if !val.Kind.IsValue() {
		return structuralErrorf(tag.Pos, "tag %s has no value (found %s)", tag.Value, val.describe())
	}
	if !r.current().addItem(tag.Value, valueOf(val)) {
		return structuralErrorf(tag.Pos, "duplicate tag %s in %s", tag.Value, r.current().name)
	}
	return nil
}

func (r *parseRun) inLoopTags(tok Token) error {
	if tok.Kind == TokenTag {
		if !r.loop.addColumn(tok.Value) {
			return structuralErrorf(tok.Pos, "duplicate column %s in loop", tok.Value)
		}
		return nil
	}
	if len(r.loop.tags) == 0 {
		return structuralErrorf(r.loopPos, "loop_ has no column tags (found %s)", tok.describe())
	}
	r.unread(tok)
	r.state = stateLoopValues
	return nil
}

func (r *parseRun) inLoopValues(tok Token) error {
	if tok.Kind.IsValue() {
		r.loop.values = append(r.loop.values, valueOf(tok))
		return nil
	}

	// Any other token ends the loop and is handled by the enclosing scope.
	if rem := len(r.loop.values) % len(r.loop.tags); rem != 0 {
		return structuralErrorf(r.loopPos,
			"loop has %d values, not a multiple of its %d columns (%d left over)",
			len(r.loop.values), len(r.loop.tags), rem)
	}
	s := r.current()
	s.loops = append(s.loops, r.loop)
	r.loop = nil
	r.unread(tok)
	r.state = r.scopeState()
	return nil
}

func (r *parseRun) scopeState() parseState {
	if r.frame != nil {
		return stateFrame
	}
	return stateBlock
}

func (r *parseRun) openBlock(tok Token) {
	r.block = newBlock(tok.Value)
	r.blockPos = tok.Pos
	r.state = stateBlock
}

// closeBlock commits the current block to the document.
func (r *parseRun) closeBlock() error {
	key := fold(r.block.name)
	if _, dup := r.doc.index[key]; dup {
		return structuralErrorf(r.blockPos, "duplicate data block name %q", r.block.name)
	}
	r.doc.index[key] = len(r.doc.blocks)
	r.doc.blocks = append(r.doc.blocks, r.block)

	r.logger.Debug("committed data block",
		"block", r.block.name,
		"items", r.block.NumItems(),
		"loops", r.block.NumLoops(),
		"frames", r.block.NumFrames(),
	)
	r.block = nil
	return nil
}

// closeFrame commits the current save frame to its block.
func (r *parseRun) closeFrame() error {
	key := fold(r.frame.name)
	if _, dup := r.block.frameIndex[key]; dup {
		return structuralErrorf(r.framePos, "duplicate save frame name %q in block %q", r.frame.name, r.block.name)
	}
	r.block.frameIndex[key] = len(r.block.frames)
	r.block.frames = append(r.block.frames, r.frame)

	r.logger.Debug("committed save frame",
		"block", r.block.name,
		"frame", r.frame.name,
	)
	r.frame = nil
	r.state = stateBlock
	return nil
}

func (r *parseRun) unterminatedFrame(tok Token) error {
	return structuralErrorf(r.framePos, "save frame %q is not terminated by save_ before %s", r.frame.name, tok.describe())
}

// valueOf classifies a value token. Quoted strings and text fields are
// always Text, so a quoted '?' stays a question mark.
func valueOf(tok Token) Value {
	if tok.Kind == TokenUnquoted {
		return Classify(tok.Value)
	}
	return TextValue(tok.Value)
}
