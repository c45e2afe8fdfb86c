package cif

import "strings"

// Document represents a parsed CIF document: an ordered list of data blocks
// with unique, case-insensitive names.
type Document struct {
	version string
	blocks  []*Block
	index   map[string]int // folded block name -> position
}

// scope holds the items and loops shared by data blocks and save frames.
type scope struct {
	name   string
	tags   []string       // item tags in insertion order
	values []Value        // item values, parallel to tags
	index  map[string]int // folded tag -> position in tags
	loops  []*Loop
}

// Block represents a data block introduced by data_<name>.
type Block struct {
	scope
	frames     []*Frame
	frameIndex map[string]int // folded frame name -> position
}

// Frame represents a save frame introduced by save_<name> and closed by save_.
type Frame struct {
	scope
}

// Loop represents a table introduced by loop_. Values are stored row-major;
// every row has exactly len(tags) values.
type Loop struct {
	tags   []string
	index  map[string]int // folded tag -> column
	values []Value
}

// Scope is the read surface shared by Block and Frame.
type Scope interface {
	Name() string
	NumItems() int
	Item(tag string) (Value, bool)
	ItemTags() []string
	Items() []Item
	NumLoops() int
	Loop(i int) (*Loop, error)
	FindLoop(tag string) *Loop
	Loops() []*Loop
	LoopTags() []string
}

// Item is a tag/value pair defined outside a loop.
type Item struct {
	Tag   string
	Value Value
}

// fold normalizes names and tags for case-insensitive comparison.
func fold(s string) string {
	return strings.ToLower(s)
}

func newScope(name string) scope {
	return scope{name: name, index: make(map[string]int)}
}

func newDocument() *Document {
	return &Document{index: make(map[string]int)}
}

func newBlock(name string) *Block {
	return &Block{scope: newScope(name), frameIndex: make(map[string]int)}
}

func newFrame(name string) *Frame {
	return &Frame{scope: newScope(name)}
}

func newLoop() *Loop {
	return &Loop{index: make(map[string]int)}
}
