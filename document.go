package cif

import (
	"fmt"
	"iter"
	"slices"
)

// Document accessors

// Version returns the CIF version named by a leading #\#CIF_x.y magic
// comment, e.g. "CIF_1.1", or "" when the input had none.
func (d *Document) Version() string { return d.version }

// Len returns the number of data blocks.
func (d *Document) Len() int { return len(d.blocks) }

// Block returns the i-th data block.
func (d *Document) Block(i int) (*Block, error) {
	if i < 0 || i >= len(d.blocks) {
		return nil, accessErrorf("block index %d out of range [0,%d)", i, len(d.blocks))
	}
	return d.blocks[i], nil
}

// BlockByName returns the block with the given name, compared
// case-insensitively, or nil if there is none.
func (d *Document) BlockByName(name string) *Block {
	i, ok := d.index[fold(name)]
	if !ok {
		return nil
	}
	return d.blocks[i]
}

// First returns the first data block, or nil for an empty document.
func (d *Document) First() *Block {
	if len(d.blocks) == 0 {
		return nil
	}
	return d.blocks[0]
}

// Blocks returns the data blocks in document order.
func (d *Document) Blocks() []*Block {
	return slices.Clone(d.blocks)
}

// BlockNames returns the block names in document order, as written.
func (d *Document) BlockNames() []string {
	names := make([]string, len(d.blocks))
	for i, b := range d.blocks {
		names[i] = b.name
	}
	return names
}

// All iterates over the data blocks with their positions.
func (d *Document) All() iter.Seq2[int, *Block] {
	return func(yield func(int, *Block) bool) {
		for i, b := range d.blocks {
			if !yield(i, b) {
				return
			}
		}
	}
}

// Equal reports whether d and o contain structurally equal blocks.
func (d *Document) Equal(o *Document) bool {
	if d == nil || o == nil {
		return d == o
	}
	return d.version == o.version && slices.EqualFunc(d.blocks, o.blocks, (*Block).Equal)
}

// String returns a short summary of the document.
func (d *Document) String() string {
	return fmt.Sprintf("Document(%d blocks)", len(d.blocks))
}

// Scope accessors, shared by Block and Frame

// Name returns the name as written after data_ or save_.
func (s *scope) Name() string { return s.name }

// NumItems returns the number of items defined outside loops.
func (s *scope) NumItems() int { return len(s.tags) }

// Item returns the value of the item with the given tag, compared
// case-insensitively. Tags inside loops are not items; use FindLoop.
func (s *scope) Item(tag string) (Value, bool) {
	i, ok := s.index[fold(tag)]
	if !ok {
		return Value{}, false
	}
	return s.values[i], true
}

// ItemTags returns the item tags in the order they were defined.
func (s *scope) ItemTags() []string {
	return slices.Clone(s.tags)
}

// Items returns the items in the order they were defined.
func (s *scope) Items() []Item {
	items := make([]Item, len(s.tags))
	for i, tag := range s.tags {
		items[i] = Item{Tag: tag, Value: s.values[i]}
	}
	return items
}

// NumLoops returns the number of loops.
func (s *scope) NumLoops() int { return len(s.loops) }

// Loop returns the i-th loop.
func (s *scope) Loop(i int) (*Loop, error) {
	if i < 0 || i >= len(s.loops) {
		return nil, accessErrorf("loop index %d out of range [0,%d) in %s", i, len(s.loops), s.name)
	}
	return s.loops[i], nil
}

// FindLoop returns the first loop with a column named tag, or nil.
func (s *scope) FindLoop(tag string) *Loop {
	for _, l := range s.loops {
		if l.ColumnIndex(tag) >= 0 {
			return l
		}
	}
	return nil
}

// Loops returns the loops in the order they were defined.
func (s *scope) Loops() []*Loop {
	return slices.Clone(s.loops)
}

// LoopTags returns the column tags of every loop, in order.
func (s *scope) LoopTags() []string {
	var tags []string
	for _, l := range s.loops {
		tags = append(tags, l.tags...)
	}
	return tags
}

func (s *scope) equal(o *scope) bool {
	return s.name == o.name &&
		slices.Equal(s.tags, o.tags) &&
		slices.EqualFunc(s.values, o.values, Value.Equal) &&
		slices.EqualFunc(s.loops, o.loops, (*Loop).Equal)
}

// addItem records an item; it reports false if the tag is already defined.
func (s *scope) addItem(tag string, v Value) bool {
	key := fold(tag)
	if _, dup := s.index[key]; dup {
		return false
	}
	s.index[key] = len(s.tags)
	s.tags = append(s.tags, tag)
	s.values = append(s.values, v)
	return true
}

// Block accessors

// NumFrames returns the number of save frames.
func (b *Block) NumFrames() int { return len(b.frames) }

// Frame returns the i-th save frame.
func (b *Block) Frame(i int) (*Frame, error) {
	if i < 0 || i >= len(b.frames) {
		return nil, accessErrorf("frame index %d out of range [0,%d) in %s", i, len(b.frames), b.name)
	}
	return b.frames[i], nil
}

// FrameByName returns the save frame with the given name, compared
// case-insensitively, or nil.
func (b *Block) FrameByName(name string) *Frame {
	i, ok := b.frameIndex[fold(name)]
	if !ok {
		return nil
	}
	return b.frames[i]
}

// Frames returns the save frames in the order they were defined.
func (b *Block) Frames() []*Frame {
	return slices.Clone(b.frames)
}

// Equal reports whether b and o have the same name, items, loops and frames.
func (b *Block) Equal(o *Block) bool {
	return b.scope.equal(&o.scope) &&
		slices.EqualFunc(b.frames, o.frames, (*Frame).Equal)
}

// String returns a short summary of the block.
func (b *Block) String() string {
	return fmt.Sprintf("Block(%q, %d items, %d loops, %d frames)",
		b.name, len(b.tags), len(b.loops), len(b.frames))
}

// Frame accessors

// Equal reports whether f and o have the same name, items and loops.
func (f *Frame) Equal(o *Frame) bool {
	return f.scope.equal(&o.scope)
}

// String returns a short summary of the frame.
func (f *Frame) String() string {
	return fmt.Sprintf("Frame(%q, %d items, %d loops)", f.name, len(f.tags), len(f.loops))
}

// Loop accessors

// Tags returns the column tags in declaration order.
func (l *Loop) Tags() []string {
	return slices.Clone(l.tags)
}

// NumColumns returns the number of columns.
func (l *Loop) NumColumns() int { return len(l.tags) }

// Len returns the number of rows.
func (l *Loop) Len() int {
	if len(l.tags) == 0 {
		return 0
	}
	return len(l.values) / len(l.tags)
}

// IsEmpty reports whether the loop has no rows.
func (l *Loop) IsEmpty() bool { return len(l.values) == 0 }

// Get returns the value at the given row and column.
func (l *Loop) Get(row, col int) (Value, error) {
	if row < 0 || row >= l.Len() {
		return Value{}, accessErrorf("row index %d out of range [0,%d)", row, l.Len())
	}
	if col < 0 || col >= len(l.tags) {
		return Value{}, accessErrorf("column index %d out of range [0,%d)", col, len(l.tags))
	}
	return l.values[row*len(l.tags)+col], nil
}

// Row returns the values of row i in column order.
func (l *Loop) Row(i int) ([]Value, error) {
	if i < 0 || i >= l.Len() {
		return nil, accessErrorf("row index %d out of range [0,%d)", i, l.Len())
	}
	return slices.Clone(l.row(i)), nil
}

// RowMap returns row i keyed by column tag as written.
func (l *Loop) RowMap(i int) (map[string]Value, error) {
	if i < 0 || i >= l.Len() {
		return nil, accessErrorf("row index %d out of range [0,%d)", i, l.Len())
	}
	m := make(map[string]Value, len(l.tags))
	for col, v := range l.row(i) {
		m[l.tags[col]] = v
	}
	return m, nil
}

// ColumnIndex returns the position of the column named tag, compared
// case-insensitively, or -1.
func (l *Loop) ColumnIndex(tag string) int {
	col, ok := l.index[fold(tag)]
	if !ok {
		return -1
	}
	return col
}

// Column returns every row's value for the column named tag.
func (l *Loop) Column(tag string) ([]Value, bool) {
	col := l.ColumnIndex(tag)
	if col < 0 {
		return nil, false
	}
	n := l.Len()
	values := make([]Value, n)
	for row := 0; row < n; row++ {
		values[row] = l.values[row*len(l.tags)+col]
	}
	return values, true
}

// Rows iterates over the rows with their positions. The yielded slices
// are copies.
func (l *Loop) Rows() iter.Seq2[int, []Value] {
	return func(yield func(int, []Value) bool) {
		for i := 0; i < l.Len(); i++ {
			if !yield(i, slices.Clone(l.row(i))) {
				return
			}
		}
	}
}

// Equal reports whether l and o have the same columns and values.
func (l *Loop) Equal(o *Loop) bool {
	return slices.Equal(l.tags, o.tags) && slices.EqualFunc(l.values, o.values, Value.Equal)
}

// String returns a short summary of the loop.
func (l *Loop) String() string {
	return fmt.Sprintf("Loop(%d columns, %d rows)", len(l.tags), l.Len())
}

func (l *Loop) row(i int) []Value {
	n := len(l.tags)
	return l.values[i*n : (i+1)*n]
}

// addColumn declares a column; it reports false if the tag is already a column.
func (l *Loop) addColumn(tag string) bool {
	key := fold(tag)
	if _, dup := l.index[key]; dup {
		return false
	}
	l.index[key] = len(l.tags)
	l.tags = append(l.tags, tag)
	return true
}
