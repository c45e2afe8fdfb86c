package cif

import (
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func TestNewParser(t *testing.T) {
	p := NewParser()
	if p == nil {
		t.Fatal("NewParser() returned nil")
	}
}

func TestParse_SimpleItem(t *testing.T) {
	doc, err := Parse("data_test\n_item value\n")
	if err != nil {
		t.Fatalf("Parse() failed: %v", err)
	}

	if doc.Len() != 1 {
		t.Fatalf("Expected 1 block, got %d", doc.Len())
	}

	block := doc.First()
	if block.Name() != "test" {
		t.Errorf("Expected block name 'test', got '%s'", block.Name())
	}
	if block.NumItems() != 1 {
		t.Fatalf("Expected 1 item, got %d", block.NumItems())
	}

	v, ok := block.Item("_item")
	if !ok {
		t.Fatal("Expected item _item")
	}
	if v != TextValue("value") {
		t.Errorf("Expected Text(value), got %v", v)
	}
}

func TestParse_Loop(t *testing.T) {
	doc, err := Parse("data_t\nloop_\n_a\n_b\n1 2\n3 4\n")
	if err != nil {
		t.Fatalf("Parse() failed: %v", err)
	}

	block := doc.BlockByName("t")
	if block == nil {
		t.Fatal("Expected block 't'")
	}
	if block.NumLoops() != 1 {
		t.Fatalf("Expected 1 loop, got %d", block.NumLoops())
	}

	l, err := block.Loop(0)
	if err != nil {
		t.Fatalf("Loop(0) failed: %v", err)
	}
	if got := l.Tags(); len(got) != 2 || got[0] != "_a" || got[1] != "_b" {
		t.Errorf("Expected tags [_a _b], got %v", got)
	}
	if l.Len() != 2 {
		t.Fatalf("Expected 2 rows, got %d", l.Len())
	}

	expected := [][]Value{
		{NumericValue(1, ""), NumericValue(2, "")},
		{NumericValue(3, ""), NumericValue(4, "")},
	}
	for i, want := range expected {
		row, err := l.Row(i)
		if err != nil {
			t.Fatalf("Row(%d) failed: %v", i, err)
		}
		for j := range want {
			if row[j] != want[j] {
				t.Errorf("row %d col %d: expected %v, got %v", i, j, want[j], row[j])
			}
		}
	}
}

func TestParse_QuotedUnknownNotApplicable(t *testing.T) {
	doc, err := Parse("data_t\n_x 'hello world'\n_y ?\n_z .\n")
	if err != nil {
		t.Fatalf("Parse() failed: %v", err)
	}
	block := doc.First()

	tests := []struct {
		tag  string
		want Value
	}{
		{"_x", TextValue("hello world")},
		{"_y", Unknown()},
		{"_z", NotApplicable()},
	}
	for _, test := range tests {
		got, ok := block.Item(test.tag)
		if !ok {
			t.Errorf("Expected item %s", test.tag)
			continue
		}
		if got != test.want {
			t.Errorf("%s: expected %v (%s), got %v (%s)", test.tag, test.want, test.want.Kind(), got, got.Kind())
		}
	}
}

func TestParse_QuotedReservedStaysText(t *testing.T) {
	doc, err := Parse("data_t\n_a '?'\n_b \".\"\n_c 'data_x'\n_d '1.5'\n")
	if err != nil {
		t.Fatalf("Parse() failed: %v", err)
	}
	block := doc.First()

	for tag, want := range map[string]string{"_a": "?", "_b": ".", "_c": "data_x", "_d": "1.5"} {
		v, _ := block.Item(tag)
		if s, ok := v.Text(); !ok || s != want {
			t.Errorf("%s: expected Text(%q), got %v (%s)", tag, want, v, v.Kind())
		}
	}
}

func TestParse_SaveFrame(t *testing.T) {
	doc, err := Parse("data_t\nsave_f\n_x 1\nsave_\n")
	if err != nil {
		t.Fatalf("Parse() failed: %v", err)
	}

	block := doc.First()
	if block.NumFrames() != 1 {
		t.Fatalf("Expected 1 frame, got %d", block.NumFrames())
	}
	frame := block.FrameByName("F")
	if frame == nil {
		t.Fatal("Expected frame 'f' by case-insensitive name")
	}
	if frame.Name() != "f" {
		t.Errorf("Expected frame name 'f', got '%s'", frame.Name())
	}
	v, ok := frame.Item("_x")
	if !ok || v != NumericValue(1, "") {
		t.Errorf("Expected _x = Numeric(1), got %v", v)
	}
	if _, ok := block.Item("_x"); ok {
		t.Error("Frame item leaked into block")
	}
}

func TestParse_TextField(t *testing.T) {
	input := "data_t\n_title\n;Line one\nLine two\n;\n_next 3\n"
	doc, err := Parse(input)
	if err != nil {
		t.Fatalf("Parse() failed: %v", err)
	}
	block := doc.First()

	v, _ := block.Item("_title")
	if s, ok := v.Text(); !ok || s != "Line one\nLine two" {
		t.Errorf("Expected text field content, got %q", v.String())
	}
	if v, _ := block.Item("_next"); v != NumericValue(3, "") {
		t.Errorf("Expected _next = 3, got %v", v)
	}
}

func TestParse_LoopMixedValues(t *testing.T) {
	input := `data_atoms
loop_
_atom_site_label
_atom_site_fract_x
_atom_site_occupancy
C1 0.1234(5) 1
'N 1' ? .
;O1
; -2.5e-1 ?
`
	doc, err := Parse(input)
	if err != nil {
		t.Fatalf("Parse() failed: %v", err)
	}
	l := doc.First().FindLoop("_ATOM_SITE_FRACT_X")
	if l == nil {
		t.Fatal("Expected loop by case-insensitive column tag")
	}
	if l.Len() != 3 {
		t.Fatalf("Expected 3 rows, got %d", l.Len())
	}

	x, _ := l.Column("_atom_site_fract_x")
	if f, _ := x[0].Float(); f != 0.1234 {
		t.Errorf("Expected 0.1234, got %v", f)
	}
	if su, _ := x[0].Uncertainty(); su != "5" {
		t.Errorf("Expected uncertainty 5, got %q", su)
	}
	if !x[1].IsUnknown() {
		t.Errorf("Expected unknown in loop, got %v", x[1])
	}
	if f, _ := x[2].Float(); f != -0.25 {
		t.Errorf("Expected -0.25, got %v", f)
	}

	row, err := l.RowMap(2)
	if err != nil {
		t.Fatalf("RowMap(2) failed: %v", err)
	}
	if s, _ := row["_atom_site_label"].Text(); s != "O1" {
		t.Errorf("Expected label O1 from text field, got %q", s)
	}
	if !row["_atom_site_occupancy"].IsUnknown() {
		t.Errorf("Expected unknown occupancy, got %v", row["_atom_site_occupancy"])
	}

	r1, _ := l.RowMap(1)
	if !r1["_atom_site_occupancy"].IsNotApplicable() {
		t.Errorf("Expected not applicable occupancy, got %v", r1["_atom_site_occupancy"])
	}
}

func TestParse_EmptyLoop(t *testing.T) {
	doc, err := Parse("data_t\nloop_\n_a\n_b\nloop_\n_c\n5\n")
	if err != nil {
		t.Fatalf("Parse() failed: %v", err)
	}
	block := doc.First()
	if block.NumLoops() != 2 {
		t.Fatalf("Expected 2 loops, got %d", block.NumLoops())
	}
	l := block.FindLoop("_a")
	if l == nil {
		t.Fatal("Expected empty loop to be kept")
	}
	if !l.IsEmpty() || l.Len() != 0 || l.NumColumns() != 2 {
		t.Errorf("Expected empty 2-column loop, got %s", l)
	}
	if c := block.FindLoop("_c"); c == nil || c.Len() != 1 {
		t.Errorf("Expected one-row loop _c after empty loop, got %v", c)
	}

	doc, err = Parse("data_t\nloop_\n_a\n")
	if err != nil {
		t.Fatalf("Parse() failed on loop at end of input: %v", err)
	}
	if l := doc.First().FindLoop("_a"); l == nil || l.Len() != 0 {
		t.Errorf("Expected empty loop at end of input, got %v", l)
	}
}

func TestParse_MultipleBlocksAndLoops(t *testing.T) {
	input := `data_one
_a 1
loop_ _x _y 1 2 3 4
loop_ _z a b c
data_Two
_a 2
`
	doc, err := Parse(input)
	if err != nil {
		t.Fatalf("Parse() failed: %v", err)
	}
	if names := doc.BlockNames(); len(names) != 2 || names[0] != "one" || names[1] != "Two" {
		t.Errorf("Expected [one Two], got %v", names)
	}
	one := doc.BlockByName("ONE")
	if one.NumLoops() != 2 {
		t.Fatalf("Expected 2 loops, got %d", one.NumLoops())
	}
	if tags := one.LoopTags(); len(tags) != 3 {
		t.Errorf("Expected 3 loop tags, got %v", tags)
	}
	z := one.FindLoop("_z")
	if z.Len() != 3 {
		t.Errorf("Expected 3 rows in _z loop, got %d", z.Len())
	}
	if doc.BlockByName("two") == nil {
		t.Error("Expected block lookup to ignore case")
	}
	if doc.BlockByName("three") != nil {
		t.Error("Expected nil for missing block")
	}
}

func TestParse_Comments(t *testing.T) {
	input := `#\#CIF_1.1
# leading comment
data_t # trailing comment
_a 1 # another
loop_
_b
# inside loop
x
y#notacomment
`
	doc, err := Parse(input)
	if err != nil {
		t.Fatalf("Parse() failed: %v", err)
	}
	if doc.Version() != "CIF_1.1" {
		t.Errorf("Expected version CIF_1.1, got %q", doc.Version())
	}
	col, _ := doc.First().FindLoop("_b").Column("_b")
	if len(col) != 2 {
		t.Fatalf("Expected 2 values, got %d", len(col))
	}
	if s, _ := col[1].Text(); s != "y#notacomment" {
		t.Errorf("Expected y#notacomment, got %q", s)
	}
}

func TestParse_EmptyInput(t *testing.T) {
	for _, input := range []string{"", "   \n\n", "# only a comment\n"} {
		doc, err := Parse(input)
		if err != nil {
			t.Errorf("Parse(%q) failed: %v", input, err)
			continue
		}
		if doc.Len() != 0 || doc.First() != nil {
			t.Errorf("Parse(%q): expected empty document", input)
		}
	}
}

func TestParse_StructuralErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		msg   string
	}{
		{"malformed loop", "data_t\nloop_\n_a\n_b\n1 2 3\n", "not a multiple"},
		{"missing save end", "data_t\nsave_f\n_x 1\n", "not terminated"},
		{"save frame cut by data block", "data_t\nsave_f\n_x 1\ndata_u\n", "not terminated"},
		{"duplicate block", "data_t\n_x 1\ndata_t\n_y 2\n", "duplicate data block"},
		{"duplicate block case", "data_t\n_x 1\ndata_T\n_y 2\n", "duplicate data block"},
		{"duplicate frame", "data_t\nsave_f\nsave_\nsave_F\nsave_\n", "duplicate save frame"},
		{"duplicate item", "data_t\n_x 1\n_X 2\n", "duplicate tag"},
		{"duplicate column", "data_t\nloop_\n_a\n_a\n1 2\n", "duplicate column"},
		{"missing value", "data_t\n_x\n_y 2\n", "has no value"},
		{"missing value at end", "data_t\n_x\n", "has no value"},
		{"value before data", "_x 1\n", "expected data block header"},
		{"value without tag", "data_t\n_x 1 2\n", "expected tag"},
		{"loop without tags", "data_t\nloop_\n1 2\n", "no column tags"},
		{"save end outside frame", "data_t\nsave_\n", "without an open save frame"},
		{"nested frame", "data_t\nsave_a\nsave_b\nsave_\nsave_\n", "inside save frame"},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := Parse(test.input)
			if err == nil {
				t.Fatal("Expected error, got nil")
			}
			if !errors.Is(err, ErrStructural) {
				t.Fatalf("Expected structural error, got %v", err)
			}
			if !strings.Contains(err.Error(), test.msg) {
				t.Errorf("Expected message containing %q, got %q", test.msg, err.Error())
			}
			var cerr *Error
			if !errors.As(err, &cerr) || !cerr.Pos.IsValid() {
				t.Errorf("Expected error with position, got %v", err)
			}
		})
	}
}

func TestParse_ErrorPosition(t *testing.T) {
	_, err := Parse("data_t\n_a 1\nloop_\n_b\n_c\n1 2 3\n")
	var cerr *Error
	if !errors.As(err, &cerr) {
		t.Fatalf("Expected *Error, got %v", err)
	}
	if cerr.Pos.Line != 3 || cerr.Pos.Column != 1 {
		t.Errorf("Expected error at 3:1 (loop_), got %s", cerr.Pos)
	}
}

func TestParse_LexErrorsPropagate(t *testing.T) {
	inputs := []string{
		"data_t\n_a 'unterminated\n",
		"data_t\n_x 'a\x01b'\n",
		"data_t\n_x\n;a\x01b\n;\n",
		"data_t\n_x 1\n# c\x01\n",
	}
	for _, input := range inputs {
		_, err := Parse(input)
		if !errors.Is(err, ErrLex) {
			t.Errorf("Parse(%q): expected lex error, got %v", input, err)
		}
		if errors.Is(err, ErrStructural) {
			t.Errorf("Parse(%q): lex error must not match structural sentinel", input)
		}
	}
}

func TestParse_ByteOrderMark(t *testing.T) {
	doc, err := Parse("\ufeff#\\#CIF_1.1\ndata_t\n_a 1\n")
	if err != nil {
		t.Fatalf("Parse() failed: %v", err)
	}
	if doc.Version() != "CIF_1.1" {
		t.Errorf("Expected version CIF_1.1, got %q", doc.Version())
	}
	if doc.First().Name() != "t" {
		t.Errorf("Expected block t, got %q", doc.First().Name())
	}
}

func TestParse_Deterministic(t *testing.T) {
	input := `data_a
_x 1.5(2)
_y 'text'
loop_ _l1 _l2 a 1 b 2
save_s
_z ?
save_
data_b
_x .
`
	first, err := Parse(input)
	if err != nil {
		t.Fatalf("Parse() failed: %v", err)
	}
	second, err := Parse(input)
	if err != nil {
		t.Fatalf("Parse() failed: %v", err)
	}
	if !first.Equal(second) {
		t.Error("Expected two parses of the same input to be equal")
	}

	other, _ := Parse(strings.Replace(input, "1.5(2)", "1.5(3)", 1))
	if first.Equal(other) {
		t.Error("Expected documents with different uncertainty to differ")
	}
}

func TestParser_MaxSize(t *testing.T) {
	p := NewParser().WithMaxSize(10)
	if _, err := p.Parse("data_t\n_a 1\n"); err == nil {
		t.Error("Expected size limit error")
	}
	if _, err := p.ParseDocument(strings.NewReader("data_t\n_a 1\n")); err == nil {
		t.Error("Expected size limit error from reader")
	}
	if _, err := p.Parse("data_t\n"); err != nil {
		t.Errorf("Expected input under limit to parse, got %v", err)
	}
}

func TestParser_WithFilename(t *testing.T) {
	_, err := NewParser().WithFilename("x.cif").Parse("data_t\n_a\n")
	var cerr *Error
	if !errors.As(err, &cerr) {
		t.Fatalf("Expected *Error, got %v", err)
	}
	if cerr.Pos.File != "x.cif" {
		t.Errorf("Expected file x.cif in position, got %q", cerr.Pos.File)
	}
	if !strings.Contains(err.Error(), "x.cif:2:1") {
		t.Errorf("Expected position in message, got %q", err.Error())
	}
}

func TestParser_WithLogger(t *testing.T) {
	var sb strings.Builder
	logger := slog.New(slog.NewTextHandler(&sb, &slog.HandlerOptions{Level: slog.LevelDebug}))

	if _, err := NewParser().WithLogger(logger).Parse("data_t\nsave_f\nsave_\n"); err != nil {
		t.Fatalf("Parse() failed: %v", err)
	}
	out := sb.String()
	for _, want := range []string{"committed save frame", "committed data block", "block=t"} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected log output to contain %q, got:\n%s", want, out)
		}
	}
}

func TestParseReader(t *testing.T) {
	doc, err := ParseReader(strings.NewReader("data_r\n_a b\n"))
	if err != nil {
		t.Fatalf("ParseReader() failed: %v", err)
	}
	if doc.First().Name() != "r" {
		t.Errorf("Expected block r, got %s", doc.First().Name())
	}
}
