// Package export converts parsed CIF documents into other representations:
// plain Go maps, JSON, YAML and SQLite tables.
package export

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/cifkit/cif"
	"gopkg.in/yaml.v3"
)

// ToMap projects doc onto plain maps and slices. Each block name maps to
//
//	{"items": {tag: value}, "loops": [{"tags": [...], "rows": [[...]]}], "frames": {name: {...}}}
//
// with values converted by cif.Value.Interface. Map keys lose item order;
// loops keep it.
func ToMap(doc *cif.Document) map[string]any {
	out := make(map[string]any, doc.Len())
	for _, b := range doc.Blocks() {
		m := scopeMap(b)
		frames := make(map[string]any, b.NumFrames())
		for _, f := range b.Frames() {
			frames[f.Name()] = scopeMap(f)
		}
		m["frames"] = frames
		out[b.Name()] = m
	}
	return out
}

func scopeMap(s cif.Scope) map[string]any {
	items := make(map[string]any, s.NumItems())
	for _, item := range s.Items() {
		items[item.Tag] = item.Value.Interface()
	}

	loops := make([]any, 0, s.NumLoops())
	for _, l := range s.Loops() {
		rows := make([]any, 0, l.Len())
		for _, row := range l.Rows() {
			vals := make([]any, len(row))
			for i, v := range row {
				vals[i] = v.Interface()
			}
			rows = append(rows, vals)
		}
		loops = append(loops, map[string]any{
			"tags": l.Tags(),
			"rows": rows,
		})
	}

	return map[string]any{
		"items": items,
		"loops": loops,
	}
}

// WriteJSON writes ToMap(doc) as JSON. Indent is used when non-empty.
func WriteJSON(w io.Writer, doc *cif.Document, indent string) error {
	enc := json.NewEncoder(w)
	if indent != "" {
		enc.SetIndent("", indent)
	}
	if err := enc.Encode(ToMap(doc)); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}

// WriteYAML writes ToMap(doc) as YAML.
func WriteYAML(w io.Writer, doc *cif.Document) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(ToMap(doc)); err != nil {
		return fmt.Errorf("failed to encode YAML: %w", err)
	}
	return enc.Close()
}
