package metrics

import (
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/cifkit/cif"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveParse_Success(t *testing.T) {
	c := NewCollector(nil)
	input := "data_a\nloop_ _x 1 2 3\nsave_f\nloop_ _y 4 5\nsave_\ndata_b _z 1\n"
	doc, err := cif.Parse(input)
	if err != nil {
		t.Fatalf("Parse() failed: %v", err)
	}

	c.ObserveParse(len(input), time.Millisecond, doc, nil)

	if got := testutil.ToFloat64(c.parses.WithLabelValues("ok")); got != 1 {
		t.Errorf("Expected 1 ok parse, got %f", got)
	}
	if got := testutil.ToFloat64(c.blocks); got != 2 {
		t.Errorf("Expected 2 blocks, got %f", got)
	}
	if got := testutil.ToFloat64(c.loopRows); got != 5 {
		t.Errorf("Expected 5 loop rows, got %f", got)
	}
}

func TestObserveParse_Errors(t *testing.T) {
	c := NewCollector(nil)

	inputs := []string{"data_a _x 'open", "data_a _x", "data_a _x 1 _x 2"}
	for _, input := range inputs {
		doc, err := cif.Parse(input)
		c.ObserveParse(len(input), time.Microsecond, doc, err)
	}
	c.ObserveParse(0, 0, nil, errors.New("read failed"))

	tests := []struct {
		result string
		want   float64
	}{
		{"lex_error", 1},
		{"structural_error", 2},
		{"error", 1},
		{"ok", 0},
	}
	for _, test := range tests {
		if got := testutil.ToFloat64(c.parses.WithLabelValues(test.result)); got != test.want {
			t.Errorf("%s: expected %f, got %f", test.result, test.want, got)
		}
	}
	if got := testutil.ToFloat64(c.blocks); got != 0 {
		t.Errorf("Expected no blocks counted on failure, got %f", got)
	}
	if got := testutil.CollectAndCount(c.duration); got != 1 {
		t.Errorf("Expected one duration histogram, got %d", got)
	}
}

func TestHandler(t *testing.T) {
	c := NewCollector(nil)
	c.ObserveParse(10, time.Millisecond, nil, nil)

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body := rec.Body.String()
	for _, name := range []string{"cif_parse_total", "cif_parse_duration_seconds", "cif_parse_bytes"} {
		if !strings.Contains(body, name) {
			t.Errorf("Expected %s in scrape output", name)
		}
	}
}
