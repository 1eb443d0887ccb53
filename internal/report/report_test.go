package report

import (
	"bytes"
	"strings"
	"testing"
)

type point struct{ x, y float64 }

var pointFields = []Field[point]{
	{"x", func(p point) float64 { return p.x }},
	{"y", func(p point) float64 { return p.y }},
}

func TestTitleAndRowWidthsMatch(t *testing.T) {
	var title, row bytes.Buffer
	if err := WriteTitle(&title, 16, pointFields, "p."); err != nil {
		t.Fatal(err)
	}
	if err := WriteRow(&row, 16, pointFields, point{1.5, -2.25e-7}); err != nil {
		t.Fatal(err)
	}

	if title.Len() != 32 {
		t.Errorf("expected title length 32, got %d", title.Len())
	}
	if row.Len() != 32 {
		t.Errorf("expected row length 32, got %d: %q", row.Len(), row.String())
	}
	if !strings.HasSuffix(title.String(), "p.y") {
		t.Errorf("expected title to end with p.y, got %q", title.String())
	}
}
