// Package report writes fixed-width diagnostic columns. A component
// declares its fields once and uses the same table for the title row and
// the data rows so the two can never drift apart.
package report

import (
	"fmt"
	"io"
)

// Field is one column of a report over values of type T.
type Field[T any] struct {
	Title string
	Value func(T) float64
}

// Titles returns the column titles of fields prefixed with prefix.
func Titles[T any](fields []Field[T], prefix string) []string {
	out := make([]string, len(fields))
	for i, f := range fields {
		out[i] = prefix + f.Title
	}
	return out
}

// WriteTitle writes one right-aligned title per field.
func WriteTitle[T any](w io.Writer, width int, fields []Field[T], prefix string) error {
	for _, t := range Titles(fields, prefix) {
		if _, err := fmt.Fprintf(w, "%*s", width, t); err != nil {
			return err
		}
	}
	return nil
}

// WriteRow writes the field values of v using the same widths as WriteTitle.
func WriteRow[T any](w io.Writer, width int, fields []Field[T], v T) error {
	prec := width - 8
	if prec < 1 {
		prec = 1
	}
	for _, f := range fields {
		if _, err := fmt.Fprintf(w, "%*.*g", width, prec, f.Value(v)); err != nil {
			return err
		}
	}
	return nil
}
