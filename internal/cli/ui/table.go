// Package ui renders command line output: tables, status messages and spinners.
package ui

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/fatih/color"
)

// Table renders aligned columns under a highlighted header
type Table struct {
	writer  io.Writer
	headers []string
	rows    [][]string
	noColor bool
}

// NewTable creates a table with the given headers
func NewTable(w io.Writer, noColor bool, headers ...string) *Table {
	return &Table{
		writer:  w,
		headers: headers,
		noColor: noColor,
	}
}

// AddRow appends a row; missing cells render empty
func (t *Table) AddRow(cells ...string) {
	t.rows = append(t.rows, cells)
}

// Render writes the table
func (t *Table) Render() {
	if len(t.headers) == 0 {
		return
	}

	widths := make([]int, len(t.headers))
	for i, h := range t.headers {
		widths[i] = utf8.RuneCountInString(h)
	}
	for _, row := range t.rows {
		for i, cell := range row {
			if i < len(widths) && utf8.RuneCountInString(cell) > widths[i] {
				widths[i] = utf8.RuneCountInString(cell)
			}
		}
	}

	header := t.color(color.Bold, color.FgCyan)
	gray := t.color(color.FgHiBlack)

	for i, h := range t.headers {
		header.Fprint(t.writer, pad(h, widths[i], i == len(widths)-1))
	}
	fmt.Fprintln(t.writer)

	for i, w := range widths {
		gray.Fprint(t.writer, strings.Repeat("─", w))
		if i < len(widths)-1 {
			fmt.Fprint(t.writer, "  ")
		}
	}
	fmt.Fprintln(t.writer)

	for _, row := range t.rows {
		for i := range widths {
			cell := ""
			if i < len(row) {
				cell = row[i]
			}
			fmt.Fprint(t.writer, pad(cell, widths[i], i == len(widths)-1))
		}
		fmt.Fprintln(t.writer)
	}
}

func (t *Table) color(attrs ...color.Attribute) *color.Color {
	c := color.New(attrs...)
	if t.noColor {
		c.DisableColor()
	}
	return c
}

// pad right-pads s to width and adds the column gap; the last column is not padded
func pad(s string, width int, last bool) string {
	if last {
		return s
	}
	if n := utf8.RuneCountInString(s); n < width {
		s += strings.Repeat(" ", width-n)
	}
	return s + "  "
}

// KeyValueTable renders "key: value" lines with aligned values
type KeyValueTable struct {
	writer  io.Writer
	keys    []string
	values  []string
	noColor bool
}

// NewKeyValueTable creates an empty key-value table
func NewKeyValueTable(w io.Writer, noColor bool) *KeyValueTable {
	return &KeyValueTable{writer: w, noColor: noColor}
}

// AddRow appends a key-value pair
func (t *KeyValueTable) AddRow(key, value string) {
	t.keys = append(t.keys, key)
	t.values = append(t.values, value)
}

// Render writes the pairs
func (t *KeyValueTable) Render() {
	width := 0
	for _, k := range t.keys {
		if len(k) > width {
			width = len(k)
		}
	}

	cyan := color.New(color.FgCyan)
	if t.noColor {
		cyan.DisableColor()
	}
	for i, k := range t.keys {
		cyan.Fprint(t.writer, k+":"+strings.Repeat(" ", width-len(k)))
		fmt.Fprintf(t.writer, " %s\n", t.values[i])
	}
}

// Header writes a bold title underlined to its own width
func Header(w io.Writer, title string, noColor bool) {
	bold := color.New(color.Bold, color.FgCyan)
	gray := color.New(color.FgHiBlack)
	if noColor {
		bold.DisableColor()
		gray.DisableColor()
	}
	bold.Fprintln(w, title)
	gray.Fprintln(w, strings.Repeat("─", utf8.RuneCountInString(title)))
}
