// Package parser provides capture file reading and marker classification.
package parser

// Line is a single capture line with provenance.
type Line struct {
	// Raw is the line content after invalid-byte replacement.
	Raw string

	// Source is the file path this line came from.
	Source string

	// LineNum is the 1-based line number in the source file.
	LineNum int
}
