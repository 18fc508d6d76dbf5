package extract

import (
	"context"
	"time"
)

// Rect is an axis-aligned box in page space with a top-left origin (y grows downward).
type Rect struct {
	X0, Y0, X1, Y1 float64
}

func (r Rect) Width() float64  { return r.X1 - r.X0 }
func (r Rect) Height() float64 { return r.Y1 - r.Y0 }

// Empty reports whether r has no area.
func (r Rect) Empty() bool { return r.X1 <= r.X0 || r.Y1 <= r.Y0 }

// Contains reports whether the point lies inside r (edges inclusive).
func (r Rect) Contains(x, y float64) bool {
	return x >= r.X0 && x <= r.X1 && y >= r.Y0 && y <= r.Y1
}

// Center returns the midpoint of r.
func (r Rect) Center() (float64, float64) {
	return (r.X0 + r.X1) / 2, (r.Y0 + r.Y1) / 2
}

// Word is a run of glyphs with its bounding box.
type Word struct {
	Text string
	Box  Rect
}

// Page is one rendered page of a document.
type Page interface {
	// Number is 1-based.
	Number() int
	Bounds() Rect
	Words() ([]Word, error)
	// ImageBoxes returns the boxes of placed images; backends that cannot locate images return nil.
	ImageBoxes() []Rect
}

// Document is an opened PDF.
type Document interface {
	NumPages() int
	// Page is 1-based.
	Page(n int) (Page, error)
	Close() error
}

// Opener opens the document at path.
type Opener func(ctx context.Context, path string) (Document, error)

// Result is the outcome of extracting one document.
type Result struct {
	Text       string
	TextPath   string
	Pages      int
	Regions    int
	Backend    string
	Warnings   []string
	Confidence float32
	Duration   time.Duration
}
