package clock

import (
	"fmt"
	"time"

	"golang.org/x/text/language"
)

type layoutFunc func(t time.Time) string

func hourUnpadded(t time.Time) string {
	h, m, s := t.Clock()

	return fmt.Sprintf("%d:%02d:%02d", h, m, s)
}

func layout(l string) layoutFunc {
	return func(t time.Time) string { return t.Format(l) }
}

// Readout layouts, indexed like readoutTags.
//
//nolint:gochecknoglobals // Static lookup tables.
var (
	readoutTags = []language.Tag{
		language.Japanese,
		language.AmericanEnglish,
		language.BritishEnglish,
		language.German,
		language.French,
		language.Russian,
		language.Chinese,
		language.Korean,
	}
	readoutLayouts = []layoutFunc{
		hourUnpadded,
		layout("3:04:05 PM"),
		layout("15:04:05"),
		layout("15:04:05"),
		layout("15:04:05"),
		layout("15:04:05"),
		layout("15:04:05"),
		layout("15:04:05"),
	}
	readoutMatcher = language.NewMatcher(readoutTags)
)

// Readout formats instants the way a locale shows a time of day.
type Readout struct {
	tag    language.Tag
	format layoutFunc
}

// NewReadout picks the closest supported locale for tag, falling back to
// Japanese, the widget's original locale.
func NewReadout(tag string) (*Readout, error) {
	requested, err := language.Parse(tag)
	if err != nil {
		return nil, fmt.Errorf("parse locale %q: %w", tag, err)
	}

	_, index, confidence := readoutMatcher.Match(requested)
	if confidence == language.No {
		index = 0
	}

	return &Readout{tag: readoutTags[index], format: readoutLayouts[index]}, nil
}

// Tag returns the matched locale.
func (r *Readout) Tag() language.Tag {
	return r.tag
}

// Format renders t.
func (r *Readout) Format(t time.Time) string {
	return r.format(t)
}
