// Package directory computes the visible slice of a profile listing from a
// search term, category filters and a sort order.
package directory

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

var (
	ErrUnknownCategory = errors.New("unknown filter category")
	ErrInvalidSort     = errors.New("invalid sort")
)

type Category string

const (
	CategorySector   Category = "sector"
	CategoryStage    Category = "stage"
	CategoryIndustry Category = "industry"
)

// FilterState holds lowercase tags per category. An empty category does
// not constrain the result.
type FilterState struct {
	Sectors    []string `json:"sectors"`
	Stages     []string `json:"stages"`
	Industries []string `json:"industries"`
}

func (f *FilterState) list(c Category) (*[]string, error) {
	switch c {
	case CategorySector:
		return &f.Sectors, nil
	case CategoryStage:
		return &f.Stages, nil
	case CategoryIndustry:
		return &f.Industries, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownCategory, c)
}

// Apply appends the lowercased value. Repeats are kept.
func (f *FilterState) Apply(c Category, value string) error {
	l, err := f.list(c)
	if err != nil {
		return err
	}
	*l = append(*l, strings.ToLower(value))
	return nil
}

// Remove drops every occurrence of value from the category. Values are
// compared lowercased, the way Apply stores them.
func (f *FilterState) Remove(c Category, value string) error {
	l, err := f.list(c)
	if err != nil {
		return err
	}
	value = strings.ToLower(value)
	*l = slices.DeleteFunc(*l, func(v string) bool { return v == value })
	return nil
}

func (f *FilterState) Clear() {
	f.Sectors = nil
	f.Stages = nil
	f.Industries = nil
}

func (f FilterState) Empty() bool {
	return len(f.Sectors) == 0 && len(f.Stages) == 0 && len(f.Industries) == 0
}

// allows reports whether tag passes a category list. A profile without the
// tag only passes an empty list.
func allows(list []string, tag string) bool {
	if len(list) == 0 {
		return true
	}
	return tag != "" && slices.Contains(list, strings.ToLower(tag))
}

// KnownTags are the tags the directory screens offer as filter buttons.
var KnownTags = map[Category][]string{
	CategorySector:   {"ayurveda", "yoga", "unani", "siddha"},
	CategoryStage:    {"ideation", "validation", "early traction", "scaling"},
	CategoryIndustry: {"medtech", "biotech"},
}
