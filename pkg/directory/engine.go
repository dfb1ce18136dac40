package directory

import (
	"cmp"
	"slices"
	"strings"

	"launchpad/pkg/profiles"
)

// Compute returns the profiles that match search and filters, stably sorted
// by s. The input slice is left untouched.
func Compute(list []profiles.Profile, search string, filters FilterState, s Sort) []profiles.Profile {
	term := strings.ToLower(search)
	out := make([]profiles.Profile, 0, len(list))
	for _, p := range list {
		if Visible(p, term, filters) {
			out = append(out, p)
		}
	}

	compare := comparator(s.Key)
	if compare == nil {
		return out
	}
	slices.SortStableFunc(out, func(a, b profiles.Profile) int {
		if s.Order == Desc {
			return compare(b, a)
		}
		return compare(a, b)
	})
	return out
}

// Visible reports whether p passes the lowercase search term and every
// non-empty filter category.
func Visible(p profiles.Profile, term string, filters FilterState) bool {
	if term != "" && !strings.Contains(strings.ToLower(p.Email), term) {
		return false
	}
	return allows(filters.Sectors, p.Sector()) &&
		allows(filters.Stages, p.Stage()) &&
		allows(filters.Industries, p.Industry())
}

func comparator(key SortKey) func(a, b profiles.Profile) int {
	switch key {
	case SortEmail:
		return func(a, b profiles.Profile) int { return strings.Compare(a.Email, b.Email) }
	case SortRevenue:
		return func(a, b profiles.Profile) int { return cmp.Compare(a.RevenueOrZero(), b.RevenueOrZero()) }
	}
	return nil
}
