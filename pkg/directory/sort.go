package directory

import "fmt"

type SortKey string

const (
	SortNone    SortKey = ""
	SortEmail   SortKey = "email"
	SortRevenue SortKey = "revenue"
)

type SortOrder string

const (
	Asc  SortOrder = "asc"
	Desc SortOrder = "desc"
)

func (o SortOrder) Toggle() SortOrder {
	if o == Desc {
		return Asc
	}
	return Desc
}

type Sort struct {
	Key   SortKey   `json:"key"`
	Order SortOrder `json:"order"`
}

func ParseSortKey(s string) (SortKey, error) {
	switch SortKey(s) {
	case SortNone, SortEmail, SortRevenue:
		return SortKey(s), nil
	}
	return "", fmt.Errorf("%w: key %q", ErrInvalidSort, s)
}

// ParseSortOrder treats an empty string as ascending.
func ParseSortOrder(s string) (SortOrder, error) {
	switch SortOrder(s) {
	case "", Asc:
		return Asc, nil
	case Desc:
		return Desc, nil
	}
	return "", fmt.Errorf("%w: order %q", ErrInvalidSort, s)
}
