package core

import "strings"

const (
	DefaultLimit = 100
	MaxLimit     = 500
)

type DBOrdering struct {
	Field     string
	Ascending bool
}

func (ord DBOrdering) String() string {
	direction := "DESC"
	if ord.Ascending {
		direction = "ASC"
	}
	return ord.Field + " " + direction
}

// CleanOrderings drops orderings on fields that are not in `allowed`.
func CleanOrderings(orderings []DBOrdering, allowed ...string) []DBOrdering {
	cleaned := make([]DBOrdering, 0, len(orderings))
	for _, ord := range orderings {
		for _, fld := range allowed {
			if strings.EqualFold(ord.Field, fld) {
				ord.Field = fld
				cleaned = append(cleaned, ord)
				break
			}
		}
	}
	return cleaned
}

// Page is an offset/limit window.
type Page struct {
	Skip  int
	Limit int
}

// Clean clamps the window to sane bounds.
func (p *Page) Clean() {
	if p.Skip < 0 {
		p.Skip = 0
	}
	if p.Limit <= 0 {
		p.Limit = DefaultLimit
	}
	if p.Limit > MaxLimit {
		p.Limit = MaxLimit
	}
}
