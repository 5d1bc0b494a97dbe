package moderation

import (
	"slices"
	"time"
)

// Publishable is content that carries a publication date and status.
type Publishable interface {
	PublishedOn() time.Time
	Approved() bool
}

// Visible returns the items a caller may see, newest first. Non-admins only
// see approved items. Equal dates keep their collection order.
func Visible[T Publishable](items []T, isAdmin bool) []T {
	out := make([]T, 0, len(items))
	for _, it := range items {
		if isAdmin || it.Approved() {
			out = append(out, it)
		}
	}
	slices.SortStableFunc(out, func(a, b T) int {
		return b.PublishedOn().Compare(a.PublishedOn())
	})
	return out
}
