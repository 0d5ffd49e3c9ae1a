package calendar

import (
	"sort"

	"github.com/calendo/core/internal/domain/entities"
)

// Policy reports whether a sorts before b within one calendar day.
type Policy func(a, b *entities.Todo) bool

// HydrationOrder is the order buckets are stored in: Low, Medium, High.
var HydrationOrder Policy = func(a, b *entities.Todo) bool {
	return a.Priority.Rank() < b.Priority.Rank()
}

// DisplayOrder is the order todos are shown in: High, Medium, Low.
var DisplayOrder Policy = func(a, b *entities.Todo) bool {
	return a.Priority.Rank() > b.Priority.Rank()
}

// Sort orders todos in place. Equal todos keep their relative order.
func (p Policy) Sort(todos []*entities.Todo) {
	sort.SliceStable(todos, func(i, j int) bool {
		return p(todos[i], todos[j])
	})
}
