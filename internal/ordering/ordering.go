// Package ordering maintains a dense integer ordering over a collection.
package ordering

// NoDestination marks a move whose drop target is missing. Move treats it
// like any other out-of-range index.
const NoDestination = -1

// Orderable is an entity with an identity and an order number.
type Orderable interface {
	OrderID() string
	Order() int
}

// Assignment is a new order number for one entity.
type Assignment struct {
	ID    string `json:"id"`
	Order int    `json:"order"`
}

// HeadOrder returns an order number that sorts before every item.
// An empty collection counts as having minimum 0, so the first head is -1.
func HeadOrder[T Orderable](items []T) int {
	lowest := 0
	for i, it := range items {
		if i == 0 || it.Order() < lowest {
			lowest = it.Order()
		}
	}
	return lowest - 1
}

// Reorder returns a copy of items with the element at source moved to
// destination. Indices are not validated.
func Reorder[T any](items []T, source, destination int) []T {
	out := make([]T, 0, len(items))
	out = append(out, items[:source]...)
	out = append(out, items[source+1:]...)

	moved := items[source]
	out = append(out, moved)
	copy(out[destination+1:], out[destination:len(out)-1])
	out[destination] = moved
	return out
}

// Move relocates the element at source to destination and returns the new
// order number of every element, numbered 0..N-1 by position. All of them
// must be persisted since any element's order may shift.
//
// It returns nil when source equals destination or either index is out of
// range. items is never modified.
func Move[T Orderable](items []T, source, destination int) []Assignment {
	if source == destination || !inRange(source, len(items)) || !inRange(destination, len(items)) {
		return nil
	}

	reordered := Reorder(items, source, destination)
	assignments := make([]Assignment, len(reordered))
	for i, it := range reordered {
		assignments[i] = Assignment{ID: it.OrderID(), Order: i}
	}
	return assignments
}

func inRange(i, n int) bool {
	return i >= 0 && i < n
}
