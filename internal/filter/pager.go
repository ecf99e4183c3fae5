package filter

// Page is one window of an ordered result sequence.
type Page[T any] struct {
	Items      []T
	Page       int
	TotalPages int
}

// Paginate returns the requested window. The page number is clamped into
// [1, TotalPages] and TotalPages is at least 1, so it never fails.
func Paginate[T any](items []T, page, size int) Page[T] {
	if size <= 0 {
		size = max(len(items), 1)
	}
	total := max(1, (len(items)+size-1)/size)
	page = min(max(page, 1), total)

	start := (page - 1) * size
	end := min(start+size, len(items))

	window := make([]T, end-start)
	copy(window, items[start:end])
	return Page[T]{Items: window, Page: page, TotalPages: total}
}
