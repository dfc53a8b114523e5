package views

// DefaultPageSize is the number of rows shown per table page
const DefaultPageSize = 10

// Paginate returns page (1-based) of items. Pages outside the range are empty.
// A non-positive size falls back to DefaultPageSize.
func Paginate[T any](items []T, page, size int) []T {
	if size <= 0 {
		size = DefaultPageSize
	}
	if page < 1 {
		return nil
	}
	start := (page - 1) * size
	if start >= len(items) {
		return nil
	}
	end := start + size
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}

// PageCount is the number of pages needed for n items
func PageCount(n, size int) int {
	if size <= 0 {
		size = DefaultPageSize
	}
	if n <= 0 {
		return 1
	}
	return (n + size - 1) / size
}

// ClampPage keeps page within [1, PageCount(n, size)]
func ClampPage(page, n, size int) int {
	last := PageCount(n, size)
	if page < 1 {
		return 1
	}
	if page > last {
		return last
	}
	return page
}
