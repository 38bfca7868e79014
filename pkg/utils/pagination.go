package utils

import "strconv"

// Apartment history is paged; a page never holds more than MaxPerPage bookings.
const (
	DefaultPerPage = 10
	MaxPerPage     = 100
)

// ParsePositiveInt reads a query parameter, falling back to def when it is
// empty, malformed or below 1.
func ParsePositiveInt(value string, def int) int {
	n, err := strconv.Atoi(value)
	if err != nil || n < 1 {
		return def
	}
	return n
}

// ClampPerPage bounds a page size to [1, MaxPerPage], using DefaultPerPage
// when none was asked for.
func ClampPerPage(perPage int) int {
	switch {
	case perPage < 1:
		return DefaultPerPage
	case perPage > MaxPerPage:
		return MaxPerPage
	default:
		return perPage
	}
}

func CalculateTotalPages(total int64, perPage int) int {
	if perPage <= 0 || total <= 0 {
		return 0
	}
	return int((total + int64(perPage) - 1) / int64(perPage))
}

func CalculateOffset(page, perPage int) int {
	if page < 1 {
		return 0
	}
	return (page - 1) * perPage
}
