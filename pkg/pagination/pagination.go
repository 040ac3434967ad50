// Package pagination extracts list windowing parameters from a request
// and applies them to in-memory slices. The backend's list endpoints all
// take the same limit and offset query params.
package pagination

import (
	"strconv"

	"github.com/labstack/echo/v4"
)

// MaxLimit caps how many entries one request can ask for.
const MaxLimit = 100

// Params holds the windowing parameters of a list request.
type Params struct {
	Limit  int
	Offset int
}

// FromContext extracts limit and offset from the query string. A missing
// or non-positive limit falls back to defaultLimit; limits above MaxLimit
// are clamped.
func FromContext(c echo.Context, defaultLimit int) Params {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}

	offset, _ := strconv.Atoi(c.QueryParam("offset"))
	if offset < 0 {
		offset = 0
	}

	return Params{Limit: limit, Offset: offset}
}

// Window returns the slice bounds for a list of total entries. lo == hi
// when the window falls entirely past the end.
func (p Params) Window(total int) (lo, hi int) {
	lo = p.Offset
	if lo > total {
		lo = total
	}
	hi = lo + p.Limit
	if hi > total {
		hi = total
	}
	return lo, hi
}

// HasNext reports whether entries remain after the current window.
func (p Params) HasNext(total int) bool {
	return p.Offset+p.Limit < total
}
