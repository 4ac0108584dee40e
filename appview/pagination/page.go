package pagination

import (
	"net/http"
	"strconv"
)

type Page struct {
	Offset int // where to start from
	Limit  int // number of items in a page
}

func FirstPage() Page {
	return Page{
		Offset: 0,
		Limit:  30,
	}
}

// FromRequest reads offset/limit query params, falling back to the
// first page on anything malformed.
func FromRequest(r *http.Request) Page {
	page := FirstPage()
	if v := r.URL.Query().Get("offset"); v != "" {
		if offset, err := strconv.Atoi(v); err == nil && offset >= 0 {
			page.Offset = offset
		}
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		if limit, err := strconv.Atoi(v); err == nil && limit > 0 && limit <= 100 {
			page.Limit = limit
		}
	}
	return page
}

func (p Page) Next() Page {
	return Page{
		Offset: p.Offset + p.Limit,
		Limit:  p.Limit,
	}
}
