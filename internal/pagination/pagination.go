package pagination

import "strconv"

// PostsPerPage is the fixed page size for every listing.
const PostsPerPage = 10

// Page describes one slice of a listing. NumPages is at least 1 even for an
// empty result set, so an empty listing still renders as a valid page.
type Page struct {
	Number   int  `json:"number"`
	PerPage  int  `json:"perPage"`
	Count    int  `json:"count"`
	NumPages int  `json:"numPages"`
	HasNext  bool `json:"hasNext"`
	HasPrev  bool `json:"hasPrev"`
}

// Resolve clamps a requested page number against a total item count. A
// missing or malformed page parameter resolves to page 1, and anything past
// the end resolves to the last page rather than erroring.
func Resolve(rawPage string, total int) Page {
	numPages := (total + PostsPerPage - 1) / PostsPerPage
	if numPages < 1 {
		numPages = 1
	}

	number, err := strconv.Atoi(rawPage)
	if err != nil || number < 1 {
		number = 1
	}
	if number > numPages {
		number = numPages
	}

	return Page{
		Number:   number,
		PerPage:  PostsPerPage,
		Count:    total,
		NumPages: numPages,
		HasNext:  number < numPages,
		HasPrev:  number > 1,
	}
}

// Offset is the item offset of the page's first element.
func (p Page) Offset() int {
	return (p.Number - 1) * p.PerPage
}

// RequestedOffset is the optimistic offset for a raw page parameter, used
// before the total is known. Callers re-fetch with Resolve once they have the
// count, so overshooting past the end here is fine.
func RequestedOffset(rawPage string) int {
	number, err := strconv.Atoi(rawPage)
	if err != nil || number < 1 {
		number = 1
	}
	return (number - 1) * PostsPerPage
}
