package http

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// PaginatedResponse wraps list results with pagination metadata.
type PaginatedResponse struct {
	Data       any        `json:"data"`
	Pagination Pagination `json:"pagination"`
}

// Pagination contains offset-based pagination info.
type Pagination struct {
	Offset int `json:"offset"`
	Limit  int `json:"limit"`
	Total  int `json:"total"`
}

func (p Pagination) end() int {
	if e := p.Offset + p.Limit; e < p.Total {
		return e
	}
	return p.Total
}

// paginate reads offset and limit for a list of total items. An out-of-range
// limit falls back to def; an offset past the end yields an empty page.
func paginate(c *fiber.Ctx, total, def, max int) Pagination {
	offset := c.QueryInt("offset", 0)
	limit := c.QueryInt("limit", def)
	if offset < 0 {
		offset = 0
	}
	if offset > total {
		offset = total
	}
	if limit <= 0 || limit > max {
		limit = def
	}
	return Pagination{Offset: offset, Limit: limit, Total: total}
}

// SetLinkHeaders adds RFC 8288 Link headers for paginated responses.
// Other query parameters of the request are kept.
func SetLinkHeaders(c *fiber.Ctx, p Pagination) {
	base := c.Path() + "?"
	if q := otherParams(c); q != "" {
		base += q + "&"
	}
	var links []string

	links = append(links, fmt.Sprintf(`<%soffset=0&limit=%d>; rel="first"`, base, p.Limit))

	if p.Offset > 0 {
		prev := p.Offset - p.Limit
		if prev < 0 {
			prev = 0
		}
		links = append(links, fmt.Sprintf(`<%soffset=%d&limit=%d>; rel="prev"`, base, prev, p.Limit))
	}

	if p.Offset+p.Limit < p.Total {
		links = append(links, fmt.Sprintf(`<%soffset=%d&limit=%d>; rel="next"`, base, p.Offset+p.Limit, p.Limit))
	}

	lastOffset := p.Total - p.Limit
	if lastOffset < 0 {
		lastOffset = 0
	}
	links = append(links, fmt.Sprintf(`<%soffset=%d&limit=%d>; rel="last"`, base, lastOffset, p.Limit))

	c.Set("Link", strings.Join(links, ", "))
}

func otherParams(c *fiber.Ctx) string {
	q := url.Values{}
	for k, v := range c.Queries() {
		if k != "offset" && k != "limit" {
			q.Set(k, v)
		}
	}
	return q.Encode()
}
