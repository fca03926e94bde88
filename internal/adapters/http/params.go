package http

import (
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/samirrijal/hafasgo/internal/core/domain"
	"github.com/samirrijal/hafasgo/internal/hafas"
)

// queryTime parses an RFC 3339 query parameter. An absent parameter is nil.
func queryTime(c *fiber.Ctx, key string) (*time.Time, error) {
	v := c.Query(key)
	if v == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return nil, fmt.Errorf("%s must be an RFC 3339 timestamp", key)
	}
	return &t, nil
}

// queryProducts reads one boolean parameter per product of the profile,
// e.g. ?bus=false. Products not mentioned keep their defaults.
func queryProducts(c *fiber.Ctx, p *hafas.Profile) (map[string]bool, error) {
	var out map[string]bool
	for _, prod := range p.Products {
		v := c.Query(prod.ID)
		if v == "" {
			continue
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("%s must be true or false", prod.ID)
		}
		if out == nil {
			out = map[string]bool{}
		}
		out[prod.ID] = b
	}
	return out, nil
}

// queryLocation reads a location given either as a stop ID in prefix, or as
// prefix.lat, prefix.lon plus prefix.address or prefix.name. It returns nil
// when none of them is present.
func queryLocation(c *fiber.Ctx, prefix string) (*domain.Location, error) {
	if id := c.Query(prefix); id != "" {
		return domain.StationRef(id), nil
	}
	lat, lon := c.Query(prefix+".lat"), c.Query(prefix+".lon")
	if lat == "" && lon == "" {
		return nil, nil
	}
	pt, err := parsePoint(lat, lon)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", prefix, err)
	}
	if addr := c.Query(prefix + ".address"); addr != "" {
		return &domain.Location{Kind: domain.KindAddress, Address: addr, Coord: pt}, nil
	}
	return &domain.Location{
		Kind:  domain.KindPOI,
		ID:    c.Query(prefix + ".id"),
		Name:  c.Query(prefix + ".name"),
		Coord: pt,
	}, nil
}

func parsePoint(lat, lon string) (*domain.GeoPoint, error) {
	la, err := strconv.ParseFloat(lat, 64)
	if err != nil {
		return nil, fmt.Errorf("lat must be a number")
	}
	lo, err := strconv.ParseFloat(lon, 64)
	if err != nil {
		return nil, fmt.Errorf("lon must be a number")
	}
	return &domain.GeoPoint{Lat: la, Lon: lo}, nil
}

// pathParam returns the unescaped path parameter key. Trip IDs and refresh
// tokens carry characters clients have to escape.
func pathParam(c *fiber.Ctx, key string) (string, error) {
	v, err := url.PathUnescape(c.Params(key))
	if err != nil {
		return "", fmt.Errorf("%s is not properly escaped", key)
	}
	return v, nil
}
