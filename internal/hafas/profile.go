package hafas

import (
	"errors"
	"fmt"
	"time"
	_ "time/tzdata"
)

// Product is one entry of a profile's product catalog. An upstream class
// bitmask maps onto the product that lists it.
type Product struct {
	ID       string `yaml:"id" validate:"required"`
	Mode     string `yaml:"mode" validate:"required"`
	Name     string `yaml:"name" validate:"required"`
	Short    string `yaml:"short"`
	Bitmasks []int  `yaml:"bitmasks" validate:"required,min=1,dive,gt=0"`
	Default  bool   `yaml:"default"`
}

// Features lists optional operations and request flags an endpoint supports.
type Features struct {
	Trip           bool `yaml:"trip"`
	TripsByName    bool `yaml:"trips_by_name"`
	Radar          bool `yaml:"radar"`
	RefreshJourney bool `yaml:"refresh_journey"`
	ReachableFrom  bool `yaml:"reachable_from"`
	Remarks        bool `yaml:"remarks"`
	Lines          bool `yaml:"lines"`
	ServerInfo     bool `yaml:"server_info"`
	Subscriptions  bool `yaml:"subscriptions"`

	JourneysOutFrwd            bool `yaml:"journeys_out_frwd"`
	JourneysWalkingSpeed       bool `yaml:"journeys_walking_speed"`
	DeparturesGetPasslist      bool `yaml:"departures_get_passlist"`
	DeparturesStbFltrEquiv     bool `yaml:"departures_stb_fltr_equiv"`
	RefreshJourneyUseOutReconL bool `yaml:"refresh_journey_use_out_recon_l"`
}

// Profile is the per-endpoint configuration: where to send requests, how to
// authenticate, which products exist and how to parse responses.
// It is built once by NewProfile and never changed afterwards.
type Profile struct {
	Name     string
	Locale   string
	Timezone string

	Endpoint    string
	Client      map[string]any
	Ext         string
	Ver         string
	Lang        string
	Auth        map[string]any
	Salt        []byte
	AddChecksum bool
	AddMicMac   bool

	Products []Product
	Features Features
	Parsers  Parsers

	// TransformJourneysQuery adjusts the TripSearch request before it is sent.
	TransformJourneysQuery func(opt JourneysQuery, req map[string]any) (map[string]any, error)
	// StationID checks a station ID and returns the form the endpoint expects.
	StationID func(id string) (string, error)

	loc *time.Location
}

// JourneysQuery carries the journey options a TransformJourneysQuery hook
// may act on.
type JourneysQuery struct {
	// Berlkoenig includes ride-sharing results where the endpoint offers them.
	Berlkoenig bool
}

// NewProfile validates p, loads its timezone and fills unset parsers with the defaults.
func NewProfile(p Profile) (*Profile, error) {
	if p.Name == "" {
		return nil, errors.New("profile: name is required")
	}
	if p.Endpoint == "" {
		return nil, fmt.Errorf("profile %s: endpoint is required", p.Name)
	}
	if len(p.Products) == 0 {
		return nil, fmt.Errorf("profile %s: at least one product is required", p.Name)
	}
	loc, err := time.LoadLocation(p.Timezone)
	if err != nil {
		return nil, fmt.Errorf("profile %s: timezone: %w", p.Name, err)
	}
	p.loc = loc
	if p.Locale == "" {
		p.Locale = "de-DE"
	}
	if p.Lang == "" {
		p.Lang = "de"
	}
	p.Parsers = p.Parsers.withDefaults(DefaultParsers())
	return &p, nil
}

// Location returns the profile's timezone.
func (p *Profile) Location() *time.Location {
	if p.loc == nil {
		return time.UTC
	}
	return p.loc
}

// ProductByBitmask returns the product that lists cls among its bitmasks.
func (p *Profile) ProductByBitmask(cls int) *Product {
	for i := range p.Products {
		for _, b := range p.Products[i].Bitmasks {
			if b == cls {
				return &p.Products[i]
			}
		}
	}
	return nil
}

// ProductsFromBitmask expands a class bitmask into a product ID → bool map.
func (p *Profile) ProductsFromBitmask(mask int) map[string]bool {
	out := make(map[string]bool, len(p.Products))
	for _, prod := range p.Products {
		on := false
		for _, b := range prod.Bitmasks {
			if mask&b != 0 {
				on = true
				break
			}
		}
		out[prod.ID] = on
	}
	return out
}

// ProductsBitmask folds a product filter into a class bitmask. Products the
// filter does not mention fall back to their default.
func (p *Profile) ProductsBitmask(filter map[string]bool) (int, error) {
	known := make(map[string]bool, len(p.Products))
	for _, prod := range p.Products {
		known[prod.ID] = true
	}
	for id := range filter {
		if !known[id] {
			return 0, fmt.Errorf("%w: unknown product %q", ErrValidation, id)
		}
	}

	mask := 0
	for _, prod := range p.Products {
		on, ok := filter[prod.ID]
		if !ok {
			on = prod.Default
		}
		if !on {
			continue
		}
		for _, b := range prod.Bitmasks {
			mask |= b
		}
	}
	if mask == 0 {
		return 0, fmt.Errorf("%w: no products selected", ErrValidation)
	}
	return mask, nil
}
