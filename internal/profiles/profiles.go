// Package profiles holds the built-in endpoint profiles. Each profile is a
// YAML catalog compiled into the binary, optionally combined with parser
// hooks for the endpoint's quirks.
package profiles

import (
	"embed"
	"encoding/hex"
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/samirrijal/hafasgo/internal/hafas"
	"gopkg.in/yaml.v3"
)

//go:embed catalogs/*.yaml
var catalogs embed.FS

type catalog struct {
	Name        string          `yaml:"name" validate:"required"`
	Locale      string          `yaml:"locale" validate:"required"`
	Timezone    string          `yaml:"timezone" validate:"required"`
	Endpoint    string          `yaml:"endpoint" validate:"required,url"`
	Client      map[string]any  `yaml:"client" validate:"required"`
	Ext         string          `yaml:"ext"`
	Ver         string          `yaml:"ver" validate:"required"`
	Lang        string          `yaml:"lang"`
	Auth        map[string]any  `yaml:"auth" validate:"required"`
	Salt        string          `yaml:"salt" validate:"omitempty,hexadecimal"`
	AddChecksum bool            `yaml:"add_checksum"`
	AddMicMac   bool            `yaml:"add_mic_mac"`
	Features    hafas.Features  `yaml:"features"`
	Products    []hafas.Product `yaml:"products" validate:"required,min=1,dive"`
}

// customizers adapt a catalog-built profile before it is finalized.
var customizers = map[string]func(*hafas.Profile){
	"bvg": customizeBVG,
}

var validate = validator.New()

// Names lists the built-in profiles.
func Names() []string {
	entries, _ := catalogs.ReadDir("catalogs")
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, strings.TrimSuffix(e.Name(), path.Ext(e.Name())))
	}
	sort.Strings(names)
	return names
}

// Get builds the named profile.
func Get(name string) (*hafas.Profile, error) {
	data, err := catalogs.ReadFile("catalogs/" + name + ".yaml")
	if err != nil {
		return nil, fmt.Errorf("unknown profile %q", name)
	}
	return Parse(data)
}

// Parse builds a profile from a YAML catalog. Hooks registered under the
// catalog's name are applied.
func Parse(data []byte) (*hafas.Profile, error) {
	var c catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("decode profile catalog: %w", err)
	}
	if err := validate.Struct(c); err != nil {
		return nil, fmt.Errorf("profile %s: %w", c.Name, err)
	}
	if err := checkBitmasks(c.Products); err != nil {
		return nil, fmt.Errorf("profile %s: %w", c.Name, err)
	}

	salt, err := hex.DecodeString(c.Salt)
	if err != nil {
		return nil, fmt.Errorf("profile %s: salt: %w", c.Name, err)
	}
	if (c.AddChecksum || c.AddMicMac) && len(salt) == 0 {
		return nil, fmt.Errorf("profile %s: request signing needs a salt", c.Name)
	}

	p := hafas.Profile{
		Name:        c.Name,
		Locale:      c.Locale,
		Timezone:    c.Timezone,
		Endpoint:    c.Endpoint,
		Client:      c.Client,
		Ext:         c.Ext,
		Ver:         c.Ver,
		Lang:        c.Lang,
		Auth:        c.Auth,
		Salt:        salt,
		AddChecksum: c.AddChecksum,
		AddMicMac:   c.AddMicMac,
		Products:    c.Products,
		Features:    c.Features,
	}
	if customize, ok := customizers[c.Name]; ok {
		customize(&p)
	}
	return hafas.NewProfile(p)
}

// checkBitmasks rejects catalogs in which two products claim the same class.
func checkBitmasks(products []hafas.Product) error {
	seen := map[int]string{}
	for _, p := range products {
		for _, b := range p.Bitmasks {
			if other, ok := seen[b]; ok {
				return fmt.Errorf("bitmask %d used by both %s and %s", b, other, p.ID)
			}
			seen[b] = p.ID
		}
	}
	return nil
}
