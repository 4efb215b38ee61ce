package assets

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/hupe1980/respool"
	"github.com/hupe1980/respool/codec"
)

// Entry holds the hints for one asset. Unset fields fall back to the
// catalog default.
type Entry struct {
	Priority *int   `yaml:"priority,omitempty"`
	Exempt   bool   `yaml:"exempt,omitempty"`
	Codec    string `yaml:"codec,omitempty"`
}

// Hints is the resolved form of an Entry.
type Hints struct {
	Priority int
	Exempt   bool
	// Codec is empty when the codec is picked by file extension.
	Codec string
}

// Catalog maps asset names to pool hints.
type Catalog struct {
	Default Entry            `yaml:"default"`
	Assets  map[string]Entry `yaml:"assets"`
}

// LoadCatalog reads a YAML catalog from path.
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseCatalog(data)
}

// ParseCatalog parses a YAML catalog and checks its codec names.
func ParseCatalog(data []byte) (*Catalog, error) {
	c := &Catalog{}
	if err := yaml.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("assets: parse catalog: %w", err)
	}

	if err := checkCodec("default", c.Default.Codec); err != nil {
		return nil, err
	}
	for name, e := range c.Assets {
		if err := checkCodec(name, e.Codec); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func checkCodec(name, codecName string) error {
	if codecName == "" {
		return nil
	}
	if _, ok := codec.ByName(codecName); !ok {
		return fmt.Errorf("assets: %s: unknown codec %q", name, codecName)
	}
	return nil
}

// Lookup resolves the hints for name. A nil catalog yields the pool defaults.
func (c *Catalog) Lookup(name string) Hints {
	h := Hints{Priority: respool.DefaultPriority}
	if c == nil {
		return h
	}

	apply := func(e Entry) {
		if e.Priority != nil {
			h.Priority = *e.Priority
		}
		if e.Exempt {
			h.Exempt = true
		}
		if e.Codec != "" {
			h.Codec = e.Codec
		}
	}

	apply(c.Default)
	if e, ok := c.Assets[name]; ok {
		apply(e)
	}
	return h
}

// Names returns the cataloged asset names in lexical order.
func (c *Catalog) Names() []string {
	if c == nil {
		return nil
	}
	names := make([]string, 0, len(c.Assets))
	for name := range c.Assets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
