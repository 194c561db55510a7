package domain

import (
	_ "embed"
	"fmt"
	"strings"
	"sync"

	"github.com/vladimiradmaev/menupro-bot/internal/utils"
	"gopkg.in/yaml.v3"
)

// Slot is a named meal occasion.
type Slot string

const (
	SlotBreakfast Slot = "breakfast"
	SlotBrunch    Slot = "brunch"
	SlotLunch     Slot = "lunch"
	SlotSnack     Slot = "snack"
	SlotDinner    Slot = "dinner"
)

// AllSlots returns every slot in canonical order.
func AllSlots() []Slot {
	return []Slot{SlotBreakfast, SlotBrunch, SlotLunch, SlotSnack, SlotDinner}
}

// Diet is a diet category key.
type Diet string

type DietInfo struct {
	Key         Diet   `yaml:"key"`
	Label       string `yaml:"label"`
	Description string `yaml:"description"`
}

type SlotInfo struct {
	Key         Slot     `yaml:"key"`
	Label       string   `yaml:"label"`
	Name        string   `yaml:"name"`
	DefaultTime string   `yaml:"default_time"`
	Aliases     []string `yaml:"aliases"`
}

// Catalog holds the fixed diet and slot enumerations.
type Catalog struct {
	Diets []DietInfo `yaml:"diets"`
	Slots []SlotInfo `yaml:"slots"`

	diets   map[Diet]DietInfo
	slots   map[Slot]SlotInfo
	aliases map[string]Slot
}

//go:embed catalog.yaml
var catalogYAML []byte

var (
	defaultCatalog     *Catalog
	defaultCatalogOnce sync.Once
)

// DefaultCatalog returns the embedded catalog.
func DefaultCatalog() *Catalog {
	defaultCatalogOnce.Do(func() {
		c, err := ParseCatalog(catalogYAML)
		if err != nil {
			panic(fmt.Sprintf("embedded catalog is invalid: %v", err))
		}
		defaultCatalog = c
	})
	return defaultCatalog
}

// ParseCatalog decodes and indexes a YAML catalog.
func ParseCatalog(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to decode catalog: %w", err)
	}

	c.diets = make(map[Diet]DietInfo, len(c.Diets))
	for _, d := range c.Diets {
		if d.Key == "" {
			return nil, fmt.Errorf("diet without key")
		}
		c.diets[d.Key] = d
	}

	known := make(map[Slot]bool)
	for _, s := range AllSlots() {
		known[s] = true
	}
	c.slots = make(map[Slot]SlotInfo, len(c.Slots))
	c.aliases = make(map[string]Slot)
	for _, s := range c.Slots {
		if !known[s.Key] {
			return nil, fmt.Errorf("unknown slot %q", s.Key)
		}
		if !utils.IsClock(s.DefaultTime) {
			return nil, fmt.Errorf("slot %s: invalid default time %q", s.Key, s.DefaultTime)
		}
		c.slots[s.Key] = s
		for _, alias := range s.Aliases {
			key := normalizeAlias(alias)
			if other, dup := c.aliases[key]; dup && other != s.Key {
				return nil, fmt.Errorf("alias %q used by %s and %s", alias, other, s.Key)
			}
			c.aliases[key] = s.Key
		}
	}
	for s := range known {
		if _, ok := c.slots[s]; !ok {
			return nil, fmt.Errorf("slot %s missing from catalog", s)
		}
	}

	return &c, nil
}

func (c *Catalog) Diet(key Diet) (DietInfo, bool) {
	d, ok := c.diets[key]
	return d, ok
}

func (c *Catalog) Slot(key Slot) (SlotInfo, bool) {
	s, ok := c.slots[key]
	return s, ok
}

// DefaultTime returns the default HH:MM for a slot.
func (c *Catalog) DefaultTime(key Slot) string {
	return c.slots[key].DefaultTime
}

// SlotName returns the display name of a slot, or the key when unknown.
func (c *Catalog) SlotName(key Slot) string {
	if s, ok := c.slots[key]; ok {
		return s.Name
	}
	return string(key)
}

// DietLabel returns the display label of a diet, or the key when unknown.
func (c *Catalog) DietLabel(key Diet) string {
	if d, ok := c.diets[key]; ok {
		return d.Label
	}
	return string(key)
}

// DietDescription returns the prompt description of a diet.
func (c *Catalog) DietDescription(key Diet) string {
	if d, ok := c.diets[key]; ok {
		return d.Description
	}
	return string(key)
}

// SlotByAlias resolves a whole alias such as "второй завтрак", ignoring case
// and repeated whitespace.
func (c *Catalog) SlotByAlias(alias string) (Slot, bool) {
	s, ok := c.aliases[normalizeAlias(alias)]
	return s, ok
}

func normalizeAlias(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}
