// Package catalog holds the static game definitions the job engine produces from: resource
// node types and their drop tables, tools, buildings, recipes and quality tiers.
package catalog

import (
	_ "embed"
	"fmt"
	"os"
	"sort"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/sumire/homestead/internal/domain"
)

//go:embed default.yaml
var defaultCatalog []byte

// Definition is the on-disk catalog document.
type Definition struct {
	ExperiencePerLevel         int `yaml:"experience_per_level" validate:"gt=0"`
	MaxProfessionLevel         int `yaml:"max_profession_level" validate:"gte=0"`
	ProfessionTimeReductionPct int `yaml:"profession_time_reduction_pct" validate:"gte=0,lte=100"`
	MaxTimeReductionPct        int `yaml:"max_time_reduction_pct" validate:"gte=0,lt=100"`

	QualityTiers []QualityTier `yaml:"quality_tiers" validate:"len=6,dive"`
	Tools        []Tool        `yaml:"tools" validate:"dive"`
	NodeTypes    []NodeType    `yaml:"node_types" validate:"dive"`
	Buildings    []Building    `yaml:"buildings" validate:"dive"`
	Recipes      []Recipe      `yaml:"recipes" validate:"dive"`
}

// QualityTier is one band of the crafting quality roll. Its chance in percent is
// BasePercent + BonusFactor * (profession_level*5 + station_level*10).
type QualityTier struct {
	Tier        domain.Quality `yaml:"tier" validate:"required"`
	BasePercent float64        `yaml:"base_percent" validate:"gte=0,lte=100"`
	BonusFactor float64        `yaml:"bonus_factor" validate:"gte=0"`
}

// Tool modifies gathering jobs.
type Tool struct {
	ID                 string  `yaml:"id" validate:"required"`
	Tier               int     `yaml:"tier" validate:"gte=0"`
	SpeedBonusPct      int     `yaml:"speed_bonus_pct" validate:"gte=0,lt=100"`
	EfficiencyBonusPct int     `yaml:"efficiency_bonus_pct" validate:"gte=0"`
	RareDropBonus      float64 `yaml:"rare_drop_bonus" validate:"gte=0"`
}

// NodeType describes a kind of gatherable resource node.
type NodeType struct {
	ID                 string      `yaml:"id" validate:"required"`
	BaseSeconds        int         `yaml:"base_seconds" validate:"gt=0"`
	MinPlayerLevel     int         `yaml:"min_player_level" validate:"gte=0"`
	MinToolTier        int         `yaml:"min_tool_tier" validate:"gte=0"`
	DepletionPerGather int         `yaml:"depletion_per_gather" validate:"gte=0"`
	Drops              []DropEntry `yaml:"drops" validate:"min=1,dive"`
}

// DropEntry is an independent chance to receive an item on a gathering collection.
type DropEntry struct {
	Item        string  `yaml:"item" validate:"required"`
	Chance      float64 `yaml:"chance" validate:"gte=0,lte=100"`
	MinQuantity int     `yaml:"min_quantity" validate:"gte=1"`
	MaxQuantity int     `yaml:"max_quantity" validate:"gtefield=MinQuantity"`
	Rare        bool    `yaml:"rare"`
	MinToolTier int     `yaml:"min_tool_tier" validate:"gte=0"`
}

// Building describes a home structure and what each level costs.
type Building struct {
	ID       string      `yaml:"id" validate:"required"`
	Levels   []LevelDef  `yaml:"levels" validate:"min=1,dive"`
	Produces *Production `yaml:"produces" validate:"omitempty"`
}

// LevelDef is the cost of reaching Level.
type LevelDef struct {
	Level           int                `yaml:"level" validate:"gte=1"`
	DurationSeconds int                `yaml:"duration_seconds" validate:"gt=0"`
	MinPlayerLevel  int                `yaml:"min_player_level" validate:"gte=0"`
	Cost            []domain.ItemStack `yaml:"cost"`
}

// Production is what a built structure yields on a collection job.
type Production struct {
	Item             string `yaml:"item" validate:"required"`
	QuantityPerLevel int    `yaml:"quantity_per_level" validate:"gt=0"`
	DurationSeconds  int    `yaml:"duration_seconds" validate:"gt=0"`
}

// Recipe turns materials into a single crafted item.
type Recipe struct {
	ID                 string             `yaml:"id" validate:"required"`
	Profession         string             `yaml:"profession" validate:"required"`
	MinProfessionLevel int                `yaml:"min_profession_level" validate:"gte=0"`
	Station            string             `yaml:"station"`
	MinStationLevel    int                `yaml:"min_station_level" validate:"gte=0"`
	DurationSeconds    int                `yaml:"duration_seconds" validate:"gt=0"`
	Materials          []domain.ItemStack `yaml:"materials"`
	Output             string             `yaml:"output" validate:"required"`
	Experience         int                `yaml:"experience" validate:"gte=0"`
}

// Catalog is an indexed, validated Definition.
type Catalog struct {
	Definition

	tools     map[string]Tool
	nodeTypes map[string]NodeType
	buildings map[string]Building
	recipes   map[string]Recipe
}

// Default returns the catalog embedded in the binary.
func Default() (*Catalog, error) {
	return Parse(defaultCatalog)
}

// Load reads and validates a YAML catalog file.
func Load(path string) (*Catalog, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return Parse(raw)
}

// Parse decodes and validates a YAML catalog document.
func Parse(raw []byte) (*Catalog, error) {
	var def Definition
	if err := yaml.Unmarshal(raw, &def); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	return New(def)
}

// New validates def and builds the lookup indexes.
func New(def Definition) (*Catalog, error) {
	if err := validator.New().Struct(def); err != nil {
		return nil, fmt.Errorf("validate catalog: %w", err)
	}

	c := &Catalog{
		Definition: def,
		tools:      make(map[string]Tool, len(def.Tools)),
		nodeTypes:  make(map[string]NodeType, len(def.NodeTypes)),
		buildings:  make(map[string]Building, len(def.Buildings)),
		recipes:    make(map[string]Recipe, len(def.Recipes)),
	}

	seenTiers := make(map[domain.Quality]bool, len(def.QualityTiers))
	for _, qt := range def.QualityTiers {
		if !qt.Tier.Valid() {
			return nil, fmt.Errorf("validate catalog: unknown quality tier %q", qt.Tier)
		}
		if seenTiers[qt.Tier] {
			return nil, fmt.Errorf("validate catalog: duplicate quality tier %q", qt.Tier)
		}
		seenTiers[qt.Tier] = true
	}

	for _, t := range def.Tools {
		if _, dup := c.tools[t.ID]; dup {
			return nil, fmt.Errorf("validate catalog: duplicate tool %q", t.ID)
		}
		c.tools[t.ID] = t
	}
	for _, n := range def.NodeTypes {
		if _, dup := c.nodeTypes[n.ID]; dup {
			return nil, fmt.Errorf("validate catalog: duplicate node type %q", n.ID)
		}
		c.nodeTypes[n.ID] = n
	}
	for _, b := range def.Buildings {
		if _, dup := c.buildings[b.ID]; dup {
			return nil, fmt.Errorf("validate catalog: duplicate building %q", b.ID)
		}
		sort.Slice(b.Levels, func(i, j int) bool { return b.Levels[i].Level < b.Levels[j].Level })
		for i, l := range b.Levels {
			if l.Level != i+1 {
				return nil, fmt.Errorf("validate catalog: building %q levels must run 1..n, got %d at position %d", b.ID, l.Level, i+1)
			}
		}
		c.buildings[b.ID] = b
	}
	for _, r := range def.Recipes {
		if _, dup := c.recipes[r.ID]; dup {
			return nil, fmt.Errorf("validate catalog: duplicate recipe %q", r.ID)
		}
		if r.Station != "" {
			if _, ok := c.buildings[r.Station]; !ok {
				return nil, fmt.Errorf("validate catalog: recipe %q uses unknown station %q", r.ID, r.Station)
			}
		}
		c.recipes[r.ID] = r
	}

	return c, nil
}

// Tool looks up a tool definition.
func (c *Catalog) Tool(id string) (Tool, bool) {
	t, ok := c.tools[id]
	return t, ok
}

// NodeType looks up a resource node type.
func (c *Catalog) NodeType(id string) (NodeType, bool) {
	n, ok := c.nodeTypes[id]
	return n, ok
}

// Building looks up a building definition.
func (c *Catalog) Building(id string) (Building, bool) {
	b, ok := c.buildings[id]
	return b, ok
}

// Recipe looks up a recipe.
func (c *Catalog) Recipe(id string) (Recipe, bool) {
	r, ok := c.recipes[id]
	return r, ok
}

// MaxLevel returns the highest level the building can reach.
func (b Building) MaxLevel() int {
	return len(b.Levels)
}

// Level returns the definition for reaching level n.
func (b Building) Level(n int) (LevelDef, bool) {
	if n < 1 || n > len(b.Levels) {
		return LevelDef{}, false
	}
	return b.Levels[n-1], true
}
