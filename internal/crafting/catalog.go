package crafting

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"

	"voxelgate.ai/internal/item"
	"voxelgate.ai/internal/protocol/dictionary"
)

// Catalog is the on-disk recipe set (recipes.json).
type Catalog struct {
	Shapeless             []ShapelessDef             `json:"shapeless"`
	Shaped                []ShapedDef                `json:"shaped"`
	Furnace               []FurnaceDef               `json:"furnace"`
	PotionType            []PotionTypeDef            `json:"potion_type"`
	PotionContainerChange []PotionContainerChangeDef `json:"potion_container_change"`
}

type ItemDef struct {
	Item    string                     `json:"item"`
	Meta    int16                      `json:"meta,omitempty"`
	Count   int                        `json:"count,omitempty"`
	AnyMeta bool                       `json:"any_meta,omitempty"`
	Block   *dictionary.BlockStateData `json:"block,omitempty"`
}

type ShapelessDef struct {
	Type   string    `json:"type,omitempty"`
	Input  []ItemDef `json:"input"`
	Output []ItemDef `json:"output"`
}

type ShapedDef struct {
	Shape  []string           `json:"shape"`
	Keys   map[string]ItemDef `json:"keys"`
	Output []ItemDef          `json:"output"`
}

type FurnaceDef struct {
	Type   string  `json:"type,omitempty"`
	Input  ItemDef `json:"input"`
	Output ItemDef `json:"output"`
}

type PotionTypeDef struct {
	Input      ItemDef `json:"input"`
	Ingredient ItemDef `json:"ingredient"`
	Output     ItemDef `json:"output"`
}

type PotionContainerChangeDef struct {
	Input      string  `json:"input"`
	Ingredient ItemDef `json:"ingredient"`
	Output     string  `json:"output"`
}

// LoadCatalog reads a recipe catalog and returns a populated Manager along
// with the sha256 digest of the file.
func LoadCatalog(path string) (*Manager, string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, "", err
	}
	sum := sha256.Sum256(raw)
	var c Catalog
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil, "", fmt.Errorf("recipes.json: %w", err)
	}
	m := NewManager()
	if err := c.RegisterInto(m); err != nil {
		return nil, "", fmt.Errorf("recipes.json: %w", err)
	}
	return m, hex.EncodeToString(sum[:]), nil
}

func (c Catalog) RegisterInto(m *Manager) error {
	for i, d := range c.Shapeless {
		t, err := ParseShapelessType(d.Type)
		if err != nil {
			return fmt.Errorf("shapeless[%d]: %w", i, err)
		}
		in, err := ingredients(d.Input)
		if err != nil {
			return fmt.Errorf("shapeless[%d]: %w", i, err)
		}
		out, err := items(d.Output)
		if err != nil {
			return fmt.Errorf("shapeless[%d]: %w", i, err)
		}
		m.RegisterShapeless(ShapelessRecipe{Type: t, Ingredients: in, Results: out})
	}
	for i, d := range c.Shaped {
		keys := make(map[rune]Ingredient, len(d.Keys))
		for k, v := range d.Keys {
			r := []rune(k)
			if len(r) != 1 {
				return fmt.Errorf("shaped[%d]: key %q must be one character", i, k)
			}
			in, err := ingredient(v)
			if err != nil {
				return fmt.Errorf("shaped[%d]: %w", i, err)
			}
			keys[r[0]] = in
		}
		out, err := items(d.Output)
		if err != nil {
			return fmt.Errorf("shaped[%d]: %w", i, err)
		}
		r, err := NewShapedRecipe(d.Shape, keys, out)
		if err != nil {
			return fmt.Errorf("shaped[%d]: %w", i, err)
		}
		m.RegisterShaped(r)
	}
	for i, d := range c.Furnace {
		t, err := ParseFurnaceType(d.Type)
		if err != nil {
			return fmt.Errorf("furnace[%d]: %w", i, err)
		}
		in, err := ingredient(d.Input)
		if err != nil {
			return fmt.Errorf("furnace[%d]: %w", i, err)
		}
		out, err := itemOf(d.Output)
		if err != nil {
			return fmt.Errorf("furnace[%d]: %w", i, err)
		}
		m.RegisterFurnace(t, FurnaceRecipe{Input: in, Result: out})
	}
	for i, d := range c.PotionType {
		in, err := ingredient(d.Input)
		if err != nil {
			return fmt.Errorf("potion_type[%d]: %w", i, err)
		}
		reagent, err := ingredient(d.Ingredient)
		if err != nil {
			return fmt.Errorf("potion_type[%d]: %w", i, err)
		}
		out, err := itemOf(d.Output)
		if err != nil {
			return fmt.Errorf("potion_type[%d]: %w", i, err)
		}
		m.RegisterPotionType(PotionTypeRecipe{Input: in, Ingredient: reagent, Output: out})
	}
	for i, d := range c.PotionContainerChange {
		if d.Input == "" || d.Output == "" {
			return fmt.Errorf("potion_container_change[%d]: empty container id", i)
		}
		reagent, err := ingredient(d.Ingredient)
		if err != nil {
			return fmt.Errorf("potion_container_change[%d]: %w", i, err)
		}
		m.RegisterPotionContainerChange(PotionContainerChangeRecipe{InputItemID: d.Input, Ingredient: reagent, OutputItemID: d.Output})
	}
	return nil
}

func itemOf(d ItemDef) (item.Item, error) {
	if d.Item == "" {
		return item.Item{}, fmt.Errorf("empty item id")
	}
	count := d.Count
	if count <= 0 {
		count = 1
	}
	it := item.New(d.Item, d.Meta, count)
	if d.Block != nil {
		states, err := dictionary.NormalizeStates(d.Block.States)
		if err != nil {
			return item.Item{}, fmt.Errorf("%s: %w", d.Item, err)
		}
		b := *d.Block
		b.States = states
		it.Block = &b
	}
	return it, nil
}

func ingredient(d ItemDef) (Ingredient, error) {
	it, err := itemOf(d)
	if err != nil {
		return Ingredient{}, err
	}
	return Ingredient{Item: it, AnyMeta: d.AnyMeta}, nil
}

func ingredients(defs []ItemDef) ([]Ingredient, error) {
	out := make([]Ingredient, 0, len(defs))
	for _, d := range defs {
		in, err := ingredient(d)
		if err != nil {
			return nil, err
		}
		out = append(out, in)
	}
	return out, nil
}

func items(defs []ItemDef) ([]item.Item, error) {
	out := make([]item.Item, 0, len(defs))
	for _, d := range defs {
		it, err := itemOf(d)
		if err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, nil
}
