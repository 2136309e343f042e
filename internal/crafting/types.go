package crafting

import (
	"fmt"
	"strings"

	"voxelgate.ai/internal/item"
)

type ShapelessType uint8

const (
	ShapelessCrafting ShapelessType = iota
	ShapelessStonecutter
)

func (t ShapelessType) String() string {
	switch t {
	case ShapelessCrafting:
		return "crafting"
	case ShapelessStonecutter:
		return "stonecutter"
	default:
		return fmt.Sprintf("shapeless(%d)", uint8(t))
	}
}

func ParseShapelessType(s string) (ShapelessType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "crafting":
		return ShapelessCrafting, nil
	case "stonecutter":
		return ShapelessStonecutter, nil
	default:
		return 0, fmt.Errorf("unknown shapeless recipe type %q", s)
	}
}

type FurnaceType uint8

const (
	FurnaceTypeFurnace FurnaceType = iota
	FurnaceTypeBlastFurnace
	FurnaceTypeSmoker
)

// AllFurnaceTypes lists furnace types in their canonical enumeration order.
func AllFurnaceTypes() []FurnaceType {
	return []FurnaceType{FurnaceTypeFurnace, FurnaceTypeBlastFurnace, FurnaceTypeSmoker}
}

func (t FurnaceType) String() string {
	switch t {
	case FurnaceTypeFurnace:
		return "furnace"
	case FurnaceTypeBlastFurnace:
		return "blast_furnace"
	case FurnaceTypeSmoker:
		return "smoker"
	default:
		return fmt.Sprintf("furnace(%d)", uint8(t))
	}
}

func ParseFurnaceType(s string) (FurnaceType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "furnace":
		return FurnaceTypeFurnace, nil
	case "blast_furnace":
		return FurnaceTypeBlastFurnace, nil
	case "smoker":
		return FurnaceTypeSmoker, nil
	default:
		return 0, fmt.Errorf("unknown furnace type %q", s)
	}
}

// Ingredient is one recipe input. AnyMeta matches every meta of the item type.
type Ingredient struct {
	Item    item.Item
	AnyMeta bool
}

func Exact(it item.Item) Ingredient { return Ingredient{Item: it} }

func AnyMetaOf(name string, count int) Ingredient {
	return Ingredient{Item: item.New(name, 0, count), AnyMeta: true}
}

type ShapelessRecipe struct {
	Type        ShapelessType
	Ingredients []Ingredient
	Results     []item.Item
}

// ShapedRecipe is a grid recipe. Shape rows use one rune per column; a space
// is an empty slot.
type ShapedRecipe struct {
	shape   []string
	keys    map[rune]Ingredient
	results []item.Item
	width   int
}

func NewShapedRecipe(shape []string, keys map[rune]Ingredient, results []item.Item) (*ShapedRecipe, error) {
	if len(shape) == 0 || len(shape) > 3 {
		return nil, fmt.Errorf("shaped recipe: height %d out of range 1..3", len(shape))
	}
	width := len([]rune(shape[0]))
	if width == 0 || width > 3 {
		return nil, fmt.Errorf("shaped recipe: width %d out of range 1..3", width)
	}
	for i, row := range shape {
		if len([]rune(row)) != width {
			return nil, fmt.Errorf("shaped recipe: row %d has width %d, want %d", i, len([]rune(row)), width)
		}
		for _, r := range row {
			if r == ' ' {
				continue
			}
			if _, ok := keys[r]; !ok {
				return nil, fmt.Errorf("shaped recipe: no ingredient for key %q", r)
			}
		}
	}
	if len(results) == 0 {
		return nil, fmt.Errorf("shaped recipe: no results")
	}
	k := make(map[rune]Ingredient, len(keys))
	for r, in := range keys {
		k[r] = in
	}
	return &ShapedRecipe{
		shape:   append([]string(nil), shape...),
		keys:    k,
		results: append([]item.Item(nil), results...),
		width:   width,
	}, nil
}

func (r *ShapedRecipe) Width() int  { return r.width }
func (r *ShapedRecipe) Height() int { return len(r.shape) }

// Ingredient returns the input at (column, row); empty slots return the zero Ingredient.
func (r *ShapedRecipe) Ingredient(column, row int) Ingredient {
	key := []rune(r.shape[row])[column]
	if key == ' ' {
		return Ingredient{}
	}
	return r.keys[key]
}

func (r *ShapedRecipe) Results() []item.Item {
	return append([]item.Item(nil), r.results...)
}

type FurnaceRecipe struct {
	Input  Ingredient
	Result item.Item
}

type PotionTypeRecipe struct {
	Input      Ingredient
	Ingredient Ingredient
	Output     item.Item
}

// PotionContainerChangeRecipe converts a potion container (e.g. potion to
// splash potion) while keeping the potion type, so the containers are plain
// item type ids.
type PotionContainerChangeRecipe struct {
	InputItemID  string
	Ingredient   Ingredient
	OutputItemID string
}
