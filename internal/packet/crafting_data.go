package packet

import (
	"encoding/binary"

	"github.com/google/uuid"
)

// Recipe entry kinds.
const (
	EntryShapeless int32 = iota
	EntryShaped
	EntryFurnace
	EntryFurnaceData
	EntryMulti
	EntryShulkerBox
	EntryShapelessChemistry
	EntryShapedChemistry
)

// Block context tags for crafting and furnace-family recipes.
const (
	BlockCraftingTable = "crafting_table"
	BlockStonecutter   = "stonecutter"
	BlockFurnace       = "furnace"
	BlockBlastFurnace  = "blast_furnace"
	BlockSmoker        = "smoker"
)

// DefaultRecipePriority is the priority used for every server recipe.
const DefaultRecipePriority int32 = 50

// RecipeID encodes a per-build counter value as a recipe id string.
func RecipeID(counter uint32) string {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], counter)
	return string(b[:])
}

type Recipe interface {
	Kind() int32
	marshal(w *Writer)
}

type ShapelessRecipe struct {
	RecipeID  string
	Input     []RecipeIngredient
	Output    []ItemStack
	UUID      uuid.UUID
	Block     string
	Priority  int32
	NetworkID uint32
}

func (*ShapelessRecipe) Kind() int32 { return EntryShapeless }

func (r *ShapelessRecipe) marshal(w *Writer) {
	w.String(r.RecipeID)
	w.Varuint32(uint32(len(r.Input)))
	for _, in := range r.Input {
		in.marshal(w)
	}
	w.Varuint32(uint32(len(r.Output)))
	for _, out := range r.Output {
		out.marshal(w)
	}
	w.UUID(r.UUID)
	w.String(r.Block)
	w.Varint32(r.Priority)
	if w.Protocol().HasRecipeUnlocking() {
		w.Uint8(unlockAlways)
	}
	w.Varuint32(r.NetworkID)
}

// ShapedRecipe inputs are row-major, Width*Height entries.
type ShapedRecipe struct {
	RecipeID       string
	Width          int32
	Height         int32
	Input          []RecipeIngredient
	Output         []ItemStack
	UUID           uuid.UUID
	Block          string
	Priority       int32
	AssumeSymmetry bool
	NetworkID      uint32
}

func (*ShapedRecipe) Kind() int32 { return EntryShaped }

func (r *ShapedRecipe) marshal(w *Writer) {
	w.String(r.RecipeID)
	w.Varint32(r.Width)
	w.Varint32(r.Height)
	for _, in := range r.Input {
		in.marshal(w)
	}
	w.Varuint32(uint32(len(r.Output)))
	for _, out := range r.Output {
		out.marshal(w)
	}
	w.UUID(r.UUID)
	w.String(r.Block)
	w.Varint32(r.Priority)
	if w.Protocol().HasShapedSymmetry() {
		w.Bool(r.AssumeSymmetry)
	}
	if w.Protocol().HasRecipeUnlocking() {
		w.Uint8(unlockAlways)
	}
	w.Varuint32(r.NetworkID)
}

const unlockAlways uint8 = 1

// PotionTypeRecipe carries raw numeric id/meta pairs; the wire format encodes
// these positionally rather than by recipe network id.
type PotionTypeRecipe struct {
	InputID, InputMeta     int32
	ReagentID, ReagentMeta int32
	OutputID, OutputMeta   int32
}

type PotionContainerChangeRecipe struct {
	InputItemID   int32
	ReagentItemID int32
	OutputItemID  int32
}

type CraftingData struct {
	Recipes                      []Recipe
	PotionRecipes                []PotionTypeRecipe
	PotionContainerChangeRecipes []PotionContainerChangeRecipe
	ClearRecipes                 bool
}

func (*CraftingData) ID() uint32 { return IDCraftingData }

func (pk *CraftingData) Marshal(w *Writer) {
	w.Varuint32(uint32(len(pk.Recipes)))
	for _, r := range pk.Recipes {
		w.Varint32(r.Kind())
		r.marshal(w)
	}
	w.Varuint32(uint32(len(pk.PotionRecipes)))
	for _, r := range pk.PotionRecipes {
		w.Varint32(r.InputID)
		w.Varint32(r.InputMeta)
		w.Varint32(r.ReagentID)
		w.Varint32(r.ReagentMeta)
		w.Varint32(r.OutputID)
		w.Varint32(r.OutputMeta)
	}
	w.Varuint32(uint32(len(pk.PotionContainerChangeRecipes)))
	for _, r := range pk.PotionContainerChangeRecipes {
		w.Varint32(r.InputItemID)
		w.Varint32(r.ReagentItemID)
		w.Varint32(r.OutputItemID)
	}
	// Material reducers are not used by this server.
	w.Varuint32(0)
	w.Bool(pk.ClearRecipes)
}
