package crafting

import (
	"testing"

	"voxelgate.ai/internal/item"
	"voxelgate.ai/internal/protocol"
)

func TestManager_IdentityIsPerInstance(t *testing.T) {
	a, b := NewManager(), NewManager()
	if a.ID() == b.ID() || a.ID() == 0 {
		t.Fatalf("ids must be distinct and non-zero: %d %d", a.ID(), b.ID())
	}
}

func TestManager_RecipeRegisteredHooks(t *testing.T) {
	m := NewManager()
	fired := 0
	cancel, ok := m.OnRecipeRegistered(func() { fired++ })
	if !ok {
		t.Fatalf("hook refused on live set")
	}

	m.RegisterShapeless(ShapelessRecipe{Ingredients: []Ingredient{AnyMetaOf("minecraft:planks", 1)}, Results: []item.Item{item.New("minecraft:stick", 0, 2)}})
	m.RegisterFurnace(FurnaceTypeSmoker, FurnaceRecipe{Input: Exact(item.New("minecraft:beef", 0, 1)), Result: item.New("minecraft:cooked_beef", 0, 1)})
	if fired != 2 {
		t.Fatalf("fired=%d want 2", fired)
	}
	cancel()
	m.RegisterPotionContainerChange(PotionContainerChangeRecipe{InputItemID: "minecraft:potion", OutputItemID: "minecraft:splash_potion"})
	if fired != 2 {
		t.Fatalf("cancelled hook fired")
	}
	if got := m.FurnaceRecipes(FurnaceTypeSmoker); len(got) != 1 {
		t.Fatalf("smoker recipes=%d", len(got))
	}
	if got := m.FurnaceRecipes(FurnaceTypeBlastFurnace); len(got) != 0 {
		t.Fatalf("blast furnace recipes=%d", len(got))
	}
}

func TestManager_DestroyFiresOnceAndClearsHooks(t *testing.T) {
	m := NewManager()
	destroyed := 0
	m.OnDestroy(func() { destroyed++ })
	m.OnRecipeRegistered(func() {})
	m.Destroy()
	m.Destroy()
	if destroyed != 1 {
		t.Fatalf("destroy hooks fired %d times", destroyed)
	}
	if !m.Destroyed() || m.destroyHooks.len() != 0 || m.registeredHooks.len() != 0 {
		t.Fatalf("hooks not cleared after destroy")
	}
	defer func() {
		if _, ok := recover().(*protocol.InvariantError); !ok {
			t.Fatalf("expected invariant panic registering on destroyed set")
		}
	}()
	m.RegisterShapeless(ShapelessRecipe{})
}

func TestManager_HooksRefusedAfterDestroy(t *testing.T) {
	m := NewManager()
	m.Destroy()
	if _, ok := m.OnDestroy(func() {}); ok {
		t.Fatalf("destroy hook accepted on destroyed set")
	}
	if _, ok := m.OnRecipeRegistered(func() {}); ok {
		t.Fatalf("registration hook accepted on destroyed set")
	}
	if m.destroyHooks.len() != 0 || m.registeredHooks.len() != 0 {
		t.Fatalf("hooks stored on destroyed set")
	}
}

func TestShapedRecipe_GridAccess(t *testing.T) {
	r, err := NewShapedRecipe([]string{"PPP", " S ", " S "}, map[rune]Ingredient{
		'P': AnyMetaOf("minecraft:planks", 1),
		'S': Exact(item.New("minecraft:stick", 0, 1)),
	}, []item.Item{item.New("minecraft:wooden_pickaxe", 0, 1)})
	if err != nil {
		t.Fatalf("NewShapedRecipe: %v", err)
	}
	if r.Width() != 3 || r.Height() != 3 {
		t.Fatalf("size=%dx%d", r.Width(), r.Height())
	}
	if got := r.Ingredient(1, 2); got.Item.Name != "minecraft:stick" {
		t.Fatalf("(1,2)=%v", got)
	}
	if got := r.Ingredient(0, 1); !got.Item.IsNull() {
		t.Fatalf("(0,1) should be empty, got %v", got)
	}
}

func TestShapedRecipe_RejectsBadShapes(t *testing.T) {
	keys := map[rune]Ingredient{'#': AnyMetaOf("minecraft:planks", 1)}
	out := []item.Item{item.New("minecraft:stick", 0, 4)}
	for _, shape := range [][]string{nil, {"#", "##"}, {"####"}, {"X"}} {
		if _, err := NewShapedRecipe(shape, keys, out); err == nil {
			t.Fatalf("expected error for shape %q", shape)
		}
	}
}

func TestParseTags(t *testing.T) {
	for _, ft := range AllFurnaceTypes() {
		back, err := ParseFurnaceType(ft.String())
		if err != nil || back != ft {
			t.Fatalf("furnace %s: %v", ft, err)
		}
	}
	if _, err := ParseFurnaceType("campfire"); err == nil {
		t.Fatalf("expected unknown furnace type error")
	}
	if st, err := ParseShapelessType("stonecutter"); err != nil || st != ShapelessStonecutter {
		t.Fatalf("stonecutter: %v %v", st, err)
	}
}

func TestLoadCatalog_RepoRecipes(t *testing.T) {
	m, digest, err := LoadCatalog("../../configs/recipes.json")
	if err != nil {
		t.Fatalf("LoadCatalog: %v", err)
	}
	if digest == "" {
		t.Fatalf("missing digest")
	}
	if len(m.ShapelessRecipes()) != 2 || len(m.ShapedRecipes()) != 3 {
		t.Fatalf("shapeless=%d shaped=%d", len(m.ShapelessRecipes()), len(m.ShapedRecipes()))
	}
	if len(m.FurnaceRecipes(FurnaceTypeFurnace)) != 2 || len(m.FurnaceRecipes(FurnaceTypeSmoker)) != 1 {
		t.Fatalf("furnace recipes not loaded")
	}
	if len(m.PotionTypeRecipes()) != 1 || len(m.PotionContainerChangeRecipes()) != 2 {
		t.Fatalf("potion recipes not loaded")
	}
	table := m.ShapedRecipes()[1].Results()[0]
	if table.Block == nil || table.Block.Name != "minecraft:crafting_table" {
		t.Fatalf("block item result lost its block state: %+v", table)
	}
}
