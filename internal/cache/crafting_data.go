package cache

import (
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/zeebo/blake3"

	"voxelgate.ai/internal/convert"
	"voxelgate.ai/internal/crafting"
	"voxelgate.ai/internal/item"
	"voxelgate.ai/internal/packet"
	"voxelgate.ai/internal/protocol"
	"voxelgate.ai/internal/protocol/dictionary"
	"voxelgate.ai/internal/timings"
)

// CraftingDataCache holds one encoded CRAFTING_DATA packet per dictionary
// protocol for each recipe set. Packets are built for every dictionary
// protocol at once. A recipe registration marks the set's packets stale and
// the next access rebuilds them. The entry itself lives until the recipe set
// is destroyed, so its build lock keeps at most one build in flight.
type CraftingDataCache struct {
	converter *convert.TypeConverter
	dicts     *dictionary.Set
	timer     *timings.Timer

	mu       sync.Mutex
	entries  map[uint64]*craftingEntry
	rebuilds atomic.Uint64
}

type craftingEntry struct {
	build   sync.Mutex
	stale   atomic.Bool
	packets map[protocol.DictionaryID][]byte
	cancels []func()
}

func NewCraftingDataCache(converter *convert.TypeConverter, dicts *dictionary.Set, t *timings.Timings) *CraftingDataCache {
	return &CraftingDataCache{
		converter: converter,
		dicts:     dicts,
		timer:     t.Timer(timings.CraftingDataCacheRebuild),
		entries:   map[uint64]*craftingEntry{},
	}
}

// GetCache returns the encoded packet for dictionary protocol d, building
// the packets for m first if needed. A destroyed m is an error and leaves no
// entry behind.
func (c *CraftingDataCache) GetCache(d protocol.DictionaryID, m *crafting.Manager) ([]byte, error) {
	e, err := c.entry(m)
	if err != nil {
		return nil, err
	}

	e.build.Lock()
	defer e.build.Unlock()
	if e.packets == nil || e.stale.Load() {
		// Cleared before reading recipes: a registration racing the build
		// leaves the flag set for the next caller.
		e.stale.Store(false)
		packets, err := c.buildAll(m)
		if err != nil {
			e.packets = nil
			return nil, err
		}
		e.packets = packets
	}
	b, ok := e.packets[d]
	if !ok {
		return nil, protocol.Errorf(protocol.ErrUnknownProtocol, "dictionary protocol %d is not registered", d)
	}
	return b, nil
}

// Digest returns the blake3 digest of GetCache(d, m).
func (c *CraftingDataCache) Digest(d protocol.DictionaryID, m *crafting.Manager) ([32]byte, error) {
	b, err := c.GetCache(d, m)
	if err != nil {
		return [32]byte{}, err
	}
	return blake3.Sum256(b), nil
}

// Invalidate forces the next access for m to rebuild.
func (c *CraftingDataCache) Invalidate(m *crafting.Manager) {
	c.mu.Lock()
	e := c.entries[m.ID()]
	c.mu.Unlock()
	if e != nil {
		e.stale.Store(true)
	}
}

// Rebuilds counts completed and attempted builds since construction.
func (c *CraftingDataCache) Rebuilds() uint64 { return c.rebuilds.Load() }

// Len is the number of recipe sets with an entry.
func (c *CraftingDataCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *CraftingDataCache) entry(m *crafting.Manager) (*craftingEntry, error) {
	id := m.ID()
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[id]; ok {
		return e, nil
	}
	e := &craftingEntry{}
	onDestroy, ok := m.OnDestroy(func() { c.drop(id, e) })
	if !ok {
		return nil, protocol.Wrap(crafting.ErrDestroyed, protocol.ErrInternal, "recipe set %d", id)
	}
	onRegistered, ok := m.OnRecipeRegistered(func() { e.stale.Store(true) })
	if !ok {
		onDestroy()
		return nil, protocol.Wrap(crafting.ErrDestroyed, protocol.ErrInternal, "recipe set %d", id)
	}
	e.cancels = []func(){onDestroy, onRegistered}
	c.entries[id] = e
	return e, nil
}

// drop removes e if it is still the live entry for id and unsubscribes its
// hooks.
func (c *CraftingDataCache) drop(id uint64, e *craftingEntry) {
	c.mu.Lock()
	if c.entries[id] != e {
		c.mu.Unlock()
		return
	}
	delete(c.entries, id)
	cancels := e.cancels
	e.cancels = nil
	c.mu.Unlock()

	for _, cancel := range cancels {
		cancel()
	}
}

func (c *CraftingDataCache) buildAll(m *crafting.Manager) (map[protocol.DictionaryID][]byte, error) {
	defer c.timer.Start()()
	c.rebuilds.Add(1)

	out := map[protocol.DictionaryID][]byte{}
	for _, d := range c.dicts.IDs() {
		items, _ := c.dicts.Items(d)
		pk := c.buildPacket(m, d, items)
		ctx := packet.Context{Protocol: protocol.ID(d), Dictionary: d, Items: items}
		b, err := packet.Encode(ctx, pk)
		if err != nil {
			return nil, protocol.Wrap(err, protocol.ErrEncodeFailed, "crafting data for dictionary protocol %d", d)
		}
		out[d] = b
	}
	return out, nil
}

func shapelessBlock(t crafting.ShapelessType) string {
	switch t {
	case crafting.ShapelessCrafting:
		return packet.BlockCraftingTable
	case crafting.ShapelessStonecutter:
		return packet.BlockStonecutter
	default:
		protocol.AssumptionFailed("unhandled shapeless recipe type %s", t)
		return ""
	}
}

func furnaceBlock(t crafting.FurnaceType) string {
	switch t {
	case crafting.FurnaceTypeFurnace:
		return packet.BlockFurnace
	case crafting.FurnaceTypeBlastFurnace:
		return packet.BlockBlastFurnace
	case crafting.FurnaceTypeSmoker:
		return packet.BlockSmoker
	default:
		protocol.AssumptionFailed("unhandled furnace type %s", t)
		return ""
	}
}

// buildPacket converts every recipe of m for dictionary protocol d. Recipes
// naming an item that does not exist on d are left out of that packet only.
func (c *CraftingDataCache) buildPacket(m *crafting.Manager, d protocol.DictionaryID, items *dictionary.ItemTypeDictionary) *packet.CraftingData {
	pk := &packet.CraftingData{ClearRecipes: true}
	var counter uint32

	for _, r := range m.ShapelessRecipes() {
		block := shapelessBlock(r.Type)
		in, ok := c.ingredients(r.Ingredients, d)
		if !ok {
			continue
		}
		out, ok := c.stacks(r.Results, d)
		if !ok {
			continue
		}
		counter++
		pk.Recipes = append(pk.Recipes, &packet.ShapelessRecipe{
			RecipeID:  packet.RecipeID(counter),
			Input:     in,
			Output:    out,
			UUID:      uuid.Nil,
			Block:     block,
			Priority:  packet.DefaultRecipePriority,
			NetworkID: counter,
		})
	}

	for _, r := range m.ShapedRecipes() {
		grid := make([]crafting.Ingredient, 0, r.Width()*r.Height())
		for row := 0; row < r.Height(); row++ {
			for col := 0; col < r.Width(); col++ {
				grid = append(grid, r.Ingredient(col, row))
			}
		}
		in, ok := c.ingredients(grid, d)
		if !ok {
			continue
		}
		out, ok := c.stacks(r.Results(), d)
		if !ok {
			continue
		}
		counter++
		pk.Recipes = append(pk.Recipes, &packet.ShapedRecipe{
			RecipeID:       packet.RecipeID(counter),
			Width:          int32(r.Width()),
			Height:         int32(r.Height()),
			Input:          in,
			Output:         out,
			UUID:           uuid.Nil,
			Block:          packet.BlockCraftingTable,
			Priority:       packet.DefaultRecipePriority,
			AssumeSymmetry: true,
			NetworkID:      counter,
		})
	}

	for _, t := range crafting.AllFurnaceTypes() {
		block := furnaceBlock(t)
		for _, r := range m.FurnaceRecipes(t) {
			in, ok := c.ingredients([]crafting.Ingredient{r.Input}, d)
			if !ok {
				continue
			}
			out, ok := c.stacks([]item.Item{r.Result}, d)
			if !ok {
				continue
			}
			counter++
			pk.Recipes = append(pk.Recipes, &packet.ShapelessRecipe{
				RecipeID:  packet.RecipeID(counter),
				Input:     in,
				Output:    out,
				UUID:      uuid.Nil,
				Block:     block,
				Priority:  packet.DefaultRecipePriority,
				NetworkID: counter,
			})
		}
	}

	for _, r := range m.PotionTypeRecipes() {
		in, ok := c.ingredients([]crafting.Ingredient{r.Input, r.Ingredient}, d)
		if !ok {
			continue
		}
		out, ok := c.stacks([]item.Item{r.Output}, d)
		if !ok {
			continue
		}
		pk.PotionRecipes = append(pk.PotionRecipes, packet.PotionTypeRecipe{
			InputID:     int32(in[0].NetworkID),
			InputMeta:   int32(in[0].Meta),
			ReagentID:   int32(in[1].NetworkID),
			ReagentMeta: int32(in[1].Meta),
			OutputID:    int32(out[0].NetworkID),
			OutputMeta:  int32(out[0].Meta),
		})
	}

	for _, r := range m.PotionContainerChangeRecipes() {
		input, ok := items.FromStringID(r.InputItemID)
		if !ok {
			continue
		}
		output, ok := items.FromStringID(r.OutputItemID)
		if !ok {
			continue
		}
		reagent, ok := c.ingredients([]crafting.Ingredient{r.Ingredient}, d)
		if !ok {
			continue
		}
		pk.PotionContainerChangeRecipes = append(pk.PotionContainerChangeRecipes, packet.PotionContainerChangeRecipe{
			InputItemID:   int32(input),
			ReagentItemID: int32(reagent[0].NetworkID),
			OutputItemID:  int32(output),
		})
	}
	return pk
}

func (c *CraftingDataCache) ingredients(in []crafting.Ingredient, d protocol.DictionaryID) ([]packet.RecipeIngredient, bool) {
	out := make([]packet.RecipeIngredient, len(in))
	for i, ing := range in {
		n, err := c.converter.CoreRecipeIngredientToNet(ing, d)
		if err != nil {
			return nil, false
		}
		out[i] = n
	}
	return out, true
}

func (c *CraftingDataCache) stacks(in []item.Item, d protocol.DictionaryID) ([]packet.ItemStack, bool) {
	out := make([]packet.ItemStack, len(in))
	for i, it := range in {
		s, err := c.converter.CoreItemStackToNet(it, d)
		if err != nil {
			return nil, false
		}
		out[i] = s
	}
	return out, true
}
