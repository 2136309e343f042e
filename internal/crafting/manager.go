package crafting

import (
	"errors"
	"sync"
	"sync/atomic"

	"voxelgate.ai/internal/protocol"
)

var nextManagerID atomic.Uint64

// ErrDestroyed is returned by consumers that need a live recipe set.
var ErrDestroyed = errors.New("recipe set destroyed")

// Manager is one recipe set. Its identity (ID) is what caches key on; two
// managers with identical recipes are still distinct sets.
type Manager struct {
	id uint64

	mu                     sync.RWMutex
	destroyed              bool
	shapeless              []ShapelessRecipe
	shaped                 []*ShapedRecipe
	furnace                map[FurnaceType][]FurnaceRecipe
	potionTypes            []PotionTypeRecipe
	potionContainerChanges []PotionContainerChangeRecipe

	destroyHooks    hookList
	registeredHooks hookList
}

func NewManager() *Manager {
	return &Manager{
		id:      nextManagerID.Add(1),
		furnace: map[FurnaceType][]FurnaceRecipe{},
	}
}

func (m *Manager) ID() uint64 { return m.id }

// OnDestroy registers fn to run once when the set is destroyed. On a set
// that is already destroyed nothing is registered and ok is false.
func (m *Manager) OnDestroy(fn func()) (cancel func(), ok bool) {
	return m.destroyHooks.add(fn)
}

// OnRecipeRegistered registers fn to run after every recipe registration.
// ok is false if the set is already destroyed.
func (m *Manager) OnRecipeRegistered(fn func()) (cancel func(), ok bool) {
	return m.registeredHooks.add(fn)
}

// Destroy ends the set's lifetime and runs the destroy hooks synchronously.
// Further calls are no-ops.
func (m *Manager) Destroy() {
	m.mu.Lock()
	if m.destroyed {
		m.mu.Unlock()
		return
	}
	m.destroyed = true
	m.mu.Unlock()

	m.registeredHooks.close()
	m.destroyHooks.fire()
	m.destroyHooks.close()
}

func (m *Manager) Destroyed() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.destroyed
}

func (m *Manager) register(fn func()) {
	m.mu.Lock()
	if m.destroyed {
		m.mu.Unlock()
		protocol.AssumptionFailed("recipe registered on destroyed recipe set %d", m.id)
	}
	fn()
	m.mu.Unlock()
	m.registeredHooks.fire()
}

func (m *Manager) RegisterShapeless(r ShapelessRecipe) {
	m.register(func() { m.shapeless = append(m.shapeless, r) })
}

func (m *Manager) RegisterShaped(r *ShapedRecipe) {
	m.register(func() { m.shaped = append(m.shaped, r) })
}

func (m *Manager) RegisterFurnace(t FurnaceType, r FurnaceRecipe) {
	m.register(func() { m.furnace[t] = append(m.furnace[t], r) })
}

func (m *Manager) RegisterPotionType(r PotionTypeRecipe) {
	m.register(func() { m.potionTypes = append(m.potionTypes, r) })
}

func (m *Manager) RegisterPotionContainerChange(r PotionContainerChangeRecipe) {
	m.register(func() { m.potionContainerChanges = append(m.potionContainerChanges, r) })
}

func (m *Manager) ShapelessRecipes() []ShapelessRecipe {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]ShapelessRecipe(nil), m.shapeless...)
}

func (m *Manager) ShapedRecipes() []*ShapedRecipe {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]*ShapedRecipe(nil), m.shaped...)
}

func (m *Manager) FurnaceRecipes(t FurnaceType) []FurnaceRecipe {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]FurnaceRecipe(nil), m.furnace[t]...)
}

func (m *Manager) PotionTypeRecipes() []PotionTypeRecipe {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]PotionTypeRecipe(nil), m.potionTypes...)
}

func (m *Manager) PotionContainerChangeRecipes() []PotionContainerChangeRecipe {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]PotionContainerChangeRecipe(nil), m.potionContainerChanges...)
}

// hookList is an ordered set of callbacks. Hooks run outside the lock so
// they may cancel themselves or register new hooks.
type hookList struct {
	mu     sync.Mutex
	closed bool
	next   uint64
	order  []uint64
	fns    map[uint64]func()
}

func (h *hookList) add(fn func()) (func(), bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return func() {}, false
	}
	if h.fns == nil {
		h.fns = map[uint64]func(){}
	}
	h.next++
	id := h.next
	h.fns[id] = fn
	h.order = append(h.order, id)
	return func() { h.remove(id) }, true
}

func (h *hookList) remove(id uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.fns[id]; !ok {
		return
	}
	delete(h.fns, id)
	for i, v := range h.order {
		if v == id {
			h.order = append(h.order[:i], h.order[i+1:]...)
			break
		}
	}
}

func (h *hookList) fire() {
	h.mu.Lock()
	fns := make([]func(), 0, len(h.order))
	for _, id := range h.order {
		fns = append(fns, h.fns[id])
	}
	h.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

// close drops every hook and refuses further registrations.
func (h *hookList) close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	h.fns = nil
	h.order = nil
}

func (h *hookList) len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.order)
}
