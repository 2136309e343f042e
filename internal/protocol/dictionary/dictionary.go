package dictionary

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// ItemTypeEntry is one row of an item type table.
type ItemTypeEntry struct {
	Name           string `json:"name"`
	ID             int16  `json:"id"`
	ComponentBased bool   `json:"component_based,omitempty"`
}

// ItemTypeDictionary maps string item ids to wire numeric ids for one
// dictionary protocol. Immutable after construction.
type ItemTypeDictionary struct {
	entries []ItemTypeEntry
	byName  map[string]int16
	byID    map[int16]string
}

func NewItemTypeDictionary(entries []ItemTypeEntry) (*ItemTypeDictionary, error) {
	d := &ItemTypeDictionary{
		entries: append([]ItemTypeEntry(nil), entries...),
		byName:  make(map[string]int16, len(entries)),
		byID:    make(map[int16]string, len(entries)),
	}
	for _, e := range entries {
		if e.Name == "" {
			return nil, fmt.Errorf("item type with empty name (id %d)", e.ID)
		}
		if _, ok := d.byName[e.Name]; ok {
			return nil, fmt.Errorf("duplicate item type name %q", e.Name)
		}
		if prev, ok := d.byID[e.ID]; ok {
			return nil, fmt.Errorf("item id %d used by both %q and %q", e.ID, prev, e.Name)
		}
		d.byName[e.Name] = e.ID
		d.byID[e.ID] = e.Name
	}
	return d, nil
}

func (d *ItemTypeDictionary) FromStringID(name string) (int16, bool) {
	id, ok := d.byName[name]
	return id, ok
}

func (d *ItemTypeDictionary) FromIntID(id int16) (string, bool) {
	name, ok := d.byID[id]
	return name, ok
}

func (d *ItemTypeDictionary) Entries() []ItemTypeEntry {
	return append([]ItemTypeEntry(nil), d.entries...)
}

func (d *ItemTypeDictionary) Len() int { return len(d.entries) }

// BlockStateData is the protocol-agnostic description of one block state.
// State values are string, int32 or uint8 (booleans are stored as bytes).
type BlockStateData struct {
	Name    string         `json:"name"`
	States  map[string]any `json:"states,omitempty"`
	Version int32          `json:"version,omitempty"`
}

// Key returns a canonical string for the state, independent of map order.
// The version is not part of the key.
func (b BlockStateData) Key() string {
	var sb strings.Builder
	sb.WriteString(b.Name)
	if len(b.States) == 0 {
		return sb.String()
	}
	keys := make([]string, 0, len(b.States))
	for k := range b.States {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	sb.WriteByte('[')
	for i, k := range keys {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(k)
		sb.WriteByte('=')
		switch v := b.States[k].(type) {
		case string:
			sb.WriteString(strconv.Quote(v))
		case int32:
			sb.WriteString(strconv.FormatInt(int64(v), 10))
		case uint8:
			sb.WriteString(strconv.FormatUint(uint64(v), 10))
			sb.WriteByte('b')
		default:
			fmt.Fprintf(&sb, "%T(%v)", v, v)
		}
	}
	sb.WriteByte(']')
	return sb.String()
}

func (b BlockStateData) Equal(o BlockStateData) bool {
	return b.Version == o.Version && b.Key() == o.Key()
}

func (b BlockStateData) String() string { return b.Key() }

// NormalizeStates converts decoded JSON state values to their canonical
// types: numbers become int32 and booleans become uint8.
func NormalizeStates(in map[string]any) (map[string]any, error) {
	if len(in) == 0 {
		return nil, nil
	}
	out := make(map[string]any, len(in))
	for k, v := range in {
		switch vv := v.(type) {
		case string, int32, uint8:
			out[k] = vv
		case bool:
			if vv {
				out[k] = uint8(1)
			} else {
				out[k] = uint8(0)
			}
		case float64:
			if vv != float64(int32(vv)) {
				return nil, fmt.Errorf("state %q: non-integer value %v", k, vv)
			}
			out[k] = int32(vv)
		case int:
			out[k] = int32(vv)
		default:
			return nil, fmt.Errorf("state %q: unsupported value type %T", k, v)
		}
	}
	return out, nil
}

// BlockStateDictionary maps block states to wire runtime ids for one
// dictionary protocol. Runtime ids are table positions. Immutable after
// construction.
type BlockStateDictionary struct {
	states []BlockStateData
	byKey  map[string]uint32
}

func NewBlockStateDictionary(states []BlockStateData) (*BlockStateDictionary, error) {
	d := &BlockStateDictionary{
		states: make([]BlockStateData, 0, len(states)),
		byKey:  make(map[string]uint32, len(states)),
	}
	for i, s := range states {
		if s.Name == "" {
			return nil, fmt.Errorf("block state %d: empty name", i)
		}
		norm, err := NormalizeStates(s.States)
		if err != nil {
			return nil, fmt.Errorf("block state %d (%s): %w", i, s.Name, err)
		}
		s.States = norm
		k := s.Key()
		if _, ok := d.byKey[k]; ok {
			return nil, fmt.Errorf("duplicate block state %s", k)
		}
		d.byKey[k] = uint32(i)
		d.states = append(d.states, s)
	}
	return d, nil
}

func (d *BlockStateDictionary) LookupStateIDFromData(data BlockStateData) (uint32, bool) {
	id, ok := d.byKey[data.Key()]
	return id, ok
}

func (d *BlockStateDictionary) DataFromStateID(id uint32) (BlockStateData, bool) {
	if int64(id) >= int64(len(d.states)) {
		return BlockStateData{}, false
	}
	return d.states[id], true
}

func (d *BlockStateDictionary) Len() int { return len(d.states) }
