package item

import (
	"errors"
	"fmt"
	"sort"

	"voxelgate.ai/internal/protocol/dictionary"
)

const Air = "minecraft:air"

var (
	ErrTypeSerialize   = errors.New("item type cannot be serialized")
	ErrTypeDeserialize = errors.New("item type cannot be deserialized")
)

// Item is the server's internal item stack.
type Item struct {
	Name  string
	Meta  int16
	Count int
	Block *dictionary.BlockStateData
	NBT   map[string]any
}

func New(name string, meta int16, count int) Item {
	return Item{Name: name, Meta: meta, Count: count}
}

func (i Item) IsNull() bool {
	return i.Name == "" || i.Name == Air || i.Count <= 0
}

func (i Item) WithCount(n int) Item {
	i.Count = n
	return i
}

// SavedItemData is the canonical protocol-agnostic item form: string type
// id, meta and optional block state.
type SavedItemData struct {
	Name  string
	Meta  int16
	Block *dictionary.BlockStateData
}

func (d SavedItemData) Equal(o SavedItemData) bool {
	if d.Name != o.Name || d.Meta != o.Meta {
		return false
	}
	if (d.Block == nil) != (o.Block == nil) {
		return false
	}
	return d.Block == nil || d.Block.Equal(*o.Block)
}

func (d SavedItemData) String() string {
	if d.Block != nil {
		return fmt.Sprintf("%s:%d{%s}", d.Name, d.Meta, d.Block.Key())
	}
	return fmt.Sprintf("%s:%d", d.Name, d.Meta)
}

type Serializer interface {
	SerializeType(Item) (SavedItemData, error)
}

type Deserializer interface {
	DeserializeType(SavedItemData) (Item, error)
}

// TypeDef describes one internal item type known to a Codec.
type TypeDef struct {
	Name string
	// MaxMeta bounds the accepted meta values; 0 means meta must be 0.
	MaxMeta int16
	// BlockItem types carry block state data in canonical form.
	BlockItem bool
}

// Codec is a table-driven Serializer and Deserializer.
type Codec struct {
	types map[string]TypeDef
}

func NewCodec(defs ...TypeDef) *Codec {
	c := &Codec{types: make(map[string]TypeDef, len(defs))}
	for _, d := range defs {
		c.types[d.Name] = d
	}
	return c
}

func (c *Codec) Names() []string {
	out := make([]string, 0, len(c.types))
	for n := range c.types {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

func (c *Codec) SerializeType(it Item) (SavedItemData, error) {
	def, ok := c.types[it.Name]
	if !ok {
		return SavedItemData{}, fmt.Errorf("%w: unknown type %q", ErrTypeSerialize, it.Name)
	}
	if it.Meta < 0 || it.Meta > def.MaxMeta {
		return SavedItemData{}, fmt.Errorf("%w: %s meta %d out of range", ErrTypeSerialize, it.Name, it.Meta)
	}
	out := SavedItemData{Name: it.Name, Meta: it.Meta}
	if def.BlockItem && it.Block != nil {
		b := *it.Block
		out.Block = &b
	}
	return out, nil
}

func (c *Codec) DeserializeType(d SavedItemData) (Item, error) {
	def, ok := c.types[d.Name]
	if !ok {
		return Item{}, fmt.Errorf("%w: unknown type %q", ErrTypeDeserialize, d.Name)
	}
	if d.Meta < 0 || d.Meta > def.MaxMeta {
		return Item{}, fmt.Errorf("%w: %s meta %d out of range", ErrTypeDeserialize, d.Name, d.Meta)
	}
	if d.Block != nil && !def.BlockItem {
		return Item{}, fmt.Errorf("%w: %s does not carry block state", ErrTypeDeserialize, d.Name)
	}
	it := Item{Name: d.Name, Meta: d.Meta, Count: 1}
	if d.Block != nil {
		b := *d.Block
		it.Block = &b
	}
	return it, nil
}
