package chunk

import (
	"fmt"
	"sort"

	"github.com/fxamacker/cbor/v2"

	"voxelgate.ai/internal/encoding"
	"voxelgate.ai/internal/protocol/dictionary"
)

const terrainVersion = 1

// Core deterministic encoding: equal terrain always yields equal snapshot bytes.
var (
	snapEnc cbor.EncMode
	snapDec cbor.DecMode
)

func init() {
	var err error
	snapEnc, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("chunk: CBOR encoder initialization failed: " + err.Error())
	}
	snapDec, err = cbor.DecOptions{MaxArrayElements: 1 << 20}.DecMode()
	if err != nil {
		panic("chunk: CBOR decoder initialization failed: " + err.Error())
	}
}

type terrainV1 struct {
	Version   int          `cbor:"1,keyasint"`
	CX        int32        `cbor:"2,keyasint"`
	CZ        int32        `cbor:"3,keyasint"`
	Palette   []stateV1    `cbor:"4,keyasint"`
	SubChunks []subChunkV1 `cbor:"5,keyasint"`
	Biomes    []byte       `cbor:"6,keyasint"`
}

type stateV1 struct {
	Name    string   `cbor:"1,keyasint"`
	Version int32    `cbor:"2,keyasint,omitempty"`
	Props   []propV1 `cbor:"3,keyasint,omitempty"`
}

const (
	propString uint8 = iota
	propInt
	propByte
)

type propV1 struct {
	Name string `cbor:"1,keyasint"`
	Kind uint8  `cbor:"2,keyasint"`
	Str  string `cbor:"3,keyasint,omitempty"`
	Int  int32  `cbor:"4,keyasint,omitempty"`
}

type subChunkV1 struct {
	Index  int8     `cbor:"1,keyasint"`
	Layers [][]byte `cbor:"2,keyasint"`
}

// SerializeTerrain encodes the block and biome data of c. Tiles are not part
// of the terrain snapshot.
func SerializeTerrain(c *Chunk) ([]byte, error) {
	snap := terrainV1{
		Version: terrainVersion,
		CX:      c.CX,
		CZ:      c.CZ,
		Biomes:  append([]byte(nil), c.biomes[:]...),
	}
	for _, st := range c.palette {
		s, err := encodeState(st)
		if err != nil {
			return nil, err
		}
		snap.Palette = append(snap.Palette, s)
	}
	for i := range c.subChunks {
		sub := &c.subChunks[i]
		if sub.Empty() {
			continue
		}
		sc := subChunkV1{Index: int8(i)}
		for l := 0; l < sub.LayerCount(); l++ {
			layer := sub.layers[l]
			if layer == nil {
				sc.Layers = append(sc.Layers, nil)
				continue
			}
			sc.Layers = append(sc.Layers, encoding.EncodeRLE(layer))
		}
		snap.SubChunks = append(snap.SubChunks, sc)
	}
	return snapEnc.Marshal(snap)
}

func DeserializeTerrain(b []byte) (*Chunk, error) {
	var snap terrainV1
	if err := snapDec.Unmarshal(b, &snap); err != nil {
		return nil, fmt.Errorf("terrain snapshot: %w", err)
	}
	if snap.Version != terrainVersion {
		return nil, fmt.Errorf("terrain snapshot: unsupported version %d", snap.Version)
	}
	if len(snap.Palette) == 0 {
		return nil, fmt.Errorf("terrain snapshot: empty palette")
	}
	if len(snap.Biomes) != 256 {
		return nil, fmt.Errorf("terrain snapshot: biome length %d, want 256", len(snap.Biomes))
	}

	c := New(snap.CX, snap.CZ)
	c.palette = c.palette[:0]
	c.paletteIndex = make(map[string]uint16, len(snap.Palette))
	for i, s := range snap.Palette {
		st, err := decodeState(s)
		if err != nil {
			return nil, fmt.Errorf("terrain snapshot: palette %d: %w", i, err)
		}
		if _, dup := c.paletteIndex[st.Key()]; dup {
			return nil, fmt.Errorf("terrain snapshot: duplicate palette entry %s", st.Key())
		}
		c.paletteIndex[st.Key()] = uint16(i)
		c.palette = append(c.palette, st)
	}
	if c.palette[0].Key() != AirState.Key() {
		return nil, fmt.Errorf("terrain snapshot: palette entry 0 is %s, not air", c.palette[0].Key())
	}
	copy(c.biomes[:], snap.Biomes)

	for _, sc := range snap.SubChunks {
		if sc.Index < 0 || int(sc.Index) >= SubChunkCount {
			return nil, fmt.Errorf("terrain snapshot: subchunk index %d out of range", sc.Index)
		}
		if len(sc.Layers) > MaxLayers {
			return nil, fmt.Errorf("terrain snapshot: subchunk %d has %d layers", sc.Index, len(sc.Layers))
		}
		sub := &c.subChunks[sc.Index]
		for l, raw := range sc.Layers {
			if raw == nil {
				continue
			}
			ids, err := encoding.DecodeRLE(raw, SubChunkVolume)
			if err != nil {
				return nil, fmt.Errorf("terrain snapshot: subchunk %d layer %d: %w", sc.Index, l, err)
			}
			for _, id := range ids {
				if int(id) >= len(c.palette) {
					return nil, fmt.Errorf("terrain snapshot: subchunk %d palette index %d out of range", sc.Index, id)
				}
			}
			sub.layers[l] = ids
		}
	}
	return c, nil
}

func encodeState(st dictionary.BlockStateData) (stateV1, error) {
	out := stateV1{Name: st.Name, Version: st.Version}
	names := make([]string, 0, len(st.States))
	for k := range st.States {
		names = append(names, k)
	}
	sort.Strings(names)
	for _, k := range names {
		p := propV1{Name: k}
		switch v := st.States[k].(type) {
		case string:
			p.Kind, p.Str = propString, v
		case int32:
			p.Kind, p.Int = propInt, v
		case uint8:
			p.Kind, p.Int = propByte, int32(v)
		default:
			return stateV1{}, fmt.Errorf("state %s.%s: unsupported value type %T", st.Name, k, v)
		}
		out.Props = append(out.Props, p)
	}
	return out, nil
}

func decodeState(s stateV1) (dictionary.BlockStateData, error) {
	out := dictionary.BlockStateData{Name: s.Name, Version: s.Version}
	if len(s.Props) > 0 {
		out.States = make(map[string]any, len(s.Props))
	}
	for _, p := range s.Props {
		switch p.Kind {
		case propString:
			out.States[p.Name] = p.Str
		case propInt:
			out.States[p.Name] = p.Int
		case propByte:
			if p.Int < 0 || p.Int > 0xFF {
				return out, fmt.Errorf("state %s: byte value %d out of range", p.Name, p.Int)
			}
			out.States[p.Name] = uint8(p.Int)
		default:
			return out, fmt.Errorf("state %s: unknown kind %d", p.Name, p.Kind)
		}
	}
	return out, nil
}
