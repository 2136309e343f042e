// Package gen deterministically generates chunk columns for the debug server.
package gen

import (
	"voxelgate.ai/internal/protocol/dictionary"
	"voxelgate.ai/internal/world/chunk"
)

type Biome uint8

// Network biome ids.
const (
	Plains Biome = 1
	Desert Biome = 2
	Forest Biome = 4
)

func BiomeFrom(noise uint64) Biome {
	switch noise % 3 {
	case 0:
		return Plains
	case 1:
		return Forest
	default:
		return Desert
	}
}

func BiomeAt(seed int64, x, z, regionSize int) Biome {
	if regionSize <= 0 {
		regionSize = 1
	}
	return BiomeFrom(Hash2(seed, FloorDiv(x, regionSize), FloorDiv(z, regionSize)))
}

func InCluster(seed int64, x, z, grid, radius int, probPermille uint64) bool {
	if grid <= 0 || radius <= 0 || probPermille == 0 {
		return false
	}
	gx := FloorDiv(x, grid)
	gz := FloorDiv(z, grid)
	r2 := radius * radius

	for dz := -1; dz <= 1; dz++ {
		for dx := -1; dx <= 1; dx++ {
			cgx := gx + dx
			cgz := gz + dz
			h := Hash2(seed, cgx, cgz)
			if h%1000 >= probPermille {
				continue
			}

			ox := int((h >> 10) % uint64(grid))
			oz := int((h >> 20) % uint64(grid))
			cx := cgx*grid + ox
			cz := cgz*grid + oz

			ddx := x - cx
			ddz := z - cz
			if ddx*ddx+ddz*ddz <= r2 {
				return true
			}
		}
	}
	return false
}

type Config struct {
	Seed            int64 `yaml:"seed"`
	BiomeRegionSize int   `yaml:"biome_region_size"`
	// SurfaceY is the world y of the topmost solid layer.
	SurfaceY int `yaml:"surface_y"`
}

func (c Config) withDefaults() Config {
	if c.BiomeRegionSize <= 0 {
		c.BiomeRegionSize = 64
	}
	if c.SurfaceY <= chunk.MinY || c.SurfaceY >= chunk.MaxY {
		c.SurfaceY = 64
	}
	return c
}

var (
	Stone    = dictionary.BlockStateData{Name: "minecraft:stone", States: map[string]any{"stone_type": "stone"}}
	Dirt     = dictionary.BlockStateData{Name: "minecraft:dirt", States: map[string]any{"dirt_type": "normal"}}
	Grass    = dictionary.BlockStateData{Name: "minecraft:grass"}
	Sand     = dictionary.BlockStateData{Name: "minecraft:sand", States: map[string]any{"sand_type": "normal"}}
	Gravel   = dictionary.BlockStateData{Name: "minecraft:gravel"}
	CoalOre  = dictionary.BlockStateData{Name: "minecraft:coal_ore"}
	IronOre  = dictionary.BlockStateData{Name: "minecraft:iron_ore"}
	Planks   = dictionary.BlockStateData{Name: "minecraft:planks", States: map[string]any{"wood_type": "oak"}}
	Chest    = dictionary.BlockStateData{Name: "minecraft:chest", States: map[string]any{"facing_direction": int32(2)}}
)

const oreDepth = 12

// Generator is stateless; Generate is safe for concurrent use.
type Generator struct {
	cfg Config
}

func New(cfg Config) *Generator {
	return &Generator{cfg: cfg.withDefaults()}
}

func (g *Generator) Generate(cx, cz int32) *chunk.Chunk {
	c := chunk.New(cx, cz)
	seed := g.cfg.Seed
	top := g.cfg.SurfaceY
	for z := 0; z < 16; z++ {
		for x := 0; x < 16; x++ {
			wx := int(cx)*16 + x
			wz := int(cz)*16 + z
			biome := BiomeAt(seed, wx, wz, g.cfg.BiomeRegionSize)
			c.SetBiome(x, z, uint8(biome))

			for y := chunk.MinY; y <= top; y++ {
				state := Stone
				switch {
				case y == top && biome == Desert:
					state = Sand
				case y == top:
					state = Grass
				case y > top-4 && biome == Desert:
					state = Sand
				case y > top-4:
					state = Dirt
				case y < top-oreDepth && InCluster(seed+101, wx, wz, 32, 3, 450) && Hash2(seed+int64(y), wx, wz)%4 == 0:
					state = IronOre
				case y < top-oreDepth && InCluster(seed+102, wx, wz, 16, 2, 650) && Hash2(seed+int64(y), wx, wz)%3 == 0:
					state = CoalOre
				case biome == Forest && y == top-4 && InCluster(seed+201, wx, wz, 48, 4, 300):
					state = Gravel
				}
				_ = c.SetBlock(x, y, z, 0, state)
			}
		}
	}

	// One stash per chunk at a hashed surface spot.
	h := Hash2(seed+999, int(cx), int(cz))
	if h%4 == 0 {
		x, z := int(h>>8)%16, int(h>>16)%16
		_ = c.SetBlock(x, top+1, z, 0, Chest)
		c.SetTile(chunk.Tile{
			Pos:  chunk.TilePos{X: int32(x), Y: int32(top + 1), Z: int32(z)},
			ID:   "Chest",
			Data: map[string]any{"Findable": uint8(0)},
		})
	}
	return c
}
