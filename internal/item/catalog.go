package item

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
)

type catalogDef struct {
	Name      string `json:"name"`
	MaxMeta   int16  `json:"max_meta,omitempty"`
	BlockItem bool   `json:"block_item,omitempty"`
}

// LoadCatalog builds a Codec from items.json and returns the sha256 digest
// of the file.
func LoadCatalog(path string) (*Codec, string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, "", err
	}
	var defs []catalogDef
	if err := json.Unmarshal(raw, &defs); err != nil {
		return nil, "", fmt.Errorf("items.json: %w", err)
	}
	seen := map[string]struct{}{}
	types := make([]TypeDef, 0, len(defs))
	for i, d := range defs {
		if d.Name == "" {
			return nil, "", fmt.Errorf("items.json: entry %d has no name", i)
		}
		if _, dup := seen[d.Name]; dup {
			return nil, "", fmt.Errorf("items.json: duplicate item %q", d.Name)
		}
		if d.MaxMeta < 0 {
			return nil, "", fmt.Errorf("items.json: %s has negative max_meta", d.Name)
		}
		seen[d.Name] = struct{}{}
		types = append(types, TypeDef{Name: d.Name, MaxMeta: d.MaxMeta, BlockItem: d.BlockItem})
	}
	sum := sha256.Sum256(raw)
	return NewCodec(types...), hex.EncodeToString(sum[:]), nil
}
