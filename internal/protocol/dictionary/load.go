package dictionary

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"voxelgate.ai/internal/protocol"
)

const (
	itemTypesFile   = "item_types.json"
	blockStatesFile = "block_states.json"
)

const itemTypesSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "array",
  "items": {
    "type": "object",
    "required": ["name", "id"],
    "properties": {
      "name": {"type": "string", "minLength": 1},
      "id": {"type": "integer", "minimum": -32768, "maximum": 32767},
      "component_based": {"type": "boolean"}
    },
    "additionalProperties": false
  }
}`

const blockStatesSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "array",
  "items": {
    "type": "object",
    "required": ["name"],
    "properties": {
      "name": {"type": "string", "minLength": 1},
      "version": {"type": "integer"},
      "states": {
        "type": "object",
        "additionalProperties": {"type": ["string", "integer", "boolean"]}
      }
    },
    "additionalProperties": false
  }
}`

var (
	itemTypesValidator   = jsonschema.MustCompileString("item_types.schema.json", itemTypesSchema)
	blockStatesValidator = jsonschema.MustCompileString("block_states.schema.json", blockStatesSchema)
)

// Dictionaries holds both numeric tables of one dictionary protocol.
type Dictionaries struct {
	Items  *ItemTypeDictionary
	Blocks *BlockStateDictionary

	ItemsDigest  string
	BlocksDigest string
}

// Set holds the tables of every registered dictionary protocol. It is
// populated once at startup and only read afterwards.
type Set struct {
	byID map[protocol.DictionaryID]*Dictionaries
}

func NewSet() *Set {
	return &Set{byID: map[protocol.DictionaryID]*Dictionaries{}}
}

func (s *Set) Add(id protocol.DictionaryID, d *Dictionaries) {
	s.byID[id] = d
}

func (s *Set) Get(id protocol.DictionaryID) (*Dictionaries, bool) {
	d, ok := s.byID[id]
	return d, ok
}

func (s *Set) Items(id protocol.DictionaryID) (*ItemTypeDictionary, bool) {
	d, ok := s.byID[id]
	if !ok {
		return nil, false
	}
	return d.Items, true
}

func (s *Set) Blocks(id protocol.DictionaryID) (*BlockStateDictionary, bool) {
	d, ok := s.byID[id]
	if !ok {
		return nil, false
	}
	return d.Blocks, true
}

// IDs returns the registered dictionary protocols in ascending order.
func (s *Set) IDs() []protocol.DictionaryID {
	ids := make([]protocol.DictionaryID, 0, len(s.byID))
	for id := range s.byID {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Load reads <dir>/<id>/item_types.json and block_states.json for every id.
func Load(dir string, ids []protocol.DictionaryID) (*Set, error) {
	s := NewSet()
	for _, id := range ids {
		d, err := LoadDictionaries(filepath.Join(dir, strconv.Itoa(int(id))))
		if err != nil {
			return nil, fmt.Errorf("dictionary %d: %w", id, err)
		}
		s.Add(id, d)
	}
	return s, nil
}

func LoadDictionaries(dir string) (*Dictionaries, error) {
	var out Dictionaries

	raw, err := readValidated(filepath.Join(dir, itemTypesFile), itemTypesValidator)
	if err != nil {
		return nil, err
	}
	out.ItemsDigest = sha256Hex(raw)
	var items []ItemTypeEntry
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("%s: %w", itemTypesFile, err)
	}
	if out.Items, err = NewItemTypeDictionary(items); err != nil {
		return nil, fmt.Errorf("%s: %w", itemTypesFile, err)
	}

	raw, err = readValidated(filepath.Join(dir, blockStatesFile), blockStatesValidator)
	if err != nil {
		return nil, err
	}
	out.BlocksDigest = sha256Hex(raw)
	var states []BlockStateData
	if err := json.Unmarshal(raw, &states); err != nil {
		return nil, fmt.Errorf("%s: %w", blockStatesFile, err)
	}
	if out.Blocks, err = NewBlockStateDictionary(states); err != nil {
		return nil, fmt.Errorf("%s: %w", blockStatesFile, err)
	}
	return &out, nil
}

func readValidated(path string, schema *jsonschema.Schema) ([]byte, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var doc any
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	if err := schema.Validate(doc); err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return raw, nil
}

func sha256Hex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}
