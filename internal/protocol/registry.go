package protocol

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Protocols []ProtocolSpec `yaml:"protocols"`
}

type ProtocolSpec struct {
	ID          ID           `yaml:"id"`
	Name        string       `yaml:"name"`
	Dictionary  DictionaryID `yaml:"dictionary"`
	Compression string       `yaml:"compression"`
}

func LoadConfig(path string) (Config, error) {
	var cfg Config
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, fmt.Errorf("protocols.yaml: %w", err)
	}
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("protocols.yaml: %w", err)
	}
	return cfg, nil
}

func (c *Config) Normalize() {
	for i := range c.Protocols {
		p := &c.Protocols[i]
		p.Name = strings.TrimSpace(p.Name)
		p.Compression = strings.ToLower(strings.TrimSpace(p.Compression))
		if p.Compression == "" {
			p.Compression = "zlib"
		}
		if p.Dictionary == 0 {
			p.Dictionary = DictionaryID(p.ID)
		}
	}
	sort.Slice(c.Protocols, func(i, j int) bool { return c.Protocols[i].ID < c.Protocols[j].ID })
}

func (c Config) Validate() error {
	if len(c.Protocols) == 0 {
		return fmt.Errorf("no protocols configured")
	}
	seen := map[ID]struct{}{}
	dicts := map[DictionaryID]struct{}{}
	for _, p := range c.Protocols {
		if p.ID <= 0 {
			return fmt.Errorf("invalid protocol id %d", p.ID)
		}
		if _, ok := seen[p.ID]; ok {
			return fmt.Errorf("duplicate protocol id %d", p.ID)
		}
		seen[p.ID] = struct{}{}
		dicts[p.Dictionary] = struct{}{}
	}
	// A dictionary protocol must itself be one of the accepted revisions, so
	// its tables are reachable from at least one session.
	for d := range dicts {
		if _, ok := seen[ID(d)]; !ok {
			return fmt.Errorf("dictionary protocol %d is not an accepted protocol", d)
		}
	}
	return nil
}

// Registry resolves wire protocols to dictionary protocols. It is immutable
// after construction.
type Registry struct {
	specs    map[ID]ProtocolSpec
	accepted []ID
	dicts    []DictionaryID
}

func NewRegistry(cfg Config) (*Registry, error) {
	cfg.Protocols = append([]ProtocolSpec(nil), cfg.Protocols...)
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	r := &Registry{specs: make(map[ID]ProtocolSpec, len(cfg.Protocols))}
	seenDict := map[DictionaryID]struct{}{}
	for _, p := range cfg.Protocols {
		r.specs[p.ID] = p
		r.accepted = append(r.accepted, p.ID)
		if _, ok := seenDict[p.Dictionary]; !ok {
			seenDict[p.Dictionary] = struct{}{}
			r.dicts = append(r.dicts, p.Dictionary)
		}
	}
	sort.Slice(r.dicts, func(i, j int) bool { return r.dicts[i] < r.dicts[j] })
	return r, nil
}

func (r *Registry) Accepted() []ID {
	return append([]ID(nil), r.accepted...)
}

func (r *Registry) IsAccepted(p ID) bool {
	_, ok := r.specs[p]
	return ok
}

// DictionaryProtocols returns the distinct dictionary protocols in ascending order.
func (r *Registry) DictionaryProtocols() []DictionaryID {
	return append([]DictionaryID(nil), r.dicts...)
}

func (r *Registry) DictionaryProtocol(p ID) (DictionaryID, error) {
	spec, ok := r.specs[p]
	if !ok {
		return 0, Errorf(ErrUnknownProtocol, "protocol %d is not accepted", p)
	}
	return spec.Dictionary, nil
}

// MustDictionaryProtocol is DictionaryProtocol for protocols that were
// already admitted; an unknown protocol here is an invariant violation.
func (r *Registry) MustDictionaryProtocol(p ID) DictionaryID {
	d, err := r.DictionaryProtocol(p)
	if err != nil {
		AssumptionFailed("no dictionary protocol for admitted protocol %d", p)
	}
	return d
}

func (r *Registry) Compression(p ID) (string, error) {
	spec, ok := r.specs[p]
	if !ok {
		return "", Errorf(ErrUnknownProtocol, "protocol %d is not accepted", p)
	}
	return spec.Compression, nil
}

func (r *Registry) Spec(p ID) (ProtocolSpec, bool) {
	spec, ok := r.specs[p]
	return spec, ok
}
