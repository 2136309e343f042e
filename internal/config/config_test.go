package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_RepoServerConfig(t *testing.T) {
	c, err := Load("../../configs/server.yaml")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.ProtocolsPath != filepath.Join("../../configs", "protocols.yaml") {
		t.Fatalf("protocols path=%q", c.ProtocolsPath)
	}
	if c.Pipeline.Workers != 4 || c.WorldGen.SurfaceY != 64 || !c.Sinks.IndexDB {
		t.Fatalf("config=%+v", c)
	}
	if _, err := os.Stat(c.DictionariesDir); err != nil {
		t.Fatalf("dictionaries dir not resolved: %v", err)
	}
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "server.yaml")
	if err := os.WriteFile(path, []byte("pipeline:\n  workers: 2\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.Pipeline.Workers != 2 || c.Pipeline.QueueSize != 256 || c.Listen != ":8080" {
		t.Fatalf("config=%+v", c)
	}
	if c.ItemsPath != "./configs/items.json" {
		t.Fatalf("explicitly relative default rewritten: %q", c.ItemsPath)
	}
}

func TestLoad_RejectsInvalid(t *testing.T) {
	dir := t.TempDir()
	for name, body := range map[string]string{
		"workers": "pipeline:\n  workers: -1\n",
		"listen":  "listen: \"\"\n",
		"yaml":    "pipeline: [\n",
	} {
		path := filepath.Join(dir, name+".yaml")
		if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
		if _, err := Load(path); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}
