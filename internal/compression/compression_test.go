package compression

import (
	"bytes"
	"testing"

	"voxelgate.ai/internal/protocol"
)

func TestCompressors_RoundTrip(t *testing.T) {
	inputs := [][]byte{
		nil,
		[]byte("x"),
		bytes.Repeat([]byte("subchunk"), 4096),
	}
	for _, name := range []string{NameNone, NameZlib, NameSnappy, NameZstd, NameLZ4} {
		c, err := ByName(name)
		if err != nil {
			t.Fatalf("ByName(%s): %v", name, err)
		}
		if c.Name() != name {
			t.Fatalf("Name()=%s want %s", c.Name(), name)
		}
		for _, in := range inputs {
			enc, err := c.Compress(in)
			if err != nil {
				t.Fatalf("%s compress: %v", name, err)
			}
			dec, err := c.Decompress(enc)
			if err != nil {
				t.Fatalf("%s decompress: %v", name, err)
			}
			if !bytes.Equal(dec, in) {
				t.Fatalf("%s round trip mismatch (len %d vs %d)", name, len(dec), len(in))
			}
		}
	}
}

func TestCompressors_ShrinkRepetitiveInput(t *testing.T) {
	in := bytes.Repeat([]byte{0, 1, 2, 3}, 8192)
	for _, c := range []Compressor{Zlib, Snappy, Zstd, LZ4} {
		out, err := c.Compress(in)
		if err != nil {
			t.Fatalf("%s: %v", c.Name(), err)
		}
		if len(out) >= len(in) {
			t.Fatalf("%s did not shrink input: %d >= %d", c.Name(), len(out), len(in))
		}
	}
}

func TestNone_IsIdentity(t *testing.T) {
	in := []byte{1, 2, 3}
	out, _ := None.Compress(in)
	if !bytes.Equal(out, in) {
		t.Fatalf("none must not transform bytes")
	}
}

func TestByName_Unknown(t *testing.T) {
	if _, err := ByName("brotli"); err == nil {
		t.Fatalf("expected unknown compression error")
	}
}

func TestForProtocol(t *testing.T) {
	r, err := protocol.NewRegistry(protocol.Config{Protocols: []protocol.ProtocolSpec{
		{ID: protocol.V1_20_30, Compression: "snappy"},
		{ID: protocol.V1_20_80, Compression: "zstd"},
	}})
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	c, err := ForProtocol(r, protocol.V1_20_80)
	if err != nil || c.Name() != NameZstd {
		t.Fatalf("ForProtocol=%v,%v", c, err)
	}
	if err := ValidateRegistry(r); err != nil {
		t.Fatalf("ValidateRegistry: %v", err)
	}
	bad, _ := protocol.NewRegistry(protocol.Config{Protocols: []protocol.ProtocolSpec{{ID: 1, Compression: "brotli"}}})
	if err := ValidateRegistry(bad); err == nil {
		t.Fatalf("expected invalid compressor")
	}
}

func TestLZ4_RejectsOversizedHeader(t *testing.T) {
	hdr := []byte{0xff, 0xff, 0xff, 0xff, 0x0f, lz4ModeBlock}
	if _, err := LZ4.Decompress(hdr); err == nil {
		t.Fatalf("expected size limit error")
	}
}
