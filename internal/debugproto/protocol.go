// Package debugproto defines the JSON messages of the websocket debug
// endpoint. Packet payloads travel as binary frames and are not described
// here.
package debugproto

// Version is the debug protocol version (unrelated to game protocol ids).
const Version = "0.1"

const (
	TypeHello       = "HELLO"
	TypeWelcome     = "WELCOME"
	TypeChunk       = "CHUNK"
	TypeChunkMeta   = "CHUNK_META"
	TypeCrafting    = "CRAFTING"
	TypeCraftMeta   = "CRAFTING_META"
	TypeItem        = "ITEM"
	TypeItemFromNet = "ITEM_FROM_NET"
	TypeItemResult  = "ITEM_RESULT"
	TypeError       = "ERROR"
)

// Base is decoded first to dispatch on Type.
type Base struct {
	Type string `json:"type"`
	// Seq is echoed in the response so clients can match replies.
	Seq uint64 `json:"seq,omitempty"`
}

// Client -> Server. First message on the connection.
type HelloMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Protocol        int32  `json:"protocol"`
}

type WelcomeMsg struct {
	Type            string  `json:"type"`
	ProtocolVersion string  `json:"protocol_version"`
	Protocol        int32   `json:"protocol"`
	Dictionary      int32   `json:"dictionary"`
	Compression     string  `json:"compression"`
	Accepted        []int32 `json:"accepted"`
}

type ChunkReq struct {
	Type string `json:"type"`
	Seq  uint64 `json:"seq,omitempty"`
	CX   int32  `json:"cx"`
	CZ   int32  `json:"cz"`
}

// ChunkMetaMsg precedes the binary LEVEL_CHUNK frame.
type ChunkMetaMsg struct {
	Type       string   `json:"type"`
	Seq        uint64   `json:"seq,omitempty"`
	CX         int32    `json:"cx"`
	CZ         int32    `json:"cz"`
	SubChunks  int      `json:"subchunks"`
	BlobHashes []string `json:"blob_hashes"`
	Bytes      int      `json:"bytes"`
}

type CraftingReq struct {
	Type string `json:"type"`
	Seq  uint64 `json:"seq,omitempty"`
}

// CraftingMetaMsg precedes the binary CRAFTING_DATA frame.
type CraftingMetaMsg struct {
	Type   string `json:"type"`
	Seq    uint64 `json:"seq,omitempty"`
	Digest string `json:"digest"`
	Bytes  int    `json:"bytes"`
}

type BlockState struct {
	Name   string         `json:"name"`
	States map[string]any `json:"states,omitempty"`
}

type ItemReq struct {
	Type  string      `json:"type"`
	Seq   uint64      `json:"seq,omitempty"`
	Name  string      `json:"name"`
	Meta  int16       `json:"meta"`
	Block *BlockState `json:"block,omitempty"`
}

type ItemFromNetReq struct {
	Type           string `json:"type"`
	Seq            uint64 `json:"seq,omitempty"`
	ID             int16  `json:"id"`
	Meta           int16  `json:"meta"`
	BlockRuntimeID uint32 `json:"block_runtime_id"`
}

// ItemResultMsg answers both ITEM and ITEM_FROM_NET.
type ItemResultMsg struct {
	Type           string      `json:"type"`
	Seq            uint64      `json:"seq,omitempty"`
	Name           string      `json:"name"`
	Meta           int16       `json:"meta"`
	Block          *BlockState `json:"block,omitempty"`
	ID             int16       `json:"id"`
	BlockRuntimeID uint32      `json:"block_runtime_id"`
}

type ErrorMsg struct {
	Type    string `json:"type"`
	Seq     uint64 `json:"seq,omitempty"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// StatusResponse is served at GET /debug/v1/status.
type StatusResponse struct {
	ProtocolVersion string         `json:"protocol_version"`
	Accepted        []int32        `json:"accepted"`
	Dictionaries    []int32        `json:"dictionaries"`
	InFlight        int            `json:"in_flight"`
	CraftingCaches  int            `json:"crafting_caches"`
	Rebuilds        uint64         `json:"crafting_rebuilds"`
	Timings         []TimingStats  `json:"timings"`
	Index           map[string]int `json:"index,omitempty"`
}

type TimingStats struct {
	Name    string `json:"name"`
	Count   uint64 `json:"count"`
	TotalNS int64  `json:"total_ns"`
	MaxNS   int64  `json:"max_ns"`
}
