package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"voxelgate.ai/internal/cache"
	"voxelgate.ai/internal/chunkreq"
	"voxelgate.ai/internal/compression"
	"voxelgate.ai/internal/convert"
	"voxelgate.ai/internal/crafting"
	"voxelgate.ai/internal/debugproto"
	"voxelgate.ai/internal/item"
	"voxelgate.ai/internal/persistence/indexdb"
	"voxelgate.ai/internal/protocol"
	"voxelgate.ai/internal/protocol/dictionary"
	"voxelgate.ai/internal/timings"
	"voxelgate.ai/internal/world/gen"
)

// Deps are the collaborators the debug endpoint exposes. Index may be nil.
type Deps struct {
	Registry   *protocol.Registry
	Dicts      *dictionary.Set
	Translator *convert.ItemTranslator
	Crafting   *cache.CraftingDataCache
	Recipes    *crafting.Manager
	Generator  *gen.Generator
	Pipeline   *chunkreq.Pipeline
	Timings    *timings.Timings
	Index      *indexdb.SQLiteIndex
}

type Server struct {
	deps Deps
	log  *log.Logger

	upgrader websocket.Upgrader
}

// session is the per-connection state fixed by HELLO.
type session struct {
	protocol    protocol.ID
	dictionary  protocol.DictionaryID
	compressor  compression.Compressor
	requestWait time.Duration
}

func NewServer(deps Deps, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Server{
		deps: deps,
		log:  logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  64 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
	}
}

func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		sess, ok := s.handshake(conn)
		if !ok {
			return
		}

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		for {
			_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				break
			}
			var base debugproto.Base
			if err := json.Unmarshal(msg, &base); err != nil {
				if err := writeError(conn, 0, protocol.ErrInternal, "bad json"); err != nil {
					break
				}
				continue
			}
			if err := s.dispatch(ctx, conn, sess, base, msg); err != nil {
				s.log.Printf("write: %v", err)
				break
			}
		}
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"), time.Now().Add(time.Second))
	}
}

func (s *Server) handshake(conn *websocket.Conn) (*session, bool) {
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		return nil, false
	}
	var hello debugproto.HelloMsg
	if err := json.Unmarshal(msg, &hello); err != nil || hello.Type != debugproto.TypeHello {
		closePolicy(conn, "expected HELLO")
		return nil, false
	}
	if hello.ProtocolVersion != debugproto.Version {
		closePolicy(conn, "bad protocol_version")
		return nil, false
	}
	p := protocol.ID(hello.Protocol)
	d, err := s.deps.Registry.DictionaryProtocol(p)
	if err != nil {
		_ = writeError(conn, 0, protocol.CodeOf(err), err.Error())
		closePolicy(conn, "unsupported protocol")
		return nil, false
	}
	compressor, err := compression.ForProtocol(s.deps.Registry, p)
	if err != nil {
		_ = writeError(conn, 0, protocol.ErrInternal, err.Error())
		return nil, false
	}

	welcome := debugproto.WelcomeMsg{
		Type:            debugproto.TypeWelcome,
		ProtocolVersion: debugproto.Version,
		Protocol:        int32(p),
		Dictionary:      int32(d),
		Compression:     compressor.Name(),
	}
	for _, a := range s.deps.Registry.Accepted() {
		welcome.Accepted = append(welcome.Accepted, int32(a))
	}
	if err := writeJSON(conn, welcome); err != nil {
		return nil, false
	}
	return &session{protocol: p, dictionary: d, compressor: compressor, requestWait: 10 * time.Second}, true
}

func (s *Server) dispatch(ctx context.Context, conn *websocket.Conn, sess *session, base debugproto.Base, msg []byte) error {
	switch base.Type {
	case debugproto.TypeChunk:
		var req debugproto.ChunkReq
		if err := json.Unmarshal(msg, &req); err != nil {
			return writeError(conn, base.Seq, protocol.ErrInternal, "bad CHUNK")
		}
		return s.handleChunk(ctx, conn, sess, req)
	case debugproto.TypeCrafting:
		return s.handleCrafting(conn, sess, base.Seq)
	case debugproto.TypeItem:
		var req debugproto.ItemReq
		if err := json.Unmarshal(msg, &req); err != nil {
			return writeError(conn, base.Seq, protocol.ErrInternal, "bad ITEM")
		}
		return s.handleItem(conn, sess, req)
	case debugproto.TypeItemFromNet:
		var req debugproto.ItemFromNetReq
		if err := json.Unmarshal(msg, &req); err != nil {
			return writeError(conn, base.Seq, protocol.ErrInternal, "bad ITEM_FROM_NET")
		}
		return s.handleItemFromNet(conn, sess, req)
	default:
		return writeError(conn, base.Seq, protocol.ErrInternal, fmt.Sprintf("unknown type %q", base.Type))
	}
}

// handleChunk generates the column, runs it through the pipeline and waits
// for the owner goroutine to deliver the result.
func (s *Server) handleChunk(ctx context.Context, conn *websocket.Conn, sess *session, req debugproto.ChunkReq) error {
	c := s.deps.Generator.Generate(req.CX, req.CZ)
	creq, err := chunkreq.NewRequest(c, sess.protocol, s.deps.Registry, sess.compressor)
	if err != nil {
		return writeError(conn, req.Seq, codeOr(err, protocol.ErrEncodeFailed), err.Error())
	}
	promise, err := s.deps.Pipeline.Submit(ctx, creq, func(a *cache.CachedChunk) {
		b, _ := a.Packet(sess.protocol)
		s.deps.Index.RecordArtifact(indexdb.ArtifactRow{
			X:           req.CX,
			Z:           req.CZ,
			Protocol:    int32(sess.protocol),
			Dictionary:  int32(sess.dictionary),
			Compression: sess.compressor.Name(),
			SubChunks:   len(a.HashList()) - 1,
			PacketBytes: len(b),
		})
	}, nil)
	if err != nil {
		return writeError(conn, req.Seq, protocol.ErrInternal, err.Error())
	}

	wctx, cancel := context.WithTimeout(ctx, sess.requestWait)
	defer cancel()
	art, err := promise.Wait(wctx)
	if err != nil {
		return writeError(conn, req.Seq, protocol.ErrEncodeFailed, fmt.Sprintf("chunk %d,%d: %v", req.CX, req.CZ, err))
	}
	pk, ok := art.Packet(sess.protocol)
	if !ok {
		protocol.AssumptionFailed("resolved chunk %d,%d has no packet for protocol %d", req.CX, req.CZ, sess.protocol)
	}
	hashes := art.HashList()
	meta := debugproto.ChunkMetaMsg{
		Type:      debugproto.TypeChunkMeta,
		Seq:       req.Seq,
		CX:        req.CX,
		CZ:        req.CZ,
		SubChunks: len(hashes) - 1,
		Bytes:     len(pk),
	}
	for _, h := range hashes {
		meta.BlobHashes = append(meta.BlobHashes, fmt.Sprintf("%016x", h))
	}
	if err := writeJSON(conn, meta); err != nil {
		return err
	}
	return writeBinary(conn, pk)
}

func (s *Server) handleCrafting(conn *websocket.Conn, sess *session, seq uint64) error {
	b, err := s.deps.Crafting.GetCache(sess.dictionary, s.deps.Recipes)
	if err != nil {
		return writeError(conn, seq, codeOr(err, protocol.ErrEncodeFailed), err.Error())
	}
	digest, err := s.deps.Crafting.Digest(sess.dictionary, s.deps.Recipes)
	if err != nil {
		return writeError(conn, seq, codeOr(err, protocol.ErrEncodeFailed), err.Error())
	}
	if err := writeJSON(conn, debugproto.CraftingMetaMsg{
		Type:   debugproto.TypeCraftMeta,
		Seq:    seq,
		Digest: fmt.Sprintf("%x", digest),
		Bytes:  len(b),
	}); err != nil {
		return err
	}
	return writeBinary(conn, b)
}

func (s *Server) handleItem(conn *websocket.Conn, sess *session, req debugproto.ItemReq) error {
	it := item.New(req.Name, req.Meta, 1)
	if req.Block != nil {
		states, err := dictionary.NormalizeStates(req.Block.States)
		if err != nil {
			return writeError(conn, req.Seq, protocol.ErrBadItemData, err.Error())
		}
		block := dictionary.BlockStateData{Name: req.Block.Name, States: states}
		// Client input is untrusted; an unmapped state must not reach the
		// translator, which treats it as a broken invariant.
		blocks, _ := s.deps.Dicts.Blocks(sess.dictionary)
		if _, ok := blocks.LookupStateIDFromData(block); !ok {
			return writeError(conn, req.Seq, protocol.ErrNotRepresentable, fmt.Sprintf("block state %s has no runtime id on protocol %d", block.Key(), sess.dictionary))
		}
		it.Block = &block
	}
	id, err := s.deps.Translator.ToNetworkID(it, sess.dictionary)
	if err != nil {
		return writeError(conn, req.Seq, codeOr(err, protocol.ErrNotRepresentable), err.Error())
	}
	return writeJSON(conn, debugproto.ItemResultMsg{
		Type:           debugproto.TypeItemResult,
		Seq:            req.Seq,
		Name:           req.Name,
		Meta:           id.Meta,
		Block:          req.Block,
		ID:             id.ID,
		BlockRuntimeID: id.BlockRuntimeID,
	})
}

func (s *Server) handleItemFromNet(conn *websocket.Conn, sess *session, req debugproto.ItemFromNetReq) error {
	it, err := s.deps.Translator.FromNetworkID(req.ID, req.Meta, req.BlockRuntimeID, sess.dictionary)
	if err != nil {
		return writeError(conn, req.Seq, codeOr(err, protocol.ErrBadItemData), err.Error())
	}
	out := debugproto.ItemResultMsg{
		Type:           debugproto.TypeItemResult,
		Seq:            req.Seq,
		Name:           it.Name,
		Meta:           it.Meta,
		ID:             req.ID,
		BlockRuntimeID: req.BlockRuntimeID,
	}
	if it.Block != nil {
		out.Block = &debugproto.BlockState{Name: it.Block.Name, States: it.Block.States}
	}
	return writeJSON(conn, out)
}

// StatusHandler serves a JSON summary to loopback clients.
func (s *Server) StatusHandler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			rw.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if !isLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}
		resp := debugproto.StatusResponse{
			ProtocolVersion: debugproto.Version,
			InFlight:        s.deps.Pipeline.InFlight(),
			CraftingCaches:  s.deps.Crafting.Len(),
			Rebuilds:        s.deps.Crafting.Rebuilds(),
		}
		for _, p := range s.deps.Registry.Accepted() {
			resp.Accepted = append(resp.Accepted, int32(p))
		}
		for _, d := range s.deps.Registry.DictionaryProtocols() {
			resp.Dictionaries = append(resp.Dictionaries, int32(d))
		}
		for _, st := range s.deps.Timings.Snapshot() {
			resp.Timings = append(resp.Timings, debugproto.TimingStats{
				Name:    st.Name,
				Count:   st.Count,
				TotalNS: int64(st.Total),
				MaxNS:   int64(st.Max),
			})
		}
		if s.deps.Index != nil {
			st := s.deps.Index.Stats()
			resp.Index = map[string]int{
				"drop_timing_total":   int(st.DropTimingTotal),
				"drop_artifact_total": int(st.DropArtifactTotal),
				"queue_depth":         st.QueueDepth,
				"queue_capacity":      st.QueueCapacity,
			}
		}
		rw.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(rw).Encode(resp)
	}
}

func codeOr(err error, fallback string) string {
	if code := protocol.CodeOf(err); code != "" {
		return code
	}
	return fallback
}

func closePolicy(conn *websocket.Conn, reason string) {
	_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, reason), time.Now().Add(time.Second))
}

func writeError(conn *websocket.Conn, seq uint64, code, msg string) error {
	return writeJSON(conn, debugproto.ErrorMsg{Type: debugproto.TypeError, Seq: seq, Code: code, Message: msg})
}

func writeJSON(conn *websocket.Conn, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return conn.WriteMessage(websocket.TextMessage, b)
}

func writeBinary(conn *websocket.Conn, b []byte) error {
	_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return conn.WriteMessage(websocket.BinaryMessage, b)
}

func isLoopbackRemote(remoteAddr string) bool {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	host = strings.TrimPrefix(host, "[")
	host = strings.TrimSuffix(host, "]")
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
