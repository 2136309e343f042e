package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	flag "github.com/spf13/pflag"

	"voxelgate.ai/internal/cache"
	"voxelgate.ai/internal/chunkreq"
	"voxelgate.ai/internal/compression"
	"voxelgate.ai/internal/config"
	"voxelgate.ai/internal/convert"
	"voxelgate.ai/internal/crafting"
	"voxelgate.ai/internal/item"
	"voxelgate.ai/internal/persistence/indexdb"
	"voxelgate.ai/internal/protocol"
	"voxelgate.ai/internal/protocol/dictionary"
	"voxelgate.ai/internal/timings"
	"voxelgate.ai/internal/transport/ws"
	"voxelgate.ai/internal/world/gen"
)

func main() {
	var (
		configPath = flag.String("config", "./configs/server.yaml", "server config path")
		addr       = flag.String("addr", "", "http listen address (overrides config)")
		dataDir    = flag.String("data", "", "runtime data directory (overrides config)")
		workers    = flag.Int("workers", 0, "chunk encode workers (overrides config)")
		seed       = flag.Int64("seed", 0, "world gen seed (overrides config)")
		disableDB  = flag.Bool("disable_db", false, "disable the sqlite timing index")
		pprofHTTP  = flag.Bool("pprof", false, "serve /debug/pprof")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lmicroseconds)

	cfg, err := config.Load(*configPath)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Fatalf("load config: %v", err)
		}
		logger.Printf("config not found (%s); using defaults", *configPath)
		cfg = config.Defaults()
	}
	if v := strings.TrimSpace(*addr); v != "" {
		cfg.Listen = v
	}
	if v := strings.TrimSpace(*dataDir); v != "" {
		cfg.DataDir = v
	}
	if *workers > 0 {
		cfg.Pipeline.Workers = *workers
	}
	if flag.CommandLine.Changed("seed") {
		cfg.WorldGen.Seed = *seed
	}
	if *disableDB {
		cfg.Sinks.IndexDB = false
	}

	pcfg, err := protocol.LoadConfig(cfg.ProtocolsPath)
	if err != nil {
		logger.Fatalf("load protocols: %v", err)
	}
	reg, err := protocol.NewRegistry(pcfg)
	if err != nil {
		logger.Fatalf("protocol registry: %v", err)
	}
	if err := compression.ValidateRegistry(reg); err != nil {
		logger.Fatalf("protocol registry: %v", err)
	}
	dicts, err := dictionary.Load(cfg.DictionariesDir, reg.DictionaryProtocols())
	if err != nil {
		logger.Fatalf("load dictionaries: %v", err)
	}
	codec, itemsDigest, err := item.LoadCatalog(cfg.ItemsPath)
	if err != nil {
		logger.Fatalf("load items: %v", err)
	}
	recipes, recipesDigest, err := crafting.LoadCatalog(cfg.RecipesPath)
	if err != nil {
		logger.Fatalf("load recipes: %v", err)
	}
	defer recipes.Destroy()

	sinks, err := openSinks(cfg, logger)
	if err != nil {
		logger.Fatalf("open timing sinks: %v", err)
	}
	defer sinks.Close()
	ts := timings.New(sinks.list()...)

	if sinks.index != nil {
		if err := sinks.index.UpsertCatalogs(catalogRows(cfg, reg, dicts, itemsDigest, recipesDigest)); err != nil {
			logger.Printf("index: upsert catalogs: %v", err)
		}
	}

	translator := convert.NewItemTranslator(dicts, codec, codec)
	craftingCache := cache.NewCraftingDataCache(convert.NewTypeConverter(translator), dicts, ts)
	pipeline := chunkreq.NewPipeline(chunkreq.Config{
		Workers:   cfg.Pipeline.Workers,
		QueueSize: cfg.Pipeline.QueueSize,
	}, dicts, log.New(os.Stdout, "[chunkreq] ", log.LstdFlags|log.Lmicroseconds), ts)

	// Warm the crafting cache so the first session does not pay for the build.
	if ds := reg.DictionaryProtocols(); len(ds) > 0 {
		if _, err := craftingCache.GetCache(ds[0], recipes); err != nil {
			logger.Fatalf("crafting data: %v", err)
		}
	}

	ctx, cancel := signalContext()
	defer cancel()

	// Pipeline completions are delivered on this goroutine only.
	pipelineDone := make(chan struct{})
	go func() {
		defer close(pipelineDone)
		if err := pipeline.Run(ctx); err != nil && err != context.Canceled {
			logger.Printf("pipeline stopped: %v", err)
		}
	}()

	wsSrv := ws.NewServer(ws.Deps{
		Registry:   reg,
		Dicts:      dicts,
		Translator: translator,
		Crafting:   craftingCache,
		Recipes:    recipes,
		Generator:  gen.New(cfg.WorldGen),
		Pipeline:   pipeline,
		Timings:    ts,
		Index:      sinks.index,
	}, log.New(os.Stdout, "[ws] ", log.LstdFlags|log.Lmicroseconds))

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(200)
		_, _ = rw.Write([]byte("ok"))
	})
	mux.HandleFunc("/metrics", func(rw http.ResponseWriter, r *http.Request) {
		rw.Header().Set("Content-Type", "text/plain; version=0.0.4")
		writeMetrics(rw, ts, pipeline, craftingCache, sinks.index)
	})
	mux.HandleFunc("/debug/v1/status", wsSrv.StatusHandler())
	mux.HandleFunc("/v1/ws", wsSrv.Handler())
	if *pprofHTTP {
		mux.HandleFunc("/debug/pprof/", pprof.Index)
		mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
		mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	}

	srv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel2()
		_ = srv.Shutdown(ctx2)
	}()

	logger.Printf("listening on %s (protocols %v, dictionaries %v)", cfg.Listen, reg.Accepted(), reg.DictionaryProtocols())
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("ListenAndServe: %v", err)
	}
	cancel()
	<-pipelineDone
	pipeline.Close()
	if n := pipeline.CollectPending(); n > 0 {
		logger.Printf("delivered %d chunk results after shutdown", n)
	}
}

func catalogRows(cfg config.Config, reg *protocol.Registry, dicts *dictionary.Set, itemsDigest, recipesDigest string) []indexdb.CatalogRow {
	row := func(name, digest string, v any) indexdb.CatalogRow {
		b, _ := json.Marshal(v)
		return indexdb.CatalogRow{Name: name, Digest: digest, JSON: b}
	}
	rows := []indexdb.CatalogRow{
		row("items", itemsDigest, map[string]string{"path": cfg.ItemsPath}),
		row("recipes", recipesDigest, map[string]string{"path": cfg.RecipesPath}),
	}
	for _, id := range reg.DictionaryProtocols() {
		d, ok := dicts.Get(id)
		if !ok {
			continue
		}
		rows = append(rows,
			row(fmt.Sprintf("item_types_%d", id), d.ItemsDigest, map[string]any{"dictionary": id, "entries": d.Items.Len()}),
			row(fmt.Sprintf("block_states_%d", id), d.BlocksDigest, map[string]any{"dictionary": id, "entries": d.Blocks.Len()}),
		)
	}
	return rows
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx, cancel
}
