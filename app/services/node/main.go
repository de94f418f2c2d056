package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/ardanlabs/conf/v3"
	"github.com/campusledger/blockchain/app/services/node/handlers"
	"github.com/campusledger/blockchain/foundation/blockchain/balance"
	"github.com/campusledger/blockchain/foundation/blockchain/genesis"
	"github.com/campusledger/blockchain/foundation/blockchain/peer"
	"github.com/campusledger/blockchain/foundation/blockchain/records"
	"github.com/campusledger/blockchain/foundation/blockchain/signature"
	"github.com/campusledger/blockchain/foundation/blockchain/state"
	"github.com/campusledger/blockchain/foundation/blockchain/storage/disk"
	"github.com/campusledger/blockchain/foundation/blockchain/worker"
	"github.com/campusledger/blockchain/foundation/events"
	"github.com/campusledger/blockchain/foundation/logger"
	"github.com/campusledger/blockchain/foundation/nameservice"
	"github.com/campusledger/blockchain/foundation/publisher"
	"github.com/ethereum/go-ethereum/crypto"
	"go.uber.org/zap"
)

// build is the git version of this program. It is set using build flags in the makefile.
var build = "develop"

func main() {

	// Construct the application logger. An unset level logs at info.
	log, err := logger.NewLevel("NODE", os.Getenv("NODE_LOG_LEVEL"))
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	defer log.Sync()

	// Perform the startup and shutdown sequence.
	if err := run(log); err != nil {
		log.Errorw("startup", "ERROR", err)
		log.Sync()
		os.Exit(1)
	}
}

func run(log *zap.SugaredLogger) error {

	// =========================================================================
	// Configuration

	cfg := struct {
		conf.Version
		Web struct {
			ReadTimeout     time.Duration `conf:"default:5s"`
			WriteTimeout    time.Duration `conf:"default:2m"`
			IdleTimeout     time.Duration `conf:"default:120s"`
			ShutdownTimeout time.Duration `conf:"default:20s"`
			DebugHost       string        `conf:"default:0.0.0.0:7080"`
			PublicHost      string        `conf:"default:0.0.0.0:8080"`
			PrivateHost     string        `conf:"default:0.0.0.0:9080"`
			PrivateURL      string        `conf:"default:http://localhost:9080"`
		}
		State struct {
			MinerName     string        `conf:"default:miner1"`
			RewardAddress string        `conf:"help:overrides the address of the miner key file"`
			DBPath        string        `conf:"default:zblock/miner1/"`
			GenesisPath   string        `conf:"default:zblock/genesis.json"`
			KnownPeers    []string      `conf:"default:http://localhost:9180"`
			AutoMine      bool          `conf:"default:true"`
			SyncInterval  time.Duration `conf:"default:1m"`
			PeerTimeout   time.Duration `conf:"default:5s"`
		}
		NameService struct {
			Folder string `conf:"default:zblock/accounts/"`
		}
		Kafka struct {
			Brokers      []string      `conf:"help:publishing is disabled without brokers"`
			Topic        string        `conf:"default:ledger-events"`
			BatchSize    int           `conf:"default:100"`
			BatchTimeout time.Duration `conf:"default:500ms"`
		}
	}{
		Version: conf.Version{
			Build: build,
			Desc:  "permissioned proof of work ledger node",
		},
	}

	const prefix = "NODE"
	help, err := conf.Parse(prefix, &cfg)
	if err != nil {
		if errors.Is(err, conf.ErrHelpWanted) {
			fmt.Println(help)
			return nil
		}
		return fmt.Errorf("parsing config: %w", err)
	}

	// =========================================================================
	// App Starting

	log.Infow("starting service", "version", build)
	defer log.Infow("shutdown complete")

	out, err := conf.String(&cfg)
	if err != nil {
		return fmt.Errorf("generating config for output: %w", err)
	}
	log.Infow("startup", "config", out)

	// =========================================================================
	// Name Service Support

	// The nameservice package provides name resolution for addresses. The
	// names come from the key files in the accounts folder.
	ns, err := nameservice.New(cfg.NameService.Folder)
	if err != nil {
		return fmt.Errorf("unable to load account name service: %w", err)
	}

	for address, name := range ns.Copy() {
		log.Infow("startup", "status", "nameservice", "name", name, "address", address)
	}

	// =========================================================================
	// Blockchain Support

	// The miner is credited with rewards and fees at the address of its key
	// file unless an address is configured.
	rewardAddress := cfg.State.RewardAddress
	if rewardAddress == "" {
		path := filepath.Join(cfg.NameService.Folder, cfg.State.MinerName+".ecdsa")
		privateKey, err := crypto.LoadECDSA(path)
		if err != nil {
			return fmt.Errorf("unable to load private key for node: %w", err)
		}
		rewardAddress = signature.PublicKey(privateKey)
	}

	gen, err := genesis.Load(cfg.State.GenesisPath)
	if err != nil {
		return fmt.Errorf("unable to load genesis: %w", err)
	}

	store, err := disk.New(cfg.State.DBPath)
	if err != nil {
		return fmt.Errorf("unable to open store: %w", err)
	}

	// The blockchain packages accept a function of this signature to allow the
	// application to log. Messages meant for the viewer are also sent to any
	// websocket client that is connected through the events package.
	evts := events.New()
	ev := func(v string, args ...any) {
		s := fmt.Sprintf(v, args...)
		log.Infow(s, "traceid", "00000000-0000-0000-0000-000000000000")
		if strings.HasPrefix(s, "viewer:") {
			evts.Send(s)
		}
	}

	// The state value represents the ledger and manages the chain, the
	// pending pool and the store.
	st, err := state.New(state.Config{
		Genesis:   gen,
		Store:     store,
		EvHandler: ev,
	})
	if err != nil {
		return err
	}
	defer st.Shutdown()

	// The projections keep the confirmed balances and records up to date as
	// blocks are accepted.
	sheet := balance.NewSheet(st.Blocks())
	st.Register(sheet)

	idx := records.New(st.Blocks())
	st.Register(idx)

	if len(cfg.Kafka.Brokers) > 0 {
		pub, err := publisher.New(publisher.Config{
			Brokers:      cfg.Kafka.Brokers,
			Topic:        cfg.Kafka.Topic,
			BatchSize:    cfg.Kafka.BatchSize,
			BatchTimeout: cfg.Kafka.BatchTimeout,
			Log:          log,
		})
		if err != nil {
			return fmt.Errorf("unable to start publisher: %w", err)
		}
		defer pub.Shutdown()

		st.Register(pub)
	}

	knownPeers := make([]peer.Peer, len(cfg.State.KnownPeers))
	for i, host := range cfg.State.KnownPeers {
		knownPeers[i] = peer.New(host)
	}

	// The worker package implements the different workflows such as mining,
	// transaction peer sharing, and peer updates. The worker will register
	// itself with the state.
	wrk, err := worker.Run(worker.Config{
		State:         st,
		Self:          peer.New(cfg.Web.PrivateURL),
		KnownPeers:    knownPeers,
		Transport:     peer.NewClient(cfg.State.PeerTimeout),
		RewardAddress: rewardAddress,
		FeeAddress:    rewardAddress,
		AutoMine:      cfg.State.AutoMine,
		SyncInterval:  cfg.State.SyncInterval,
		PeerTimeout:   cfg.State.PeerTimeout,
		EvHandler:     ev,
	})
	if err != nil {
		return err
	}
	defer wrk.Shutdown()

	// =========================================================================
	// Start Debug Service

	log.Infow("startup", "status", "debug v1 router started", "host", cfg.Web.DebugHost)

	debugMux := handlers.DebugMux(build, log, st)

	// Start the service listening for debug requests.
	// Not concerned with shutting this down with load shedding.
	go func() {
		if err := http.ListenAndServe(cfg.Web.DebugHost, debugMux); err != nil {
			log.Errorw("shutdown", "status", "debug v1 router closed", "host", cfg.Web.DebugHost, "ERROR", err)
		}
	}()

	// =========================================================================
	// Service Start/Stop Support

	// Make a channel to listen for an interrupt or terminate signal from the OS.
	// Use a buffered channel because the signal package requires it.
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	// Make a channel to listen for errors coming from the listener. Use a
	// buffered channel so the goroutine can exit if we don't collect this error.
	serverErrors := make(chan error, 1)

	muxCfg := handlers.MuxConfig{
		Shutdown: shutdown,
		Log:      log,
		State:    st,
		Worker:   wrk,
		NS:       ns,
		Balances: sheet,
		Records:  idx,
		Evts:     evts,
	}

	// =========================================================================
	// Start Public Service

	log.Infow("startup", "status", "initializing V1 public API support")

	public := http.Server{
		Addr:         cfg.Web.PublicHost,
		Handler:      handlers.PublicMux(muxCfg),
		ReadTimeout:  cfg.Web.ReadTimeout,
		WriteTimeout: cfg.Web.WriteTimeout,
		IdleTimeout:  cfg.Web.IdleTimeout,
		ErrorLog:     zap.NewStdLog(log.Desugar()),
	}

	go func() {
		log.Infow("startup", "status", "public api router started", "host", public.Addr)
		serverErrors <- public.ListenAndServe()
	}()

	// =========================================================================
	// Start Private Service

	log.Infow("startup", "status", "initializing V1 private API support")

	private := http.Server{
		Addr:         cfg.Web.PrivateHost,
		Handler:      handlers.PrivateMux(muxCfg),
		ReadTimeout:  cfg.Web.ReadTimeout,
		WriteTimeout: cfg.Web.WriteTimeout,
		IdleTimeout:  cfg.Web.IdleTimeout,
		ErrorLog:     zap.NewStdLog(log.Desugar()),
	}

	go func() {
		log.Infow("startup", "status", "private api router started", "host", private.Addr)
		serverErrors <- private.ListenAndServe()
	}()

	// =========================================================================
	// Shutdown

	// Blocking main and waiting for shutdown.
	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		log.Infow("shutdown", "status", "shutdown started", "signal", sig)
		defer log.Infow("shutdown", "status", "shutdown complete", "signal", sig)

		// Release any web sockets that are currently active.
		log.Infow("shutdown", "status", "shutdown web socket channels")
		evts.Shutdown()

		// Give outstanding requests a deadline for completion.
		ctx, cancelPri := context.WithTimeout(context.Background(), cfg.Web.ShutdownTimeout)
		defer cancelPri()

		// Asking listener to shut down and shed load.
		log.Infow("shutdown", "status", "shutdown private API started")
		if err := private.Shutdown(ctx); err != nil {
			private.Close()
			return fmt.Errorf("could not stop private service gracefully: %w", err)
		}

		// Give outstanding requests a deadline for completion.
		ctx, cancelPub := context.WithTimeout(context.Background(), cfg.Web.ShutdownTimeout)
		defer cancelPub()

		// Asking listener to shut down and shed load.
		log.Infow("shutdown", "status", "shutdown public API started")
		if err := public.Shutdown(ctx); err != nil {
			public.Close()
			return fmt.Errorf("could not stop public service gracefully: %w", err)
		}
	}

	return nil
}
