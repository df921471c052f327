package main

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/dicebrawl/server/internal/config"
	"github.com/dicebrawl/server/internal/data"
	"github.com/dicebrawl/server/internal/engine"
	gonet "github.com/dicebrawl/server/internal/net"
	"github.com/dicebrawl/server/internal/persist"
	"github.com/dicebrawl/server/internal/scripting"
	"github.com/dicebrawl/server/internal/session"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// ── Startup display helpers ────────────────────────────────────────

func printBanner(serverName string) {
	fmt.Println()
	fmt.Println("\033[36;1m  ┌───────────────────────────────────────────┐\033[0m")
	fmt.Println("\033[36;1m  │\033[0m              dicebrawl  v0.1.0            \033[36;1m│\033[0m")
	fmt.Println("\033[36;1m  │\033[0m       turn-based dice combat server       \033[36;1m│\033[0m")
	fmt.Println("\033[36;1m  └───────────────────────────────────────────┘\033[0m")
	fmt.Println()
	fmt.Printf("  \033[1mserver:\033[0m %s\n\n", serverName)
}

func printSection(title string) {
	lineLen := 46 - len(title) - 1
	if lineLen < 3 {
		lineLen = 3
	}
	fmt.Printf("  \033[33m── %s %s\033[0m\n", title, strings.Repeat("─", lineLen))
}

func printStat(label string, count int) {
	numStr := fmt.Sprintf("%d", count)
	dotsLen := 42 - len(label) - len(numStr)
	if dotsLen < 3 {
		dotsLen = 3
	}
	fmt.Printf("  %s \033[90m%s\033[0m \033[32m%s\033[0m\n", label, strings.Repeat("·", dotsLen), numStr)
}

func printOK(msg string) {
	fmt.Printf("  \033[32m✓\033[0m %s\n", msg)
}

func printReady(msg string) {
	fmt.Printf("  \033[32m▶\033[0m %s\n", msg)
}

// ── Main server logic ─────────────────────────────────────────────

func run() error {
	// 1. Load config
	cfg, err := config.Load(config.Path())
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// 2. Init logger
	log, err := newLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	printBanner(cfg.Server.Name)

	// 3. Roster
	printSection("Roster")
	roster := data.DefaultRoster()
	if cfg.Engine.RosterFile != "" {
		roster, err = data.LoadRoster(cfg.Engine.RosterFile)
		if err != nil {
			return fmt.Errorf("roster: %w", err)
		}
		printOK(fmt.Sprintf("loaded %s", cfg.Engine.RosterFile))
	}
	printStat("combatants", len(roster))
	fmt.Println()

	// 4. Damage scripts
	opts := engine.Options{
		MaxIterations: cfg.Engine.MaxIterations,
		LogCapacity:   cfg.Engine.LogCapacity,
	}
	if cfg.Scripting.Enabled {
		printSection("Scripting")
		lua, err := scripting.NewEngine(cfg.Scripting.Dir, log)
		if err != nil {
			return fmt.Errorf("scripting: %w", err)
		}
		defer lua.Close()
		opts.Damage = engine.ScriptedDamage(lua)
		printOK(fmt.Sprintf("Lua damage formulas from %s", cfg.Scripting.Dir))
		fmt.Println()
	}

	// 5. Combat journal (optional)
	var journal session.Journal
	if cfg.Database.DSN != "" {
		printSection("Journal")
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		db, err := persist.NewDB(ctx, cfg.Database, log)
		cancel()
		if err != nil {
			return fmt.Errorf("database: %w", err)
		}
		defer db.Close()
		journal = persist.NewJournalRepo(db, fmt.Sprintf("%s-%d", cfg.Server.Name, cfg.Server.StartTime))
		printOK("PostgreSQL connected, migrations applied")
		fmt.Println()
	}

	// 6. Engine
	seed := cfg.Engine.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	eng, err := engine.New(roster, rand.New(rand.NewSource(seed)), opts, log.Named("engine"))
	if err != nil {
		return fmt.Errorf("engine: %w", err)
	}
	if err := eng.Stabilize(); err != nil {
		return fmt.Errorf("engine: %w", err)
	}
	coord := session.New(eng, journal, log.Named("session"))

	// 7. Start network server
	netServer, err := gonet.NewServer(cfg.Network.BindAddress, gonet.Options{
		WSPath:         cfg.Network.WSPath,
		OutQueueSize:   cfg.Network.OutQueueSize,
		WriteTimeout:   cfg.Network.WriteTimeout,
		ReadTimeout:    cfg.Network.ReadTimeout,
		MaxMessageSize: cfg.Network.MaxMessageSize,
	}, coord, log.Named("net"))
	if err != nil {
		return fmt.Errorf("network: %w", err)
	}
	serveErr := make(chan error, 1)
	go func() { serveErr <- netServer.Serve() }()

	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	printSection("Ready")
	printReady(fmt.Sprintf("listening on ws://%s%s", netServer.Addr().String(), cfg.Network.WSPath))
	printReady(fmt.Sprintf("rng seed %d", seed))
	fmt.Println()

	var result error
	select {
	case sig := <-shutdownCh:
		log.Info("shutdown signal received", zap.String("signal", sig.String()))
	case err := <-coord.Failed():
		result = fmt.Errorf("combat halted: %w", err)
	case err := <-serveErr:
		if err != nil {
			result = fmt.Errorf("serve: %w", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := netServer.Shutdown(ctx); err != nil {
		log.Warn("shutdown", zap.Error(err))
	}
	coord.Close()
	log.Info("server stopped")
	return result
}

func newLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zapCfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
		zapCfg.EncoderConfig.ConsoleSeparator = "  "
		zapCfg.DisableCaller = true
		zapCfg.DisableStacktrace = true
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}
