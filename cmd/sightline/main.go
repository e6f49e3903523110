package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/l1jgo/sightline/internal/config"
	"github.com/l1jgo/sightline/internal/core/event"
	coresys "github.com/l1jgo/sightline/internal/core/system"
	"github.com/l1jgo/sightline/internal/data"
	"github.com/l1jgo/sightline/internal/fov"
	"github.com/l1jgo/sightline/internal/persist"
	"github.com/l1jgo/sightline/internal/scripting"
	"github.com/l1jgo/sightline/internal/system"
	"github.com/l1jgo/sightline/internal/world"
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

func printBanner(name string) {
	fmt.Println()
	fmt.Println("\033[36;1m  ┌───────────────────────────────────────────┐\033[0m")
	fmt.Println("\033[36;1m  │\033[0m          sightline  v0.1.0                \033[36;1m│\033[0m")
	fmt.Println("\033[36;1m  │\033[0m     shadowcasting field-of-view host      \033[36;1m│\033[0m")
	fmt.Println("\033[36;1m  └───────────────────────────────────────────┘\033[0m")
	fmt.Println()
	fmt.Printf("  \033[1mserver:\033[0m %s\n\n", name)
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

// ── Main loop ─────────────────────────────────────────────────────

func run() error {
	// 1. Load config
	cfgPath := "config/sightline.toml"
	if p := os.Getenv("SIGHTLINE_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.Load(cfgPath)
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

	// 3. Tile rules
	var classifier data.Classifier
	if cfg.Scripting.Dir != "" {
		engine, err := scripting.NewEngine(cfg.Scripting.Dir, log)
		if err != nil {
			return fmt.Errorf("scripting: %w", err)
		}
		defer engine.Close()
		if engine.HasClassifier() {
			classifier = engine
		}
	}

	// 4. Map data
	printSection("maps")
	maps, err := data.LoadMapData(cfg.Maps.ListPath, cfg.Maps.TileDir, data.LoadOptions{
		Charset:    cfg.Maps.Charset,
		Classifier: classifier,
		Log:        log,
	})
	if err != nil {
		return fmt.Errorf("load map data: %w", err)
	}
	printStat("tile maps", maps.Count())

	// 5. Optional snapshot store
	if cfg.Database.Enabled {
		if err := syncSnapshots(cfg.Database, maps, log); err != nil {
			return fmt.Errorf("database: %w", err)
		}
	}
	fmt.Println()

	// 6. World state
	printSection("world")
	ws := world.NewState()
	for _, id := range maps.IDs() {
		ws.SetGrid(id, maps.Grid(id))
	}
	for _, oc := range cfg.Observers {
		o := &world.Observer{
			Name:       oc.Name,
			MapID:      oc.MapID,
			X:          oc.X,
			Y:          oc.Y,
			Sight:      cfg.SightFor(oc),
			Omniscient: oc.Omniscient,
		}
		for _, wp := range oc.Patrol {
			o.Patrol = append(o.Patrol, fov.TileCoord{X: wp[0], Y: wp[1]})
		}
		if _, err := ws.AddObserver(o); err != nil {
			return fmt.Errorf("spawn observer: %w", err)
		}
	}
	printStat("observers", ws.ObserverCount())
	fmt.Println()

	// 7. Systems
	bus := event.NewBus()
	subscribeLogging(bus, ws, log)

	visOpts := system.VisibilityOptions{
		Interval:   cfg.Server.VisibilityInterval,
		Omniscient: cfg.Visibility.Omniscient,
		Parallel:   cfg.Visibility.Parallel,
	}
	runner := coresys.NewRunner()
	runner.Register(system.NewEventDispatchSystem(bus))
	runner.Register(system.NewMovementSystem(ws, bus, log))
	visSys := system.NewVisibilitySystem(ws, bus, visOpts, log)
	runner.Register(visSys)

	// Initial view before the first tick.
	visSys.RefreshAll()

	// 8. Game loop
	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(cfg.Server.TickRate)
	defer ticker.Stop()

	printSection("ready")
	printReady(fmt.Sprintf("game loop started (tick: %s)", cfg.Server.TickRate))
	fmt.Println()

	ticks := 0
	for {
		select {
		case <-ticker.C:
			runner.Tick(cfg.Server.TickRate)
			ticks++
		case sig := <-shutdownCh:
			log.Info("shutdown signal received",
				zap.String("signal", sig.String()),
				zap.Duration("uptime", cfg.Server.Uptime(time.Now())),
				zap.Int("ticks", ticks))
			ws.AllObservers(func(o *world.Observer) {
				log.Info("final view",
					zap.String("observer", o.Name),
					zap.Stringer("at", o.Pos()),
					zap.Int("visible", o.Known.Len()))
			})
			return nil
		}
	}
}

// syncSnapshots stores changed file maps in the database, then reloads every
// stored snapshot so maps that only exist in the database are served too.
func syncSnapshots(cfg config.DatabaseConfig, maps *data.MapDataTable, log *zap.Logger) error {
	printSection("database")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := persist.NewDB(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer db.Close()
	printOK("PostgreSQL connected")

	version, err := persist.RunMigrations(ctx, db.Pool, log)
	if err != nil {
		return err
	}
	printOK(fmt.Sprintf("migrations applied (version %d)", version))

	repo := persist.NewGridRepo(db)
	updated := 0
	for _, id := range maps.IDs() {
		changed, err := repo.Save(ctx, id, maps.GetInfo(id).Name, maps.Grid(id))
		if err != nil {
			return err
		}
		if changed {
			updated++
		}
	}
	printStat("snapshots updated", updated)

	rows, err := repo.LoadAll(ctx)
	if err != nil {
		return fmt.Errorf("load snapshots: %w", err)
	}
	for _, row := range rows {
		g, err := row.Grid()
		if err != nil {
			log.Warn("skipping corrupt snapshot", zap.Int16("map_id", row.MapID), zap.Error(err))
			continue
		}
		info := data.MapInfo{MapID: row.MapID, Name: row.Name, Width: row.Width, Height: row.Height}
		if existing := maps.GetInfo(row.MapID); existing != nil {
			info = *existing
		}
		maps.Put(info, g)
	}
	printStat("snapshots loaded", len(rows))
	return nil
}

func subscribeLogging(bus *event.Bus, ws *world.State, log *zap.Logger) {
	name := func(id uint64) string {
		if o := ws.Observer(id); o != nil {
			return o.Name
		}
		return "?"
	}
	event.Subscribe(bus, func(ev event.TileRevealed) {
		log.Debug("tiles revealed", zap.String("observer", name(ev.ObserverID)), zap.Int("count", len(ev.Tiles)))
	})
	event.Subscribe(bus, func(ev event.TileConcealed) {
		log.Debug("tiles concealed", zap.String("observer", name(ev.ObserverID)), zap.Int("count", len(ev.Tiles)))
	})
	event.Subscribe(bus, func(ev event.ObserverMoved) {
		log.Debug("observer moved", zap.String("observer", name(ev.ObserverID)),
			zap.Stringer("from", ev.From), zap.Stringer("to", ev.To))
	})
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
