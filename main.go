package main

import (
	"flag"
	"image"
	"log"

	"github.com/automoto/convoy-mp/assets"
	"github.com/automoto/convoy-mp/config"
	"github.com/automoto/convoy-mp/fonts"
	"github.com/automoto/convoy-mp/logging"
	"github.com/automoto/convoy-mp/network"
	"github.com/automoto/convoy-mp/scenes"
	"github.com/automoto/convoy-mp/telemetry"
	"github.com/hajimehoshi/ebiten/v2"
	"go.uber.org/zap"
)

type Scene interface {
	Update()
	Draw(screen *ebiten.Image)
}

type Game struct {
	cfg    config.Config
	bounds image.Rectangle
	scene  Scene
}

// ChangeScene switches to a new scene
func (g *Game) ChangeScene(scene Scene) {
	g.scene = scene
}

func (g *Game) Update() error {
	g.scene.Update()
	return nil
}

func (g *Game) Draw(screen *ebiten.Image) {
	g.scene.Draw(screen)
}

func (g *Game) Layout(width, height int) (int, int) {
	g.bounds = image.Rect(0, 0, g.cfg.Window.Width, g.cfg.Window.Height)
	return g.cfg.Window.Width, g.cfg.Window.Height
}

func main() {
	configPath := flag.String("config", "", "path to a config file")
	address := flag.String("addr", "", "server address, overrides saved settings")
	name := flag.String("name", "", "player name, overrides saved settings")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	store, err := config.OpenSettingsStore("convoy-mp")
	if err != nil {
		log.Printf("Warning: Could not initialize persistence: %v", err)
	} else if saved, err := store.Load(); err != nil {
		log.Printf("Warning: Could not load settings: %v", err)
	} else {
		saved.Apply(&cfg)
	}
	if *address != "" {
		cfg.Network.Address = *address
	}
	if *name != "" {
		cfg.Network.PlayerName = *name
	}

	logger, flush, err := logging.New(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer flush()

	metrics, err := telemetry.New()
	if err != nil {
		logger.Fatal("metrics", zap.Error(err))
	}

	if err := fonts.LoadDefaults(); err != nil {
		logger.Fatal("load fonts", zap.Error(err))
	}

	level, err := assets.LoadLevel(cfg.Physics.LevelsDir, cfg.Physics.Level)
	if err != nil {
		logger.Fatal("load level", zap.String("level", cfg.Physics.Level), zap.Error(err))
	}

	link, err := network.NewLink(cfg.Network.Transport, logger, cfg.Network.SyncTimeout)
	if err != nil {
		logger.Fatal("network link", zap.Error(err))
	}

	scene := scenes.NewNetworkedScene(cfg, link, level, logger, metrics)
	defer scene.Close()

	g := &Game{cfg: cfg}
	g.ChangeScene(scene)

	ebiten.SetWindowSize(cfg.Window.Width, cfg.Window.Height)
	ebiten.SetWindowTitle("convoy-mp")
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeOnlyFullscreenEnabled)
	ebiten.SetTPS(cfg.Simulation.TickRate)

	logger.Info("starting",
		zap.String("address", cfg.Network.Address),
		zap.String("transport", cfg.Network.Transport),
		zap.String("level", cfg.Physics.Level))

	if err := ebiten.RunGame(g); err != nil {
		logger.Error("game loop", zap.Error(err))
	}

	if store != nil {
		if err := store.Save(config.Saved(cfg)); err != nil {
			logger.Warn("save settings", zap.Error(err))
		}
	}
}
