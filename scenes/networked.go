package scenes

import (
	"context"
	"fmt"
	"image/color"
	"sync"

	"github.com/automoto/convoy-mp/components"
	"github.com/automoto/convoy-mp/config"
	"github.com/automoto/convoy-mp/fonts"
	"github.com/automoto/convoy-mp/network"
	"github.com/automoto/convoy-mp/session"
	"github.com/automoto/convoy-mp/shared/gamemath"
	"github.com/automoto/convoy-mp/shared/leveldata"
	"github.com/automoto/convoy-mp/shared/messages"
	"github.com/automoto/convoy-mp/shared/netcomponents"
	"github.com/automoto/convoy-mp/systems"
	"github.com/automoto/convoy-mp/telemetry"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/hajimehoshi/ebiten/v2/text"
	"github.com/hajimehoshi/ebiten/v2/vector"
	"github.com/tanema/gween"
	"github.com/tanema/gween/ease"
	"github.com/yohamta/donburi"
	"go.uber.org/zap"
	"golang.org/x/image/font"
)

var (
	colorBackground = color.RGBA{R: 20, G: 22, B: 28, A: 255}
	colorSolid      = color.RGBA{R: 90, G: 90, B: 100, A: 255}
	colorLocal      = color.RGBA{R: 80, G: 220, B: 120, A: 255}
	colorRemote     = color.RGBA{R: 90, G: 160, B: 255, A: 255}
	colorVehicle    = color.RGBA{R: 230, G: 190, B: 60, A: 255}
	colorWheel      = color.RGBA{R: 40, G: 40, B: 40, A: 255}
	colorNpc        = color.RGBA{R: 240, G: 120, B: 60, A: 255}
	colorFacing     = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	colorLabel      = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	colorHUD        = color.RGBA{R: 150, G: 250, B: 150, A: 255}
)

const (
	turnRate     = 2.5 // view yaw, rad/s
	snapFlashSec = 0.4
)

// NetworkedScene hosts one Session against a live server and draws the
// presentation world top-down.
type NetworkedScene struct {
	cfg       config.Config
	link      network.Link
	session   *session.Session
	presenter *systems.WorldPresenter
	level     *leveldata.CollisionData
	logger    *zap.Logger

	keys    KeyBindings
	viewYaw float64

	samples    chan network.ClockSample // per connection; nil when not syncing
	cancelSync context.CancelFunc
	syncing    bool
	joined     bool
	once       sync.Once

	stats      session.FrameStats
	flash      *gween.Tween
	flashAlpha float32
}

func NewNetworkedScene(cfg config.Config, link network.Link, level *leveldata.CollisionData,
	logger *zap.Logger, metrics *telemetry.Metrics) *NetworkedScene {
	if logger == nil {
		logger = zap.NewNop()
	}
	presenter := systems.NewWorldPresenter(donburi.NewWorld())
	return &NetworkedScene{
		cfg:       cfg,
		link:      link,
		presenter: presenter,
		level:     level,
		logger:    logger.Named("scene"),
		keys:      DefaultKeyBindings(),
		session: session.New(cfg, session.Deps{
			Sink:      link,
			Presenter: presenter,
			Level:     level,
			Logger:    logger,
			Metrics:   metrics,
		}),
	}
}

func (ns *NetworkedScene) connect() {
	ns.link.Connect(ns.cfg.Network.Address, messages.JoinRequest{
		Version:    ns.cfg.Network.Version,
		PlayerName: ns.cfg.Network.PlayerName,
	})
}

func (ns *NetworkedScene) Update() {
	ns.once.Do(ns.connect)

	switch ns.link.State() {
	case network.StateJoinedGame:
		ns.joined = true
		if !ns.syncing {
			ns.startClockSync()
		}
	case network.StateDisconnected, network.StateError:
		if ns.joined {
			ns.logger.Info("connection lost", zap.Error(ns.link.LastError()))
			ns.stopClockSync()
			ns.session.Reset()
			ns.joined = false
		}
		if inpututil.IsKeyJustPressed(ebiten.KeyEnter) {
			ns.connect()
		}
	}

	if ns.joined {
		ns.drainClockSamples()
		ns.session.Pump(ns.link)
	}

	frameDt := 1 / float64(ebiten.TPS())
	ns.stats = ns.session.Advance(frameDt, ns.captureInput(frameDt))

	if ns.stats.Reconcile.Outcome == systems.ReconcileSnapped {
		ns.flash = gween.New(1, 0, snapFlashSec, ease.OutQuad)
	}
	if ns.flash != nil {
		alpha, done := ns.flash.Update(float32(frameDt))
		ns.flashAlpha = alpha
		if done {
			ns.flash = nil
			ns.flashAlpha = 0
		}
	}
}

func (ns *NetworkedScene) captureInput(dt float64) systems.InputSample {
	if ebiten.IsKeyPressed(ebiten.KeyQ) {
		ns.viewYaw += turnRate * dt
	}
	if ebiten.IsKeyPressed(ebiten.KeyE) {
		ns.viewYaw -= turnRate * dt
	}
	view := gamemath.YawQuat(ns.viewYaw)
	pos, _ := ns.session.Player().Body().Pose()
	return systems.InputSample{
		Actions: ns.keys.Capture(ebiten.IsKeyPressed),
		View:    view,
		ViewPos: pos.Add(gamemath.Up.Mul(1.6)),
	}
}

func (ns *NetworkedScene) startClockSync() {
	ctx, cancel := context.WithCancel(context.Background())
	samples := make(chan network.ClockSample, ns.cfg.Network.SyncSamples+1)
	ns.cancelSync = cancel
	ns.samples = samples
	ns.syncing = true
	clock := ns.session.Clock()
	go func() {
		err := network.RunClockSync(ctx, ns.link, clock.LocalNow, ns.cfg.Network.SyncSamples,
			ns.cfg.Network.SyncSpacing, samples, ns.logger)
		if err != nil && ctx.Err() == nil {
			ns.logger.Warn("clock sync stopped", zap.Error(err))
		}
	}()
}

func (ns *NetworkedScene) stopClockSync() {
	if ns.cancelSync != nil {
		ns.cancelSync()
		ns.cancelSync = nil
	}
	ns.samples = nil
	ns.syncing = false
}

func (ns *NetworkedScene) drainClockSamples() {
	for {
		select {
		case sample := <-ns.samples:
			ns.session.ApplyClockSample(sample)
		default:
			return
		}
	}
}

// Close stops background work and drops the connection.
func (ns *NetworkedScene) Close() {
	ns.stopClockSync()
	ns.link.Disconnect()
}

func (ns *NetworkedScene) Draw(screen *ebiten.Image) {
	screen.Fill(colorBackground)

	w, h := screen.Bounds().Dx(), screen.Bounds().Dy()
	cam := ns.cameraFocus()
	zoom := ns.cfg.Window.Zoom
	toScreen := func(p mgl64.Vec3) (float32, float32) {
		return float32((p[0]-cam[0])*zoom + float64(w)/2), float32((p[2]-cam[2])*zoom + float64(h)/2)
	}

	if ns.level != nil {
		ppu := ns.cfg.Physics.PixelsPerUnit
		for _, r := range ns.level.SolidRects {
			x, y := toScreen(mgl64.Vec3{r.X / ppu, 0, r.Y / ppu})
			vector.DrawFilledRect(screen, x, y, float32(r.W/ppu*zoom), float32(r.H/ppu*zoom), colorSolid, false)
		}
	}

	ns.presenter.EachPresented(func(key components.EntityKey, pose netcomponents.Pose, local bool) {
		x, y := toScreen(pose.Position)
		switch key.Kind {
		case components.KindVehicle:
			ns.drawVehicle(screen, key.ID, pose, toScreen)
		case components.KindNpc:
			drawMarker(screen, x, y, float32(0.4*zoom), colorNpc)
		default:
			c := colorRemote
			if local {
				c = colorLocal
			}
			drawMarker(screen, x, y, float32(0.4*zoom), c)
			fx, fy := toScreen(pose.Position.Add(pose.View.Rotate(mgl64.Vec3{0, 0, -0.8})))
			vector.StrokeLine(screen, x, y, fx, fy, 2, colorFacing, false)
			if seat, ok := ns.presenter.Occupancy(key.ID); ok && seat.Nickname != "" {
				face := fonts.Small.Get()
				labelX := int(x) - font.MeasureString(face, seat.Nickname).Round()/2
				text.Draw(screen, seat.Nickname, face, labelX, int(y)-int(0.6*zoom)-4, colorLabel)
			}
		}
	})

	if ns.flashAlpha > 0 {
		vector.DrawFilledRect(screen, 0, 0, float32(w), float32(h), color.RGBA{R: 200, A: uint8(80 * ns.flashAlpha)}, false)
	}
	ns.drawHUD(screen)
}

func (ns *NetworkedScene) drawVehicle(screen *ebiten.Image, id string, pose netcomponents.Pose,
	toScreen func(mgl64.Vec3) (float32, float32)) {
	v := ns.cfg.Vehicle
	corners := []mgl64.Vec3{
		{-v.HalfWidth, 0, -v.HalfLength},
		{v.HalfWidth, 0, -v.HalfLength},
		{v.HalfWidth, 0, v.HalfLength},
		{-v.HalfWidth, 0, v.HalfLength},
	}
	for i := range corners {
		x0, y0 := toScreen(pose.Position.Add(pose.Orientation.Rotate(corners[i])))
		x1, y1 := toScreen(pose.Position.Add(pose.Orientation.Rotate(corners[(i+1)%len(corners)])))
		vector.StrokeLine(screen, x0, y0, x1, y1, 2, colorVehicle, false)
	}

	if wheels, ok := ns.presenter.Wheels(id); ok {
		for _, wheel := range wheels {
			x, y := toScreen(wheel.Position)
			drawMarker(screen, x, y, float32(v.WheelRadius*ns.cfg.Window.Zoom), colorWheel)
		}
	}
}

func (ns *NetworkedScene) drawHUD(screen *ebiten.Image) {
	clock := ns.session.Clock()
	lines := []string{
		fmt.Sprintf("%s  id=%s  mode=%s", ns.link.State(), ns.session.LocalID(), ns.session.Mode()),
		fmt.Sprintf("ping %.0fms  offset %.0fms  synced=%t", clock.Ping(), clock.Offset(), clock.Synced()),
		fmt.Sprintf("history %d/%d  pending %d/%d  ticks %d",
			ns.session.History().Len(), ns.session.History().Capacity(),
			len(ns.session.Player().Pending()), len(ns.session.Vehicle().Pending()), ns.stats.Ticks),
		fmt.Sprintf("last reconcile %s err=%.3f  interp t=%.2f skipped=%t",
			ns.stats.Reconcile.Outcome, ns.stats.Reconcile.Error, ns.stats.Interp.T, ns.stats.Interp.Skipped),
	}
	if err := ns.link.LastError(); err != nil {
		lines = append(lines, "error: "+err.Error()+"  (enter to reconnect)")
	}
	face := fonts.Regular.Get()
	for i, l := range lines {
		text.Draw(screen, l, face, 4, 14+i*15, colorHUD)
	}
}

// cameraFocus follows the local player, or the driven vehicle.
func (ns *NetworkedScene) cameraFocus() mgl64.Vec3 {
	if ns.session.Vehicle().Active() {
		pos, _ := ns.session.Vehicle().Body().Pose()
		return pos
	}
	pos, _ := ns.session.Player().Body().Pose()
	return pos
}

func drawMarker(screen *ebiten.Image, x, y, half float32, c color.Color) {
	vector.DrawFilledRect(screen, x-half, y-half, 2*half, 2*half, c, false)
}

// Layout keeps a fixed logical size.
func (ns *NetworkedScene) Layout(int, int) (int, int) {
	return ns.cfg.Window.Width, ns.cfg.Window.Height
}
