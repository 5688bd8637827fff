package config

import "time"

// Config is the full client configuration. Default returns the tuned values;
// Load overlays a file and CONVOY_* environment variables.
type Config struct {
	Network    NetworkConfig
	Simulation SimulationConfig
	Player     PlayerConfig
	Vehicle    VehicleConfig
	Interp     InterpConfig
	Physics    PhysicsConfig
	Log        LogConfig
	Window     WindowConfig
}

// NetworkConfig contains connection and time-sync settings
type NetworkConfig struct {
	Address    string
	Transport  string // "ws", "tcp" or "kcp"
	PlayerName string
	Version    string

	// Time sync burst at connection start
	SyncSamples int
	SyncSpacing time.Duration
	SyncTimeout time.Duration

	HistoryCapacity int
	ServerTickRate  int // used until the server announces its own
}

// SimulationConfig contains the fixed-step settings
type SimulationConfig struct {
	TickRate         int
	MaxTicksPerFrame int // catch-up cap after a long frame
}

// CorrectionConfig tunes reconciliation for one kind of entity.
// Distances are in world units, ping in milliseconds.
type CorrectionConfig struct {
	SnapThreshold     float64
	DeadZoneBase      float64
	DeadZonePerPingMs float64
	MaxCorrection     float64 // per reconciliation
	MovingSpeed       float64 // horizontal speed above which the factor is halved

	BaseFactor   float64
	FactorPingMs float64 // pings at or below this get BaseFactor
	MinFactor    float64
	MovingScale  float64
}

// PlayerConfig contains player movement configuration values
type PlayerConfig struct {
	// Movement
	WalkSpeed   float64
	SprintSpeed float64
	AimSpeed    float64
	JumpSpeed   float64
	Gravity     float64

	// Jump timing, measured in simulation time
	CoyoteTime   time.Duration
	JumpCooldown time.Duration

	// Dimensions
	Radius float64

	Correction CorrectionConfig
}

// VehicleConfig contains vehicle handling and geometry
type VehicleConfig struct {
	MaxSpeed       float64
	ReverseSpeed   float64
	Acceleration   float64
	BrakeDecel     float64
	RollingDrag    float64 // speed lost per second with no throttle
	BrakeThreshold float64 // forward speed above which back brakes instead of reversing

	// Ackermann geometry
	Wheelbase   float64
	Track       float64
	TurnRadius  float64
	SteerRate   float64 // rad/s
	WheelRadius float64
	HalfLength  float64
	HalfWidth   float64

	Correction CorrectionConfig
}

// InterpConfig controls the remote interpolation delay
type InterpConfig struct {
	MinDelayMs     float64
	TickMultiplier float64
	PingFactor     float64
}

// PhysicsConfig contains the collision world settings
type PhysicsConfig struct {
	PixelsPerUnit float64
	LevelsDir     string
	Level         string
}

// LogConfig contains logger settings
type LogConfig struct {
	Level       string
	File        string // empty disables the rolling file
	MaxSizeMB   int
	MaxBackups  int
	MaxAgeDays  int
	Development bool
}

// WindowConfig contains debug viewer settings
type WindowConfig struct {
	Width  int
	Height int
	Zoom   float64 // screen pixels per world unit
}

// Default returns the tuned configuration.
func Default() Config {
	return Config{
		Network: NetworkConfig{
			Address:         "localhost:8080",
			Transport:       "ws",
			PlayerName:      "driver",
			Version:         "0.1.0",
			SyncSamples:     5,
			SyncSpacing:     200 * time.Millisecond,
			SyncTimeout:     2 * time.Second,
			HistoryCapacity: 50,
			ServerTickRate:  30,
		},
		Simulation: SimulationConfig{
			TickRate:         60,
			MaxTicksPerFrame: 5,
		},
		Player: PlayerConfig{
			WalkSpeed:    4,
			SprintSpeed:  7,
			AimSpeed:     2.5,
			JumpSpeed:    5,
			Gravity:      20,
			CoyoteTime:   100 * time.Millisecond,
			JumpCooldown: 200 * time.Millisecond,
			Radius:       0.4,
			Correction: CorrectionConfig{
				SnapThreshold:     5,
				DeadZoneBase:      0.05,
				DeadZonePerPingMs: 0.002,
				MaxCorrection:     0.5,
				MovingSpeed:       0.1,
				BaseFactor:        0.1,
				FactorPingMs:      50,
				MinFactor:         0.02,
				MovingScale:       0.5,
			},
		},
		Vehicle: VehicleConfig{
			MaxSpeed:       20,
			ReverseSpeed:   5,
			Acceleration:   8,
			BrakeDecel:     16,
			RollingDrag:    2,
			BrakeThreshold: 1,
			Wheelbase:      2.6,
			Track:          1.6,
			TurnRadius:     6,
			SteerRate:      2.5,
			WheelRadius:    0.35,
			HalfLength:     2.2,
			HalfWidth:      1,
			Correction: CorrectionConfig{
				SnapThreshold:     8,
				DeadZoneBase:      0.1,
				DeadZonePerPingMs: 0.002,
				MaxCorrection:     1,
				MovingSpeed:       0.5,
				BaseFactor:        0.1,
				FactorPingMs:      50,
				MinFactor:         0.02,
				MovingScale:       0.5,
			},
		},
		Interp: InterpConfig{
			MinDelayMs:     100,
			TickMultiplier: 2,
			PingFactor:     0.5,
		},
		Physics: PhysicsConfig{
			PixelsPerUnit: 16,
			LevelsDir:     "levels",
			Level:         "yard",
		},
		Log: LogConfig{
			Level:      "info",
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 7,
		},
		Window: WindowConfig{
			Width:  1280,
			Height: 720,
			Zoom:   16,
		},
	}
}

// TickDt is the fixed simulation step in seconds.
func (s SimulationConfig) TickDt() float64 {
	if s.TickRate <= 0 {
		return 1.0 / 60
	}
	return 1 / float64(s.TickRate)
}
