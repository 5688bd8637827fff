package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. CONVOY_NETWORK_ADDRESS.
const EnvPrefix = "CONVOY"

// Load starts from Default, then applies the config file and environment.
// An empty path looks for convoy.{yaml,json,toml} in the working directory
// and tolerates its absence; an explicit path must exist.
func Load(path string) (Config, error) {
	v := viper.New()
	setDefaults(v, Default())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("convoy")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("error reading config file: %w", err)
		}
	}

	cfg := Default()
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper, d Config) {
	v.SetDefault("network.address", d.Network.Address)
	v.SetDefault("network.transport", d.Network.Transport)
	v.SetDefault("network.playerName", d.Network.PlayerName)
	v.SetDefault("network.version", d.Network.Version)
	v.SetDefault("network.syncSamples", d.Network.SyncSamples)
	v.SetDefault("network.syncSpacing", d.Network.SyncSpacing)
	v.SetDefault("network.syncTimeout", d.Network.SyncTimeout)
	v.SetDefault("network.historyCapacity", d.Network.HistoryCapacity)
	v.SetDefault("network.serverTickRate", d.Network.ServerTickRate)

	v.SetDefault("simulation.tickRate", d.Simulation.TickRate)
	v.SetDefault("simulation.maxTicksPerFrame", d.Simulation.MaxTicksPerFrame)

	v.SetDefault("player.walkSpeed", d.Player.WalkSpeed)
	v.SetDefault("player.sprintSpeed", d.Player.SprintSpeed)
	v.SetDefault("player.aimSpeed", d.Player.AimSpeed)
	v.SetDefault("player.jumpSpeed", d.Player.JumpSpeed)
	v.SetDefault("player.gravity", d.Player.Gravity)
	v.SetDefault("player.coyoteTime", d.Player.CoyoteTime)
	v.SetDefault("player.jumpCooldown", d.Player.JumpCooldown)
	v.SetDefault("player.radius", d.Player.Radius)
	setCorrectionDefaults(v, "player.correction", d.Player.Correction)

	v.SetDefault("vehicle.maxSpeed", d.Vehicle.MaxSpeed)
	v.SetDefault("vehicle.reverseSpeed", d.Vehicle.ReverseSpeed)
	v.SetDefault("vehicle.acceleration", d.Vehicle.Acceleration)
	v.SetDefault("vehicle.brakeDecel", d.Vehicle.BrakeDecel)
	v.SetDefault("vehicle.rollingDrag", d.Vehicle.RollingDrag)
	v.SetDefault("vehicle.brakeThreshold", d.Vehicle.BrakeThreshold)
	v.SetDefault("vehicle.wheelbase", d.Vehicle.Wheelbase)
	v.SetDefault("vehicle.track", d.Vehicle.Track)
	v.SetDefault("vehicle.turnRadius", d.Vehicle.TurnRadius)
	v.SetDefault("vehicle.steerRate", d.Vehicle.SteerRate)
	v.SetDefault("vehicle.wheelRadius", d.Vehicle.WheelRadius)
	v.SetDefault("vehicle.halfLength", d.Vehicle.HalfLength)
	v.SetDefault("vehicle.halfWidth", d.Vehicle.HalfWidth)
	setCorrectionDefaults(v, "vehicle.correction", d.Vehicle.Correction)

	v.SetDefault("interp.minDelayMs", d.Interp.MinDelayMs)
	v.SetDefault("interp.tickMultiplier", d.Interp.TickMultiplier)
	v.SetDefault("interp.pingFactor", d.Interp.PingFactor)

	v.SetDefault("physics.pixelsPerUnit", d.Physics.PixelsPerUnit)
	v.SetDefault("physics.levelsDir", d.Physics.LevelsDir)
	v.SetDefault("physics.level", d.Physics.Level)

	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.file", d.Log.File)
	v.SetDefault("log.maxSizeMB", d.Log.MaxSizeMB)
	v.SetDefault("log.maxBackups", d.Log.MaxBackups)
	v.SetDefault("log.maxAgeDays", d.Log.MaxAgeDays)
	v.SetDefault("log.development", d.Log.Development)

	v.SetDefault("window.width", d.Window.Width)
	v.SetDefault("window.height", d.Window.Height)
	v.SetDefault("window.zoom", d.Window.Zoom)
}

func setCorrectionDefaults(v *viper.Viper, prefix string, c CorrectionConfig) {
	v.SetDefault(prefix+".snapThreshold", c.SnapThreshold)
	v.SetDefault(prefix+".deadZoneBase", c.DeadZoneBase)
	v.SetDefault(prefix+".deadZonePerPingMs", c.DeadZonePerPingMs)
	v.SetDefault(prefix+".maxCorrection", c.MaxCorrection)
	v.SetDefault(prefix+".movingSpeed", c.MovingSpeed)
	v.SetDefault(prefix+".baseFactor", c.BaseFactor)
	v.SetDefault(prefix+".factorPingMs", c.FactorPingMs)
	v.SetDefault(prefix+".minFactor", c.MinFactor)
	v.SetDefault(prefix+".movingScale", c.MovingScale)
}
