// Package config holds the read-mostly settings snapshot and the admin
// mutation queue shared by the celestial simulator, the AOI partitioner,
// and the tick scheduler.
package config

import (
	"errors"
	"sync/atomic"
)

// LogLevel mirrors the enumerated log_level setting.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// Settings is the full enumerated configuration surface, plus VMax: the
// per-entity speed bound apply_client_update needs but which has no
// natural home elsewhere.
type Settings struct {
	MaxPlayers               int
	UDPPort                  int
	TickHz                   float64
	UpdateHz                 float64
	AOIRadiusDefault         float64
	AOICapacityDefault       int
	SanitySamplePeriod       int // sample 1/N entities per tick
	ReliableResendIntervalMs int
	MaxReliableResends       int
	HeartbeatIntervalMs      int
	DisconnectTimeoutMs      int
	SimSpeed                 float64
	BinaryCompression        bool
	BinaryEncryption         bool
	LogLevel                 LogLevel
	VMax                     float64
}

// Default returns the configuration baseline, scaled to the tick_hz a
// real-time MMO loop needs rather than a slow colony-sim cadence.
func Default() Settings {
	return Settings{
		MaxPlayers:               2000,
		UDPPort:                  7777,
		TickHz:                   20,
		UpdateHz:                 20,
		AOIRadiusDefault:         50000,
		AOICapacityDefault:       200,
		SanitySamplePeriod:       20,
		ReliableResendIntervalMs: 250,
		MaxReliableResends:       8,
		HeartbeatIntervalMs:      3000,
		DisconnectTimeoutMs:      9000,
		SimSpeed:                 1.0,
		BinaryCompression:        false,
		BinaryEncryption:         false,
		LogLevel:                 LogInfo,
		VMax:                     12000,
	}
}

// ErrConfigError wraps any rejected admin mutation.
var ErrConfigError = errors.New("config: invalid settings")

func (s Settings) Validate() error {
	if s.TickHz <= 0 || s.TickHz > 240 {
		return errors.Join(ErrConfigError, errors.New("tick_hz out of range"))
	}
	if s.UpdateHz <= 0 || s.UpdateHz > s.TickHz {
		return errors.Join(ErrConfigError, errors.New("update_hz must be in (0, tick_hz]"))
	}
	if s.MaxPlayers <= 0 {
		return errors.Join(ErrConfigError, errors.New("max_players must be positive"))
	}
	if s.AOIRadiusDefault <= 0 || s.AOICapacityDefault <= 0 {
		return errors.Join(ErrConfigError, errors.New("aoi defaults must be positive"))
	}
	if s.SanitySamplePeriod <= 0 {
		return errors.Join(ErrConfigError, errors.New("sanity_sample_period must be positive"))
	}
	if s.SimSpeed < 0 {
		return errors.Join(ErrConfigError, errors.New("sim_speed must be >= 0"))
	}
	if s.VMax <= 0 {
		return errors.Join(ErrConfigError, errors.New("v_max must be positive"))
	}
	switch s.LogLevel {
	case LogDebug, LogInfo, LogWarn, LogError:
	default:
		return errors.Join(ErrConfigError, errors.New("unknown log_level"))
	}
	return nil
}

// Store holds the live settings as a lock-free, read-mostly snapshot
//. Mutation goes only through Set, invoked from the admin
// mutation queue at a tick boundary.
type Store struct {
	v atomic.Pointer[Settings]
}

func NewStore(initial Settings) *Store {
	st := &Store{}
	cp := initial
	st.v.Store(&cp)
	return st
}

// Snapshot returns the currently-live settings.
func (s *Store) Snapshot() Settings { return *s.v.Load() }

// Set validates and swaps in new settings. Called only at a tick boundary
// by the scheduler when draining the admin mutation queue.
func (s *Store) Set(next Settings) error {
	if err := next.Validate(); err != nil {
		return err
	}
	cp := next
	s.v.Store(&cp)
	return nil
}
