// Command stellarcored is the space MMO simulation core: UDP transport,
// entity authority, celestial propagation, AOI replication, and sanity
// auditing driven by one fixed-rate tick loop, with a thin admin HTTP
// shim alongside.
package main

import (
	"encoding/json"
	"net"
	"os"
	"strconv"
	"time"

	"stellarcore/internal/adminstore"
	"stellarcore/internal/wirelog"
	"stellarcore/pkg/aoi"
	"stellarcore/pkg/celestial"
	"stellarcore/pkg/config"
	"stellarcore/pkg/entity"
	"stellarcore/pkg/mathx"
	"stellarcore/pkg/sanity"
	"stellarcore/pkg/scheduler"
	"stellarcore/pkg/transport"
)

const autoSaveIntervalTicks = 600

const protocolVersion = "1.0"

func main() {
	settings := config.Default()
	if port := os.Getenv("STELLARCORE_UDP_PORT"); port != "" {
		if n, err := strconv.Atoi(port); err == nil {
			settings.UDPPort = n
		}
	}

	log := wirelog.New(os.Stdout, settings.LogLevel)
	log.Info.Println("STELLARCORE BOOT SEQUENCE")
	log.Info.Printf("tick_hz=%.1f udp_port=%d max_players=%d", settings.TickHz, settings.UDPPort, settings.MaxPlayers)

	store, err := adminstore.Open(dataPath())
	if err != nil {
		log.Error.Fatalf("adminstore open failed: %v", err)
	}
	defer store.Close()

	conn, err := net.ListenUDP("udp", &net.UDPAddr{Port: settings.UDPPort})
	if err != nil {
		log.Error.Fatalf("udp bind failed: %v", err)
	}
	if err := transport.TuneSocketBuffers(conn); err != nil {
		log.Warn.Printf("socket buffer tuning failed, continuing with defaults: %v", err)
	}
	hub := transport.NewHub(conn, settings.MaxPlayers, protocolVersion)
	go func() {
		if err := hub.Serve(); err != nil {
			log.Error.Printf("transport serve exited: %v", err)
		}
	}()

	forest := loadOrSeedSolarSystem(store, log)
	zones := seedZones(settings)
	auditor := sanity.NewAuditor(settings.SanitySamplePeriod, uint64(settings.DisconnectTimeoutMs), 3, bootSeed())
	settingsStore := config.NewStore(settings)
	mutations := config.NewQueue()

	sched := scheduler.New(hub, entity.NewStore(), forest, zones, auditor, settingsStore, mutations)

	adminSrv := newAdminServer(sched, settingsStore, mutations, store, log)
	go func() {
		if err := adminSrv.ListenAndServe(); err != nil {
			log.Error.Printf("admin http server exited: %v", err)
		}
	}()

	log.Info.Printf("Listening for peers on udp :%d, admin http on %s", settings.UDPPort, adminSrv.Addr)
	runTickLoop(sched, settingsStore, store, log)
}

// runTickLoop drives Scheduler.Step at tick_hz, capping dt at 2/tick_hz
// on overrun so a stalled tick never replays a large catch-up step of
// orbital motion in one jump.
func runTickLoop(sched *scheduler.Scheduler, settingsStore *config.Store, store *adminstore.Store, log *wirelog.Loggers) {
	s := settingsStore.Snapshot()
	period := time.Duration(float64(time.Second) / s.TickHz)
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	prev := time.Now()
	for now := range ticker.C {
		dt := now.Sub(prev).Seconds()
		dtCap := 2.0 / settingsStore.Snapshot().TickHz
		overran := dt > dtCap
		if overran {
			dt = dtCap
			log.Warn.Printf("tick overran budget, dt capped to %.4fs", dtCap)
		}
		prev = now

		counters := sched.Step(uint64(now.UnixMilli()), dt, overran)
		if err := store.RecordTick(counters.Tick, now.UnixMilli(), counters.FramesProcessed, counters.MutationsApplied, counters.SnapshotsSent, counters.PeersTimedOut, counters.OverranBudget); err != nil {
			log.Error.Printf("record tick failed: %v", err)
		}
		if counters.Tick%autoSaveIntervalTicks == 0 {
			if err := saveCelestialSnapshot(sched.Bodies, store, now.UnixMilli()); err != nil {
				log.Error.Printf("auto-save celestial snapshot failed: %v", err)
			}
		}
	}
}

// Body ids, fixed so save/restore and client references stay stable
// across a reseed.
const (
	bodySol = iota + 1
	bodyMercury
	bodyVenus
	bodyEarth
	bodyMars
	bodyJupiter
	bodySaturn
	bodyUranus
	bodyNeptune
	bodyMoon
	bodyPhobos
	bodyTitan
)

// seedSolarSystem builds a fresh 12-body system (star, eight planets, and
// three satellites) on first boot. Elements are real (if rounded)
// orbital parameters; each MeanAnomalyZero is offset so every body sits
// partway around its orbit at sim_time=0 rather than all lined up at
// periapsis.
func seedSolarSystem() *celestial.Forest {
	f := celestial.NewForest()
	if err := f.AddBody(celestial.Body{
		ID: bodySol, Name: "Sol", Type: celestial.Star, IsRoot: true,
		Mass: 1.989e30, Radius: 6.957e8, Color: 0xFFD700,
	}); err != nil {
		panic("seedSolarSystem: " + err.Error())
	}

	planet := func(id uint32, name string, mass, radius float64, color uint32, a, e, inc, lan, argp, m0 float64) celestial.Body {
		return celestial.Body{
			ID: id, Name: name, Type: celestial.Planet, ParentID: bodySol,
			Mass: mass, Radius: radius, Color: color,
			Elements: mathx.Elements{
				SemiMajorAxis: a, Eccentricity: e, Inclination: inc,
				LongAscNode: lan, ArgPeriapsis: argp, MeanAnomalyZero: m0,
			},
		}
	}
	moon := func(id uint32, name string, parentID uint32, mass, radius float64, color uint32, a, e, inc, lan, argp, m0 float64) celestial.Body {
		return celestial.Body{
			ID: id, Name: name, Type: celestial.Moon, ParentID: parentID,
			Mass: mass, Radius: radius, Color: color,
			Elements: mathx.Elements{
				SemiMajorAxis: a, Eccentricity: e, Inclination: inc,
				LongAscNode: lan, ArgPeriapsis: argp, MeanAnomalyZero: m0,
			},
		}
	}

	bodies := []celestial.Body{
		planet(bodyMercury, "Mercury", 3.3011e23, 2.4397e6, 0x8C7853, 5.791e10, 0.2056, 0.1223, 0.8435, 0.5085, 0.35),
		planet(bodyVenus, "Venus", 4.8675e24, 6.0518e6, 0xE6C074, 1.082e11, 0.0068, 0.0592, 1.3383, 0.9578, 2.10),
		planet(bodyEarth, "Earth", 5.9724e24, 6.371e6, 0x2A6FDB, 1.496e11, 0.0167, 0.0, 0.0, 1.7967, 4.89),
		planet(bodyMars, "Mars", 6.4171e23, 3.3895e6, 0xC1440E, 2.279e11, 0.0934, 0.0323, 0.8653, 5.0004, 0.85),
		planet(bodyJupiter, "Jupiter", 1.8982e27, 6.9911e7, 0xD8A66B, 7.785e11, 0.0489, 0.0228, 1.7546, 4.7799, 5.41),
		planet(bodySaturn, "Saturn", 5.6834e26, 5.8232e7, 0xE3C98A, 1.434e12, 0.0565, 0.0435, 1.9837, 5.9233, 1.28),
		planet(bodyUranus, "Uranus", 8.6810e25, 2.5362e7, 0x9FE3E8, 2.871e12, 0.0463, 0.0134, 1.2916, 1.6869, 3.67),
		planet(bodyNeptune, "Neptune", 1.02413e26, 2.4622e7, 0x3C6FB0, 4.495e12, 0.0086, 0.0309, 2.2997, 4.4712, 5.96),
		moon(bodyMoon, "Moon", bodyEarth, 7.342e22, 1.7374e6, 0xB5B5B5, 3.844e8, 0.0549, 0.0898, 0.0, 0.0, 1.05),
		moon(bodyPhobos, "Phobos", bodyMars, 1.0659e16, 1.11e4, 0x8A8378, 9.376e6, 0.0151, 0.0190, 0.0, 0.0, 2.77),
		moon(bodyTitan, "Titan", bodySaturn, 1.3452e23, 2.5747e6, 0xD9B98A, 1.222e9, 0.0288, 0.0, 0.0, 0.0, 4.32),
	}
	for _, b := range bodies {
		if err := f.AddBody(b); err != nil {
			panic("seedSolarSystem: " + err.Error())
		}
	}
	return f
}

// loadOrSeedSolarSystem restores the last saved celestial snapshot when
// one is present and intact, falling back to a freshly seeded system
// otherwise (first boot, or a corrupt snapshot).
func loadOrSeedSolarSystem(store *adminstore.Store, log *wirelog.Loggers) *celestial.Forest {
	blob, ok, err := store.LoadCelestialSnapshot()
	if err != nil {
		log.Warn.Printf("celestial snapshot load failed, seeding fresh system: %v", err)
		return seedSolarSystem()
	}
	if !ok {
		return seedSolarSystem()
	}
	var snap celestial.Snapshot
	if err := json.Unmarshal(blob, &snap); err != nil {
		log.Warn.Printf("celestial snapshot corrupt, seeding fresh system: %v", err)
		return seedSolarSystem()
	}
	f, err := celestial.Restore(snap)
	if err != nil {
		log.Warn.Printf("celestial snapshot restore failed, seeding fresh system: %v", err)
		return seedSolarSystem()
	}
	log.Info.Printf("restored celestial snapshot, %d bodies, sim_time=%.1fs", len(snap.Bodies), snap.SimTimeSeconds)
	return f
}

// saveCelestialSnapshot marshals the forest and writes it through the
// admin store's blake3-checksummed persistence.
func saveCelestialSnapshot(forest *celestial.Forest, store *adminstore.Store, nowMs int64) error {
	blob, err := json.Marshal(forest.Snapshot())
	if err != nil {
		return err
	}
	return store.SaveCelestialSnapshot(blob, nowMs)
}

// seedZones lays one AOI sphere near each body a player is likely to
// spawn at, so a fresh boot has somewhere for nearest-zone assignment to
// resolve to besides the origin. Centers approximate each body's
// periapsis distance along the X axis; exact phase doesn't matter here
// since these are static replication spheres, not body-following ones.
func seedZones(s config.Settings) *aoi.Partitioner {
	p := aoi.NewPartitioner(s.UpdateHz, 0.5, s.UpdateHz/4)
	p.AddZone(aoi.Zone{ID: 1, Name: "Sol Primary", Center: mathx.Vec3{}, Radius: s.AOIRadiusDefault, Capacity: s.AOICapacityDefault})
	p.AddZone(aoi.Zone{ID: 2, Name: "Earth Defense Grid", Center: mathx.Vec3{X: 1.47e11}, Radius: s.AOIRadiusDefault, Capacity: s.AOICapacityDefault})
	p.AddZone(aoi.Zone{ID: 3, Name: "Mars Frontier", Center: mathx.Vec3{X: 2.07e11}, Radius: s.AOIRadiusDefault, Capacity: s.AOICapacityDefault})
	p.AddZone(aoi.Zone{ID: 4, Name: "Outer Rim Relay", Center: mathx.Vec3{X: 7.40e11}, Radius: s.AOIRadiusDefault, Capacity: s.AOICapacityDefault})
	return p
}

func dataPath() string {
	if p := os.Getenv("STELLARCORE_DB_PATH"); p != "" {
		return p
	}
	return "./data/stellarcore.db"
}

func bootSeed() int64 { return time.Now().UnixNano() }
