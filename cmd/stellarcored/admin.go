package main

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"stellarcore/internal/adminstore"
	"stellarcore/internal/wirelog"
	"stellarcore/pkg/celestial"
	"stellarcore/pkg/config"
	"stellarcore/pkg/mathx"
	"stellarcore/pkg/scheduler"
)

// newAdminServer wires the admin entry points (list_bodies, add_body,
// update_body, delete_body, set_sim_speed, set_frozen, list_entities,
// list_aois, get_settings, set_settings, save, emergency_stop) behind
// an HTTP mux of plain mux.HandleFunc routes with a rate-limit
// middleware wrapping the whole surface.
func newAdminServer(sched *scheduler.Scheduler, settings *config.Store, mutations *config.Queue, store *adminstore.Store, log *wirelog.Loggers) *http.Server {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/status", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, sched.LastCounters())
	})

	mux.HandleFunc("/api/bodies", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			writeJSON(w, sched.Bodies.All()) // list_bodies
		case http.MethodPost:
			var b celestial.Body
			if err := json.NewDecoder(r.Body).Decode(&b); err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			result := make(chan error, 1)
			mutations.Submit(config.Mutation{Apply: func() error { return sched.Bodies.AddBody(b) }, Result: result}) // add_body
			if err := <-result; err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			w.WriteHeader(http.StatusNoContent)
		default:
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		}
	})

	mux.HandleFunc("/api/bodies/update", func(w http.ResponseWriter, r *http.Request) { // update_body
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		var body struct {
			ID       uint32
			Elements mathx.Elements
			Name     string
			Color    uint32
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		result := make(chan error, 1)
		mutations.Submit(config.Mutation{
			Apply:  func() error { return sched.Bodies.UpdateBody(body.ID, body.Elements, body.Name, body.Color) },
			Result: result,
		})
		if err := <-result; err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})

	mux.HandleFunc("/api/bodies/delete", func(w http.ResponseWriter, r *http.Request) { // delete_body
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		var body struct{ ID uint32 }
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		result := make(chan error, 1)
		mutations.Submit(config.Mutation{Apply: func() error { return sched.Bodies.DeleteBody(body.ID) }, Result: result})
		if err := <-result; err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})

	mux.HandleFunc("/api/sim_speed", func(w http.ResponseWriter, r *http.Request) { // set_sim_speed
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		var body struct{ SimSpeed float64 }
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		next := settings.Snapshot()
		next.SimSpeed = body.SimSpeed
		result := make(chan error, 1)
		mutations.Submit(config.Mutation{Apply: func() error { return settings.Set(next) }, Result: result})
		if err := <-result; err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})

	mux.HandleFunc("/api/entities", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, sched.Entities.All())
	})

	mux.HandleFunc("/api/aois", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, sched.Zones.Zones())
	})

	mux.HandleFunc("/api/settings", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			writeJSON(w, settings.Snapshot())
			return
		}
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		var next config.Settings
		if err := json.NewDecoder(r.Body).Decode(&next); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		result := make(chan error, 1)
		mutations.Submit(config.Mutation{
			Apply:  func() error { return settings.Set(next) },
			Result: result,
		})
		if err := <-result; err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		_ = store.RecordSettingsChange(time.Now().UnixMilli(), next)
		w.WriteHeader(http.StatusNoContent)
	})

	mux.HandleFunc("/api/frozen", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		var body struct{ Frozen bool }
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		mutations.Submit(config.Mutation{Apply: func() error {
			sched.Bodies.SetFrozen(body.Frozen)
			return nil
		}})
		w.WriteHeader(http.StatusNoContent)
	})

	mux.HandleFunc("/api/save", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		blob, err := json.Marshal(sched.Bodies.Snapshot())
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if err := store.SaveCelestialSnapshot(blob, time.Now().UnixMilli()); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})

	mux.HandleFunc("/api/emergency_stop", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		log.Warn.Println("emergency_stop invoked via admin surface")
		mutations.Submit(config.Mutation{Apply: func() error {
			sched.Bodies.SetFrozen(true)
			return nil
		}})
		w.WriteHeader(http.StatusNoContent)
	})

	handler := adminRateLimit(mux)

	return &http.Server{
		Addr:         adminAddr(),
		Handler:      handler,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
}

// adminRateLimit applies a per-IP token bucket to the admin surface.
func adminRateLimit(next http.Handler) http.Handler {
	var mu sync.Mutex
	limiters := make(map[string]*rate.Limiter)

	getLimiter := func(ip string) *rate.Limiter {
		mu.Lock()
		defer mu.Unlock()
		lim, exists := limiters[ip]
		if !exists {
			lim = rate.NewLimiter(5, 10)
			limiters[ip] = lim
		}
		return lim
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !getLimiter(r.RemoteAddr).Allow() {
			http.Error(w, "rate limit", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func adminAddr() string {
	return ":8088"
}
