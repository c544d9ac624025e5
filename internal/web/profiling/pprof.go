// Package profiling serves pprof and runtime statistics on the debug listener.
//
// The debug listener exposes goroutine stacks and heap contents. Bind it to a
// loopback or otherwise private address.
package profiling

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/pprof"
	"runtime"

	"github.com/go-chi/chi/v5"
)

// Config configures the debug handler
type Config struct {
	// BlockRate is passed to runtime.SetBlockProfileRate; zero leaves it off
	BlockRate int
	// MutexFraction is passed to runtime.SetMutexProfileFraction; zero leaves it off
	MutexFraction int
	// DBStats, when set, adds connection pool statistics to /debug/stats
	DBStats func() sql.DBStats
}

// Handler returns the debug handler serving /debug/pprof/* and /debug/stats
func Handler(config Config) http.Handler {
	if config.BlockRate > 0 {
		runtime.SetBlockProfileRate(config.BlockRate)
	}
	if config.MutexFraction > 0 {
		runtime.SetMutexProfileFraction(config.MutexFraction)
	}

	r := chi.NewRouter()
	r.Route("/debug/pprof", func(r chi.Router) {
		r.HandleFunc("/", pprof.Index)
		r.HandleFunc("/cmdline", pprof.Cmdline)
		r.HandleFunc("/profile", pprof.Profile)
		r.HandleFunc("/symbol", pprof.Symbol)
		r.HandleFunc("/trace", pprof.Trace)
		for _, name := range []string{"allocs", "block", "goroutine", "heap", "mutex", "threadcreate"} {
			r.Handle("/"+name, pprof.Handler(name))
		}
	})
	r.Get("/debug/stats", StatsHandler(config.DBStats))
	return r
}

// Stats is a snapshot of the process and its database pool
type Stats struct {
	Goroutines int         `json:"goroutines"`
	Memory     MemoryStats `json:"memory"`
	CPU        CPUStats    `json:"cpu"`
	Database   *PoolStats  `json:"database,omitempty"`
}

// MemoryStats are the heap figures of runtime.MemStats
type MemoryStats struct {
	Alloc      uint64 `json:"alloc"`
	TotalAlloc uint64 `json:"total_alloc"`
	Sys        uint64 `json:"sys"`
	NumGC      uint32 `json:"num_gc"`
}

// CPUStats describe the scheduler
type CPUStats struct {
	NumCPU     int   `json:"num_cpu"`
	NumCgoCall int64 `json:"num_cgo_call"`
}

// PoolStats are the database/sql pool figures
type PoolStats struct {
	OpenConnections int   `json:"open_connections"`
	InUse           int   `json:"in_use"`
	Idle            int   `json:"idle"`
	WaitCount       int64 `json:"wait_count"`
	WaitDurationMS  int64 `json:"wait_duration_ms"`
}

// RuntimeStats takes a snapshot; dbStats may be nil
func RuntimeStats(dbStats func() sql.DBStats) Stats {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	s := Stats{
		Goroutines: runtime.NumGoroutine(),
		Memory: MemoryStats{
			Alloc:      m.Alloc,
			TotalAlloc: m.TotalAlloc,
			Sys:        m.Sys,
			NumGC:      m.NumGC,
		},
		CPU: CPUStats{
			NumCPU:     runtime.NumCPU(),
			NumCgoCall: runtime.NumCgoCall(),
		},
	}

	if dbStats != nil {
		db := dbStats()
		s.Database = &PoolStats{
			OpenConnections: db.OpenConnections,
			InUse:           db.InUse,
			Idle:            db.Idle,
			WaitCount:       db.WaitCount,
			WaitDurationMS:  db.WaitDuration.Milliseconds(),
		}
	}
	return s
}

// StatsHandler serves RuntimeStats as JSON
func StatsHandler(dbStats func() sql.DBStats) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "no-store")
		json.NewEncoder(w).Encode(RuntimeStats(dbStats))
	}
}
