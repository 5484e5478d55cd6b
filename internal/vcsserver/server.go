// Package vcsserver implements the lifecycle control surface exposed on
// the "server" RPC backend: ping, echo, sleep, pid, gc and shutdown,
// grounded on vcsserver/server.py's VcsServer class.
package vcsserver

import (
	"context"
	"os"
	"runtime"
	"runtime/debug"
	"sync/atomic"
	"time"
)

// GCStats mirrors run_gc's return shape.
type GCStats struct {
	FreedObjects int `msgpack:"freed_objects"`
	Garbage      int `msgpack:"garbage"`
}

// Server holds the process-lifetime state backing the control RPCs.
// The zero value is ready to use.
type Server struct {
	shuttingDown atomic.Bool
}

// Ping is a liveness no-op, equivalent to ping().
func (s *Server) Ping() error {
	return nil
}

// Echo returns data unchanged, equivalent to echo(data).
func (s *Server) Echo(data []byte) []byte {
	return data
}

// Sleep blocks for secs seconds or until ctx is cancelled, equivalent to
// sleep(secs).
func (s *Server) Sleep(ctx context.Context, secs float64) error {
	timer := time.NewTimer(time.Duration(secs * float64(time.Second)))
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// GetPID returns the process ID, equivalent to get_pid().
func (s *Server) GetPID() int {
	return os.Getpid()
}

// RunGC forces a garbage collection cycle and reports before/after heap
// object counts, equivalent to run_gc()'s gc.collect()/gc.garbage
// reporting. Go has no uncollectable-garbage list analogous to CPython's
// gc.garbage, so Garbage is always reported as 0 — there is nothing else
// for the value to mean on this runtime.
func (s *Server) RunGC() GCStats {
	var before, after runtime.MemStats
	runtime.ReadMemStats(&before)
	runtime.GC()
	debug.FreeOSMemory()
	runtime.ReadMemStats(&after)

	freed := int(before.HeapObjects) - int(after.HeapObjects)
	if freed < 0 {
		freed = 0
	}
	return GCStats{FreedObjects: freed, Garbage: 0}
}

// Shutdown sets the flag consulted by the serving loop, equivalent to
// shutdown().
func (s *Server) Shutdown() {
	s.shuttingDown.Store(true)
}

// ShuttingDown reports whether Shutdown has been called.
func (s *Server) ShuttingDown() bool {
	return s.shuttingDown.Load()
}
