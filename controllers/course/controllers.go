package controllers

import (
	"lms/engine"
)

// Package-level engine wiring, set once at startup.
var (
	sessions *engine.Manager
	store    engine.Gateway
)

// Init wires the controllers to the session manager and the
// persistence gateway.
func Init(mgr *engine.Manager, gw engine.Gateway) {
	sessions = mgr
	store = gw
}
