// Package timeouts defines shared timeout constants used across services.
// Centralizing these values prevents drift between service boundaries and
// makes the durations discoverable.
package timeouts

import "time"

// GRPCDial caps the wait time when dialing a gRPC peer.
const GRPCDial = 2 * time.Second

// ReadHeader limits how long an HTTP server waits for request headers.
const ReadHeader = 5 * time.Second

// Shutdown limits how long servers wait for in-flight requests
// during graceful shutdown.
const Shutdown = 5 * time.Second

// ApplyIntent caps one request channel call, including every optimistic retry.
const ApplyIntent = 10 * time.Second

// PushWrite caps a single state frame write to a subscriber.
const PushWrite = 5 * time.Second
