// Package realtime owns the client's single persistent websocket connection.
//
// A Manager runs one coordinating goroutine (Run). Commands from callers and
// events from the transport (dial results, inbound frames, read errors,
// heartbeat failures, reconnect timers) all go through one bounded channel,
// so every state transition is ordered and observable:
//
//	Disconnected -> Connecting -> Open -> Disconnected
//	                     Open -> Closing -> Disconnected   (explicit Disconnect)
//
// At most one transport handle is live per Manager.
package realtime
