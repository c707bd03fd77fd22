// Package ser implements the Service Event/Request (SER) protocol.
//
// Services are named units of behavior. Actors send them requests, and they
// emit events that every actor receives. All traffic is textual:
//
//	REQUEST <RUID> <SERVICE_NAME> <payload>   client -> server
//	RESPONSE <RUID> OK                        server -> requesting actor
//	RESPONSE <RUID> KO <message>              server -> requesting actor
//	EVENT <SERVICE_NAME> <payload>            server -> every actor
//
// The RUID is a decimal unsigned 64-bit integer chosen by the caller and
// echoed unchanged so the caller can correlate responses.
//
// ORDERING:
//
// Every event is stamped with an id from the run's EventContext at emission
// time. The Dispatcher merges the per-service FIFO queues and hands events out
// in strictly increasing id order, whichever service emitted them.
//
// ERRORS:
//
// Only three error classes escape the Dispatcher, all as *ProtocolError:
// duplicate service names at construction, malformed SR commands, and SR
// commands naming an unregistered service. Handler failures and handler
// faults (returned errors or panics) always become KO responses.
//
// Nothing in this package locks. A Dispatcher and its services must be driven
// from a single goroutine.
package ser
