// Package harness runs scripted SER sessions against the Chat service and
// compares their transcripts.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: chat_admin_toggle
//	description: "Admin disables then re-enables the chat"
//	admin_actor: 0            # optional, default 0
//	unknown_service: close    # optional, close | fatal
//	steps:
//	  - join: { actor: 0, name: admin }
//	  - request: { actor: 0, text: "REQUEST 1 Chat /toggle" }
//	  - leave: { actor: 0, reason: "" }
//	  - timer: true
//	  - none: true
//	  - stop: { signal: 15 }
//	expect:
//	  - REPLY 0 RESPONSE 1 OK
//	  - BROADCAST EVENT Chat DISABLED
//	expect_outcome: success   # optional, success | failure
//
// Each step is exactly one input event. The run ends when the steps are
// exhausted, a stop step is handled, or the executor fails.
//
// # Transcript
//
// The transcript lists, in order, every output of the run:
//
//	REPLY <actor> <SRR>
//	BROADCAST <SE>
//	CLOSE <actor> <reason>
//
// followed, in golden files only, by "OUTCOME success" or
// "OUTCOME failure: <error>".
//
// # Deterministic Testing
//
// Every scenario uses a fresh event context and a fixed run id (the
// scenario name), so identical scenarios produce identical transcripts.
package harness
