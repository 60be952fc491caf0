// Package harness runs cross-backend scenarios against a bench.
//
// A scenario drives every entity of a CUE bench with one stimulus, runs
// them in parallel into a shared result sink and checks each backend's
// outputs against the functional reference.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: inverter_alternating
//	description: "All inverter backends agree on an alternating pattern"
//	bench: ../benches/inverter
//	stimulus:
//	  pattern: alternating   # alternating | random | values
//	  length: 16
//	assertions:
//	  - type: matches_reference
//	    entity: inv_sv
//	  - type: payload_count
//	    count: 4
//	  - type: fails
//	    entity: inv_broken
//	    code: CONFIG
//
// # Assertion Types
//
//   - matches_reference: Sample outputs equal the reference delayed by the
//     entity's declared latency, within tolerance. Waveform outputs are
//     sampled at each bit midpoint and thresholded (default Vdd/2) first.
//   - payload_count: Exactly count payloads were published.
//   - fails: The entity's run failed, with the given error code if set.
//
// # Deterministic Testing
//
// Instance IDs come from entity.SequenceGenerator and trace events are
// stamped by a fresh logical clock in entity-name order, so traces are
// identical across runs and can be compared with golden files.
//
// Unless WithSimulators is given, tools without a bench simulator command
// run against the in-process reference simulators of package reference.
package harness
