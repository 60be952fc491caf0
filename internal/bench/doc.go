// Package bench loads test benches written in CUE.
//
// A bench directory holds one CUE package with three top-level fields:
//
//	bench: {
//		rs:       100e6        // sample rate in Hz
//		vdd:      1.0          // analog supply voltage
//		workroot: "/tmp/dut"   // optional, defaults to os.TempDir()
//		timeout:  "5m"         // optional default run timeout
//		preserve: false        // keep per-run work directories
//		control: start: 3      // optional shared controller, initdone after 3 cycles
//	}
//
//	entity: inv_sv: {
//		design:  "inverter"
//		model:   "sv"
//		timeout: "30s"                      // optional
//		edge:    "rising"                   // optional sampling edge override
//		inherit: ["Rs", "Vdd", "WorkRoot"]  // optional, default all
//		conditions: A: ["initdone"]         // optional per-port gate override
//	}
//
//	simulator: sv: command: ["run_sv.sh", "{manifest}"]
//
// Compile turns the CUE value into a Spec; Spec.Build creates the entities.
// Errors carry CUE source positions and stable codes (see the ErrCode
// constants).
package bench
