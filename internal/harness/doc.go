// Package harness runs scripted sessions described in YAML scenario files.
//
// A scenario fixes everything that is normally random or environmental:
// the integers the sampler returns, integers already in the store, the
// clock, the session ID, and injected checkpoint failures. The session then
// runs against an in-memory store and the outcome is compared with the
// scenario's expect block and, optionally, a golden snapshot.
//
// Example scenario:
//
//	name: duplicate_within_session
//	description: the second draw of 7 is skipped without a store lookup hit
//	config:
//	  target: 2
//	  checkpoint_fraction: 1
//	values: [7, 7, 27]
//	expect:
//	  state: DONE
//	  new_tests: 2
//	  duplicates_skipped: 1
package harness
