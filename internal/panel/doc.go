// Package panel owns the per-channel timestamp windows and the memoized
// summary cache for one panel instance. A Panel is created when its
// visualization panel is activated and discarded on teardown; there is no
// package-level state.
//
// Summary results are cached per channel under the cheap fingerprint
// (max timestamp, cardinality) so repeated reads with an unchanged window
// return the cached value without running the statistics engine again.
package panel
