//go:build rtdebug

package rt

// Broken ordering invariants panic in rtdebug builds.
const debugInvariants = true
