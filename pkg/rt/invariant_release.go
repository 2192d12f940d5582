//go:build !rtdebug

package rt

const debugInvariants = false
