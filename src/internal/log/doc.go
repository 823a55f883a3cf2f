// Package log provides simple leveled logging for keen-connectivity.
//
// Messages are written with colored level prefixes: DEBUG (verbose mode only),
// INFO, WARN and ERROR. Errors always go to stderr, everything else to stdout
// unless SetForceStdErr is enabled.
//
//	log.Infof("Preferred network changed to %d", id)
//	log.SetVerbose(true)
//	log.Debugf("Dropping stale report for key %d", key)
//
// All functions are safe for concurrent use.
package log
