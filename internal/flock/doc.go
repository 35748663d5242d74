// Package flock provides cross-platform file locking utilities.
//
// WARDEN serializes every mutation through OS-advisory locks: one per packet
// DCL directory, one for the state document. This package holds the two
// syscall wrappers those locks are built from. Locks are exclusive and
// non-blocking; callers implement their own retry loops so they can honor
// context cancellation and lock timeouts.
//
// Usage:
//
//	file, _ := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0600)
//	if err := flock.Exclusive(file.Fd()); err != nil {
//	    // Lock not acquired - object is in use
//	}
//	defer flock.Unlock(file.Fd())
//
// Crashed holders are not a liveness problem: the OS drops the lock with the
// process, and the DCL journal makes any half-applied write recoverable.
package flock
