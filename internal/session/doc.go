// Package session owns everything one bidsprep run works on: the record
// cache, the loaded groups, the association engine and the edit store.
//
// Folder loads run on a worker pool. Discovery happens off the session lock;
// the result is applied under it. Every interactive call takes the same lock,
// so the engine and the groups only ever see one mutation at a time. Record
// hooks fire while the lock is held and are routed back to the owning group
// without re-locking.
//
// Open takes a file lock in the state directory so two runs never edit the
// same store concurrently.
package session
