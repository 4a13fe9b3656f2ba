// Package queue persists scan jobs in SQLite and implements the
// lease-based claim protocol that lets a fixed worker pool process
// submissions concurrently and recover work abandoned by crashed
// workers.
package queue
