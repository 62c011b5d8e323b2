// Package admission bounds the number of concurrently running
// image-analysis sessions. Callers acquire a slot before starting a
// session and release it when the session settles; callers beyond the
// ceiling wait in FIFO order up to a configurable queue depth, after
// which they are rejected instead of queueing indefinitely.
package admission
