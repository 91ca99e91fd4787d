// Package navigation answers "which object is nearest to this one in a given
// direction" for keyboard focus movement. Queries run on a background worker
// goroutine that owns the spatial index; callers exchange request and
// response messages with it and discard responses that are no longer current.
package navigation
