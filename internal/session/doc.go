// Package session orchestrates the two concurrent units of an admitted
// analysis session (embedding preload and AI analysis). Both units are
// dispatched onto the shared worker pool; the session settles only when
// both have settled, and a unit's failure never cancels its sibling.
package session
