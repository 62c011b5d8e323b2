// Package verification implements the in-memory store for SMS
// verification codes. Codes are keyed by (phone number, scene), expire
// after a TTL, are single-use, and issuance per key is rate limited by a
// cooldown interval.
//
// State is process-local: in a multi-instance deployment each instance
// keeps its own codes, so sticky routing (or an external store) is
// required for codes to survive instance changes.
package verification
