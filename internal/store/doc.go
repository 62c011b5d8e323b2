// Package store defines the persistence interfaces and shared store
// errors. Implementations live under internal/platform.
package store
