package verification

import (
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"
	"sync"
	"time"
)

// Scene scopes a verification code to the flow that requested it. A code
// issued for registration cannot be replayed against password reset.
type Scene string

// Supported verification scenes.
const (
	SceneRegister      Scene = "register"
	SceneResetPassword Scene = "reset_password"
)

// Valid reports whether the scene is one of the supported values.
func (s Scene) Valid() bool {
	return s == SceneRegister || s == SceneResetPassword
}

// Verification outcomes.
var (
	// ErrCodeNotFound is returned when no live code exists for the key,
	// including codes that expired or were already consumed.
	ErrCodeNotFound = errors.New("verification code not found or expired")

	// ErrCodeMismatch is returned when a live code exists but the
	// candidate does not match. The stored code stays valid.
	ErrCodeMismatch = errors.New("verification code mismatch")

	// ErrRateLimited is returned when a code is requested before the
	// cooldown elapsed. Use errors.As with *RateLimitError to read the
	// remaining wait.
	ErrRateLimited = errors.New("verification code requested too frequently")
)

// RateLimitError carries the remaining cooldown for a rejected issuance.
type RateLimitError struct {
	WaitSeconds int
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("resend blocked for another %ds", e.WaitSeconds)
}

func (e *RateLimitError) Unwrap() error {
	return ErrRateLimited
}

type key struct {
	identifier string
	scene      Scene
}

type record struct {
	code      string
	createdAt time.Time
	expiresAt time.Time
}

// Store holds verification codes in memory. All operations on a key are
// single critical sections under one mutex, so check-then-store and
// verify-then-delete cannot interleave with concurrent requests for the
// same key. Expiry is checked lazily on every read; memory is bounded by
// key cardinality unless the optional sweeper runs.
type Store struct {
	mu      sync.Mutex
	records map[key]record
	logger  *slog.Logger

	// now is injectable for tests.
	now func() time.Time

	sweepOnce sync.Once
	stopOnce  sync.Once
	sweepStop chan struct{}
	sweepWG   sync.WaitGroup
}

// NewStore creates an empty Store. If logger is nil, the default logger
// is used.
func NewStore(logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		records: make(map[key]record),
		logger:  logger.With(slog.String("component", "verification_store")),
		now:     time.Now,
	}
}

// CanSend reports whether a new code may be issued for the key, and when
// not, the remaining cooldown in whole seconds (rounded down).
func (s *Store) CanSend(identifier string, scene Scene, minInterval time.Duration) (bool, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.canSendLocked(identifier, scene, minInterval)
}

func (s *Store) canSendLocked(identifier string, scene Scene, minInterval time.Duration) (bool, int) {
	rec, ok := s.records[key{identifier, scene}]
	if !ok {
		return true, 0
	}

	elapsed := s.now().Sub(rec.createdAt)
	if elapsed < minInterval {
		return false, int((minInterval - elapsed).Seconds())
	}
	return true, 0
}

// GenerateAndStore issues a new code for the key: length uniform random
// digits (leading zeros allowed), valid for ttl, overwriting any previous
// record. When the cooldown for the key has not elapsed it returns a
// *RateLimitError and leaves the existing record untouched.
func (s *Store) GenerateAndStore(identifier string, scene Scene, length int, ttl, minInterval time.Duration) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ok, wait := s.canSendLocked(identifier, scene, minInterval); !ok {
		return "", &RateLimitError{WaitSeconds: wait}
	}

	code := generateCode(length)
	now := s.now()
	s.records[key{identifier, scene}] = record{
		code:      code,
		createdAt: now,
		expiresAt: now.Add(ttl),
	}

	s.logger.Info("verification code stored",
		"scene", string(scene),
		"ttl_minutes", ttl.Minutes())
	return code, nil
}

// Verify checks candidate against the live code for the key. On match the
// record is deleted (codes are single-use). A mismatch leaves the record
// in place so the user may retry within the TTL.
func (s *Store) Verify(identifier string, scene Scene, candidate string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := key{identifier, scene}
	rec, ok := s.records[k]
	if !ok {
		return ErrCodeNotFound
	}

	if !s.now().Before(rec.expiresAt) {
		delete(s.records, k)
		s.logger.Info("verification code expired on read", "scene", string(scene))
		return ErrCodeNotFound
	}

	if rec.code != candidate {
		return ErrCodeMismatch
	}

	delete(s.records, k)
	return nil
}

// CleanupExpired removes every expired record and returns how many were
// removed. Not required for correctness; reclaims memory for keys that
// are never read again.
func (s *Store) CleanupExpired() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for k, rec := range s.records {
		if !now.Before(rec.expiresAt) {
			delete(s.records, k)
			removed++
		}
	}

	if removed > 0 {
		s.logger.Info("cleaned up expired verification codes", "count", removed)
	}
	return removed
}

// Len reports the number of stored records, live or expired.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

// StartSweeper runs CleanupExpired every interval until Stop is called.
// Starting twice is a no-op.
func (s *Store) StartSweeper(interval time.Duration) {
	s.sweepOnce.Do(func() {
		s.sweepStop = make(chan struct{})
		s.sweepWG.Add(1)
		go func() {
			defer s.sweepWG.Done()

			ticker := time.NewTicker(interval)
			defer ticker.Stop()

			for {
				select {
				case <-s.sweepStop:
					return
				case <-ticker.C:
					s.CleanupExpired()
				}
			}
		}()
	})
}

// Stop terminates the sweeper, if running, and waits for it to exit.
// Safe to call multiple times, including concurrently.
func (s *Store) Stop() {
	if s.sweepStop == nil {
		return
	}
	s.stopOnce.Do(func() {
		close(s.sweepStop)
	})
	s.sweepWG.Wait()
}

// generateCode builds a numeric code with each digit drawn independently
// and uniformly from 0-9. Codes are rate limited and short-lived, not
// cryptographic secrets, so the process-global PRNG is sufficient.
func generateCode(length int) string {
	var b strings.Builder
	b.Grow(length)
	for i := 0; i < length; i++ {
		b.WriteByte(byte('0' + rand.IntN(10)))
	}
	return b.String()
}
