package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/voltlab/voltlab-api/internal/api/shared"
	"github.com/voltlab/voltlab-api/internal/config"
	"github.com/voltlab/voltlab-api/internal/domain"
	"github.com/voltlab/voltlab-api/internal/service/auth"
	"github.com/voltlab/voltlab-api/internal/service/membership"
	"github.com/voltlab/voltlab-api/internal/store"
	"github.com/voltlab/voltlab-api/internal/verification"
)

const testPhone = "13800138000"

// fakeUserStore is an in-memory store.UserStore for handler tests.
type fakeUserStore struct {
	mu      sync.Mutex
	byID    map[uuid.UUID]*domain.User
	byPhone map[string]*domain.User
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{
		byID:    make(map[uuid.UUID]*domain.User),
		byPhone: make(map[string]*domain.User),
	}
}

func (f *fakeUserStore) Create(_ context.Context, user *domain.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, exists := f.byPhone[user.PhoneNumber]; exists {
		return store.ErrPhoneExists
	}
	copied := *user
	f.byID[user.ID] = &copied
	f.byPhone[user.PhoneNumber] = &copied
	return nil
}

func (f *fakeUserStore) GetByID(_ context.Context, id uuid.UUID) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.byID[id]
	if !ok {
		return nil, store.ErrUserNotFound
	}
	copied := *user
	return &copied, nil
}

func (f *fakeUserStore) GetByPhone(_ context.Context, phone string) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.byPhone[phone]
	if !ok {
		return nil, store.ErrUserNotFound
	}
	copied := *user
	return &copied, nil
}

func (f *fakeUserStore) UpdatePassword(_ context.Context, id uuid.UUID, hashed string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.byID[id]
	if !ok {
		return store.ErrUserNotFound
	}
	user.HashedPassword = hashed
	return nil
}

func (f *fakeUserStore) UpdateLastLogin(_ context.Context, id uuid.UUID, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.byID[id]
	if !ok {
		return store.ErrUserNotFound
	}
	user.LastLoginAt = &at
	return nil
}

func (f *fakeUserStore) UpdateVIPExpiry(_ context.Context, id uuid.UUID, expiresAt *time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.byID[id]
	if !ok {
		return store.ErrUserNotFound
	}
	user.VIPExpiresAt = expiresAt
	return nil
}

// fakeUsageStore counts usage in memory for quota checks.
type fakeUsageStore struct {
	mu     sync.Mutex
	counts map[uuid.UUID]int
}

func newFakeUsageStore() *fakeUsageStore {
	return &fakeUsageStore{counts: make(map[uuid.UUID]int)}
}

func (f *fakeUsageStore) Record(_ context.Context, userID uuid.UUID, _ time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.counts[userID]++
	return nil
}

func (f *fakeUsageStore) CountSince(_ context.Context, userID uuid.UUID, _ time.Time) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.counts[userID], nil
}

// recordingSender captures sent codes instead of delivering them.
type recordingSender struct {
	mu    sync.Mutex
	sends []sentCode
}

type sentCode struct {
	phone string
	code  string
	scene verification.Scene
}

func (s *recordingSender) Send(_ context.Context, phone, code string, scene verification.Scene) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sends = append(s.sends, sentCode{phone: phone, code: code, scene: scene})
	return nil
}

func (s *recordingSender) last(t *testing.T) sentCode {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	require.NotEmpty(t, s.sends)
	return s.sends[len(s.sends)-1]
}

type authTestEnv struct {
	handler   *AuthHandler
	users     *fakeUserStore
	codes     *verification.Store
	sender    *recordingSender
	usage     *fakeUsageStore
	authCfg   config.AuthConfig
	jwtSvc    auth.JWTService
	verifier  auth.PasswordVerifier
	quotaSvc  *membership.Service
	hasherSvc auth.PasswordHasher
}

func newAuthTestEnv(t *testing.T) *authTestEnv {
	t.Helper()

	authCfg := config.AuthConfig{
		JWTSecret:            "test-jwt-secret-at-least-32-chars-long",
		TokenLifetimeMinutes: 60,
		CodeLength:           6,
		CodeExpireMinutes:    5,
		CodeCooldownSeconds:  60,
	}

	jwtSvc, err := auth.NewJWTService(authCfg)
	require.NoError(t, err)

	users := newFakeUserStore()
	usage := newFakeUsageStore()
	codes := verification.NewStore(nil)
	sender := &recordingSender{}
	hasher := auth.NewBcryptHasher(bcrypt.MinCost)
	verifier := auth.NewBcryptVerifier()
	quota := membership.NewService(usage, 5, nil)

	handler := NewAuthHandler(users, codes, sender, jwtSvc, hasher, verifier, quota, authCfg, nil)

	return &authTestEnv{
		handler:   handler,
		users:     users,
		codes:     codes,
		sender:    sender,
		usage:     usage,
		authCfg:   authCfg,
		jwtSvc:    jwtSvc,
		verifier:  verifier,
		quotaSvc:  quota,
		hasherSvc: hasher,
	}
}

func postJSON(t *testing.T, handler http.HandlerFunc, target string, payload any) *httptest.ResponseRecorder {
	t.Helper()

	body, err := json.Marshal(payload)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, target, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	handler(rr, req)
	return rr
}

func decodeBody[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&out))
	return out
}

// registerUser drives the full registration flow and returns the user's
// credentials.
func registerUser(t *testing.T, env *authTestEnv, phone, password string) uuid.UUID {
	t.Helper()

	rr := postJSON(t, env.handler.SendCode, "/api/auth/send-code", SendCodeRequest{
		PhoneNumber: phone,
		Scene:       "register",
	})
	require.Equal(t, http.StatusOK, rr.Code)

	code := env.sender.last(t).code
	rr = postJSON(t, env.handler.Register, "/api/auth/register", RegisterRequest{
		PhoneNumber:      phone,
		Password:         password,
		VerificationCode: code,
	})
	require.Equal(t, http.StatusCreated, rr.Code)

	resp := decodeBody[AuthResponse](t, rr)
	require.NotEmpty(t, resp.Token)
	return resp.UserID
}

func TestSendCodeDeliversSMSAndMasksPhone(t *testing.T) {
	t.Parallel()

	env := newAuthTestEnv(t)
	rr := postJSON(t, env.handler.SendCode, "/api/auth/send-code", SendCodeRequest{
		PhoneNumber: testPhone,
		Scene:       "register",
	})

	require.Equal(t, http.StatusOK, rr.Code)
	resp := decodeBody[SendCodeResponse](t, rr)
	assert.Equal(t, "138****8000", resp.PhoneNumber)
	assert.Equal(t, 300, resp.ExpiresInSeconds)

	sent := env.sender.last(t)
	assert.Equal(t, testPhone, sent.phone)
	assert.Len(t, sent.code, 6)
	assert.Equal(t, verification.SceneRegister, sent.scene)
}

func TestSendCodeRejectsInvalidPhone(t *testing.T) {
	t.Parallel()

	env := newAuthTestEnv(t)
	rr := postJSON(t, env.handler.SendCode, "/api/auth/send-code", SendCodeRequest{
		PhoneNumber: "12345",
		Scene:       "register",
	})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Empty(t, env.sender.sends)
}

func TestSendCodeRejectsUnknownScene(t *testing.T) {
	t.Parallel()

	env := newAuthTestEnv(t)
	rr := postJSON(t, env.handler.SendCode, "/api/auth/send-code", SendCodeRequest{
		PhoneNumber: testPhone,
		Scene:       "login",
	})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestSendCodeRateLimitsResends(t *testing.T) {
	t.Parallel()

	env := newAuthTestEnv(t)
	first := postJSON(t, env.handler.SendCode, "/api/auth/send-code", SendCodeRequest{
		PhoneNumber: testPhone,
		Scene:       "register",
	})
	require.Equal(t, http.StatusOK, first.Code)

	second := postJSON(t, env.handler.SendCode, "/api/auth/send-code", SendCodeRequest{
		PhoneNumber: testPhone,
		Scene:       "register",
	})
	require.Equal(t, http.StatusTooManyRequests, second.Code)

	resp := decodeBody[RateLimitResponse](t, second)
	assert.Greater(t, resp.WaitSeconds, 0)
	assert.LessOrEqual(t, resp.WaitSeconds, 60)
}

func TestRegisterCreatesUserAndReturnsToken(t *testing.T) {
	t.Parallel()

	env := newAuthTestEnv(t)
	userID := registerUser(t, env, testPhone, "password123")

	user, err := env.users.GetByID(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, testPhone, user.PhoneNumber)
	assert.NotEmpty(t, user.HashedPassword)
	assert.NotEqual(t, "password123", user.HashedPassword)
	assert.NoError(t, env.verifier.Compare(user.HashedPassword, "password123"))
}

func TestRegisterRejectsWrongCode(t *testing.T) {
	t.Parallel()

	env := newAuthTestEnv(t)
	rr := postJSON(t, env.handler.SendCode, "/api/auth/send-code", SendCodeRequest{
		PhoneNumber: testPhone,
		Scene:       "register",
	})
	require.Equal(t, http.StatusOK, rr.Code)

	rr = postJSON(t, env.handler.Register, "/api/auth/register", RegisterRequest{
		PhoneNumber:      testPhone,
		Password:         "password123",
		VerificationCode: "000000",
	})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestRegisterRejectsDuplicatePhone(t *testing.T) {
	t.Parallel()

	env := newAuthTestEnv(t)
	registerUser(t, env, testPhone, "password123")

	// The registration consumed the code, so issue a fresh one. The store
	// cooldown applies per key; advance past it by using a separate store
	// entry is not possible, so stash the code directly.
	code, err := env.codes.GenerateAndStore(
		testPhone, verification.SceneRegister, 6, 5*time.Minute, 0)
	require.NoError(t, err)

	rr := postJSON(t, env.handler.Register, "/api/auth/register", RegisterRequest{
		PhoneNumber:      testPhone,
		Password:         "password456",
		VerificationCode: code,
	})
	assert.Equal(t, http.StatusConflict, rr.Code)
}

func TestLoginSucceedsWithCorrectPassword(t *testing.T) {
	t.Parallel()

	env := newAuthTestEnv(t)
	userID := registerUser(t, env, testPhone, "password123")

	rr := postJSON(t, env.handler.Login, "/api/auth/login", LoginRequest{
		PhoneNumber: testPhone,
		Password:    "password123",
	})
	require.Equal(t, http.StatusOK, rr.Code)

	resp := decodeBody[AuthResponse](t, rr)
	assert.Equal(t, userID, resp.UserID)
	assert.NotEmpty(t, resp.Token)

	user, err := env.users.GetByID(context.Background(), userID)
	require.NoError(t, err)
	assert.NotNil(t, user.LastLoginAt)
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	t.Parallel()

	env := newAuthTestEnv(t)
	registerUser(t, env, testPhone, "password123")

	rr := postJSON(t, env.handler.Login, "/api/auth/login", LoginRequest{
		PhoneNumber: testPhone,
		Password:    "wrong-password",
	})
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestLoginUnknownPhoneGetsSameResponseAsWrongPassword(t *testing.T) {
	t.Parallel()

	env := newAuthTestEnv(t)
	rr := postJSON(t, env.handler.Login, "/api/auth/login", LoginRequest{
		PhoneNumber: "13900139000",
		Password:    "whatever1",
	})
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	resp := decodeBody[shared.ErrorResponse](t, rr)
	assert.Equal(t, "Invalid credentials", resp.Error)
}

func TestResetPasswordReplacesHash(t *testing.T) {
	t.Parallel()

	env := newAuthTestEnv(t)
	userID := registerUser(t, env, testPhone, "password123")

	code, err := env.codes.GenerateAndStore(
		testPhone, verification.SceneResetPassword, 6, 5*time.Minute, 0)
	require.NoError(t, err)

	rr := postJSON(t, env.handler.ResetPassword, "/api/auth/reset-password", ResetPasswordRequest{
		PhoneNumber:      testPhone,
		VerificationCode: code,
		NewPassword:      "newpassword456",
	})
	require.Equal(t, http.StatusOK, rr.Code)

	user, err := env.users.GetByID(context.Background(), userID)
	require.NoError(t, err)
	assert.NoError(t, env.verifier.Compare(user.HashedPassword, "newpassword456"))
	assert.Error(t, env.verifier.Compare(user.HashedPassword, "password123"))
}

func TestResetPasswordRejectsRegisterSceneCode(t *testing.T) {
	t.Parallel()

	env := newAuthTestEnv(t)
	registerUser(t, env, testPhone, "password123")

	// Code issued for the register scene must not reset a password.
	code, err := env.codes.GenerateAndStore(
		testPhone, verification.SceneRegister, 6, 5*time.Minute, 0)
	require.NoError(t, err)

	rr := postJSON(t, env.handler.ResetPassword, "/api/auth/reset-password", ResetPasswordRequest{
		PhoneNumber:      testPhone,
		VerificationCode: code,
		NewPassword:      "newpassword456",
	})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestMeReturnsUserAndRemainingQuota(t *testing.T) {
	t.Parallel()

	env := newAuthTestEnv(t)
	userID := registerUser(t, env, testPhone, "password123")

	require.NoError(t, env.usage.Record(context.Background(), userID, time.Now()))
	require.NoError(t, env.usage.Record(context.Background(), userID, time.Now()))

	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	ctx := context.WithValue(req.Context(), shared.UserIDContextKey, userID)
	rr := httptest.NewRecorder()
	env.handler.Me(rr, req.WithContext(ctx))

	require.Equal(t, http.StatusOK, rr.Code)
	resp := decodeBody[MeResponse](t, rr)
	assert.Equal(t, userID, resp.User.ID)
	assert.Equal(t, "138****8000", resp.User.PhoneNumber)
	assert.False(t, resp.User.IsVIP)
	assert.Equal(t, 3, resp.RemainingToday)
}

func TestMeWithoutAuthContext(t *testing.T) {
	t.Parallel()

	env := newAuthTestEnv(t)
	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	rr := httptest.NewRecorder()
	env.handler.Me(rr, req)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}
