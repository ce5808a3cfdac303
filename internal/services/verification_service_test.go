package services_test

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zipfood/reset-api/internal/models"
	"github.com/zipfood/reset-api/internal/ratelimit"
	"github.com/zipfood/reset-api/internal/services"
)

// fakeAccountStore implements the account repository surface in memory.
type fakeAccountStore struct {
	byPhone     map[string]*models.Account
	byID        map[string]*models.Account
	lookupCalls int
	failSet     bool
}

func newFakeAccountStore(accounts ...*models.Account) *fakeAccountStore {
	store := &fakeAccountStore{
		byPhone: make(map[string]*models.Account),
		byID:    make(map[string]*models.Account),
	}
	for _, account := range accounts {
		store.byPhone[account.Phone] = account
		store.byID[account.ID] = account
	}
	return store
}

func (f *fakeAccountStore) GetByPhone(_ context.Context, phone string) (*models.Account, error) {
	f.lookupCalls++
	account, ok := f.byPhone[phone]
	if !ok {
		return nil, models.ErrNotFound
	}
	copied := *account
	return &copied, nil
}

func (f *fakeAccountStore) GetByID(_ context.Context, id string) (*models.Account, error) {
	account, ok := f.byID[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	copied := *account
	return &copied, nil
}

func (f *fakeAccountStore) SetVerificationCode(_ context.Context, accountID, code string, expiresAt time.Time) error {
	if f.failSet {
		return errors.New("write unavailable")
	}
	account, ok := f.byID[accountID]
	if !ok {
		return models.ErrNotFound
	}
	account.VerificationCode = &code
	account.VerificationExpires = &expiresAt
	return nil
}

func (f *fakeAccountStore) ClearVerificationCode(_ context.Context, accountID string) error {
	account, ok := f.byID[accountID]
	if !ok {
		return models.ErrNotFound
	}
	account.VerificationCode = nil
	account.VerificationExpires = nil
	return nil
}

func (f *fakeAccountStore) UpdatePassword(_ context.Context, accountID, passwordHash string) error {
	account, ok := f.byID[accountID]
	if !ok {
		return models.ErrNotFound
	}
	account.PasswordHash = passwordHash
	return nil
}

// fakeSender records dispatched messages and can be told to fail.
type fakeSender struct {
	sent []string
	fail bool
}

func (f *fakeSender) Send(_ context.Context, toPhone, body string) bool {
	if f.fail {
		return false
	}
	f.sent = append(f.sent, toPhone+": "+body)
	return true
}

type verificationFixture struct {
	service  *services.VerificationService
	accounts *fakeAccountStore
	sender   *fakeSender
	limiter  *ratelimit.Limiter
	now      time.Time
	clock    *time.Time
}

func newVerificationFixture(t *testing.T, accounts ...*models.Account) *verificationFixture {
	t.Helper()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	store := newFakeAccountStore(accounts...)
	sender := &fakeSender{}
	limiter := ratelimit.NewLimiter(ratelimit.NewMemoryStore(), ratelimit.DefaultConfig(), logger)

	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	clock := &now
	limiter.SetClock(func() time.Time { return *clock })

	service := services.NewVerificationService(
		store, limiter, sender, services.NewMemoryCodeStore(), logger, 15*time.Minute, false)
	service.SetClock(func() time.Time { return *clock })

	return &verificationFixture{
		service:  service,
		accounts: store,
		sender:   sender,
		limiter:  limiter,
		now:      now,
		clock:    clock,
	}
}

func testAccount() *models.Account {
	return &models.Account{
		ID:    "acc-1",
		Phone: "+5511987654321",
		Name:  "Ana",
		Role:  "customer",
	}
}

func TestRequestCode_HappyPath(t *testing.T) {
	fx := newVerificationFixture(t, testAccount())

	result := fx.service.RequestCode(context.Background(), "(11) 98765-4321")

	require.True(t, result.Success)
	assert.Equal(t, services.MsgCodeSent, result.Message)
	assert.Len(t, result.DevCode, 6)
	require.Len(t, fx.sender.sent, 1)
	assert.Contains(t, fx.sender.sent[0], "+5511987654321")
	assert.Contains(t, fx.sender.sent[0], result.DevCode)
}

func TestRequestCode_InvalidPhone(t *testing.T) {
	fx := newVerificationFixture(t)

	result := fx.service.RequestCode(context.Background(), "12345")

	assert.False(t, result.Success)
	assert.Equal(t, services.MsgInvalidPhone, result.Message)
	assert.Empty(t, fx.sender.sent)
}

func TestRequestCode_NoAccount(t *testing.T) {
	fx := newVerificationFixture(t)

	result := fx.service.RequestCode(context.Background(), "(11) 98765-4321")

	assert.False(t, result.Success)
	assert.Equal(t, services.MsgNoAccount, result.Message)
}

func TestRequestCode_FindsLegacyUnnormalizedRow(t *testing.T) {
	legacy := testAccount()
	legacy.Phone = "(11) 98765-4321" // stored exactly as typed at signup
	fx := newVerificationFixture(t, legacy)

	result := fx.service.RequestCode(context.Background(), "(11) 98765-4321")

	require.True(t, result.Success)

	// The code must verify against the same unnormalized row.
	verify := fx.service.VerifyCode(context.Background(), "(11) 98765-4321", result.DevCode)
	assert.True(t, verify.Success)
	assert.Equal(t, "acc-1", verify.AccountID)
}

func TestRequestCode_SixthCallRateLimited(t *testing.T) {
	fx := newVerificationFixture(t, testAccount())
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		result := fx.service.RequestCode(ctx, "(11) 98765-4321")
		assert.True(t, result.Success, "call %d", i+1)
	}

	result := fx.service.RequestCode(ctx, "(11) 98765-4321")
	assert.False(t, result.Success)
	assert.Equal(t, services.MsgRateLimited, result.Message)
}

func TestRequestCode_SendFailureKeepsCodeValid(t *testing.T) {
	fx := newVerificationFixture(t, testAccount())
	fx.sender.fail = true

	result := fx.service.RequestCode(context.Background(), "(11) 98765-4321")

	assert.False(t, result.Success)
	assert.Equal(t, services.MsgSendFailed, result.Message)

	// The code was persisted before dispatch; it still verifies.
	stored := fx.accounts.byID["acc-1"].VerificationCode
	require.NotNil(t, stored)

	verify := fx.service.VerifyCode(context.Background(), "(11) 98765-4321", *stored)
	assert.True(t, verify.Success)
}

func TestRequestCode_PersistenceFailureUsesFallback(t *testing.T) {
	fx := newVerificationFixture(t, testAccount())
	fx.accounts.failSet = true

	result := fx.service.RequestCode(context.Background(), "(11) 98765-4321")

	require.True(t, result.Success)
	assert.NotEmpty(t, result.DevCode)

	verify := fx.service.VerifyCode(context.Background(), "(11) 98765-4321", result.DevCode)
	assert.True(t, verify.Success)
	assert.Equal(t, "acc-1", verify.AccountID)

	// Fallback codes are single use too.
	again := fx.service.VerifyCode(context.Background(), "(11) 98765-4321", result.DevCode)
	assert.False(t, again.Success)
	assert.Equal(t, services.MsgCodeInvalid, again.Message)
}

func TestVerifyCode_SingleUse(t *testing.T) {
	fx := newVerificationFixture(t, testAccount())
	ctx := context.Background()

	issued := fx.service.RequestCode(ctx, "(11) 98765-4321")
	require.True(t, issued.Success)

	first := fx.service.VerifyCode(ctx, "(11) 98765-4321", issued.DevCode)
	require.True(t, first.Success)
	assert.Equal(t, "acc-1", first.AccountID)

	second := fx.service.VerifyCode(ctx, "(11) 98765-4321", issued.DevCode)
	assert.False(t, second.Success)
	assert.Equal(t, services.MsgCodeInvalid, second.Message)
}

func TestVerifyCode_NewCodeFencesOldOne(t *testing.T) {
	fx := newVerificationFixture(t, testAccount())
	ctx := context.Background()

	first := fx.service.RequestCode(ctx, "(11) 98765-4321")
	require.True(t, first.Success)
	second := fx.service.RequestCode(ctx, "(11) 98765-4321")
	require.True(t, second.Success)

	if first.DevCode == second.DevCode {
		t.Skip("codes collided; fencing indistinguishable this run")
	}

	stale := fx.service.VerifyCode(ctx, "(11) 98765-4321", first.DevCode)
	assert.False(t, stale.Success)

	fresh := fx.service.VerifyCode(ctx, "(11) 98765-4321", second.DevCode)
	assert.True(t, fresh.Success)
}

func TestVerifyCode_ExpiredCodeClearedAndRejected(t *testing.T) {
	fx := newVerificationFixture(t, testAccount())
	ctx := context.Background()

	issued := fx.service.RequestCode(ctx, "(11) 98765-4321")
	require.True(t, issued.Success)

	*fx.clock = fx.now.Add(16 * time.Minute)

	result := fx.service.VerifyCode(ctx, "(11) 98765-4321", issued.DevCode)
	assert.False(t, result.Success)
	assert.Equal(t, services.MsgCodeExpired, result.Message)

	// Cleared on the expiry check; the same digits now hit the generic path.
	again := fx.service.VerifyCode(ctx, "(11) 98765-4321", issued.DevCode)
	assert.Equal(t, services.MsgCodeInvalid, again.Message)
}

func TestVerifyCode_MalformedCodeSkipsStorage(t *testing.T) {
	fx := newVerificationFixture(t, testAccount())
	ctx := context.Background()

	before := fx.accounts.lookupCalls
	for _, code := range []string{"", "12345", "1234567", "12345a", "abcdef"} {
		result := fx.service.VerifyCode(ctx, "(11) 98765-4321", code)
		assert.False(t, result.Success)
		assert.Equal(t, services.MsgCodeMalformed, result.Message)
	}

	assert.Equal(t, before, fx.accounts.lookupCalls)
}

func TestVerifyCode_WrongCode(t *testing.T) {
	fx := newVerificationFixture(t, testAccount())
	ctx := context.Background()

	issued := fx.service.RequestCode(ctx, "(11) 98765-4321")
	require.True(t, issued.Success)

	wrong := "000000"
	if issued.DevCode == wrong {
		wrong = "000001"
	}

	result := fx.service.VerifyCode(ctx, "(11) 98765-4321", wrong)
	assert.False(t, result.Success)
	assert.Equal(t, services.MsgCodeInvalid, result.Message)
}

func TestRateLimitStats(t *testing.T) {
	fx := newVerificationFixture(t, testAccount())
	ctx := context.Background()

	stats, ok := fx.service.RateLimitStats(ctx, "(11) 98765-4321")
	require.True(t, ok)
	assert.Equal(t, 5, stats.Remaining)

	fx.service.RequestCode(ctx, "(11) 98765-4321")

	stats, ok = fx.service.RateLimitStats(ctx, "(11) 98765-4321")
	require.True(t, ok)
	assert.Equal(t, 4, stats.Remaining)

	_, ok = fx.service.RateLimitStats(ctx, "not-a-phone")
	assert.False(t, ok)
}

func TestClearRateLimit(t *testing.T) {
	fx := newVerificationFixture(t, testAccount())
	ctx := context.Background()

	for i := 0; i < 6; i++ {
		fx.service.RequestCode(ctx, "(11) 98765-4321")
	}
	denied := fx.service.RequestCode(ctx, "(11) 98765-4321")
	require.Equal(t, services.MsgRateLimited, denied.Message)

	require.NoError(t, fx.service.ClearRateLimit(ctx, "(11) 98765-4321"))

	allowed := fx.service.RequestCode(ctx, "(11) 98765-4321")
	assert.True(t, allowed.Success)
}

func TestProductionNeverDisclosesCode(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	store := newFakeAccountStore(testAccount())
	limiter := ratelimit.NewLimiter(ratelimit.NewMemoryStore(), ratelimit.DefaultConfig(), logger)
	service := services.NewVerificationService(
		store, limiter, &fakeSender{}, services.NewMemoryCodeStore(), logger, 15*time.Minute, true)

	result := service.RequestCode(context.Background(), "(11) 98765-4321")

	require.True(t, result.Success)
	assert.Empty(t, result.DevCode)
}
