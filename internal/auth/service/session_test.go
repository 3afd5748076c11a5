package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/voluntree/voluntree/internal/auth/domain"
	"github.com/voluntree/voluntree/internal/auth/store/drivers/sqlite"
	"github.com/voluntree/voluntree/pkg/jwtx"
)

const testIssuer = "voluntree-auth"

func newSessionService(t *testing.T, clk *testClock) (*SessionService, *CredentialsService, *sqlite.Store) {
	t.Helper()

	s := newServiceStore(t)
	signer, err := jwtx.NewHS256([]byte("0123456789abcdef0123456789abcdef"), testIssuer)
	require.NoError(t, err)

	svc := &SessionService{
		Store:   s,
		Signer:  signer,
		Logger:  discardLogger(),
		HashKey: []byte("fedcba9876543210fedcba9876543210"),
		Issuer:  testIssuer,
		Now:     clk.Now,
	}
	return svc, &CredentialsService{Store: s}, s
}

func TestSession_StartMintsVerifiablePair(t *testing.T) {
	clk := newTestClock()
	svc, creds, _ := newSessionService(t, clk)
	ctx := context.Background()
	acct := registerAccount(t, creds, "maria@example.org")

	pair, err := svc.Start(ctx, acct)
	require.NoError(t, err)
	assert.NotEmpty(t, pair.AccessToken)
	assert.NotEmpty(t, pair.RefreshToken)
	assert.Equal(t, jwtx.DefaultAccessTokenTTL, pair.AccessTTL)

	claims, err := svc.Signer.(*jwtx.HS256).Verify(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, acct.ID, claims.AccountID())
	assert.Equal(t, domain.RoleVolunteer, claims.Role)
	assert.NotEmpty(t, claims.SID)
}

func TestSession_RotateKeepsSessionID(t *testing.T) {
	clk := newTestClock()
	svc, creds, _ := newSessionService(t, clk)
	ctx := context.Background()
	acct := registerAccount(t, creds, "maria@example.org")

	pair, err := svc.Start(ctx, acct)
	require.NoError(t, err)

	verifier := svc.Signer.(*jwtx.HS256)
	before, err := verifier.Verify(pair.AccessToken)
	require.NoError(t, err)

	clk.Advance(time.Minute)

	rotated, gotAcct, err := svc.Rotate(ctx, pair.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, acct.ID, gotAcct.ID)
	assert.NotEqual(t, pair.RefreshToken, rotated.RefreshToken)

	after, err := verifier.Verify(rotated.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, before.SID, after.SID, "the lineage id survives rotation")
}

func TestSession_RotateReplayRejected(t *testing.T) {
	clk := newTestClock()
	svc, creds, _ := newSessionService(t, clk)
	ctx := context.Background()
	acct := registerAccount(t, creds, "maria@example.org")

	pair, err := svc.Start(ctx, acct)
	require.NoError(t, err)

	rotated, _, err := svc.Rotate(ctx, pair.RefreshToken)
	require.NoError(t, err)

	// Replaying the consumed token fails; the rotated one still works.
	_, _, err = svc.Rotate(ctx, pair.RefreshToken)
	assert.ErrorIs(t, err, ErrSessionInvalid)

	_, _, err = svc.Rotate(ctx, rotated.RefreshToken)
	assert.NoError(t, err)
}

func TestSession_RotateExpired(t *testing.T) {
	clk := newTestClock()
	svc, creds, _ := newSessionService(t, clk)
	svc.RefreshTTL = time.Hour
	ctx := context.Background()
	acct := registerAccount(t, creds, "maria@example.org")

	pair, err := svc.Start(ctx, acct)
	require.NoError(t, err)

	clk.Advance(2 * time.Hour)

	_, _, err = svc.Rotate(ctx, pair.RefreshToken)
	assert.ErrorIs(t, err, ErrSessionInvalid)
}

func TestSession_RevokeIsIdempotent(t *testing.T) {
	clk := newTestClock()
	svc, creds, _ := newSessionService(t, clk)
	ctx := context.Background()
	acct := registerAccount(t, creds, "maria@example.org")

	pair, err := svc.Start(ctx, acct)
	require.NoError(t, err)

	require.NoError(t, svc.Revoke(ctx, pair.RefreshToken))
	require.NoError(t, svc.Revoke(ctx, pair.RefreshToken))
	require.NoError(t, svc.Revoke(ctx, "never-issued"))

	_, _, err = svc.Rotate(ctx, pair.RefreshToken)
	assert.ErrorIs(t, err, ErrSessionInvalid)
}

func TestSession_MultiDeviceAndRevokeAll(t *testing.T) {
	clk := newTestClock()
	svc, creds, _ := newSessionService(t, clk)
	ctx := context.Background()
	acct := registerAccount(t, creds, "maria@example.org")

	laptop, err := svc.Start(ctx, acct)
	require.NoError(t, err)
	phone, err := svc.Start(ctx, acct)
	require.NoError(t, err)

	list, err := svc.List(ctx, acct.ID, phone.RefreshToken)
	require.NoError(t, err)
	require.Len(t, list, 2)

	var current int
	for _, info := range list {
		if info.Current {
			current++
		}
	}
	assert.Equal(t, 1, current, "exactly one listed session is the caller's")

	require.NoError(t, svc.RevokeAll(ctx, acct.ID))

	_, _, err = svc.Rotate(ctx, laptop.RefreshToken)
	assert.ErrorIs(t, err, ErrSessionInvalid)
	_, _, err = svc.Rotate(ctx, phone.RefreshToken)
	assert.ErrorIs(t, err, ErrSessionInvalid)
}
