package http

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/expohall/expohall/internal/identity/domain"
	"github.com/expohall/expohall/internal/identity/service"
	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/require"
)

// signupUser registers an account and returns its session body.
func signupUser(t *testing.T, router *Router, email string) sessionBody {
	t.Helper()

	w := do(t, router, testRequest{
		method: http.MethodPost,
		path:   "/api/auth/signup",
		body:   map[string]string{"email": email, "password": "hunter2hunter2", "name": "2FA User"},
	})
	require.Equal(t, http.StatusCreated, w.Code)
	return decodeBody[sessionBody](t, w)
}

func TestTwoFactorEndpoints(t *testing.T) {
	t.Parallel()

	router, _ := newTestRouter(t)
	session := signupUser(t, router, "totp@example.com")

	w := do(t, router, testRequest{
		method: http.MethodPost,
		path:   "/api/auth/2fa/setup",
		bearer: session.AccessToken,
	})
	require.Equal(t, http.StatusOK, w.Code)

	setup := decodeBody[twoFactorSetupBody](t, w)
	require.NotEmpty(t, setup.Secret)
	require.Contains(t, setup.OTPAuthURL, "otpauth://totp/")
	require.Equal(t, "totp@example.com", setup.Account)

	code := func() string {
		c, err := totp.GenerateCode(setup.Secret, time.Now())
		require.NoError(t, err)
		return c
	}

	t.Run("complete rejects a wrong code", func(t *testing.T) {
		w := do(t, router, testRequest{
			method: http.MethodPost,
			path:   "/api/auth/2fa/setup/complete",
			bearer: session.AccessToken,
			body:   map[string]string{"code": "000000"},
		})
		require.Equal(t, http.StatusBadRequest, w.Code)
		require.Equal(t, service.CodeInvalidCode, errorCode(t, w))
	})

	w = do(t, router, testRequest{
		method: http.MethodPost,
		path:   "/api/auth/2fa/setup/complete",
		bearer: session.AccessToken,
		body:   map[string]string{"code": code()},
	})
	require.Equal(t, http.StatusOK, w.Code)

	issued := decodeBody[completeSetupBody](t, w)
	require.True(t, issued.Enabled)
	require.Len(t, issued.BackupCodes, service.BackupCodeCount)

	t.Run("me reports two-factor enabled", func(t *testing.T) {
		w := do(t, router, testRequest{
			method: http.MethodGet,
			path:   "/api/auth/me",
			bearer: session.AccessToken,
		})
		require.Equal(t, http.StatusOK, w.Code)
		require.True(t, decodeBody[userBody](t, w).TwoFactorEnabled)
	})

	t.Run("verify with totp code", func(t *testing.T) {
		w := do(t, router, testRequest{
			method: http.MethodPost,
			path:   "/api/auth/2fa/verify",
			bearer: session.AccessToken,
			body:   map[string]string{"code": code()},
		})
		require.Equal(t, http.StatusOK, w.Code)

		body := decodeBody[verificationBody](t, w)
		require.True(t, body.Verified)
		require.Equal(t, string(domain.VerifyMethodTOTP), body.Method)
		require.Nil(t, body.BackupCodesRemaining)
	})

	t.Run("verify with backup code reports remaining", func(t *testing.T) {
		w := do(t, router, testRequest{
			method: http.MethodPost,
			path:   "/api/auth/2fa/verify",
			bearer: session.AccessToken,
			body:   map[string]string{"code": issued.BackupCodes[0]},
		})
		require.Equal(t, http.StatusOK, w.Code)

		body := decodeBody[verificationBody](t, w)
		require.Equal(t, string(domain.VerifyMethodBackupCode), body.Method)
		require.NotNil(t, body.BackupCodesRemaining)
		require.Equal(t, service.BackupCodeCount-1, *body.BackupCodesRemaining)
	})

	t.Run("regenerate replaces the set", func(t *testing.T) {
		w := do(t, router, testRequest{
			method: http.MethodPost,
			path:   "/api/auth/2fa/backup-codes",
			bearer: session.AccessToken,
			body:   map[string]string{"code": code()},
		})
		require.Equal(t, http.StatusOK, w.Code)

		fresh := decodeBody[backupCodesBody](t, w)
		require.Len(t, fresh.BackupCodes, service.BackupCodeCount)

		// A code from the original set is no longer valid
		w = do(t, router, testRequest{
			method: http.MethodPost,
			path:   "/api/auth/2fa/verify",
			bearer: session.AccessToken,
			body:   map[string]string{"code": issued.BackupCodes[1]},
		})
		require.Equal(t, http.StatusBadRequest, w.Code)
		require.Equal(t, service.CodeInvalidBackupCode, errorCode(t, w))
	})

	t.Run("disable turns it off", func(t *testing.T) {
		w := do(t, router, testRequest{
			method: http.MethodDelete,
			path:   "/api/auth/2fa",
			bearer: session.AccessToken,
			body:   map[string]string{"code": code()},
		})
		require.Equal(t, http.StatusNoContent, w.Code)

		w = do(t, router, testRequest{
			method: http.MethodGet,
			path:   "/api/auth/me",
			bearer: session.AccessToken,
		})
		require.False(t, decodeBody[userBody](t, w).TwoFactorEnabled)
	})
}

func TestTwoFactorRequiresActiveUser(t *testing.T) {
	t.Parallel()

	router, st := newTestRouter(t)

	t.Run("unauthenticated", func(t *testing.T) {
		w := do(t, router, testRequest{method: http.MethodPost, path: "/api/auth/2fa/setup"})
		require.Equal(t, http.StatusUnauthorized, w.Code)
		require.Equal(t, service.CodeUnauthenticated, errorCode(t, w))
	})

	t.Run("suspended account is refused", func(t *testing.T) {
		session := signupUser(t, router, "frozen@example.com")
		require.NoError(t, st.Users().UpdateStatus(context.Background(), session.User.ID, domain.StatusSuspended, "abuse"))

		w := do(t, router, testRequest{
			method: http.MethodPost,
			path:   "/api/auth/2fa/setup",
			bearer: session.AccessToken,
		})
		require.Equal(t, http.StatusForbidden, w.Code)
		require.Equal(t, service.CodeAccountSuspended, errorCode(t, w))
	})
}

func TestTwoFactorVerifyBeforeSetup(t *testing.T) {
	t.Parallel()

	router, _ := newTestRouter(t)
	session := signupUser(t, router, "nosetup@example.com")

	w := do(t, router, testRequest{
		method: http.MethodPost,
		path:   "/api/auth/2fa/verify",
		bearer: session.AccessToken,
		body:   map[string]string{"code": "123456"},
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, service.CodeNotStarted, errorCode(t, w))
}
