package http

import (
	"encoding/json"
	"net/http"

	"github.com/expohall/expohall/internal/identity/domain"
	"github.com/expohall/expohall/internal/identity/service"
	"github.com/expohall/expohall/pkg/httpx"
	"github.com/expohall/expohall/pkg/jwtx"
)

// TwoFactorHandler serves TOTP enrollment, verification and recovery codes.
// Every endpoint requires an authenticated, active caller.
type TwoFactorHandler struct {
	TwoFactor         *service.TwoFactorService
	Resolver          *service.Resolver
	AssertionVerifier jwtx.Verifier
}

type twoFactorSetupBody struct {
	Secret     string `json:"secret"`
	OTPAuthURL string `json:"otpauthUrl"`
	Issuer     string `json:"issuer"`
	Account    string `json:"account"`
}

type codeRequest struct {
	Code string `json:"code"`
}

type backupCodesBody struct {
	BackupCodes []string `json:"backupCodes"`
}

type completeSetupBody struct {
	Enabled     bool     `json:"enabled"`
	BackupCodes []string `json:"backupCodes"`
}

type verificationBody struct {
	Verified             bool   `json:"verified"`
	Method               string `json:"method"`
	BackupCodesRemaining *int   `json:"backupCodesRemaining,omitempty"`
}

// HandleBeginSetup provisions a fresh TOTP secret for the caller.
//
//	POST /api/auth/2fa/setup
func (h *TwoFactorHandler) HandleBeginSetup(w http.ResponseWriter, r *http.Request) {
	user, err := h.requireUser(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	setup, err := h.TwoFactor.BeginSetup(r.Context(), user.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, twoFactorSetupBody{
		Secret:     setup.Secret,
		OTPAuthURL: setup.OTPAuthURL,
		Issuer:     setup.Issuer,
		Account:    setup.Account,
	})
}

// HandleCompleteSetup proves possession of the provisioned secret and turns
// two-factor on, returning the one-time view of the backup codes.
//
//	POST /api/auth/2fa/setup/complete
func (h *TwoFactorHandler) HandleCompleteSetup(w http.ResponseWriter, r *http.Request) {
	user, err := h.requireUser(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req codeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}

	codes, err := h.TwoFactor.CompleteSetup(r.Context(), user.ID, req.Code)
	if err != nil {
		writeError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, completeSetupBody{Enabled: true, BackupCodes: codes})
}

// HandleVerify checks a TOTP or backup code for the caller.
//
//	POST /api/auth/2fa/verify
func (h *TwoFactorHandler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	user, err := h.requireUser(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req codeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}

	result, err := h.TwoFactor.Verify(r.Context(), user.ID, req.Code)
	if err != nil {
		writeError(w, r, err)
		return
	}

	body := verificationBody{Verified: true, Method: string(result.Method)}
	if result.Method == domain.VerifyMethodBackupCode {
		remaining := result.BackupCodesRemaining
		body.BackupCodesRemaining = &remaining
	}
	httpx.WriteJSON(w, http.StatusOK, body)
}

// HandleDisable turns two-factor off after a final code check.
//
//	DELETE /api/auth/2fa
func (h *TwoFactorHandler) HandleDisable(w http.ResponseWriter, r *http.Request) {
	user, err := h.requireUser(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req codeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}

	if err := h.TwoFactor.Disable(r.Context(), user.ID, req.Code); err != nil {
		writeError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// HandleRegenerateBackupCodes replaces the recovery set after a code check.
// Previously issued codes stop working immediately.
//
//	POST /api/auth/2fa/backup-codes
func (h *TwoFactorHandler) HandleRegenerateBackupCodes(w http.ResponseWriter, r *http.Request) {
	user, err := h.requireUser(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req codeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}

	codes, err := h.TwoFactor.RegenerateBackupCodes(r.Context(), user.ID, req.Code)
	if err != nil {
		writeError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, backupCodesBody{BackupCodes: codes})
}

func (h *TwoFactorHandler) requireUser(r *http.Request) (*domain.User, error) {
	return h.Resolver.RequireActiveUser(r.Context(), requestCredentials(r, h.AssertionVerifier))
}
