package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/expohall/expohall/internal/identity/domain"
	"github.com/expohall/expohall/internal/identity/service"
	"github.com/expohall/expohall/pkg/httpx"
	"github.com/expohall/expohall/pkg/slogx"
)

// errorBody is the structured failure payload. Kind and status always
// accompany the message; stack traces and internal identifiers never do.
type errorBody struct {
	Error  string `json:"error"`
	Code   string `json:"code"`
	Status int    `json:"status"`
}

// writeError maps typed auth failures to their transport status. Anything
// else is an internal failure and collapses to a generic server error so
// store details never leak.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var authErr *service.AuthError
	if errors.As(err, &authErr) {
		httpx.WriteJSON(w, authErr.Status, errorBody{
			Error:  authErr.Message,
			Code:   authErr.Code,
			Status: authErr.Status,
		})
		return
	}

	slogx.FromContext(r.Context()).Error("internal error", "err", err)
	httpx.WriteJSON(w, http.StatusInternalServerError, errorBody{
		Error:  "service unavailable",
		Code:   service.CodeServerError,
		Status: http.StatusInternalServerError,
	})
}

// userBody is the client-facing user shape. Secrets and hashes stay out.
type userBody struct {
	ID               string    `json:"id"`
	Email            string    `json:"email"`
	Name             string    `json:"name"`
	Role             string    `json:"role"`
	Status           string    `json:"status"`
	TwoFactorEnabled bool      `json:"twoFactorEnabled"`
	CreatedAt        time.Time `json:"createdAt"`
}

func toUserBody(u domain.User) userBody {
	return userBody{
		ID:               u.ID,
		Email:            u.Email,
		Name:             u.DisplayName,
		Role:             string(u.Role),
		Status:           string(u.Status),
		TwoFactorEnabled: u.TwoFactorEnabled(),
		CreatedAt:        u.CreatedAt,
	}
}

// sessionBody pairs the user with the in-band access token for callers that
// cannot read cookies; both transports name the same session.
type sessionBody struct {
	User        userBody `json:"user"`
	AccessToken string   `json:"accessToken"`
}
