package auth

import (
	"context"
	goerrors "errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"campus-relay/contract"
	"campus-relay/domain"
	"campus-relay/errors"

	"github.com/golang-jwt/jwt/v5"
)

// Authenticator validates a bearer credential and resolves it into the
// identity a session is bound to. It has no session or room side effects:
// on any failure the caller simply rejects the handshake.
type Authenticator struct {
	directory contract.AccountDirectory
	timeout   time.Duration
	log       *slog.Logger
}

func NewAuthenticator(directory contract.AccountDirectory, timeout time.Duration, log *slog.Logger) *Authenticator {
	return &Authenticator{directory: directory, timeout: timeout, log: log}
}

// Resolve verifies the credential and looks the account up in the
// directory. The lookup is bounded by the configured timeout; a directory
// that does not answer in time fails closed as an expired credential.
func (a *Authenticator) Resolve(ctx context.Context, credential string) (domain.Identity, error) {
	if strings.TrimSpace(credential) == "" {
		return domain.Identity{}, errors.ErrCredentialMissing
	}

	claims, err := ValidateToken(credential)
	if err != nil {
		if goerrors.Is(err, jwt.ErrTokenExpired) {
			return domain.Identity{}, errors.ErrCredentialExpired
		}
		return domain.Identity{}, fmt.Errorf("%w: %v", errors.ErrCredentialInvalid, err)
	}

	lookupCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	identity, err := a.directory.Resolve(lookupCtx, claims.AccountID)
	if err != nil {
		if goerrors.Is(err, context.DeadlineExceeded) {
			a.log.Warn("directory lookup timed out", "account_id", claims.AccountID)
			return domain.Identity{}, errors.ErrCredentialExpired
		}
		return domain.Identity{}, fmt.Errorf("%w: %s", errors.ErrAccountNotFound, claims.AccountID)
	}

	return identity, nil
}

// BearerFromRequest extracts the credential from connection metadata: the
// standard Authorization header, or the token query parameter for browser
// WebSocket clients that cannot set headers.
func BearerFromRequest(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		return strings.TrimPrefix(h, "Bearer ")
	}
	return r.URL.Query().Get("token")
}
