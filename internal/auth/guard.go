package auth

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/sakif/keep-bouncing-back/internal/apperror"
	"github.com/sakif/keep-bouncing-back/internal/model"
)

// Reasons attached to Unauthenticated and Forbidden errors. They are logged
// and counted; the client only ever sees 401 or 403.
const (
	ReasonMissingToken      = "missing_token"
	ReasonInvalidToken      = "invalid_token"
	ReasonInvalidSubject    = "invalid_subject"
	ReasonUnknownAccount    = "unknown_account"
	ReasonOwnershipMismatch = "ownership_mismatch"
)

// AccountFinder is the slice of the account directory the guard needs.
type AccountFinder interface {
	FindAccountByID(ctx context.Context, id int64) (*model.Account, bool, error)
}

// Guard resolves bearer tokens to accounts.
//
// Request lifecycle:
//
//	Unauthenticated ──Authenticate──▶ Identified ──Authorize──▶ Authorized
//	                                             └────────────▶ Forbidden
//
// Nothing is kept between requests.
type Guard struct {
	tokens   *TokenService
	accounts AccountFinder
	logger   *slog.Logger
}

func NewGuard(tokens *TokenService, accounts AccountFinder, logger *slog.Logger) *Guard {
	return &Guard{tokens: tokens, accounts: accounts, logger: logger}
}

// Authenticate returns the account the token was issued to.
//
// Every failure is an apperror.ErrUnauthenticated with one of the Reason*
// constants, except a storage failure, which is returned as is.
func (g *Guard) Authenticate(ctx context.Context, rawToken string) (*model.Account, error) {
	if rawToken == "" {
		return nil, apperror.Unauthenticated(ReasonMissingToken, "authentication required")
	}

	claims, ok := g.tokens.Decode(rawToken)
	if !ok {
		return nil, apperror.Unauthenticated(ReasonInvalidToken, "could not validate credentials")
	}

	id, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || id <= 0 {
		g.logger.Warn("token with unusable subject", "jti", claims.ID)
		return nil, apperror.Unauthenticated(ReasonInvalidSubject, "could not validate credentials")
	}

	account, found, err := g.accounts.FindAccountByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("auth: loading account %d: %w", id, err)
	}
	if !found {
		// Usually a token that outlived its account.
		g.logger.Info("token for unknown account", "account_id", id, "jti", claims.ID)
		return nil, apperror.Unauthenticated(ReasonUnknownAccount, "could not validate credentials")
	}

	return account, nil
}

// Authorize is the single ownership gate in front of every update and delete:
// the authenticated account may only act on itself and what it owns.
func Authorize(current *model.Account, targetID int64) error {
	if current == nil {
		return apperror.Unauthenticated(ReasonMissingToken, "authentication required")
	}
	if current.ID != targetID {
		return apperror.Forbidden(ReasonOwnershipMismatch, "not authorized to modify this resource")
	}
	return nil
}
