package auth

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/thehashrocket/kirk-analytics/internal/models"
	"github.com/thehashrocket/kirk-analytics/internal/storage"
)

// ErrAccountNotAccessible covers both "account does not exist" and "caller
// lacks the binding". The two cases are deliberately indistinguishable to
// callers so probing requests leak nothing about which accounts exist.
var ErrAccountNotAccessible = errors.New("account not accessible")

// Guard performs access scoping over client/account bindings. The analytics
// layer trusts the guard entirely and performs no authorization itself.
type Guard struct {
	accounts storage.AccountStore
	logger   *zap.Logger
}

// NewGuard creates a new access guard.
func NewGuard(accounts storage.AccountStore, logger *zap.Logger) *Guard {
	return &Guard{accounts: accounts, logger: logger}
}

// Account resolves an account ID the caller is permitted to query.
// Unexpected store errors propagate unchanged.
func (g *Guard) Account(ctx context.Context, scope Scope, accountID string) (*models.ChannelAccount, error) {
	account, err := g.accounts.GetAccount(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("looking up account: %w", err)
	}
	if account == nil {
		return nil, ErrAccountNotAccessible
	}

	switch scope.Kind {
	case ScopeAdmin:
		return account, nil

	case ScopeClient:
		bound, err := g.accounts.IsBound(ctx, scope.ClientID, accountID)
		if err != nil {
			return nil, fmt.Errorf("checking binding: %w", err)
		}
		if !bound {
			g.logger.Warn("account access denied",
				zap.String("client_id", scope.ClientID),
				zap.String("account_id", accountID),
			)
			return nil, ErrAccountNotAccessible
		}
		return account, nil

	case ScopeAccountRep:
		visible, err := g.accounts.AccountVisibleToRep(ctx, scope.RepID, accountID)
		if err != nil {
			return nil, fmt.Errorf("checking rep visibility: %w", err)
		}
		if !visible {
			g.logger.Warn("account access denied",
				zap.String("rep_id", scope.RepID),
				zap.String("account_id", accountID),
			)
			return nil, ErrAccountNotAccessible
		}
		return account, nil
	}

	return nil, ErrAccountNotAccessible
}

// Client checks that the caller may act on behalf of the given client.
func (g *Guard) Client(ctx context.Context, scope Scope, clientID string) (*models.Client, error) {
	client, err := g.accounts.GetClient(ctx, clientID)
	if err != nil {
		return nil, fmt.Errorf("looking up client: %w", err)
	}
	if client == nil {
		return nil, ErrAccountNotAccessible
	}

	switch scope.Kind {
	case ScopeAdmin:
		return client, nil
	case ScopeClient:
		if scope.ClientID == clientID {
			return client, nil
		}
	case ScopeAccountRep:
		if client.RepID != "" && client.RepID == scope.RepID {
			return client, nil
		}
	}

	g.logger.Warn("client access denied",
		zap.String("scope", string(scope.Kind)),
		zap.String("client_id", clientID),
	)
	return nil, ErrAccountNotAccessible
}
