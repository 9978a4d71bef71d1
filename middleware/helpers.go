package middleware

import (
	"context"
	"errors"

	"github.com/Dosada05/run-contest/models"
)

var ErrNoAccount = errors.New("account not found in context")

// WithAccount returns ctx carrying account as the authenticated caller.
func WithAccount(ctx context.Context, account models.Address) context.Context {
	return context.WithValue(ctx, accountContextKey, account)
}

func GetAccountFromContext(ctx context.Context) (models.Address, error) {
	account, ok := ctx.Value(accountContextKey).(models.Address)
	if !ok || !account.Valid() {
		return "", ErrNoAccount
	}
	return account, nil
}
