package auth

import (
	"context"

	"github.com/mudanzasalegre/Dripio/internal/domain"
)

type walletKey struct{}

func ContextWithWallet(ctx context.Context, w domain.Wallet) context.Context {
	return context.WithValue(ctx, walletKey{}, w)
}

func WalletFromContext(ctx context.Context) (domain.Wallet, bool) {
	w, ok := ctx.Value(walletKey{}).(domain.Wallet)
	return w, ok
}
