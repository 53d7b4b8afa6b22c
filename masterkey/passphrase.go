package masterkey

import (
	"context"
	"errors"
)

// PassphraseSource supplies the user's passphrase. It is the only point where
// the engine may block on a person; implementations decide how to ask.
// confirm is set when a new passphrase is being chosen.
type PassphraseSource interface {
	Passphrase(ctx context.Context, prompt string, confirm bool) ([]byte, error)
}

// PassphraseFunc adapts a function to PassphraseSource.
type PassphraseFunc func(ctx context.Context, prompt string, confirm bool) ([]byte, error)

func (f PassphraseFunc) Passphrase(ctx context.Context, prompt string, confirm bool) ([]byte, error) {
	return f(ctx, prompt, confirm)
}

// StaticPassphrase always returns the same passphrase.
type StaticPassphrase []byte

func (s StaticPassphrase) Passphrase(ctx context.Context, _ string, _ bool) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(s) == 0 {
		return nil, errors.New("masterkey: empty static passphrase")
	}
	return append([]byte(nil), s...), nil
}
