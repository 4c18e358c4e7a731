package auth_test

import (
	"sync"
	"testing"
	"time"

	"github.com/fivetwenty-io/restpipe/internal/auth"
	"github.com/stretchr/testify/assert"
)

func TestToken_Valid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		token    *auth.Token
		expected bool
	}{
		{"nil token", nil, false},
		{"empty access token", &auth.Token{}, false},
		{"no expiry", &auth.Token{AccessToken: "t"}, true},
		{"future expiry", &auth.Token{AccessToken: "t", ExpiresAt: time.Now().Add(time.Hour)}, true},
		{"expired", &auth.Token{AccessToken: "t", ExpiresAt: time.Now().Add(-time.Hour)}, false},
		{"inside expiry buffer", &auth.Token{AccessToken: "t", ExpiresAt: time.Now().Add(15 * time.Second)}, false},
		{"outside expiry buffer", &auth.Token{AccessToken: "t", ExpiresAt: time.Now().Add(45 * time.Second)}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, tt.token.Valid())
		})
	}
}

func TestTokenStore(t *testing.T) {
	t.Parallel()

	store := auth.NewTokenStore()
	assert.Nil(t, store.Get())

	var wg sync.WaitGroup

	for _, value := range []string{"token-1", "token-2"} {
		wg.Add(2)

		go func() {
			defer wg.Done()

			for range 100 {
				store.Set(&auth.Token{AccessToken: value})
			}
		}()

		go func() {
			defer wg.Done()

			for range 100 {
				_ = store.Get()
			}
		}()
	}

	wg.Wait()

	final := store.Get()
	if assert.NotNil(t, final) {
		assert.Contains(t, []string{"token-1", "token-2"}, final.AccessToken)
	}

	store.Clear()
	assert.Nil(t, store.Get())
}
