package common

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Veraticus/scanfill/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithRetry(t *testing.T) {
	fast := service.RetryOptions{MaxAttempts: 3, InitialDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond}
	errBoom := errors.New("boom")

	tests := []struct {
		name      string
		failures  int
		err       error
		wantCalls int
		wantErr   error
	}{
		{name: "succeeds first time", failures: 0, wantCalls: 1},
		{name: "succeeds after retries", failures: 2, err: errBoom, wantCalls: 3},
		{name: "exhausts attempts", failures: 5, err: errBoom, wantCalls: 3, wantErr: ErrMaxRetries},
		{name: "stops on non-retryable", failures: 5, err: &RetryableError{Err: errBoom, Retryable: false}, wantCalls: 1, wantErr: errBoom},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			err := WithRetry(context.Background(), func(context.Context) error {
				calls++
				if calls <= tt.failures {
					return tt.err
				}
				return nil
			}, fast)

			assert.Equal(t, tt.wantCalls, calls)
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestWithRetry_ContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := WithRetry(ctx, func(context.Context) error {
		return errors.New("transient")
	}, service.RetryOptions{MaxAttempts: 5, InitialDelay: time.Second})

	assert.ErrorIs(t, err, context.Canceled)
}

func TestUserError(t *testing.T) {
	inner := errors.New("disk full")
	err := NewUserError("Could not save cache", inner)

	assert.Equal(t, "Could not save cache: disk full", err.Error())
	assert.ErrorIs(t, err, inner)
	assert.Equal(t, "plain", NewUserError("plain", nil).Error())
}

func TestParseLevel(t *testing.T) {
	lvl, err := ParseLevel("warn")
	require.NoError(t, err)
	assert.Equal(t, "WARN", lvl.String())

	_, err = ParseLevel("loud")
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestCompileInsensitive(t *testing.T) {
	re, err := CompileInsensitive(`total:\s*([\d,]+)`)
	require.NoError(t, err)
	assert.Equal(t, []string{"TOTAL: 12,50", "12,50"}, re.FindStringSubmatch("TOTAL: 12,50"))

	_, err = CompileInsensitive("([")
	assert.ErrorIs(t, err, ErrInvalidConfig)
}
