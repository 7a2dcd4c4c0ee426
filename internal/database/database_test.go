package database

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewPoolInvalidURL(t *testing.T) {
	_, err := NewPool(context.Background(), "not a connection url")
	assert.ErrorContains(t, err, "parse db config")
}

func TestNewPoolUnreachableReturnsAfterLastAttempt(t *testing.T) {
	old := connectRetryDelay
	connectRetryDelay = time.Millisecond
	t.Cleanup(func() { connectRetryDelay = old })

	// Port 1 refuses immediately, so the duration is dominated by the
	// inter-attempt delays. No delay follows the final attempt.
	start := time.Now()
	_, err := NewPool(context.Background(), "postgres://postgres@127.0.0.1:1/nope?connect_timeout=1")
	assert.ErrorContains(t, err, "connect to postgres")
	assert.Less(t, time.Since(start), 10*time.Second)
}
