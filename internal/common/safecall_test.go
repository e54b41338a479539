package common

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/ternarybob/arbor"
)

func TestSafeCall(t *testing.T) {
	logger := arbor.NewLogger()

	assert.NoError(t, SafeCall(logger, "ok", func() error { return nil }))

	sentinel := errors.New("boom")
	assert.ErrorIs(t, SafeCall(logger, "err", func() error { return sentinel }), sentinel)

	err := SafeCall(logger, "panic", func() error { panic("kaboom") })
	assert.ErrorContains(t, err, "panic in panic: kaboom")
}
