package main

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/ternarybob/arbor"
)

type recordingCloser struct {
	calls *[]string
	err   error
}

func (c recordingCloser) Close() error {
	*c.calls = append(*c.calls, "close")
	return c.err
}

func TestShutdown_ClosesBeforeExit(t *testing.T) {
	original := exit
	t.Cleanup(func() { exit = original })

	tests := []struct {
		name     string
		code     int
		closeErr error
		want     []string
	}{
		{"failed run", 1, nil, []string{"close", "exit 1"}},
		{"close error still exits", 1, assert.AnError, []string{"close", "exit 1"}},
		{"clean run", 0, nil, []string{"close"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls []string
			exit = func(code int) {
				calls = append(calls, "exit "+strconv.Itoa(code))
			}

			shutdown(recordingCloser{calls: &calls, err: tt.closeErr}, tt.code, arbor.NewLogger())

			assert.Equal(t, tt.want, calls)
		})
	}
}
