// -----------------------------------------------------------------------
// Safe Call - panic-protected invocation for per-item work
// -----------------------------------------------------------------------

package common

import (
	"fmt"
	"runtime"

	"github.com/ternarybob/arbor"
)

// SafeCall runs fn and converts a panic into an error so one report item
// cannot take the whole run down.
func SafeCall(logger arbor.ILogger, name string, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)

			if logger != nil {
				logger.Error().
					Str("call", name).
					Str("panic", fmt.Sprintf("%v", r)).
					Str("stack", string(buf[:n])).
					Msg("Recovered from panic")
			}
			err = fmt.Errorf("panic in %s: %v", name, r)
		}
	}()

	return fn()
}
