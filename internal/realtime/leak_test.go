//go:build !integration

package realtime

import (
	"testing"

	"go.uber.org/goleak"
)

// Integration runs share the process with container reapers, so leak
// checks only apply to the unit suite.
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}
