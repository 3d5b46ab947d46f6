package stats

import (
	"testing"

	"go.uber.org/goleak"
)

// TestMain runs goleak after all tests of the package.
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}
