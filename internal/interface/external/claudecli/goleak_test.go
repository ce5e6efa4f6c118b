package claudecli

import (
	"testing"

	"go.uber.org/goleak"
)

// Every test here starts a subprocess; none may leave its wait goroutine behind
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}
