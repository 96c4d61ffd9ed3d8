package modes

import (
	"testing"

	"github.com/reusee/dscope"
)

// ModeModule provides Mode and, under tests, the current *testing.T.
type ModeModule struct {
	dscope.Module
	mode Mode
	t    *testing.T
}

func ForProduction() ModeModule {
	return ModeModule{
		mode: ModeProduction,
	}
}

// ForDevelopment enables heap checks and verbose sessions outside of tests.
func ForDevelopment() ModeModule {
	return ModeModule{
		mode: ModeDevelopment,
	}
}

func ForTest(t *testing.T) ModeModule {
	return ModeModule{
		mode: ModeDevelopment,
		t:    t,
	}
}

// Select picks the development module when dev is set.
func Select(dev bool) ModeModule {
	if dev {
		return ForDevelopment()
	}
	return ForProduction()
}

func (m ModeModule) T() *testing.T {
	return m.t
}

func (m ModeModule) Mode() Mode {
	return m.mode
}
