package modes

type Mode uint8

const (
	ModeProduction Mode = iota + 1
	ModeDevelopment
)

func (m Mode) String() string {
	switch m {
	case ModeProduction:
		return "production"
	case ModeDevelopment:
		return "development"
	}
	return "unknown"
}

// Verbose reports whether sessions should log every run stage.
func (m Mode) Verbose() bool {
	return m == ModeDevelopment
}
