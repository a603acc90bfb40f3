package generator

// Config drives the synthetic data generator.
type Config struct {
	NumUsers       int
	NumDebts       int
	PersonalChance float64
	ConfirmChance  float64
	WitnessChance  float64
	Seed           int64
}

// DefaultConfig returns settings sized for a local demo database.
func DefaultConfig() Config {
	return Config{
		NumUsers:       200,
		NumDebts:       1000,
		PersonalChance: 0.3,
		ConfirmChance:  0.7,
		WitnessChance:  0.2,
		Seed:           42,
	}
}
