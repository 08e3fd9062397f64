package agent

// Loop bounds. MaxSteps is a hard upper bound on reasoning steps per
// query; MaxRetries bounds momentum-driven regeneration of a final
// candidate within one query.
const (
	DefaultMaxSteps   = 10
	DefaultMaxRetries = 2
)

// ExhaustedMessage is returned verbatim when the step budget runs out.
const ExhaustedMessage = "I'm sorry, I wasn't able to work out a useful answer within my reasoning budget. Could you rephrase the question or break it into smaller parts?"

// Config holds per-agent settings. Build it once; the agent copies it.
type Config struct {
	MaxSteps   int
	MaxRetries int
}

// DefaultAgentConfig returns the standard loop bounds.
func DefaultAgentConfig() Config {
	return Config{
		MaxSteps:   DefaultMaxSteps,
		MaxRetries: DefaultMaxRetries,
	}
}

func (c Config) withDefaults() Config {
	if c.MaxSteps <= 0 {
		c.MaxSteps = DefaultMaxSteps
	}
	if c.MaxRetries < 0 {
		c.MaxRetries = DefaultMaxRetries
	}
	return c
}
