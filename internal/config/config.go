package config

import "time"

// Config is the root configuration for the nexus coordination service.
type Config struct {
	Log         LogConfig                     `mapstructure:"log"`
	State       StateConfig                   `mapstructure:"state"`
	Reports     ReportsConfig                 `mapstructure:"reports"`
	API         APIConfig                     `mapstructure:"api"`
	Knowledge   KnowledgeConfig               `mapstructure:"knowledge"`
	Synthesizer SynthesizerConfig             `mapstructure:"synthesizer"`
	Consensus   ConsensusConfig               `mapstructure:"consensus"`
	Swarms      map[string]SwarmCommandConfig `mapstructure:"swarms"`
	Bus         BusConfig                     `mapstructure:"bus"`
	Router      RouterConfig                  `mapstructure:"router"`
}

// LogConfig controls structured logging output.
type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // json, text, auto
}

// StateConfig locates persistent state on disk.
type StateConfig struct {
	Dir       string `mapstructure:"dir"`
	ResultsDB string `mapstructure:"results_db"`
}

// ReportsConfig controls pipeline report artifacts.
type ReportsConfig struct {
	Dir string `mapstructure:"dir"`
}

// APIConfig controls the HTTP surface.
type APIConfig struct {
	Enabled        bool     `mapstructure:"enabled"`
	Addr           string   `mapstructure:"addr"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// KnowledgeConfig points at the knowledge service that answers
// context queries on behalf of swarm gateways.
type KnowledgeConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// SynthesizerConfig configures the external CLI used for
// debate-style consensus synthesis. When Command is empty,
// synthesis-backed methods fall back to majority vote.
type SynthesizerConfig struct {
	Command string        `mapstructure:"command"`
	Args    []string      `mapstructure:"args"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// ConsensusConfig carries the default consensus settings applied
// when a pipeline stage does not override them.
type ConsensusConfig struct {
	Method          string  `mapstructure:"method"`
	MinAgreement    float64 `mapstructure:"min_agreement"`
	MaxIterations   int     `mapstructure:"max_iterations"`
	SupervisorAgent string  `mapstructure:"supervisor_agent"`
	AllowDissent    bool    `mapstructure:"allow_dissent"`
}

// SwarmCommandConfig wires a named swarm to an external command that
// performs the actual agent work. Swarms without a command entry are
// registered as inert and produce no outputs.
type SwarmCommandConfig struct {
	Command string        `mapstructure:"command"`
	Args    []string      `mapstructure:"args"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// BusConfig tunes the event bus.
type BusConfig struct {
	PollInterval     time.Duration `mapstructure:"poll_interval"`
	ActivityCapacity int           `mapstructure:"activity_capacity"`
}

// RouterConfig tunes the message router.
type RouterConfig struct {
	MessageLogCapacity int `mapstructure:"message_log_capacity"`
}
