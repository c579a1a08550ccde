package config

import (
	"fmt"
	"net"
	"net/url"
	"strings"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("config validation: %s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors collects multiple validation errors.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// HasErrors returns true if there are any validation errors.
func (e ValidationErrors) HasErrors() bool {
	return len(e) > 0
}

// Validator validates configuration.
type Validator struct {
	errors ValidationErrors
}

// NewValidator creates a new validator.
func NewValidator() *Validator {
	return &Validator{errors: make(ValidationErrors, 0)}
}

// Validate validates the entire configuration.
func (v *Validator) Validate(cfg *Config) error {
	v.validateLog(&cfg.Log)
	v.validateState(&cfg.State)
	v.validateAPI(&cfg.API)
	v.validateKnowledge(&cfg.Knowledge)
	v.validateConsensus(&cfg.Consensus)
	v.validateSwarms(cfg.Swarms)
	v.validateBus(&cfg.Bus)
	v.validateRouter(&cfg.Router)

	if v.errors.HasErrors() {
		return v.errors
	}
	return nil
}

func (v *Validator) addError(field string, value interface{}, message string) {
	v.errors = append(v.errors, ValidationError{Field: field, Value: value, Message: message})
}

func (v *Validator) validateLog(cfg *LogConfig) {
	switch cfg.Level {
	case "debug", "info", "warn", "error":
	default:
		v.addError("log.level", cfg.Level, "must be one of: debug, info, warn, error")
	}
	switch cfg.Format {
	case "json", "text", "auto":
	default:
		v.addError("log.format", cfg.Format, "must be one of: json, text, auto")
	}
}

func (v *Validator) validateState(cfg *StateConfig) {
	if cfg.Dir == "" {
		v.addError("state.dir", cfg.Dir, "must not be empty")
	}
	if cfg.ResultsDB == "" {
		v.addError("state.results_db", cfg.ResultsDB, "must not be empty")
	}
}

func (v *Validator) validateAPI(cfg *APIConfig) {
	if !cfg.Enabled {
		return
	}
	if _, _, err := net.SplitHostPort(cfg.Addr); err != nil {
		v.addError("api.addr", cfg.Addr, "must be a valid host:port address")
	}
}

func (v *Validator) validateKnowledge(cfg *KnowledgeConfig) {
	if cfg.BaseURL == "" {
		v.addError("knowledge.base_url", cfg.BaseURL, "must not be empty")
		return
	}
	u, err := url.Parse(cfg.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		v.addError("knowledge.base_url", cfg.BaseURL, "must be an absolute http(s) URL")
	}
	if cfg.Timeout <= 0 {
		v.addError("knowledge.timeout", cfg.Timeout, "must be positive")
	}
}

func (v *Validator) validateConsensus(cfg *ConsensusConfig) {
	switch cfg.Method {
	case "majority_vote", "weighted_average", "debate_and_refine", "supervisor_decision":
	default:
		v.addError("consensus.method", cfg.Method,
			"must be one of: majority_vote, weighted_average, debate_and_refine, supervisor_decision")
	}
	if cfg.MinAgreement < 0 || cfg.MinAgreement > 1 {
		v.addError("consensus.min_agreement", cfg.MinAgreement, "must be between 0 and 1")
	}
	if cfg.MaxIterations < 1 {
		v.addError("consensus.max_iterations", cfg.MaxIterations, "must be at least 1")
	}
}

func (v *Validator) validateSwarms(swarms map[string]SwarmCommandConfig) {
	for name, sc := range swarms {
		if sc.Command == "" {
			v.addError("swarms."+name+".command", sc.Command, "must not be empty")
		}
		if sc.Timeout < 0 {
			v.addError("swarms."+name+".timeout", sc.Timeout, "must not be negative")
		}
	}
}

func (v *Validator) validateBus(cfg *BusConfig) {
	if cfg.PollInterval <= 0 {
		v.addError("bus.poll_interval", cfg.PollInterval, "must be positive")
	}
	if cfg.ActivityCapacity < 1 {
		v.addError("bus.activity_capacity", cfg.ActivityCapacity, "must be at least 1")
	}
}

func (v *Validator) validateRouter(cfg *RouterConfig) {
	if cfg.MessageLogCapacity < 1 {
		v.addError("router.message_log_capacity", cfg.MessageLogCapacity, "must be at least 1")
	}
}
