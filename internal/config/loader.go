package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Loader handles configuration loading from multiple sources.
type Loader struct {
	v          *viper.Viper
	configFile string
	envPrefix  string
}

// NewLoader creates a new configuration loader.
func NewLoader() *Loader {
	return &Loader{
		v:         viper.New(),
		envPrefix: "NEXUS",
	}
}

// NewLoaderWithViper creates a loader using an existing viper instance.
// This allows integration with CLI flag bindings.
func NewLoaderWithViper(v *viper.Viper) *Loader {
	return &Loader{
		v:         v,
		envPrefix: "NEXUS",
	}
}

// WithConfigFile sets an explicit config file path.
func (l *Loader) WithConfigFile(path string) *Loader {
	l.configFile = path
	return l
}

// Viper returns the underlying viper instance for flag binding.
func (l *Loader) Viper() *viper.Viper {
	return l.v
}

// Load loads configuration from all sources.
// Precedence (highest to lowest):
// 1. CLI flags (set via viper.BindPFlag)
// 2. Environment variables (NEXUS_*)
// 3. Project config (.nexus.yaml in current directory)
// 4. User config (~/.config/nexus/config.yaml)
// 5. Defaults
func (l *Loader) Load() (*Config, error) {
	l.setDefaults()

	l.v.SetEnvPrefix(l.envPrefix)
	l.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	l.v.AutomaticEnv()

	if l.configFile != "" {
		l.v.SetConfigFile(l.configFile)
	} else {
		l.v.SetConfigName(".nexus")
		l.v.SetConfigType("yaml")
		l.v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			l.v.AddConfigPath(filepath.Join(home, ".config", "nexus"))
		}
	}

	// Missing config file is fine; defaults and env cover it.
	if err := l.v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := l.v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	return &cfg, nil
}

// ConfigFileUsed returns the path of the config file read, if any.
func (l *Loader) ConfigFileUsed() string {
	return l.v.ConfigFileUsed()
}

func (l *Loader) setDefaults() {
	l.v.SetDefault("log.level", "info")
	l.v.SetDefault("log.format", "auto")

	l.v.SetDefault("state.dir", ".nexus")
	l.v.SetDefault("state.results_db", ".nexus/results.db")

	l.v.SetDefault("reports.dir", ".nexus/reports")

	l.v.SetDefault("api.enabled", true)
	l.v.SetDefault("api.addr", "127.0.0.1:8787")
	l.v.SetDefault("api.allowed_origins", []string{"http://localhost:3000"})

	l.v.SetDefault("knowledge.base_url", "http://127.0.0.1:8600")
	l.v.SetDefault("knowledge.timeout", "10s")

	l.v.SetDefault("synthesizer.command", "")
	l.v.SetDefault("synthesizer.args", []string{})
	l.v.SetDefault("synthesizer.timeout", "2m")

	l.v.SetDefault("consensus.method", "majority_vote")
	l.v.SetDefault("consensus.min_agreement", 0.5)
	l.v.SetDefault("consensus.max_iterations", 3)
	l.v.SetDefault("consensus.supervisor_agent", "")
	l.v.SetDefault("consensus.allow_dissent", true)

	l.v.SetDefault("bus.poll_interval", "100ms")
	l.v.SetDefault("bus.activity_capacity", 500)

	l.v.SetDefault("router.message_log_capacity", 500)
}
