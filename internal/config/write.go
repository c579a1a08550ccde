package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/renameio/v2"
	"gopkg.in/yaml.v3"
)

// starterConfig is the shape written by WriteStarter. It exists so the
// generated file carries yaml keys matching what the loader reads,
// without committing the runtime Config type to yaml tags.
type starterConfig struct {
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
	State struct {
		Dir       string `yaml:"dir"`
		ResultsDB string `yaml:"results_db"`
	} `yaml:"state"`
	Reports struct {
		Dir string `yaml:"dir"`
	} `yaml:"reports"`
	API struct {
		Enabled        bool     `yaml:"enabled"`
		Addr           string   `yaml:"addr"`
		AllowedOrigins []string `yaml:"allowed_origins"`
	} `yaml:"api"`
	Knowledge struct {
		BaseURL string `yaml:"base_url"`
		Timeout string `yaml:"timeout"`
	} `yaml:"knowledge"`
	Synthesizer struct {
		Command string   `yaml:"command"`
		Args    []string `yaml:"args"`
		Timeout string   `yaml:"timeout"`
	} `yaml:"synthesizer"`
	Consensus struct {
		Method        string  `yaml:"method"`
		MinAgreement  float64 `yaml:"min_agreement"`
		MaxIterations int     `yaml:"max_iterations"`
		AllowDissent  bool    `yaml:"allow_dissent"`
	} `yaml:"consensus"`
}

// WriteStarter writes a commented starter config to path, atomically.
// It refuses to overwrite an existing file.
func WriteStarter(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists: %s", path)
	}

	var sc starterConfig
	sc.Log.Level = "info"
	sc.Log.Format = "auto"
	sc.State.Dir = ".nexus"
	sc.State.ResultsDB = ".nexus/results.db"
	sc.Reports.Dir = ".nexus/reports"
	sc.API.Enabled = true
	sc.API.Addr = "127.0.0.1:8787"
	sc.API.AllowedOrigins = []string{"http://localhost:3000"}
	sc.Knowledge.BaseURL = "http://127.0.0.1:8600"
	sc.Knowledge.Timeout = "10s"
	sc.Synthesizer.Command = ""
	sc.Synthesizer.Args = []string{}
	sc.Synthesizer.Timeout = "2m"
	sc.Consensus.Method = "majority_vote"
	sc.Consensus.MinAgreement = 0.5
	sc.Consensus.MaxIterations = 3
	sc.Consensus.AllowDissent = true

	data, err := yaml.Marshal(&sc)
	if err != nil {
		return fmt.Errorf("marshaling starter config: %w", err)
	}

	header := []byte("# nexus coordination service configuration.\n# Values may also be set via NEXUS_* environment variables.\n")
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return err
		}
	}
	return renameio.WriteFile(path, append(header, data...), 0o640)
}
