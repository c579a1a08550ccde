package cmd

import (
	"fmt"
	"os/exec"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ahouse2/co-counsel-nexus-sub001/internal/adapters/store"
	"github.com/ahouse2/co-counsel-nexus-sub001/internal/diagnostics"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check configuration and host readiness",
	Long:  "Validate configuration, verify swarm commands, probe the result store, and report host resources.",
	RunE:  runDoctor,
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}

func runDoctor(cmd *cobra.Command, _ []string) error {
	out := cmd.OutOrStdout()
	ok := true

	fmt.Fprintln(out, "Checking configuration...")
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(out, "  ✗ config: %v\n", err)
		return fmt.Errorf("configuration invalid")
	}
	fmt.Fprintln(out, "  ✓ config valid")

	fmt.Fprintln(out)
	fmt.Fprintln(out, "Checking swarm commands...")
	if len(cfg.Swarms) == 0 {
		fmt.Fprintln(out, "  ○ no swarm commands configured (stages will run inert)")
	}
	for name, sc := range cfg.Swarms {
		bin := sc.Command
		if parts := strings.Fields(bin); len(parts) > 0 {
			bin = parts[0]
		}
		if _, err := exec.LookPath(bin); err != nil {
			fmt.Fprintf(out, "  ✗ %s (%s not found)\n", name, bin)
			ok = false
		} else {
			fmt.Fprintf(out, "  ✓ %s\n", name)
		}
	}
	if cfg.Synthesizer.Command != "" {
		bin := strings.Fields(cfg.Synthesizer.Command)[0]
		if _, err := exec.LookPath(bin); err != nil {
			fmt.Fprintf(out, "  ○ synthesizer (%s not found, debate methods fall back)\n", bin)
		} else {
			fmt.Fprintln(out, "  ✓ synthesizer")
		}
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, "Checking result store...")
	if s, err := store.NewSQLiteStore(cfg.State.ResultsDB); err != nil {
		fmt.Fprintf(out, "  ✗ %s: %v\n", cfg.State.ResultsDB, err)
		ok = false
	} else {
		_ = s.Close()
		fmt.Fprintf(out, "  ✓ %s\n", cfg.State.ResultsDB)
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, "Host resources:")
	m := diagnostics.NewCollector().Collect()
	fmt.Fprintf(out, "  cpu: %d cores, %.1f%% used\n", m.CPUCores, m.CPUPercent)
	fmt.Fprintf(out, "  mem: %.0f/%.0f MB (%.1f%%)\n", m.MemUsedMB, m.MemTotalMB, m.MemPercent)
	fmt.Fprintf(out, "  disk: %.1f/%.1f GB (%.1f%%)\n", m.DiskUsedGB, m.DiskTotalGB, m.DiskPercent)
	fmt.Fprintf(out, "  load: %.2f %.2f %.2f\n", m.LoadAvg1, m.LoadAvg5, m.LoadAvg15)

	fmt.Fprintln(out)
	if !ok {
		return fmt.Errorf("some checks failed")
	}
	fmt.Fprintln(out, "All checks passed.")
	return nil
}
