package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"wildcam/internal/capturelog"
	"wildcam/internal/config"
	"wildcam/internal/daemon"
	"wildcam/internal/daemonrun"
	"wildcam/internal/deps"
	"wildcam/internal/preflight"
)

type daemonState struct {
	Running bool   `json:"running"`
	PID     int    `json:"pid,omitempty"`
	Lock    string `json:"lock"`
}

type statusReport struct {
	ConfigPath   string             `json:"config_path"`
	ConfigFound  bool               `json:"config_found"`
	Daemon       daemonState        `json:"daemon"`
	Dependencies []deps.Status      `json:"dependencies"`
	Checks       []preflight.Result `json:"checks"`
	Captures     *capturelog.Stats  `json:"captures,omitempty"`
}

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon, dependency, and capture log status",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			report := collectStatus(cmd.Context(), cfg)
			report.ConfigPath = ctx.configPath
			report.ConfigFound = ctx.configSeen
			if asJSON {
				return printJSON(cmd.OutOrStdout(), report)
			}
			out := cmd.OutOrStdout()
			for _, line := range renderStatus(report, shouldColorize(out)) {
				fmt.Fprintln(out, line)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Output JSON")
	return cmd
}

func collectStatus(ctx context.Context, cfg *config.Config) statusReport {
	report := statusReport{
		Daemon:       probeDaemon(cfg),
		Dependencies: preflight.CheckSystemDeps(cfg),
		Checks:       preflight.RunAll(ctx, cfg),
	}
	if _, err := os.Stat(cfg.Paths.DatabasePath); err == nil {
		if store, err := capturelog.OpenReadOnly(cfg.Paths.DatabasePath); err == nil {
			if stats, err := store.Stats(ctx); err == nil {
				report.Captures = &stats
			}
			_ = store.Close()
		}
	}
	return report
}

// probeDaemon reports a daemon as running when its lock is held.
func probeDaemon(cfg *config.Config) daemonState {
	state := daemonState{Lock: filepath.Join(cfg.Paths.LogDir, daemon.LockFileName)}
	if _, err := os.Stat(state.Lock); err != nil {
		return state
	}
	lock := flock.New(state.Lock)
	acquired, err := lock.TryLock()
	if err != nil {
		return state
	}
	if acquired {
		_ = lock.Unlock()
		return state
	}
	state.Running = true
	if raw, err := os.ReadFile(filepath.Join(cfg.Paths.LogDir, daemonrun.PIDFileName)); err == nil {
		if pid, err := strconv.Atoi(strings.TrimSpace(string(raw))); err == nil {
			state.PID = pid
		}
	}
	return state
}

func renderStatus(report statusReport, colorize bool) []string {
	var lines []string

	lines = append(lines, renderSectionHeader("Daemon", colorize)...)
	if report.Daemon.Running {
		detail := "running"
		if report.Daemon.PID > 0 {
			detail = fmt.Sprintf("running (pid %d)", report.Daemon.PID)
		}
		lines = append(lines, renderStatusLine("Daemon", statusOK, detail, colorize))
	} else {
		lines = append(lines, renderStatusLine("Daemon", statusWarn, "not running", colorize))
	}
	configDetail := report.ConfigPath
	if !report.ConfigFound {
		configDetail += " (not found, using defaults)"
	}
	lines = append(lines, renderStatusLine("Config", statusInfo, configDetail, colorize))

	lines = append(lines, "")
	lines = append(lines, renderSectionHeader("Dependencies", colorize)...)
	for _, dep := range report.Dependencies {
		switch {
		case dep.Available:
			lines = append(lines, renderStatusLine(dep.Name, statusOK, dep.Path, colorize))
		case dep.Optional:
			lines = append(lines, renderStatusLine(dep.Name, statusWarn, dep.Detail, colorize))
		default:
			lines = append(lines, renderStatusLine(dep.Name, statusError, dep.Detail, colorize))
		}
	}

	lines = append(lines, "")
	lines = append(lines, renderSectionHeader("Checks", colorize)...)
	for _, check := range report.Checks {
		kind := statusOK
		if !check.Passed {
			kind = statusError
		}
		lines = append(lines, renderStatusLine(check.Name, kind, check.Detail, colorize))
	}

	lines = append(lines, "")
	lines = append(lines, renderSectionHeader("Captures", colorize)...)
	if report.Captures == nil {
		lines = append(lines, renderStatusLine("Capture log", statusInfo, "no database yet", colorize))
		return lines
	}
	stats := report.Captures
	lines = append(lines, renderStatusLine("Total", statusInfo,
		fmt.Sprintf("%d (%d animals, %d false positives)", stats.Total, stats.Animals, stats.FalsePositives), colorize))
	if stats.LastTimestamp != "" {
		lines = append(lines, renderStatusLine("Last capture", statusInfo, stats.LastTimestamp, colorize))
	}
	labels := make([]string, 0, len(stats.ByLabel))
	for label := range stats.ByLabel {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	for _, label := range labels {
		lines = append(lines, renderStatusLine(label, statusInfo, strconv.Itoa(stats.ByLabel[label]), colorize))
	}
	return lines
}
