package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/djeeteg007/tf-audit/internal/drift"
	"github.com/djeeteg007/tf-audit/internal/render"
	"github.com/djeeteg007/tf-audit/internal/report"
	"github.com/djeeteg007/tf-audit/internal/rules"
	"github.com/djeeteg007/tf-audit/internal/scan"
	"github.com/djeeteg007/tf-audit/internal/waiver"
)

// Exit codes for CI gating.
const (
	exitThresholdMedium = 10
	exitThresholdHigh   = 20
)

type scanFlags struct {
	dir      string
	archive  string
	planFile string
	waivers  string
	format   string
	failOn   string
	logLevel string
	timeout  time.Duration
	noColor  bool
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "tf-audit",
		Short:        "Scan Terraform configuration for policy violations and plan drift",
		Version:      version,
		SilenceUsage: true,
	}
	root.AddCommand(newScanCmd(), newRulesCmd())
	return root
}

func newScanCmd() *cobra.Command {
	flags := &scanFlags{}

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Scan a configuration tree and report findings",
		Example: `  tf-audit scan --dir ./infra
  tf-audit scan --dir ./infra --plan plan.json --waivers waivers.yaml
  tf-audit scan --archive upload.zip --format json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runScan(cmd, flags)
		},
	}

	cmd.Flags().StringVar(&flags.dir, "dir", "", "Directory to scan for .tf/.tf.json files")
	cmd.Flags().StringVar(&flags.archive, "archive", "", "Zip archive of configuration files (instead of --dir)")
	cmd.Flags().StringVar(&flags.planFile, "plan", "", "Terraform plan JSON for drift analysis (output of terraform show -json)")
	cmd.Flags().StringVar(&flags.waivers, "waivers", "", "Waiver policy YAML file")
	cmd.Flags().StringVar(&flags.format, "format", "text", "Output format: text or json")
	cmd.Flags().StringVar(&flags.failOn, "fail-on", "", "Exit non-zero when active findings reach this severity")
	cmd.Flags().StringVar(&flags.logLevel, "log-level", "warn", "Log level: debug, info, warn, error")
	cmd.Flags().DurationVar(&flags.timeout, "timeout", 0, "Abort the scan after this duration (partial results are still reported)")
	cmd.Flags().BoolVar(&flags.noColor, "no-color", false, "Disable colored output")
	return cmd
}

func runScan(cmd *cobra.Command, flags *scanFlags) error {
	if (flags.dir == "") == (flags.archive == "") {
		return fmt.Errorf("exactly one of --dir or --archive is required")
	}

	log := newLogger(flags.logLevel)

	if flags.noColor || os.Getenv("NO_COLOR") != "" {
		render.ColorEnabled = false
	} else if fi, err := os.Stdout.Stat(); err == nil && fi.Mode()&os.ModeCharDevice == 0 {
		render.ColorEnabled = false
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if flags.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, flags.timeout)
		defer cancel()
	}

	opts := scan.Options{Root: flags.dir, Log: log}
	if flags.archive != "" {
		data, err := os.ReadFile(flags.archive)
		if err != nil {
			return fmt.Errorf("reading archive: %w", err)
		}
		opts.Archive = data
	}

	result, err := scan.Run(ctx, rules.Builtin(), opts)
	if err != nil {
		return err
	}

	findings := result.Findings
	var policy waiver.Policy
	if flags.waivers != "" {
		data, err := os.ReadFile(flags.waivers)
		if err != nil {
			return fmt.Errorf("reading waiver policy: %w", err)
		}
		policy, err = waiver.Load(data)
		if err != nil {
			return err
		}
	}
	findings = policy.Apply(findings, time.Now().UTC())

	var driftResult *drift.Result
	var driftErr error
	if flags.planFile != "" {
		data, err := os.ReadFile(flags.planFile)
		if err != nil {
			return fmt.Errorf("reading plan file: %w", err)
		}
		driftResult, driftErr = drift.Diff(data)
		if driftErr != nil {
			log.WithError(driftErr).Warn("drift analysis failed; report carries the error")
		}
	}

	rep := report.Assemble(findings, driftResult, driftErr, result.Truncated)

	switch flags.format {
	case "json":
		if err := render.JSON(cmd.OutOrStdout(), rep); err != nil {
			return err
		}
	case "text":
		render.Text(cmd.OutOrStdout(), rep)
	default:
		return fmt.Errorf("unknown format %q (use 'text' or 'json')", flags.format)
	}

	if flags.failOn != "" {
		threshold, err := rules.ParseSeverity(flags.failOn)
		if err != nil {
			return err
		}
		if code := gateExitCode(findings, threshold); code != 0 {
			os.Exit(code)
		}
	}
	return nil
}

// gateExitCode maps the highest active severity to a CI exit code once the
// threshold is reached; zero means the gate passed.
func gateExitCode(findings []scan.Finding, threshold rules.Severity) int {
	highest := highestActiveSeverity(findings)
	if highest < threshold {
		return 0
	}
	if highest >= rules.SeverityHigh {
		return exitThresholdHigh
	}
	return exitThresholdMedium
}

func highestActiveSeverity(findings []scan.Finding) rules.Severity {
	var highest rules.Severity
	for _, f := range findings {
		if !f.Waived && f.Severity > highest {
			highest = f.Severity
		}
	}
	return highest
}

func newLogger(level string) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(os.Stderr)
	if parsed, err := logrus.ParseLevel(level); err == nil {
		log.SetLevel(parsed)
	} else {
		log.SetLevel(logrus.WarnLevel)
	}
	return log
}

func newRulesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rules",
		Short: "List the built-in rule catalogue",
		RunE: func(cmd *cobra.Command, _ []string) error {
			w := cmd.OutOrStdout()
			for _, rule := range rules.Builtin().All() {
				fmt.Fprintf(w, "%-12s %-8s %v\n", rule.ID, rule.Severity, rule.AppliesTo)
			}
			return nil
		},
	}
}
