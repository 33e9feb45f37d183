package render

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/djeeteg007/tf-audit/internal/drift"
	"github.com/djeeteg007/tf-audit/internal/report"
	"github.com/djeeteg007/tf-audit/internal/scan"
)

var severityOrder = []string{"critical", "high", "medium", "low", "info"}

// Text renders the report as human-readable colored text.
func Text(w io.Writer, rep report.Report) {
	// Header
	fmt.Fprintln(w)
	fmt.Fprintf(w, "  %s\n", cb(brightWhite, "IAC POLICY SCAN"))
	fmt.Fprintf(w, "  %s\n", c(dim, strings.Repeat("─", 50)))

	if rep.Truncated {
		fmt.Fprintf(w, "  %s  %s\n", cb(brightYellow, "!"), c(brightYellow, "scan was cancelled — results are partial"))
	}

	// Severity summary bar
	fmt.Fprintln(w)
	active := 0
	var parts []string
	for _, name := range severityOrder {
		for sev, n := range rep.SeverityCounts {
			if sev.String() != name || n == 0 {
				continue
			}
			active += n
			parts = append(parts, cb(severityColor(strings.ToUpper(name)), fmt.Sprintf("%d %s", n, name)))
		}
	}
	if active == 0 {
		fmt.Fprintf(w, "  %s  %s\n", c(brightGreen, "✓"), c(brightGreen, "No active findings"))
	} else {
		fmt.Fprintf(w, "  %s  %s\n", c(dim, "FINDINGS"), strings.Join(parts, c(dim, "  |  ")))
	}

	fmt.Fprintln(w)
	num := 0
	for _, f := range rep.Findings {
		num++
		renderFinding(w, num, f)
	}

	if rep.Drift != nil {
		renderDrift(w, rep.Drift)
	}
	fmt.Fprintf(w, "  %s\n", c(dim, fmt.Sprintf("%d finding%s total (%d active)", len(rep.Findings), plural(len(rep.Findings)), active)))
}

func renderFinding(w io.Writer, num int, f scan.Finding) {
	sev := strings.ToUpper(f.Severity.String())
	sevCol := severityColor(sev)

	fmt.Fprintf(w, "  %s %s  %s\n",
		severityBadge(sev),
		c(dim, fmt.Sprintf("#%d", num)),
		cb(sevCol, fmt.Sprintf("%s: %s", f.RuleID, f.Message)))

	if f.ResourceAddress != "" {
		fmt.Fprintf(w, "  %s  %s %s\n",
			c(dim, "│"),
			c(dim, "Resource:"),
			cb(cyan, f.ResourceAddress))
	}
	if f.File != "" {
		loc := f.File
		if f.Line > 0 {
			loc = fmt.Sprintf("%s:%d", f.File, f.Line)
		}
		fmt.Fprintf(w, "  %s  %s %s\n", c(dim, "│"), c(dim, "Location:"), loc)
	}
	if f.Waived {
		fmt.Fprintf(w, "  %s  %s %s\n",
			c(dim, "│"),
			c(dim, "Waived:"),
			c(magenta, f.WaiverReason))
	}
	if f.Remediation != "" {
		fmt.Fprintf(w, "  %s  %s %s\n",
			c(dim, "│"),
			cb(white, "Fix:"),
			c(white, f.Remediation))
	}
	fmt.Fprintln(w)
}

func renderDrift(w io.Writer, section *report.DriftSection) {
	fmt.Fprintf(w, "  %s\n", cb(brightWhite, "PLAN DRIFT"))
	fmt.Fprintf(w, "  %s\n", c(dim, strings.Repeat("─", 50)))

	if section.Error != "" {
		fmt.Fprintf(w, "  %s  %s\n\n", cb(brightRed, "✗"), c(brightRed, section.Error))
		return
	}

	var parts []string
	for _, action := range []drift.Action{drift.ActionCreate, drift.ActionUpdate, drift.ActionDelete, drift.ActionReplace, drift.ActionNoop} {
		if n := section.Counts[action]; n > 0 {
			parts = append(parts, cb(actionColor(string(action)), fmt.Sprintf("%d %s", n, action)))
		}
	}
	if len(parts) == 0 {
		fmt.Fprintf(w, "  %s  No resource changes detected\n\n", c(dim, "∅"))
		return
	}
	fmt.Fprintf(w, "  %s  %s\n\n", c(dim, "CHANGES"), strings.Join(parts, c(dim, "  |  ")))

	changes := append([]drift.Change(nil), section.Changes...)
	sort.SliceStable(changes, func(i, j int) bool { return changes[i].Address < changes[j].Address })
	for _, ch := range changes {
		if ch.Action == drift.ActionNoop {
			continue
		}
		fmt.Fprintf(w, "  %s %s\n",
			cb(actionColor(string(ch.Action)), fmt.Sprintf("%-8s", ch.Action)),
			cb(cyan, ch.Address))
		if ch.Action == drift.ActionUpdate || ch.Action == drift.ActionReplace {
			for _, d := range extractDiffs(ch.Before, ch.After, 5) {
				fmt.Fprintf(w, "  %s  %s\n", c(dim, "│"), d.String())
			}
		}
	}
	fmt.Fprintln(w)
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}
