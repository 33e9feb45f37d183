package scan

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sort"
	"sync/atomic"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/djeeteg007/tf-audit/internal/rules"
	"github.com/djeeteg007/tf-audit/internal/source"
	"github.com/djeeteg007/tf-audit/internal/tfparse"
)

// Options configures one scan. Exactly one of Root or Archive supplies the
// configuration files.
type Options struct {
	// Root is the directory to walk for .tf/.tf.json files.
	Root string
	// Archive is an in-memory zip of configuration files, used when Root is
	// empty.
	Archive []byte
	// Log receives scan diagnostics. A default stderr logger is used when
	// nil.
	Log logrus.FieldLogger
	// Workers bounds the parse and evaluation pools. Defaults to GOMAXPROCS.
	Workers int
}

// Result is the raw evaluation output, before the waiver gate and report
// assembly.
type Result struct {
	Findings  []Finding
	Resources []tfparse.ResourceBlock
	// Truncated is set when the context was cancelled and the scan returned
	// partial results instead of failing.
	Truncated bool
}

// Run loads, extracts and evaluates a configuration tree. Only input-level
// failures (missing root, corrupt archive) return an error; unreadable
// files, parse failures and misbehaving rules degrade into synthetic
// findings so the rest of the scan still produces output.
func Run(ctx context.Context, registry *rules.Registry, opts Options) (*Result, error) {
	log := opts.Log
	if log == nil {
		log = logrus.New()
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	var files []source.SourceFile
	var skipped []source.Skipped
	var err error
	if opts.Root != "" {
		files, skipped, err = source.LoadDir(opts.Root, log)
	} else {
		files, skipped, err = source.LoadArchive(opts.Archive, log)
	}
	if err != nil {
		return nil, err
	}

	var truncated atomic.Bool

	// Stage 1: parse files in parallel. Results land in per-index slots so
	// no ordering is lost to goroutine scheduling.
	type parseSlot struct {
		blocks  []tfparse.ResourceBlock
		failure *tfparse.ParseError
		done    bool
	}
	slots := make([]parseSlot, len(files))

	g := &errgroup.Group{}
	g.SetLimit(workers)
	for i := range files {
		if ctx.Err() != nil {
			truncated.Store(true)
			break
		}
		i := i
		g.Go(func() error {
			file := files[i]
			blocks, parseErr := tfparse.Parse(file.Path, []byte(file.Text))
			if parseErr != nil {
				var pe *tfparse.ParseError
				if !errors.As(parseErr, &pe) {
					pe = &tfparse.ParseError{File: file.Path, Detail: parseErr.Error()}
				}
				log.WithField("file", file.Path).WithError(pe).Warn("file failed to parse")
				slots[i] = parseSlot{failure: pe, done: true}
				return nil
			}
			slots[i] = parseSlot{blocks: blocks, done: true}
			return nil
		})
	}
	_ = g.Wait()

	// Flatten in file order, then declaration order.
	type keyedResource struct {
		res       tfparse.ResourceBlock
		fileIndex int
		resIndex  int
	}
	var resources []keyedResource
	for i, slot := range slots {
		if !slot.done || slot.failure != nil {
			continue
		}
		for j, res := range slot.blocks {
			resources = append(resources, keyedResource{res: res, fileIndex: i, resIndex: j})
		}
	}

	flat := make([]tfparse.ResourceBlock, len(resources))
	for i, kr := range resources {
		flat[i] = kr.res
	}
	sctx := rules.NewScanContext(flat, log)

	// Stage 2: evaluate resources in parallel. Each slot collects the
	// findings for one resource; ordering is restored by a final sort, not
	// a shared accumulator.
	type keyedFinding struct {
		f         Finding
		fileIndex int
		resIndex  int
		ruleIndex int
	}
	perResource := make([][]keyedFinding, len(resources))

	eg := &errgroup.Group{}
	eg.SetLimit(workers)
	for i := range resources {
		if ctx.Err() != nil {
			truncated.Store(true)
			break
		}
		i := i
		eg.Go(func() error {
			kr := resources[i]
			var out []keyedFinding
			for _, rule := range registry.RulesFor(kr.res.Type) {
				ruleIndex, _ := registry.RuleIndex(rule.ID)
				drafts, evalErr := evaluate(rule, kr.res, sctx)
				if evalErr != nil {
					log.WithFields(logrus.Fields{
						"rule":     rule.ID,
						"resource": kr.res.Address,
					}).WithError(evalErr).Error("rule evaluation failed")
					out = append(out, keyedFinding{
						f: Finding{
							RuleID:          RuleErrorPrefix + rule.ID,
							Severity:        rules.SeverityMedium,
							ResourceAddress: kr.res.Address,
							File:            kr.res.File,
							Line:            kr.res.LineStart,
							Message:         fmt.Sprintf("rule %s failed on %s: %v", rule.ID, kr.res.Address, evalErr),
						},
						fileIndex: kr.fileIndex,
						resIndex:  kr.resIndex,
						ruleIndex: ruleIndex,
					})
					continue
				}
				for _, draft := range drafts {
					line := draft.Line
					if line == 0 {
						line = kr.res.LineStart
					}
					out = append(out, keyedFinding{
						f: Finding{
							RuleID:          rule.ID,
							Severity:        rule.Severity,
							ResourceAddress: kr.res.Address,
							File:            kr.res.File,
							Line:            line,
							Message:         draft.Message,
							Remediation:     rule.Remediation,
							KnowledgeRef:    rule.KnowledgeRef,
						},
						fileIndex: kr.fileIndex,
						resIndex:  kr.resIndex,
						ruleIndex: ruleIndex,
					})
				}
			}
			perResource[i] = out
			return nil
		})
	}
	_ = eg.Wait()

	var keyed []keyedFinding
	for _, out := range perResource {
		keyed = append(keyed, out...)
	}

	// Synthetic findings for skipped and unparseable files. They key on the
	// file with resIndex -1 so they appear ahead of that file's resources.
	for _, sk := range skipped {
		keyed = append(keyed, keyedFinding{
			f: Finding{
				RuleID:   RuleIDFileSkipped,
				Severity: rules.SeverityLow,
				File:     sk.Path,
				Message:  fmt.Sprintf("file %s was skipped: %s", sk.Path, sk.Reason),
			},
			fileIndex: len(files), // skipped files sort after parsed ones
			resIndex:  -1,
		})
	}
	for i, slot := range slots {
		if slot.failure == nil {
			continue
		}
		keyed = append(keyed, keyedFinding{
			f: Finding{
				RuleID:   RuleIDParseError,
				Severity: rules.SeverityMedium,
				File:     files[i].Path,
				Line:     1,
				Message:  fmt.Sprintf("file %s could not be parsed: %s", files[i].Path, slot.failure.Detail),
			},
			fileIndex: i,
			resIndex:  -1,
		})
	}

	sort.SliceStable(keyed, func(a, b int) bool {
		if keyed[a].fileIndex != keyed[b].fileIndex {
			return keyed[a].fileIndex < keyed[b].fileIndex
		}
		if keyed[a].resIndex != keyed[b].resIndex {
			return keyed[a].resIndex < keyed[b].resIndex
		}
		if keyed[a].ruleIndex != keyed[b].ruleIndex {
			return keyed[a].ruleIndex < keyed[b].ruleIndex
		}
		return keyed[a].f.File < keyed[b].f.File
	})

	findings := make([]Finding, len(keyed))
	for i, kf := range keyed {
		findings[i] = kf.f
	}

	return &Result{
		Findings:  findings,
		Resources: flat,
		Truncated: truncated.Load(),
	}, nil
}

// evaluate runs one rule against one resource with an isolation boundary: a
// panicking rule is converted into an error instead of taking down the scan.
func evaluate(rule rules.Rule, res tfparse.ResourceBlock, sctx *rules.ScanContext) (drafts []rules.FindingDraft, err error) {
	defer func() {
		if r := recover(); r != nil {
			drafts = nil
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	if rule.Check == nil {
		return nil, fmt.Errorf("rule has no check function")
	}
	return rule.Check(res, sctx)
}
