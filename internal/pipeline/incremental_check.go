// Package pipeline orchestrates a full or incremental check run: discover
// sources, load them into a project, re-check the files whose content hash
// changed, and serve cached diagnostics for the rest.
package pipeline

import (
	"context"
	"fmt"
	"log"
	"time"

	"pycheck/internal/checker"
	"pycheck/internal/config"
	"pycheck/internal/crawler"
	"pycheck/internal/semantic"
	"pycheck/internal/storage"
	"pycheck/internal/syntax"
)

// IncrementalCheck drives repeated check runs over one project root. The
// semantic project persists across runs so unchanged files keep their parse
// trees and derived facts; edits invalidate the query tables under a fresh
// revision.
type IncrementalCheck struct {
	Config *config.Config
	DBPath string

	project *semantic.Project
}

// Report is the outcome of one run.
type Report struct {
	Diagnostics []checker.Diagnostic
	Checked     int // files re-checked this run
	Cached      int // files served from the diagnostic cache
	Removed     int // stale files dropped from the store
}

type checkPlan struct {
	Files   []*syntax.File
	Changed map[string]bool
	Stale   []string // paths in the store that no longer exist
}

func NewIncrementalCheck(cfg *config.Config) *IncrementalCheck {
	return &IncrementalCheck{
		Config: cfg,
		DBPath: cfg.Cache.Path,
	}
}

func (s *IncrementalCheck) Run(ctx context.Context, force bool) (*Report, error) {
	store, err := storage.NewSQLiteStore(s.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	defer store.Close()

	if s.project == nil {
		s.project = semantic.NewProject()
	}
	project := s.project
	plan, err := s.discoverStage(ctx, store, project, force)
	if err != nil {
		return nil, err
	}

	report, err := s.checkStage(ctx, store, project, plan)
	if err != nil {
		return nil, err
	}

	if err := s.pruneStage(ctx, store, plan); err != nil {
		return nil, err
	}
	report.Removed = len(plan.Stale)

	return report, nil
}

// discoverStage scans the project root and reconciles the persistent project
// with what is on disk: unchanged files keep their existing parse, edited and
// new files are (re)loaded, vanished files are removed. Any reconciliation
// moves the project to a fresh revision, dropping every derived fact. The
// plan marks the files whose fingerprint differs from the stored one.
func (s *IncrementalCheck) discoverStage(ctx context.Context, store storage.Store, project *semantic.Project, force bool) (*checkPlan, error) {
	known, err := store.LoadFingerprints(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load fingerprints: %w", err)
	}

	cr := crawler.NewCrawler(s.Config.Project.Include, s.Config.Project.Exclude)
	plan := &checkPlan{Changed: make(map[string]bool)}
	seen := make(map[string]bool)
	mutated := false

	err = cr.ScanProject(s.Config.Project.Root, func(sf crawler.SourceFile) {
		seen[sf.Path] = true
		hash := syntax.Fingerprint(sf.Src)
		f, ok := project.File(sf.Path)
		if !ok || f.Hash != hash {
			parsed, err := project.AddFile(sf.Path, sf.Src)
			if err != nil {
				log.Printf("Warning: failed to parse %s: %v", sf.Path, err)
				return
			}
			f = parsed
			mutated = true
		}
		plan.Files = append(plan.Files, f)
		if force || known[sf.Path] != hash {
			plan.Changed[sf.Path] = true
		}
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan project: %w", err)
	}

	for _, path := range project.Paths() {
		if !seen[path] {
			project.RemoveFile(path)
			mutated = true
		}
	}
	if mutated {
		project.Invalidate()
		log.Printf("sources changed; revision %s", project.Revision())
	}

	for path := range known {
		if !seen[path] {
			plan.Stale = append(plan.Stale, path)
		}
	}
	return plan, nil
}

func (s *IncrementalCheck) checkStage(ctx context.Context, store storage.Store, project *semantic.Project, plan *checkPlan) (*Report, error) {
	c := checker.New(project)
	report := &Report{}
	start := time.Now()

	for _, f := range plan.Files {
		if !plan.Changed[f.Path] {
			cached, err := store.LoadDiagnostics(ctx, f.Path)
			if err != nil {
				return nil, fmt.Errorf("failed to load cached diagnostics for %s: %w", f.Path, err)
			}
			report.Diagnostics = append(report.Diagnostics, cached...)
			report.Cached++
			continue
		}

		diags := s.applySeverityOverrides(c.CheckFile(f.Path))
		if err := store.SaveDiagnostics(ctx, f.Path, diags); err != nil {
			return nil, fmt.Errorf("failed to save diagnostics for %s: %w", f.Path, err)
		}
		if err := store.SaveFingerprint(ctx, f.Path, f.Hash); err != nil {
			return nil, fmt.Errorf("failed to save fingerprint for %s: %w", f.Path, err)
		}
		report.Diagnostics = append(report.Diagnostics, diags...)
		report.Checked++
	}

	log.Printf("checked %d files (%d cached) in %v", report.Checked, report.Cached, time.Since(start))
	return report, nil
}

// applySeverityOverrides remaps or drops diagnostics per the configured
// per-code rules. Overrides run before persistence so cached replays agree
// with fresh runs.
func (s *IncrementalCheck) applySeverityOverrides(diags []checker.Diagnostic) []checker.Diagnostic {
	rules := s.Config.Rules.Severity
	if len(rules) == 0 {
		return diags
	}
	out := diags[:0]
	for _, d := range diags {
		switch rules[d.Code] {
		case "ignore":
			continue
		case "error":
			d.Severity = checker.SeverityError
		case "warning":
			d.Severity = checker.SeverityWarning
		}
		out = append(out, d)
	}
	return out
}

func (s *IncrementalCheck) pruneStage(ctx context.Context, store storage.Store, plan *checkPlan) error {
	for _, path := range plan.Stale {
		if err := store.DeleteFile(ctx, path); err != nil {
			return fmt.Errorf("failed to prune %s: %w", path, err)
		}
	}
	return nil
}
