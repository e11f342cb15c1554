package release

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/toolchainworks/relpack/internal/cmdrunner"
	"github.com/toolchainworks/relpack/internal/config"
	"github.com/toolchainworks/relpack/internal/operations/cache"
	"github.com/toolchainworks/relpack/internal/operations/extract"
	"github.com/toolchainworks/relpack/internal/operations/fetch"
	"github.com/toolchainworks/relpack/internal/operations/scan"
	"github.com/toolchainworks/relpack/pkg/logger"
)

// Manager drives the pipeline: fetch the archive, extract it, scan for
// binaries, then stage or publish. One linear pass, no component calls
// back into an earlier one.
type Manager struct {
	cfg       *config.Config
	store     *cache.Store
	fetcher   *fetch.Fetcher
	extractor *extract.Extractor
	scanner   *scan.Scanner
	packager  *Packager
	publisher *Publisher
	logger    *logger.Logger
}

// NewManager wires the pipeline components. prober and runner are
// injected so tests can replace the external collaborators; token is the
// publishing credential (empty means dry-run publishing).
func NewManager(cfg *config.Config, prober scan.Prober, runner cmdrunner.CommandRunner, token string) *Manager {
	store := cache.NewStore(cfg.Cache)
	return &Manager{
		cfg:       cfg,
		store:     store,
		fetcher:   fetch.NewFetcher(store, cfg.Download),
		extractor: extract.NewExtractor(store),
		scanner:   scan.NewScanner(prober),
		packager:  NewPackager(cfg.Output),
		publisher: NewPublisher(runner, cfg.Release.Repo, token),
		logger:    logger.NewLogger("release-manager"),
	}
}

// Run executes the pipeline for one source URL. listOnly stops after the
// scan and prints the discovered binaries. An empty scan result is a
// clean "nothing to do" outcome, not an error.
func (m *Manager) Run(ctx context.Context, url string, filter *scan.Filter, listOnly bool) error {
	runID := uuid.New().String()

	m.logger.WithFields(logger.Fields{
		"run_id": runID,
		"url":    url,
	}).Info("Starting release processing")

	archivePath, err := m.fetcher.Fetch(ctx, url)
	if err != nil {
		return err
	}

	extractDir, err := m.extractor.Extract(url, archivePath)
	if err != nil {
		return err
	}

	binaries, err := m.scanner.Scan(ctx, extractDir, filter)
	if err != nil {
		return err
	}

	if listOnly {
		m.printListing(binaries, filter)
		return nil
	}

	if len(binaries) == 0 {
		m.logger.Warn("No matching binaries found")
		m.printMissing(filter, nil)
		return nil
	}

	meta := NewMetadata(url, m.cfg.Release.Product, runID)
	m.logger.WithFields(logger.Fields{
		"release_tag": meta.ReleaseTag,
		"version":     meta.Version,
		"platform":    meta.Platform,
		"os":          meta.OS,
	}).Info("Derived release metadata")

	if m.cfg.Release.Publish {
		return m.publisher.Publish(ctx, binaries, meta)
	}

	if err := m.packager.Stage(binaries, meta); err != nil {
		return err
	}

	fmt.Printf("\nExtraction complete! Files saved in %s\n", m.cfg.Output.Dir)
	fmt.Printf("Release tag: %s\n", meta.ReleaseTag)
	return nil
}

// printListing reports every discovered binary and, when a filter is
// configured, which requested names were covered.
func (m *Manager) printListing(binaries []scan.Binary, filter *scan.Filter) {
	fmt.Println("Available binaries:")
	found := make([]string, 0, len(binaries))
	for _, binary := range binaries {
		found = append(found, binary.Name)
		fmt.Printf("  %s\n", binary.DisplayName())
	}

	if !filter.Empty() {
		missing := make(map[string]struct{})
		for _, name := range filter.Missing(found) {
			missing[name] = struct{}{}
		}

		fmt.Println("\nFiltered binaries:")
		for _, name := range filter.Requested() {
			mark := "ok"
			if _, absent := missing[name]; absent {
				mark = "missing"
			}
			fmt.Printf("  [%s] %s\n", mark, name)
		}
	}
}

// printMissing reports requested names absent from the result set
func (m *Manager) printMissing(filter *scan.Filter, found []string) {
	if filter.Empty() {
		return
	}

	fmt.Println("Requested binaries not found:")
	for _, name := range filter.Missing(found) {
		fmt.Printf("  %s\n", name)
	}
}
