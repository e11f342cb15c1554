package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/toolchainworks/relpack/internal/cmdrunner"
	"github.com/toolchainworks/relpack/internal/operations/release"
	"github.com/toolchainworks/relpack/internal/operations/scan"
)

var (
	outputDir      string
	binariesFile   string
	binariesInline []string
	publish        bool
	publishRepo    string
	limitRate      int64
	product        string
)

var processCmd = &cobra.Command{
	Use:   "process <url>",
	Short: "Download, extract and stage binaries from a release archive",
	Long: `Process fetches the archive at the given URL, extracts it, discovers
executable binaries (optionally narrowed by an allow-list) and stages
each one with generated release metadata. With --publish and a
GITHUB_TOKEN, binaries are published as GitHub releases instead.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPipeline(args[0], false)
	},
}

var listCmd = &cobra.Command{
	Use:   "list <url>",
	Short: "List the binaries available in a release archive",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPipeline(args[0], true)
	},
}

// runPipeline applies flag overrides, builds the filter and runs the
// release manager for one URL.
func runPipeline(url string, listOnly bool) error {
	if outputDir != "" {
		Cfg.Output.Dir = outputDir
	}
	if publish {
		Cfg.Release.Publish = true
	}
	if publishRepo != "" {
		Cfg.Release.Repo = publishRepo
	}
	if limitRate > 0 {
		Cfg.Download.LimitRate = limitRate
	}
	if product != "" {
		Cfg.Release.Product = product
	}

	filter, err := buildFilter()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	runner := cmdrunner.NewCommandsRunner()
	prober := scan.NewFileProber(runner)
	manager := release.NewManager(Cfg, prober, runner, os.Getenv("GITHUB_TOKEN"))

	return manager.Run(ctx, url, filter, listOnly)
}

// buildFilter merges the allow-list file and the inline names. No file
// and no names means no filtering.
func buildFilter() (*scan.Filter, error) {
	var names []string

	if binariesFile != "" {
		fileNames, err := scan.LoadFilterFile(binariesFile)
		if err != nil {
			return nil, err
		}
		names = append(names, fileNames...)
	}

	names = append(names, binariesInline...)

	if len(names) == 0 {
		return nil, nil
	}
	return scan.NewFilter(names), nil
}

func init() {
	for _, c := range []*cobra.Command{processCmd, listCmd} {
		c.Flags().StringVarP(&binariesFile, "binaries-file", "f", "", "file listing binaries to keep (plain lines or YAML list)")
		c.Flags().StringSliceVarP(&binariesInline, "binaries", "b", nil, "comma-separated binaries to keep")
		c.Flags().Int64Var(&limitRate, "limit-rate", 0, "download bandwidth limit in bytes/sec (0 = unlimited)")
		c.Flags().StringVar(&product, "product", "", "product marker used for version extraction (default LLVM)")
	}

	processCmd.Flags().StringVarP(&outputDir, "output-dir", "o", "", "directory for staged binaries (overrides config)")
	processCmd.Flags().BoolVar(&publish, "publish", false, "publish GitHub releases instead of staging")
	processCmd.Flags().StringVar(&publishRepo, "repo", "", "owner/name repository for published releases")

	RootCmd.AddCommand(processCmd)
	RootCmd.AddCommand(listCmd)
}
