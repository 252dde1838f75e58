package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/debstrap/debstrap/internal/bsconfig"
	"github.com/debstrap/debstrap/internal/bserror"
	"github.com/debstrap/debstrap/pkg/orchestrate"
	"github.com/djcass44/go-utils/logging"
	"github.com/go-logr/logr"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var command = &cobra.Command{
	Use:          "bootstrap <branch> <target> [mirror-url]",
	Short:        "bootstrap a Debian-derived root filesystem",
	Args:         cobra.RangeArgs(2, 3),
	SilenceUsage: true,
	RunE:         run,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logLevel, _ := cmd.Flags().GetInt(flagLogLevel)

		zc := zap.NewProductionConfig()
		zc.Level = zap.NewAtomicLevelAt(zapcore.Level(logLevel * -1))

		_, ctx := logging.NewZap(cmd.Context(), zc)
		cmd.SetContext(ctx)
	},
}

const (
	flagLogLevel       = "v"
	flagArch            = "arch"
	flagConfig          = "config"
	flagInclude         = "include"
	flagIncludeFiles    = "include-files"
	flagScript          = "s"
	flagCleanup         = "x"
	flagStage1Only      = "1"
	flagExportTar       = "export-tar"
	flagExportSquashfs  = "export-squashfs"
)

const defaultMirror = "http://deb.debian.org/debian"

func init() {
	command.PersistentFlags().IntP(flagLogLevel, flagLogLevel, 0, "log level. Higher is more")

	command.Flags().String(flagArch, "", "target architecture")
	command.Flags().String(flagConfig, "", "path to the bootstrap TOML configuration file")
	command.Flags().StringArray(flagInclude, nil, "space-separated seed packages to include, repeatable")
	command.Flags().StringArray(flagIncludeFiles, nil, "path to a file of seed packages (one per line, # comments), repeatable")
	command.Flags().StringArrayP(flagScript, flagScript, nil, "post-install script to run inside the chroot, repeatable, in order")
	command.Flags().BoolP(flagCleanup, flagCleanup, false, "run the built-in cleanup pass")
	command.Flags().BoolP(flagStage1Only, flagStage1Only, false, "stop after stage 1")
	command.Flags().String(flagExportTar, "", "export the target as an xz-compressed tarball to this path")
	command.Flags().String(flagExportSquashfs, "", "export the target as a squashfs image to this path")

	_ = command.MarkFlagRequired(flagArch)
	_ = command.MarkFlagRequired(flagConfig)
}

func Execute(version string) {
	command.Version = version
	if err := command.Execute(); err != nil {
		os.Exit(bserror.ExitCodeFor(err))
	}
}

func run(cmd *cobra.Command, args []string) error {
	log := logr.FromContextOrDiscard(cmd.Context())

	branch := args[0]
	target := args[1]
	mirror := defaultMirror
	if len(args) == 3 {
		mirror = args[2]
	}

	arch, _ := cmd.Flags().GetString(flagArch)
	configPath, _ := cmd.Flags().GetString(flagConfig)
	includes, _ := cmd.Flags().GetStringArray(flagInclude)
	includeFiles, _ := cmd.Flags().GetStringArray(flagIncludeFiles)
	scripts, _ := cmd.Flags().GetStringArray(flagScript)
	cleanup, _ := cmd.Flags().GetBool(flagCleanup)
	stage1Only, _ := cmd.Flags().GetBool(flagStage1Only)
	exportTar, _ := cmd.Flags().GetString(flagExportTar)
	exportSquashfs, _ := cmd.Flags().GetString(flagExportSquashfs)

	cfg, err := bsconfig.Load(configPath)
	if err != nil {
		return err
	}

	seeds, err := collectSeeds(includes, includeFiles)
	if err != nil {
		return err
	}
	log.V(1).Info("resolved seed packages", "count", len(seeds))

	return orchestrate.Run(cmd.Context(), orchestrate.Request{
		Branch:         branch,
		Target:         target,
		Mirror:         mirror,
		Architecture:   arch,
		Config:         cfg,
		Seeds:          seeds,
		Scripts:        scripts,
		Cleanup:        cleanup,
		Stage1Only:     stage1Only,
		ExportTar:      exportTar,
		ExportSquashfs: exportSquashfs,
		CacheDir:       orchestrate.DefaultCacheDir(target),
	})
}

// collectSeeds merges --include (space-separated, repeatable) with the
// contents of --include-files (one package per line, # comments), per
// spec §6.
func collectSeeds(includes, includeFiles []string) ([]string, error) {
	var seeds []string
	for _, group := range includes {
		seeds = append(seeds, strings.Fields(group)...)
	}
	for _, path := range includeFiles {
		f, err := os.Open(path)
		if err != nil {
			return nil, bserror.New(bserror.Config, path, fmt.Errorf("opening include file: %w", err))
		}
		scanner := bufio.NewScanner(f)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			seeds = append(seeds, line)
		}
		f.Close()
		if err := scanner.Err(); err != nil {
			return nil, bserror.New(bserror.Config, path, err)
		}
	}
	return seeds, nil
}
