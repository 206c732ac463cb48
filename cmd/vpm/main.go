package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/frederic-klein/vpm/internal/config"
	"github.com/frederic-klein/vpm/internal/source"
	"github.com/frederic-klein/vpm/internal/vpm"
)

var (
	rootDir       string
	configPath    string
	registryURL   string
	archiveDir    string
	checkInterval time.Duration
	annotate      bool
	force         bool
	verbose       bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "vpm",
		Short: "Vibe package manager - resolves and installs package dependencies",
		Long:  "VPM reads the root package.json, resolves its dependency graph against a package source and keeps the modules directory in sync, journaling every file it writes.",
	}

	rootCmd.PersistentFlags().StringVarP(&rootDir, "root", "r", ".", "Package root directory")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Settings file (default <root>/vpm.yml)")
	rootCmd.PersistentFlags().StringVar(&registryURL, "registry", "", "Package registry base URL")
	rootCmd.PersistentFlags().StringVar(&archiveDir, "archive-dir", "", "Local archive directory to install from")
	rootCmd.PersistentFlags().DurationVar(&checkInterval, "check-interval", 0, "How long installed metadata is trusted")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")

	actionsCmd := &cobra.Command{
		Use:   "actions",
		Short: "Show what an update would do without doing it",
		RunE:  runActions,
	}

	updateCmd := &cobra.Command{
		Use:   "update",
		Short: "Bring the modules directory in line with package.json",
		RunE:  runUpdate,
	}
	updateCmd.Flags().BoolVarP(&annotate, "annotate", "n", false, "Plan only, mutate nothing")
	updateCmd.Flags().BoolVar(&force, "force", false, "Reinstall packages that already satisfy their requirement")

	uninstallCmd := &cobra.Command{
		Use:   "uninstall <package>",
		Short: "Remove an installed package by replaying its journal",
		Args:  cobra.ExactArgs(1),
		RunE:  runUninstall,
	}

	rootCmd.AddCommand(actionsCmd)
	rootCmd.AddCommand(updateCmd)
	rootCmd.AddCommand(uninstallCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// newManager merges settings file and flags (flags win) and opens a
// manager over the chosen source. Commands that never contact a source
// (uninstall) pass needSource false and run without one configured.
func newManager(needSource bool) (*vpm.Manager, error) {
	path := configPath
	if path == "" {
		path = filepath.Join(rootDir, config.FileName)
	}
	settings, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	if registryURL == "" {
		registryURL = settings.Registry
	}
	if archiveDir == "" {
		archiveDir = settings.ArchiveDir
	}
	if checkInterval == 0 {
		checkInterval = time.Duration(settings.CheckInterval)
	}
	if settings.Verbose {
		verbose = true
	}

	var src source.Source
	switch {
	case archiveDir != "":
		src = source.NewDir(archiveDir)
	case registryURL != "":
		src = source.NewRegistry(registryURL)
	case needSource:
		return nil, fmt.Errorf("no package source: set --archive-dir or --registry (or %s)", config.FileName)
	}

	return vpm.New(rootDir, src, vpm.Options{
		Annotate:       annotate,
		ForceReinstall: force,
		CheckInterval:  checkInterval,
		Verbose:        verbose,
	})
}

func runActions(cmd *cobra.Command, args []string) error {
	m, err := newManager(true)
	if err != nil {
		return err
	}
	defer m.Close()

	actions, err := m.Actions()
	if err != nil {
		return err
	}
	if len(actions) == 0 {
		fmt.Println("nothing to do")
		return nil
	}
	for _, a := range actions {
		fmt.Println(a)
	}
	return nil
}

func runUpdate(cmd *cobra.Command, args []string) error {
	m, err := newManager(true)
	if err != nil {
		return err
	}
	defer m.Close()

	actions, err := m.Actions()
	if err != nil {
		return err
	}
	if len(actions) == 0 {
		fmt.Println("nothing to do")
		return nil
	}
	return m.Update(actions)
}

func runUninstall(cmd *cobra.Command, args []string) error {
	m, err := newManager(false)
	if err != nil {
		return err
	}
	defer m.Close()

	return m.Uninstall(args[0])
}
