package main

import (
	"fmt"
	"strings"

	"github.com/rpmrepo/repomd/internal/repofile"
	"github.com/spf13/cobra"
)

var (
	reposDir         string
	reposEnabledOnly bool
)

func newReposCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "repos",
		Short: "List the system's dnf/yum repository definitions",
		Long: `Read the .repo files from a yum.repos.d-style directory and list the
repositories they define, with $releasever and $basearch expanded for the
running system.`,
		Example: `  repomd repos
  repomd repos --enabled-only
  repomd repos --dir ./yum.repos.d`,
		RunE: reposRun,
	}

	cmd.Flags().StringVar(&reposDir, "dir", repofile.DefaultDir, "directory containing .repo files")
	cmd.Flags().BoolVar(&reposEnabledOnly, "enabled-only", false, "show only enabled repositories")

	return cmd
}

func reposRun(cmd *cobra.Command, args []string) error {
	vars := repofile.DetectVars(logger)
	repos, err := repofile.LoadDir(reposDir, vars, logger)
	if err != nil {
		return err
	}

	fmt.Printf("%-24s %-8s %s\n", "ID", "Enabled", "Source")
	fmt.Println(strings.Repeat("-", 78))

	shown := 0
	for _, r := range repos {
		if reposEnabledOnly && !r.Enabled {
			continue
		}
		shown++

		source := r.BaseURL
		if source == "" && r.Metalink != "" {
			source = "metalink: " + r.Metalink
		}
		if source == "" && r.Mirrorlist != "" {
			source = "mirrorlist: " + r.Mirrorlist
		}

		enabled := "no"
		if r.Enabled {
			enabled = "yes"
		}
		fmt.Printf("%-24s %-8s %s\n", r.ID, enabled, source)
	}

	fmt.Printf("\n%d repositories\n", shown)
	return nil
}
