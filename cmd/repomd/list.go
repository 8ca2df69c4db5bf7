package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var (
	listFlags repoFlags
	listLong  bool
)

func newListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List every package in a repository",
		Long: `List the packages recorded in a repository's primary catalog, one per
line in name-epoch:version-release.arch form. With --long each line also
shows the package size and summary.`,
		Example: `  repomd list --repo https://rpm.example.com/bbq/
  repomd list --name fedora --long
  repomd list --repo https://rpm.example.com/bbq/ --db`,
		RunE: listRun,
	}

	listFlags.register(cmd)
	cmd.Flags().BoolVar(&listLong, "long", false, "show size and summary columns")

	return cmd
}

func listRun(cmd *cobra.Command, args []string) error {
	repo, err := openRepository(cmd.Context(), &listFlags)
	if err != nil {
		return err
	}
	defer func() {
		if err := repo.Close(); err != nil {
			logger.Warn("closing repository", "error", err)
		}
	}()

	it := repo.Packages()
	defer func() {
		_ = it.Close()
	}()

	count := 0
	for it.Next() {
		p := it.Package()
		count++

		if !listLong {
			fmt.Println(p.String())
			continue
		}

		sizeStr := "-"
		if size, ok := p.PackageSize(); ok {
			sizeStr = humanize.Bytes(uint64(size))
		}
		fmt.Printf("%-50s %10s  %s\n", p.String(), sizeStr, p.Summary())
	}
	if err := it.Err(); err != nil {
		return fmt.Errorf("reading catalog: %w", err)
	}

	fmt.Printf("\n%d packages\n", count)
	return nil
}
