package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/rpmrepo/repomd"
	"github.com/spf13/cobra"
)

var (
	infoFlags repoFlags
	infoAll   bool
)

func newInfoCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "info NAME",
		Short: "Show the metadata record for a package",
		Long: `Show every recorded field for the named package. When a repository
carries several records under the same name, the newest record in catalog
order is shown; --all prints each of them.`,
		Example: `  repomd info chicken --repo https://rpm.example.com/bbq/
  repomd info chicken --name fedora --all`,
		Args: cobra.ExactArgs(1),
		RunE: infoRun,
	}

	infoFlags.register(cmd)
	cmd.Flags().BoolVar(&infoAll, "all", false, "print every record matching the name")

	return cmd
}

func infoRun(cmd *cobra.Command, args []string) error {
	name := args[0]

	repo, err := openRepository(cmd.Context(), &infoFlags)
	if err != nil {
		return err
	}
	defer func() {
		if err := repo.Close(); err != nil {
			logger.Warn("closing repository", "error", err)
		}
	}()

	if infoAll {
		matches, err := repo.FindAll(name)
		if err != nil {
			return fmt.Errorf("searching for %q: %w", name, err)
		}
		if len(matches) == 0 {
			return fmt.Errorf("package %q not found", name)
		}
		for i, p := range matches {
			if i > 0 {
				fmt.Println()
			}
			printPackage(p)
		}
		return nil
	}

	p, err := repo.Find(name)
	if err != nil {
		return fmt.Errorf("searching for %q: %w", name, err)
	}
	if p == nil {
		return fmt.Errorf("package %q not found", name)
	}
	printPackage(p)
	return nil
}

func printPackage(p repomd.Package) {
	row := func(label, value string) {
		if value != "" {
			fmt.Printf("%-14s: %s\n", label, value)
		}
	}

	row("Name", p.Name())
	row("Epoch", p.Epoch())
	row("Version", p.Version())
	row("Release", p.Release())
	row("Arch", p.Arch())
	if nevra, err := p.NEVRA(); err == nil {
		row("NEVRA", nevra)
	}
	row("Summary", p.Summary())
	row("URL", p.URL())
	row("License", p.License())
	row("Vendor", p.Vendor())
	row("Group", p.Group())
	row("Packager", p.Packager())
	row("Build host", p.BuildHost())
	row("Source RPM", p.SourceRPM())
	if t, ok := p.BuildTime(); ok {
		row("Build time", t.UTC().Format("2006-01-02 15:04:05 MST"))
	}
	if size, ok := p.PackageSize(); ok {
		row("Package size", fmt.Sprintf("%s (%d bytes)", humanize.Bytes(uint64(size)), size))
	}
	if size, ok := p.InstalledSize(); ok {
		row("Installed", humanize.Bytes(uint64(size)))
	}
	if size, ok := p.ArchiveSize(); ok {
		row("Archive", humanize.Bytes(uint64(size)))
	}
	if p.Checksum() != "" {
		row("Checksum", fmt.Sprintf("%s:%s", p.ChecksumType(), p.Checksum()))
	}
	row("Location", p.Location())

	if desc := p.Description(); desc != "" {
		fmt.Printf("\n%s\n", desc)
	}
}
