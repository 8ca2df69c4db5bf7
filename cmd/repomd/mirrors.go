package main

import (
	"fmt"
	"strings"

	"github.com/rpmrepo/repomd/internal/metalink"
	"github.com/spf13/cobra"
)

var (
	mirrorsArch  string
	mirrorsProbe bool
	mirrorsTop   int
)

func newMirrorsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mirrors REPO",
		Short: "Discover mirrors for a metalink-served repository",
		Long: `Query the Fedora metalink service for the mirrors of a repository id
such as epel-9 or fedora-42, sorted by preference. With --probe each mirror
is also timed and the list is reordered by measured throughput.`,
		Example: `  repomd mirrors epel-9
  repomd mirrors fedora-42 --arch aarch64
  repomd mirrors epel-9 --probe --top 5`,
		Args: cobra.ExactArgs(1),
		RunE: mirrorsRun,
	}

	cmd.Flags().StringVar(&mirrorsArch, "arch", "x86_64", "repository architecture")
	cmd.Flags().BoolVar(&mirrorsProbe, "probe", false, "measure latency and throughput for each mirror")
	cmd.Flags().IntVar(&mirrorsTop, "top", 5, "number of mirrors to throughput-test with --probe")

	return cmd
}

func mirrorsRun(cmd *cobra.Command, args []string) error {
	repo := args[0]

	d := metalink.NewDiscovery(logger)
	mirrors, err := d.Mirrors(cmd.Context(), repo, mirrorsArch)
	if err != nil {
		return err
	}
	if len(mirrors) == 0 {
		fmt.Println("No mirrors found")
		return nil
	}

	if !mirrorsProbe {
		fmt.Printf("%-6s %-10s %-8s %s\n", "Pref", "Country", "Proto", "URL")
		fmt.Println(strings.Repeat("-", 78))
		for _, m := range mirrors {
			fmt.Printf("%-6d %-10s %-8s %s\n", m.Preference, m.Country, m.Protocol, m.URL)
		}
		fmt.Printf("\n%d mirrors\n", len(mirrors))
		return nil
	}

	logger.Info("probing mirrors", "repo", repo, "arch", mirrorsArch, "count", len(mirrors))
	results := d.Probe(cmd.Context(), mirrors, mirrorsTop)

	fmt.Printf("%-10s %-14s %s\n", "Latency", "Throughput", "URL")
	fmt.Println(strings.Repeat("-", 78))
	for _, r := range results {
		if r.Error != "" {
			fmt.Printf("%-10s %-14s %s (%s)\n", "-", "-", r.URL, r.Error)
			continue
		}
		throughput := "-"
		if r.ThroughputKBps > 0 {
			throughput = fmt.Sprintf("%.0f KB/s", r.ThroughputKBps)
		}
		fmt.Printf("%-10s %-14s %s\n", fmt.Sprintf("%d ms", r.LatencyMs), throughput, r.URL)
	}

	return nil
}
