package cmd

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/sgdevreal/stimmo/internal/cli"
	"github.com/sgdevreal/stimmo/internal/pipeline"
	"github.com/sgdevreal/stimmo/internal/store"

	"github.com/spf13/cobra"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect and manage the on-disk snapshot cache",
	RunE:  runCacheStatus,
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete every cached snapshot",
	RunE:  runCacheClear,
}

var cachePurgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Delete snapshots from previous days",
	RunE:  runCachePurge,
}

func init() {
	cacheCmd.AddCommand(cacheClearCmd)
	cacheCmd.AddCommand(cachePurgeCmd)
	rootCmd.AddCommand(cacheCmd)
}

func openCache() (*store.Cache, error) {
	path := pipeline.CachePath()
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	return store.Open(path)
}

func runCacheStatus(_ *cobra.Command, _ []string) error {
	format, err := outputFormat()
	if err != nil {
		return err
	}
	cache, err := openCache()
	if err != nil {
		return err
	}
	if cache == nil {
		fmt.Println(cli.Muted("  No snapshot cache yet."))
		return nil
	}
	defer cache.Close()

	snaps, err := cache.Snapshots()
	if err != nil {
		return err
	}
	if format.Structured() {
		return cli.WriteStructured(os.Stdout, format, snaps)
	}

	today := pipeline.PartitionKey(time.Now())
	t := cli.Table{
		Title:   pipeline.CachePath(),
		Headers: []string{"Table", "Partition", "Rows", "Fetched", "State"},
	}
	for _, s := range snaps {
		state := "current"
		if s.Partition != today {
			state = "stale"
		}
		t.Rows = append(t.Rows, []string{
			s.Table, s.Partition, cli.FormatNumber(int64(s.Rows)), cli.FormatAge(s.FetchedAt), state,
		})
	}
	return cli.WriteTable(os.Stdout, format, t)
}

func runCacheClear(_ *cobra.Command, _ []string) error {
	cache, err := openCache()
	if err != nil || cache == nil {
		return err
	}
	defer cache.Close()

	if err := cache.Clear(); err != nil {
		return fmt.Errorf("clearing cache: %w", err)
	}
	fmt.Println("  Cleared snapshot cache")
	return nil
}

func runCachePurge(_ *cobra.Command, _ []string) error {
	cache, err := openCache()
	if err != nil || cache == nil {
		return err
	}
	defer cache.Close()

	n, err := cache.PurgeExcept(pipeline.PartitionKey(time.Now()))
	if err != nil {
		return fmt.Errorf("purging cache: %w", err)
	}
	fmt.Printf("  Removed %d stale snapshot(s)\n", n)
	return nil
}
