package cmd

import (
	"context"
	"fmt"
	"os"
	"os/exec"

	"github.com/spf13/cobra"

	"github.com/sw33tLie/partscope/internal/utils"
	"github.com/sw33tLie/partscope/pkg/cache"
)

// cacheCmd represents the cache command
var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect and invalidate the search result cache",
}

var cacheInvalidateCmd = &cobra.Command{
	Use:   "invalidate <pattern>",
	Short: "Remove cached searches matching a key prefix or glob",
	Long: `Remove cached searches matching a key prefix or glob.

Keys look like parts:v1:<category>:<vendors>:<hash>, so for example:
  partscope cache invalidate parts:v1:capacitor:     every capacitor search
  partscope cache invalidate 'parts:v1:*mouser*'     every search that included mouser
  partscope cache invalidate '*'                     everything`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		store, lock, err := openCache(cfg)
		if err != nil {
			return err
		}
		defer func() {
			store.Close()
			if lock != nil {
				lock.Unlock()
			}
		}()

		n, err := store.Invalidate(context.Background(), args[0])
		if err != nil {
			return err
		}
		fmt.Printf("Removed %d cache entries\n", n)

		if s, ok := store.(*cache.SQLite); ok {
			purged, err := s.Purge(context.Background())
			if err != nil {
				utils.Log.Warnf("purging expired entries: %v", err)
			} else if purged > 0 {
				utils.Log.Infof("Purged %d expired entries", purged)
			}
		}
		return nil
	},
}

// cacheShellCmd represents the shell command
var cacheShellCmd = &cobra.Command{
	Use:   "shell",
	Short: "Start an interactive sqlite3 shell on the cache database",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if cfg.Cache.Backend != "sqlite" {
			return fmt.Errorf("cache shell needs the sqlite backend, configured backend is %q", cfg.Cache.Backend)
		}
		dbPath, err := utils.GetAbsDBPath(cfg.Cache.Path)
		if err != nil {
			return err
		}

		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return fmt.Errorf("database file not found: %s", dbPath)
		}

		// Check if sqlite3 is in PATH
		sqlitePath, err := exec.LookPath("sqlite3")
		if err != nil {
			return fmt.Errorf("sqlite3 command not found in your PATH. Please install it to use the cache shell")
		}

		// Print schema first
		fmt.Println("--> Database schema:")
		schemaCmd := exec.Command(sqlitePath, dbPath, ".schema")
		schemaCmd.Stdout = os.Stdout
		schemaCmd.Stderr = os.Stderr
		if err := schemaCmd.Run(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: couldn't retrieve schema: %v\n", err)
		}
		fmt.Println("\n--> Starting interactive shell... (Ctrl+D to exit)")

		c := exec.Command(sqlitePath, dbPath)
		c.Stdin = os.Stdin
		c.Stdout = os.Stdout
		c.Stderr = os.Stderr

		return c.Run()
	},
}

func init() {
	rootCmd.AddCommand(cacheCmd)
	cacheCmd.AddCommand(cacheInvalidateCmd)
	cacheCmd.AddCommand(cacheShellCmd)
}
