package cli

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

// cacheCommand creates the cache management command.
func (c *CLI) cacheCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the artifact cache",
	}

	cmd.AddCommand(c.cachePathCommand())
	cmd.AddCommand(c.cacheCleanCommand())
	cmd.AddCommand(c.cacheClearCommand())

	return cmd
}

func (c *CLI) cachePathCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the artifact cache directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			root, err := c.artifactRoot()
			if err != nil {
				return fmt.Errorf("get cache dir: %w", err)
			}
			fmt.Fprintln(c.Out, root)
			return nil
		},
	}
}

// cacheCleanCommand removes cached files that the given dependency set does
// not reference.
func (c *CLI) cacheCleanCommand() *cobra.Command {
	var (
		transitive bool
		flat       bool
	)
	cmd := &cobra.Command{
		Use:   "clean [coordinate...]",
		Short: "Delete cached files not referenced by the given dependencies",
		Long: `Clean keeps every artifact, descriptor and hash file referenced by the
coordinates given on the command line or in --manifest, and deletes every other
file in the artifact cache. Directories are left in place.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			var (
				s   *session
				err error
			)
			if transitive {
				s, err = c.resolveSession(ctx, args, false)
			} else {
				s, err = c.newSession(ctx, args)
			}
			if err != nil {
				return err
			}
			defer s.close()

			clean := s.mgr.CleanupCacheTree
			if flat {
				clean = s.mgr.CleanupCache
			}
			deleted, err := clean()
			if err != nil {
				return err
			}
			for _, p := range deleted {
				c.printDetail("%s", p)
			}
			c.printSuccess("Deleted %d unreferenced files", len(deleted))
			return nil
		},
	}
	cmd.Flags().BoolVar(&transitive, "transitive", true, "keep files of transitive dependencies too")
	cmd.Flags().BoolVar(&flat, "flat", false, "only consider files directly under the cache root")
	return cmd
}

// cacheClearCommand deletes every cached artifact and descriptor.
func (c *CLI) cacheClearCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Delete all cached artifacts and descriptors",
		RunE: func(cmd *cobra.Command, args []string) error {
			root, err := c.artifactRoot()
			if err != nil {
				return fmt.Errorf("get cache dir: %w", err)
			}
			dirs := []string{root}
			if c.flags.descriptorCache == "" {
				if base, err := cacheDir(); err == nil {
					dirs = append(dirs, filepath.Join(base, "descriptors"))
				}
			}

			count := 0
			for _, dir := range dirs {
				n, err := clearDir(dir)
				if err != nil {
					return err
				}
				count += n
			}
			if count == 0 {
				c.printInfo("Cache is empty")
				return nil
			}
			c.printSuccess("Cleared %d cached files", count)
			c.printDetail("Directory: %s", root)
			return nil
		},
	}
}

// clearDir removes every file below dir, then the emptied directories.
// dir itself is kept.
func clearDir(dir string) (int, error) {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return 0, nil
	}

	count := 0
	var dirs []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || path == dir {
			return nil
		}
		if d.IsDir() {
			dirs = append(dirs, path)
			return nil
		}
		if os.Remove(path) == nil {
			count++
		}
		return nil
	})
	if err != nil {
		return count, err
	}
	// deepest first
	for i := len(dirs) - 1; i >= 0; i-- {
		os.Remove(dirs[i])
	}
	return count, nil
}
