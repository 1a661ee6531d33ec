// Command mkfs formats a flatfs image, per spec.md §6's formatter CLI:
// mkfs -i N [-f] [-z] [-h] <image>.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/flatfs/flatfs/internal/image"
	"github.com/flatfs/flatfs/internal/logger"
	"github.com/flatfs/flatfs/internal/mkfs"
)

var (
	inodeCount uint32
	force      bool
	zero       bool
)

var rootCmd = &cobra.Command{
	Use:   "mkfs [flags] <image>",
	Short: "Format an image file as a flatfs file system",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if inodeCount == 0 {
			return fmt.Errorf("mkfs: -i N is required and must be > 0")
		}

		log := logger.New(logger.LevelInfo)
		defer log.Close()

		region, err := image.Map(args[0])
		if err != nil {
			return fmt.Errorf("mkfs: %w", err)
		}
		defer region.Close()

		_, err = mkfs.Format(region.Bytes(), mkfs.Options{
			InodeCount: inodeCount,
			Force:      force,
			Zero:       zero,
		})
		if err != nil {
			return fmt.Errorf("mkfs: %w", err)
		}

		log.Infof("formatted %s: %d inodes", args[0], inodeCount)
		return nil
	},
}

func init() {
	rootCmd.Flags().Uint32VarP(&inodeCount, "inode-count", "i", 0, "number of inodes (required, > 0)")
	rootCmd.Flags().BoolVarP(&force, "force", "f", false, "overwrite an existing valid image")
	rootCmd.Flags().BoolVarP(&zero, "zero", "z", false, "zero the image before formatting")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
