// Command flatfs mounts a flatfs image at a directory. It takes exactly two
// arguments, the image path and the mount point, plus its own --check,
// --debug and --log-file flags; no other arguments or FUSE mount options
// are passed through to the underlying FUSE bridge.
package main

import (
	"fmt"
	"os"

	"github.com/hanwen/go-fuse/v2/fuse"
	"github.com/hanwen/go-fuse/v2/nodefs"
	"github.com/hanwen/go-fuse/v2/pathfs"
	"github.com/spf13/cobra"

	realclock "github.com/flatfs/flatfs/clock"
	"github.com/flatfs/flatfs/internal/bridge"
	"github.com/flatfs/flatfs/internal/fsck"
	"github.com/flatfs/flatfs/internal/fsops"
	"github.com/flatfs/flatfs/internal/image"
	"github.com/flatfs/flatfs/internal/layout"
	"github.com/flatfs/flatfs/internal/logger"
)

var (
	check   bool
	debug   bool
	logFile string
)

var rootCmd = &cobra.Command{
	Use:   "flatfs [flags] <image> <mount-point>",
	Short: "Mount a flatfs image as a user-space file system",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		imagePath, mountPoint := args[0], args[1]

		var log *logger.Logger
		if logFile != "" {
			log = logger.NewRotatingFile(logFile, logger.LevelInfo)
			defer log.Close()
		} else {
			log = logger.New(logger.LevelInfo)
		}

		region, err := image.Map(imagePath)
		if err != nil {
			return fmt.Errorf("flatfs: %w", err)
		}
		defer region.Close()

		l, err := layout.Bind(region.Bytes())
		if err != nil {
			return fmt.Errorf("flatfs: %w", err)
		}

		if check {
			if err := fsck.Check(l); err != nil {
				return fmt.Errorf("flatfs: refusing to mount a dirty image: %w", err)
			}
		}

		d := fsops.NewDispatcher(l, realclock.RealClock{})
		fsImpl := bridge.New(d, log)

		nfs := pathfs.NewPathNodeFs(fsImpl, nil)
		conn := nodefs.NewFileSystemConnector(nfs.Root(), nodefs.NewOptions())
		server, err := fuse.NewServer(conn.RawFS(), mountPoint, &fuse.MountOptions{Debug: debug})
		if err != nil {
			return fmt.Errorf("flatfs: mount failed: %w", err)
		}

		log.Infof("mounted %s (image id %x) at %s", imagePath, l.Superblock().UUID(), mountPoint)
		server.Serve()
		return nil
	},
}

func init() {
	rootCmd.Flags().BoolVar(&check, "check", false, "run the consistency checker before mounting and refuse to mount a dirty image")
	rootCmd.Flags().BoolVar(&debug, "debug", false, "enable FUSE debug logging")
	rootCmd.Flags().StringVar(&logFile, "log-file", "", "write logs to this rotating file instead of stderr")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
