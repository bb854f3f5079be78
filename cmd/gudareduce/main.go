// Copyright ©2024 The GUDA Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command gudareduce inspects the emulated device, plans reduction launches
// and runs reductions over generated arrays.
//
// Usage:
//
//	gudareduce device
//	gudareduce geometry --in 1048576 --out 1024 --acc-size 8
//	gudareduce reduce --op sum --shape 2,3 --axes 1
//	gudareduce version
//
// Device limits can be overridden on every command to emulate a smaller
// accelerator, and klog flags (-v, -logtostderr, ...) control logging.
package main

import (
	"flag"
	"fmt"
	"os"

	guda "github.com/LynnColeArt/gudareduce"
	"github.com/spf13/cobra"
	"k8s.io/klog/v2"
)

func main() {
	defer klog.Flush()
	if err := NewCLI().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// NewCLI builds the command tree.
func NewCLI() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "gudareduce",
		Short:         "Strided parallel reductions on the GUDA device",
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.Int("max-threads-per-block", 0, "Override the device limit on threads per block")
	flags.Int("shared-mem-per-block", 0, "Override the device shared memory per block, in bytes")
	flags.Int("max-grid-size", 0, "Override the device limit on blocks per launch")
	flags.Int("workers", 0, "Blocks executed concurrently (default: number of CPUs)")

	klogFlags := flag.NewFlagSet("klog", flag.ContinueOnError)
	klog.InitFlags(klogFlags)
	flags.AddGoFlagSet(klogFlags)

	rootCmd.AddCommand(
		newDeviceCmd(),
		newGeometryCmd(),
		newReduceCmd(),
		newVersionCmd(),
	)
	return rootCmd
}

// deviceOptions turns the persistent device flags into context options.
func deviceOptions(cmd *cobra.Command) ([]guda.Option, error) {
	flags := cmd.Flags()
	var opts []guda.Option
	for name, option := range map[string]func(int) guda.Option{
		"max-threads-per-block": guda.WithMaxThreadsPerBlock,
		"shared-mem-per-block":  guda.WithSharedMemPerBlock,
		"max-grid-size":         guda.WithMaxGridSize,
		"workers":               guda.WithWorkers,
	} {
		if !flags.Changed(name) {
			continue
		}
		v, err := flags.GetInt(name)
		if err != nil {
			return nil, err
		}
		if v <= 0 {
			return nil, guda.NewInvalidArgErrorf(cmd.Name(), "--%s must be positive, got %d", name, v)
		}
		opts = append(opts, option(v))
	}
	return opts, nil
}

// newContext returns a context honoring the device flags. The caller
// destroys it.
func newContext(cmd *cobra.Command) (*guda.Context, error) {
	opts, err := deviceOptions(cmd)
	if err != nil {
		return nil, err
	}
	return guda.NewContext(opts...), nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			version, sum := guda.Version()
			if version == "" {
				version = "(devel)"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "gudareduce %s %s\n", version, sum)
		},
	}
}
