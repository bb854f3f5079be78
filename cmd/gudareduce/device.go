package main

import (
	"fmt"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

func newDeviceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "device",
		Short: "Show the device limits",
		Args:  cobra.NoArgs,
		RunE:  DeviceHandler,
	}
}

// DeviceHandler prints the limits of the device the flags describe.
func DeviceHandler(cmd *cobra.Command, args []string) error {
	ctx, err := newContext(cmd)
	if err != nil {
		return err
	}
	defer ctx.Destroy()

	d := ctx.Device()
	_, occupancy := ctx.OccupancyMaxPotentialBlockSize(0)
	features := strings.Join(d.Features, " ")
	if features == "" {
		features = "-"
	}

	data := [][]string{
		{"NAME", d.Name},
		{"CORES", fmt.Sprint(d.NumCores)},
		{"MAX THREADS", fmt.Sprint(d.MaxThreads)},
		{"MAX THREADS PER BLOCK", fmt.Sprint(d.MaxThreadsPerBlock)},
		{"SHARED MEM PER BLOCK", fmt.Sprintf("%d B", d.SharedMemPerBlock)},
		{"MAX GRID SIZE", fmt.Sprint(d.MaxGridSize)},
		{"WARP SIZE", fmt.Sprint(d.WarpSize)},
		{"OCCUPANCY BLOCK SIZE", fmt.Sprint(occupancy)},
		{"MEMORY", fmt.Sprintf("%d MiB", d.TotalMem>>20)},
		{"FEATURES", features},
	}

	table := tablewriter.NewWriter(cmd.OutOrStdout())
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetBorder(false)
	table.SetNoWhiteSpace(true)
	table.SetTablePadding("    ")
	table.AppendBulk(data)
	table.Render()
	return nil
}
