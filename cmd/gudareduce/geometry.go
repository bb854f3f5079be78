package main

import (
	"fmt"

	guda "github.com/LynnColeArt/gudareduce"
	"github.com/LynnColeArt/gudareduce/reduce"
	"github.com/janpfeifer/must"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

func newGeometryCmd() *cobra.Command {
	geometryCmd := &cobra.Command{
		Use:   "geometry",
		Short: "Show the launch geometry of a reduction",
		Long: `Show the launch geometry chosen for reducing --in input elements into --out
output elements with an accumulator of --acc-size bytes.`,
		Args: cobra.NoArgs,
		RunE: GeometryHandler,
	}
	geometryCmd.Flags().Int64("in", 1<<20, "Number of input elements")
	geometryCmd.Flags().Int64("out", 1, "Number of output elements")
	geometryCmd.Flags().Int("acc-size", 8, "Accumulator size in bytes")
	return geometryCmd
}

// GeometryHandler prints the block and grid sizes of a reduction launch.
func GeometryHandler(cmd *cobra.Command, args []string) error {
	inTotal := must.M1(cmd.Flags().GetInt64("in"))
	outTotal := must.M1(cmd.Flags().GetInt64("out"))
	accSize := must.M1(cmd.Flags().GetInt("acc-size"))
	switch {
	case inTotal < 0 || outTotal <= 0:
		return guda.NewInvalidArgErrorf("geometry", "need --in >= 0 and --out > 0, got %d and %d", inTotal, outTotal)
	case accSize <= 0:
		return guda.NewInvalidArgErrorf("geometry", "--acc-size must be positive, got %d", accSize)
	}

	ctx, err := newContext(cmd)
	if err != nil {
		return err
	}
	defer ctx.Destroy()

	_, occupancy := ctx.OccupancyMaxPotentialBlockSize(accSize)
	g := reduce.ComputeGeometry(occupancy, inTotal, outTotal, accSize, ctx.Device().MaxGridSize)
	if g.SharedMemSize > ctx.Device().SharedMemPerBlock {
		return guda.NewInvalidArgErrorf("geometry", "a %d byte accumulator does not fit the device shared memory", accSize)
	}

	threads := int64(g.GridSize) * int64(g.OutBlockSize)
	data := [][]string{
		{"OCCUPANCY BLOCK SIZE", fmt.Sprint(occupancy)},
		{"BLOCK SIZE", fmt.Sprint(g.BlockSize())},
		{"REDUCE BLOCK SIZE", fmt.Sprint(g.ReduceBlockSize)},
		{"OUT BLOCK SIZE", fmt.Sprint(g.OutBlockSize)},
		{"GRID SIZE", fmt.Sprint(g.GridSize)},
		{"SHARED MEMORY", fmt.Sprintf("%d B", g.SharedMemSize)},
		{"OUTPUTS PER THREAD GROUP", fmt.Sprint((outTotal + threads - 1) / threads)},
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
