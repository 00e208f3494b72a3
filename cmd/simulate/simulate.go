package simulate

import (
	"bytes"
	"context"
	"fmt"

	"github.com/guptarohit/asciigraph"
	"github.com/longctl/longctl/cmd/global"
	"github.com/longctl/longctl/internal"
	"github.com/longctl/longctl/internal/configuration"
	"github.com/longctl/longctl/internal/telemetry"
	"github.com/longctl/longctl/internal/ui"
	"github.com/longctl/longctl/internal/util"
	"github.com/mgutz/ansi"
	"github.com/spf13/cobra"
	"github.com/tomlazar/table"
)

var (
	outputPath  string
	gasModeName string
	noGraph     bool
)

var Command = &cobra.Command{
	Use:   "simulate <scenario>",
	Short: "Replay a telemetry scenario offline and print the resulting commands",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath := configuration.DetectAndReadConfigFile()
		ui.Info("Using configuration file at: %s", configPath)
		configuration.LoadConfig()
		if err := configuration.Validate(); err != nil {
			return err
		}

		mode := configuration.GasModeUnset
		if gasModeName != "" {
			var err error
			mode, err = configuration.ParseGasMode(gasModeName)
			if err != nil {
				return err
			}
		}

		scenario, err := telemetry.LoadScenario(args[0])
		if err != nil {
			return err
		}

		result, err := internal.Simulate(context.Background(), configuration.CurrentConfig, scenario, mode)
		if err != nil {
			return err
		}

		ui.Printfln(renderSummary(result))

		if !noGraph && len(result.Trace) > 0 {
			speeds := result.Series(func(row internal.TraceRow) float64 { return row.Input.Vehicle.VEgo })
			setpoints := result.Series(func(row internal.TraceRow) float64 { return row.Control.VPid })
			graph := asciigraph.PlotMany([][]float64{speeds, setpoints},
				asciigraph.Height(15), asciigraph.Width(100),
				asciigraph.SeriesColors(asciigraph.Blue, asciigraph.Red),
				asciigraph.Caption("vEgo (blue) / vPid (red) in m/s"))
			ui.Printfln(graph)
			ui.Printfln("")

			outputs := result.Series(func(row internal.TraceRow) float64 { return row.Control.Output })
			graph = asciigraph.Plot(outputs, asciigraph.Height(10), asciigraph.Width(100),
				asciigraph.Caption("output (gas > 0, brake < 0)"))
			ui.Printfln(graph)
		}

		if outputPath != "" {
			if err := result.WriteCsv(outputPath); err != nil {
				return err
			}
			ui.Success("Trace written to %s", outputPath)
		}
		return nil
	},
}

func renderSummary(result *internal.SimulationResult) string {
	maxGas := util.Max(result.Series(func(row internal.TraceRow) float64 { return row.Control.Gas }))
	maxBrake := util.Max(result.Series(func(row internal.TraceRow) float64 { return row.Control.Brake }))

	tab := table.Table{
		Headers: []string{"Scenario", "Gas Mode", "Cycles", "Engagements", "Stops", "Pedal Overrides", "Max Gas", "Max Brake"},
		Rows: [][]string{
			{
				result.Scenario,
				result.GasMode.String(),
				fmt.Sprintf("%d", result.Stats.Cycles),
				fmt.Sprintf("%d", result.Stats.Engagements),
				fmt.Sprintf("%d", result.Stats.Stops),
				fmt.Sprintf("%d", result.Stats.PedalOverrides),
				fmt.Sprintf("%.4f", maxGas),
				fmt.Sprintf("%.4f", maxBrake),
			},
		},
	}
	var buf bytes.Buffer
	tableErr := tab.WriteTable(&buf, &table.Config{
		ShowIndex:       false,
		Color:           !global.NoColor,
		AlternateColors: true,
		TitleColorCode:  ansi.ColorCode("white+buf"),
		AltColorCodes: []string{
			ansi.ColorCode("white"),
			ansi.ColorCode("white:236"),
		},
	})
	if tableErr != nil {
		panic(tableErr)
	}
	return buf.String()
}

func init() {
	Command.Flags().StringVarP(&outputPath, "output", "o", "", "Write the trace of every cycle to this CSV file")
	Command.Flags().StringVarP(&gasModeName, "mode", "m", "", "Override the configured gas mode")
	Command.Flags().BoolVarP(&noGraph, "no-graph", "", false, "Do not plot the trace")
}
