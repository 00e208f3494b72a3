package curve

import (
	"bytes"
	"fmt"

	"github.com/guptarohit/asciigraph"
	"github.com/longctl/longctl/cmd/global"
	"github.com/longctl/longctl/internal/configuration"
	"github.com/longctl/longctl/internal/curves"
	"github.com/longctl/longctl/internal/ui"
	"github.com/longctl/longctl/internal/util"
	"github.com/mgutz/ansi"
	"github.com/spf13/cobra"
	"github.com/tomlazar/table"
)

const (
	// speed range of the plotted profiles, in m/s
	graphMaxSpeed  = 40.0
	graphSpeedStep = 0.5
)

var curveCmd = &cobra.Command{
	Use:   "list",
	Short: "Print the gas profiles to console",
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		interceptor := hasInterceptor
		if !cmd.Flags().Changed("interceptor") {
			configPath := configuration.DetectAndReadConfigFile()
			ui.Info("Using configuration file at: %s", configPath)
			configuration.LoadConfig()
			interceptor = configuration.CurrentConfig.Vehicle.HasInterceptor
		}

		profiles := curves.GasProfiles(interceptor)
		if gasModeName != "" {
			mode, err := configuration.ParseGasMode(gasModeName)
			if err != nil {
				return err
			}
			profiles = filterProfiles(profiles, mode)
			if len(profiles) == 0 {
				return fmt.Errorf("no gas profile for mode '%s'", mode)
			}
		}

		for idx, profile := range profiles {
			if idx > 0 {
				ui.Printfln("")
				ui.Printfln("")
			}

			ui.Printfln(renderProfileTable(profile))

			values := util.InterpolateLinearly(profile.Curve.BP, profile.Curve.V, 0, graphMaxSpeed, graphSpeedStep)
			caption := fmt.Sprintf("max gas / speed (0..%.0f m/s)", graphMaxSpeed)
			graph := asciigraph.Plot(values, asciigraph.Height(15), asciigraph.Width(100), asciigraph.Caption(caption))
			ui.Printfln(graph)
		}

		return nil
	},
}

func filterProfiles(profiles []curves.GasProfile, mode configuration.GasMode) []curves.GasProfile {
	var result []curves.GasProfile
	for _, profile := range profiles {
		if profile.Mode == mode {
			result = append(result, profile)
		}
	}
	return result
}

func renderProfileTable(profile curves.GasProfile) string {
	tab := table.Table{
		Headers: []string{"Mode", "Interceptor", "Breakpoints", "Min", "Max"},
		Rows: [][]string{
			{
				profile.Mode.String(),
				fmt.Sprintf("%v", profile.Interceptor),
				fmt.Sprintf("%d", len(profile.Curve.BP)),
				fmt.Sprintf("%.4f", util.Min(profile.Curve.V)),
				fmt.Sprintf("%.4f", util.Max(profile.Curve.V)),
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
	Command.AddCommand(curveCmd)
}
