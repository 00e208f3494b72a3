package gasmode

import (
	"errors"
	"os"

	"github.com/longctl/longctl/internal/configuration"
	"github.com/longctl/longctl/internal/persistence"
	"github.com/longctl/longctl/internal/ui"
	"github.com/spf13/cobra"
)

var Command = &cobra.Command{
	Use:              "gasmode",
	Short:            "Read or change the persisted driver gas mode",
	TraverseChildren: true,
}

var getCmd = &cobra.Command{
	Use:   "get",
	Short: "Print the gas mode used on the next start",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		p := loadPersistence()
		vehicleId := configuration.CurrentConfig.Vehicle.Id

		mode, err := p.LoadGasMode(vehicleId)
		if errors.Is(err, os.ErrNotExist) {
			ui.Printfln("%s (from config)", configuration.CurrentConfig.GasMode)
			return nil
		}
		if err != nil {
			return err
		}
		ui.Printfln("%s", mode)
		return nil
	},
}

var setCmd = &cobra.Command{
	Use:       "set <mode>",
	Short:     "Persist the gas mode of the configured vehicle",
	Long:      "Persist the gas mode of the configured vehicle. A running daemon only picks it up on restart, use the api to change it immediately.",
	Args:      cobra.ExactArgs(1),
	ValidArgs: append(configuration.GasModeNames(), "unset"),
	RunE: func(cmd *cobra.Command, args []string) error {
		mode, err := configuration.ParseGasMode(args[0])
		if err != nil {
			return err
		}

		p := loadPersistence()
		vehicleId := configuration.CurrentConfig.Vehicle.Id
		if mode.IsSet() {
			err = p.SaveGasMode(vehicleId, mode)
		} else {
			err = p.DeleteGasMode(vehicleId)
		}
		if err != nil {
			return err
		}

		ui.Success("Gas mode of vehicle '%s' set to '%s'", vehicleId, mode)
		return nil
	},
}

func loadPersistence() persistence.Persistence {
	configPath := configuration.DetectAndReadConfigFile()
	ui.Debug("Using configuration file at: %s", configPath)
	configuration.LoadConfig()

	p := persistence.NewPersistence(configuration.CurrentConfig.DbPath)
	if err := p.Init(); err != nil {
		ui.Fatal("Unable to initialize persistence at %s: %v", configuration.CurrentConfig.DbPath, err)
	}
	return p
}

func init() {
	Command.AddCommand(getCmd)
	Command.AddCommand(setCmd)
}
