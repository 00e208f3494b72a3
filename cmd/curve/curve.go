package curve

import (
	"strings"

	"github.com/longctl/longctl/internal/configuration"
	"github.com/spf13/cobra"
)

var (
	gasModeName    string
	hasInterceptor bool
)

var Command = &cobra.Command{
	Use:              "curve",
	Short:            "Gas profile related commands",
	TraverseChildren: true,
}

func init() {
	Command.PersistentFlags().StringVarP(
		&gasModeName,
		"mode", "m",
		"",
		"Only show the profile of this gas mode ("+strings.Join(configuration.GasModeNames(), " | ")+")",
	)
	Command.PersistentFlags().BoolVarP(
		&hasInterceptor,
		"interceptor", "",
		false,
		"Show the profiles of a vehicle with a gas interceptor (default is read from the config)",
	)
}
