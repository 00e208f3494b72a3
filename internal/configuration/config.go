package configuration

import (
	"os"
	"time"

	"github.com/longctl/longctl/internal/ui"
	"github.com/mitchellh/go-homedir"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

type Configuration struct {
	DbPath string `json:"dbPath"`

	// Number of control cycles per second
	Rate float64 `json:"rate"`
	// Number of cycles between two status publications to observers
	StatusPublishInterval int `json:"statusPublishInterval"`
	// Amount of cycle durations kept to detect scheduling overruns
	CycleTimeWindowSize int `json:"cycleTimeWindowSize"`

	Vehicle      VehicleConfig      `json:"vehicle"`
	Longitudinal LongitudinalConfig `json:"longitudinal"`
	GasMode      GasMode            `json:"gasMode"`

	Telemetry  TelemetryConfig  `json:"telemetry"`
	Actuator   ActuatorConfig   `json:"actuator"`
	Api        ApiConfig        `json:"api"`
	Statistics StatisticsConfig `json:"statistics"`
}

type TelemetryConfig struct {
	// Path to a recorded telemetry scenario
	File string `json:"file"`
	// Restart the scenario once it is exhausted
	Loop bool `json:"loop"`
}

type StatisticsConfig struct {
	Enabled bool `json:"enabled"`
	Port    int  `json:"port"`
}

var CurrentConfig Configuration

// InitConfig reads in config file and ENV variables if set.
func InitConfig(cfgFile string) {
	viper.SetConfigName("longctl")

	if cfgFile != "" {
		// Use config file from the flag.
		viper.SetConfigFile(cfgFile)
	} else {
		// Find home directory.
		home, err := homedir.Dir()
		if err != nil {
			ui.Error("Couldn't detect home directory: %v", err)
			os.Exit(1)
		}

		viper.AddConfigPath(".")
		viper.AddConfigPath(home)
		viper.AddConfigPath("/etc/longctl/")
	}

	viper.SetEnvPrefix("LONGCTL")
	viper.AutomaticEnv() // read in environment variables that match

	setDefaultValues()
}

func setDefaultValues() {
	viper.SetDefault("dbPath", "/etc/longctl/longctl.db")
	viper.SetDefault("rate", DefaultRate)
	viper.SetDefault("statusPublishInterval", 10)
	viper.SetDefault("cycleTimeWindowSize", 100)

	viper.SetDefault("vehicle.id", "vehicle")
	viper.SetDefault("vehicle.hasInterceptor", false)
	viper.SetDefault("vehicle.stoppingControl", false)

	viper.SetDefault("longitudinal.ignorePedalOverride", false)

	viper.SetDefault("gasMode", GasModeDefault.String())

	viper.SetDefault("telemetry.loop", false)

	viper.SetDefault("actuator.log", false)

	viper.SetDefault("api.enabled", false)
	viper.SetDefault("api.host", "localhost")
	viper.SetDefault("api.port", 9001)

	viper.SetDefault("statistics.enabled", false)
	viper.SetDefault("statistics.port", 9000)
}

// DetectAndReadConfigFile detects the path of the first existing config file
// and reads it into viper
func DetectAndReadConfigFile() string {
	err := viper.ReadInConfig()
	if err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// config file is required, so we fail here
			ui.Fatal("No config file found: %v", err)
		} else {
			ui.Fatal("Error reading config file, %s", err)
		}
	}
	return viper.ConfigFileUsed()
}

// LoadConfig decodes the current viper state into CurrentConfig
// and fills in vehicle specific defaults
func LoadConfig() {
	err := viper.Unmarshal(&CurrentConfig, viper.DecodeHook(
		mapstructure.ComposeDecodeHookFunc(
			CurveConfigHookFunc(),
			GasModeHookFunc(),
			mapstructure.StringToTimeDurationHookFunc(),
		),
	))
	if err != nil {
		ui.Fatal("unable to decode into struct, %v", err)
	}

	CurrentConfig.ApplyDefaults()
}

// ApplyDefaults fills every unset tuning curve with the defaults
// for the configured vehicle
func (c *Configuration) ApplyDefaults() {
	if c.Rate <= 0 {
		c.Rate = DefaultRate
	}
	if c.StatusPublishInterval <= 0 {
		c.StatusPublishInterval = 1
	}
	if c.CycleTimeWindowSize <= 0 {
		c.CycleTimeWindowSize = 1
	}
	c.Longitudinal.ApplyDefaults(c.Vehicle.HasInterceptor)
}

// CycleTime returns the duration of a single control cycle
func (c *Configuration) CycleTime() time.Duration {
	return time.Duration(float64(time.Second) / c.Rate)
}
