package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/jmylchreest/airwave/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration management commands",
	Long:  `Commands for managing airwave configuration.`,
}

var configDumpCmd = &cobra.Command{
	Use:   "dump",
	Short: "Dump the effective configuration",
	Long: `Dump the effective configuration values in YAML format, after
applying defaults, the config file and environment variables. Secrets
are redacted. Redirect the output to a file to create a configuration
template:

  airwave config dump > config.yaml

Configuration can be set via:
  - Config file (./config.yaml, ./configs, /etc/airwave, $HOME/.airwave)
  - Environment variables (AIRWAVE_SERVER_PORT, AIRWAVE_DATABASE_DSN, ...)
  - Command-line flags (for some options)

Environment variables use the AIRWAVE_ prefix and underscores for nesting.
Example: playout.min_prefeed_lead -> AIRWAVE_PLAYOUT_MIN_PREFEED_LEAD`,
	RunE: runConfigDump,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configDumpCmd)
}

func runConfigDump(*cobra.Command, []string) error {
	v := viper.New()
	config.SetDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/airwave")
		v.AddConfigPath("$HOME/.airwave")
	}

	v.SetEnvPrefix("AIRWAVE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("reading config file: %w", err)
		}
	}

	settings := v.AllSettings()
	redactSecrets(settings)

	out, err := yaml.Marshal(settings)
	if err != nil {
		return fmt.Errorf("marshaling configuration: %w", err)
	}

	fmt.Print(string(out))
	return nil
}

// redactSecrets masks values that must not appear in dumps. Matches the
// masq-tagged fields of the config structs.
func redactSecrets(settings map[string]any) {
	if db, ok := settings["database"].(map[string]any); ok {
		if _, ok := db["dsn"]; ok {
			db["dsn"] = "[REDACTED]"
		}
	}
}
