package commands

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/fivetwenty-io/restpipe/internal/constants"
)

// configKeys are the settings the CLI reads.
var configKeys = []string{
	"endpoint",
	"methods",
	"token",
	"username",
	"password",
	"hmac_identity",
	"hmac_secret",
	"token_url",
	"client_id",
	"client_secret",
	"refresh_token",
	"scopes",
	"user_agent",
	"output",
	"no_color",
	"http_timeout",
	"retry_max",
	"max_concurrency",
	"skip_ssl_validation",
	"cache.type",
	"cache.max_size",
	"cache.nats.url",
	"cache.nats.bucket",
	"cache.nats.ttl",
}

var secretKeys = []string{"token", "password", "hmac_secret", "client_secret", "refresh_token"}

// NewConfigCommand creates the config command group.
func NewConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage CLI configuration",
		Long:  "Show and change the settings stored in the restpipe config file",
	}

	cmd.AddCommand(newConfigShowCommand())
	cmd.AddCommand(newConfigSetCommand())
	cmd.AddCommand(newConfigUnsetCommand())

	return cmd
}

func newConfigShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		Long:  "Display the effective configuration from flags, environment and config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			settings := effectiveSettings()

			return writeOutput(cmd.OutOrStdout(), settings, func(table *tablewriter.Table) error {
				table.Header("Key", "Value")

				for _, key := range configKeys {
					value, ok := settings[key]
					if !ok {
						value = constants.NotAvailable
					}

					_ = table.Append(key, value)
				}

				return nil
			})
		},
	}
}

func newConfigSetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "set KEY VALUE",
		Short: "Set a configuration value",
		Long:  "Store a configuration value in the config file",
		Args:  cobra.ExactArgs(2), //nolint:mnd
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := configFilePath()
			if err != nil {
				return err
			}

			err = saveSetting(path, args[0], args[1])
			if err != nil {
				return err
			}

			value := args[1]
			if slices.Contains(secretKeys, args[0]) {
				value = constants.MaskedSecret
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Set %s = %s in %s\n", args[0], value, path)

			return nil
		},
	}
}

func newConfigUnsetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "unset KEY",
		Short: "Unset a configuration value",
		Long:  "Remove a configuration value from the config file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := configFilePath()
			if err != nil {
				return err
			}

			err = removeSetting(path, args[0])
			if err != nil {
				return err
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Unset %s in %s\n", args[0], path)

			return nil
		},
	}
}

// effectiveSettings returns every set key with secrets masked.
func effectiveSettings() map[string]string {
	settings := make(map[string]string)

	for _, key := range configKeys {
		if !viper.IsSet(key) {
			continue
		}

		value := viper.GetString(key)
		if value == "" {
			continue
		}

		if slices.Contains(secretKeys, key) {
			value = constants.MaskedSecret
		}

		settings[key] = value
	}

	return settings
}

// configFilePath returns the config file in use, or ~/.restpipe/config.yml.
func configFilePath() (string, error) {
	configFile := viper.ConfigFileUsed()
	if configFile != "" {
		return configFile, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	return filepath.Join(home, ".restpipe", "config.yml"), nil
}

// readSettings reads the config file as a nested map. A missing file is
// empty.
func readSettings(path string) (map[string]interface{}, error) {
	settings := make(map[string]interface{})

	data, err := os.ReadFile(path) //nolint:gosec
	if errors.Is(err, os.ErrNotExist) {
		return settings, nil
	}

	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	err = yaml.Unmarshal(data, &settings)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if settings == nil {
		settings = make(map[string]interface{})
	}

	return settings, nil
}

func writeSettings(path string, settings map[string]interface{}) error {
	err := os.MkdirAll(filepath.Dir(path), constants.ConfigDirPerm)
	if err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(settings)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	err = os.WriteFile(path, data, constants.ConfigFilePerm)
	if err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// saveSetting stores a dotted key such as cache.nats.url.
func saveSetting(path, key, value string) error {
	if !slices.Contains(configKeys, key) {
		return fmt.Errorf("%w: %s", ErrUnknownConfigKey, key)
	}

	settings, err := readSettings(path)
	if err != nil {
		return err
	}

	parts := strings.Split(key, ".")
	node := settings

	for _, part := range parts[:len(parts)-1] {
		child, ok := node[part].(map[string]interface{})
		if !ok {
			child = make(map[string]interface{})
			node[part] = child
		}

		node = child
	}

	node[parts[len(parts)-1]] = value

	return writeSettings(path, settings)
}

// removeSetting deletes a dotted key. Unknown keys are an error; keys that
// are not set are not.
func removeSetting(path, key string) error {
	if !slices.Contains(configKeys, key) {
		return fmt.Errorf("%w: %s", ErrUnknownConfigKey, key)
	}

	settings, err := readSettings(path)
	if err != nil {
		return err
	}

	parts := strings.Split(key, ".")
	node := settings

	for _, part := range parts[:len(parts)-1] {
		child, ok := node[part].(map[string]interface{})
		if !ok {
			return nil
		}

		node = child
	}

	delete(node, parts[len(parts)-1])

	return writeSettings(path, settings)
}
