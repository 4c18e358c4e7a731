package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/viper"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"

	"github.com/fivetwenty-io/restpipe/internal/constants"
	"github.com/fivetwenty-io/restpipe/internal/logging"
	"github.com/fivetwenty-io/restpipe/pkg/rest"
	"github.com/fivetwenty-io/restpipe/pkg/rest/cache"
	"github.com/fivetwenty-io/restpipe/pkg/rest/table"
	"github.com/fivetwenty-io/restpipe/pkg/restclient"
)

// Static errors for err113 compliance.
var (
	ErrUnknownMethod    = errors.New("unknown method")
	ErrUnknownConfigKey = errors.New("unknown configuration key")
)

// JSON formatting.
const defaultJSONIndent = 2

// outputFormat returns the selected output format.
func outputFormat() string {
	format := viper.GetString("output")
	if format == "" {
		return constants.FormatTable
	}

	return format
}

// writeOutput encodes value as JSON or YAML, or calls renderTable for the
// table format.
func writeOutput(w io.Writer, value interface{}, renderTable func(table *tablewriter.Table) error) error {
	switch outputFormat() {
	case constants.FormatJSON:
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", strings.Repeat(" ", defaultJSONIndent))

		return encoder.Encode(value)
	case constants.FormatYAML:
		encoder := yaml.NewEncoder(w)

		err := encoder.Encode(value)
		if err != nil {
			return fmt.Errorf("encoding yaml: %w", err)
		}

		return encoder.Close()
	case constants.FormatTable:
		tbl := tablewriter.NewWriter(w)

		err := renderTable(tbl)
		if err != nil {
			return err
		}

		err = tbl.Render()
		if err != nil {
			return fmt.Errorf("failed to render table: %w", err)
		}

		return nil
	default:
		return fmt.Errorf("%w: %s", constants.ErrUnknownOutputFormat, outputFormat())
	}
}

// parseArgs reads name=value arguments. A name given more than once
// becomes a list.
func parseArgs(values []string) (rest.Args, error) {
	args := make(rest.Args, len(values))

	for _, value := range values {
		name, v, ok := strings.Cut(value, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("%w: %q", constants.ErrInvalidArgument, value)
		}

		switch existing := args[name].(type) {
		case nil:
			args[name] = v
		case string:
			args[name] = []string{existing, v}
		case []string:
			args[name] = append(existing, v)
		}
	}

	return args, nil
}

// newLogger logs to stderr at debug level when --verbose is set.
func newLogger() rest.Logger {
	if !viper.GetBool("verbose") {
		return rest.NopLogger()
	}

	return logging.New(logging.Config{
		Level:   "debug",
		Format:  logging.FormatConsole,
		NoColor: viper.GetBool("no_color") || !term.IsTerminal(int(os.Stderr.Fd())),
	}, os.Stderr).WithComponent("restpipe")
}

// loadMethods reads the configured descriptor table into a new registry.
func loadMethods() (*table.Table, *rest.Registry, error) {
	path := viper.GetString("methods")
	if path == "" {
		return nil, nil, constants.ErrNoDescriptorFile
	}

	tbl, err := table.Load(path)
	if err != nil {
		return nil, nil, err
	}

	registry := rest.NewRegistry()
	tbl.Register(registry)

	return tbl, registry, nil
}

// lookupMethod resolves id in registry.
func lookupMethod(registry *rest.Registry, id string) (*rest.Descriptor, error) {
	d, err := registry.Lookup(id)
	if errors.Is(err, rest.ErrDescriptorNotFound) {
		return nil, fmt.Errorf("%w: %s (see 'restpipe methods')", ErrUnknownMethod, id)
	}

	if err != nil {
		return nil, err
	}

	return d, nil
}

// clientConfig builds the client configuration from flags, environment and
// config file.
func clientConfig(registry *rest.Registry) (*restclient.Config, error) {
	endpoint := viper.GetString("endpoint")
	if endpoint == "" {
		return nil, constants.ErrNoEndpointConfigured
	}

	config := &restclient.Config{
		Endpoint:       endpoint,
		AccessToken:    viper.GetString("token"),
		Username:       viper.GetString("username"),
		Password:       viper.GetString("password"),
		HMACIdentity:   viper.GetString("hmac_identity"),
		HMACSecret:     viper.GetString("hmac_secret"),
		TokenURL:       viper.GetString("token_url"),
		ClientID:       viper.GetString("client_id"),
		ClientSecret:   viper.GetString("client_secret"),
		RefreshToken:   viper.GetString("refresh_token"),
		Scopes:         viper.GetStringSlice("scopes"),
		Headers:        viper.GetStringMapString("headers"),
		UserAgent:      viper.GetString("user_agent"),
		HTTPTimeout:    viper.GetDuration("http_timeout"),
		RetryMax:       viper.GetInt("retry_max"),
		MaxConcurrency: viper.GetInt("max_concurrency"),
		SkipTLSVerify:  viper.GetBool("skip_ssl_validation"),
		Debug:          viper.GetBool("verbose"),
		Logger:         newLogger(),
		Registry:       registry,
	}

	if config.Username != "" && config.Password == "" && config.AccessToken == "" {
		password, err := readPassword("Password: ")
		if err != nil {
			return nil, err
		}

		config.Password = password
	}

	cacheType := viper.GetString("cache.type")
	if cacheType != "" {
		config.Cache = &cache.Config{
			Type:    cache.Type(cacheType),
			MaxSize: viper.GetInt("cache.max_size"),
		}

		if config.Cache.Type == cache.TypeNATS {
			config.Cache.NATS = &cache.NATSKVConfig{
				URL:    viper.GetString("cache.nats.url"),
				Bucket: viper.GetString("cache.nats.bucket"),
				TTL:    viper.GetDuration("cache.nats.ttl"),
				Name:   "restpipe-cli",
				Logger: config.Logger,
			}
		}
	}

	return config, nil
}

// newClient creates a client for the methods in registry.
func newClient(ctx context.Context, registry *rest.Registry) (*restclient.Client, error) {
	config, err := clientConfig(registry)
	if err != nil {
		return nil, err
	}

	client, err := restclient.New(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}

	return client, nil
}

// readPassword prompts on the terminal. Without a terminal the password is
// empty.
func readPassword(prompt string) (string, error) {
	fd := int(os.Stdin.Fd()) //nolint:gosec
	if !term.IsTerminal(fd) {
		return "", nil
	}

	fmt.Fprint(os.Stderr, prompt)

	password, err := term.ReadPassword(fd)

	fmt.Fprintln(os.Stderr)

	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}

	return string(password), nil
}

// sortedKeys returns the keys of m in order.
func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}

	sort.Strings(keys)

	return keys
}
