package commands

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"github.com/fivetwenty-io/restpipe/internal/constants"
	"github.com/fivetwenty-io/restpipe/pkg/rest"
)

// NewInvokeCommand creates the invoke command.
func NewInvokeCommand() *cobra.Command {
	var fanOut string

	cmd := &cobra.Command{
		Use:   "invoke METHOD_ID [NAME=VALUE...]",
		Short: "Call a method and print the result",
		Long: `Call a method of the descriptor table and print the parsed result.

With --for NAME=V1,V2,... the method is called once per value, concurrently,
and the results are printed in the order of the values.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, registry, err := loadMethods()
			if err != nil {
				return err
			}

			d, err := lookupMethod(registry, args[0])
			if err != nil {
				return err
			}

			callArgs, err := parseArgs(args[1:])
			if err != nil {
				return err
			}

			client, err := newClient(cmd.Context(), registry)
			if err != nil {
				return err
			}

			defer func() { _ = client.Close() }()

			if fanOut == "" {
				result, err := client.Call(cmd.Context(), d, callArgs)
				if err != nil {
					return fmt.Errorf("%s: %w", d.ID(), err)
				}

				return writeResult(cmd, result)
			}

			name, list, ok := strings.Cut(fanOut, "=")
			if !ok || name == "" {
				return fmt.Errorf("%w: --for %q", constants.ErrInvalidArgument, fanOut)
			}

			values := strings.Split(list, ",")
			results := make([]interface{}, len(values))

			group, ctx := errgroup.WithContext(cmd.Context())

			limit := viper.GetInt("max_concurrency")
			if limit <= 0 {
				limit = constants.DefaultConcurrencyLimit
			}

			group.SetLimit(limit)

			for i, value := range values {
				callArgs := cloneArgs(callArgs)
				callArgs[name] = value

				group.Go(func() error {
					result, err := client.Call(ctx, d, callArgs)
					if err != nil {
						return fmt.Errorf("%s %s=%s: %w", d.ID(), name, value, err)
					}

					results[i] = result

					return nil
				})
			}

			err = group.Wait()
			if err != nil {
				return err
			}

			return writeResult(cmd, results)
		},
	}

	cmd.Flags().StringVar(&fanOut, "for", "", "call once per value, NAME=V1,V2,...")

	return cmd
}

func cloneArgs(args rest.Args) rest.Args {
	clone := make(rest.Args, len(args)+1)
	for key, value := range args {
		clone[key] = value
	}

	return clone
}

// writeResult prints a parsed result. Tables show lines, key-value records
// and maps; other values are printed as JSON.
func writeResult(cmd *cobra.Command, result interface{}) error {
	if result == rest.Empty {
		result = []interface{}{}
	}

	return writeOutput(cmd.OutOrStdout(), result, func(t *tablewriter.Table) error {
		return resultTable(t, result)
	})
}

func resultTable(t *tablewriter.Table, result interface{}) error {
	switch value := result.(type) {
	case nil:
		t.Header("Result")
		_ = t.Append(constants.None)
	case []string:
		t.Header("Line")

		for _, line := range value {
			_ = t.Append(line)
		}
	case []map[string]string:
		keys := recordKeys(value)

		header := make([]interface{}, 0, len(keys))
		for _, key := range keys {
			header = append(header, key)
		}

		t.Header(header...)

		for _, record := range value {
			row := make([]string, 0, len(keys))
			for _, key := range keys {
				row = append(row, record[key])
			}

			_ = t.Append(row)
		}
	case map[string]interface{}:
		t.Header("Property", "Value")

		for _, key := range sortedKeys(value) {
			_ = t.Append(key, formatCell(value[key]))
		}
	case []interface{}:
		t.Header("#", "Value")

		for i, item := range value {
			_ = t.Append(fmt.Sprint(i+1), formatCell(item))
		}
	default:
		t.Header("Result")
		_ = t.Append(formatCell(value))
	}

	return nil
}

func recordKeys(records []map[string]string) []string {
	seen := make(map[string]bool)

	for _, record := range records {
		for key := range record {
			seen[key] = true
		}
	}

	return sortedKeys(seen)
}

func formatCell(value interface{}) string {
	switch v := value.(type) {
	case nil:
		return constants.None
	case string:
		return v
	case bool, float64, int, int64:
		return fmt.Sprint(v)
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprint(v)
		}

		return string(data)
	}
}
