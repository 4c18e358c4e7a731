package commands

import (
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/fivetwenty-io/restpipe/internal/constants"
	"github.com/fivetwenty-io/restpipe/pkg/rest/table"
)

// MethodInfo is the listing of one table entry.
type MethodInfo struct {
	ID       string   `json:"id"                  yaml:"id"`
	Verb     string   `json:"verb"                yaml:"verb"`
	Path     string   `json:"path"                yaml:"path"`
	Params   []string `json:"params,omitempty"    yaml:"params,omitempty"`
	Parser   string   `json:"parser"              yaml:"parser"`
	Fallback string   `json:"fallback"            yaml:"fallback"`
	CacheTTL string   `json:"cache_ttl,omitempty" yaml:"cache_ttl,omitempty"`
}

// NewMethodsCommand creates the methods command.
func NewMethodsCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "methods",
		Aliases: []string{"ls"},
		Short:   "List methods of the descriptor table",
		Long:    "List the methods declared in the descriptor table with their routes and strategies",
		RunE: func(cmd *cobra.Command, args []string) error {
			tbl, _, err := loadMethods()
			if err != nil {
				return err
			}

			// build every descriptor so invalid entries are reported here
			_, err = tbl.Descriptors()
			if err != nil {
				return err
			}

			infos := describeMethods(tbl)

			return writeOutput(cmd.OutOrStdout(), infos, func(t *tablewriter.Table) error {
				t.Header("ID", "Verb", "Path", "Params", "Parser", "Fallback", "Cache TTL")

				for _, info := range infos {
					params := constants.None
					if len(info.Params) > 0 {
						params = strings.Join(info.Params, ", ")
					}

					cacheTTL := constants.NotAvailable
					if info.CacheTTL != "" {
						cacheTTL = info.CacheTTL
					}

					_ = t.Append(info.ID, info.Verb, info.Path, params, info.Parser, info.Fallback, cacheTTL)
				}

				return nil
			})
		},
	}
}

func describeMethods(tbl *table.Table) []MethodInfo {
	infos := make([]MethodInfo, 0, len(tbl.Methods))

	for _, method := range tbl.Methods {
		info := MethodInfo{
			ID:       method.ID,
			Verb:     strings.ToUpper(method.Verb),
			Path:     method.Path,
			Parser:   method.Parser.Kind,
			Fallback: method.Fallback,
		}

		if info.Verb == "" {
			info.Verb = "GET"
		}

		if info.Parser == "" {
			info.Parser = "release"
		}

		if info.Fallback == "" {
			info.Fallback = "propagate"
		}

		if method.CacheTTL > 0 {
			info.CacheTTL = method.CacheTTL.String()
		}

		for _, param := range method.Params {
			name := param.Name
			if param.In != "" {
				name += " (" + param.In + ")"
			}

			if !param.Required {
				name += "?"
			}

			info.Params = append(info.Params, name)
		}

		infos = append(infos, info)
	}

	return infos
}
