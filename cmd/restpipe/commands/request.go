package commands

import (
	"fmt"
	"net/http/httputil"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/fivetwenty-io/restpipe/internal/constants"
	"github.com/fivetwenty-io/restpipe/pkg/rest"
)

// RequestInfo is the structured form of a synthesized request.
type RequestInfo struct {
	Method  string              `json:"method"            yaml:"method"`
	URL     string              `json:"url"               yaml:"url"`
	Headers map[string][]string `json:"headers"           yaml:"headers"`
	Body    string              `json:"body,omitempty"    yaml:"body,omitempty"`
	Filters []string            `json:"filters,omitempty" yaml:"filters,omitempty"`
}

// NewRequestCommand creates the request command.
func NewRequestCommand() *cobra.Command {
	var showSecrets bool

	cmd := &cobra.Command{
		Use:   "request METHOD_ID [NAME=VALUE...]",
		Short: "Show the request a call would send",
		Long:  "Synthesize, bind and filter a call without dispatching it and print the wire request",
		Args:  cobra.MinimumNArgs(1),
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

			req, err := client.Request(cmd.Context(), d, callArgs)
			if err != nil {
				return err
			}

			if !showSecrets && req.Header.Has(constants.HeaderAuthorization) {
				req.Header.Set(constants.HeaderAuthorization, constants.MaskedSecret)
			}

			if outputFormat() == constants.FormatTable {
				return dumpRequest(cmd, req)
			}

			info := RequestInfo{
				Method:  req.Method,
				URL:     req.Endpoint.String(),
				Headers: req.Header.HTTP(),
				Filters: req.AppliedFilters(),
			}

			if payload := req.Payload(); payload != nil {
				info.Body = payload.String()
			}

			return writeOutput(cmd.OutOrStdout(), info, func(*tablewriter.Table) error { return nil })
		},
	}

	cmd.Flags().BoolVar(&showSecrets, "show-secrets", false, "print the Authorization header unmasked")

	return cmd
}

// dumpRequest prints req the way it goes over the wire.
func dumpRequest(cmd *cobra.Command, req *rest.Request) error {
	httpReq, err := req.HTTPRequest(cmd.Context())
	if err != nil {
		return err
	}

	if httpReq.Header.Get(constants.HeaderUserAgent) == "" {
		httpReq.Header.Set(constants.HeaderUserAgent, constants.DefaultUserAgent)
	}

	dump, err := httputil.DumpRequestOut(httpReq, true)
	if err != nil {
		return fmt.Errorf("failed to dump request: %w", err)
	}

	_, err = cmd.OutOrStdout().Write(dump)
	if err != nil {
		return fmt.Errorf("failed to write request: %w", err)
	}

	return nil
}
