package app

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"swh-client/internal/endpoint"
	"swh-client/internal/swh"
	"swh-client/pkg/swhid"
)

// NewRootCommand creates the swhctl command tree.
func NewRootCommand() *cobra.Command {
	var o Options

	cmd := &cobra.Command{
		Use:   "swhctl",
		Short: "Software Heritage archive client",
		Long: `swhctl calls the Software Heritage archive API with validation,
retries and failover across the configured pools.

Pools come from SWH_API_URL_PROD / SWH_TOKEN_PROD and
SWH_API_URL_STAGING / SWH_TOKEN_STAGING or from a YAML file (--config).`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&o.ConfigPath, "config", "", "Path to YAML config file (default: $SWH_CONFIG)")
	pf.StringVar(&o.Pool, "pool", "", "Pool to start calls on")
	pf.StringVar(&o.Shape, "shape", "", "Response shape: json, raw or wrapped")
	pf.BoolVarP(&o.Verbose, "verbose", "v", false, "Log debug output to the console")
	pf.StringVar(&o.MetricsFile, "metrics-file", "", "Write prometheus metrics to this file on exit")

	cmd.AddCommand(
		newCallCommand(&o, http.MethodGet),
		newCallCommand(&o, http.MethodPost),
		newCallCommand(&o, http.MethodHead),
		newEndpointsCommand(),
		newParseCommand(),
		newDecisionsCommand(&o),
	)
	return cmd
}

func newCallCommand(o *Options, method string) *cobra.Command {
	var co CallOptions

	cmd := &cobra.Command{
		Use:   strings.ToLower(method) + " <endpoint|url> [params...]",
		Short: "Send a " + method + " request to the archive",
		Long: `Send a ` + method + ` request to a named endpoint or an absolute URL.

Run 'swhctl endpoints' to list endpoint names and their parameters.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := *o
			opts.Console = cmd.ErrOrStderr()
			a, err := New(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			co.HasInterval = cmd.Flags().Changed("interval")
			res, id, err := a.Call(cmd.Context(), method, args[0], args[1:], co)
			if err != nil && !errors.Is(err, swh.ErrDecode) {
				fmt.Fprintf(cmd.ErrOrStderr(), "call %s failed\n", id)
				return err
			}
			if perr := printResult(cmd.OutOrStdout(), res, method); perr != nil {
				return perr
			}
			return err
		},
	}
	cmd.Flags().IntVar(&co.MaxAttempts, "max-attempts", 0, "Total attempts for this call (default: config)")
	cmd.Flags().DurationVar(&co.Interval, "interval", 0, "Delay between attempts for this call (default: config)")
	return cmd
}

func printResult(w io.Writer, res *swh.Result, method string) error {
	if res == nil {
		return nil
	}
	switch {
	case method == http.MethodHead:
		fmt.Fprintf(w, "%d %s\n", res.StatusCode, res.URL)
		for k, vs := range res.Header {
			for _, v := range vs {
				fmt.Fprintf(w, "%s: %s\n", k, v)
			}
		}
		return nil
	case res.Data != nil && res.Body == nil:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(res.Data)
	case res.Data != nil:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			CallID   string `json:"call_id"`
			Status   int    `json:"status"`
			URL      string `json:"url"`
			Pool     string `json:"pool"`
			Attempts int    `json:"attempts"`
			Data     any    `json:"data"`
			Body     string `json:"body"`
		}{res.CallID, res.StatusCode, res.URL, res.Pool, res.Attempts, res.Data, string(res.Body)})
	default:
		_, err := w.Write(res.Body)
		return err
	}
}

func newEndpointsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "endpoints",
		Short: "List known endpoints",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tKIND\tPARAMS\tROUTE")
			for _, name := range endpoint.Names() {
				d, err := endpoint.Lookup(name)
				if err != nil {
					return err
				}
				fmt.Fprintf(tw, "%s\t%s\t%d\t%s%s\n", d.Name, d.Kind, d.Placeholders(), endpoint.APIPrefix, d.Route)
			}
			return tw.Flush()
		},
	}
}

func newParseCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "parse <swhid>",
		Short: "Parse a persistent identifier",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := swhid.Parse(args[0])
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "version: %d\ntype: %s\nhash: %s\n", id.Version, id.Type, id.Hash)
			for _, q := range id.Qualifiers {
				fmt.Fprintf(w, "%s: %s\n", q.Key, q.Value)
			}
			return nil
		},
	}
}

func newDecisionsCommand(o *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "decisions <call-id>",
		Short: "Show the recorded decisions of a call",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := *o
			opts.Console = cmd.ErrOrStderr()
			opts.ReadOnlyAudit = true
			a, err := New(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			entries, err := a.Decisions(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				return fmt.Errorf("no decisions recorded for call %s", args[0])
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "AT\tATTEMPT\tPOOL\tSTATUS\tCLASS\tACTION\tWAIT\tREASON")
			for _, e := range entries {
				fmt.Fprintf(tw, "%s\t%d\t%s\t%d\t%s\t%s\t%s\t%s\n",
					e.At.Format(time.RFC3339), e.Attempt, e.Pool, e.Status, e.Class, e.Action, e.Delay, e.Reason)
			}
			return tw.Flush()
		},
	}
}
