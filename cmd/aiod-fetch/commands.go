package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/Sternrassler/aiod-client/pkg/aiod"
	"github.com/Sternrassler/aiod-client/pkg/fetch"
	"github.com/Sternrassler/aiod-client/pkg/plan"
	"github.com/Sternrassler/aiod-client/pkg/resource"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func newGetCmd(opts *rootOptions) *cobra.Command {
	var partial bool

	cmd := &cobra.Command{
		Use:   "get <resource-type> <identifier>...",
		Short: "Fetch items by identifier",
		Long: `Fetch one item per identifier. Items are printed in the order the
identifiers were given. If any identifier fails, the command fails and lists
every failed identifier; --partial prints the successful items anyway.

Examples:
  aiod-fetch get datasets 1 2 3
  aiod-fetch get ml_models 42 --format jsonld
`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.connect(cmd.Context())
			if err != nil {
				return err
			}
			defer s.close()

			result, err := s.client.FetchBatchByIDs(cmd.Context(), args[0], args[1:], opts.fetchOptions(cmd, args[0]))
			if err != nil {
				return err
			}
			return report(cmd, result, partial)
		},
	}
	cmd.Flags().BoolVar(&partial, "partial", false, "print successful items even if some failed")
	return cmd
}

func newListCmd(opts *rootOptions) *cobra.Command {
	var (
		pageSize int
		limit    int
		partial  bool
	)

	cmd := &cobra.Command{
		Use:   "list <resource-type>",
		Short: "Fetch items by walking the resource listing",
		Long: `Walk the listing of a resource type page by page and print its items
in listing order, up to --limit items or the end of data.

Examples:
  aiod-fetch list datasets --limit 100
  aiod-fetch list publications --page-size 50 --progress
`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			lo := aiod.ListOptions{
				FetchOptions: opts.fetchOptions(cmd, args[0]),
				PageSize:     pageSize,
			}
			if cmd.Flags().Changed("limit") {
				lo.Limit = plan.Limit(limit)
			}

			s, err := opts.connect(cmd.Context())
			if err != nil {
				return err
			}
			defer s.close()

			result, err := s.client.FetchBatchByListing(cmd.Context(), args[0], lo)
			if err != nil {
				return err
			}
			return report(cmd, result, partial)
		},
	}
	cmd.Flags().IntVar(&pageSize, "page-size", aiod.DefaultPageSize, "items per request")
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum number of items (default: all)")
	cmd.Flags().BoolVar(&partial, "partial", false, "print successful items even if some pages failed")
	return cmd
}

func newCountCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "count <resource-type>",
		Short: "Print the number of items of a resource type",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.connect(cmd.Context())
			if err != nil {
				return err
			}
			defer s.close()

			n, err := s.client.Count(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), n)
			return nil
		},
	}
}

func newResourcesCmd(_ *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "resources",
		Short: "List the known resource types and their formats",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			registry := resource.Default()
			for _, t := range registry.Types() {
				d, _ := registry.Lookup(t)
				formats := make([]string, 0, 2)
				for _, f := range d.Formats() {
					formats = append(formats, string(f))
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%-24s %s\n", t, strings.Join(formats, ","))
			}
			return nil
		},
	}
}

func newLogoutCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Drop the stored client-credentials token from redis",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.redisURL == "" || opts.clientID == "" {
				return errors.New("logout needs --redis and --client-id")
			}
			s, err := opts.connect(cmd.Context())
			if err != nil {
				return err
			}
			defer s.close()

			if err := s.store.Invalidate(cmd.Context(), opts.clientID); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "token removed")
			return nil
		},
	}
}

// report prints the items of result and a summary of its failures.
func report(cmd *cobra.Command, result fetch.BatchResult, partial bool) error {
	_, failed := result.Unwrap()
	if failed == nil || partial {
		if err := writeItems(cmd.OutOrStdout(), result.Items()); err != nil {
			return err
		}
	}
	if failed == nil {
		return nil
	}

	var agg *fetch.AggregatedFetchError
	if errors.As(failed, &agg) {
		red := color.New(color.FgRed)
		red.Fprintf(cmd.ErrOrStderr(), "%d of %d requests failed\n", len(agg.Failures), agg.Total)
		for _, f := range agg.Failures {
			fmt.Fprintf(cmd.ErrOrStderr(), "  %s: %v\n", f.Ref, f.Err)
		}
	}
	return failed
}

func writeItems(w io.Writer, items []json.RawMessage) error {
	if items == nil {
		items = []json.RawMessage{}
	}
	out, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(out))
	return err
}
