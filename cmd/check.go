package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/sw33tLie/itemstate/internal/utils"
	"github.com/sw33tLie/itemstate/pkg/feed"
	"github.com/sw33tLie/itemstate/pkg/items"
)

type checkResult struct {
	ID    string `json:"id"`
	Title string `json:"title,omitempty"`
	items.State
}

var validFilters = map[string]bool{"expired": true, "removed": true, "recent": true}

var checkCmd = &cobra.Command{
	Use:   "check <source>",
	Short: "Report expired / removed / recent state for every item in a source",
	Long: `Report expired / removed / recent state for every item in a source.

<source> can be a JSON file ("-" for stdin), an http(s) URL serving JSON or a
page embedding it, or a SQLite database (path ending in .db/.sqlite, or
sqlite://path#table).`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		nowFlag, _ := cmd.Flags().GetString("now")
		only, _ := cmd.Flags().GetStringSlice("only")
		output, _ := cmd.Flags().GetString("output")
		table, _ := cmd.Flags().GetString("table")

		if output != "text" && output != "json" {
			return fmt.Errorf("unknown output format %q (use text or json)", output)
		}
		for _, f := range only {
			if !validFilters[f] {
				return fmt.Errorf("unknown filter %q (use expired, removed or recent)", f)
			}
		}

		now := time.Now()
		if nowFlag != "" {
			t, err := items.ParseDate(nowFlag)
			if err != nil {
				return fmt.Errorf("--now: %w", err)
			}
			now = t
		}
		ev := items.At(now)
		ev.RecentWindow = recentWindow(viper.GetViper())

		if table == "" {
			table = viper.GetString("sqlite.table")
		}
		src, err := feed.Open(args[0], feed.Options{
			Table:   table,
			Retries: viper.GetInt("http.retries"),
			Timeout: viper.GetDuration("http.timeout"),
			Proxy:   viper.GetString("http.proxy"),
			Headers: viper.GetStringMapString("http.headers"),
			Stdin:   cmd.InOrStdin(),
		})
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		return runCheck(ctx, src, ev, only, output, cmd.OutOrStdout())
	},
}

func runCheck(ctx context.Context, src feed.Source, ev items.Evaluator, only []string, output string, w io.Writer) error {
	list, err := src.Items(ctx)
	if err != nil {
		return err
	}
	return writeResults(w, checkItems(list, ev, only), output)
}

func init() {
	rootCmd.AddCommand(checkCmd)
	checkCmd.Flags().String("now", "", "Reference moment (RFC3339 or YYYY-MM-DD). Default: current time")
	checkCmd.Flags().StringSlice("only", nil, "Only show items in this state: expired, removed, recent. Repeatable; all must match")
	checkCmd.Flags().StringP("output", "o", "text", "Output format: text or json")
	checkCmd.Flags().String("table", "", "SQLite table holding the items (default from config, items)")
}

func checkItems(list []items.Item, ev items.Evaluator, only []string) []checkResult {
	var out []checkResult
	for i, it := range list {
		id := it.ID
		if id == "" {
			id = "#" + strconv.Itoa(i)
		}
		warnInvalidDates(id, it)

		state := ev.Classify(it)
		if !matchesFilters(state, only) {
			continue
		}
		out = append(out, checkResult{ID: id, Title: it.Title, State: state})
	}
	return out
}

func matchesFilters(state items.State, only []string) bool {
	for _, f := range only {
		switch f {
		case "expired":
			if !state.Expired {
				return false
			}
		case "removed":
			if !state.Removed {
				return false
			}
		case "recent":
			if !state.Recent {
				return false
			}
		}
	}
	return true
}

func warnInvalidDates(id string, it items.Item) {
	var dateErr *items.InvalidDateError
	if _, _, err := items.ExpiresAt(it); errors.As(err, &dateErr) {
		utils.Log.Warnf("item %s: unparseable expires %q, treating as not expired", id, dateErr.Value)
	}
	if _, _, err := items.FirstSeenAt(it); errors.As(err, &dateErr) {
		utils.Log.Warnf("item %s: unparseable date_first_seen %q, treating as not recent", id, dateErr.Value)
	}
}

func writeResults(w io.Writer, results []checkResult, format string) error {
	if format == "json" {
		enc := json.NewEncoder(w)
		for _, r := range results {
			if err := enc.Encode(r); err != nil {
				return err
			}
		}
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, r := range results {
		fmt.Fprintf(tw, "%s\texpired=%t\tremoved=%t\trecent=%t\n", strings.TrimSpace(r.ID), r.Expired, r.Removed, r.Recent)
	}
	return tw.Flush()
}
