package cmd

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/sw33tLie/itemstate/internal/utils"
	"github.com/sw33tLie/itemstate/pkg/feed"
	"github.com/sw33tLie/itemstate/pkg/items"
)

var checkNow = time.Date(2026, 10, 18, 0, 0, 0, 0, time.UTC)

func sampleItems() []items.Item {
	return []items.Item{
		{ID: "old", Expires: items.DateString("2021-01-01"), InSource: items.SourceMissing},
		{ID: "fresh", Expires: items.DateString("never"), DateFirstSeen: items.DateString("2026-10-10")},
		{Expires: items.DateString("3021-01-01"), InSource: items.SourcePresent},
	}
}

func TestCheckItems(t *testing.T) {
	got := checkItems(sampleItems(), items.At(checkNow), nil)
	want := []checkResult{
		{ID: "old", State: items.State{Expired: true, Removed: true}},
		{ID: "fresh", State: items.State{Recent: true}},
		{ID: "#2", State: items.State{}},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected results.\nwant: %#v\ngot:  %#v", want, got)
	}
}

func TestCheckItemsFilters(t *testing.T) {
	got := checkItems(sampleItems(), items.At(checkNow), []string{"expired", "removed"})
	if len(got) != 1 || got[0].ID != "old" {
		t.Fatalf("expected only the old item, got %#v", got)
	}

	got = checkItems(sampleItems(), items.At(checkNow), []string{"expired", "recent"})
	if len(got) != 0 {
		t.Fatalf("expected no items, got %#v", got)
	}
}

func TestWriteResults(t *testing.T) {
	results := []checkResult{
		{ID: "a", State: items.State{Expired: true}},
		{ID: "bb", Title: "Bee", State: items.State{Recent: true}},
	}

	var text bytes.Buffer
	if err := writeResults(&text, results, "text"); err != nil {
		t.Fatal(err)
	}
	wantText := "a   expired=true   removed=false  recent=false\n" +
		"bb  expired=false  removed=false  recent=true\n"
	if text.String() != wantText {
		t.Fatalf("unexpected text output.\nwant: %q\ngot:  %q", wantText, text.String())
	}

	var js bytes.Buffer
	if err := writeResults(&js, results, "json"); err != nil {
		t.Fatal(err)
	}
	wantJSON := `{"id":"a","expired":true,"removed":false,"recent":false}` + "\n" +
		`{"id":"bb","title":"Bee","expired":false,"removed":false,"recent":true}` + "\n"
	if js.String() != wantJSON {
		t.Fatalf("unexpected json output.\nwant: %q\ngot:  %q", wantJSON, js.String())
	}
}

func TestRecentWindow(t *testing.T) {
	v := viper.New()
	setDefaults(v)
	if got := recentWindow(v); got != items.RecentWindow {
		t.Fatalf("default: got %s", got)
	}

	v.Set("recent_window", "168h")
	if got := recentWindow(v); got != 7*24*time.Hour {
		t.Fatalf("168h: got %s", got)
	}

	v.Set("recent_window", "a while")
	if got := recentWindow(v); got != items.RecentWindow {
		t.Fatalf("invalid value should fall back, got %s", got)
	}
}

// emptyConfig points the command at an empty config file and hides any
// ITEMSTATE_* variables from the environment running the tests.
func emptyConfig(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{"RECENT_WINDOW", "SQLITE_TABLE", "HTTP_RETRIES", "HTTP_TIMEOUT", "HTTP_PROXY", "HTTP_HEADERS"} {
		t.Setenv("ITEMSTATE_"+key, "")
	}
	return path
}

func resetFlags() {
	for _, fs := range []*pflag.FlagSet{rootCmd.PersistentFlags(), checkCmd.Flags()} {
		fs.VisitAll(func(f *pflag.Flag) {
			if sv, ok := f.Value.(pflag.SliceValue); ok {
				sv.Replace(nil)
			} else {
				f.Value.Set(f.DefValue)
			}
			f.Changed = false
		})
	}
}

func runRoot(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
		resetFlags()
	})
	err := rootCmd.Execute()
	return out.String(), err
}

func writeItems(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "items.json")
	data := `[
		{"id": "x1", "expires": "2021-01-01", "in_source": false},
		{"id": "x2", "date_first_seen": "2026-10-17 08:00:00"},
		{"id": "x3", "expires": "sometime"}
	]`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestCheckCommand(t *testing.T) {
	cfg := emptyConfig(t)
	path := writeItems(t)

	out, err := runRoot(t, "check", path, "--config", cfg, "--now", "2026-10-18", "--only", "recent", "-l", "error")
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	got := strings.TrimSpace(out)
	if got != "x2  expired=false  removed=false  recent=true" {
		t.Fatalf("unexpected output %q", got)
	}
}

func TestCheckCommandRecentWindowFromConfig(t *testing.T) {
	cfg := emptyConfig(t)
	if err := os.WriteFile(cfg, []byte("recent_window: 1h\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	path := writeItems(t)

	out, err := runRoot(t, "check", path, "--config", cfg, "--now", "2026-10-18", "--only", "recent", "-l", "error")
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if strings.TrimSpace(out) != "" {
		t.Fatalf("nothing is recent within 1h, got %q", out)
	}
}

func TestCheckCommandDebugLogsConfigFile(t *testing.T) {
	cfg := emptyConfig(t)
	path := writeItems(t)

	var logs bytes.Buffer
	utils.Log.SetOutput(&logs)
	defer utils.Log.SetOutput(os.Stderr)

	if _, err := runRoot(t, "check", path, "--config", cfg, "-l", "debug"); err != nil {
		t.Fatalf("check: %v", err)
	}
	if !strings.Contains(logs.String(), "using config file") {
		t.Fatalf("expected config file debug line, got logs:\n%s", logs.String())
	}
}

func TestCheckCommandBadLogLevel(t *testing.T) {
	cfg := emptyConfig(t)
	path := writeItems(t)

	if _, err := runRoot(t, "check", path, "--config", cfg, "-l", "chatty"); err == nil {
		t.Fatalf("expected error for unknown log level")
	}
}

func TestRunCheckHonoursCancellation(t *testing.T) {
	path := writeItems(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var out bytes.Buffer
	err := runCheck(ctx, &feed.FileSource{Path: path}, items.At(checkNow), nil, "text", &out)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if out.Len() != 0 {
		t.Fatalf("cancelled run wrote output: %q", out.String())
	}

	if err := runCheck(context.Background(), &feed.FileSource{Path: path}, items.At(checkNow), []string{"removed"}, "text", &out); err != nil {
		t.Fatalf("runCheck: %v", err)
	}
	if !strings.HasPrefix(out.String(), "x1 ") {
		t.Fatalf("unexpected output %q", out.String())
	}
}
