package main

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/Sternrassler/aiod-client/internal/testutil"
)

func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append(args, "--log-level", "off"))
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func decodeItems(t *testing.T, out string) []map[string]any {
	t.Helper()
	var items []map[string]any
	if err := json.Unmarshal([]byte(out), &items); err != nil {
		t.Fatalf("stdout is not a JSON array: %v\n%s", err, out)
	}
	return items
}

func TestGet(t *testing.T) {
	m := testutil.NewMockCatalogue()
	defer m.Close()
	m.AddItems("datasets", "ds-", 5)

	out, _, err := run(t, "get", "datasets", "ds-4", "ds-1", "--server", m.URL())
	if err != nil {
		t.Fatalf("get error = %v", err)
	}
	items := decodeItems(t, out)
	if len(items) != 2 || items[0]["identifier"] != "ds-4" || items[1]["identifier"] != "ds-1" {
		t.Errorf("items = %v", items)
	}
}

func TestGet_FailureListsIdentifiers(t *testing.T) {
	m := testutil.NewMockCatalogue()
	defer m.Close()
	m.AddItems("datasets", "ds-", 2)

	out, errOut, err := run(t, "get", "datasets", "ds-0", "missing", "--server", m.URL())
	if err == nil {
		t.Fatal("Expected an error")
	}
	if out != "" {
		t.Errorf("stdout = %q, want nothing without --partial", out)
	}
	if !strings.Contains(errOut, "1 of 2 requests failed") || !strings.Contains(errOut, "missing:") {
		t.Errorf("stderr = %q", errOut)
	}

	out, _, err = run(t, "get", "datasets", "ds-0", "missing", "--partial", "--server", m.URL())
	if err == nil {
		t.Fatal("Expected an error with --partial")
	}
	if items := decodeItems(t, out); len(items) != 1 {
		t.Errorf("partial items = %v", items)
	}
}

func TestList(t *testing.T) {
	m := testutil.NewMockCatalogue()
	defer m.Close()
	m.AddItems("publications", "p-", 12)

	out, _, err := run(t, "list", "publications", "--page-size", "5", "--limit", "7", "--server", m.URL())
	if err != nil {
		t.Fatalf("list error = %v", err)
	}
	items := decodeItems(t, out)
	if len(items) != 7 {
		t.Fatalf("Got %d items, want 7", len(items))
	}
	if items[6]["identifier"] != "p-6" {
		t.Errorf("Last item = %v", items[6])
	}
}

func TestList_InvalidLimit(t *testing.T) {
	m := testutil.NewMockCatalogue()
	defer m.Close()

	_, _, err := run(t, "list", "datasets", "--limit", "0", "--server", m.URL())
	if err == nil || !strings.Contains(err.Error(), "limit") {
		t.Errorf("error = %v, want limit configuration error", err)
	}
	if m.RequestCount() != 0 {
		t.Errorf("RequestCount = %d, want 0", m.RequestCount())
	}
}

func TestCount(t *testing.T) {
	m := testutil.NewMockCatalogue()
	defer m.Close()
	m.AddItems("organisations", "o-", 3)

	out, _, err := run(t, "count", "organisations", "--server", m.URL())
	if err != nil {
		t.Fatalf("count error = %v", err)
	}
	if strings.TrimSpace(out) != "3" {
		t.Errorf("count output = %q", out)
	}
}

func TestResources(t *testing.T) {
	out, _, err := run(t, "resources")
	if err != nil {
		t.Fatalf("resources error = %v", err)
	}
	if !strings.Contains(out, "datasets") || !strings.Contains(out, "json,jsonld") {
		t.Errorf("resources output = %q", out)
	}
}

func TestInvalidLogLevel(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"resources", "--log-level", "chatty"})
	if err := cmd.Execute(); err == nil {
		t.Error("Expected error for unknown log level")
	}
}

func TestLogout_RequiresRedis(t *testing.T) {
	_, _, err := run(t, "logout")
	if err == nil || !strings.Contains(err.Error(), "--redis") {
		t.Errorf("error = %v", err)
	}
}

func TestGetEnv(t *testing.T) {
	t.Setenv("AIOD_TEST_VAR", "x")
	if got := getEnv("AIOD_TEST_VAR", "d"); got != "x" {
		t.Errorf("getEnv = %q", got)
	}
	if got := getEnv("AIOD_TEST_UNSET", "d"); got != "d" {
		t.Errorf("getEnv default = %q", got)
	}
}
