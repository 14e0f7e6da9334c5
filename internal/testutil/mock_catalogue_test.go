package testutil

import (
	"encoding/json"
	"io"
	"net/http"
	"testing"
)

func get(t *testing.T, url string) (int, http.Header, []byte) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, resp.Header, body
}

func TestMockCatalogue_ItemsPagesCounts(t *testing.T) {
	m := NewMockCatalogue()
	defer m.Close()
	m.AddItems("datasets", "ds-", 5)
	m.ReportTotal(true)

	status, _, body := get(t, m.URL()+"/datasets/ds-3")
	if status != http.StatusOK || string(body) != `{"identifier":"ds-3","position":3}` {
		t.Errorf("item: status %d body %s", status, body)
	}

	status, header, body := get(t, m.URL()+"/datasets?limit=2&offset=4")
	var page []json.RawMessage
	if err := json.Unmarshal(body, &page); err != nil || status != http.StatusOK || len(page) != 1 {
		t.Errorf("page: status %d body %s", status, body)
	}
	if header.Get("X-Total-Count") != "5" {
		t.Errorf("X-Total-Count = %q", header.Get("X-Total-Count"))
	}

	status, _, body = get(t, m.URL()+"/counts/datasets")
	if status != http.StatusOK || string(body) != "5" {
		t.Errorf("count: status %d body %s", status, body)
	}

	status, _, _ = get(t, m.URL()+"/datasets/missing")
	if status != http.StatusNotFound {
		t.Errorf("missing item status = %d", status)
	}

	if m.RequestCount() != 4 || len(m.Paths()) != 4 {
		t.Errorf("RequestCount = %d, Paths = %v", m.RequestCount(), m.Paths())
	}
}

func TestMockCatalogue_SetResponse(t *testing.T) {
	m := NewMockCatalogue()
	defer m.Close()
	m.SetResponse("/datasets/b", NewNotFoundResponse("gone"))

	status, _, body := get(t, m.URL()+"/datasets/b")
	if status != http.StatusNotFound || string(body) != `{"detail":"gone"}` {
		t.Errorf("status %d body %s", status, body)
	}
}
