// Package testutil provides a mock catalogue server for tests.
package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"time"
)

// MockResponse defines a canned response for one path.
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

// MockCatalogue is an in-memory catalogue behind an httptest server.
//
// It serves:
//
//	GET /{type}/{id}                  one item
//	GET /{type}?limit=N&offset=M      a page (JSON array)
//	GET /counts/{type}                number of items
type MockCatalogue struct {
	server *httptest.Server

	mu        sync.RWMutex
	items     map[string][]item
	overrides map[string]func(w http.ResponseWriter, r *http.Request)
	latency   func(r *http.Request) time.Duration
	withTotal bool

	// Tracking
	requestCount      int
	inFlight          int
	peakInFlight      int
	paths             []string
	lastRequestHeader http.Header
}

type item struct {
	id  string
	doc json.RawMessage
}

// NewMockCatalogue starts a mock catalogue server.
func NewMockCatalogue() *MockCatalogue {
	m := &MockCatalogue{
		items:     make(map[string][]item),
		overrides: make(map[string]func(w http.ResponseWriter, r *http.Request)),
	}
	m.server = httptest.NewServer(http.HandlerFunc(m.serve))
	return m
}

// URL returns the server base URL.
func (m *MockCatalogue) URL() string {
	return m.server.URL
}

// Close shuts down the server.
func (m *MockCatalogue) Close() {
	m.server.Close()
}

// AddItems appends n items to resourceType with ids "<prefix><i>" and a
// document {"identifier": id, "position": i}.
func (m *MockCatalogue) AddItems(resourceType, prefix string, n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	start := len(m.items[resourceType])
	for i := start; i < start+n; i++ {
		id := prefix + strconv.Itoa(i)
		doc := fmt.Sprintf(`{"identifier":%q,"position":%d}`, id, i)
		m.items[resourceType] = append(m.items[resourceType], item{id: id, doc: json.RawMessage(doc)})
	}
}

// AddItem appends one item with the given document.
func (m *MockCatalogue) AddItem(resourceType, id, doc string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[resourceType] = append(m.items[resourceType], item{id: id, doc: json.RawMessage(doc)})
}

// ReportTotal makes page responses carry X-Total-Count.
func (m *MockCatalogue) ReportTotal(enabled bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.withTotal = enabled
}

// SetLatency sets a per-request delay function.
func (m *MockCatalogue) SetLatency(fn func(r *http.Request) time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.latency = fn
}

// SetHandler overrides the handler for an exact path.
func (m *MockCatalogue) SetHandler(path string, handler func(w http.ResponseWriter, r *http.Request)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.overrides[path] = handler
}

// SetResponse overrides the response for an exact path.
func (m *MockCatalogue) SetResponse(path string, resp MockResponse) {
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		if resp.Delay > 0 {
			time.Sleep(resp.Delay)
		}
		for key, value := range resp.Headers {
			w.Header().Set(key, value)
		}
		w.WriteHeader(resp.StatusCode)
		if resp.Body != "" {
			w.Write([]byte(resp.Body))
		}
	})
}

// RequestCount returns the number of requests served.
func (m *MockCatalogue) RequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.requestCount
}

// PeakInFlight returns the highest number of concurrently served requests.
func (m *MockCatalogue) PeakInFlight() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.peakInFlight
}

// Paths returns the request URIs in arrival order.
func (m *MockCatalogue) Paths() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.paths...)
}

// LastRequestHeader returns the headers of the most recent request.
func (m *MockCatalogue) LastRequestHeader() http.Header {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastRequestHeader
}

func (m *MockCatalogue) serve(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	m.requestCount++
	m.inFlight++
	if m.inFlight > m.peakInFlight {
		m.peakInFlight = m.inFlight
	}
	m.paths = append(m.paths, r.URL.RequestURI())
	m.lastRequestHeader = r.Header.Clone()
	latency := m.latency
	override, overridden := m.overrides[r.URL.Path]
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		m.inFlight--
		m.mu.Unlock()
	}()

	if latency != nil {
		time.Sleep(latency(r))
	}

	w.Header().Set("RateLimit-Limit", "1000")
	w.Header().Set("RateLimit-Remaining", "999")
	w.Header().Set("RateLimit-Reset", "60")

	if overridden {
		override(w, r)
		return
	}
	m.defaultHandler(w, r)
}

// ServeDefault serves r from the in-memory store, for overrides that only
// alter some requests.
func (m *MockCatalogue) ServeDefault(w http.ResponseWriter, r *http.Request) {
	m.defaultHandler(w, r)
}

// defaultHandler serves items, pages and counts from the in-memory store.
func (m *MockCatalogue) defaultHandler(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")

	m.mu.RLock()
	defer m.mu.RUnlock()

	switch {
	case len(parts) == 2 && parts[0] == "counts":
		items, ok := m.items[parts[1]]
		if !ok {
			writeDetail(w, http.StatusNotFound, "unknown resource type")
			return
		}
		writeJSON(w, http.StatusOK, []byte(strconv.Itoa(len(items))))

	case len(parts) == 2:
		for _, it := range m.items[parts[0]] {
			if it.id == parts[1] {
				writeJSON(w, http.StatusOK, it.doc)
				return
			}
		}
		writeDetail(w, http.StatusNotFound, fmt.Sprintf("%s %s not found", parts[0], parts[1]))

	case len(parts) == 1:
		items := m.items[parts[0]]
		offset, errOffset := strconv.Atoi(r.URL.Query().Get("offset"))
		limit, errLimit := strconv.Atoi(r.URL.Query().Get("limit"))
		if errOffset != nil || errLimit != nil || offset < 0 || limit <= 0 {
			writeDetail(w, http.StatusUnprocessableEntity, "invalid offset or limit")
			return
		}

		page := make([]json.RawMessage, 0, limit)
		for i := offset; i < offset+limit && i < len(items); i++ {
			page = append(page, items[i].doc)
		}
		body, _ := json.Marshal(page)
		if m.withTotal {
			w.Header().Set("X-Total-Count", strconv.Itoa(len(items)))
		}
		writeJSON(w, http.StatusOK, body)

	default:
		writeDetail(w, http.StatusNotFound, "not found")
	}
}

func writeJSON(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(body)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	body, _ := json.Marshal(map[string]string{"detail": detail})
	writeJSON(w, status, body)
}

// NewNotFoundResponse creates a 404 response with a detail message.
func NewNotFoundResponse(detail string) MockResponse {
	body, _ := json.Marshal(map[string]string{"detail": detail})
	return MockResponse{
		StatusCode: http.StatusNotFound,
		Body:       string(body),
		Headers:    map[string]string{"Content-Type": "application/json"},
	}
}

// NewServerErrorResponse creates a 500 response.
func NewServerErrorResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusInternalServerError,
		Body:       `{"detail": "Internal server error"}`,
		Headers:    map[string]string{"Content-Type": "application/json"},
	}
}

// NewRateLimitResponse creates a 429 response with an exhausted quota.
func NewRateLimitResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusTooManyRequests,
		Body:       `{"detail": "Rate limit exceeded"}`,
		Headers: map[string]string{
			"RateLimit-Remaining": "0",
			"RateLimit-Reset":     "1",
			"Retry-After":         "1",
			"Content-Type":        "application/json",
		},
	}
}

// NewMalformedResponse creates a 200 response whose body is not JSON.
func NewMalformedResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusOK,
		Body:       `<html>oops</html>`,
		Headers:    map[string]string{"Content-Type": "text/html"},
	}
}
