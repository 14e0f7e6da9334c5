package pagination

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/Sternrassler/aiod-client/pkg/fetch"
	"github.com/Sternrassler/aiod-client/pkg/plan"
	"github.com/itchyny/gojq"
)

// HeaderTotalCount carries the total number of items of a listing.
const HeaderTotalCount = "X-Total-Count"

var selectorCache sync.Map

// Decoder extracts the items of a listing page.
type Decoder struct {
	selector string
	code     *gojq.Code
}

// NewDecoder creates a decoder. An empty selector accepts a bare JSON array or
// an object with an "items" array (or exactly one array field).
func NewDecoder(selector string) (*Decoder, error) {
	selector = strings.TrimSpace(selector)
	if selector == "" {
		return &Decoder{}, nil
	}
	code, err := compileSelector(selector)
	if err != nil {
		return nil, fmt.Errorf("invalid items selector %q: %w", selector, err)
	}
	return &Decoder{selector: selector, code: code}, nil
}

func compileSelector(selector string) (*gojq.Code, error) {
	if cached, ok := selectorCache.Load(selector); ok {
		return cached.(*gojq.Code), nil
	}
	query, err := gojq.Parse(selector)
	if err != nil {
		return nil, err
	}
	code, err := gojq.Compile(query)
	if err != nil {
		return nil, err
	}
	actual, _ := selectorCache.LoadOrStore(selector, code)
	return actual.(*gojq.Code), nil
}

// Decode turns a page response into a payload. Malformed bodies wrap
// fetch.ErrMalformedPayload.
//
// Without a selector every item keeps the exact bytes the server sent. Items
// produced by a selector are re-encoded by gojq: numbers keep their precision
// and nothing is HTML-escaped, but object keys come out sorted.
func (d *Decoder) Decode(body []byte, header http.Header) (fetch.Payload, error) {
	body = bytes.TrimSpace(body)
	if !json.Valid(body) {
		return fetch.Payload{}, fmt.Errorf("%w: invalid JSON page body", fetch.ErrMalformedPayload)
	}

	var (
		items []json.RawMessage
		err   error
	)
	if d.code != nil {
		items, err = d.selectItems(body)
	} else {
		items, err = extractItems(body)
	}
	if err != nil {
		return fetch.Payload{}, err
	}

	return fetch.Payload{
		Body:  json.RawMessage(body),
		Items: items,
		Total: totalFromHeader(header),
	}, nil
}

func (d *Decoder) selectItems(body []byte) ([]json.RawMessage, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %v", fetch.ErrMalformedPayload, err)
	}

	values, err := d.run(doc)
	if err != nil {
		return nil, fmt.Errorf("%w: selector %q: %v", fetch.ErrMalformedPayload, d.selector, err)
	}

	items := make([]json.RawMessage, 0, len(values))
	for _, v := range values {
		raw, err := gojq.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", fetch.ErrMalformedPayload, err)
		}
		items = append(items, raw)
	}
	return items, nil
}

func (d *Decoder) run(doc any) ([]any, error) {
	iter := d.code.Run(doc)
	results := make([]any, 0, 1)
	for {
		v, ok := iter.Next()
		if !ok {
			break
		}
		if err, isErr := v.(error); isErr {
			return nil, err
		}
		results = append(results, v)
	}

	if len(results) == 1 {
		if values, isArray := results[0].([]any); isArray {
			return values, nil
		}
	}
	// ".items[]" style selectors yield one result per item.
	return results, nil
}

// extractItems splits a page body into its raw items: a bare array, the
// "items" array of an object, or the only array field of an object.
func extractItems(body []byte) ([]json.RawMessage, error) {
	switch {
	case isArray(body):
		return splitArray(body)
	case len(body) > 0 && body[0] == '{':
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(body, &fields); err != nil {
			return nil, fmt.Errorf("%w: %v", fetch.ErrMalformedPayload, err)
		}
		if items, ok := fields["items"]; ok {
			if !isArray(items) {
				return nil, fmt.Errorf("%w: \"items\" must be an array", fetch.ErrMalformedPayload)
			}
			return splitArray(items)
		}

		var arrayKeys []string
		for key, field := range fields {
			if isArray(field) {
				arrayKeys = append(arrayKeys, key)
			}
		}
		if len(arrayKeys) == 1 {
			return splitArray(fields[arrayKeys[0]])
		}
		if len(arrayKeys) > 1 {
			sort.Strings(arrayKeys)
			return nil, fmt.Errorf("%w: ambiguous page object, array fields [%s]",
				fetch.ErrMalformedPayload, strings.Join(arrayKeys, ", "))
		}
		return nil, fmt.Errorf("%w: page object has no \"items\" array", fetch.ErrMalformedPayload)
	default:
		return nil, fmt.Errorf("%w: page must be an array or an object with an \"items\" array", fetch.ErrMalformedPayload)
	}
}

func isArray(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) > 0 && raw[0] == '['
}

func splitArray(raw json.RawMessage) ([]json.RawMessage, error) {
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("%w: %v", fetch.ErrMalformedPayload, err)
	}
	if items == nil {
		items = []json.RawMessage{}
	}
	return items, nil
}

func totalFromHeader(header http.Header) int {
	raw := header.Get(HeaderTotalCount)
	if raw == "" {
		return plan.TotalUnknown
	}
	total, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || total < 0 {
		return plan.TotalUnknown
	}
	return total
}
