package plan

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/Sternrassler/aiod-client/pkg/faults"
	"github.com/Sternrassler/aiod-client/pkg/resource"
)

// Planner builds request specs against one catalogue server.
type Planner struct {
	serverURL string
	registry  *resource.Registry
}

// NewPlanner creates a planner for the given server base URL.
func NewPlanner(serverURL string, registry *resource.Registry) (*Planner, error) {
	if registry == nil {
		return nil, faults.Configf("registry", "resource registry is required")
	}
	u, err := url.Parse(serverURL)
	if err != nil {
		return nil, faults.Config("server_url", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, faults.Configf("server_url", "scheme must be http or https (got %q)", u.Scheme)
	}
	if u.Host == "" {
		return nil, faults.Configf("server_url", "host is required")
	}

	return &Planner{
		serverURL: strings.TrimRight(serverURL, "/"),
		registry:  registry,
	}, nil
}

// Descriptor resolves a resource type and checks the requested format.
func (p *Planner) Descriptor(resourceType string, format resource.Format) (resource.Descriptor, error) {
	d, err := p.registry.Lookup(resourceType)
	if err != nil {
		return resource.Descriptor{}, faults.Config("resource_type", err)
	}
	if err := d.CheckFormat(format); err != nil {
		return resource.Descriptor{}, faults.Config("format", err)
	}
	return d, nil
}

// PlanByIDs returns one spec per identifier, in input order.
// An empty identifier list yields an empty plan.
func (p *Planner) PlanByIDs(resourceType string, ids []string, format resource.Format) ([]RequestSpec, error) {
	d, err := p.Descriptor(resourceType, format)
	if err != nil {
		return nil, err
	}

	specs := make([]RequestSpec, 0, len(ids))
	for i, id := range ids {
		if strings.TrimSpace(id) == "" {
			return nil, faults.Configf("identifiers", "identifier at position %d is empty", i)
		}
		specs = append(specs, RequestSpec{
			Index:      i,
			Kind:       KindItem,
			Method:     http.MethodGet,
			URL:        p.withFormat(d, p.itemURL(d, id), format),
			Format:     format,
			Header:     formatHeader(d, format),
			Identifier: id,
		})
	}
	return specs, nil
}

// CountURL returns the URL of the item count endpoint for a resource type.
func (p *Planner) CountURL(resourceType string) (string, error) {
	d, err := p.registry.Lookup(resourceType)
	if err != nil {
		return "", faults.Config("resource_type", err)
	}
	return p.serverURL + "/counts/" + d.BasePath, nil
}

func (p *Planner) itemURL(d resource.Descriptor, id string) string {
	return p.serverURL + "/" + d.BasePath + "/" + url.PathEscape(id)
}

func (p *Planner) pageURL(d resource.Descriptor, offset, limit int) string {
	return fmt.Sprintf("%s/%s?limit=%d&offset=%d", p.serverURL, d.BasePath, limit, offset)
}

func (p *Planner) withFormat(d resource.Descriptor, rawURL string, format resource.Format) string {
	if d.FormatVia != resource.ViaQuery {
		return rawURL
	}
	sep := "?"
	if strings.Contains(rawURL, "?") {
		sep = "&"
	}
	return rawURL + sep + "format=" + url.QueryEscape(string(format))
}

func formatHeader(d resource.Descriptor, format resource.Format) http.Header {
	h := http.Header{}
	if d.FormatVia == resource.ViaHeader {
		h.Set("Accept", format.MediaType())
	}
	return h
}
