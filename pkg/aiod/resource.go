package aiod

import (
	"context"
	"encoding/json"

	"github.com/Sternrassler/aiod-client/pkg/faults"
	"github.com/Sternrassler/aiod-client/pkg/resource"
)

// Resource is a handle bound to one resource type.
type Resource struct {
	client     *Client
	descriptor resource.Descriptor
}

// Resource returns a handle for the named resource type.
func (c *Client) Resource(name string) (*Resource, error) {
	d, err := c.registry.Lookup(name)
	if err != nil {
		return nil, faults.Config("resource_type", err)
	}
	return &Resource{client: c, descriptor: d}, nil
}

// Resources lists the registered resource types.
func (c *Client) Resources() []string {
	return c.registry.Types()
}

// Descriptor returns the resource's descriptor.
func (r *Resource) Descriptor() resource.Descriptor {
	return r.descriptor
}

// Get fetches items by identifier; see Client.FetchByIDs.
func (r *Resource) Get(ctx context.Context, ids []string, opts FetchOptions) ([]json.RawMessage, error) {
	return r.client.FetchByIDs(ctx, r.descriptor.Type, ids, opts)
}

// List walks the listing; see Client.FetchByListing.
func (r *Resource) List(ctx context.Context, opts ListOptions) ([]json.RawMessage, error) {
	return r.client.FetchByListing(ctx, r.descriptor.Type, opts)
}

// Count returns the number of items; see Client.Count.
func (r *Resource) Count(ctx context.Context) (int, error) {
	return r.client.Count(ctx, r.descriptor.Type)
}
