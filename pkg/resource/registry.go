package resource

import (
	"errors"
	"fmt"
	"sort"
)

// ErrUnknownType is returned when a resource type is not registered.
var ErrUnknownType = errors.New("unknown resource type")

// Registry maps resource type names to descriptors.
type Registry struct {
	byType map[string]Descriptor
}

// NewRegistry creates a registry from the given descriptors.
// A duplicate type name is a programming error and panics.
func NewRegistry(descriptors ...Descriptor) *Registry {
	r := &Registry{byType: make(map[string]Descriptor, len(descriptors))}
	for _, d := range descriptors {
		if _, dup := r.byType[d.Type]; dup {
			panic(fmt.Sprintf("resource type %q registered twice", d.Type))
		}
		r.byType[d.Type] = d
	}
	return r
}

// Lookup resolves a resource type name.
func (r *Registry) Lookup(resourceType string) (Descriptor, error) {
	d, ok := r.byType[resourceType]
	if !ok {
		return Descriptor{}, fmt.Errorf("%w: %q", ErrUnknownType, resourceType)
	}
	return d, nil
}

// Types returns all registered type names, sorted.
func (r *Registry) Types() []string {
	out := make([]string, 0, len(r.byType))
	for t := range r.byType {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// catalogueTypes are the asset types served by the AI-on-Demand catalogue.
var catalogueTypes = []string{
	"case_studies",
	"computational_assets",
	"contacts",
	"datasets",
	"educational_resources",
	"events",
	"experiments",
	"ml_models",
	"news",
	"organisations",
	"persons",
	"platforms",
	"projects",
	"publications",
	"services",
	"teams",
}

// Default returns the registry of catalogue resource types.
func Default() *Registry {
	descriptors := make([]Descriptor, 0, len(catalogueTypes))
	for _, t := range catalogueTypes {
		descriptors = append(descriptors, NewDescriptor(t, t, FormatJSON, FormatJSONLD))
	}
	return NewRegistry(descriptors...)
}
