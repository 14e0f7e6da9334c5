// Package resource describes the catalogue resource types the client can fetch.
//
// Every resource type is an explicit Descriptor registered by name in a
// Registry. Lookups go through the registry; there is no reflection or dynamic
// member access involved.
package resource

import (
	"fmt"
	"sort"
	"strings"
)

// Format is a response representation supported by a resource type.
type Format string

const (
	// FormatJSON is the plain JSON representation (default).
	FormatJSON Format = "json"

	// FormatJSONLD is the JSON-LD (schema.org) representation.
	FormatJSONLD Format = "jsonld"
)

// MediaType returns the Accept header value for the format.
func (f Format) MediaType() string {
	switch f {
	case FormatJSONLD:
		return "application/ld+json"
	default:
		return "application/json"
	}
}

// FormatVia selects how the requested format reaches the server.
type FormatVia string

const (
	// ViaHeader sends the format as an Accept header.
	ViaHeader FormatVia = "header"

	// ViaQuery sends the format as a "format" query parameter.
	ViaQuery FormatVia = "query"
)

// Descriptor is the static configuration of one resource type.
// Descriptors are immutable once registered.
type Descriptor struct {
	// Type is the public resource type name (e.g. "datasets").
	Type string

	// BasePath is the URL path segment under the server base.
	BasePath string

	// FormatVia controls where the format is encoded on the request.
	FormatVia FormatVia

	// ItemsSelector is an optional jq expression selecting the item array
	// from a listing page. Empty means "array or {items: [...]}".
	ItemsSelector string

	formats map[Format]struct{}
}

// NewDescriptor creates a descriptor supporting the given formats.
// When no format is given, FormatJSON is assumed.
func NewDescriptor(resourceType, basePath string, formats ...Format) Descriptor {
	if len(formats) == 0 {
		formats = []Format{FormatJSON}
	}
	set := make(map[Format]struct{}, len(formats))
	for _, f := range formats {
		set[f] = struct{}{}
	}
	if basePath == "" {
		basePath = resourceType
	}
	return Descriptor{
		Type:      resourceType,
		BasePath:  strings.Trim(basePath, "/"),
		FormatVia: ViaHeader,
		formats:   set,
	}
}

// Supports reports whether the format is served for this resource type.
func (d Descriptor) Supports(f Format) bool {
	_, ok := d.formats[f]
	return ok
}

// Formats returns the supported formats, sorted.
func (d Descriptor) Formats() []Format {
	out := make([]Format, 0, len(d.formats))
	for f := range d.formats {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// CheckFormat returns an error naming the supported formats if f is not one of them.
func (d Descriptor) CheckFormat(f Format) error {
	if d.Supports(f) {
		return nil
	}
	names := make([]string, 0, len(d.formats))
	for _, s := range d.Formats() {
		names = append(names, string(s))
	}
	return fmt.Errorf("format %q not supported by %s (supported: %s)", f, d.Type, strings.Join(names, ", "))
}
