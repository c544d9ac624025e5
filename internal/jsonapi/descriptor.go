package jsonapi

import (
	"errors"
	"fmt"
	"sync"
)

// Descriptor configures how one kind of resource is rendered
type Descriptor struct {
	// Type is the JSON:API type of the rendered objects
	Type string
	// CollectionName identifies the descriptor, e.g. "organizationParticipants"
	CollectionName string
	// ResourcePath is the canonical path of a single resource, e.g. "/participants"
	ResourcePath string
	// CollectionPath is the path of the list; it may contain {parentId}.
	// Empty means ResourcePath.
	CollectionPath string
	// Attributes is the ordered allow-list of emitted fields
	Attributes []string
	// Projection lists allow-listed fields that are never emitted as attributes
	Projection []string
	// Relators resolve relationship fields; each name must be an attribute
	Relators []Relator
}

// Validate checks the descriptor invariants
func (d *Descriptor) Validate() error {
	var errs []error

	if d.Type == "" {
		errs = append(errs, errors.New("type is required"))
	}
	if d.CollectionName == "" {
		errs = append(errs, errors.New("collection name is required"))
	}
	if d.ResourcePath == "" || d.ResourcePath[0] != '/' {
		errs = append(errs, fmt.Errorf("resource path must start with '/', got %q", d.ResourcePath))
	}

	declared := make(map[string]bool, len(d.Attributes))
	for _, attr := range d.Attributes {
		if attr == "id" || attr == "type" {
			errs = append(errs, fmt.Errorf("attribute %q is reserved", attr))
		}
		if declared[attr] {
			errs = append(errs, fmt.Errorf("attribute %q declared twice", attr))
		}
		declared[attr] = true
	}
	for _, name := range d.Projection {
		if !declared[name] {
			errs = append(errs, fmt.Errorf("projected field %q is not an attribute", name))
		}
	}

	seen := make(map[string]bool, len(d.Relators))
	for _, rel := range d.Relators {
		if !declared[rel.Name] {
			errs = append(errs, fmt.Errorf("relationship %q is not an attribute", rel.Name))
		}
		if seen[rel.Name] {
			errs = append(errs, fmt.Errorf("relationship %q declared twice", rel.Name))
		}
		seen[rel.Name] = true
		if rel.Type == "" {
			errs = append(errs, fmt.Errorf("relationship %q has no type", rel.Name))
		}
		if rel.PreviewCap < 0 {
			errs = append(errs, fmt.Errorf("relationship %q has a negative preview cap", rel.Name))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("descriptor %s: %w", d.CollectionName, errors.Join(errs...))
	}
	return nil
}

// ListPath returns the collection path, falling back to the resource path
func (d *Descriptor) ListPath() string {
	if d.CollectionPath != "" {
		return d.CollectionPath
	}
	return d.ResourcePath
}

// Nested reports whether the collection path is scoped to a parent resource
func (d *Descriptor) Nested() bool {
	return ExpandParent(d.ListPath(), "") != d.ListPath()
}

// EmittedAttributes is the allow-list minus the projection
func (d *Descriptor) EmittedAttributes() []string {
	if len(d.Projection) == 0 {
		return d.Attributes
	}

	skip := make(map[string]bool, len(d.Projection))
	for _, name := range d.Projection {
		skip[name] = true
	}

	out := make([]string, 0, len(d.Attributes))
	for _, attr := range d.Attributes {
		if !skip[attr] {
			out = append(out, attr)
		}
	}
	return out
}

// Registry indexes descriptors by collection name and by type.
// The first descriptor registered for a type renders full related objects of that type.
type Registry struct {
	mu           sync.RWMutex
	byCollection map[string]*Descriptor
	byType       map[string]*Descriptor
	order        []*Descriptor
}

// NewRegistry creates a registry from descriptors
func NewRegistry(descriptors ...*Descriptor) (*Registry, error) {
	r := &Registry{
		byCollection: make(map[string]*Descriptor),
		byType:       make(map[string]*Descriptor),
	}
	for _, d := range descriptors {
		if err := r.Register(d); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register validates and adds a descriptor
func (r *Registry) Register(d *Descriptor) error {
	if err := d.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byCollection[d.CollectionName]; exists {
		return fmt.Errorf("descriptor %s already registered", d.CollectionName)
	}
	r.byCollection[d.CollectionName] = d
	if _, exists := r.byType[d.Type]; !exists {
		r.byType[d.Type] = d
	}
	r.order = append(r.order, d)
	return nil
}

// Lookup returns the descriptor for a collection name
func (r *Registry) Lookup(collection string) (*Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.byCollection[collection]
	return d, ok
}

// ForType returns the canonical descriptor of a JSON:API type
func (r *Registry) ForType(typ string) (*Descriptor, bool) {
	if r == nil {
		return nil, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.byType[typ]
	return d, ok
}

// All returns the descriptors in registration order
func (r *Registry) All() []*Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Descriptor, len(r.order))
	copy(out, r.order)
	return out
}
