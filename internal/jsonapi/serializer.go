package jsonapi

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"
)

var (
	// ErrNoData is returned by SerializeOne for an absent entity unless null data is allowed
	ErrNoData = errors.New("jsonapi: no data to serialize")

	// ErrInvalidPage is returned by SerializeMany for a negative page number or a page size below 1
	ErrInvalidPage = errors.New("jsonapi: invalid page")
)

// DefaultConcurrency bounds concurrent row resolution in SerializeMany
const DefaultConcurrency = 8

// Serializer renders entities of one descriptor into documents
type Serializer struct {
	descriptor  *Descriptor
	settings    Settings
	registry    *Registry
	nullData    bool
	parentID    string
	concurrency int
}

// Option configures a Serializer
type Option func(*Serializer)

// WithNullData lets SerializeOne render an absent entity as "data": null
func WithNullData() Option {
	return func(s *Serializer) {
		s.nullData = true
	}
}

// WithRegistry enables full rendering of related objects whose type is registered
func WithRegistry(registry *Registry) Option {
	return func(s *Serializer) {
		s.registry = registry
	}
}

// WithParentID fills {parentId} in a nested collection path
func WithParentID(id string) Option {
	return func(s *Serializer) {
		s.parentID = id
	}
}

// WithConcurrency bounds how many rows resolve relationships at once
func WithConcurrency(n int) Option {
	return func(s *Serializer) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// NewSerializer creates a serializer for one request
func NewSerializer(descriptor *Descriptor, settings Settings, opts ...Option) *Serializer {
	s := &Serializer{
		descriptor:  descriptor,
		settings:    settings,
		concurrency: DefaultConcurrency,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SerializeOne renders a single-entity document
func (s *Serializer) SerializeOne(ctx context.Context, e Entity) (*Document, error) {
	if isAbsent(e) {
		if !s.nullData {
			return nil, ErrNoData
		}
		return &Document{
			JSONAPI: Object{Version: Version},
			Data:    PrimaryData{},
		}, nil
	}

	obj, err := s.resourceObject(ctx, e)
	if err != nil {
		return nil, err
	}

	return &Document{
		JSONAPI: Object{Version: Version},
		Data:    PrimaryData{One: obj},
		Links:   &Links{Self: obj.Links.Self},
	}, nil
}

// SerializeMany renders one page of a collection. count is the total number of
// items across all pages. Rows keep their input order.
func (s *Serializer) SerializeMany(ctx context.Context, rows []Entity, count int, page Page) (*Document, error) {
	if !page.Valid() {
		return nil, fmt.Errorf("%w: number=%d size=%d", ErrInvalidPage, page.Number, page.Size)
	}

	for i, row := range rows {
		if isAbsent(row) {
			return nil, fmt.Errorf("%s: row %d is nil", s.descriptor.CollectionName, i)
		}
	}

	objects := make([]*ResourceObject, len(rows))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, row := range rows {
		g.Go(func() error {
			obj, err := s.resourceObject(gctx, row)
			if err != nil {
				return err
			}
			objects[i] = obj
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	path := ExpandParent(s.descriptor.ListPath(), s.parentID)
	pagination := ComputePagination(count, page)

	return &Document{
		JSONAPI: Object{Version: Version},
		Data:    PrimaryData{IsMany: true, Many: objects},
		Links:   pagination.Links(s.settings, path, page),
		Meta:    ComputeMeta(count, page),
	}, nil
}

func (s *Serializer) resourceObject(ctx context.Context, e Entity) (*ResourceObject, error) {
	d := s.descriptor
	obj := &ResourceObject{
		Type:       d.Type,
		ID:         e.EntityID(),
		Attributes: project(d, e),
		Links:      &ResourceLinks{Self: ResourceURL(s.settings, d.ResourcePath, e.EntityID())},
	}

	for _, rel := range d.Relators {
		related, err := rel.resolver()(ctx, e)
		if err != nil {
			return nil, fmt.Errorf("resolve %s.%s: %w", d.CollectionName, rel.Name, err)
		}
		rendered := rel.render(s.settings, s.registry, e, related)
		if rendered == nil {
			continue
		}
		if obj.Relationships == nil {
			obj.Relationships = make(map[string]*Relationship, len(d.Relators))
		}
		obj.Relationships[rel.Name] = rendered
	}

	return obj, nil
}

// project emits the descriptor's attributes that the entity carries.
// Nested entities collapse to their ids.
func project(d *Descriptor, e Entity) Attributes {
	names := d.EmittedAttributes()
	attrs := make(Attributes, 0, len(names))
	for _, name := range names {
		v, ok := e.Field(name)
		if !ok {
			continue
		}
		attrs = append(attrs, Attribute{Key: name, Value: attributeValue(v)})
	}
	return attrs
}

func attributeValue(v any) any {
	related, ok := entityValue(v)
	if !ok {
		return v
	}
	if !related.toMany {
		if !related.Present() {
			return nil
		}
		return related.one.EntityID()
	}

	entities := related.entities()
	ids := make([]string, len(entities))
	for i, e := range entities {
		ids[i] = e.EntityID()
	}
	return ids
}
