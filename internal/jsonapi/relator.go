package jsonapi

import (
	"context"
)

// Related is the resolved value of a relationship field
type Related struct {
	one     Entity
	many    []Entity
	toMany  bool
	present bool
}

// One wraps a to-one related entity; an absent entity yields Absent()
func One(e Entity) Related {
	if isAbsent(e) {
		return Absent()
	}
	return Related{one: e, present: true}
}

// Many wraps an ordered list of related entities
func Many(entities []Entity) Related {
	return Related{many: entities, toMany: true, present: true}
}

// Absent is a relationship that was not loaded
func Absent() Related {
	return Related{}
}

// Present reports whether the relationship was resolved
func (r Related) Present() bool {
	return r.present
}

// ResolveFunc resolves a relationship of owner. It may block (e.g. lazy loading);
// returning Absent() is never an error.
type ResolveFunc func(ctx context.Context, owner Entity) (Related, error)

// Relator resolves and renders one relationship field
type Relator struct {
	// Name is the relationship (and attribute) name
	Name string
	// Type is the JSON:API type of the related objects
	Type string
	// IdentifierOnly renders related objects as {type, id}
	IdentifierOnly bool
	// PreviewCap truncates to-many linkage when positive
	PreviewCap int
	// Resolve defaults to FieldResolver(Name)
	Resolve ResolveFunc
	// Related builds the "related" link from the owner; nil means no link
	Related LinkFunc
}

func (rel Relator) resolver() ResolveFunc {
	if rel.Resolve != nil {
		return rel.Resolve
	}
	return FieldResolver(rel.Name)
}

// FieldResolver reads a relationship already attached to the owner.
// Values recognized by entityValue are related entities; anything else
// (including a missing field) is absent.
func FieldResolver(name string) ResolveFunc {
	return func(_ context.Context, owner Entity) (Related, error) {
		v, ok := owner.Field(name)
		if !ok || v == nil {
			return Absent(), nil
		}
		related, _ := entityValue(v)
		return related, nil
	}
}

// entityValue interprets a field value as related entities. It reports false
// for values that are not entity shaped, e.g. a list of strings.
func entityValue(v any) (Related, bool) {
	switch val := v.(type) {
	case Related:
		return val, true
	case Record:
		return One(val), true
	case map[string]any:
		return One(Record(val)), true
	case Entity:
		return One(val), true
	case []Entity:
		return Many(val), true
	case []Record:
		return Many(Entities(val)), true
	case []map[string]any:
		out := make([]Entity, len(val))
		for i, m := range val {
			out[i] = Record(m)
		}
		return Many(out), true
	case []any:
		out := make([]Entity, 0, len(val))
		for _, item := range val {
			switch e := item.(type) {
			case nil:
			case Entity:
				out = append(out, e)
			case map[string]any:
				out = append(out, Record(e))
			default:
				return Absent(), false
			}
		}
		if len(val) > 0 && len(out) == 0 {
			return Absent(), false
		}
		return Many(out), true
	default:
		return Absent(), false
	}
}

// entities returns the present related entities in order
func (r Related) entities() []Entity {
	if !r.toMany {
		if isAbsent(r.one) {
			return nil
		}
		return []Entity{r.one}
	}
	out := make([]Entity, 0, len(r.many))
	for _, e := range r.many {
		if !isAbsent(e) {
			out = append(out, e)
		}
	}
	return out
}

// render builds the relationship object, or nil when the relationship is absent
func (rel Relator) render(settings Settings, registry *Registry, owner Entity, related Related) *Relationship {
	if !related.Present() {
		return nil
	}

	out := &Relationship{}
	if related.toMany {
		items := related.entities()
		if rel.PreviewCap > 0 && len(items) > rel.PreviewCap {
			items = items[:rel.PreviewCap]
		}
		out.Data = PrimaryData{IsMany: true, Many: make([]*ResourceObject, 0, len(items))}
		for _, item := range items {
			out.Data.Many = append(out.Data.Many, rel.renderItem(settings, registry, item))
		}
	} else {
		out.Data = PrimaryData{One: rel.renderItem(settings, registry, related.one)}
	}

	if rel.Related != nil {
		out.Links = &RelationshipLinks{Related: rel.Related(settings, owner)}
	}
	return out
}

func (rel Relator) renderItem(settings Settings, registry *Registry, e Entity) *ResourceObject {
	if !rel.IdentifierOnly {
		if d, ok := registry.ForType(rel.Type); ok {
			return &ResourceObject{
				Type:       rel.Type,
				ID:         e.EntityID(),
				Attributes: project(d, e),
				Links:      &ResourceLinks{Self: ResourceURL(settings, d.ResourcePath, e.EntityID())},
			}
		}
	}
	return &ResourceObject{Type: rel.Type, ID: e.EntityID()}
}
