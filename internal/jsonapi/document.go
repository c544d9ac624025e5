// Package jsonapi assembles JSON:API documents from resource descriptors.
//
// A Serializer is built per request from a Descriptor and the process-wide
// Settings. It turns one entity (SerializeOne) or a page of entities
// (SerializeMany) into a Document with data, relationships, links and meta
// sections. The package performs no I/O of its own: related entities are either
// attached to the entity or produced by a ResolveFunc.
package jsonapi

import (
	"bytes"
	"encoding/json"
)

// Version is the JSON:API version advertised in every document
const Version = "1.0"

// Object is the top-level "jsonapi" member
type Object struct {
	Version string `json:"version"`
}

// Document is a JSON:API top-level document
type Document struct {
	JSONAPI Object
	Data    PrimaryData
	Links   *Links
	Meta    *Meta
	Errors  []*Error
}

// MarshalJSON renders the document. Error documents never carry data.
func (d *Document) MarshalJSON() ([]byte, error) {
	if len(d.Errors) > 0 {
		return json.Marshal(struct {
			JSONAPI Object   `json:"jsonapi"`
			Errors  []*Error `json:"errors"`
			Meta    *Meta    `json:"meta,omitempty"`
		}{d.JSONAPI, d.Errors, d.Meta})
	}

	return json.Marshal(struct {
		JSONAPI Object      `json:"jsonapi"`
		Data    PrimaryData `json:"data"`
		Links   *Links      `json:"links,omitempty"`
		Meta    *Meta       `json:"meta,omitempty"`
	}{d.JSONAPI, d.Data, d.Links, d.Meta})
}

// PrimaryData holds either a single resource object or a list of them.
// It is also used as relationship linkage.
type PrimaryData struct {
	One    *ResourceObject
	Many   []*ResourceObject
	IsMany bool
}

// MarshalJSON renders null, an object, or an array (never null for lists)
func (p PrimaryData) MarshalJSON() ([]byte, error) {
	if p.IsMany {
		if p.Many == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(p.Many)
	}
	if p.One == nil {
		return []byte("null"), nil
	}
	return json.Marshal(p.One)
}

// ResourceObject is a rendered entity. Identifier-only objects carry just Type and ID.
type ResourceObject struct {
	Type          string                   `json:"type"`
	ID            string                   `json:"id"`
	Attributes    Attributes               `json:"attributes,omitempty"`
	Relationships map[string]*Relationship `json:"relationships,omitempty"`
	Links         *ResourceLinks           `json:"links,omitempty"`
}

// Relationship is a rendered relationship object
type Relationship struct {
	Data  PrimaryData        `json:"data"`
	Links *RelationshipLinks `json:"links,omitempty"`
}

// ResourceLinks are the links of a single resource object
type ResourceLinks struct {
	Self string `json:"self"`
}

// RelationshipLinks are the links of a relationship object
type RelationshipLinks struct {
	Related string `json:"related"`
}

// Links are the document-level links. Pagination is nil on single-entity documents.
type Links struct {
	Self string `json:"self"`
	*PaginationLinks
}

// PaginationLinks are the collection links; Next and Prev render as null when absent
type PaginationLinks struct {
	First string  `json:"first"`
	Last  string  `json:"last"`
	Next  *string `json:"next"`
	Prev  *string `json:"prev"`
}

// Attribute is one emitted attribute
type Attribute struct {
	Key   string
	Value any
}

// Attributes keep the descriptor's declaration order on the wire
type Attributes []Attribute

// Get returns the value of key
func (a Attributes) Get(key string) (any, bool) {
	for _, attr := range a {
		if attr.Key == key {
			return attr.Value, true
		}
	}
	return nil, false
}

// Keys returns the attribute names in order
func (a Attributes) Keys() []string {
	keys := make([]string, len(a))
	for i, attr := range a {
		keys[i] = attr.Key
	}
	return keys
}

// MarshalJSON renders the attributes as an object in declaration order
func (a Attributes) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, attr := range a {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(attr.Key)
		if err != nil {
			return nil, err
		}
		value, err := json.Marshal(attr.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Error is a JSON:API error object
type Error struct {
	Status string       `json:"status,omitempty"`
	Code   string       `json:"code,omitempty"`
	Title  string       `json:"title,omitempty"`
	Detail string       `json:"detail,omitempty"`
	Source *ErrorSource `json:"source,omitempty"`
}

// ErrorSource points at the part of the request that caused an error
type ErrorSource struct {
	Pointer   string `json:"pointer,omitempty"`
	Parameter string `json:"parameter,omitempty"`
}

// NewErrorDocument wraps error objects in a document
func NewErrorDocument(errs ...*Error) *Document {
	return &Document{
		JSONAPI: Object{Version: Version},
		Errors:  errs,
	}
}
