package jsonapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testPreviewCap = 2

func testBlockDescriptor() *Descriptor {
	return &Descriptor{
		Type:           "blocks",
		CollectionName: "blocks",
		ResourcePath:   "/blocks",
		Attributes:     []string{"hash", "height", "transactions"},
		Projection:     []string{"transactions"},
		Relators: []Relator{{
			Name:           "transactions",
			Type:           "transactions",
			IdentifierOnly: true,
			PreviewCap:     testPreviewCap,
			Related:        RelatedCollection("/blocks/{id}/transactions", 500),
		}},
	}
}

func testTransactionDescriptor() *Descriptor {
	return &Descriptor{
		Type:           "transactions",
		CollectionName: "transactions",
		ResourcePath:   "/transactions",
		Attributes:     []string{"amount", "blockId", "senderId", "sender"},
		Projection:     []string{"sender"},
		Relators: []Relator{{
			Name:    "sender",
			Type:    "participants",
			Related: RelatedResource("/participants/{senderId}"),
		}},
	}
}

func testParticipantDescriptor() *Descriptor {
	return &Descriptor{
		Type:           "participants",
		CollectionName: "participants",
		ResourcePath:   "/participants",
		CollectionPath: "/organizations/{parentId}/participants",
		Attributes:     []string{"name", "email"},
	}
}

func testRegistry(t testing.TB) *Registry {
	t.Helper()
	r, err := NewRegistry(testBlockDescriptor(), testTransactionDescriptor(), testParticipantDescriptor())
	require.NoError(t, err)
	return r
}

func blockWithTransactions(id string, n int) Record {
	txs := make([]Record, n)
	for i := range txs {
		txs[i] = Record{"id": fmt.Sprintf("%s-tx%d", id, i), "amount": i}
	}
	return Record{"id": id, "hash": "h-" + id, "height": 7, "transactions": txs}
}

func decode(t *testing.T, doc *Document) map[string]any {
	t.Helper()
	raw, err := json.Marshal(doc)
	require.NoError(t, err)
	var out map[string]any
	require.NoError(t, json.Unmarshal(raw, &out))
	return out
}

func TestSerializeOne(t *testing.T) {
	ctx := context.Background()
	s := NewSerializer(testBlockDescriptor(), testSettings)

	doc, err := s.SerializeOne(ctx, blockWithTransactions("b1", 1))
	require.NoError(t, err)

	out := decode(t, doc)
	assert.Equal(t, map[string]any{"version": "1.0"}, out["jsonapi"])
	assert.Equal(t, map[string]any{"self": "https://api.example.com/v1/blocks/b1"}, out["links"])
	assert.NotContains(t, out, "meta")

	data := out["data"].(map[string]any)
	assert.Equal(t, "blocks", data["type"])
	assert.Equal(t, "b1", data["id"])
	assert.Equal(t, map[string]any{"hash": "h-b1", "height": float64(7)}, data["attributes"])
	assert.Equal(t, map[string]any{"self": "https://api.example.com/v1/blocks/b1"}, data["links"])
}

func TestSerializeOneAbsentEntity(t *testing.T) {
	ctx := context.Background()

	t.Run("null data disallowed", func(t *testing.T) {
		s := NewSerializer(testBlockDescriptor(), testSettings)
		doc, err := s.SerializeOne(ctx, nil)
		assert.True(t, errors.Is(err, ErrNoData))
		assert.Nil(t, doc)
	})

	t.Run("typed nil record", func(t *testing.T) {
		s := NewSerializer(testBlockDescriptor(), testSettings)
		var r Record
		_, err := s.SerializeOne(ctx, r)
		assert.True(t, errors.Is(err, ErrNoData))
	})

	t.Run("null data allowed", func(t *testing.T) {
		s := NewSerializer(testBlockDescriptor(), testSettings, WithNullData())
		doc, err := s.SerializeOne(ctx, nil)
		require.NoError(t, err)

		raw, err := json.Marshal(doc)
		require.NoError(t, err)
		assert.JSONEq(t, `{"jsonapi":{"version":"1.0"},"data":null}`, string(raw))
	})
}

func TestSerializeManyScenarios(t *testing.T) {
	ctx := context.Background()
	s := NewSerializer(testBlockDescriptor(), testSettings)

	t.Run("count 25 first page", func(t *testing.T) {
		rows := make([]Entity, 10)
		for i := range rows {
			rows[i] = Record{"id": fmt.Sprintf("b%d", i), "hash": "h", "height": i}
		}

		doc, err := s.SerializeMany(ctx, rows, 25, Page{Number: 0, Size: 10})
		require.NoError(t, err)

		assert.Equal(t, 3, doc.Meta.TotalPages)
		assert.Nil(t, doc.Links.Prev)
		require.NotNil(t, doc.Links.Next)
		assert.Contains(t, *doc.Links.Next, "page[number]=1&page[size]=10")

		out := decode(t, doc)
		links := out["links"].(map[string]any)
		assert.Contains(t, links, "prev")
		assert.Nil(t, links["prev"])
	})

	t.Run("empty collection", func(t *testing.T) {
		doc, err := s.SerializeMany(ctx, nil, 0, Page{Number: 0, Size: 10})
		require.NoError(t, err)

		raw, err := json.Marshal(doc)
		require.NoError(t, err)
		assert.JSONEq(t, `{
			"jsonapi": {"version": "1.0"},
			"data": [],
			"links": {
				"self": "https://api.example.com/v1/blocks?page[number]=0&page[size]=10",
				"first": "https://api.example.com/v1/blocks?page[number]=0&page[size]=10",
				"last": "https://api.example.com/v1/blocks?page[number]=0&page[size]=10",
				"next": null,
				"prev": null
			},
			"meta": {"itemsPerPage": 10, "totalItems": 0, "currentPage": 0, "totalPages": 0}
		}`, string(raw))
	})

	t.Run("invalid page", func(t *testing.T) {
		_, err := s.SerializeMany(ctx, nil, 0, Page{Number: 0, Size: 0})
		assert.True(t, errors.Is(err, ErrInvalidPage))

		_, err = s.SerializeMany(ctx, nil, 0, Page{Number: -1, Size: 10})
		assert.True(t, errors.Is(err, ErrInvalidPage))
	})

	t.Run("nil row", func(t *testing.T) {
		_, err := s.SerializeMany(ctx, []Entity{Record{"id": "b1"}, nil}, 2, Page{Number: 0, Size: 10})
		assert.Error(t, err)
	})
}

func TestBlockTransactionPreview(t *testing.T) {
	s := NewSerializer(testBlockDescriptor(), testSettings)

	doc, err := s.SerializeOne(context.Background(), blockWithTransactions("b1", 3))
	require.NoError(t, err)

	rel := doc.Data.One.Relationships["transactions"]
	require.NotNil(t, rel)
	require.True(t, rel.Data.IsMany)
	require.Len(t, rel.Data.Many, testPreviewCap)
	assert.Equal(t, "b1-tx0", rel.Data.Many[0].ID)
	assert.Equal(t, "b1-tx1", rel.Data.Many[1].ID)

	require.NotNil(t, rel.Links)
	assert.Equal(t, "https://api.example.com/v1/blocks/b1/transactions?page[number]=0&page[size]=500", rel.Links.Related)
	assert.NotContains(t, rel.Links.Related, fmt.Sprintf("page[size]=%d", testPreviewCap))
}

func TestIdentifierOnlyShape(t *testing.T) {
	s := NewSerializer(testBlockDescriptor(), testSettings, WithRegistry(testRegistry(t)))

	doc, err := s.SerializeOne(context.Background(), blockWithTransactions("b1", 2))
	require.NoError(t, err)

	out := decode(t, doc)
	rel := out["data"].(map[string]any)["relationships"].(map[string]any)["transactions"].(map[string]any)
	for _, item := range rel["data"].([]any) {
		keys := make([]string, 0)
		for k := range item.(map[string]any) {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		assert.Equal(t, []string{"id", "type"}, keys)
	}
}

func TestFullRelatedObject(t *testing.T) {
	s := NewSerializer(testTransactionDescriptor(), testSettings, WithRegistry(testRegistry(t)))

	tx := Record{
		"id":       "tx1",
		"amount":   12.5,
		"blockId":  "b1",
		"senderId": "p1",
		"sender":   Record{"id": "p1", "name": "Ada", "email": "ada@example.com", "passwordHash": "secret"},
	}

	doc, err := s.SerializeOne(context.Background(), tx)
	require.NoError(t, err)

	rel := doc.Data.One.Relationships["sender"]
	require.NotNil(t, rel)
	require.NotNil(t, rel.Data.One)
	assert.Equal(t, "participants", rel.Data.One.Type)
	assert.Equal(t, []string{"name", "email"}, rel.Data.One.Attributes.Keys())
	assert.Equal(t, "https://api.example.com/v1/participants/p1", rel.Data.One.Links.Self)
	assert.Equal(t, "https://api.example.com/v1/participants/p1", rel.Links.Related)
	assert.Nil(t, rel.Data.One.Relationships)
}

func TestFullRelatedFallsBackToIdentifier(t *testing.T) {
	s := NewSerializer(testTransactionDescriptor(), testSettings)

	doc, err := s.SerializeOne(context.Background(), Record{"id": "tx1", "sender": Record{"id": "p1", "name": "Ada"}})
	require.NoError(t, err)

	rel := doc.Data.One.Relationships["sender"]
	assert.Equal(t, &ResourceObject{Type: "participants", ID: "p1"}, rel.Data.One)
}

func TestAbsentRelationship(t *testing.T) {
	s := NewSerializer(testTransactionDescriptor(), testSettings, WithRegistry(testRegistry(t)))

	doc, err := s.SerializeOne(context.Background(), Record{"id": "tx1", "amount": 1, "senderId": "p1"})
	require.NoError(t, err)

	assert.Nil(t, doc.Data.One.Relationships)
	out := decode(t, doc)
	assert.NotContains(t, out["data"].(map[string]any), "relationships")
}

func TestProjectionInvariant(t *testing.T) {
	d := testTransactionDescriptor()
	s := NewSerializer(d, testSettings)

	tx := Record{
		"id":        "tx1",
		"amount":    5,
		"blockId":   "b1",
		"senderId":  "p1",
		"sender":    Record{"id": "p1"},
		"signature": "not allow-listed",
		"internal":  true,
	}

	doc, err := s.SerializeOne(context.Background(), tx)
	require.NoError(t, err)
	assert.Equal(t, d.EmittedAttributes(), doc.Data.One.Attributes.Keys())
	assert.Equal(t, []string{"amount", "blockId", "senderId"}, doc.Data.One.Attributes.Keys())
}

func TestMissingAttributeIsOmitted(t *testing.T) {
	s := NewSerializer(testBlockDescriptor(), testSettings)

	doc, err := s.SerializeOne(context.Background(), Record{"id": "b1", "hash": "h"})
	require.NoError(t, err)
	assert.Equal(t, []string{"hash"}, doc.Data.One.Attributes.Keys())
	assert.Nil(t, doc.Data.One.Relationships)
}

func TestNestedEntityAttributeRendersID(t *testing.T) {
	d := &Descriptor{
		Type:           "keys",
		CollectionName: "keys",
		ResourcePath:   "/keys",
		Attributes:     []string{"publicKey", "participant"},
		Relators:       []Relator{{Name: "participant", Type: "participants", IdentifierOnly: true}},
	}
	s := NewSerializer(d, testSettings)

	doc, err := s.SerializeOne(context.Background(), Record{"id": "k1", "publicKey": "pk", "participant": Record{"id": "p1"}})
	require.NoError(t, err)

	v, ok := doc.Data.One.Attributes.Get("participant")
	require.True(t, ok)
	assert.Equal(t, "p1", v)
}

func TestPreviewSkipsAbsentItemsBeforeCapping(t *testing.T) {
	s := NewSerializer(testBlockDescriptor(), testSettings)

	block := Record{
		"id":           "b1",
		"transactions": []Entity{nil, Record(nil), Record{"id": "tx1"}, Record{"id": "tx2"}, Record{"id": "tx3"}},
	}
	doc, err := s.SerializeOne(context.Background(), block)
	require.NoError(t, err)

	rel := doc.Data.One.Relationships["transactions"]
	require.NotNil(t, rel)
	require.Len(t, rel.Data.Many, testPreviewCap)
	assert.Equal(t, "tx1", rel.Data.Many[0].ID)
	assert.Equal(t, "tx2", rel.Data.Many[1].ID)

	assert.Equal(t, []string{"tx1", "tx2", "tx3"}, attributeValue(block["transactions"]))
}

func TestPlainMapAttributesRenderIDs(t *testing.T) {
	d := &Descriptor{
		Type:           "keys",
		CollectionName: "keys",
		ResourcePath:   "/keys",
		Attributes:     []string{"participant", "signers", "cosigners", "tags", "blanks"},
	}
	s := NewSerializer(d, testSettings)

	doc, err := s.SerializeOne(context.Background(), Record{
		"id":          "k1",
		"participant": map[string]any{"id": "p1", "passwordHash": "secret"},
		"signers":     []map[string]any{{"id": "p2", "email": "b@example.com"}, {"id": "p3"}},
		"cosigners":   []any{map[string]any{"id": "p4", "passwordHash": "secret"}, nil, Record{"id": "p5"}},
		"tags":        []any{"hot", "cold"},
		"blanks":      []any{nil},
	})
	require.NoError(t, err)

	attrs := doc.Data.One.Attributes
	v, _ := attrs.Get("participant")
	assert.Equal(t, "p1", v)
	v, _ = attrs.Get("signers")
	assert.Equal(t, []string{"p2", "p3"}, v)
	v, _ = attrs.Get("cosigners")
	assert.Equal(t, []string{"p4", "p5"}, v)
	v, _ = attrs.Get("tags")
	assert.Equal(t, []any{"hot", "cold"}, v)
	v, _ = attrs.Get("blanks")
	assert.Equal(t, []any{nil}, v)

	raw, err := json.Marshal(doc)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "secret")
	assert.NotContains(t, string(raw), "b@example.com")
}

func TestSerializeIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s := NewSerializer(testBlockDescriptor(), testSettings, WithRegistry(testRegistry(t)))
	rows := []Entity{blockWithTransactions("b1", 3), blockWithTransactions("b2", 1)}

	first, err := s.SerializeMany(ctx, rows, 2, Page{Number: 0, Size: 10})
	require.NoError(t, err)
	second, err := s.SerializeMany(ctx, rows, 2, Page{Number: 0, Size: 10})
	require.NoError(t, err)

	a, err := json.Marshal(first)
	require.NoError(t, err)
	b, err := json.Marshal(second)
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))
}

func TestAttributeOrderFollowsDescriptor(t *testing.T) {
	d := &Descriptor{
		Type:           "nodes",
		CollectionName: "nodes",
		ResourcePath:   "/nodes",
		Attributes:     []string{"zeta", "alpha", "mid"},
	}

	doc, err := NewSerializer(d, testSettings).SerializeOne(context.Background(), Record{"id": "n1", "alpha": 1, "mid": 2, "zeta": 3})
	require.NoError(t, err)

	raw, err := json.Marshal(doc.Data.One.Attributes)
	require.NoError(t, err)
	assert.Equal(t, `{"zeta":3,"alpha":1,"mid":2}`, string(raw))
}

func TestRowOrderWithAsyncResolution(t *testing.T) {
	d := &Descriptor{
		Type:           "participants",
		CollectionName: "participants",
		ResourcePath:   "/participants",
		Attributes:     []string{"name", "keys"},
		Relators: []Relator{{
			Name:           "keys",
			Type:           "keys",
			IdentifierOnly: true,
			Resolve: func(ctx context.Context, owner Entity) (Related, error) {
				delay, _ := owner.Field("delay")
				select {
				case <-time.After(delay.(time.Duration)):
				case <-ctx.Done():
					return Absent(), ctx.Err()
				}
				return Many([]Entity{Record{"id": "key-" + owner.EntityID()}}), nil
			},
		}},
	}

	rows := make([]Entity, 6)
	for i := range rows {
		rows[i] = Record{
			"id":    fmt.Sprintf("p%d", i),
			"name":  fmt.Sprintf("participant %d", i),
			"delay": time.Duration(len(rows)-i) * 5 * time.Millisecond,
		}
	}

	doc, err := NewSerializer(d, testSettings, WithConcurrency(len(rows))).
		SerializeMany(context.Background(), rows, len(rows), Page{Number: 0, Size: 10})
	require.NoError(t, err)

	require.Len(t, doc.Data.Many, len(rows))
	for i, obj := range doc.Data.Many {
		assert.Equal(t, fmt.Sprintf("p%d", i), obj.ID)
		assert.Equal(t, "key-"+obj.ID, obj.Relationships["keys"].Data.Many[0].ID)
	}
}

func TestResolverErrorIsReturned(t *testing.T) {
	boom := errors.New("lookup failed")
	d := &Descriptor{
		Type:           "organizations",
		CollectionName: "organizations",
		ResourcePath:   "/organizations",
		Attributes:     []string{"nodes"},
		Relators: []Relator{{
			Name: "nodes",
			Type: "nodes",
			Resolve: func(context.Context, Entity) (Related, error) {
				return Absent(), boom
			},
		}},
	}

	_, err := NewSerializer(d, testSettings).SerializeMany(context.Background(), []Entity{Record{"id": "o1"}}, 1, Page{Number: 0, Size: 10})
	assert.True(t, errors.Is(err, boom))
	assert.Contains(t, err.Error(), "resolve organizations.nodes")
}

func TestNestedCollectionLinks(t *testing.T) {
	s := NewSerializer(testParticipantDescriptor(), testSettings, WithParentID("o1"))

	doc, err := s.SerializeMany(context.Background(), []Entity{Record{"id": "p1", "name": "Ada"}}, 1, Page{Number: 0, Size: 10})
	require.NoError(t, err)

	assert.Equal(t, "https://api.example.com/v1/organizations/o1/participants?page[number]=0&page[size]=10", doc.Links.Self)
	assert.Equal(t, "https://api.example.com/v1/participants/p1", doc.Data.Many[0].Links.Self)
}

func TestErrorDocument(t *testing.T) {
	doc := NewErrorDocument(&Error{Status: "404", Code: "not_found", Title: "Not Found"})

	raw, err := json.Marshal(doc)
	require.NoError(t, err)
	assert.JSONEq(t, `{"jsonapi":{"version":"1.0"},"errors":[{"status":"404","code":"not_found","title":"Not Found"}]}`, string(raw))
}
