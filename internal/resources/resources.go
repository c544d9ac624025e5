// Package resources declares the descriptor of every resource the API serves.
package resources

import (
	"fmt"

	"github.com/conduit-lang/ledgerapi/internal/jsonapi"
)

const (
	// DefaultPageSize applies when page[size] is not given
	DefaultPageSize = 10
	// MaxPageSize is the largest accepted page[size]
	MaxPageSize = 500
	// MaxTransactionsPerBlock bounds a block; its related link asks for one page of this size
	MaxTransactionsPerBlock = 500
	// BlockTransactionPreview caps the transaction identifiers embedded in a block
	BlockTransactionPreview = 10
	// RelationshipPreview caps other embedded to-many linkage
	RelationshipPreview = 10
)

// Collection names
const (
	Blocks                   = "blocks"
	Transactions             = "transactions"
	BlockTransactions        = "blockTransactions"
	Participants             = "participants"
	OrganizationParticipants = "organizationParticipants"
	Keys                     = "keys"
	ParticipantKeys          = "participantKeys"
	Organizations            = "organizations"
	Nodes                    = "nodes"
	OrganizationNodes        = "organizationNodes"
)

// JSON:API types
const (
	TypeBlock        = "blocks"
	TypeTransaction  = "transactions"
	TypeParticipant  = "participants"
	TypeKey          = "keys"
	TypeOrganization = "organizations"
	TypeNode         = "nodes"
)

var blockAttributes = []string{
	"hash", "previousHash", "height", "nonce", "merkleRoot", "timestamp", "transactionCount", "transactions",
}

var transactionAttributes = []string{
	"hash", "blockId", "senderId", "recipient", "amount", "payload", "signature", "status", "timestamp",
	"block", "sender",
}

var participantAttributes = []string{
	"name", "email", "role", "organizationId", "createdAt", "organization", "keys",
}

var keyAttributes = []string{
	"participantId", "publicKey", "algorithm", "createdAt", "revokedAt", "participant",
}

var organizationAttributes = []string{
	"name", "description", "createdAt", "participants", "nodes",
}

var nodeAttributes = []string{
	"name", "address", "publicKey", "status", "organizationId", "maintainerId", "lastSeenAt",
	"maintainer", "organization",
}

// Block renders blocks with a capped preview of transaction identifiers
func Block() *jsonapi.Descriptor {
	return &jsonapi.Descriptor{
		Type:           TypeBlock,
		CollectionName: Blocks,
		ResourcePath:   "/blocks",
		Attributes:     blockAttributes,
		Projection:     []string{"transactions"},
		Relators: []jsonapi.Relator{{
			Name:           "transactions",
			Type:           TypeTransaction,
			IdentifierOnly: true,
			PreviewCap:     BlockTransactionPreview,
			Related:        jsonapi.RelatedCollection("/blocks/{id}/transactions", MaxTransactionsPerBlock),
		}},
	}
}

func transactionRelators() []jsonapi.Relator {
	return []jsonapi.Relator{
		{
			Name:           "block",
			Type:           TypeBlock,
			IdentifierOnly: true,
			Related:        jsonapi.RelatedResource("/blocks/{blockId}"),
		},
		{
			Name:    "sender",
			Type:    TypeParticipant,
			Related: jsonapi.RelatedResource("/participants/{senderId}"),
		},
	}
}

// Transaction renders transactions
func Transaction() *jsonapi.Descriptor {
	return &jsonapi.Descriptor{
		Type:           TypeTransaction,
		CollectionName: Transactions,
		ResourcePath:   "/transactions",
		Attributes:     transactionAttributes,
		Projection:     []string{"block", "sender"},
		Relators:       transactionRelators(),
	}
}

// BlockTransaction renders the transactions of one block
func BlockTransaction() *jsonapi.Descriptor {
	d := Transaction()
	d.CollectionName = BlockTransactions
	d.CollectionPath = "/blocks/{parentId}/transactions"
	return d
}

// Participant renders participants
func Participant() *jsonapi.Descriptor {
	return &jsonapi.Descriptor{
		Type:           TypeParticipant,
		CollectionName: Participants,
		ResourcePath:   "/participants",
		Attributes:     participantAttributes,
		Projection:     []string{"organization", "keys"},
		Relators: []jsonapi.Relator{
			{
				Name:    "organization",
				Type:    TypeOrganization,
				Related: jsonapi.RelatedResource("/organizations/{organizationId}"),
			},
			{
				Name:           "keys",
				Type:           TypeKey,
				IdentifierOnly: true,
				PreviewCap:     RelationshipPreview,
				Related:        jsonapi.RelatedCollection("/participants/{id}/keys", DefaultPageSize),
			},
		},
	}
}

// OrganizationParticipant renders the participants of one organization
func OrganizationParticipant() *jsonapi.Descriptor {
	d := Participant()
	d.CollectionName = OrganizationParticipants
	d.CollectionPath = "/organizations/{parentId}/participants"
	return d
}

// Key renders public keys
func Key() *jsonapi.Descriptor {
	return &jsonapi.Descriptor{
		Type:           TypeKey,
		CollectionName: Keys,
		ResourcePath:   "/keys",
		Attributes:     keyAttributes,
		Projection:     []string{"participant"},
		Relators: []jsonapi.Relator{{
			Name:           "participant",
			Type:           TypeParticipant,
			IdentifierOnly: true,
			Related:        jsonapi.RelatedResource("/participants/{participantId}"),
		}},
	}
}

// ParticipantKey renders the keys of one participant
func ParticipantKey() *jsonapi.Descriptor {
	d := Key()
	d.CollectionName = ParticipantKeys
	d.CollectionPath = "/participants/{parentId}/keys"
	return d
}

// Organization renders organizations
func Organization() *jsonapi.Descriptor {
	return &jsonapi.Descriptor{
		Type:           TypeOrganization,
		CollectionName: Organizations,
		ResourcePath:   "/organizations",
		Attributes:     organizationAttributes,
		Projection:     []string{"participants", "nodes"},
		Relators: []jsonapi.Relator{
			{
				Name:           "participants",
				Type:           TypeParticipant,
				IdentifierOnly: true,
				PreviewCap:     RelationshipPreview,
				Related:        jsonapi.RelatedCollection("/organizations/{id}/participants", DefaultPageSize),
			},
			{
				Name:           "nodes",
				Type:           TypeNode,
				IdentifierOnly: true,
				PreviewCap:     RelationshipPreview,
				Related:        jsonapi.RelatedCollection("/organizations/{id}/nodes", DefaultPageSize),
			},
		},
	}
}

// Node renders network nodes
func Node() *jsonapi.Descriptor {
	return &jsonapi.Descriptor{
		Type:           TypeNode,
		CollectionName: Nodes,
		ResourcePath:   "/nodes",
		Attributes:     nodeAttributes,
		Projection:     []string{"maintainer", "organization"},
		Relators: []jsonapi.Relator{
			{
				Name:    "maintainer",
				Type:    TypeParticipant,
				Related: jsonapi.RelatedResource("/participants/{maintainerId}"),
			},
			{
				Name:           "organization",
				Type:           TypeOrganization,
				IdentifierOnly: true,
				Related:        jsonapi.RelatedResource("/organizations/{organizationId}"),
			},
		},
	}
}

// OrganizationNode renders the nodes of one organization
func OrganizationNode() *jsonapi.Descriptor {
	d := Node()
	d.CollectionName = OrganizationNodes
	d.CollectionPath = "/organizations/{parentId}/nodes"
	return d
}

// All returns every descriptor. Canonical descriptors come before their nested
// variants so the registry renders full related objects with them.
func All() []*jsonapi.Descriptor {
	return []*jsonapi.Descriptor{
		Block(),
		Transaction(),
		Participant(),
		Key(),
		Organization(),
		Node(),
		BlockTransaction(),
		OrganizationParticipant(),
		ParticipantKey(),
		OrganizationNode(),
	}
}

// NewRegistry registers every descriptor
func NewRegistry() (*jsonapi.Registry, error) {
	r, err := jsonapi.NewRegistry(All()...)
	if err != nil {
		return nil, fmt.Errorf("resources: %w", err)
	}
	return r, nil
}

// MustRegistry is NewRegistry for package initialization and tests
func MustRegistry() *jsonapi.Registry {
	r, err := NewRegistry()
	if err != nil {
		panic(err)
	}
	return r
}
