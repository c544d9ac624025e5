package store

import (
	"github.com/conduit-lang/ledgerapi/internal/resources"
)

// Column maps a table column to a record field
type Column struct {
	Name  string
	Field string
}

// Preload attaches related rows to every row of a result.
// To-many preloads match the owner's LocalField against RemoteColumn of the related table;
// to-one preloads do the same with the roles of foreign and primary key swapped.
type Preload struct {
	// Field is the record field that receives the related rows
	Field string
	// Table is the key of the related table
	Table string
	// LocalField is the owner field holding the match value
	LocalField string
	// RemoteColumn is the related column compared against it
	RemoteColumn string
	// Many attaches a list instead of a single record
	Many bool
}

// Table describes how a collection is stored
type Table struct {
	Name    string
	Columns []Column
	// ParentColumn scopes a nested collection to its parent id
	ParentColumn string
	// Filters maps filter[key] names to columns
	Filters  map[string]string
	OrderBy  string
	Preloads []Preload
}

// fieldFor returns the record field of a column
func (t *Table) fieldFor(column string) string {
	for _, c := range t.Columns {
		if c.Name == column {
			return c.Field
		}
	}
	return column
}

func (t *Table) columnNames() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

// nested returns a copy scoped by parent column
func (t *Table) nested(parentColumn string) *Table {
	cp := *t
	cp.ParentColumn = parentColumn
	return &cp
}

var blocksTable = &Table{
	Name: "blocks",
	Columns: []Column{
		{"id", "id"},
		{"hash", "hash"},
		{"previous_hash", "previousHash"},
		{"height", "height"},
		{"nonce", "nonce"},
		{"merkle_root", "merkleRoot"},
		{"timestamp", "timestamp"},
		{"transaction_count", "transactionCount"},
	},
	Filters: map[string]string{"hash": "hash", "height": "height"},
	OrderBy: "height DESC",
	Preloads: []Preload{
		{Field: "transactions", Table: resources.Transactions, LocalField: "id", RemoteColumn: "block_id", Many: true},
	},
}

var transactionsTable = &Table{
	Name: "transactions",
	Columns: []Column{
		{"id", "id"},
		{"hash", "hash"},
		{"block_id", "blockId"},
		{"sender_id", "senderId"},
		{"recipient", "recipient"},
		{"amount", "amount"},
		{"payload", "payload"},
		{"signature", "signature"},
		{"status", "status"},
		{"timestamp", "timestamp"},
	},
	Filters: map[string]string{"status": "status", "sender": "sender_id", "recipient": "recipient", "block": "block_id"},
	OrderBy: `"timestamp" ASC, id ASC`,
	Preloads: []Preload{
		{Field: "block", Table: resources.Blocks, LocalField: "blockId", RemoteColumn: "id"},
		{Field: "sender", Table: resources.Participants, LocalField: "senderId", RemoteColumn: "id"},
	},
}

var participantsTable = &Table{
	Name: "participants",
	Columns: []Column{
		{"id", "id"},
		{"name", "name"},
		{"email", "email"},
		{"role", "role"},
		{"organization_id", "organizationId"},
		{"created_at", "createdAt"},
	},
	Filters: map[string]string{"role": "role", "email": "email", "organization": "organization_id"},
	OrderBy: "created_at ASC, id ASC",
	Preloads: []Preload{
		{Field: "organization", Table: resources.Organizations, LocalField: "organizationId", RemoteColumn: "id"},
		{Field: "keys", Table: resources.Keys, LocalField: "id", RemoteColumn: "participant_id", Many: true},
	},
}

var keysTable = &Table{
	Name: "keys",
	Columns: []Column{
		{"id", "id"},
		{"participant_id", "participantId"},
		{"public_key", "publicKey"},
		{"algorithm", "algorithm"},
		{"created_at", "createdAt"},
		{"revoked_at", "revokedAt"},
	},
	Filters: map[string]string{"algorithm": "algorithm"},
	OrderBy: "created_at ASC, id ASC",
	Preloads: []Preload{
		{Field: "participant", Table: resources.Participants, LocalField: "participantId", RemoteColumn: "id"},
	},
}

var organizationsTable = &Table{
	Name: "organizations",
	Columns: []Column{
		{"id", "id"},
		{"name", "name"},
		{"description", "description"},
		{"created_at", "createdAt"},
	},
	Filters: map[string]string{"name": "name"},
	OrderBy: "name ASC, id ASC",
	Preloads: []Preload{
		{Field: "participants", Table: resources.Participants, LocalField: "id", RemoteColumn: "organization_id", Many: true},
		{Field: "nodes", Table: resources.Nodes, LocalField: "id", RemoteColumn: "organization_id", Many: true},
	},
}

var nodesTable = &Table{
	Name: "nodes",
	Columns: []Column{
		{"id", "id"},
		{"name", "name"},
		{"address", "address"},
		{"public_key", "publicKey"},
		{"status", "status"},
		{"organization_id", "organizationId"},
		{"maintainer_id", "maintainerId"},
		{"last_seen_at", "lastSeenAt"},
	},
	Filters: map[string]string{"status": "status", "maintainer": "maintainer_id"},
	OrderBy: "name ASC, id ASC",
	Preloads: []Preload{
		{Field: "maintainer", Table: resources.Participants, LocalField: "maintainerId", RemoteColumn: "id"},
		{Field: "organization", Table: resources.Organizations, LocalField: "organizationId", RemoteColumn: "id"},
	},
}

// DefaultTables maps every collection name to its table
func DefaultTables() map[string]*Table {
	return map[string]*Table{
		resources.Blocks:                   blocksTable,
		resources.Transactions:             transactionsTable,
		resources.BlockTransactions:        transactionsTable.nested("block_id"),
		resources.Participants:             participantsTable,
		resources.OrganizationParticipants: participantsTable.nested("organization_id"),
		resources.Keys:                     keysTable,
		resources.ParticipantKeys:          keysTable.nested("participant_id"),
		resources.Organizations:            organizationsTable,
		resources.Nodes:                    nodesTable,
		resources.OrganizationNodes:        nodesTable.nested("organization_id"),
	}
}
