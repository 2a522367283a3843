// Package event carries repository change events between the services and their listeners.
package event

import "time"

type Action string

const (
	Insert Action = "INSERT"
	Update Action = "UPDATE"
	Delete Action = "DELETE"
)

// Tables (and pseudo tables) emitting change events.
const (
	TableMembers       = "adherents"
	TableGroups        = "groupes"
	TableMemberships   = "adherents_groupes"
	TableDues          = "adidy"
	TableContributions = "contributions"
	TableRoles         = "user_roles"
	TableSettings      = "system_settings"
	TableSessions      = "auth"
)

// Change describes one mutation. ID is the primary key of the changed row
// (the user id for TableRoles, the session id for TableSessions).
type Change struct {
	Table  string    `json:"table"`
	Action Action    `json:"action"`
	ID     string    `json:"id"`
	Label  string    `json:"label,omitempty"` // human readable name of the record
	Actor  string    `json:"actor,omitempty"` // user id at the origin of the change
	Origin string    `json:"origin,omitempty"`
	At     time.Time `json:"at"`
}
