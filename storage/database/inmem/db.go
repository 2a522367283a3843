// Package inmemdb implements the repositories in memory, for tests and local runs.
package inmemdb

import (
	"sync"

	"github.com/google/uuid"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/mpiangona/core/contribution"
	"github.com/trezcool/mpiangona/core/dues"
	"github.com/trezcool/mpiangona/core/group"
	"github.com/trezcool/mpiangona/core/member"
	"github.com/trezcool/mpiangona/core/role"
	"github.com/trezcool/mpiangona/core/setting"
	"github.com/trezcool/mpiangona/core/user"
)

type membershipKey struct {
	memberID string
	groupID  string
}

// DB holds every table behind a single lock so joins see a consistent state.
type DB struct {
	mutex sync.RWMutex

	members       map[string]*member.Member
	sampana       []member.Sampana
	groups        map[string]*group.Group
	memberships   map[membershipKey]group.Membership
	dues          map[string]*dues.Record
	contributions map[string]*contribution.Contribution
	roles         map[string]role.Assignment
	settings      map[string]setting.Setting
	users         map[string]*user.User

	// FailWith makes every repository call fail with this error (simulated outage).
	FailWith error
}

// Sampana seeded like the SQL migrations.
var Sampana = []member.Sampana{
	{ID: "7b1f2c0e-3a51-4c5e-9d0a-1f6e1b2a0001", Nom: "Sekoly Alahady", Description: null.StringFrom("Sekoly Alahady sy ny mpampianatra azy")},
	{ID: "7b1f2c0e-3a51-4c5e-9d0a-1f6e1b2a0002", Nom: "Dorkasy", Description: null.StringFrom("Fikambanan'ny vehivavy kristiana")},
	{ID: "7b1f2c0e-3a51-4c5e-9d0a-1f6e1b2a0003", Nom: "Tanora Kristiana", Description: null.StringFrom("Sampana tanora")},
	{ID: "7b1f2c0e-3a51-4c5e-9d0a-1f6e1b2a0004", Nom: "Antoko Mpihira", Description: null.StringFrom("Antoko mpihira")},
	{ID: "7b1f2c0e-3a51-4c5e-9d0a-1f6e1b2a0005", Nom: "Fifohazana", Description: null.StringFrom("Mpiandry sy fifohazana")},
}

func Open() *DB {
	return &DB{
		members:       make(map[string]*member.Member),
		sampana:       append([]member.Sampana(nil), Sampana...),
		groups:        make(map[string]*group.Group),
		memberships:   make(map[membershipKey]group.Membership),
		dues:          make(map[string]*dues.Record),
		contributions: make(map[string]*contribution.Contribution),
		roles:         make(map[string]role.Assignment),
		settings:      make(map[string]setting.Setting),
		users:         make(map[string]*user.User),
	}
}

func newID() string { return uuid.NewString() }
