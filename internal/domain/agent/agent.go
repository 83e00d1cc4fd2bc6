// Package agent defines the core domain entities for city citizens.
// This package is PURE and must NOT import any infrastructure packages
// (network, events, platform).
package agent

// Role is the closed set of citizen occupations.
type Role string

const (
	RoleBuilder     Role = "builder"
	RoleExplorer    Role = "explorer"
	RoleMerchant    Role = "merchant"
	RolePolice      Role = "police"
	RoleTeacher     Role = "teacher"
	RoleHealer      Role = "healer"
	RoleMessenger   Role = "messenger"
	RoleLawyer      Role = "lawyer"
	RoleThief       Role = "thief"
	RoleNewborn     Role = "newborn"
	RoleGangLeader  Role = "gang_leader"
	RoleBlackmailer Role = "blackmailer"
	RoleSaboteur    Role = "saboteur"
)

// AllRoles lists every valid role.
var AllRoles = []Role{
	RoleBuilder, RoleExplorer, RoleMerchant, RolePolice, RoleTeacher,
	RoleHealer, RoleMessenger, RoleLawyer, RoleThief, RoleNewborn,
	RoleGangLeader, RoleBlackmailer, RoleSaboteur,
}

// Valid reports whether r is one of the closed role set.
func (r Role) Valid() bool {
	for _, known := range AllRoles {
		if r == known {
			return true
		}
	}
	return false
}

// Criminal reports whether the role earns through crime.
func (r Role) Criminal() bool {
	switch r {
	case RoleThief, RoleGangLeader, RoleBlackmailer, RoleSaboteur:
		return true
	}
	return false
}

// Status is the citizen lifecycle state. Dead is terminal.
type Status string

const (
	StatusAlive      Status = "alive"
	StatusImprisoned Status = "imprisoned"
	StatusDead       Status = "dead"
)

// Capabilities describes what a role can do, replacing string-matched
// role dispatch. EarnMin/EarnMax bound the ordinary daily earn roll.
type Capabilities struct {
	Actions       []string
	DefaultAction string
	EarnMin       int64
	EarnMax       int64
	// Roles whose participation a handler may require (e.g. a healer for
	// hospital work). Informational for prompt building.
	Collaborators []Role
}

var roleCapabilities = map[Role]Capabilities{
	RoleBuilder:     {Actions: []string{"work", "work_overtime", "start_project", "work_on_project"}, DefaultAction: "work", EarnMin: 50, EarnMax: 180, Collaborators: []Role{RoleMerchant, RoleTeacher, RoleExplorer}},
	RoleExplorer:    {Actions: []string{"explore", "explore_deep", "share_discovery"}, DefaultAction: "explore", EarnMin: 60, EarnMax: 200},
	RoleMerchant:    {Actions: []string{"trade", "negotiate", "run_stall"}, DefaultAction: "trade", EarnMin: 40, EarnMax: 160, Collaborators: []Role{RoleBuilder}},
	RolePolice:      {Actions: []string{"patrol", "investigate", "arrest", "accept_bribe"}, DefaultAction: "patrol", EarnMin: 60, EarnMax: 150},
	RoleTeacher:     {Actions: []string{"teach", "mentor", "work_on_project"}, DefaultAction: "teach", EarnMin: 40, EarnMax: 120, Collaborators: []Role{RoleNewborn}},
	RoleHealer:      {Actions: []string{"heal", "tend_clinic", "work_on_project"}, DefaultAction: "heal", EarnMin: 40, EarnMax: 120, Collaborators: []Role{RoleBuilder}},
	RoleMessenger:   {Actions: []string{"deliver", "write_paper", "work_on_project"}, DefaultAction: "deliver", EarnMin: 30, EarnMax: 100, Collaborators: []Role{RoleBuilder}},
	RoleLawyer:      {Actions: []string{"consult", "defend"}, DefaultAction: "consult", EarnMin: 0, EarnMax: 40},
	RoleThief:       {Actions: []string{"lurk", "steal", "bribe"}, DefaultAction: "lurk", EarnMin: 0, EarnMax: 80},
	RoleNewborn:     {Actions: []string{"learn", "observe", "ask"}, DefaultAction: "learn", EarnMin: 0, EarnMax: 50, Collaborators: []Role{RoleTeacher}},
	RoleGangLeader:  {Actions: []string{"lurk", "recruit", "coordinate", "steal", "bribe"}, DefaultAction: "lurk", EarnMin: 0, EarnMax: 80},
	RoleBlackmailer: {Actions: []string{"lurk", "blackmail", "bribe"}, DefaultAction: "lurk", EarnMin: 0, EarnMax: 60},
	RoleSaboteur:    {Actions: []string{"lurk", "destroy_asset"}, DefaultAction: "lurk", EarnMin: 0, EarnMax: 60},
}

// CapabilitiesFor returns the capability descriptor for a role.
// Unknown roles get a minimal lurker profile rather than a panic.
func CapabilitiesFor(r Role) Capabilities {
	if c, ok := roleCapabilities[r]; ok {
		return c
	}
	return Capabilities{Actions: []string{"work"}, DefaultAction: "work", EarnMin: 30, EarnMax: 100}
}

// GraduationRoles is the allow-list a newborn may graduate into.
var GraduationRoles = []Role{
	RoleBuilder, RoleExplorer, RoleMerchant, RoleTeacher, RoleHealer,
	RoleMessenger, RolePolice, RoleThief, RoleLawyer, RoleBlackmailer,
	RoleSaboteur,
}

// Agent represents one citizen of the city.
type Agent struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Role   Role   `json:"role"`
	Status Status `json:"status"`

	Tokens  int64   `json:"tokens"`
	AgeDays int     `json:"age_days"`
	Mood    float64 `json:"mood"` // [-1, +1]

	// BribeSusceptibility is police-only and never externally observable:
	// it conditions reasoning prompts and nothing else. It is persisted but
	// excluded from every broadcast and query payload.
	BribeSusceptibility float64 `json:"-"`

	// Newborn-only fields.
	ComprehensionScore int    `json:"comprehension_score,omitempty"`
	AssignedTeacher    string `json:"assigned_teacher,omitempty"`

	// World placement (optional).
	HomeLot string  `json:"home_lot,omitempty"`
	PosX    float64 `json:"pos_x"`
	PosY    float64 `json:"pos_y"`

	CauseOfDeath string `json:"cause_of_death,omitempty"`
}

// Alive reports whether the agent participates in daily turns.
func (a *Agent) Alive() bool {
	return a.Status == StatusAlive
}

// Kill marks the agent dead. Dead is terminal: callers must zero the ledger
// balance separately so that status=dead implies balance=0.
func (a *Agent) Kill(cause string) {
	if a.Status == StatusDead {
		return
	}
	a.Status = StatusDead
	a.CauseOfDeath = cause
}
