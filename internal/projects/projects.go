// Package projects manages joint construction projects and the standing
// assets they become: daily contributions, partial-crew progress,
// abandonment, completion, benefits, and sabotage.
package projects

import (
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/aicity-project/aicity/internal/domain/agent"
	"github.com/aicity-project/aicity/internal/platform/logger"
)

// AssetType names what a completed project becomes.
type AssetType string

const (
	AssetMarket     AssetType = "market"
	AssetWatchtower AssetType = "watchtower"
	AssetHospital   AssetType = "hospital"
	AssetSchool     AssetType = "school"
	AssetRoad       AssetType = "road"
	AssetArchive    AssetType = "archive"
)

// Spec fixes what a project of one type takes to build.
type Spec struct {
	GoalDays         float64    // progress needed for completion
	RequiredBuilders int        // builders needed on one day for full progress
	RequiredRole     agent.Role // extra role that must also contribute, if any
}

// Specs is the catalog of buildable asset types.
var Specs = map[AssetType]Spec{
	AssetMarket:     {GoalDays: 3, RequiredBuilders: 1},
	AssetWatchtower: {GoalDays: 4, RequiredBuilders: 2},
	AssetHospital:   {GoalDays: 5, RequiredBuilders: 1, RequiredRole: agent.RoleHealer},
	AssetSchool:     {GoalDays: 4, RequiredBuilders: 2},
	AssetRoad:       {GoalDays: 2, RequiredBuilders: 1},
	AssetArchive:    {GoalDays: 3, RequiredBuilders: 1, RequiredRole: agent.RoleMessenger},
}

// Benefit is a role-scoped daily grant applied while an asset stands.
type Benefit struct {
	Role   agent.Role
	Amount int64
	Split  bool // amount is divided among everyone with the role
}

// benefits lists each asset's daily effect. The watchtower also raises the
// police arrest probability and the school doubles comprehension gain;
// those two are read through HasStanding by their subsystems.
var benefits = map[AssetType]Benefit{
	AssetMarket:     {Role: agent.RoleMerchant, Amount: 50, Split: true},
	AssetWatchtower: {Role: agent.RolePolice, Amount: 30},
	AssetHospital:   {Role: agent.RoleHealer, Amount: 40},
	AssetSchool:     {Role: agent.RoleTeacher, Amount: 30},
	AssetRoad:       {Role: agent.RoleExplorer, Amount: 25},
}

// Status of a project.
type Status string

const (
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusAbandoned Status = "abandoned"
)

var (
	ErrUnknownAssetType = errors.New("projects: unknown asset type")
	ErrNotActive        = errors.New("projects: project is not active")
	ErrNotFound         = errors.New("projects: not found")
)

// Project is one construction effort.
type Project struct {
	ID         string    `json:"id"`
	Type       AssetType `json:"type"`
	Proposer   string    `json:"proposer"`
	Status     Status    `json:"status"`
	Progress   float64   `json:"progress"`
	Goal       float64   `json:"goal"`
	StartedDay int       `json:"started_day"`
	IdleDays   int       `json:"idle_days"`
	// ContributedDays counts full days each participant worked the site.
	ContributedDays map[string]int `json:"contributed_days"`

	todayBuilders map[string]bool
	todayRoles    map[agent.Role]bool
}

// Asset is a standing structure produced by a completed project.
type Asset struct {
	ID           string    `json:"id"`
	Type         AssetType `json:"type"`
	BuiltDay     int       `json:"built_day"`
	Builders     []string  `json:"builders"`
	Destroyed    bool      `json:"destroyed"`
	DestroyedDay int       `json:"destroyed_day,omitempty"`
}

// Completion reports a project that finished during FinishDay.
type Completion struct {
	Project Project
	Asset   Asset
}

// Registry holds all projects and assets behind one mutex.
type Registry struct {
	mu          sync.Mutex
	projects    map[string]*Project
	assets      map[string]*Asset
	abandonDays int
	logger      *logger.Logger
}

func NewRegistry(abandonDays int, log *logger.Logger) *Registry {
	return &Registry{
		projects:    make(map[string]*Project),
		assets:      make(map[string]*Asset),
		abandonDays: abandonDays,
		logger:      log,
	}
}

// Start opens a new project. Only one active project per asset type at a
// time, and no duplicate of a standing asset.
func (r *Registry) Start(day int, proposer string, t AssetType) (string, error) {
	spec, ok := Specs[t]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownAssetType, t)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.projects {
		if p.Type == t && p.Status == StatusActive {
			return "", fmt.Errorf("projects: a %s is already under construction", t)
		}
	}
	if r.standingLocked(t) {
		return "", fmt.Errorf("projects: the city already has a %s", t)
	}
	p := &Project{
		ID: uuid.NewString(), Type: t, Proposer: proposer,
		Status: StatusActive, Goal: spec.GoalDays, StartedDay: day,
		ContributedDays: make(map[string]int),
		todayBuilders:   make(map[string]bool),
		todayRoles:      make(map[agent.Role]bool),
	}
	r.projects[p.ID] = p
	r.logger.Event("project_started", proposer, string(t))
	return p.ID, nil
}

// ActiveByType finds the active project of one type, if any.
func (r *Registry) ActiveByType(t AssetType) (Project, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.projects {
		if p.Type == t && p.Status == StatusActive {
			return snapshotProject(p), true
		}
	}
	return Project{}, false
}

// Contribute records one agent working the project today.
func (r *Registry) Contribute(projectID, name string, role agent.Role) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.projects[projectID]
	if !ok {
		return ErrNotFound
	}
	if p.Status != StatusActive {
		return ErrNotActive
	}
	if role == agent.RoleBuilder {
		p.todayBuilders[name] = true
	}
	p.todayRoles[role] = true
	p.ContributedDays[name]++
	return nil
}

// FinishDay settles every active project for the day: full progress when
// the crew requirement was met, half when anyone showed up, abandonment
// after enough idle days, and completion into a standing asset.
func (r *Registry) FinishDay(day int) (completed []Completion, abandoned []Project) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.projects {
		if p.Status != StatusActive {
			continue
		}
		spec := Specs[p.Type]
		anyContribution := len(p.todayRoles) > 0
		fullCrew := len(p.todayBuilders) >= spec.RequiredBuilders &&
			(spec.RequiredRole == "" || p.todayRoles[spec.RequiredRole])

		switch {
		case fullCrew:
			p.Progress += 1.0
			p.IdleDays = 0
		case anyContribution:
			p.Progress += 0.5
			p.IdleDays = 0
		default:
			p.IdleDays++
		}
		p.todayBuilders = make(map[string]bool)
		p.todayRoles = make(map[agent.Role]bool)

		if p.Progress >= p.Goal {
			p.Status = StatusCompleted
			a := &Asset{ID: uuid.NewString(), Type: p.Type, BuiltDay: day, Builders: buildersOf(p)}
			r.assets[a.ID] = a
			completed = append(completed, Completion{Project: snapshotProject(p), Asset: *a})
			r.logger.Event("asset_built", p.Proposer, string(p.Type))
			continue
		}
		if p.IdleDays >= r.abandonDays {
			p.Status = StatusAbandoned
			abandoned = append(abandoned, snapshotProject(p))
			r.logger.Event("project_abandoned", p.Proposer, string(p.Type))
		}
	}
	return completed, abandoned
}

// buildersOf lists everyone who contributed at least one full day.
func buildersOf(p *Project) []string {
	var out []string
	for name, days := range p.ContributedDays {
		if days >= 1 {
			out = append(out, name)
		}
	}
	return out
}

// Destroy marks a standing asset destroyed. Its benefits stop immediately.
func (r *Registry) Destroy(day int, assetID string) (Asset, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.assets[assetID]
	if !ok || a.Destroyed {
		return Asset{}, ErrNotFound
	}
	a.Destroyed = true
	a.DestroyedDay = day
	r.logger.Event("asset_destroyed", "", string(a.Type))
	return *a, nil
}

// HasStanding reports whether an undestroyed asset of the type exists.
// Subsystems use this for the watchtower arrest bonus, the school's
// doubled comprehension, and the archive's narrator flag.
func (r *Registry) HasStanding(t AssetType) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.standingLocked(t)
}

func (r *Registry) standingLocked(t AssetType) bool {
	for _, a := range r.assets {
		if a.Type == t && !a.Destroyed {
			return true
		}
	}
	return false
}

// StandingBenefits returns the daily grants of every standing asset.
func (r *Registry) StandingBenefits() []Benefit {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Benefit
	for _, a := range r.assets {
		if a.Destroyed {
			continue
		}
		if b, ok := benefits[a.Type]; ok {
			out = append(out, b)
		}
	}
	return out
}

// StandingAssets returns all undestroyed assets.
func (r *Registry) StandingAssets() []Asset {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Asset
	for _, a := range r.assets {
		if !a.Destroyed {
			out = append(out, *a)
		}
	}
	return out
}

// Projects returns all projects for persistence and context building.
func (r *Registry) Projects() []Project {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Project, 0, len(r.projects))
	for _, p := range r.projects {
		out = append(out, snapshotProject(p))
	}
	return out
}

// Assets returns all assets, destroyed included, for persistence.
func (r *Registry) Assets() []Asset {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Asset, 0, len(r.assets))
	for _, a := range r.assets {
		out = append(out, *a)
	}
	return out
}

// Restore loads persisted projects and assets.
func (r *Registry) Restore(projects []Project, assets []Asset) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.projects = make(map[string]*Project, len(projects))
	for _, p := range projects {
		cp := p
		if cp.ContributedDays == nil {
			cp.ContributedDays = make(map[string]int)
		}
		cp.todayBuilders = make(map[string]bool)
		cp.todayRoles = make(map[agent.Role]bool)
		r.projects[cp.ID] = &cp
	}
	r.assets = make(map[string]*Asset, len(assets))
	for _, a := range assets {
		ca := a
		r.assets[ca.ID] = &ca
	}
}

func snapshotProject(p *Project) Project {
	cp := *p
	cp.ContributedDays = make(map[string]int, len(p.ContributedDays))
	for k, v := range p.ContributedDays {
		cp.ContributedDays[k] = v
	}
	cp.todayBuilders = nil
	cp.todayRoles = nil
	return cp
}
