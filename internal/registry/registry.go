// Package registry is the single source of truth for connection profiles,
// the active selection, and the summaries cached for it.
package registry

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/peternagy/mongoscope/internal/types"
)

// MaxProfiles bounds the registry history. Adding past the bound evicts
// the oldest non-active profile.
const MaxProfiles = 5

// Registry owns the ordered profile list, the single active selection and
// the database/collection summaries cached for it. Every mutation persists
// the redacted projection through the injected Repository; persistence
// failures are logged and never surfaced to the caller.
type Registry struct {
	mu       sync.RWMutex
	profiles []types.ConnectionProfile
	activeID string

	// Summaries cached for the active profile. Invalidated, never reused,
	// on any active-profile change.
	databases   []types.DatabaseInfo
	collections map[string][]types.CollectionInfo

	repo   Repository
	logger *zap.Logger
	now    func() time.Time
}

// New creates an empty registry backed by the given repository.
func New(repo Repository, logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		collections: make(map[string][]types.CollectionInfo),
		repo:        repo,
		logger:      logger,
		now:         time.Now,
	}
}

// Load rehydrates the registry from the repository. A load failure resets
// to an empty registry rather than failing the session.
func (r *Registry) Load() {
	state, err := r.repo.Load()
	if err != nil || state == nil {
		if err != nil {
			r.logger.Warn("failed to load persisted state, starting empty", zap.Error(err))
		}
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.profiles = append([]types.ConnectionProfile(nil), state.Connections...)
	r.activeID = ""
	if state.ActiveConnection != nil {
		for _, p := range r.profiles {
			if p.ID == state.ActiveConnection.ID {
				r.activeID = p.ID
				break
			}
		}
	}
	for i := range r.profiles {
		r.profiles[i].IsActive = r.profiles[i].ID == r.activeID
	}
}

// Add inserts a profile at the end of the sequence, trims to the
// MaxProfiles most recent entries (oldest non-active first) and marks the
// new profile as active. A missing ID is generated. Returns the stored copy.
func (r *Registry) Add(profile types.ConnectionProfile) types.ConnectionProfile {
	r.mu.Lock()
	defer r.mu.Unlock()

	if profile.ID == "" {
		profile.ID = uuid.New().String()
	}
	profile.IsActive = true

	prevActive := r.activeID
	for i := range r.profiles {
		r.profiles[i].IsActive = false
	}
	r.profiles = append(r.profiles, profile)
	r.activeID = profile.ID

	r.trimLocked(prevActive)
	r.invalidateLocked()
	r.persistLocked()
	return profile
}

// trimLocked evicts oldest profiles past MaxProfiles. The profile that
// held the selection when the insert happened is exempt alongside the
// new active profile.
func (r *Registry) trimLocked(prevActive string) {
	for len(r.profiles) > MaxProfiles {
		evicted := false
		for i, p := range r.profiles {
			if p.ID != r.activeID && p.ID != prevActive {
				r.logger.Info("evicting oldest connection profile",
					zap.String("id", p.ID), zap.String("name", p.Name))
				r.profiles = append(r.profiles[:i], r.profiles[i+1:]...)
				evicted = true
				break
			}
		}
		if !evicted {
			return
		}
	}
}

// Remove deletes the profile with the given id. Removing the active
// profile clears the selection and the cached summaries. Unknown ids are
// a silent no-op.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, p := range r.profiles {
		if p.ID != id {
			continue
		}
		r.profiles = append(r.profiles[:i], r.profiles[i+1:]...)
		if r.activeID == id {
			r.activeID = ""
			r.invalidateLocked()
		}
		r.persistLocked()
		return
	}
}

// SetActive changes the active selection. Activating a known id forces
// its status to connected (the caller has already validated connectivity)
// and clears the cached summaries so they are re-fetched. An empty or
// unknown id clears the selection.
func (r *Registry) SetActive(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	found := -1
	if id != "" {
		for i, p := range r.profiles {
			if p.ID == id {
				found = i
				break
			}
		}
	}

	if found < 0 {
		r.activeID = ""
		for i := range r.profiles {
			r.profiles[i].IsActive = false
		}
	} else {
		r.activeID = id
		for i := range r.profiles {
			r.profiles[i].IsActive = i == found
		}
		r.applyStatusLocked(&r.profiles[found], types.StatusConnected, "")
	}

	r.invalidateLocked()
	r.persistLocked()
}

// UpdateStatus transitions a profile's status. Entering connected stamps
// lastConnected; the error message is kept only for the error status.
// Unknown ids are a silent no-op.
func (r *Registry) UpdateStatus(id string, status types.ProfileStatus, errMsg string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := range r.profiles {
		if r.profiles[i].ID == id {
			r.applyStatusLocked(&r.profiles[i], status, errMsg)
			r.persistLocked()
			return
		}
	}
}

func (r *Registry) applyStatusLocked(p *types.ConnectionProfile, status types.ProfileStatus, errMsg string) {
	p.Status = status
	if status == types.StatusError {
		p.Error = errMsg
	} else {
		p.Error = ""
	}
	if status == types.StatusConnected {
		t := r.now()
		p.LastConnected = &t
	}
}

// Edit merges the non-nil fields of the update into the matching profile.
// Unknown ids are a silent no-op.
func (r *Registry) Edit(id string, update types.ProfileUpdate) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := range r.profiles {
		if r.profiles[i].ID != id {
			continue
		}
		if update.Name != nil {
			r.profiles[i].Name = *update.Name
		}
		if update.URI != nil {
			r.profiles[i].URI = *update.URI
		}
		if update.Params != nil {
			r.profiles[i].Params = update.Params
		}
		r.persistLocked()
		return
	}
}

// List returns a copy of all profiles in insertion order.
func (r *Registry) List() []types.ConnectionProfile {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]types.ConnectionProfile, len(r.profiles))
	copy(out, r.profiles)
	return out
}

// Get returns the profile with the given id.
func (r *Registry) Get(id string) (types.ConnectionProfile, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, p := range r.profiles {
		if p.ID == id {
			return p, true
		}
	}
	return types.ConnectionProfile{}, false
}

// Active returns the active profile, if any.
func (r *Registry) Active() (types.ConnectionProfile, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.activeID == "" {
		return types.ConnectionProfile{}, false
	}
	for _, p := range r.profiles {
		if p.ID == r.activeID {
			return p, true
		}
	}
	return types.ConnectionProfile{}, false
}

// =============================================================================
// Summaries cache
// =============================================================================

// Databases returns the cached database summaries for the active profile.
func (r *Registry) Databases() []types.DatabaseInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]types.DatabaseInfo, len(r.databases))
	copy(out, r.databases)
	return out
}

// SetDatabases caches database summaries fetched for the given URI. The
// update is discarded when the URI no longer matches the active profile,
// so a stale in-flight fetch cannot poison the cache of a newer selection.
func (r *Registry) SetDatabases(uri string, databases []types.DatabaseInfo) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.uriMatchesActiveLocked(uri) {
		r.logger.Debug("discarding stale database summaries", zap.String("uri", uri))
		return false
	}
	r.databases = append([]types.DatabaseInfo(nil), databases...)
	return true
}

// Collections returns the cached collection summaries for a database.
func (r *Registry) Collections(dbName string) ([]types.CollectionInfo, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	colls, ok := r.collections[dbName]
	if !ok {
		return nil, false
	}
	out := make([]types.CollectionInfo, len(colls))
	copy(out, colls)
	return out, true
}

// SetCollections caches collection summaries fetched for the given URI
// and database. Stale fetches (URI no longer active) are discarded.
func (r *Registry) SetCollections(uri, dbName string, collections []types.CollectionInfo) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.uriMatchesActiveLocked(uri) {
		r.logger.Debug("discarding stale collection summaries",
			zap.String("uri", uri), zap.String("database", dbName))
		return false
	}
	r.collections[dbName] = append([]types.CollectionInfo(nil), collections...)
	return true
}

func (r *Registry) uriMatchesActiveLocked(uri string) bool {
	if r.activeID == "" {
		return false
	}
	for _, p := range r.profiles {
		if p.ID == r.activeID {
			return p.URI == uri
		}
	}
	return false
}

func (r *Registry) invalidateLocked() {
	r.databases = nil
	r.collections = make(map[string][]types.CollectionInfo)
}

// =============================================================================
// Persistence
// =============================================================================

// persistLocked writes the current projection through the repository.
// Failures degrade to a log line; in-memory state is already committed.
func (r *Registry) persistLocked() {
	state := &types.PersistedState{
		Version:     types.StateVersion,
		Connections: make([]types.ConnectionProfile, len(r.profiles)),
	}
	copy(state.Connections, r.profiles)
	for _, p := range state.Connections {
		if p.ID == r.activeID {
			active := p
			state.ActiveConnection = &active
			break
		}
	}

	if err := r.repo.Save(state); err != nil {
		r.logger.Warn("failed to persist connection registry", zap.Error(err))
	}
}
