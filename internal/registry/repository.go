package registry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/peternagy/mongoscope/internal/credential"
	"github.com/peternagy/mongoscope/internal/types"
)

// Repository loads and saves the persisted registry projection.
type Repository interface {
	Load() (*types.PersistedState, error)
	Save(state *types.PersistedState) error
}

// InitConfigDir sets up the config directory. The path comes back even
// on failure so callers can name it in their error.
func InitConfigDir() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		configDir = os.Getenv("HOME")
	}
	dir := filepath.Join(configDir, "mongoscope")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return dir, fmt.Errorf("failed to create config dir: %w", err)
	}
	return dir, nil
}

// FileRepository persists the registry as a versioned JSON file. URI
// passwords are moved to the vault on save and restored on load, so the
// file on disk never carries credentials.
type FileRepository struct {
	path   string
	vault  credential.Vault
	logger *zap.Logger
}

// NewFileRepository creates a repository writing to dir/connections.json.
func NewFileRepository(dir string, vault credential.Vault, logger *zap.Logger) *FileRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FileRepository{
		path:   filepath.Join(dir, "connections.json"),
		vault:  vault,
		logger: logger,
	}
}

// Load reads the persisted state. A missing file, unreadable JSON or a
// version mismatch all yield an empty state; there is no migration.
func (r *FileRepository) Load() (*types.PersistedState, error) {
	data, err := os.ReadFile(r.path)
	if err != nil {
		if os.IsNotExist(err) {
			return emptyState(), nil
		}
		return nil, err
	}

	var state types.PersistedState
	if err := json.Unmarshal(data, &state); err != nil {
		r.logger.Warn("persisted state is corrupt, resetting", zap.Error(err))
		return emptyState(), nil
	}
	if state.Version != types.StateVersion {
		r.logger.Warn("persisted state version mismatch, resetting",
			zap.Int("found", state.Version), zap.Int("want", types.StateVersion))
		return emptyState(), nil
	}

	for i := range state.Connections {
		state.Connections[i].URI = r.restoreURI(state.Connections[i].ID, state.Connections[i].URI)
	}
	if state.ActiveConnection != nil {
		state.ActiveConnection.URI = r.restoreURI(state.ActiveConnection.ID, state.ActiveConnection.URI)
	}

	return &state, nil
}

func (r *FileRepository) restoreURI(profileID, uri string) string {
	password, err := r.vault.GetPassword(profileID)
	if err != nil {
		r.logger.Warn("failed to read password from vault", zap.String("id", profileID), zap.Error(err))
		return uri
	}
	return credential.RestoreURI(uri, password)
}

// Save writes the redacted projection to disk. Vault failures degrade to
// keeping the full URI in the file so the profile stays usable.
func (r *FileRepository) Save(state *types.PersistedState) error {
	redacted := types.PersistedState{
		Version:     state.Version,
		Connections: make([]types.ConnectionProfile, len(state.Connections)),
	}
	copy(redacted.Connections, state.Connections)

	for i := range redacted.Connections {
		redacted.Connections[i].URI = r.redactURI(redacted.Connections[i].ID, redacted.Connections[i].URI)
	}
	if state.ActiveConnection != nil {
		active := *state.ActiveConnection
		active.URI = r.redactURI(active.ID, active.URI)
		redacted.ActiveConnection = &active
	}

	data, err := json.MarshalIndent(&redacted, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(r.path, data, 0600)
}

func (r *FileRepository) redactURI(profileID, uri string) string {
	clean, password := credential.RedactURI(uri)
	if password == "" {
		return uri
	}
	if err := r.vault.SetPassword(profileID, password); err != nil {
		r.logger.Warn("failed to store password in vault, keeping it in the state file",
			zap.String("id", profileID), zap.Error(err))
		return uri
	}
	return clean
}

func emptyState() *types.PersistedState {
	return &types.PersistedState{Version: types.StateVersion}
}

// MemoryRepository is an in-memory repository for tests.
type MemoryRepository struct {
	state *types.PersistedState

	// SaveCount tracks how many times Save was called.
	SaveCount int
}

// NewMemoryRepository creates an empty in-memory repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{}
}

func (r *MemoryRepository) Load() (*types.PersistedState, error) {
	if r.state == nil {
		return emptyState(), nil
	}
	return r.state, nil
}

func (r *MemoryRepository) Save(state *types.PersistedState) error {
	copied := *state
	r.state = &copied
	r.SaveCount++
	return nil
}

// Seed replaces the stored state, bypassing redaction. Test helper.
func (r *MemoryRepository) Seed(state *types.PersistedState) {
	r.state = state
}
