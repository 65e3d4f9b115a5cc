// Package profile persists operator profiles: which carriers a profile
// renews and the last worklist it ran. The store is a single JSON file,
// schema-validated on load so a hand-edited file fails loudly instead of
// feeding a half-empty carrier set into a live batch.
package profile

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/xeipuuv/gojsonschema"
)

const storeSchema = `{
	"type": "object",
	"required": ["last_profile", "profiles"],
	"properties": {
		"last_profile": {"type": "string", "minLength": 1},
		"profiles": {
			"type": "object",
			"minProperties": 1,
			"additionalProperties": {
				"type": "object",
				"required": ["carriers"],
				"properties": {
					"carriers": {
						"type": "array",
						"items": {"type": "string", "minLength": 1},
						"minItems": 1
					},
					"last_file_path": {"type": "string"}
				}
			}
		}
	}
}`

// Profile is one operator's carrier selection and list path.
type Profile struct {
	Carriers     []string `json:"carriers"`
	LastFilePath string   `json:"last_file_path,omitempty"`
}

// Store is the persisted profile file.
type Store struct {
	LastProfile string             `json:"last_profile"`
	Profiles    map[string]Profile `json:"profiles"`

	path string
}

// DefaultStore seeds a fresh file with every carrier enabled.
func DefaultStore(path string, carriers []string) *Store {
	return &Store{
		LastProfile: "default",
		Profiles: map[string]Profile{
			"default": {Carriers: append([]string(nil), carriers...)},
		},
		path: path,
	}
}

// Load reads and validates the profile file. A missing file is not an error;
// the caller decides whether to seed defaults.
func Load(path string) (*Store, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read profile store: %w", err)
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(storeSchema),
		gojsonschema.NewBytesLoader(raw),
	)
	if err != nil {
		return nil, fmt.Errorf("validate profile store: %w", err)
	}
	if !result.Valid() {
		return nil, fmt.Errorf("profile store %s invalid: %v", path, result.Errors())
	}

	var store Store
	if err := json.Unmarshal(raw, &store); err != nil {
		return nil, fmt.Errorf("decode profile store: %w", err)
	}
	store.path = path
	return &store, nil
}

// Save writes the store back to its file.
func (s *Store) Save() error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, data, 0o644)
}

// Active returns the last-used profile, falling back to any profile when the
// recorded name is gone.
func (s *Store) Active() (string, Profile) {
	if p, ok := s.Profiles[s.LastProfile]; ok {
		return s.LastProfile, p
	}
	for name, p := range s.Profiles {
		return name, p
	}
	return "", Profile{}
}

// Select switches the active profile and records the list path it ran.
func (s *Store) Select(name, listPath string) error {
	p, ok := s.Profiles[name]
	if !ok {
		return fmt.Errorf("unknown profile %q", name)
	}
	if listPath != "" {
		p.LastFilePath = listPath
		s.Profiles[name] = p
	}
	s.LastProfile = name
	return nil
}
