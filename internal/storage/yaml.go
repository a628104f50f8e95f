package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"sitebeep/internal/core/model"
	"gopkg.in/yaml.v3"
)

const stateFileName = "state.yaml"

type yamlState struct {
	IsActive        *bool    `yaml:"is_active,omitempty"`
	URLList         []string `yaml:"url_list"`
	Volume          int      `yaml:"volume,omitempty"`
	DisabledUntil   string   `yaml:"disabled_until,omitempty"`
	LastVersionHash uint32   `yaml:"last_version_hash,omitempty"`
}

// YAMLStore keeps preferences in a single YAML file.
// A missing file reads as the default preferences.
type YAMLStore struct {
	mu     sync.Mutex
	path   string
	closed bool
}

// NewYAMLStore returns a store backed by the file at path.
func NewYAMLStore(path string) *YAMLStore {
	return &YAMLStore{path: path}
}

// CurrentState reads the persisted preferences.
func (store *YAMLStore) CurrentState() (model.Preferences, error) {
	store.mu.Lock()
	defer store.mu.Unlock()
	if store.closed {
		return model.Preferences{}, ErrClosed
	}
	return store.loadLocked()
}

// Update applies mutate and writes the file.
func (store *YAMLStore) Update(mutate func(*model.Preferences)) error {
	store.mu.Lock()
	defer store.mu.Unlock()
	if store.closed {
		return ErrClosed
	}

	prefs, err := store.loadLocked()
	if err != nil {
		return err
	}
	mutate(&prefs)
	return store.saveLocked(prefs)
}

// Close marks the store unusable.
func (store *YAMLStore) Close() error {
	store.mu.Lock()
	store.closed = true
	store.mu.Unlock()
	return nil
}

func (store *YAMLStore) loadLocked() (model.Preferences, error) {
	prefs := model.DefaultPreferences()

	rawData, err := os.ReadFile(store.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return prefs, nil
		}
		return prefs, fmt.Errorf("read state file: %w", err)
	}

	var fileData yamlState
	if err := yaml.Unmarshal(rawData, &fileData); err != nil {
		return prefs, fmt.Errorf("parse state yaml: %w", err)
	}

	if err := applyYAMLState(&prefs, fileData); err != nil {
		return prefs, err
	}
	return prefs, nil
}

func (store *YAMLStore) saveLocked(prefs model.Preferences) error {
	if err := os.MkdirAll(filepath.Dir(store.path), 0o755); err != nil {
		return fmt.Errorf("create state directory: %w", err)
	}

	disabledUntil, err := prefs.Suppression.MarshalText()
	if err != nil {
		return fmt.Errorf("encode suppression: %w", err)
	}
	active := prefs.Active
	fileData := yamlState{
		IsActive:        &active,
		URLList:         prefs.URLList,
		Volume:          prefs.Volume,
		DisabledUntil:   string(disabledUntil),
		LastVersionHash: prefs.LastVersionHash,
	}
	if fileData.URLList == nil {
		fileData.URLList = []string{}
	}

	serialized, err := yaml.Marshal(fileData)
	if err != nil {
		return fmt.Errorf("marshal state yaml: %w", err)
	}

	tmpPath := store.path + ".tmp"
	if err := os.WriteFile(tmpPath, serialized, 0o644); err != nil {
		return fmt.Errorf("write state file: %w", err)
	}
	if err := os.Rename(tmpPath, store.path); err != nil {
		return fmt.Errorf("replace state file: %w", err)
	}
	return nil
}

func applyYAMLState(prefs *model.Preferences, fileData yamlState) error {
	if fileData.IsActive != nil {
		prefs.Active = *fileData.IsActive
	}
	if fileData.URLList != nil {
		prefs.URLList = fileData.URLList
	}
	if model.ValidVolume(fileData.Volume) {
		prefs.Volume = fileData.Volume
	}
	if err := prefs.Suppression.UnmarshalText([]byte(fileData.DisabledUntil)); err != nil {
		return fmt.Errorf("parse disabled_until: %w", err)
	}
	prefs.LastVersionHash = fileData.LastVersionHash
	return nil
}
