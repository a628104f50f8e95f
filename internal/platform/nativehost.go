package platform

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/goccy/go-json"
)

// ErrInvalidHostName is returned for names the browser would reject.
var ErrInvalidHostName = errors.New("native host name must be lowercase alphanumerics, dots and underscores")

var hostNamePattern = regexp.MustCompile(`^[a-z0-9_]+(\.[a-z0-9_]+)*$`)

// HostManifest is the file the browser reads to launch a native messaging host.
type HostManifest struct {
	Name           string   `json:"name"`
	Description    string   `json:"description"`
	Path           string   `json:"path"`
	Type           string   `json:"type"`
	AllowedOrigins []string `json:"allowed_origins"`
}

// NewHostManifest builds a stdio manifest allowing the given extension ids.
func NewHostManifest(name, execPath string, extensionIDs []string) (HostManifest, error) {
	if !hostNamePattern.MatchString(name) {
		return HostManifest{}, fmt.Errorf("%q: %w", name, ErrInvalidHostName)
	}
	if execPath == "" {
		return HostManifest{}, fmt.Errorf("native host %s: exec path is empty", name)
	}
	if !filepath.IsAbs(execPath) {
		return HostManifest{}, fmt.Errorf("native host %s: exec path %q is not absolute", name, execPath)
	}
	if len(extensionIDs) == 0 {
		return HostManifest{}, fmt.Errorf("native host %s: no extension ids", name)
	}

	origins := make([]string, 0, len(extensionIDs))
	for _, id := range extensionIDs {
		origins = append(origins, "chrome-extension://"+id+"/")
	}
	return HostManifest{
		Name:           name,
		Description:    "sitebeep reminder host",
		Path:           execPath,
		Type:           "stdio",
		AllowedOrigins: origins,
	}, nil
}

// Service defines OS-specific helpers needed by the application.
type Service interface {
	GetConfigDir() (string, error)
	InstallHostManifest(manifest HostManifest) ([]string, error)
	UninstallHostManifest(name string) error
}

type platformService struct{}

// NewService returns a platform-specific implementation.
func NewService() Service {
	return &platformService{}
}

// GetConfigDir returns the OS-standard configuration directory.
func (service *platformService) GetConfigDir() (string, error) {
	configDir, err := os.UserConfigDir()
	if err == nil && configDir != "" {
		return configDir, nil
	}

	homeDir, homeErr := os.UserHomeDir()
	if homeErr != nil {
		if err != nil {
			return "", fmt.Errorf("get config dir: %w", err)
		}
		return "", fmt.Errorf("get config dir: %w", homeErr)
	}

	return fallbackConfigDir(homeDir), nil
}

func writeManifest(dir string, manifest HostManifest) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("install native host: create %s: %w", dir, err)
	}
	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return "", fmt.Errorf("install native host: encode manifest: %w", err)
	}
	path := filepath.Join(dir, manifest.Name+".json")
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return "", fmt.Errorf("install native host: write manifest: %w", err)
	}
	return path, nil
}

func removeManifest(dir, name string) error {
	path := filepath.Join(dir, name+".json")
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("uninstall native host: remove %s: %w", path, err)
	}
	return nil
}

func installInto(dirs []string, manifest HostManifest) ([]string, error) {
	written := make([]string, 0, len(dirs))
	for _, dir := range dirs {
		path, err := writeManifest(dir, manifest)
		if err != nil {
			return written, err
		}
		written = append(written, path)
	}
	return written, nil
}

func removeFrom(dirs []string, name string) error {
	var errs []error
	for _, dir := range dirs {
		errs = append(errs, removeManifest(dir, name))
	}
	return errors.Join(errs...)
}
