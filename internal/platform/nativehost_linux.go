//go:build linux

package platform

import (
	"fmt"
	"path/filepath"
)

func (service *platformService) InstallHostManifest(manifest HostManifest) ([]string, error) {
	dirs, err := service.manifestDirs()
	if err != nil {
		return nil, fmt.Errorf("install native host: %w", err)
	}
	return installInto(dirs, manifest)
}

func (service *platformService) UninstallHostManifest(name string) error {
	if !hostNamePattern.MatchString(name) {
		return fmt.Errorf("uninstall native host %q: %w", name, ErrInvalidHostName)
	}
	dirs, err := service.manifestDirs()
	if err != nil {
		return fmt.Errorf("uninstall native host: %w", err)
	}
	return removeFrom(dirs, name)
}

func (service *platformService) manifestDirs() ([]string, error) {
	configDir, err := service.GetConfigDir()
	if err != nil {
		return nil, err
	}
	return []string{
		filepath.Join(configDir, "google-chrome", "NativeMessagingHosts"),
		filepath.Join(configDir, "chromium", "NativeMessagingHosts"),
	}, nil
}

func fallbackConfigDir(homeDir string) string {
	return filepath.Join(homeDir, ".config")
}
