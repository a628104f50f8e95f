//go:build darwin

package platform

import (
	"fmt"
	"os"
	"path/filepath"
)

func (service *platformService) InstallHostManifest(manifest HostManifest) ([]string, error) {
	dirs, err := manifestDirs()
	if err != nil {
		return nil, fmt.Errorf("install native host: %w", err)
	}
	return installInto(dirs, manifest)
}

func (service *platformService) UninstallHostManifest(name string) error {
	if !hostNamePattern.MatchString(name) {
		return fmt.Errorf("uninstall native host %q: %w", name, ErrInvalidHostName)
	}
	dirs, err := manifestDirs()
	if err != nil {
		return fmt.Errorf("uninstall native host: %w", err)
	}
	return removeFrom(dirs, name)
}

func manifestDirs() ([]string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("get home dir: %w", err)
	}
	support := filepath.Join(homeDir, "Library", "Application Support")
	return []string{
		filepath.Join(support, "Google", "Chrome", "NativeMessagingHosts"),
		filepath.Join(support, "Chromium", "NativeMessagingHosts"),
	}, nil
}

func fallbackConfigDir(homeDir string) string {
	return filepath.Join(homeDir, "Library", "Application Support")
}
