//go:build windows

package platform

import (
	"fmt"
	"path/filepath"

	"golang.org/x/sys/windows/registry"
)

const nativeHostsKey = `Software\Google\Chrome\NativeMessagingHosts`

// On Windows the manifest lives in the config dir and the browser finds it
// through a per-user registry key whose default value is the manifest path.
func (service *platformService) InstallHostManifest(manifest HostManifest) ([]string, error) {
	dir, err := service.manifestDir()
	if err != nil {
		return nil, fmt.Errorf("install native host: %w", err)
	}
	path, err := writeManifest(dir, manifest)
	if err != nil {
		return nil, err
	}

	key, _, err := registry.CreateKey(registry.CURRENT_USER, nativeHostsKey+`\`+manifest.Name, registry.SET_VALUE)
	if err != nil {
		return []string{path}, fmt.Errorf("install native host: create registry key: %w", err)
	}
	defer key.Close()
	if err := key.SetStringValue("", path); err != nil {
		return []string{path}, fmt.Errorf("install native host: set registry value: %w", err)
	}

	return []string{path}, nil
}

func (service *platformService) UninstallHostManifest(name string) error {
	if !hostNamePattern.MatchString(name) {
		return fmt.Errorf("uninstall native host %q: %w", name, ErrInvalidHostName)
	}
	if err := registry.DeleteKey(registry.CURRENT_USER, nativeHostsKey+`\`+name); err != nil && err != registry.ErrNotExist {
		return fmt.Errorf("uninstall native host: delete registry key: %w", err)
	}
	dir, err := service.manifestDir()
	if err != nil {
		return fmt.Errorf("uninstall native host: %w", err)
	}
	return removeManifest(dir, name)
}

func (service *platformService) manifestDir() (string, error) {
	configDir, err := service.GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "sitebeep", "NativeMessagingHosts"), nil
}

func fallbackConfigDir(homeDir string) string {
	return filepath.Join(homeDir, "AppData", "Roaming")
}
