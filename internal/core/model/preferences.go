package model

import "slices"

const (
	// MinVolume and MaxVolume bound the cue gain multiplier.
	MinVolume = 1
	MaxVolume = 100

	// DefaultVolume is used until the user picks one.
	DefaultVolume = 20
)

// Preferences is the persisted state shared by the host and the extension popup.
type Preferences struct {
	Active          bool
	URLList         []string
	Volume          int
	Suppression     Suppression
	LastVersionHash uint32
}

// DefaultPreferences returns the state of a fresh install.
func DefaultPreferences() Preferences {
	return Preferences{
		Active:      true,
		URLList:     []string{},
		Volume:      DefaultVolume,
		Suppression: NoSuppression(),
	}
}

// Allows reports whether site is on the allow-list.
func (prefs Preferences) Allows(site string) bool {
	if site == "" {
		return false
	}
	return slices.Contains(prefs.URLList, site)
}

// Clone returns a copy that does not share the allow-list backing array.
func (prefs Preferences) Clone() Preferences {
	clone := prefs
	clone.URLList = append([]string{}, prefs.URLList...)
	return clone
}

// ValidVolume reports whether volume is within MinVolume..MaxVolume.
func ValidVolume(volume int) bool {
	return volume >= MinVolume && volume <= MaxVolume
}
