package domain

import (
	"fmt"
	"strings"
)

// Preference names persisted by the theme controls.
const (
	PrefAppearance  = "appearance"
	PrefTheme       = "theme"
	PrefLegacyTheme = "daily:theme"
)

// Preferences lists every persisted preference key.
var Preferences = []string{PrefAppearance, PrefTheme, PrefLegacyTheme}

// ValidatePreference reports ErrUnknownPreference for names outside Preferences.
func ValidatePreference(name string) error {
	for _, p := range Preferences {
		if p == name {
			return nil
		}
	}
	return fmt.Errorf("%w: %q", ErrUnknownPreference, name)
}

// PreferenceAttr returns the attribute mirroring a preference on its root element.
func PreferenceAttr(name string) string {
	return "data-" + name
}

// NormalizeTitle trims a title and rejects blank input.
func NormalizeTitle(title string) (string, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return "", ErrEmptyTitle
	}
	return title, nil
}
