package types

import (
	"fmt"
	"strconv"
)

// Setting keys accepted by the per-user preference table.
const (
	SettingTheme          = "theme"
	SettingViewMode       = "view_mode"
	SettingPageSize       = "page_size"
	SettingDashboardRange = "dashboard_range"
)

// MaxPageSize bounds the page_size setting.
const MaxPageSize = 500

// settingValues lists the accepted values per enumerated key. page_size is
// checked numerically instead.
var settingValues = map[string]map[string]bool{
	SettingTheme:          {"light": true, "dark": true, "system": true},
	SettingViewMode:       {"table": true, "grid": true, "list": true},
	SettingDashboardRange: {"7d": true, "30d": true, "90d": true, "all": true},
}

// Preference is one stored user setting.
type Preference struct {
	Username string `json:"username"`
	Key      string `json:"setting_key"`
	Value    string `json:"setting_value"`
}

// IsSettingKey reports whether key is on the allow-list.
func IsSettingKey(key string) bool {
	if key == SettingPageSize {
		return true
	}
	_, ok := settingValues[key]
	return ok
}

// ValidateSetting checks key against the allow-list and value against the
// values that key accepts. Errors wrap ErrInvalidSetting.
func ValidateSetting(key, value string) error {
	if !IsSettingKey(key) {
		return fmt.Errorf("%w: unknown key %q", ErrInvalidSetting, key)
	}
	if key == SettingPageSize {
		n, err := strconv.Atoi(value)
		if err != nil || n < 1 || n > MaxPageSize {
			return fmt.Errorf("%w: page_size must be 1-%d", ErrInvalidSetting, MaxPageSize)
		}
		return nil
	}
	if !settingValues[key][value] {
		return fmt.Errorf("%w: %q is not a valid %s", ErrInvalidSetting, value, key)
	}
	return nil
}
