package domain

import (
	"strconv"
	"strings"
)

const (
	SettingFreeWeeklyLimit = "free_weekly_limit"
	SettingAIEnabled       = "ai_enabled"

	DefaultWeeklyLimit = 3
)

// Setting is a single row of the key-value configuration table.
type Setting struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// IsKnownSetting reports whether key is one of the toggles the admin surface manages.
func IsKnownSetting(key string) bool {
	switch key {
	case SettingFreeWeeklyLimit, SettingAIEnabled:
		return true
	}
	return false
}

// ParseWeeklyLimit returns the configured limit or DefaultWeeklyLimit when the value
// is empty or not an integer.
func ParseWeeklyLimit(value string) int {
	limit, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return DefaultWeeklyLimit
	}
	return limit
}

// ParseAIEnabled treats anything but an explicit false as enabled.
func ParseAIEnabled(value string) bool {
	enabled, err := strconv.ParseBool(strings.TrimSpace(value))
	if err != nil {
		return true
	}
	return enabled
}
