package model

import (
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

// MaxWatchlistItems caps the number of symbols one user may follow.
const MaxWatchlistItems = 10

// Settings are the effective analysis parameters for one item.
type Settings struct {
	Strategy     string
	Goal         string
	Risk         string
	ReportFormat string
}

// DefaultSettings are applied when neither the item nor the user sets a value.
var DefaultSettings = Settings{
	Strategy:     "Value",
	Goal:         "Medium",
	Risk:         "Medium",
	ReportFormat: "Summary",
}

// UserDefaults are a user's account-wide preferences. Empty fields are unset.
type UserDefaults struct {
	UserID       string `db:"user_id"`
	Strategy     string `db:"strategy"`
	Goal         string `db:"goal"`
	Risk         string `db:"risk"`
	ReportFormat string `db:"report_format"`
}

// WatchlistItem is a symbol plus optional per-item overrides.
type WatchlistItem struct {
	UserID       string  `db:"user_id"`
	Symbol       string  `db:"symbol"`
	Strategy     *string `db:"strategy"`
	Goal         *string `db:"goal"`
	Risk         *string `db:"risk"`
	ReportFormat *string `db:"report_format"`
}

// Resolve applies item override, then user default, then system default.
func (w WatchlistItem) Resolve(user UserDefaults) Settings {
	return Settings{
		Strategy:     pick(w.Strategy, user.Strategy, DefaultSettings.Strategy),
		Goal:         pick(w.Goal, user.Goal, DefaultSettings.Goal),
		Risk:         pick(w.Risk, user.Risk, DefaultSettings.Risk),
		ReportFormat: pick(w.ReportFormat, user.ReportFormat, DefaultSettings.ReportFormat),
	}
}

func pick(item *string, user, system string) string {
	if item != nil && *item != "" {
		return *item
	}
	if user != "" {
		return user
	}
	return system
}

// SettingField names one configurable analysis parameter.
type SettingField string

const (
	FieldStrategy     SettingField = "strategy"
	FieldGoal         SettingField = "goal"
	FieldRisk         SettingField = "risk"
	FieldReportFormat SettingField = "report_format"
)

// ParseSettingField accepts a field name as typed in chat. "format" is an alias of report_format.
func ParseSettingField(raw string) (SettingField, bool) {
	switch strings.ToLower(raw) {
	case "strategy":
		return FieldStrategy, true
	case "goal":
		return FieldGoal, true
	case "risk":
		return FieldRisk, true
	case "format", "report_format":
		return FieldReportFormat, true
	}
	return "", false
}

var settingValues = map[string]string{
	"dca":       "DCA",
	"ai":        "AI-Auto",
	"value":     "Value",
	"growth":    "Growth",
	"dividend":  "Dividend",
	"technical": "Technical",
	"short":     "Short",
	"medium":    "Medium",
	"long":      "Long",
	"low":       "Low",
	"high":      "High",
	"summary":   "Summary",
	"full":      "Full",
}

// NormalizeSettingValue maps chat input to its canonical spelling; unknown
// words are capitalized. "default" and "reset" yield "", meaning unset.
func NormalizeSettingValue(raw string) string {
	key := strings.ToLower(strings.TrimSpace(raw))
	if key == "" || key == "default" || key == "reset" {
		return ""
	}
	if v, ok := settingValues[key]; ok {
		return v
	}
	r, size := utf8.DecodeRuneInString(key)
	return string(unicode.ToUpper(r)) + key[size:]
}

// ValidSettingValue reports whether value may be stored in field. Empty always is.
func ValidSettingValue(field SettingField, value string) bool {
	if field != FieldReportFormat || value == "" {
		return true
	}
	return value == "Summary" || value == "Full"
}

// Set assigns one field of the user's defaults.
func (u *UserDefaults) Set(field SettingField, value string) {
	switch field {
	case FieldStrategy:
		u.Strategy = value
	case FieldGoal:
		u.Goal = value
	case FieldRisk:
		u.Risk = value
	case FieldReportFormat:
		u.ReportFormat = value
	}
}

// HasOverrides reports whether any per-item setting is present.
func (w WatchlistItem) HasOverrides() bool {
	for _, p := range []*string{w.Strategy, w.Goal, w.Risk, w.ReportFormat} {
		if p != nil && *p != "" {
			return true
		}
	}
	return false
}

// Schedule is a user's daily alert, one per user. AlertTime is "HH:MM" in the service timezone.
type Schedule struct {
	UserID    string
	AlertTime string
	LastRun   *time.Time
	Active    bool
}
