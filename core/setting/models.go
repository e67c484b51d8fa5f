package setting

import (
	"strconv"
)

const (
	KeySiteName           = "site_name"
	KeyContactEmail       = "contact_email"
	KeyRegistrationOpen   = "registration_open"
	KeyMaintenanceMode    = "maintenance_mode"
	KeyMaintenanceMessage = "maintenance_message"
)

type kind int

const (
	kindString kind = iota
	kindBool
	kindEmail
)

type definition struct {
	kind     kind
	def      string
	required bool
	maxLen   int
}

// known lists the editable settings and their defaults.
var known = map[string]definition{
	KeySiteName:           {kind: kindString, def: "Innovation Cell", required: true, maxLen: 255},
	KeyContactEmail:       {kind: kindEmail, def: "", maxLen: 255},
	KeyRegistrationOpen:   {kind: kindBool, def: "true"},
	KeyMaintenanceMode:    {kind: kindBool, def: "false"},
	KeyMaintenanceMessage: {kind: kindString, def: "We are performing scheduled maintenance. Please check back soon.", maxLen: 2000},
}

// Keys returns the known setting keys.
func Keys() []string {
	keys := make([]string, 0, len(known))
	for k := range known {
		keys = append(keys, k)
	}
	return keys
}

// IsKnown reports whether key is an editable setting.
func IsKnown(key string) bool {
	_, ok := known[key]
	return ok
}

// Settings maps setting keys to their stored (string) values.
type Settings map[string]string

// withDefaults returns a copy of s holding every known key.
func (s Settings) withDefaults() Settings {
	out := make(Settings, len(known))
	for k, d := range known {
		out[k] = d.def
	}
	for k, v := range s {
		if IsKnown(k) {
			out[k] = v
		}
	}
	return out
}

func (s Settings) Bool(key string) bool {
	b, err := strconv.ParseBool(s[key])
	if err != nil {
		b, _ = strconv.ParseBool(known[key].def)
	}
	return b
}

func (s Settings) SiteName() string           { return s[KeySiteName] }
func (s Settings) RegistrationOpen() bool     { return s.Bool(KeyRegistrationOpen) }
func (s Settings) MaintenanceMode() bool      { return s.Bool(KeyMaintenanceMode) }
func (s Settings) MaintenanceMessage() string { return s[KeyMaintenanceMessage] }

// Public returns the settings exposed to anonymous clients.
func (s Settings) Public() Settings {
	return Settings{
		KeySiteName:           s[KeySiteName],
		KeyContactEmail:       s[KeyContactEmail],
		KeyRegistrationOpen:   s[KeyRegistrationOpen],
		KeyMaintenanceMode:    s[KeyMaintenanceMode],
		KeyMaintenanceMessage: s[KeyMaintenanceMessage],
	}
}
