package permission

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownKey is wrapped by [ValidateKeys] when a key is outside the
// catalog.
var ErrUnknownKey = errors.New("unknown permission key")

// Group is a display grouping of catalog entries.
type Group struct {
	ID   string
	Name string
}

// Entry is one catalog permission: a flat key for checking plus display
// metadata.
type Entry struct {
	Key         string
	Name        string
	Group       string
	Description string
}

var groups = []Group{
	{ID: "USERS", Name: "User Permission"},
	{ID: "ROLES", Name: "Role Permission"},
	{ID: "GREENHOUSES", Name: "Greenhouse Permission"},
	{ID: "ZONES", Name: "Zone Permission"},
	{ID: "SENSORS", Name: "Sensor Permission"},
	{ID: "AUTOMATIONS", Name: "Automation Permission"},
	{ID: "REPORTS", Name: "Report Permission"},
	{ID: "AUDITLOGS", Name: "AuditLogs Permission"},
}

var catalog = []Entry{
	{Key: "user_view", Name: "User View", Group: "USERS", Description: "View users"},
	{Key: "user_add", Name: "User Add", Group: "USERS", Description: "Add user"},
	{Key: "user_update", Name: "User Update", Group: "USERS", Description: "Update user"},
	{Key: "user_delete", Name: "User Delete", Group: "USERS", Description: "Delete user"},

	{Key: "role_view", Name: "Role View", Group: "ROLES", Description: "View roles"},
	{Key: "role_add", Name: "Role Add", Group: "ROLES", Description: "Add role"},
	{Key: "role_update", Name: "Role Update", Group: "ROLES", Description: "Update role"},
	{Key: "role_delete", Name: "Role Delete", Group: "ROLES", Description: "Delete role"},

	{Key: "greenhouse_view", Name: "Greenhouse View", Group: "GREENHOUSES", Description: "View greenhouses"},
	{Key: "greenhouse_add", Name: "Greenhouse Add", Group: "GREENHOUSES", Description: "Add greenhouse"},
	{Key: "greenhouse_update", Name: "Greenhouse Update", Group: "GREENHOUSES", Description: "Update greenhouse"},
	{Key: "greenhouse_delete", Name: "Greenhouse Delete", Group: "GREENHOUSES", Description: "Delete greenhouse"},

	{Key: "zone_view", Name: "Zone View", Group: "ZONES", Description: "View zones"},
	{Key: "zone_add", Name: "Zone Add", Group: "ZONES", Description: "Add zone"},
	{Key: "zone_update", Name: "Zone Update", Group: "ZONES", Description: "Update zone"},
	{Key: "zone_delete", Name: "Zone Delete", Group: "ZONES", Description: "Delete zone"},

	{Key: "sensor_view", Name: "Sensor View", Group: "SENSORS", Description: "View sensors"},
	{Key: "sensor_add", Name: "Sensor Add", Group: "SENSORS", Description: "Add sensor"},
	{Key: "sensor_update", Name: "Sensor Update", Group: "SENSORS", Description: "Update sensor"},
	{Key: "sensor_delete", Name: "Sensor Delete", Group: "SENSORS", Description: "Delete sensor"},

	{Key: "automation_view", Name: "Automation View", Group: "AUTOMATIONS", Description: "View automation rules"},
	{Key: "automation_add", Name: "Automation Add", Group: "AUTOMATIONS", Description: "Add automation rule"},
	{Key: "automation_update", Name: "Automation Update", Group: "AUTOMATIONS", Description: "Update automation rule"},
	{Key: "automation_delete", Name: "Automation Delete", Group: "AUTOMATIONS", Description: "Delete automation rule"},

	{Key: "report_view", Name: "Report View", Group: "REPORTS", Description: "View reports"},
	{Key: "report_export", Name: "Report Export", Group: "REPORTS", Description: "Export reports"},

	{Key: "auditlogs_view", Name: "AuditLogs View", Group: "AUDITLOGS", Description: "View audit logs"},
}

var catalogIndex = func() map[string]Entry {
	idx := make(map[string]Entry, len(catalog))
	for _, e := range catalog {
		idx[e.Key] = e
	}
	return idx
}()

// Catalog returns every catalog entry in declaration order.
func Catalog() []Entry {
	out := make([]Entry, len(catalog))
	copy(out, catalog)
	return out
}

// Groups returns the display groups in declaration order.
func Groups() []Group {
	out := make([]Group, len(groups))
	copy(out, groups)
	return out
}

// Known reports whether key belongs to the catalog.
func Known(key string) bool {
	_, ok := catalogIndex[key]
	return ok
}

// ValidateKeys verifies every key against the catalog. It reports all
// unknown keys at once so role-assignment failures are actionable; callers
// must treat any error as all-or-nothing and commit no partial change.
func ValidateKeys(keys []string) error {
	var unknown []string
	for _, k := range keys {
		if !Known(k) {
			unknown = append(unknown, k)
		}
	}
	if len(unknown) > 0 {
		return fmt.Errorf("%w: %s", ErrUnknownKey, strings.Join(unknown, ", "))
	}
	return nil
}
