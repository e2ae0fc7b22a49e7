package audit

import (
	"fmt"
	"reflect"
	"sort"
)

// ChangedFields returns the names of fields whose values differ between the
// old and new snapshots, sorted for determinism. The comparison runs over
// the union of keys, so a field appearing on only one side counts as
// changed (nil vs present transitions included).
func ChangedFields(oldValues, newValues map[string]any) []string {
	keys := make(map[string]struct{}, len(oldValues)+len(newValues))
	for k := range oldValues {
		keys[k] = struct{}{}
	}
	for k := range newValues {
		keys[k] = struct{}{}
	}

	var changed []string
	for k := range keys {
		if !reflect.DeepEqual(oldValues[k], newValues[k]) {
			changed = append(changed, k)
		}
	}
	sort.Strings(changed)
	return changed
}

// InsertSummary builds the human-readable summary for an INSERT entry
func InsertSummary(entityName, entityID string) string {
	return fmt.Sprintf("created %s %s", entityName, entityID)
}

// UpdateSummary builds the human-readable summary for an UPDATE entry,
// listing the changed field names.
func UpdateSummary(entityName, entityID string, changed []string) string {
	s := fmt.Sprintf("updated %s %s:", entityName, entityID)
	for i, f := range changed {
		if i == 0 {
			s += " " + f
		} else {
			s += ", " + f
		}
	}
	return s
}
