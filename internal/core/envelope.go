package core

import "strings"

// knownTrackerKeys and knownEntryKeys are the fields promoted to named
// struct fields; everything else on an incoming wire object falls into
// Extra and round-trips unchanged.
var knownTrackerKeys = map[string]bool{
	"id": true, "name": true, "category": true, "type": true, "deleted": true,
	KeyBaseVersion: true, KeyVersion: true, KeyDeleted: true,
	KeyLastModifiedBy: true, KeyLastModifiedAt: true,
}

var knownEntryKeys = map[string]bool{
	"date": true, "trackerId": true, "value": true, "completed": true,
	KeyBaseVersion: true, KeyVersion: true,
	KeyLastModifiedBy: true, KeyLastModifiedAt: true,
}

// IncomingTracker is the parsed shape of one element of an update
// batch's "config" array, split into known fields, the caller's
// intended base version, and the opaque metadata bag.
type IncomingTracker struct {
	Tracker     Tracker
	BaseVersion int
	IsDelete    bool
}

// ParseIncomingTracker extracts known fields and the reserved envelope
// from a raw wire object, preserving all unrecognized keys in Extra.
func ParseIncomingTracker(raw map[string]any) IncomingTracker {
	t := Tracker{Extra: map[string]any{}}
	if id, ok := raw["id"].(string); ok {
		t.ID = id
	}
	if name, ok := raw["name"].(string); ok {
		t.Name = name
	}
	if category, ok := raw["category"].(string); ok {
		t.Category = category
	}
	if typ, ok := raw["type"].(string); ok {
		t.Type = typ
	}

	isDelete := false
	if d, ok := raw[KeyDeleted].(bool); ok {
		isDelete = d
	}

	baseVersion := 0
	if bv, ok := asInt(raw[KeyBaseVersion]); ok {
		baseVersion = bv
	}

	for k, v := range raw {
		if knownTrackerKeys[k] {
			continue
		}
		t.Extra[k] = v
	}

	return IncomingTracker{Tracker: t, BaseVersion: baseVersion, IsDelete: isDelete}
}

// TrackerToWire renders a stored Tracker back into its wire shape,
// merging Extra at the top level and re-synthesizing reserved keys.
func TrackerToWire(t Tracker) map[string]any {
	out := map[string]any{}
	for k, v := range t.Extra {
		out[k] = v
	}
	out["id"] = t.ID
	out["name"] = t.Name
	out["category"] = t.Category
	out["type"] = t.Type
	out[KeyDeleted] = t.Deleted
	out[KeyVersion] = t.Version
	out[KeyLastModifiedBy] = t.LastModifiedBy
	out[KeyLastModifiedAt] = t.LastModifiedAt
	return out
}

// IncomingEntry mirrors IncomingTracker for the entries side of a batch.
type IncomingEntry struct {
	Entry       Entry
	BaseVersion int
}

// ParseIncomingEntry extracts known fields and the reserved envelope
// from a raw wire entry object.
func ParseIncomingEntry(date, trackerID string, raw map[string]any) IncomingEntry {
	e := Entry{Date: date, TrackerID: trackerID, Extra: map[string]any{}}
	if v, ok := asFloat(raw["value"]); ok {
		e.Value = &v
	}
	if c, ok := raw["completed"].(bool); ok {
		e.Completed = &c
	}

	baseVersion := 0
	if bv, ok := asInt(raw[KeyBaseVersion]); ok {
		baseVersion = bv
	}

	for k, v := range raw {
		if knownEntryKeys[k] {
			continue
		}
		e.Extra[k] = v
	}

	return IncomingEntry{Entry: e, BaseVersion: baseVersion}
}

// EntryToWire renders a stored Entry back into its wire shape.
func EntryToWire(e Entry) map[string]any {
	out := map[string]any{}
	for k, v := range e.Extra {
		out[k] = v
	}
	out["date"] = e.Date
	out["trackerId"] = e.TrackerID
	out["value"] = e.Value
	out["completed"] = e.Completed
	out[KeyVersion] = e.Version
	out[KeyLastModifiedBy] = e.LastModifiedBy
	out[KeyLastModifiedAt] = e.LastModifiedAt
	return out
}

// SplitEntryID splits a resolve-conflict "YYYY-MM-DD|trackerId" entity
// id on the first '|' only, since trackers must not contain '|'.
func SplitEntryID(id string) (date, trackerID string, ok bool) {
	parts := strings.SplitN(id, "|", 2)
	if len(parts) != 2 {
		return "", "", false
	}
	return parts[0], parts[1], true
}

func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	default:
		return 0, false
	}
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}
