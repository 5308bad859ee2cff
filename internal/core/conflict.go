package core

// DecisionKind is the outcome of one ConflictDetector call.
type DecisionKind int

const (
	DecisionApplyInsert DecisionKind = iota
	DecisionApplyUpdate
	DecisionApplyResurrection
	DecisionNoopTombstone
	DecisionConflict
)

// Decision is the result of running ConflictDetector against one
// incoming entity. ResultVersion and ResultDeleted are only meaningful
// for Apply* kinds; Descriptor is only populated for DecisionConflict.
type Decision struct {
	Kind           DecisionKind
	ResultVersion  int
	ResultDeleted  bool
	Descriptor     ConflictDescriptor
}

// ConflictDetector implements the per-entity compare-and-set decision
// table of the synchronization protocol (§4.4).
type ConflictDetector struct{}

// detectInput is the detector's entity-agnostic input shape: whether a
// server record exists, its current version and deleted flag, and the
// incoming base version and delete intent.
type detectInput struct {
	serverExists    bool
	serverVersion   int
	serverDeleted   bool
	incomingBase    int
	incomingDeleted bool
}

// decide runs the decision table in §4.4 against one entity. entries
// never set incomingDeleted/serverDeleted; trackers may.
func (ConflictDetector) decide(in detectInput) Decision {
	if !in.serverExists {
		return Decision{Kind: DecisionApplyInsert, ResultVersion: 1, ResultDeleted: in.incomingDeleted}
	}

	if in.serverDeleted {
		if in.incomingDeleted {
			return Decision{Kind: DecisionNoopTombstone, ResultVersion: in.serverVersion, ResultDeleted: true}
		}
		newVersion := in.serverVersion
		if in.incomingBase > newVersion {
			newVersion = in.incomingBase
		}
		return Decision{Kind: DecisionApplyResurrection, ResultVersion: newVersion + 1, ResultDeleted: false}
	}

	if in.incomingBase == in.serverVersion {
		return Decision{Kind: DecisionApplyUpdate, ResultVersion: in.serverVersion + 1, ResultDeleted: in.incomingDeleted}
	}

	// v > B or v < B: conflict either way, server wins by default.
	return Decision{Kind: DecisionConflict}
}

// DecideTracker runs the decision table for an incoming tracker write
// against the current (possibly absent) server record.
func (d ConflictDetector) DecideTracker(server Tracker, serverExists bool, incoming IncomingTracker) Decision {
	in := detectInput{
		serverExists:    serverExists,
		serverVersion:   server.Version,
		serverDeleted:   server.Deleted,
		incomingBase:    incoming.BaseVersion,
		incomingDeleted: incoming.IsDelete,
	}
	dec := d.decide(in)
	if dec.Kind == DecisionConflict {
		dec.Descriptor = ConflictDescriptor{
			EntityType:        EntityTypeTracker,
			EntityID:          server.ID,
			ServerVersion:     server.Version,
			ClientBaseVersion: incoming.BaseVersion,
			ServerData:        TrackerToWire(server),
		}
	}
	return dec
}

// DecideEntry runs the decision table for an incoming entry write.
// Entries never carry a delete flag and are never tombstoned, so the
// deleted branches of the table never trigger.
func (d ConflictDetector) DecideEntry(server Entry, serverExists bool, incoming IncomingEntry) Decision {
	in := detectInput{
		serverExists:  serverExists,
		serverVersion: server.Version,
		incomingBase:  incoming.BaseVersion,
	}
	dec := d.decide(in)
	if dec.Kind == DecisionConflict {
		dec.Descriptor = ConflictDescriptor{
			EntityType:        EntityTypeEntry,
			EntityID:          EntryID(server.Date, server.TrackerID),
			ServerVersion:     server.Version,
			ClientBaseVersion: incoming.BaseVersion,
			ServerData:        EntryToWire(server),
		}
	}
	return dec
}
