// Package store defines the versioned record model for the configuration
// store: applications, pods, root snapshots, and deployment plans.
package store

import (
	"fmt"
	"strings"
	"time"
)

// PathID is an opaque hierarchical identifier, equal and hashable by value.
// It is a thin wrapper over a "/"-delimited path so it can be used directly
// as a map key.
type PathID struct {
	path string
}

// NewPathID builds a PathID from path segments (e.g. "group", "service" -> "group/service").
func NewPathID(segments ...string) PathID {
	return PathID{path: strings.Join(segments, "/")}
}

// ParsePathID wraps an already-joined path string.
func ParsePathID(path string) PathID {
	return PathID{path: path}
}

// String returns the joined path.
func (p PathID) String() string { return p.path }

// IsZero reports whether p is the zero-value PathID.
func (p PathID) IsZero() bool { return p.path == "" }

// MarshalText renders PathID as its joined path string. Implementing
// encoding.TextMarshaler (rather than json.Marshaler) lets PathID serialize
// both as an ordinary JSON string and as a JSON object key.
func (p PathID) MarshalText() ([]byte, error) {
	return []byte(p.path), nil
}

// UnmarshalText parses PathID from its joined path string.
func (p *PathID) UnmarshalText(data []byte) error {
	p.path = string(data)
	return nil
}

// Version is an absolute timestamp with total order, hashable by value.
type Version struct {
	t time.Time
}

// NewVersion truncates t to nanosecond Unix precision so equal instants
// compare equal regardless of monotonic reading or timezone.
func NewVersion(t time.Time) Version {
	return Version{t: time.Unix(0, t.UnixNano()).UTC()}
}

// Now returns the current Version.
func Now() Version { return NewVersion(time.Now()) }

// Time returns the underlying timestamp.
func (v Version) Time() time.Time { return v.t }

// Before reports whether v happened strictly before o.
func (v Version) Before(o Version) bool { return v.t.Before(o.t) }

// Compare returns -1, 0, or 1 as v is before, equal to, or after o.
func (v Version) Compare(o Version) int {
	switch {
	case v.t.Before(o.t):
		return -1
	case v.t.After(o.t):
		return 1
	default:
		return 0
	}
}

// IsZero reports whether v is the zero-value Version.
func (v Version) IsZero() bool { return v.t.IsZero() }

// String renders v for logs and diagnostics.
func (v Version) String() string { return v.t.Format(time.RFC3339Nano) }

// MarshalText renders Version as an RFC3339Nano timestamp. Implementing
// encoding.TextMarshaler lets Version serialize both as an ordinary JSON
// string and as a JSON object key (map[Version]... fields).
func (v Version) MarshalText() ([]byte, error) {
	return []byte(v.t.Format(time.RFC3339Nano)), nil
}

// UnmarshalText parses Version from an RFC3339Nano timestamp, normalizing
// it the same way NewVersion does.
func (v *Version) UnmarshalText(data []byte) error {
	t, err := time.Parse(time.RFC3339Nano, string(data))
	if err != nil {
		return fmt.Errorf("parse version: %w", err)
	}
	*v = NewVersion(t)
	return nil
}

// SortVersions returns a new slice sorted oldest-first. Ties (identical
// timestamps) are broken by their RFC3339Nano string so the order is stable
// across repeated calls regardless of input order.
func SortVersions(versions []Version) []Version {
	out := make([]Version, len(versions))
	copy(out, versions)
	sortStable(out, func(a, b Version) bool {
		if c := a.Compare(b); c != 0 {
			return c < 0
		}
		return a.String() < b.String()
	})
	return out
}

// sortStable is a small stable insertion sort kept local so model.go needs
// no "sort" import.
func sortStable[T any](s []T, less func(a, b T) bool) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && less(s[j], s[j-1]); j-- {
			s[j], s[j-1] = s[j-1], s[j]
		}
	}
}

// AppRef identifies a single stored version of an application.
type AppRef struct {
	ID      PathID
	Version Version
}

// PodRef identifies a single stored version of a pod. Symmetric to AppRef.
type PodRef struct {
	ID      PathID
	Version Version
}

// RootSnapshot is an immutable snapshot of the entire deployable topology:
// its own version, plus the set of (app-id, version) and (pod-id, version)
// pairs it transitively names.
type RootSnapshot struct {
	Version        Version
	TransitiveApps map[PathID]map[Version]struct{}
	TransitivePods map[PathID]map[Version]struct{}
}

// NewRootSnapshot returns an empty RootSnapshot at the given version with
// initialized (non-nil) maps.
func NewRootSnapshot(v Version) RootSnapshot {
	return RootSnapshot{
		Version:        v,
		TransitiveApps: make(map[PathID]map[Version]struct{}),
		TransitivePods: make(map[PathID]map[Version]struct{}),
	}
}

// AddApp records that this root transitively references (id, v).
func (r RootSnapshot) AddApp(id PathID, v Version) {
	if r.TransitiveApps[id] == nil {
		r.TransitiveApps[id] = make(map[Version]struct{})
	}
	r.TransitiveApps[id][v] = struct{}{}
}

// AddPod records that this root transitively references (id, v).
func (r RootSnapshot) AddPod(id PathID, v Version) {
	if r.TransitivePods[id] == nil {
		r.TransitivePods[id] = make(map[Version]struct{})
	}
	r.TransitivePods[id][v] = struct{}{}
}

// Plan pairs two roots representing an in-flight deployment change. Storing
// a Plan pins both original and target (and everything they transitively
// pin).
type Plan struct {
	ID       string
	Original RootSnapshot
	Target   RootSnapshot
}

// PlanRef is the minimal identification of a stored plan: its two root
// versions. Full snapshots are fetched separately via
// GroupRepository.LazyRootVersion, matching the source contract where a
// plan "minimally carries original_version and target_version."
type PlanRef struct {
	ID              string
	OriginalVersion Version
	TargetVersion   Version
}

func (p PlanRef) String() string {
	return fmt.Sprintf("plan(%s: %s -> %s)", p.ID, p.OriginalVersion, p.TargetVersion)
}
