package connectivity

import (
	"sync"
)

// EpochSnapshot is a consistent view of the network epoch.
type EpochSnapshot struct {
	NetworkID int64
	Key       uint64
	// Generation counts accepted network changes only. It lets a manager tell
	// a network change apart from a mode switch made by another manager.
	Generation uint64
}

// NetworkEpoch is the versioned record of the preferred network. Its
// configuration key strictly increases on every mutation and is the only
// staleness oracle used by managers.
//
// One epoch is shared by every manager of a process; tests create their own.
type NetworkEpoch struct {
	mu         sync.RWMutex
	networkID  int64
	key        uint64
	generation uint64
}

// NewNetworkEpoch creates an epoch with network id 0 and key 1.
func NewNetworkEpoch() *NetworkEpoch {
	return &NetworkEpoch{key: 1}
}

var processEpoch = NewNetworkEpoch()

// ProcessEpoch returns the epoch shared by the whole process.
func ProcessEpoch() *NetworkEpoch {
	return processEpoch
}

// SetPreferredNetwork stores networkID and advances the key when the network
// differs from the stored one. Reporting the current network again is a no-op
// and returns the unchanged key.
func (e *NetworkEpoch) SetPreferredNetwork(networkID int64) uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.networkID == networkID {
		return e.key
	}
	e.networkID = networkID
	e.generation++
	e.key++
	return e.key
}

// AdvanceConfiguration advances the key without changing the network.
func (e *NetworkEpoch) AdvanceConfiguration() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.key++
	return e.key
}

// advanceIfCurrent advances the key only if it still equals expected.
// It reports the resulting key and whether the advance happened.
func (e *NetworkEpoch) advanceIfCurrent(expected uint64) (uint64, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.key != expected {
		return e.key, false
	}
	e.key++
	return e.key, true
}

// ConfigurationKey returns the current key.
func (e *NetworkEpoch) ConfigurationKey() uint64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.key
}

// PreferredNetwork returns the current preferred network id.
func (e *NetworkEpoch) PreferredNetwork() int64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.networkID
}

// Snapshot returns the network id and key as one unit.
func (e *NetworkEpoch) Snapshot() EpochSnapshot {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return EpochSnapshot{NetworkID: e.networkID, Key: e.key, Generation: e.generation}
}
