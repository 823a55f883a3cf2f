package connectivity

import "math"

// Hysteresis tunes the fault engine.
type Hysteresis struct {
	// InitialThreshold is the number of consecutive faults that switch the
	// socket mode on a fresh epoch.
	InitialThreshold uint32
	// Step is added to the threshold after every successful request.
	Step uint32
}

// DefaultHysteresis is a threshold of 1 growing by 2 per success.
func DefaultHysteresis() Hysteresis {
	return Hysteresis{InitialThreshold: 1, Step: 2}
}

func (h Hysteresis) initialState() FaultState {
	return FaultState{SwitchThreshold: h.InitialThreshold}
}

// FaultState is the per-epoch fault counter of a manager.
type FaultState struct {
	ConsecutiveFaults uint32 `json:"consecutive_faults"`
	SwitchThreshold   uint32 `json:"switch_threshold"`
}

func (f *FaultState) recordSuccess(step uint32) {
	f.ConsecutiveFaults = 0
	if f.SwitchThreshold > math.MaxUint32-step {
		f.SwitchThreshold = math.MaxUint32
		return
	}
	f.SwitchThreshold += step
}

// recordFault counts a fault and reports whether the threshold was reached.
func (f *FaultState) recordFault() bool {
	if f.ConsecutiveFaults < math.MaxUint32 {
		f.ConsecutiveFaults++
	}
	return f.ConsecutiveFaults >= f.SwitchThreshold
}
