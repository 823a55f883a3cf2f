package connectivity

import (
	"math"
	"testing"
)

func TestFaultState_RecordFault(t *testing.T) {
	f := Hysteresis{InitialThreshold: 3, Step: 2}.initialState()

	if f.recordFault() {
		t.Error("Expected first fault to stay below threshold")
	}
	if f.recordFault() {
		t.Error("Expected second fault to stay below threshold")
	}
	if !f.recordFault() {
		t.Error("Expected third fault to reach threshold")
	}
	if f.ConsecutiveFaults != 3 {
		t.Errorf("Expected 3 consecutive faults, got %d", f.ConsecutiveFaults)
	}
}

func TestFaultState_RecordSuccess(t *testing.T) {
	tests := []struct {
		name      string
		state     FaultState
		step      uint32
		threshold uint32
	}{
		{"Grows by step", FaultState{ConsecutiveFaults: 2, SwitchThreshold: 1}, 2, 3},
		{"Zero step keeps threshold", FaultState{SwitchThreshold: 5}, 0, 5},
		{"Saturates", FaultState{SwitchThreshold: math.MaxUint32 - 1}, 2, math.MaxUint32},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := tt.state
			f.recordSuccess(tt.step)

			if f.ConsecutiveFaults != 0 {
				t.Errorf("Expected faults reset, got %d", f.ConsecutiveFaults)
			}
			if f.SwitchThreshold != tt.threshold {
				t.Errorf("Expected threshold %d, got %d", tt.threshold, f.SwitchThreshold)
			}
		})
	}
}

func TestDefaultHysteresis(t *testing.T) {
	h := DefaultHysteresis()
	if h.InitialThreshold != 1 || h.Step != 2 {
		t.Errorf("Unexpected default hysteresis: %+v", h)
	}
}
