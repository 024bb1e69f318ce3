package gate

import (
	"meetgate/internal/action"
	"meetgate/internal/dataType"
	"testing"
)

func TestEvaluateLoadingUntilBothPresent(t *testing.T) {
	meeting := &dataType.MeetingConfig{Cities: []string{"Bangalore"}}
	location := &dataType.LocationSignal{City: "Bangalore"}

	if got := Evaluate(nil, nil); got != action.Loading {
		t.Errorf("Evaluate(nil, nil) = %v, want Loading", got)
	}
	if got := Evaluate(meeting, nil); got != action.Loading {
		t.Errorf("Evaluate(meeting, nil) = %v, want Loading", got)
	}
	if got := Evaluate(nil, location); got != action.Loading {
		t.Errorf("Evaluate(nil, location) = %v, want Loading", got)
	}
}

func TestEvaluateScenarios(t *testing.T) {
	tests := []struct {
		name   string
		cities []string
		city   string
		vpn    bool
		want   action.AuthState
	}{
		{"city match with whitespace and case", []string{"Bangalore", "Pune"}, " bangalore ", false, action.Authorized},
		{"city not in list", []string{"Bangalore"}, "Mumbai", false, action.PendingRequest},
		{"vpn wins over city match", []string{"Bangalore"}, "Bangalore", true, action.VpnBlocked},
		{"vpn wins without city match", []string{"Bangalore"}, "Mumbai", true, action.VpnBlocked},
		{"allow-list entries are trimmed", []string{"  PUNE  "}, "pune", false, action.Authorized},
		{"empty cities list never allows", nil, "Bangalore", false, action.PendingRequest},
		{"empty user city with empty list entry", []string{""}, "", false, action.Authorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			meeting := &dataType.MeetingConfig{Cities: tt.cities}
			location := &dataType.LocationSignal{City: tt.city, VPNDetected: tt.vpn}
			if got := Evaluate(meeting, location); got != tt.want {
				t.Errorf("Evaluate() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEvaluateIdempotent(t *testing.T) {
	meeting := &dataType.MeetingConfig{Cities: []string{"Bangalore"}}
	location := &dataType.LocationSignal{City: "Mumbai"}

	first := Evaluate(meeting, location)
	for i := 0; i < 10; i++ {
		if got := Evaluate(meeting, location); got != first {
			t.Fatalf("Evaluate() run %d = %v, want %v", i, got, first)
		}
	}
}
