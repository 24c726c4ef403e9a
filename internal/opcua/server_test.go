package opcua

import (
	"testing"

	"github.com/awcullen/opcua/ua"

	"github.com/sebastiankruger/truck-telemetry-simulator/internal/core"
)

func TestValueStorageWithoutEndpoint(t *testing.T) {
	s := NewServer(0, t.TempDir())
	s.RegisterNamespace(core.NamespaceTruck, "Truck", "Replayed truck", core.TruckNodes())

	if s.Running() {
		t.Fatal("server reports running before Start")
	}
	if v, ok := s.GetNamespaceValue(core.NamespaceTruck, "FaultMode"); !ok || v != "HEALTHY" {
		t.Fatalf("initial FaultMode = %v, %v", v, ok)
	}

	s.UpdateNamespaceValues(core.NamespaceTruck, map[string]interface{}{
		"RPMEstimate": 1450.0,
		"NotANode":    1,
	})
	if v, _ := s.GetNamespaceValue(core.NamespaceTruck, "RPMEstimate"); v != 1450.0 {
		t.Fatalf("RPMEstimate = %v, want 1450", v)
	}
	if _, ok := s.GetNamespaceValue(core.NamespaceTruck, "NotANode"); ok {
		t.Fatal("unknown node was stored")
	}

	vals := s.NamespaceValues(core.NamespaceTruck)
	if len(vals) != len(core.TruckNodes()) {
		t.Fatalf("NamespaceValues has %d entries, want %d", len(vals), len(core.TruckNodes()))
	}
	vals["RPMEstimate"] = 0.0
	if v, _ := s.GetNamespaceValue(core.NamespaceTruck, "RPMEstimate"); v != 1450.0 {
		t.Fatal("NamespaceValues returned a live map")
	}

	if s.NamespaceValues(99) != nil {
		t.Fatal("unregistered namespace returned values")
	}
}

func TestDataTypeID(t *testing.T) {
	tests := []struct {
		dt   core.DataType
		want ua.NodeID
	}{
		{core.DataTypeDouble, ua.DataTypeIDDouble},
		{core.DataTypeFloat, ua.DataTypeIDFloat},
		{core.DataTypeInt32, ua.DataTypeIDInt32},
		{core.DataTypeInt64, ua.DataTypeIDInt64},
		{core.DataTypeString, ua.DataTypeIDString},
		{core.DataTypeBool, ua.DataTypeIDBoolean},
		{core.DataTypeDateTime, ua.DataTypeIDDateTime},
	}
	for _, tt := range tests {
		if got := dataTypeID(tt.dt); got != tt.want {
			t.Errorf("dataTypeID(%d) = %v, want %v", tt.dt, got, tt.want)
		}
	}
}
