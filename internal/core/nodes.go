package core

// NamespaceTruck is the OPC UA namespace of the replayed truck
const NamespaceTruck uint16 = 2

// NodeDefinition describes an OPC UA node exposed by the replay server
type NodeDefinition struct {
	Name         string      // Node name (e.g., "T3Mean")
	DisplayName  string      // Human-readable name
	Description  string      // Description of the node
	DataType     DataType    // Data type (Double, Int32, String, etc.)
	Unit         string      // Engineering unit (°C, g, rpm)
	InitialValue interface{} // Initial/default value
}

// DataType represents OPC UA data types
type DataType int

const (
	DataTypeDouble DataType = iota
	DataTypeFloat
	DataTypeInt32
	DataTypeInt64
	DataTypeString
	DataTypeBool
	DataTypeDateTime
)

// TruckNodes returns the node set published for one replayed truck.
// Values are keyed by Name in the map produced by the replay runner.
func TruckNodes() []NodeDefinition {
	nodes := []NodeDefinition{
		{Name: "TruckID", DisplayName: "Truck ID", Description: "Replayed truck identifier", DataType: DataTypeInt32, InitialValue: int32(0)},
		{Name: "EngineType", DisplayName: "Engine Type", Description: "modern or older", DataType: DataTypeString, InitialValue: ""},
		{Name: "DayIndex", DisplayName: "Day Index", Description: "Simulated day", DataType: DataTypeInt32, InitialValue: int32(0)},
		{Name: "Window", DisplayName: "Window", Description: "60-second window within the day", DataType: DataTypeInt32, InitialValue: int32(0)},
		{Name: "RPMEstimate", DisplayName: "RPM Estimate", Description: "Estimated engine speed", DataType: DataTypeDouble, Unit: "rpm", InitialValue: 0.0},
		{Name: "LoadProxy", DisplayName: "Load Proxy", Description: "Load derived from exhaust temperature", DataType: DataTypeDouble, InitialValue: 0.0},
		{Name: "FaultMode", DisplayName: "Fault Mode", Description: "Worst active fault", DataType: DataTypeString, InitialValue: "HEALTHY"},
		{Name: "FaultSeverity", DisplayName: "Fault Severity", Description: "Stage of the worst fault", DataType: DataTypeString, InitialValue: "HEALTHY"},
		{Name: "RULHours", DisplayName: "RUL Hours", Description: "Remaining useful life, -1 when unbounded", DataType: DataTypeDouble, Unit: "h", InitialValue: -1.0},
		{Name: "PathALabel", DisplayName: "Path A Label", Description: "NORMAL, IMMINENT or CRITICAL", DataType: DataTypeString, InitialValue: "NORMAL"},
	}
	for _, s := range TempSensors {
		nodes = append(nodes, NodeDefinition{
			Name:         s + "_mean",
			DisplayName:  s + " mean",
			Description:  "Window mean temperature",
			DataType:     DataTypeDouble,
			Unit:         "°C",
			InitialValue: 0.0,
		})
	}
	for _, s := range Accelerometers {
		nodes = append(nodes, NodeDefinition{
			Name:         s + "_rms_x_mean",
			DisplayName:  s + " RMS x",
			Description:  "Window mean RMS acceleration on the x axis",
			DataType:     DataTypeDouble,
			Unit:         "g",
			InitialValue: 0.0,
		})
	}
	return nodes
}
