package types

// Touch service configuration supplied on topic "config/touch".

type TouchConfig struct {
	// Swap the reported resolution axes for rotated panels.
	SwapXY bool `json:"swap_xy,omitempty"`

	// Run the CRC check and system-area read automatically after reset.
	AutoSysInfo bool `json:"auto_sysinfo,omitempty"`

	// Heartbeat period for the retained state topic; 0 disables.
	HeartbeatMs uint32 `json:"heartbeat_ms,omitempty"`
}
