package types

// ---- Touch service state (retained) ----

type TouchState struct {
	Level  string `json:"level"`  // e.g. "init", "ready", "resetting", "error"
	Status string `json:"status"` // freeform short code
	TS     int64  `json:"ts_ms"`
}

// ---- Controller identity (retained on touch/sysinfo) ----

// SysInfo is the bus-facing view of the controller's system area. Raw
// per-channel tables stay inside the driver; this carries what monitoring
// and config tooling need.
type SysInfo struct {
	APIVersion    uint16 `json:"api_version"`
	ChipID        uint16 `json:"chip_id"`
	FWVersion     uint16 `json:"fw_version"`
	ConfigVersion uint16 `json:"config_version"`
	ConfigProject uint16 `json:"config_project"`
	CxVersion     uint16 `json:"cx_version"`
	ScreenRx      int    `json:"screen_rx"`
	ScreenTx      int    `json:"screen_tx"`
	ResolutionX   uint16 `json:"res_x"`
	ResolutionY   uint16 `json:"res_y"`
	ReleaseInfo   []byte `json:"release_info"`
	Degraded      bool   `json:"degraded,omitempty"` // sentinel values after a read failure
}

// ---- Control payloads (touch/control/<verb>) ----

type ResetRequest struct{}

type SysInfoRequest struct {
	// Force re-requests the frame from the controller instead of returning
	// the cached copy.
	Force bool `json:"force,omitempty"`
}

type ScanModeSet struct {
	Mode     uint8 `json:"mode"`
	Settings uint8 `json:"settings"`
}

type FeatureSet struct {
	Feature  uint8   `json:"feature"`
	Settings []uint8 `json:"settings,omitempty"`
}

type SyncFrameRequest struct {
	Type uint8 `json:"type"`
}

type ConfigRead struct {
	Offset uint16 `json:"offset"`
	Length int    `json:"length"`
}

// ---- Replies ----

type OKReply struct {
	OK bool `json:"ok"`
}

type ErrorReply struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
}

type DataReply struct {
	OK   bool   `json:"ok"`
	Data []byte `json:"data"`
}

// ---- Events (touch/event/...) ----

// ErrorEvent is published for every error event drained from the FIFO.
type ErrorEvent struct {
	Event []byte `json:"event"` // raw 8-byte FIFO event
	Hex   string `json:"hex"`   // same bytes, hex-dumped for consoles
	Code  string `json:"code,omitempty"`
	TS    int64  `json:"ts_ms"`
}

// ResetEvent is published when an unsolicited controller-ready event shows
// up outside an explicit reset, meaning the controller rebooted on its own.
type ResetEvent struct {
	Unexpected bool  `json:"unexpected"`
	TS         int64 `json:"ts_ms"`
}
