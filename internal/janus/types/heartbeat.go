package types

type HeartbeatRequest struct {
	DeviceID        string `json:"device_id"`
	FirmwareVersion string `json:"firmware_version,omitempty"`
	UptimeSeconds   uint64 `json:"uptime_s,omitempty"`
	IP              string `json:"ip,omitempty"`
}

// HeartbeatResponse doubles as the mode command channel: a device that sees
// registration_mode=true switches its reader into enrollment.
type HeartbeatResponse struct {
	OK               bool   `json:"ok"`
	Known            bool   `json:"known"`
	DeviceID         string `json:"device_id"`
	RegistrationMode bool   `json:"registration_mode"`
	ServerTime       string `json:"server_time"`
}
