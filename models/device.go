package models

// DeviceInfo identifies the device being granted access, as reported by
// the gateway's whoami endpoint. Fetched once per session, then immutable.
type DeviceInfo struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}
