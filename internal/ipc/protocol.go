// Package ipc carries one JSON request and one JSON response per unix-socket connection.
package ipc

// Commands understood by the owner daemon.
const (
	CommandStatus   = "status"
	CommandStart    = "start"
	CommandStop     = "stop"
	CommandToggle   = "toggle"
	CommandSettings = "settings"
)

// Request is one inbound command. Language and OnDevice are only read by "settings".
type Request struct {
	Command  string `json:"command"`
	Language string `json:"language,omitempty"`
	OnDevice *bool  `json:"on_device,omitempty"`
}

// Response is the owner's reply. State is the session state after the command ran.
type Response struct {
	OK         bool   `json:"ok"`
	State      string `json:"state,omitempty"`
	Message    string `json:"message,omitempty"`
	Error      string `json:"error,omitempty"`
	Transcript string `json:"transcript,omitempty"`
	Language   string `json:"language,omitempty"`
	OnDevice   *bool  `json:"on_device,omitempty"`
}
