package v1

// Type constants (wire-stable).
const (
	// TypeConnect announces the session identity right after the socket opens (client -> server).
	TypeConnect = "connect"
	// TypeSOSNotification carries an emergency alert (client -> server).
	TypeSOSNotification = "sos_notification"
	// TypeError is a generic error envelope (server -> client).
	TypeError = "error"
)

// ConnectPayload announces who owns this connection.
type ConnectPayload struct {
	UserID  string `json:"userId"`
	IsAdmin bool   `json:"isAdmin"`
}

// SOSNotificationPayload is the emergency alert body.
type SOSNotificationPayload struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Msg       string  `json:"msg"`
}

// ErrorPayload is a generic error response payload.
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
