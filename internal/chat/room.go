package chat

// RoomInfo is one entry of GET /rooms.
type RoomInfo struct {
	RoomID       string   `json:"room_id"`
	RoomName     string   `json:"room_name"`
	UserCount    int      `json:"user_count"`
	ActiveUsers  []string `json:"active_users,omitempty"`
	MessageCount int      `json:"message_count"`
}

// DisplayName falls back to the id when the server sent no name.
func (r RoomInfo) DisplayName() string {
	if r.RoomName != "" {
		return r.RoomName
	}
	return r.RoomID
}

// Credentials is the body of POST /login and POST /register.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Result is the reply of the account and room-creation endpoints. The
// contract is opaque: only Success is interpreted.
type Result struct {
	Success bool   `json:"success"`
	Msg     string `json:"msg"`
}

// NewRoom is the body of POST /rooms.
type NewRoom struct {
	RoomID   string `json:"room_id"`
	RoomName string `json:"room_name"`
}
