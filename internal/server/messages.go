package server

// ClientMessage is the flat tagged union read off the wire. Type selects the
// operation; the other fields are per-type and validated by the handler.
type ClientMessage struct {
	Type        string `json:"type"`
	InitData    string `json:"initData,omitempty"`    // auth
	RoomID      string `json:"roomId,omitempty"`      // join_room
	Card        string `json:"card,omitempty"`        // attack, defend
	AttackIndex *int   `json:"attackIndex,omitempty"` // defend
}
