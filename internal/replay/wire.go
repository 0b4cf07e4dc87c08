package replay

// FrameRequest is sent by the viewer over the frame socket.
type FrameRequest struct {
	FrameNo int    `json:"frame_no"`
	Seq     uint64 `json:"seq"`
}

// FrameReply answers one FrameRequest. Exactly one of Frame and Error is set.
// Replies on one socket may arrive in any order.
type FrameReply struct {
	Seq   uint64 `json:"seq"`
	Frame *Frame `json:"frame,omitempty"`
	Error string `json:"error,omitempty"`
}

// SessionHeader carries a viewer's session id on every request so that
// server logs can be grouped per viewer.
const SessionHeader = "X-Amv-Session"
