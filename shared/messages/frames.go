package messages

// WorldFrame carries one binary world snapshot, see protocol.DecodeSnapshot.
type WorldFrame struct {
	Data []byte
}

// InputFrame carries one encoded tick of local input, see protocol.EncodeInputFrame.
type InputFrame struct {
	Data []byte
}

// TimeSyncRequest asks the server to echo ClientSendMs with its own clock.
type TimeSyncRequest struct {
	ClientSendMs float64
}

// TimeSyncResponse answers a TimeSyncRequest.
type TimeSyncResponse struct {
	ClientSendMs float64
	ServerMs     float64
}
