package log

const (
	// Connection
	FieldEndpoint = "endpoint"
	FieldClientID = "client_id"
	FieldState    = "state"

	// Wire
	FieldFrameType = "frame_type"
	FieldFrameSize = "frame_size"

	// Actor / chat
	FieldUserID    = "user_id"
	FieldUsername  = "username"
	FieldChatID    = "chat_id"
	FieldMessageID = "message_id"

	// Service
	FieldService = "service"
)
