package domain

import "time"

// MessageSource identifies which chat transport delivered a message.
type MessageSource string

const (
	SourceLine  MessageSource = "line"
	SourceKakao MessageSource = "kakao"
)

type CommandContext struct {
	Source      MessageSource
	Room        string
	RoomName    string
	Sender      string
	IsGroupChat bool
	Message     string
	ReplyToken  string
	Timestamp   time.Time
}

func NewCommandContext(source MessageSource, room, roomName, sender, message string, isGroupChat bool) *CommandContext {
	return &CommandContext{
		Source:      source,
		Room:        room,
		RoomName:    roomName,
		Sender:      sender,
		IsGroupChat: isGroupChat,
		Message:     message,
		Timestamp:   time.Now(),
	}
}
