package model

type EventType string

const (
	EventTypeMessage EventType = "message"
)

type SourceType string

const (
	SourceTypeUser  SourceType = "user"
	SourceTypeGroup SourceType = "group"
	SourceTypeRoom  SourceType = "room"
)

type ConversationContext int

const (
	ConversationUnknown ConversationContext = iota
	ConversationDirect
	ConversationShared
)

func (c ConversationContext) String() string {
	switch c {
	case ConversationDirect:
		return "direct"
	case ConversationShared:
		return "shared"
	default:
		return "unknown"
	}
}

type WebhookPayload struct {
	Destination string      `json:"destination"`
	Events      []ChatEvent `json:"events"`
}

type ChatEvent struct {
	Type            EventType        `json:"type"`
	Message         *EventMessage    `json:"message,omitempty"`
	ReplyToken      string           `json:"replyToken"`
	Source          EventSource      `json:"source"`
	Timestamp       int64            `json:"timestamp"`
	WebhookEventID  string           `json:"webhookEventId"`
	DeliveryContext *DeliveryContext `json:"deliveryContext,omitempty"`
}

type EventMessage struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Text string `json:"text"`
}

type DeliveryContext struct {
	IsRedelivery bool `json:"isRedelivery"`
}

type EventSource struct {
	Type    SourceType `json:"type"`
	UserID  string     `json:"userId,omitempty"`
	GroupID string     `json:"groupId,omitempty"`
	RoomID  string     `json:"roomId,omitempty"`
}

// ID returns the conversation identifier: the group or room for shared
// conversations, otherwise the user.
func (s EventSource) ID() string {
	switch s.Type {
	case SourceTypeGroup:
		return s.GroupID
	case SourceTypeRoom:
		return s.RoomID
	default:
		return s.UserID
	}
}

func (s EventSource) Context() ConversationContext {
	switch s.Type {
	case SourceTypeUser:
		return ConversationDirect
	case SourceTypeGroup, SourceTypeRoom:
		return ConversationShared
	default:
		return ConversationUnknown
	}
}

// TextMessage reports the message text when the event carries a text message.
func (e ChatEvent) TextMessage() (string, bool) {
	if e.Type != EventTypeMessage || e.Message == nil || e.Message.Type != "text" {
		return "", false
	}
	return e.Message.Text, true
}
