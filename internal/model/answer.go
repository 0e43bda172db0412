package model

type Answer struct {
	Text    string   `json:"answer"`
	Sources []string `json:"sources"`
}

type TextMessage struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

func NewTextMessage(text string) TextMessage {
	return TextMessage{Type: "text", Text: text}
}
