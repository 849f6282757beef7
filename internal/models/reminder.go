package models

// ReminderMessage сообщение очереди напоминаний.
type ReminderMessage struct {
	SubjectID string `json:"subject_id"`
	Channel   string `json:"channel"`
	Term      string `json:"term"`
	Tone      string `json:"tone"`
	Text      string `json:"text"`
}
