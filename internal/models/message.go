package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

// Message is a single entry of a chat. Rows are append-only; the primary key
// gives the conversation order.
type Message struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	ChatID      uint           `gorm:"not null;index" json:"chat_id"`
	UserID      uint           `gorm:"not null;index" json:"user_id"`
	AI          bool           `gorm:"not null;default:false" json:"ai"`
	Text        string         `gorm:"type:text;not null" json:"text"`
	AudioSource *string        `json:"audio_source"`
	Attachments datatypes.JSON `json:"attachments,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
}

func (m *Message) Role() Role {
	if m.AI {
		return RoleAssistant
	}
	return RoleUser
}

// AttachmentURLs decodes the stored attachment list. Malformed data reads as empty.
func (m *Message) AttachmentURLs() []string {
	if len(m.Attachments) == 0 {
		return nil
	}
	var urls []string
	if err := json.Unmarshal(m.Attachments, &urls); err != nil {
		return nil
	}
	return urls
}

func (m *Message) SetAttachmentURLs(urls []string) error {
	if len(urls) == 0 {
		m.Attachments = nil
		return nil
	}
	b, err := json.Marshal(urls)
	if err != nil {
		return err
	}
	m.Attachments = datatypes.JSON(b)
	return nil
}
