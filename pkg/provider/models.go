package provider

import (
	"time"

	"gorm.io/datatypes"
)

// GORM models used for conversation persistence.
type ConversationModel struct {
	ID        string         `gorm:"primaryKey"`
	ClientID  string         `gorm:"not null;index"`
	Client    datatypes.JSON `gorm:"not null"`
	Position  int            `gorm:"not null;index"`
	CreatedAt time.Time      `gorm:"not null"`
}

func (ConversationModel) TableName() string { return "conversations" }

type MessageModel struct {
	ID             string    `gorm:"primaryKey"`
	ConversationID string    `gorm:"not null;uniqueIndex:idx_conversation_seq,priority:1"`
	Seq            int64     `gorm:"not null;uniqueIndex:idx_conversation_seq,priority:2"`
	Sender         string    `gorm:"not null"`
	Content        string    `gorm:"not null"`
	Read           bool      `gorm:"column:is_read;not null"`
	Timestamp      time.Time `gorm:"not null;index"`
}

func (MessageModel) TableName() string { return "messages" }
