package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"guestfy/pkg/domain"
)

const (
	sqlitePrefix = "sqlite:"
	// appendAttempts bounds retries when concurrent appends race for a seq.
	appendAttempts = 5
)

// OpenDB opens a Postgres DSN, or a SQLite file when dsn starts with "sqlite:".
func OpenDB(dsn string) (*gorm.DB, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return nil, errors.New("database url required")
	}
	var dialector gorm.Dialector
	if strings.HasPrefix(dsn, sqlitePrefix) {
		dialector = sqlite.Open(strings.TrimPrefix(dsn, sqlitePrefix))
	} else {
		dialector = postgres.Open(dsn)
	}
	db, err := gorm.Open(dialector, &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	return db, nil
}

// GormConversations implements Conversations on top of GORM.
type GormConversations struct {
	db      *gorm.DB
	now     func() time.Time
	clients []domain.Client
}

// GormOptions configures GormConversations.
type GormOptions struct {
	Now func() time.Time
	// Clients are assigned to conversations created by AppendMessage.
	Clients []domain.Client
}

// NewGormConversations runs migrations on db.
func NewGormConversations(db *gorm.DB, opts GormOptions) (*GormConversations, error) {
	if db == nil {
		return nil, errors.New("db required")
	}
	if err := db.AutoMigrate(&ConversationModel{}, &MessageModel{}); err != nil {
		return nil, fmt.Errorf("auto migrate: %w", err)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if len(opts.Clients) == 0 {
		opts.Clients = append([]domain.Client(nil), seedClients...)
	}
	return &GormConversations{db: db, now: opts.Now, clients: opts.Clients}, nil
}

// SeedIfEmpty inserts conversations when the table has no rows.
func (s *GormConversations) SeedIfEmpty(ctx context.Context, conversations []domain.Conversation) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&ConversationModel{}).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return nil
		}
		for i, c := range conversations {
			model, err := conversationToModel(c.ID, c.Client, i, s.now())
			if err != nil {
				return err
			}
			if err := tx.Create(&model).Error; err != nil {
				return err
			}
			for j, m := range c.Messages {
				msg := messageToModel(m, int64(j+1))
				if err := tx.Create(&msg).Error; err != nil {
					return err
				}
			}
		}
		return nil
	})
}

func (s *GormConversations) ListConversations(ctx context.Context) ([]domain.Conversation, error) {
	db := s.db.WithContext(ctx)
	var models []ConversationModel
	if err := db.Order("position ASC").Find(&models).Error; err != nil {
		return nil, err
	}
	var msgs []MessageModel
	if err := db.Order("conversation_id ASC, seq ASC").Find(&msgs).Error; err != nil {
		return nil, err
	}
	byConversation := make(map[string][]domain.Message, len(models))
	for _, m := range msgs {
		byConversation[m.ConversationID] = append(byConversation[m.ConversationID], messageFromModel(m))
	}
	out := make([]domain.Conversation, 0, len(models))
	for _, m := range models {
		c, err := conversationFromModel(m, byConversation[m.ID])
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

func (s *GormConversations) GetConversation(ctx context.Context, id string) (domain.Conversation, bool, error) {
	var model ConversationModel
	if err := s.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Conversation{}, false, nil
		}
		return domain.Conversation{}, false, err
	}
	msgs, err := s.ListMessages(ctx, id)
	if err != nil {
		return domain.Conversation{}, false, err
	}
	c, err := conversationFromModel(model, msgs)
	if err != nil {
		return domain.Conversation{}, false, err
	}
	return c, true, nil
}

func (s *GormConversations) ListMessages(ctx context.Context, conversationID string) ([]domain.Message, error) {
	var models []MessageModel
	if err := s.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("seq ASC").
		Find(&models).Error; err != nil {
		return nil, err
	}
	out := make([]domain.Message, 0, len(models))
	for _, m := range models {
		out = append(out, messageFromModel(m))
	}
	return out, nil
}

// AppendMessage stores msg after the last message of its conversation,
// creating the conversation when it does not exist yet.
func (s *GormConversations) AppendMessage(ctx context.Context, msg domain.Message) (domain.Message, error) {
	if strings.TrimSpace(msg.ConversationID) == "" {
		return domain.Message{}, errConversationIDRequired
	}
	msg = completeMessage(msg, s.now())
	err := retryOnConflict(appendAttempts, func() error {
		return s.appendOnce(ctx, msg)
	})
	if err != nil {
		return domain.Message{}, err
	}
	return msg, nil
}

// appendOnce writes msg at MAX(seq)+1. The (conversation_id, seq) unique
// index turns a lost race into gorm.ErrDuplicatedKey.
func (s *GormConversations) appendOnce(ctx context.Context, msg domain.Message) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing int64
		if err := tx.Model(&ConversationModel{}).Where("id = ?", msg.ConversationID).Count(&existing).Error; err != nil {
			return err
		}
		if existing == 0 {
			var total int64
			if err := tx.Model(&ConversationModel{}).Count(&total).Error; err != nil {
				return err
			}
			client := s.clients[int(total)%len(s.clients)]
			model, err := conversationToModel(msg.ConversationID, client, int(total), s.now())
			if err != nil {
				return err
			}
			if err := tx.Create(&model).Error; err != nil {
				return err
			}
		}
		var last struct{ Seq int64 }
		if err := tx.Model(&MessageModel{}).
			Select("COALESCE(MAX(seq), 0) AS seq").
			Where("conversation_id = ?", msg.ConversationID).
			Scan(&last).Error; err != nil {
			return err
		}
		model := messageToModel(msg, last.Seq+1)
		return tx.Create(&model).Error
	})
}

func retryOnConflict(attempts int, fn func() error) error {
	var err error
	for i := 0; i < attempts; i++ {
		if err = fn(); !errors.Is(err, gorm.ErrDuplicatedKey) {
			return err
		}
	}
	return fmt.Errorf("append message: %w", err)
}

func (s *GormConversations) MarkRead(ctx context.Context, conversationID string) error {
	return s.db.WithContext(ctx).
		Model(&MessageModel{}).
		Where("conversation_id = ? AND is_read = ?", conversationID, false).
		Update("is_read", true).Error
}

func conversationToModel(id string, client domain.Client, position int, now time.Time) (ConversationModel, error) {
	raw, err := json.Marshal(client)
	if err != nil {
		return ConversationModel{}, fmt.Errorf("encode client: %w", err)
	}
	return ConversationModel{
		ID:        id,
		ClientID:  client.ID,
		Client:    datatypes.JSON(raw),
		Position:  position,
		CreatedAt: now,
	}, nil
}

func conversationFromModel(m ConversationModel, msgs []domain.Message) (domain.Conversation, error) {
	var client domain.Client
	if len(m.Client) > 0 {
		if err := json.Unmarshal(m.Client, &client); err != nil {
			return domain.Conversation{}, fmt.Errorf("decode client for %s: %w", m.ID, err)
		}
	}
	if msgs == nil {
		msgs = []domain.Message{}
	}
	c := domain.Conversation{
		ID:       m.ID,
		ClientID: m.ClientID,
		Client:   client,
		Messages: msgs,
	}
	c.Refresh()
	return c, nil
}

func messageToModel(m domain.Message, seq int64) MessageModel {
	return MessageModel{
		ID:             m.ID,
		ConversationID: m.ConversationID,
		Seq:            seq,
		Sender:         string(m.Sender),
		Content:        m.Content,
		Read:           m.Read,
		Timestamp:      m.Timestamp.UTC(),
	}
}

func messageFromModel(m MessageModel) domain.Message {
	return domain.Message{
		ID:             m.ID,
		ConversationID: m.ConversationID,
		Sender:         domain.Sender(m.Sender),
		Content:        m.Content,
		Timestamp:      m.Timestamp,
		Read:           m.Read,
	}
}
