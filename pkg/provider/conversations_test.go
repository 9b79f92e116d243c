package provider

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"gorm.io/gorm"

	"guestfy/pkg/domain"
)

func exerciseConversations(t *testing.T, p Conversations) {
	t.Helper()
	ctx := context.Background()

	list, err := p.ListConversations(ctx)
	if err != nil {
		t.Fatalf("list conversations: %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("expected 3 conversations, got %d", len(list))
	}
	got := []int{list[0].UnreadCount, list[1].UnreadCount, list[2].UnreadCount}
	if got[0] != 0 || got[1] != 1 || got[2] != 0 {
		t.Fatalf("unexpected unread counts: %v", got)
	}
	if list[1].Client.FirstName != "Jane" {
		t.Fatalf("expected round-robin client, got %s", list[1].Client.FirstName)
	}
	if want := seedNow.Add(-10 * time.Minute); !list[1].LastMessageTimestamp.Equal(want) {
		t.Fatalf("unexpected last timestamp %v want %v", list[1].LastMessageTimestamp, want)
	}

	sent, err := p.AppendMessage(ctx, domain.Message{ConversationID: "conversation-2", Sender: domain.SenderAgent, Content: "Yes, the code is 4821", Timestamp: seedNow})
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if !sent.Read || sent.ID == "" {
		t.Fatalf("agent message should be read with an id: %+v", sent)
	}
	guest, err := p.AppendMessage(ctx, domain.Message{ConversationID: "conversation-2", Sender: domain.SenderGuest, Content: "Thanks!", Timestamp: seedNow.Add(time.Second), Read: true})
	if err != nil {
		t.Fatalf("append guest: %v", err)
	}
	if guest.Read {
		t.Fatalf("guest message should be stored unread")
	}
	msgs, err := p.ListMessages(ctx, "conversation-2")
	if err != nil {
		t.Fatalf("list messages: %v", err)
	}
	if len(msgs) != 5 || msgs[3].ID != sent.ID || msgs[4].ID != guest.ID {
		t.Fatalf("expected appended messages at tail, got %d", len(msgs))
	}

	if err := p.MarkRead(ctx, "conversation-2"); err != nil {
		t.Fatalf("mark read: %v", err)
	}
	c, ok, err := p.GetConversation(ctx, "conversation-2")
	if err != nil || !ok {
		t.Fatalf("get conversation: ok=%v err=%v", ok, err)
	}
	if c.UnreadCount != 0 {
		t.Fatalf("expected unread 0 after mark read, got %d", c.UnreadCount)
	}

	if _, err := p.AppendMessage(ctx, domain.Message{ConversationID: "conversation-new", Sender: domain.SenderGuest, Content: "Hello?", Timestamp: seedNow}); err != nil {
		t.Fatalf("append to new conversation: %v", err)
	}
	list, err = p.ListConversations(ctx)
	if err != nil {
		t.Fatalf("list conversations: %v", err)
	}
	if len(list) != 4 || list[3].ID != "conversation-new" || list[3].UnreadCount != 1 {
		t.Fatalf("expected new conversation appended, got %d", len(list))
	}
	if list[3].Client.ID != "client-4" {
		t.Fatalf("expected fourth client for new conversation, got %s", list[3].Client.ID)
	}
	if _, ok, _ := p.GetConversation(ctx, "missing"); ok {
		t.Fatalf("expected missing conversation")
	}
	if err := p.MarkRead(ctx, "missing"); err != nil {
		t.Fatalf("mark read on missing conversation: %v", err)
	}
}

func TestMemoryConversations(t *testing.T) {
	exerciseConversations(t, NewMemoryConversations(Options{Now: fixedNow}, nil))
}

func TestGormConversations(t *testing.T) {
	db, err := OpenDB("sqlite:" + filepath.Join(t.TempDir(), "guestfy.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	p, err := NewGormConversations(db, GormOptions{Now: fixedNow})
	if err != nil {
		t.Fatalf("new gorm conversations: %v", err)
	}
	seed, err := NewMemoryConversations(Options{Now: fixedNow}, nil).ListConversations(context.Background())
	if err != nil {
		t.Fatalf("seed conversations: %v", err)
	}
	if err := p.SeedIfEmpty(context.Background(), seed); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if err := p.SeedIfEmpty(context.Background(), seed[:1]); err != nil {
		t.Fatalf("seed again: %v", err)
	}
	exerciseConversations(t, p)
}

func TestGormMessageSeqIsUnique(t *testing.T) {
	ctx := context.Background()
	db, err := OpenDB("sqlite:" + filepath.Join(t.TempDir(), "guestfy.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	p, err := NewGormConversations(db, GormOptions{Now: fixedNow})
	if err != nil {
		t.Fatalf("new gorm conversations: %v", err)
	}
	for i := 0; i < 3; i++ {
		if _, err := p.AppendMessage(ctx, domain.Message{ConversationID: "conv-9", Sender: domain.SenderGuest, Content: "hi"}); err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
	}
	var seqs []int64
	if err := db.Model(&MessageModel{}).Where("conversation_id = ?", "conv-9").Order("seq").Pluck("seq", &seqs).Error; err != nil {
		t.Fatalf("load seqs: %v", err)
	}
	if len(seqs) != 3 || seqs[0] != 1 || seqs[2] != 3 {
		t.Fatalf("unexpected seqs: %v", seqs)
	}

	dup := MessageModel{ID: "dup", ConversationID: "conv-9", Seq: 2, Sender: string(domain.SenderGuest), Content: "x", Timestamp: fixedNow()}
	if err := db.Create(&dup).Error; !errors.Is(err, gorm.ErrDuplicatedKey) {
		t.Fatalf("expected duplicate key for a reused seq, got: %v", err)
	}
}

func TestRetryOnConflict(t *testing.T) {
	calls := 0
	err := retryOnConflict(3, func() error {
		calls++
		if calls < 2 {
			return gorm.ErrDuplicatedKey
		}
		return nil
	})
	if err != nil || calls != 2 {
		t.Fatalf("expected success on second attempt, calls=%d err=%v", calls, err)
	}

	calls = 0
	err = retryOnConflict(3, func() error {
		calls++
		return gorm.ErrDuplicatedKey
	})
	if !errors.Is(err, gorm.ErrDuplicatedKey) || calls != 3 {
		t.Fatalf("expected exhausted retries, calls=%d err=%v", calls, err)
	}

	boom := errors.New("disk full")
	calls = 0
	if err := retryOnConflict(3, func() error { calls++; return boom }); !errors.Is(err, boom) || calls != 1 {
		t.Fatalf("expected other errors to return at once, calls=%d err=%v", calls, err)
	}
}

func TestOpenDBRequiresDSN(t *testing.T) {
	if _, err := OpenDB("  "); err == nil {
		t.Fatalf("expected error for empty dsn")
	}
}
