package chat

import (
	"context"
	"errors"
	"slices"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/oggyb/tembichat/internal/app"
	"github.com/oggyb/tembichat/internal/db"
	svcErr "github.com/oggyb/tembichat/internal/errors"
	"github.com/oggyb/tembichat/internal/lock"
	"github.com/oggyb/tembichat/internal/metrics"
	"github.com/oggyb/tembichat/internal/repository"
)

// InboxEntry summarizes one match for the chat list.
type InboxEntry struct {
	MatchID     string      `json:"matchId"`
	User        *db.User    `json:"user"`
	LastMessage *db.Message `json:"lastMessage"`
	UnreadCount int64       `json:"unreadCount"`
	MatchedAt   time.Time   `json:"matchedAt"`
}

// lastActivity is when the conversation last changed.
func (e InboxEntry) lastActivity() time.Time {
	if e.LastMessage != nil {
		return e.LastMessage.CreatedAt
	}
	return e.MatchedAt
}

// Service stores messages and enforces the send quota.
type Service struct {
	appCtx *app.AppContext
}

func NewService(appCtx *app.AppContext) *Service {
	return &Service{appCtx: appCtx}
}

// Conversation returns the messages between the two users, oldest first.
// It never changes read state.
func (s *Service) Conversation(ctx context.Context, userID, peerID string) ([]db.Message, error) {
	msgs, err := s.appCtx.Store.Messages.Conversation(ctx, userID, peerID)
	if err != nil {
		return nil, svcErr.Map(err)
	}
	if msgs == nil {
		msgs = []db.Message{}
	}
	return msgs, nil
}

// ReadConversation is what opening a chat does: everything peer sent to
// reader is marked read, then the whole conversation is returned.
func (s *Service) ReadConversation(ctx context.Context, readerID, peerID string) ([]db.Message, error) {
	if _, err := s.MarkRead(ctx, readerID, peerID); err != nil {
		return nil, err
	}
	return s.Conversation(ctx, readerID, peerID)
}

// MarkRead flags every message addressed to reader in the conversation as
// read and returns how many changed.
func (s *Service) MarkRead(ctx context.Context, readerID, peerID string) (int64, error) {
	n, err := s.appCtx.Store.Messages.MarkRead(ctx, readerID, peerID)
	if err != nil {
		return 0, svcErr.Map(err)
	}
	return n, nil
}

// Send stores a message from sender to receiver and consumes quota.
//
// Behavior:
//   - receiverID and content are required → ErrMissingFields.
//   - The sender must exist → ErrSenderNotFound.
//   - A non-premium sender with messageCount <= 0 → ErrQuotaExceeded and
//     nothing is written.
//   - A non-premium sender's messageCount drops by exactly one; premium
//     senders are not metered.
//
// The check, insert and decrement run under the sender's lock in one
// transaction, so parallel sends cannot overspend the quota.
func (s *Service) Send(ctx context.Context, senderID, receiverID, content string) (*db.Message, error) {
	s.appCtx.Logger.Debug("Send called", "sender", senderID, "receiver", receiverID)

	var missing []string
	if receiverID == "" {
		missing = append(missing, "receiverId")
	}
	if strings.TrimSpace(content) == "" {
		missing = append(missing, "content")
	}
	if len(missing) > 0 {
		return nil, svcErr.ErrMissingFields.WithFields(missing...)
	}

	unlock := s.appCtx.Locks.Lock(lock.UserKey(senderID))
	defer unlock()

	msg := &db.Message{
		ID:         db.NewMessageID(),
		SenderID:   senderID,
		ReceiverID: receiverID,
		Content:    content,
		CreatedAt:  s.appCtx.Now(),
	}
	err := s.appCtx.Store.Transaction(ctx, func(tx *repository.Store) error {
		sender, err := tx.Users.GetByID(ctx, senderID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return svcErr.ErrSenderNotFound
		}
		if err != nil {
			return err
		}

		if !sender.IsPremium && sender.MessageCount <= 0 {
			return svcErr.ErrQuotaExceeded
		}

		if err := tx.Messages.Create(ctx, msg); err != nil {
			return err
		}
		if !sender.IsPremium {
			return tx.Users.DecrementMessageCount(ctx, senderID)
		}
		return nil
	})
	if errors.Is(err, svcErr.ErrQuotaExceeded) {
		metrics.RecordQuotaRejection()
		s.appCtx.Logger.Warn("message quota exhausted", "sender", senderID)
		return nil, err
	}
	if err != nil {
		s.appCtx.Logger.Error("send message failed", "sender", senderID, "err", err)
		return nil, svcErr.Map(err)
	}

	metrics.RecordMessage()
	return msg, nil
}

// Inbox lists every match of userID with its last message and unread
// count, most recently active first.
func (s *Service) Inbox(ctx context.Context, userID string) ([]InboxEntry, error) {
	matches, err := s.appCtx.Store.Matches.ListForUser(ctx, userID)
	if err != nil {
		return nil, svcErr.Map(err)
	}

	ids := make([]string, 0, len(matches))
	for _, m := range matches {
		ids = append(ids, m.Other(userID))
	}
	users, err := s.appCtx.Store.Users.GetMany(ctx, ids)
	if err != nil {
		return nil, svcErr.Map(err)
	}
	byID := make(map[string]*db.User, len(users))
	for i := range users {
		byID[users[i].ID] = &users[i]
	}

	entries := make([]InboxEntry, 0, len(matches))
	for _, m := range matches {
		peer, ok := byID[m.Other(userID)]
		if !ok {
			continue
		}
		last, err := s.appCtx.Store.Messages.LastMessage(ctx, userID, peer.ID)
		if err != nil {
			return nil, svcErr.Map(err)
		}
		unread, err := s.appCtx.Store.Messages.UnreadCount(ctx, userID, peer.ID)
		if err != nil {
			return nil, svcErr.Map(err)
		}
		entries = append(entries, InboxEntry{
			MatchID:     m.ID,
			User:        peer,
			LastMessage: last,
			UnreadCount: unread,
			MatchedAt:   m.MatchedAt,
		})
	}

	slices.SortStableFunc(entries, func(a, b InboxEntry) int {
		return b.lastActivity().Compare(a.lastActivity())
	})
	return entries, nil
}
