package application

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/homelet/service-classifieds/internal/domain/chat"
	"github.com/homelet/service-classifieds/internal/domain/user"
	"github.com/homelet/service-classifieds/pkg/domain"
	"github.com/homelet/service-classifieds/pkg/events"
	"github.com/homelet/service-classifieds/pkg/kafka"
)

// MessageDTO is the wire representation of a chat message, shared by the
// REST surface and the realtime fan-out.
type MessageDTO struct {
	ID          uuid.UUID `json:"id"`
	SenderID    uuid.UUID `json:"sender"`
	RecipientID uuid.UUID `json:"recipient"`
	Content     string    `json:"content"`
	Timestamp   time.Time `json:"timestamp"`
	IsRead      bool      `json:"is_read"`
}

func toMessageDTO(m *chat.Message) MessageDTO {
	return MessageDTO{
		ID:          m.ID,
		SenderID:    m.SenderID,
		RecipientID: m.RecipientID,
		Content:     m.Content,
		Timestamp:   m.Timestamp,
		IsRead:      m.IsRead,
	}
}

// ChatService is the application service for direct messages.
type ChatService struct {
	msgRepo  chat.Repository
	userRepo user.Repository
	producer *kafka.Producer
	logger   *zap.Logger
}

// NewChatService creates a new ChatService.
func NewChatService(msgRepo chat.Repository, userRepo user.Repository, producer *kafka.Producer, logger *zap.Logger) *ChatService {
	return &ChatService{msgRepo: msgRepo, userRepo: userRepo, producer: producer, logger: logger}
}

// Send persists a message and publishes the sent event. The persisted
// row is the source of truth; realtime delivery happens after commit.
func (s *ChatService) Send(ctx context.Context, senderID, recipientID uuid.UUID, content string) (*MessageDTO, error) {
	msg, err := chat.NewMessage(senderID, recipientID, content)
	if err != nil {
		return nil, err
	}
	if err := s.msgRepo.Save(ctx, msg); err != nil {
		return nil, err
	}

	senderName := ""
	if sender, err := s.userRepo.FindByID(ctx, senderID); err == nil {
		senderName = sender.Username
	}
	s.publish(ctx, events.MessageSent, events.MessageSentEvent{
		MessageID:   msg.ID,
		SenderID:    senderID,
		SenderName:  senderName,
		RecipientID: recipientID,
		Content:     msg.Content,
		OccurredAt:  msg.Timestamp,
	})

	dto := toMessageDTO(msg)
	return &dto, nil
}

// Thread returns the conversation with another user and marks the
// other side's unread messages read.
func (s *ChatService) Thread(ctx context.Context, userID, otherID uuid.UUID) ([]MessageDTO, error) {
	messages, err := s.msgRepo.ListThread(ctx, userID, otherID)
	if err != nil {
		return nil, err
	}
	if err := s.msgRepo.MarkThreadRead(ctx, userID, otherID); err != nil {
		s.logger.Warn("failed to mark thread read", zap.Error(err))
	}

	dtos := make([]MessageDTO, len(messages))
	for i, m := range messages {
		dtos[i] = toMessageDTO(m)
	}
	return dtos, nil
}

// ListForUser returns everything the user sent or received.
func (s *ChatService) ListForUser(ctx context.Context, userID uuid.UUID) ([]MessageDTO, error) {
	messages, err := s.msgRepo.ListForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	dtos := make([]MessageDTO, len(messages))
	for i, m := range messages {
		dtos[i] = toMessageDTO(m)
	}
	return dtos, nil
}

// Delete removes a message. Only the sender may delete it.
func (s *ChatService) Delete(ctx context.Context, userID, messageID uuid.UUID) error {
	msg, err := s.msgRepo.FindByID(ctx, messageID)
	if err != nil {
		return err
	}
	if msg.SenderID != userID {
		return domain.NewPermissionError("only the sender can delete a message")
	}
	return s.msgRepo.Delete(ctx, messageID)
}

func (s *ChatService) publish(ctx context.Context, eventType string, data interface{}) {
	if s.producer == nil {
		return
	}
	ce, err := kafka.NewCloudEvent(events.EventSource, eventType, data)
	if err != nil {
		s.logger.Error("failed to build cloud event", zap.String("type", eventType), zap.Error(err))
		return
	}
	if err := s.producer.PublishEvent(ctx, events.TopicClassifiedsEvents, ce); err != nil {
		s.logger.Error("failed to publish event", zap.String("type", eventType), zap.Error(err))
	}
}
