package repo

import (
	"context"
	llmHandlers "jarvis-backend/internal/llm_handlers"
	"jarvis-backend/internal/models"

	"gorm.io/gorm"
)

type ChatRepo struct {
	db *gorm.DB
}

type ChatRepoInterface interface {
	FindByIDAndUser(ctx context.Context, chatID, userID uint) (*models.Chat, error)
	GetMessages(ctx context.Context, chatID uint) ([]models.Message, error)
	GetChatHistory(ctx context.Context, chatID uint, size int) ([]llmHandlers.Message, error)
	CreateMessage(ctx context.Context, msg *models.Message) error
	CreateHumanAndAiMessages(ctx context.Context, human, ai *models.Message) error
}

func NewChatRepository(db *gorm.DB) ChatRepoInterface {
	return &ChatRepo{db: db}
}

// FindByIDAndUser loads the chat with its messages when userID owns it.
// A chat owned by someone else reads as gorm.ErrRecordNotFound.
func (r *ChatRepo) FindByIDAndUser(ctx context.Context, chatID, userID uint) (*models.Chat, error) {
	var chat models.Chat
	err := r.db.WithContext(ctx).
		Preload("Messages", func(db *gorm.DB) *gorm.DB {
			return db.Order("id ASC")
		}).
		Where("id = ? AND user_id = ?", chatID, userID).
		First(&chat).Error
	if err != nil {
		return nil, err
	}
	return &chat, nil
}

func (r *ChatRepo) GetMessages(ctx context.Context, chatID uint) ([]models.Message, error) {
	var messages []models.Message
	err := r.db.WithContext(ctx).
		Where("chat_id = ?", chatID).
		Order("id ASC").
		Find(&messages).Error
	return messages, err
}

// GetChatHistory returns the last size messages oldest first; size 0 means all.
// Only text is carried over, earlier attachments are not re-sent.
func (r *ChatRepo) GetChatHistory(ctx context.Context, chatID uint, size int) ([]llmHandlers.Message, error) {
	var messages []models.Message
	query := r.db.WithContext(ctx).
		Model(&models.Message{}).
		Select("id", "ai", "text").
		Where("chat_id = ?", chatID).
		Order("id DESC")
	if size > 0 {
		query = query.Limit(size)
	}
	if err := query.Find(&messages).Error; err != nil {
		return nil, err
	}

	history := make([]llmHandlers.Message, 0, len(messages))
	for i := len(messages) - 1; i >= 0; i-- {
		history = append(history, llmHandlers.Message{
			Role:    messages[i].Role(),
			Content: messages[i].Text,
		})
	}
	return history, nil
}

func (r *ChatRepo) CreateMessage(ctx context.Context, msg *models.Message) error {
	return r.db.WithContext(ctx).Create(msg).Error
}

// CreateHumanAndAiMessages writes both rows in one transaction, human first,
// so the pair is either fully visible or absent.
func (r *ChatRepo) CreateHumanAndAiMessages(ctx context.Context, human, ai *models.Message) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txRepo := &ChatRepo{db: tx}
		if err := txRepo.CreateMessage(ctx, human); err != nil {
			return err
		}
		return txRepo.CreateMessage(ctx, ai)
	})
}
