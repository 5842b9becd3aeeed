package repo

import (
	"context"
	"errors"
	"jarvis-backend/internal/models"
	"jarvis-backend/internal/repo/repotest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestChatRepo_FindByIDAndUser(t *testing.T) {
	db := repotest.OpenDB(t)
	ctx := context.Background()
	owner := repotest.SeedUser(t, db, "sher", true)
	other := repotest.SeedUser(t, db, "mallory", true)
	chat := repotest.SeedChat(t, db, owner.ID, "Travel", models.LanguageEN)

	r := NewChatRepository(db)
	for _, text := range []string{"one", "two", "three"} {
		require.NoError(t, r.CreateMessage(ctx, &models.Message{ChatID: chat.ID, UserID: owner.ID, Text: text}))
	}

	found, err := r.FindByIDAndUser(ctx, chat.ID, owner.ID)
	require.NoError(t, err)
	assert.Equal(t, "Travel", found.Title)
	require.Len(t, found.Messages, 3)
	assert.Equal(t, "one", found.Messages[0].Text)
	assert.Equal(t, "three", found.Messages[2].Text)

	_, err = r.FindByIDAndUser(ctx, chat.ID, other.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	_, err = r.FindByIDAndUser(ctx, chat.ID+100, owner.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestChatRepo_GetChatHistory(t *testing.T) {
	db := repotest.OpenDB(t)
	ctx := context.Background()
	user := repotest.SeedUser(t, db, "sher", true)
	chat := repotest.SeedChat(t, db, user.ID, "Travel", models.LanguageEN)
	r := NewChatRepository(db)

	require.NoError(t, r.CreateHumanAndAiMessages(ctx,
		&models.Message{ChatID: chat.ID, UserID: user.ID, Text: "q1"},
		&models.Message{ChatID: chat.ID, UserID: user.ID, AI: true, Text: "a1"},
	))
	require.NoError(t, r.CreateHumanAndAiMessages(ctx,
		&models.Message{ChatID: chat.ID, UserID: user.ID, Text: "q2"},
		&models.Message{ChatID: chat.ID, UserID: user.ID, AI: true, Text: "a2"},
	))

	all, err := r.GetChatHistory(ctx, chat.ID, 0)
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.Equal(t, models.RoleUser, all[0].Role)
	assert.Equal(t, "q1", all[0].Content)
	assert.Equal(t, models.RoleAssistant, all[3].Role)
	assert.Equal(t, "a2", all[3].Content)

	last, err := r.GetChatHistory(ctx, chat.ID, 2)
	require.NoError(t, err)
	require.Len(t, last, 2)
	assert.Equal(t, "q2", last[0].Content)
	assert.Equal(t, "a2", last[1].Content)
}

func TestChatRepo_CreateHumanAndAiMessages_Rollback(t *testing.T) {
	db := repotest.OpenDB(t)
	ctx := context.Background()
	user := repotest.SeedUser(t, db, "sher", true)
	chat := repotest.SeedChat(t, db, user.ID, "Travel", models.LanguageEN)

	require.NoError(t, db.Callback().Create().Before("gorm:create").Register("test:fail_ai", func(tx *gorm.DB) {
		if m, ok := tx.Statement.Dest.(*models.Message); ok && m.AI {
			_ = tx.AddError(errors.New("disk full"))
		}
	}))

	err := NewChatRepository(db).CreateHumanAndAiMessages(ctx,
		&models.Message{ChatID: chat.ID, UserID: user.ID, Text: "q"},
		&models.Message{ChatID: chat.ID, UserID: user.ID, AI: true, Text: "a"},
	)
	assert.ErrorContains(t, err, "disk full")
	assert.Equal(t, int64(0), repotest.CountMessages(t, db, chat.ID))
}

func TestChatRepo_AttachmentsAndAudio(t *testing.T) {
	db := repotest.OpenDB(t)
	ctx := context.Background()
	user := repotest.SeedUser(t, db, "sher", true)
	chat := repotest.SeedChat(t, db, user.ID, "Travel", models.LanguageEN)
	r := NewChatRepository(db)

	audio := "https://storage.googleapis.com/b/audios/1/x.mp3"
	human := &models.Message{ChatID: chat.ID, UserID: user.ID, Text: "look"}
	require.NoError(t, human.SetAttachmentURLs([]string{"https://storage.googleapis.com/b/photos/1/a.png"}))
	ai := &models.Message{ChatID: chat.ID, UserID: user.ID, AI: true, Text: "a cat", AudioSource: &audio}
	require.NoError(t, r.CreateHumanAndAiMessages(ctx, human, ai))
	assert.Less(t, human.ID, ai.ID)

	messages, err := r.GetMessages(ctx, chat.ID)
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, []string{"https://storage.googleapis.com/b/photos/1/a.png"}, messages[0].AttachmentURLs())
	assert.Nil(t, messages[0].AudioSource)
	require.NotNil(t, messages[1].AudioSource)
	assert.Equal(t, audio, *messages[1].AudioSource)
}

func TestUserRepo(t *testing.T) {
	db := repotest.OpenDB(t)
	ctx := context.Background()
	r := NewUserRepository(db)

	user := &models.User{Email: "sher@example.com", Username: "sher", PasswordHash: "h", IsActive: true}
	require.NoError(t, r.CreateUser(ctx, user))

	byEmail, err := r.FindByEmailOrUsername(ctx, "sher@example.com")
	require.NoError(t, err)
	assert.Equal(t, user.ID, byEmail.ID)

	byName, err := r.FindByEmailOrUsername(ctx, "sher")
	require.NoError(t, err)
	assert.Equal(t, user.ID, byName.ID)

	byID, err := r.FindByID(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, byID.IsActive)

	_, err = r.FindByID(ctx, 999)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	assert.Error(t, r.CreateUser(ctx, &models.User{Email: "sher@example.com", Username: "other", PasswordHash: "h"}))
}
