package prompts

import (
	"fmt"
	"jarvis-backend/internal/models"
	"strings"
)

// ReplyLimit is the character budget the prompt asks the model to respect.
// It is not enforced on the reply.
const ReplyLimit = 1000

var templates = map[models.Language]string{
	models.LanguageEN: "Imagine you're an AI functioning as my personal Jarvis, your name is Jarvis!, and you can call me Sher!, " +
		"assisting me in various tasks. Answer very shortly and clear, your reply limit is %d characters.",
	models.LanguageRU: "Представьте, что вы - ИИ, работающий в качестве моего личного Джарвиса, вас зовут Джарвис!, " +
		"а меня вы можете называть Шер!, и помогающий мне в решении различных задач. " +
		"Отвечайте очень коротко и ясно, ограничение на ответ - %d символов.",
}

var topics = map[models.Language]string{
	models.LanguageEN: " My today's topic is %s",
	models.LanguageRU: " Моя сегодняшняя тема: %s",
}

// SystemPrompt picks the template for the chat language (English for anything
// unknown) and appends the chat title as the topic when there is one.
func SystemPrompt(language models.Language, title string) string {
	if _, ok := templates[language]; !ok {
		language = models.LanguageEN
	}
	prompt := fmt.Sprintf(templates[language], ReplyLimit)
	if title = strings.TrimSpace(title); title != "" {
		prompt += fmt.Sprintf(topics[language], title)
	}
	return prompt
}
