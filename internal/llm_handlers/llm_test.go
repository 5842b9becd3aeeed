package llmHandlers

import (
	"context"
	"errors"
	"iter"
	"jarvis-backend/internal/models"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"
	"google.golang.org/genai"
)

// stubModel is an llms.Model that replays chunks through the streaming func.
type stubModel struct {
	chunks []string
	err    error

	gotMessages []llms.MessageContent
	gotOptions  llms.CallOptions
	sent        int
}

func (m *stubModel) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	m.gotMessages = messages
	for _, opt := range options {
		opt(&m.gotOptions)
	}

	full := ""
	for _, c := range m.chunks {
		if m.gotOptions.StreamingFunc != nil {
			if err := m.gotOptions.StreamingFunc(ctx, []byte(c)); err != nil {
				return nil, err
			}
			m.sent++
		}
		full += c
	}
	if m.err != nil {
		return nil, m.err
	}
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: full}}}, nil
}

func (m *stubModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, m, prompt, options...)
}

func collect(seq iter.Seq2[string, error]) ([]string, error) {
	var out []string
	for delta, err := range seq {
		if err != nil {
			return out, err
		}
		out = append(out, delta)
	}
	return out, nil
}

func TestFactory_UnknownProvider(t *testing.T) {
	_, err := New(context.Background(), Config{Provider: "mystery", APIKey: "k"})
	assert.ErrorContains(t, err, "unknown provider")
}

func TestFactory_MissingKey(t *testing.T) {
	_, err := New(context.Background(), Config{Provider: ProviderLangChainOpenAI})
	assert.ErrorContains(t, err, "api key")
}

func TestFactory_GroqNeedsBaseURL(t *testing.T) {
	_, err := New(context.Background(), Config{Provider: ProviderLangChainGroq, APIKey: "k"})
	assert.ErrorContains(t, err, "base url")
}

func TestToLangChainMessages(t *testing.T) {
	msgs := toLangChainMessages("be brief", []Message{
		{Role: models.RoleUser, Content: "hi"},
		{Role: models.RoleAssistant, Content: "hello"},
		{Role: models.RoleUser, Content: "what is this?", ImageURLs: []string{"https://cdn/a.png", "https://cdn/b.png"}},
	})

	require.Len(t, msgs, 4)
	assert.Equal(t, llms.ChatMessageTypeSystem, msgs[0].Role)
	assert.Equal(t, llms.ChatMessageTypeHuman, msgs[1].Role)
	assert.Equal(t, llms.ChatMessageTypeAI, msgs[2].Role)

	vision := msgs[3]
	require.Len(t, vision.Parts, 3)
	assert.Equal(t, llms.TextPart("what is this?"), vision.Parts[0])
	assert.Equal(t, llms.ImageURLPart("https://cdn/a.png"), vision.Parts[1])
	assert.Equal(t, llms.ImageURLPart("https://cdn/b.png"), vision.Parts[2])
}

func TestLangChainChat(t *testing.T) {
	model := &stubModel{chunks: []string{"Hel", "lo!"}}
	client := newLangChainClient(model, LangChainConfig{MaxTokens: 300, Temperature: 0.5})

	reply, err := client.Chat(context.Background(), "sys", []Message{{Role: models.RoleUser, Content: "hi"}})
	require.NoError(t, err)

	assert.Equal(t, "Hello!", reply)
	assert.Equal(t, 300, model.gotOptions.MaxTokens)
	assert.Equal(t, 0.5, model.gotOptions.Temperature)
	assert.Nil(t, model.gotOptions.StreamingFunc)
}

func TestLangChainChatStream(t *testing.T) {
	model := &stubModel{chunks: []string{"Hel", "", "lo!"}}
	client := newLangChainClient(model, LangChainConfig{})

	deltas, err := collect(client.ChatStream(context.Background(), "sys", []Message{{Role: models.RoleUser, Content: "hi"}}))
	require.NoError(t, err)
	assert.Equal(t, []string{"Hel", "lo!"}, deltas)
}

func TestLangChainChatStream_UpstreamError(t *testing.T) {
	model := &stubModel{chunks: []string{"Hel"}, err: errors.New("connection reset")}
	client := newLangChainClient(model, LangChainConfig{})

	deltas, err := collect(client.ChatStream(context.Background(), "sys", nil))
	assert.Equal(t, []string{"Hel"}, deltas)
	assert.ErrorContains(t, err, "connection reset")
}

func TestLangChainChatStream_ConsumerStops(t *testing.T) {
	model := &stubModel{chunks: []string{"a", "b", "c"}}
	client := newLangChainClient(model, LangChainConfig{})

	for delta, err := range client.ChatStream(context.Background(), "sys", nil) {
		require.NoError(t, err)
		assert.Equal(t, "a", delta)
		break
	}
	assert.Equal(t, 0, model.sent, "streaming func must abort the upstream call on the first refused chunk")
}

type stubGemini struct {
	responses []*genai.GenerateContentResponse
	err       error
	gotConfig *genai.GenerateContentConfig
}

func (s *stubGemini) GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	s.gotConfig = config
	if s.err != nil {
		return nil, s.err
	}
	return s.responses[0], nil
}

func (s *stubGemini) GenerateContentStream(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) iter.Seq2[*genai.GenerateContentResponse, error] {
	s.gotConfig = config
	return func(yield func(*genai.GenerateContentResponse, error) bool) {
		for _, r := range s.responses {
			if !yield(r, nil) {
				return
			}
		}
		if s.err != nil {
			yield(nil, s.err)
		}
	}
}

func textResponse(text string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{Content: &genai.Content{Parts: []*genai.Part{{Text: text}}}}},
	}
}

func TestGeminiConvert(t *testing.T) {
	contents := convertMessagesToGenaiContent([]Message{
		{Role: models.RoleAssistant, Content: "earlier"},
		{Role: models.RoleUser, Content: "look", ImageURLs: []string{"https://cdn/p.png"}},
	})

	require.Len(t, contents, 2)
	assert.Equal(t, "model", contents[0].Role)
	assert.Equal(t, "user", contents[1].Role)
	require.Len(t, contents[1].Parts, 2)
	assert.Equal(t, "https://cdn/p.png", contents[1].Parts[1].FileData.FileURI)
	assert.Equal(t, "image/png", contents[1].Parts[1].FileData.MIMEType)
}

func TestImageMIMEType(t *testing.T) {
	assert.Equal(t, "image/png", imageMIMEType("https://cdn/x.png?token=1"))
	assert.Equal(t, defaultImageMIMEType, imageMIMEType("https://cdn/x"))
}

func TestGeminiChat(t *testing.T) {
	stub := &stubGemini{responses: []*genai.GenerateContentResponse{textResponse("Hi Sher!")}}
	client := &GenaiGeminiClient{models: stub, modelID: "gemini-test", MaxTokens: 256}

	reply, err := client.Chat(context.Background(), "be Jarvis", nil)
	require.NoError(t, err)
	assert.Equal(t, "Hi Sher!", reply)
	assert.Equal(t, int32(256), stub.gotConfig.MaxOutputTokens)
	assert.Equal(t, "be Jarvis", stub.gotConfig.SystemInstruction.Parts[0].Text)
}

func TestGeminiChat_NoCandidates(t *testing.T) {
	stub := &stubGemini{responses: []*genai.GenerateContentResponse{{}}}
	client := &GenaiGeminiClient{models: stub, modelID: "gemini-test"}

	_, err := client.Chat(context.Background(), "", nil)
	assert.ErrorContains(t, err, "no candidates")
}

func TestGeminiChatStream(t *testing.T) {
	stub := &stubGemini{
		responses: []*genai.GenerateContentResponse{textResponse("Hel"), {}, textResponse("lo!")},
		err:       errors.New("quota"),
	}
	client := &GenaiGeminiClient{models: stub, modelID: "gemini-test"}

	deltas, err := collect(client.ChatStream(context.Background(), "", nil))
	assert.Equal(t, []string{"Hel", "lo!"}, deltas)
	assert.ErrorContains(t, err, "quota")
}
