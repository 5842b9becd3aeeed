package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"jarvis-backend/internal/models"
	"net/http"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const googleTTSEndpoint = "https://texttospeech.googleapis.com/v1/text:synthesize"

type googleVoice struct {
	LanguageCode string `json:"languageCode"`
	Name         string `json:"name,omitempty"`
}

// GoogleSynthesizer calls Cloud Text-to-Speech over REST with service account credentials.
type GoogleSynthesizer struct {
	httpClient *http.Client
	endpoint   string
	voices     map[models.Language]googleVoice
}

func NewGoogleSynthesizer(ctx context.Context, credentialsJSON []byte, voiceEN, voiceRU string) (*GoogleSynthesizer, error) {
	creds, err := google.CredentialsFromJSON(ctx, credentialsJSON, "https://www.googleapis.com/auth/cloud-platform")
	if err != nil {
		return nil, fmt.Errorf("CredentialsFromJSON: %w", err)
	}
	return newGoogleSynthesizer(oauth2.NewClient(ctx, creds.TokenSource), googleTTSEndpoint, voiceEN, voiceRU), nil
}

func newGoogleSynthesizer(httpClient *http.Client, endpoint, voiceEN, voiceRU string) *GoogleSynthesizer {
	return &GoogleSynthesizer{
		httpClient: httpClient,
		endpoint:   endpoint,
		voices: map[models.Language]googleVoice{
			models.LanguageEN: {LanguageCode: "en-US", Name: voiceEN},
			models.LanguageRU: {LanguageCode: "ru-RU", Name: voiceRU},
		},
	}
}

func (s *GoogleSynthesizer) Synthesize(ctx context.Context, text string, language models.Language) (*Audio, error) {
	voice, ok := s.voices[language]
	if !ok {
		voice = s.voices[models.LanguageEN]
	}

	body := map[string]interface{}{
		"input":       map[string]string{"text": text},
		"voice":       voice,
		"audioConfig": map[string]string{"audioEncoding": "MP3"},
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http do: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		buf := new(bytes.Buffer)
		_, _ = buf.ReadFrom(resp.Body)
		return nil, fmt.Errorf("text-to-speech error %d: %s", resp.StatusCode, buf.String())
	}

	// audioContent is base64 in the JSON body; encoding/json decodes it into []byte
	var out struct {
		AudioContent []byte `json:"audioContent"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if len(out.AudioContent) == 0 {
		return nil, fmt.Errorf("text-to-speech returned no audio")
	}
	return &Audio{Data: out.AudioContent, ContentType: "audio/mpeg", Ext: ".mp3"}, nil
}
