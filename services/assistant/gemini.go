package assistantsvc

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/pkg/errors"

	"github.com/iamthanushgowdap/apsconnect/core"
	"github.com/iamthanushgowdap/apsconnect/core/chat"
)

// geminiCompleter calls Google's generateContent endpoint. Each call is
// independent; no chat history is carried.
type geminiCompleter struct {
	apiURL string
	apiKey string
	http   *http.Client
}

var _ chat.Completer = (*geminiCompleter)(nil)

func NewGeminiCompleter(conf *core.Config) *geminiCompleter {
	return &geminiCompleter{
		apiURL: conf.Assistant.APIURL,
		apiKey: conf.Assistant.APIKey,
		http:   &http.Client{Timeout: conf.Assistant.Timeout},
	}
}

type (
	generateRequest struct {
		Contents         []content        `json:"contents"`
		GenerationConfig generationConfig `json:"generationConfig"`
	}

	content struct {
		Parts []part `json:"parts"`
	}

	part struct {
		Text string `json:"text"`
	}

	generationConfig struct {
		Temperature     float64 `json:"temperature"`
		MaxOutputTokens int     `json:"maxOutputTokens"`
	}

	generateResponse struct {
		Candidates []struct {
			Content struct {
				Parts []part `json:"parts"`
			} `json:"content"`
		} `json:"candidates"`
	}
)

func (c *geminiCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	if c.apiKey == "" {
		return "", errors.New("assistant API key not configured")
	}

	reqBody := generateRequest{
		Contents:         []content{{Parts: []part{{Text: prompt}}}},
		GenerationConfig: generationConfig{Temperature: 0.2, MaxOutputTokens: 1024},
	}
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", errors.Wrap(err, "encoding request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL+"?key="+c.apiKey, bytes.NewReader(payload))
	if err != nil {
		return "", errors.Wrap(err, "creating request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", errors.Wrap(err, "calling assistant")
	}
	defer func() { _ = resp.Body.Close() }()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return "", errors.Errorf("assistant error (%d): %s", resp.StatusCode, string(body))
	}

	var genResp generateResponse
	if err = json.Unmarshal(body, &genResp); err != nil {
		return "", errors.Wrap(err, "decoding response")
	}
	if len(genResp.Candidates) == 0 || len(genResp.Candidates[0].Content.Parts) == 0 {
		return "", errors.New("empty assistant response")
	}
	return strings.TrimSpace(genResp.Candidates[0].Content.Parts[0].Text), nil
}
