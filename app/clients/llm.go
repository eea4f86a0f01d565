package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const (
	openAIBaseURL     = "https://api.openai.com/v1"
	perplexityBaseURL = "https://api.perplexity.ai"
)

// TeamMember is one person extracted from a team page
type TeamMember struct {
	FullName  string `json:"full_name"`
	Title     string `json:"title"`
	Seniority string `json:"seniority"`
	Email     string `json:"email"`
}

// HandleGuess is an inferred social handle with the model's own confidence
type HandleGuess struct {
	Handle     string  `json:"handle"`
	Confidence float64 `json:"confidence"`
	Source     string  `json:"source"`
}

// IntroDraft is a generated outreach message
type IntroDraft struct {
	Subject string `json:"subject"`
	Message string `json:"message"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// LLMClient talks to OpenAI-compatible chat completion APIs. Website
// discovery goes through Perplexity (it can search the live web); extraction
// and drafting go through OpenAI.
type LLMClient struct {
	httpClient    *http.Client
	openAIKey     string
	perplexityKey string
	openAIBase    string
	perplexityURL string
}

// NewLLMClient creates a new LLM client
func NewLLMClient(httpClient *http.Client, openAIKey, perplexityKey string) *LLMClient {
	return &LLMClient{
		httpClient:    httpClient,
		openAIKey:     openAIKey,
		perplexityKey: perplexityKey,
		openAIBase:    openAIBaseURL,
		perplexityURL: perplexityBaseURL,
	}
}

func (c *LLMClient) complete(ctx context.Context, baseURL, apiKey, model, system, user string) (string, error) {
	if apiKey == "" {
		return "", fmt.Errorf("API key not configured for %s", baseURL)
	}

	body, err := json.Marshal(chatRequest{
		Model: model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		Temperature: 0.2,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to call chat completions: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("HTTP error: %d %s", resp.StatusCode, resp.Status)
	}

	var parsed chatResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return "", fmt.Errorf("failed to parse chat response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("chat response contained no choices")
	}

	return stripCodeFence(parsed.Choices[0].Message.Content), nil
}

// FindWebsite asks Perplexity for the official website of an organization.
// hintURLs are pages the organization was mentioned on. Returns an empty
// string when the model cannot find one.
func (c *LLMClient) FindWebsite(ctx context.Context, orgName string, hintURLs []string) (string, error) {
	system := "You find official websites of venture capital firms and startups. Respond with JSON only."
	user := fmt.Sprintf(`Find the official website of %q. Respond with {"website": "https://..."} or {"website": null} if unknown.`, orgName)
	if len(hintURLs) > 0 {
		user += fmt.Sprintf(" The organization was mentioned on: %s.", strings.Join(hintURLs, ", "))
	}

	content, err := c.complete(ctx, c.perplexityURL, c.perplexityKey, "sonar", system, user)
	if err != nil {
		return "", err
	}

	var result struct {
		Website string `json:"website"`
	}
	if err := json.Unmarshal([]byte(content), &result); err != nil {
		return "", fmt.Errorf("failed to parse website response: %w", err)
	}
	return result.Website, nil
}

// ExtractTeamMembers extracts people from the text of a team page
func (c *LLMClient) ExtractTeamMembers(ctx context.Context, orgName, pageText string) ([]TeamMember, error) {
	system := "You extract team members from company web pages. Respond with a JSON array only."
	user := fmt.Sprintf(`Extract the team members of %q from this page text. For each person return {"full_name": ..., "title": ..., "seniority": one of "partner"|"principal"|"associate"|"operations"|"other", "email": ... or ""}.

%s`, orgName, pageText)

	content, err := c.complete(ctx, c.openAIBase, c.openAIKey, "gpt-4o-mini", system, user)
	if err != nil {
		return nil, err
	}

	var members []TeamMember
	if err := json.Unmarshal([]byte(content), &members); err != nil {
		return nil, fmt.Errorf("failed to parse team members response: %w", err)
	}

	valid := members[:0]
	for _, m := range members {
		if m.FullName != "" {
			valid = append(valid, m)
		}
	}
	return valid, nil
}

// FindTwitterHandle asks the model for a person's Twitter handle with a
// self-reported confidence score
func (c *LLMClient) FindTwitterHandle(ctx context.Context, fullName, orgName string) (*HandleGuess, error) {
	system := "You find Twitter/X handles of venture capital professionals. Respond with JSON only."
	user := fmt.Sprintf(`Find the Twitter/X handle of %s who works at %s. Respond with {"handle": "...", "confidence": 0.0-1.0, "source": "..."} or {"handle": null, "confidence": 0.0, "source": null}.`, fullName, orgName)

	content, err := c.complete(ctx, c.perplexityURL, c.perplexityKey, "sonar", system, user)
	if err != nil {
		return nil, err
	}

	var guess HandleGuess
	if err := json.Unmarshal([]byte(content), &guess); err != nil {
		return nil, fmt.Errorf("failed to parse handle response: %w", err)
	}
	if guess.Handle == "" {
		return nil, nil
	}
	guess.Handle = strings.TrimPrefix(guess.Handle, "@")
	return &guess, nil
}

// DraftIntro generates a short personalized outreach draft for a person
func (c *LLMClient) DraftIntro(ctx context.Context, fullName, title, orgName, focus string) (*IntroDraft, error) {
	system := "You write short, specific outreach messages to venture capital professionals. Two sentences maximum. No flattery. Respond with JSON only."
	user := fmt.Sprintf(`Draft an intro message to %s (%s at %s). Their focus: %s. Respond with {"subject": ..., "message": ...}.`, fullName, title, orgName, focus)

	content, err := c.complete(ctx, c.openAIBase, c.openAIKey, "gpt-4o-mini", system, user)
	if err != nil {
		return nil, err
	}

	var draft IntroDraft
	if err := json.Unmarshal([]byte(content), &draft); err != nil {
		return nil, fmt.Errorf("failed to parse intro draft response: %w", err)
	}
	if draft.Message == "" {
		return nil, fmt.Errorf("intro draft response contained no message")
	}
	return &draft, nil
}

// stripCodeFence removes a surrounding markdown code fence, which chat models
// add even when told to respond with bare JSON
func stripCodeFence(content string) string {
	content = strings.TrimSpace(content)
	if !strings.HasPrefix(content, "```") {
		return content
	}
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	return strings.TrimSpace(content)
}
