package draft

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genai"
)

const defaultModel = "gemini-2.5-pro"

const emailPrompt = `TASK: Generate a professional email from two audio inputs - one with relationship context, one with content details.

LANGUAGE SELECTION:
- Hindi/Hinglish mentioned -> Use Hinglish (natural Hindi-English mix)
- Other language specified -> Use that language
- No preference/English -> Use English

OUTPUT FORMAT:

ANALYSIS (in English):
Recipient: [name, title]
Relationship: [type]
Details: [key recipient info]
Purpose: [main objective]
Tone: [formality level]
Action Needed: [specific request]

EMAIL (in selected language):

Subject: [clear, specific subject]

[Appropriate greeting]

[Context paragraph if needed]

[Main message - organized logically]

[Closing with clear call-to-action]

[Professional sign-off]

REQUIREMENTS:
- Match tone to relationship (formal/business vs casual/personal)
- Include all key content from audio
- Natural language flow
- Clear next steps
- Cultural appropriateness
- Highlight urgent/time-sensitive items
- Do not use asterisks (*), separators (***), or markdown formatting
- Use simple text formatting only

Analyze both audios and generate the email.`

// GeminiGenerator generates email drafts with the Gemini API.
type GeminiGenerator struct {
	client *genai.Client
	model  string
}

// NewGeminiGenerator creates a generator backed by the Gemini API.
func NewGeminiGenerator(ctx context.Context, apiKey string) (*GeminiGenerator, error) {
	if apiKey == "" {
		return nil, errors.New("GenAI API key is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: apiKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	return &GeminiGenerator{client: client, model: defaultModel}, nil
}

func (g *GeminiGenerator) GenerateEmail(ctx context.Context, relationship, content Audio) (string, error) {
	parts := []*genai.Part{
		genai.NewPartFromText(emailPrompt),
		genai.NewPartFromBytes(relationship.Data, relationship.MIMEType),
		genai.NewPartFromBytes(content.Data, content.MIMEType),
	}
	contents := []*genai.Content{
		genai.NewContentFromParts(parts, genai.RoleUser),
	}

	result, err := g.client.Models.GenerateContent(ctx, g.model, contents, nil)
	if err != nil {
		return "", fmt.Errorf("generate email: %w", err)
	}
	text := result.Text()
	if text == "" {
		return "", errors.New("generate email: empty model response")
	}
	return text, nil
}
