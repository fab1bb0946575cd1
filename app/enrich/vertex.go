package enrich

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"cloud.google.com/go/vertexai/genai"
)

type VertexModel struct {
	client *genai.Client
	model  *genai.GenerativeModel
	name   string
}

var _ Model = (*VertexModel)(nil)

func NewVertexModel(ctx context.Context, projectID, region, modelName string) (*VertexModel, error) {
	client, err := genai.NewClient(ctx, projectID, region)
	if err != nil {
		return nil, fmt.Errorf("genai.NewClient: %w", err)
	}

	model := client.GenerativeModel(modelName)
	model.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(SystemInstruction)},
	}
	model.GenerationConfig = genai.GenerationConfig{
		ResponseMIMEType: "application/json",
		Temperature:      genai.Ptr[float32](0.4),
	}

	return &VertexModel{client: client, model: model, name: modelName}, nil
}

func (m *VertexModel) Name() string {
	return m.name
}

func (m *VertexModel) Generate(ctx context.Context, prompt string) Outcome {
	resp, err := m.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return classifyError(err)
	}

	text := responseText(resp)
	if text == "" {
		return Outcome{Status: StatusFailed, Err: errors.New("model returned no text")}
	}
	return Outcome{Status: StatusOK, Text: text}
}

func (m *VertexModel) Close() error {
	return m.client.Close()
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}

	var sb strings.Builder
	for _, cand := range resp.Candidates {
		if cand == nil || cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if txt, ok := part.(genai.Text); ok {
				sb.WriteString(string(txt))
			}
		}
		// One candidate is requested.
		break
	}
	return strings.TrimSpace(sb.String())
}
