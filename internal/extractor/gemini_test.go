package extractor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

type fakeModels struct {
	model    string
	contents []*genai.Content
	config   *genai.GenerateContentConfig
	resp     *genai.GenerateContentResponse
	err      error
}

func (f *fakeModels) GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.model = model
	f.contents = contents
	f.config = config
	return f.resp, f.err
}

func textResponse(text string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{
			{Content: genai.NewContentFromText(text, genai.RoleModel)},
		},
	}
}

func TestGeminiExtract(t *testing.T) {
	fake := &fakeModels{resp: textResponse(`{"user_text":"Could you share your name?","appointmentinfo":{"name":null,"type":"showing","date":"2026-01-16","time":"10:00"}}`)}
	g := newGemini(fake, GeminiOptions{RealtorName: "Sherri", Temperature: 0.5})

	e, err := g.Extract(context.Background(), Request{Text: "showing friday 10am", Now: time.Now()})
	require.NoError(t, err)
	assert.Equal(t, "Could you share your name?", e.Reply)
	require.NotNil(t, e.Candidate)
	assert.Equal(t, []string{"name"}, e.Candidate.Missing())

	assert.Equal(t, defaultGeminiModel, fake.model)
	require.Len(t, fake.contents, 1)
	require.NotNil(t, fake.config.Temperature)
	assert.InDelta(t, 0.5, *fake.config.Temperature, 0.0001)
	assert.Equal(t, "application/json", fake.config.ResponseMIMEType)
	require.NotNil(t, fake.config.SystemInstruction)
	assert.Contains(t, fake.config.SystemInstruction.Parts[0].Text, "Sherri")
}

func TestGeminiExtractErrors(t *testing.T) {
	g := newGemini(&fakeModels{err: errors.New("quota exceeded")}, GeminiOptions{})
	_, err := g.Extract(context.Background(), Request{Text: "hi"})
	assert.ErrorIs(t, err, ErrUnavailable)

	g = newGemini(&fakeModels{resp: &genai.GenerateContentResponse{}}, GeminiOptions{})
	_, err = g.Extract(context.Background(), Request{Text: "hi"})
	assert.ErrorIs(t, err, ErrUnparseable)

	g = newGemini(&fakeModels{resp: textResponse("not json")}, GeminiOptions{})
	_, err = g.Extract(context.Background(), Request{Text: "hi"})
	assert.ErrorIs(t, err, ErrUnparseable)
}

func TestNewGeminiRequiresKey(t *testing.T) {
	_, err := NewGemini(context.Background(), GeminiOptions{})
	assert.Error(t, err)
}
