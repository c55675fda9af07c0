package adapter

import (
	"context"
	"errors"
	"iter"
	"testing"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/packages/ssestream"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"nexusai/internal/apperr"
	"nexusai/internal/models"
)

// fakeChatModel replays chunks through an eino stream reader.
type fakeChatModel struct {
	chunks    []string
	streamErr error
	gotInput  []*schema.Message
}

func (f *fakeChatModel) Generate(_ context.Context, input []*schema.Message, _ ...model.Option) (*schema.Message, error) {
	f.gotInput = input
	return schema.AssistantMessage("generated", nil), nil
}

func (f *fakeChatModel) Stream(_ context.Context, input []*schema.Message, _ ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	f.gotInput = input
	if f.streamErr != nil {
		return nil, f.streamErr
	}
	msgs := make([]*schema.Message, 0, len(f.chunks))
	for _, c := range f.chunks {
		msgs = append(msgs, schema.AssistantMessage(c, nil))
	}
	return schema.StreamReaderFromArray(msgs), nil
}

type fakeGemini struct {
	chunks []string
	err    error
	model  string
}

func (f *fakeGemini) GenerateContentStream(_ context.Context, model string, _ []*genai.Content, _ *genai.GenerateContentConfig) iter.Seq2[*genai.GenerateContentResponse, error] {
	f.model = model
	return func(yield func(*genai.GenerateContentResponse, error) bool) {
		for _, c := range f.chunks {
			resp := &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{
				Content: &genai.Content{Role: geminiRoleModel, Parts: []*genai.Part{{Text: c}}},
			}}}
			if !yield(resp, nil) {
				return
			}
		}
		if f.err != nil {
			yield(nil, f.err)
		}
	}
}

// sliceDecoder feeds canned server-sent events to an ssestream.Stream.
type sliceDecoder struct {
	events []ssestream.Event
	pos    int
	err    error
}

func (d *sliceDecoder) Next() bool {
	if d.pos >= len(d.events) {
		return false
	}
	d.pos++
	return true
}

func (d *sliceDecoder) Event() ssestream.Event { return d.events[d.pos-1] }
func (d *sliceDecoder) Close() error           { return nil }
func (d *sliceDecoder) Err() error             { return d.err }

type fakeClaude struct {
	decoder *sliceDecoder
	params  anthropic.MessageNewParams
}

func (f *fakeClaude) NewStreaming(_ context.Context, body anthropic.MessageNewParams, _ ...option.RequestOption) *ssestream.Stream[anthropic.MessageStreamEventUnion] {
	f.params = body
	return ssestream.NewStream[anthropic.MessageStreamEventUnion](f.decoder, nil)
}

func textDelta(s string) ssestream.Event {
	return ssestream.Event{
		Type: "content_block_delta",
		Data: []byte(`{"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":"` + s + `"}}`),
	}
}

var conversation = []models.ChatMessage{
	{Role: models.RoleUser, Content: "Hello\nthere"},
	{Role: models.RoleAssistant, Content: "Hi! **How** can I help?"},
	{Role: models.RoleUser, Content: "Explain `iter.Seq2` ✨"},
}

func allAdapters() []Adapter {
	return []Adapter{
		NewOpenAIAdapter(models.ProviderGroq, "llama3-8b-8192", nil),
		NewOpenAIAdapter(models.ProviderDeepSeek, "deepseek-chat", nil),
		NewGeminiAdapter("gemini-2.0-flash", nil),
		NewClaudeAdapter("claude-3-opus-20240229", 0, nil),
	}
}

func TestRoundTrip_PreservesRolesAndContent(t *testing.T) {
	for _, a := range allAdapters() {
		t.Run(string(a.Provider()), func(t *testing.T) {
			req, err := a.BuildRequest(conversation, "be nice")
			require.NoError(t, err)

			msgs, prompt, err := a.DecodeRequest(req)
			require.NoError(t, err)
			assert.Equal(t, conversation, msgs)
			assert.Equal(t, "be nice", prompt)
		})
	}
}

func TestRoundTrip_EmptyTranscript(t *testing.T) {
	for _, a := range allAdapters() {
		req, err := a.BuildRequest(nil, "")
		require.NoError(t, err)
		msgs, prompt, err := a.DecodeRequest(req)
		require.NoError(t, err)
		assert.Empty(t, msgs)
		assert.Empty(t, prompt)
	}
}

func TestOpenAIRequest_SystemPromptFirst(t *testing.T) {
	a := NewOpenAIAdapter(models.ProviderGroq, "llama3-8b-8192", nil)
	req, err := a.BuildRequest(conversation, "sys")
	require.NoError(t, err)

	r := req.(*OpenAIRequest)
	require.Len(t, r.Messages, 4)
	assert.Equal(t, schema.System, r.Messages[0].Role)
	assert.Equal(t, "sys", r.Messages[0].Content)
	assert.Equal(t, schema.Assistant, r.Messages[2].Role)
}

func TestOpenAIRoundTrip_KeepsInlineSystemMessages(t *testing.T) {
	a := NewOpenAIAdapter(models.ProviderDeepSeek, "deepseek-chat", nil)
	in := []models.ChatMessage{
		{Role: models.RoleSystem, Content: "context"},
		{Role: models.RoleUser, Content: "q"},
	}
	req, err := a.BuildRequest(in, "")
	require.NoError(t, err)
	msgs, prompt, err := a.DecodeRequest(req)
	require.NoError(t, err)
	assert.Equal(t, in, msgs)
	assert.Equal(t, "", prompt)
}

func TestGeminiRequest_MapsRolesAndParts(t *testing.T) {
	a := NewGeminiAdapter("gemini-2.0-flash", nil)
	req, err := a.BuildRequest(conversation, "sys")
	require.NoError(t, err)

	r := req.(*GeminiRequest)
	require.Len(t, r.Contents, 3)
	assert.Equal(t, "user", r.Contents[0].Role)
	assert.Equal(t, "model", r.Contents[1].Role)
	assert.Equal(t, "Hi! **How** can I help?", r.Contents[1].Parts[0].Text)
	assert.Equal(t, "sys", r.Config.SystemInstruction.Parts[0].Text)
}

func TestClaudeRequest_SystemOutOfBand(t *testing.T) {
	a := NewClaudeAdapter("claude-3-opus-20240229", 0, nil)
	req, err := a.BuildRequest(conversation, "sys")
	require.NoError(t, err)

	p := req.(*ClaudeRequest).Params
	assert.Equal(t, int64(DefaultClaudeMaxTokens), p.MaxTokens)
	require.Len(t, p.System, 1)
	assert.Equal(t, "sys", p.System[0].Text)
	require.Len(t, p.Messages, 3)
	assert.Equal(t, anthropic.MessageParamRoleAssistant, p.Messages[1].Role)
}

func TestOutOfBandAdapters_LiftSystemEntries(t *testing.T) {
	in := []models.ChatMessage{
		{Role: models.RoleSystem, Content: "extra"},
		{Role: models.RoleUser, Content: "q"},
	}
	for _, a := range []Adapter{NewGeminiAdapter("g", nil), NewClaudeAdapter("c", 0, nil)} {
		req, err := a.BuildRequest(in, "base")
		require.NoError(t, err)
		msgs, prompt, err := a.DecodeRequest(req)
		require.NoError(t, err)
		assert.Equal(t, "base", prompt)
		assert.Equal(t, in, msgs)
	}
}

func TestOutOfBandAdapters_EmptyPromptSendsNoBlock(t *testing.T) {
	q := []models.ChatMessage{{Role: models.RoleUser, Content: "q"}}

	claude, err := NewClaudeAdapter("c", 0, nil).BuildRequest(q, "")
	require.NoError(t, err)
	assert.Empty(t, claude.(*ClaudeRequest).Params.System)

	gemini, err := NewGeminiAdapter("g", nil).BuildRequest(q, "")
	require.NoError(t, err)
	assert.Nil(t, gemini.(*GeminiRequest).Config.SystemInstruction)

	lifted := []models.ChatMessage{
		{Role: models.RoleSystem, Content: "extra"},
		{Role: models.RoleUser, Content: "q"},
	}
	for _, a := range []Adapter{NewGeminiAdapter("g", nil), NewClaudeAdapter("c", 0, nil)} {
		req, err := a.BuildRequest(lifted, "")
		require.NoError(t, err)
		msgs, prompt, err := a.DecodeRequest(req)
		require.NoError(t, err)
		assert.Equal(t, "", prompt)
		assert.Equal(t, lifted, msgs)
	}

	sys := claudeSystem(t, lifted)
	require.Len(t, sys, 1)
	assert.Equal(t, "extra", sys[0].Text)
}

func claudeSystem(t *testing.T, msgs []models.ChatMessage) []anthropic.TextBlockParam {
	t.Helper()
	req, err := NewClaudeAdapter("c", 0, nil).BuildRequest(msgs, "")
	require.NoError(t, err)
	return req.(*ClaudeRequest).Params.System
}

func TestBuildRequest_RejectsUnknownRole(t *testing.T) {
	for _, a := range allAdapters() {
		_, err := a.BuildRequest([]models.ChatMessage{{Role: "tool", Content: "x"}}, "")
		assert.ErrorIs(t, err, apperr.ErrValidation)
	}
}

func TestDecodeRequest_WrongFormat(t *testing.T) {
	openai := NewOpenAIAdapter(models.ProviderGroq, "m", nil)
	_, _, err := openai.DecodeRequest(&GeminiRequest{})
	assert.Error(t, err)
}

func TestOpenAIStream_ConcatenatesChunks(t *testing.T) {
	fake := &fakeChatModel{chunks: []string{"Hel", "", "lo", "!"}}
	a := NewOpenAIAdapter(models.ProviderGroq, "m", func(context.Context) (model.BaseChatModel, error) {
		return fake, nil
	})
	req, err := a.BuildRequest(conversation, "sys")
	require.NoError(t, err)

	var seen []string
	text, err := Collect(a.Stream(context.Background(), req), func(c string) { seen = append(seen, c) })
	require.NoError(t, err)
	assert.Equal(t, "Hello!", text)
	assert.Equal(t, []string{"Hel", "Hello", "Hello!"}, seen)
	assert.Len(t, fake.gotInput, 4)
}

func TestOpenAIStream_ConstructionFailure(t *testing.T) {
	a := NewOpenAIAdapter(models.ProviderDeepSeek, "m", func(context.Context) (model.BaseChatModel, error) {
		return nil, errors.New("missing key")
	})
	req, _ := a.BuildRequest(conversation, "sys")

	_, err := Collect(a.Stream(context.Background(), req), nil)
	assert.ErrorIs(t, err, apperr.ErrProvider)
	assert.Contains(t, err.Error(), "missing key")
}

func TestOpenAIStream_StreamFailure(t *testing.T) {
	fake := &fakeChatModel{streamErr: errors.New("rate limited")}
	a := NewOpenAIAdapter(models.ProviderGroq, "m", func(context.Context) (model.BaseChatModel, error) {
		return fake, nil
	})
	req, _ := a.BuildRequest(conversation, "sys")

	_, err := Collect(a.Stream(context.Background(), req), nil)
	assert.ErrorIs(t, err, apperr.ErrProvider)
}

func TestStream_IsSingleUse(t *testing.T) {
	fake := &fakeChatModel{chunks: []string{"a"}}
	a := NewOpenAIAdapter(models.ProviderGroq, "m", func(context.Context) (model.BaseChatModel, error) {
		return fake, nil
	})
	req, _ := a.BuildRequest(conversation, "sys")
	stream := a.Stream(context.Background(), req)

	text, err := Collect(stream, nil)
	require.NoError(t, err)
	assert.Equal(t, "a", text)

	_, err = Collect(stream, nil)
	assert.ErrorIs(t, err, ErrStreamConsumed)
}

func TestStream_IsLazy(t *testing.T) {
	calls := 0
	a := NewOpenAIAdapter(models.ProviderGroq, "m", func(context.Context) (model.BaseChatModel, error) {
		calls++
		return &fakeChatModel{}, nil
	})
	req, _ := a.BuildRequest(conversation, "sys")
	_ = a.Stream(context.Background(), req)
	assert.Equal(t, 0, calls)
}

func TestGeminiStream(t *testing.T) {
	fake := &fakeGemini{chunks: []string{"Good ", "morning"}}
	a := NewGeminiAdapter("gemini-2.0-flash", func(context.Context) (GeminiStreamer, error) {
		return fake, nil
	})
	req, _ := a.BuildRequest(conversation, "sys")

	text, err := Collect(a.Stream(context.Background(), req), nil)
	require.NoError(t, err)
	assert.Equal(t, "Good morning", text)
	assert.Equal(t, "gemini-2.0-flash", fake.model)
}

func TestGeminiStream_ErrorMidStream(t *testing.T) {
	fake := &fakeGemini{chunks: []string{"partial"}, err: errors.New("boom")}
	a := NewGeminiAdapter("g", func(context.Context) (GeminiStreamer, error) { return fake, nil })
	req, _ := a.BuildRequest(conversation, "sys")

	text, err := Collect(a.Stream(context.Background(), req), nil)
	assert.ErrorIs(t, err, apperr.ErrProvider)
	assert.Empty(t, text)
}

func TestClaudeStream_CollectsTextDeltas(t *testing.T) {
	fake := &fakeClaude{decoder: &sliceDecoder{events: []ssestream.Event{
		{Type: "ping", Data: []byte(`{"type":"ping"}`)},
		textDelta("Bon"),
		textDelta("jour"),
		{Type: "message_stop", Data: []byte(`{"type":"message_stop"}`)},
	}}}
	a := NewClaudeAdapter("claude-3-opus-20240229", 1000, func(context.Context) (ClaudeStreamer, error) {
		return fake, nil
	})
	req, _ := a.BuildRequest(conversation, "sys")

	text, err := Collect(a.Stream(context.Background(), req), nil)
	require.NoError(t, err)
	assert.Equal(t, "Bonjour", text)
	assert.Equal(t, anthropic.Model("claude-3-opus-20240229"), fake.params.Model)
}

func TestClaudeStream_ErrorEvent(t *testing.T) {
	fake := &fakeClaude{decoder: &sliceDecoder{events: []ssestream.Event{
		textDelta("x"),
		{Type: "error", Data: []byte(`{"type":"error","error":{"type":"overloaded_error"}}`)},
	}}}
	a := NewClaudeAdapter("c", 0, func(context.Context) (ClaudeStreamer, error) { return fake, nil })
	req, _ := a.BuildRequest(conversation, "sys")

	_, err := Collect(a.Stream(context.Background(), req), nil)
	assert.ErrorIs(t, err, apperr.ErrProvider)
}

func TestRegistry(t *testing.T) {
	r := NewRegistry(allAdapters()...)

	a, err := r.Get(models.ProviderClaude)
	require.NoError(t, err)
	assert.Equal(t, models.ProviderClaude, a.Provider())
	assert.Equal(t, models.Providers, r.Providers())

	_, err = NewRegistry().Get(models.ProviderGemini)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}
