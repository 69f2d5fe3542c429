package agent

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/comigor/nazborg-go/internal/auth"
	"github.com/comigor/nazborg-go/internal/booking"
	"github.com/comigor/nazborg-go/internal/config"
	"github.com/comigor/nazborg-go/internal/dates"
	"github.com/comigor/nazborg-go/internal/history"
	"github.com/comigor/nazborg-go/internal/intent"
	"github.com/comigor/nazborg-go/internal/tasks"
)

const systemPrompt = "You are NazborgAI."

type mockLLM struct {
	calls    []openai.ChatCompletionResponse
	err      error
	requests []openai.ChatCompletionRequest
}

func (m *mockLLM) CreateChatCompletion(ctx context.Context, r openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	m.requests = append(m.requests, r)
	if m.err != nil {
		return openai.ChatCompletionResponse{}, m.err
	}
	if len(m.calls) == 0 {
		panic("mockLLM: no more responses configured for request: " + r.Messages[len(r.Messages)-1].Content)
	}
	resp := m.calls[0]
	m.calls = m.calls[1:]
	return resp, nil
}

func reply(content string) openai.ChatCompletionResponse {
	return openai.ChatCompletionResponse{Choices: []openai.ChatCompletionChoice{{Message: openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: content}}}}
}

type mockScheduler struct {
	mu     sync.Mutex
	calls  []booking.Candidate
	source []booking.Source
	err    error
}

func (m *mockScheduler) Schedule(ctx context.Context, c booking.Candidate, source booking.Source) (*booking.CommittedEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, c)
	m.source = append(m.source, source)
	if m.err != nil {
		return nil, m.err
	}
	return &booking.CommittedEvent{ID: "evt1", Link: "https://calendar.google.com/event?eid=evt1"}, nil
}

type brokenStore struct {
	history.MemoryStore
}

func (b *brokenStore) LoadAll(ctx context.Context) ([]history.Message, error) {
	return nil, errors.New("disk I/O error")
}

type fixture struct {
	agent     *Agent
	llm       *mockLLM
	store     history.Store
	scheduler *mockScheduler
	tasks     *tasks.Dispatcher
}

func newFixture(t *testing.T, llmClient *mockLLM, store history.Store) *fixture {
	t.Helper()
	if store == nil {
		store = history.NewMemoryStore()
	}
	d := tasks.NewSerial(config.TasksConfig{Workers: 4, QueueSize: 16, Timeout: time.Second}, nil)
	t.Cleanup(d.Close)

	sched := &mockScheduler{}
	extractor := intent.NewExtractor(
		intent.ActionBlock{},
		intent.ImplicitDate{Resolver: dates.NewResolver(time.UTC), PlaceholderName: "Guest"},
	)
	a := New(llmClient, config.LLMConfig{Model: "gpt"}, systemPrompt, Deps{
		History:   store,
		Extractor: extractor,
		Scheduler: sched,
		Tasks:     d,
	})
	a.now = func() time.Time { return time.Date(2025, 10, 13, 10, 0, 0, 0, time.UTC) }
	return &fixture{agent: a, llm: llmClient, store: store, scheduler: sched, tasks: d}
}

func (f *fixture) history(t *testing.T) []history.Message {
	t.Helper()
	f.tasks.Flush()
	msgs, err := f.store.LoadAll(context.Background())
	require.NoError(t, err)
	return msgs
}

func TestProcess_RejectsBlankPrompt(t *testing.T) {
	f := newFixture(t, &mockLLM{}, nil)

	for _, p := range []string{"", "   ", "\n\t"} {
		_, err := f.agent.Process(context.Background(), p)
		require.ErrorIs(t, err, ErrInvalidPrompt)
	}
	require.Empty(t, f.llm.requests)
	require.Empty(t, f.history(t))
}

func TestProcess_PlainReply(t *testing.T) {
	answer := "Eddie's skills include ReactJS, JavaScript and Firebase."
	f := newFixture(t, &mockLLM{calls: []openai.ChatCompletionResponse{reply(answer)}}, nil)

	out, err := f.agent.Process(context.Background(), "What are Eddie's skills?")
	require.NoError(t, err)
	require.Equal(t, answer, out)
	require.Empty(t, f.scheduler.calls)

	msgs := f.history(t)
	require.Len(t, msgs, 2)
	require.Equal(t, history.RoleUser, msgs[0].Role)
	require.Equal(t, "What are Eddie's skills?", msgs[0].Content)
	require.Equal(t, history.RoleAssistant, msgs[1].Role)
	require.Equal(t, answer, msgs[1].Content)
}

func TestProcess_ConsecutiveTurnsPersistInOrder(t *testing.T) {
	f := newFixture(t, &mockLLM{calls: []openai.ChatCompletionResponse{reply("one"), reply("two"), reply("three")}}, nil)

	for _, p := range []string{"first", "second", "third"} {
		_, err := f.agent.Process(context.Background(), p)
		require.NoError(t, err)
	}

	msgs := f.history(t)
	contents := make([]string, 0, len(msgs))
	for _, m := range msgs {
		contents = append(contents, m.Content)
	}
	require.Equal(t, []string{"first", "one", "second", "two", "third", "three"}, contents)
}

func TestProcess_PromptIncludesSanitizedHistory(t *testing.T) {
	store := history.NewMemoryStore()
	require.NoError(t, store.Append(context.Background(),
		history.Message{Role: history.RoleUser, Content: "Hi"},
		history.Message{Role: history.RoleAssistant, Content: "   "},
		history.Message{Role: "", Content: "orphan"},
		history.Message{Role: history.RoleAssistant, Content: "Hello!"},
	))
	f := newFixture(t, &mockLLM{calls: []openai.ChatCompletionResponse{reply("Sure.")}}, store)

	_, err := f.agent.Process(context.Background(), "Where does Eddie live?")
	require.NoError(t, err)

	require.Len(t, f.llm.requests, 1)
	msgs := f.llm.requests[0].Messages
	require.Equal(t, []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
		{Role: history.RoleUser, Content: "Hi"},
		{Role: history.RoleAssistant, Content: "Hello!"},
		{Role: openai.ChatMessageRoleUser, Content: "Where does Eddie live?"},
	}, msgs)
	require.Equal(t, "gpt", f.llm.requests[0].Model)
}

func TestProcess_HistoryReadFailureDegrades(t *testing.T) {
	f := newFixture(t, &mockLLM{calls: []openai.ChatCompletionResponse{reply("Hopewell, VA.")}}, &brokenStore{})

	out, err := f.agent.Process(context.Background(), "Where does Eddie live?")
	require.NoError(t, err)
	require.Equal(t, "Hopewell, VA.", out)
	require.Len(t, f.llm.requests[0].Messages, 2)
}

func TestProcess_CompletionError(t *testing.T) {
	f := newFixture(t, &mockLLM{err: context.DeadlineExceeded}, nil)

	_, err := f.agent.Process(context.Background(), "hi")
	require.ErrorIs(t, err, ErrCompletion)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.Empty(t, f.history(t))
}

func TestProcess_BlankReplyUsesFallback(t *testing.T) {
	f := newFixture(t, &mockLLM{calls: []openai.ChatCompletionResponse{reply("  ")}}, nil)

	out, err := f.agent.Process(context.Background(), "Book me tomorrow at 2pm")
	require.NoError(t, err)
	require.Equal(t, FallbackReply, out)
	require.Empty(t, f.scheduler.calls)
	require.Empty(t, f.history(t))
}

func TestProcess_NoChoices(t *testing.T) {
	f := newFixture(t, &mockLLM{calls: []openai.ChatCompletionResponse{{}}}, nil)

	out, err := f.agent.Process(context.Background(), "hello")
	require.NoError(t, err)
	require.Equal(t, FallbackReply, out)
}

func TestProcess_StructuredBooking(t *testing.T) {
	modelReply := "Done, John! See you Friday.\n" +
		`{"action":"schedule","name":"John","dateTime":"next Friday at 2pm","reason":"discuss React"}`
	f := newFixture(t, &mockLLM{calls: []openai.ChatCompletionResponse{reply(modelReply)}}, nil)

	out, err := f.agent.Process(context.Background(), "Book me for Friday at 2pm to discuss React")
	require.NoError(t, err)
	require.Equal(t, modelReply+"\n\nYour meeting is booked: https://calendar.google.com/event?eid=evt1", out)

	require.Len(t, f.scheduler.calls, 1)
	require.Equal(t, booking.Candidate{Name: "John", RawDateTime: "next Friday at 2pm", Reason: "discuss React"}, f.scheduler.calls[0])
	require.Equal(t, booking.SourceModel, f.scheduler.source[0])

	msgs := f.history(t)
	require.Len(t, msgs, 2)
	require.Equal(t, modelReply, msgs[1].Content)
}

func TestProcess_IncompleteBlockNoBooking(t *testing.T) {
	modelReply := `What's your name? {"action":"schedule","dateTime":"next Friday at 2pm","reason":"discuss React"}`
	f := newFixture(t, &mockLLM{calls: []openai.ChatCompletionResponse{reply(modelReply)}}, nil)

	out, err := f.agent.Process(context.Background(), "Book me for Friday at 2pm to discuss React")
	require.NoError(t, err)
	require.Equal(t, modelReply, out)
	require.Empty(t, f.scheduler.calls)
}

func TestProcess_ImplicitFallback(t *testing.T) {
	f := newFixture(t, &mockLLM{calls: []openai.ChatCompletionResponse{reply("Eddie would love that!")}}, nil)

	out, err := f.agent.Process(context.Background(), "Book me for Friday at 2pm to discuss React")
	require.NoError(t, err)
	require.Contains(t, out, "Your meeting is booked:")

	require.Len(t, f.scheduler.calls, 1)
	require.Equal(t, booking.SourceImplicit, f.scheduler.source[0])
	require.Equal(t, "Guest", f.scheduler.calls[0].Name)
	require.Equal(t, "Book me for Friday at 2pm to discuss React", f.scheduler.calls[0].Reason)
}

func TestProcess_SchedulingFailureKeepsPlainReply(t *testing.T) {
	modelReply := `Booked! {"action":"schedule","name":"John","dateTime":"next Friday at 2pm","reason":"discuss React"}`
	f := newFixture(t, &mockLLM{calls: []openai.ChatCompletionResponse{reply(modelReply)}}, nil)
	f.scheduler.err = auth.ErrUnauthenticated

	out, err := f.agent.Process(context.Background(), "Book me")
	require.NoError(t, err)
	require.Equal(t, modelReply, out)
	require.Len(t, f.scheduler.calls, 1)
}

type countingCommitter struct{ calls int }

func (c *countingCommitter) Commit(ctx context.Context, b booking.Resolved, tok *oauth2.Token) (*booking.CommittedEvent, error) {
	c.calls++
	return &booking.CommittedEvent{ID: "evt", Link: "https://calendar.google.com/event?eid=evt"}, nil
}

func TestProcess_UnparseableDateWithRealService(t *testing.T) {
	modelReply := `Booked! {"action":"schedule","name":"John","dateTime":"when the stars align","reason":"discuss React"}`
	f := newFixture(t, &mockLLM{calls: []openai.ChatCompletionResponse{reply(modelReply)}}, nil)

	holder := auth.NewTokenHolder()
	holder.Set(&oauth2.Token{AccessToken: "at"})
	committer := &countingCommitter{}
	f.agent.scheduler = booking.NewService(dates.NewResolver(time.UTC), holder, committer, nil, f.tasks, nil)

	out, err := f.agent.Process(context.Background(), "Book a chat with Eddie")
	require.NoError(t, err)
	require.Equal(t, modelReply, out)
	require.Zero(t, committer.calls)
}
