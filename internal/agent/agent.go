package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/qmuntal/stateless" // FSM library
	"github.com/sashabaranov/go-openai"

	"github.com/comigor/nazborg-go/internal/booking"
	"github.com/comigor/nazborg-go/internal/config"
	"github.com/comigor/nazborg-go/internal/history"
	"github.com/comigor/nazborg-go/internal/intent"
	"github.com/comigor/nazborg-go/internal/llm"
	"github.com/comigor/nazborg-go/internal/logger"
	"github.com/comigor/nazborg-go/internal/metrics"
	"github.com/comigor/nazborg-go/internal/tasks"
)

// FSM States
type FSMState string

const (
	StateReady              FSMState = "Ready"
	StateAwaitingCompletion FSMState = "AwaitingCompletion"
	StateExtractingIntent   FSMState = "ExtractingIntent"
	StateScheduling         FSMState = "Scheduling"
	StateDone               FSMState = "Done"  // Terminal: reply ready
	StateError              FSMState = "Error" // Terminal: completion failed
)

// FSM Triggers
type FSMTrigger string

const (
	TriggerProcessInput       FSMTrigger = "ProcessInput"
	TriggerReplyReceived      FSMTrigger = "ReplyReceived"
	TriggerReplyBlank         FSMTrigger = "ReplyBlank"
	TriggerCandidateFound     FSMTrigger = "CandidateFound"
	TriggerNoCandidate        FSMTrigger = "NoCandidate"
	TriggerSchedulingFinished FSMTrigger = "SchedulingFinished"
	TriggerErrorOccurred      FSMTrigger = "ErrorOccurred"
)

// FallbackReply is returned when the model answers with blank text.
const FallbackReply = "No response from NazborgAI."

// confirmationFormat is appended to the reply once an event is committed.
const confirmationFormat = "\n\nYour meeting is booked: %s"

var (
	ErrInvalidPrompt = errors.New("invalid prompt")
	ErrCompletion    = errors.New("completion service failed")
)

// Scheduler commits a booking candidate.
type Scheduler interface {
	Schedule(ctx context.Context, c booking.Candidate, source booking.Source) (*booking.CommittedEvent, error)
}

// Deps are the collaborators of a chat turn. Tasks persists exchanges and must
// run them in submission order (tasks.NewSerial) so turns replay causally.
type Deps struct {
	History   history.Store
	Extractor *intent.Extractor
	Scheduler Scheduler
	Tasks     *tasks.Dispatcher
	Metrics   *metrics.Metrics
}

// Agent turns a chat message into a reply, booking a meeting on the way when
// the turn carries scheduling intent.
type Agent struct {
	llmClient    llm.Client
	cfg          config.LLMConfig
	systemPrompt string
	history      history.Store
	extractor    *intent.Extractor
	scheduler    Scheduler
	tasks        *tasks.Dispatcher
	metrics      *metrics.Metrics
	now          func() time.Time
}

// New creates a new agent. systemPrompt is sent ahead of the history on every turn.
func New(llmClient llm.Client, cfg config.LLMConfig, systemPrompt string, deps Deps) *Agent {
	return &Agent{
		llmClient:    llmClient,
		cfg:          cfg,
		systemPrompt: systemPrompt,
		history:      deps.History,
		extractor:    deps.Extractor,
		scheduler:    deps.Scheduler,
		tasks:        deps.Tasks,
		metrics:      deps.Metrics,
		now:          time.Now,
	}
}

// turn is the FSM context of one Process call.
type turn struct {
	prompt    string
	messages  []openai.ChatCompletionMessage
	reply     string
	intent    intent.Result
	lastError error
}

// Process handles one chat turn. Only validation and completion failures are
// returned; anything that goes wrong after a reply exists is logged and the
// plain reply is returned.
func (a *Agent) Process(ctx context.Context, prompt string) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		a.metrics.ChatTurn("invalid")
		return "", ErrInvalidPrompt
	}

	t := &turn{prompt: prompt}
	fsm := stateless.NewStateMachine(StateReady)

	fsm.Configure(StateReady).
		Permit(TriggerProcessInput, StateAwaitingCompletion)

	// State: AwaitingCompletion
	// Action: load history, call the completion service, persist the exchange.
	fsm.Configure(StateAwaitingCompletion).
		OnEntry(func(ctx context.Context, _ ...any) error {
			return fsm.FireCtx(ctx, a.complete(ctx, t))
		}).
		Permit(TriggerReplyReceived, StateExtractingIntent).
		Permit(TriggerReplyBlank, StateDone).
		Permit(TriggerErrorOccurred, StateError)

	// State: ExtractingIntent
	// Action: run the extraction strategies over the reply and the user message.
	fsm.Configure(StateExtractingIntent).
		OnEntry(func(ctx context.Context, _ ...any) error {
			t.intent = a.extractor.Extract(intent.Input{Reply: t.reply, UserMessage: t.prompt, Now: a.now()})
			logger.From(ctx).Debug("intent extracted", "kind", t.intent.Kind.String())
			if !t.intent.Found() {
				return fsm.FireCtx(ctx, TriggerNoCandidate)
			}
			return fsm.FireCtx(ctx, TriggerCandidateFound)
		}).
		Permit(TriggerCandidateFound, StateScheduling).
		Permit(TriggerNoCandidate, StateDone)

	// State: Scheduling
	// Action: a single commit attempt; failures leave the reply untouched.
	fsm.Configure(StateScheduling).
		OnEntry(func(ctx context.Context, _ ...any) error {
			a.schedule(ctx, t)
			return fsm.FireCtx(ctx, TriggerSchedulingFinished)
		}).
		Permit(TriggerSchedulingFinished, StateDone)

	fsm.Configure(StateDone)
	fsm.Configure(StateError)

	if err := fsm.FireCtx(ctx, TriggerProcessInput); err != nil {
		logger.From(ctx).Error("FSM fire error", "error", err)
		return "", fmt.Errorf("FSM internal error: %w", err)
	}

	state, err := fsm.State(ctx)
	if err != nil {
		return "", fmt.Errorf("FSM internal error: %w", err)
	}
	switch state {
	case StateDone:
		return t.reply, nil
	case StateError:
		a.metrics.ChatTurn("error")
		if t.lastError != nil {
			return "", t.lastError
		}
		return "", errors.New("FSM ended in StateError without a specific error")
	default:
		return "", fmt.Errorf("FSM ended in an unexpected state: %v", state)
	}
}

// complete runs the completion call and reports which trigger to fire next.
func (a *Agent) complete(ctx context.Context, t *turn) FSMTrigger {
	log := logger.From(ctx)

	t.messages = a.buildMessages(ctx, t.prompt)
	log.Debug("sending to completion service", "messages", len(t.messages))

	resp, err := a.llmClient.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    a.cfg.Model,
		Messages: t.messages,
	})
	if err != nil {
		log.Error("completion call failed", "error", err)
		t.lastError = fmt.Errorf("%w: %w", ErrCompletion, err)
		return TriggerErrorOccurred
	}

	if len(resp.Choices) > 0 {
		t.reply = resp.Choices[0].Message.Content
	}
	if strings.TrimSpace(t.reply) == "" {
		log.Warn("completion service returned a blank reply")
		t.reply = FallbackReply
		a.metrics.ChatTurn("blank")
		return TriggerReplyBlank
	}

	a.persist(t.prompt, t.reply)
	a.metrics.ChatTurn("replied")
	return TriggerReplyReceived
}

// buildMessages returns [system, ...history, user] without entries that have
// no role or blank content. A history read failure yields no history.
func (a *Agent) buildMessages(ctx context.Context, prompt string) []openai.ChatCompletionMessage {
	past, err := a.history.LoadAll(ctx)
	if err != nil {
		logger.From(ctx).Warn("history read failed; continuing without history", "error", err)
		past = nil
	}

	all := make([]openai.ChatCompletionMessage, 0, len(past)+2)
	all = append(all, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: a.systemPrompt})
	for _, m := range past {
		all = append(all, openai.ChatCompletionMessage{Role: m.Role, Content: m.Content})
	}
	all = append(all, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: prompt})

	sanitized := all[:0]
	for _, m := range all {
		if m.Role == "" || strings.TrimSpace(m.Content) == "" {
			continue
		}
		sanitized = append(sanitized, m)
	}
	return sanitized
}

// persist queues the exchange; user before assistant so replay stays causal.
func (a *Agent) persist(prompt, reply string) {
	now := a.now().UTC()
	a.tasks.Submit("history.append", func(ctx context.Context) error {
		return a.history.Append(ctx,
			history.Message{Role: history.RoleUser, Content: prompt, CreatedAt: now},
			history.Message{Role: history.RoleAssistant, Content: reply, CreatedAt: now},
		)
	})
}

func (a *Agent) schedule(ctx context.Context, t *turn) {
	log := logger.From(ctx)
	ev, err := a.scheduler.Schedule(ctx, t.intent.Candidate, t.intent.Source())
	if err != nil {
		log.Info("chat booking skipped", "kind", t.intent.Kind.String(), "error", err)
		return
	}
	t.reply += fmt.Sprintf(confirmationFormat, ev.Link)
}
