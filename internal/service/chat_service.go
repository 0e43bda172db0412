package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/docqa/internal/line"
	"github.com/xxxsen/docqa/internal/metrics"
	"github.com/xxxsen/docqa/internal/model"
	appErr "github.com/xxxsen/docqa/internal/pkg/errors"
)

type Answerer interface {
	Answer(ctx context.Context, question string) (*model.Answer, error)
}

type Messenger interface {
	Reply(ctx context.Context, replyToken string, messages []model.TextMessage) error
	Push(ctx context.Context, to string, messages []model.TextMessage) error
}

type ChatConfig struct {
	ChannelSecret   string
	TriggerKeywords []string
	HelpMessage     string
	ApologyMessage  string
}

type Action int

const (
	ActionSkip Action = iota
	ActionHelp
	ActionAnswer
)

const (
	outcomeSkipped     = "skipped"
	outcomeHelp        = "help"
	outcomeAnswered    = "answered"
	outcomeApology     = "apology"
	outcomeReplyFailed = "reply_failed"
	outcomePanic       = "panic"
)

type ChatService struct {
	answerer  Answerer
	messenger Messenger
	cfg       ChatConfig
}

func NewChatService(answerer Answerer, messenger Messenger, cfg ChatConfig) *ChatService {
	return &ChatService{answerer: answerer, messenger: messenger, cfg: cfg}
}

// HandleWebhook authenticates and dispatches one webhook delivery. Once the
// signature and body are accepted it returns nil whatever happens to the
// individual events.
func (s *ChatService) HandleWebhook(ctx context.Context, body []byte, signature string) error {
	if !line.VerifySignature(s.cfg.ChannelSecret, body, signature) {
		return appErr.ErrUnauthorized
	}
	var payload model.WebhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return fmt.Errorf("decode webhook payload: %w", err)
	}
	logutil.GetLogger(ctx).Debug("webhook received", zap.Int("events", len(payload.Events)))
	ctx = context.WithoutCancel(ctx)
	for i := range payload.Events {
		s.handleEventSafe(ctx, i, payload.Events[i])
	}
	return nil
}

func (s *ChatService) handleEventSafe(ctx context.Context, idx int, ev model.ChatEvent) {
	logger := logutil.GetLogger(ctx).With(zap.Int("event_index", idx), zap.String("event_id", ev.WebhookEventID))
	defer func() {
		if r := recover(); r != nil {
			metrics.WebhookEvent(outcomePanic)
			logger.Error("event handling panicked", zap.Any("panic", r))
			s.replyApology(ctx, logger, ev.ReplyToken)
		}
	}()
	outcome := s.handleEvent(ctx, logger, ev)
	metrics.WebhookEvent(outcome)
}

// replyApology is the last-chance reply after a panic. It must not panic
// itself.
func (s *ChatService) replyApology(ctx context.Context, logger *zap.Logger, token string) {
	if token == "" {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			logger.Error("apology reply panicked", zap.Any("panic", r))
		}
	}()
	if err := s.reply(ctx, token, s.cfg.ApologyMessage); err != nil {
		logger.Error("reply apology failed", zap.Error(err))
	}
}

func (s *ChatService) handleEvent(ctx context.Context, logger *zap.Logger, ev model.ChatEvent) string {
	action, question := s.Resolve(ev)
	if ev.Source.Context() == model.ConversationShared {
		logger = logger.With(zap.String("source_type", string(ev.Source.Type)), zap.String("conversation_id", ev.Source.ID()))
	}
	switch action {
	case ActionSkip:
		logger.Debug("event skipped", zap.String("type", string(ev.Type)))
		return outcomeSkipped
	case ActionHelp:
		if err := s.reply(ctx, ev.ReplyToken, s.cfg.HelpMessage); err != nil {
			logger.Error("reply help failed", zap.Error(err))
			return outcomeReplyFailed
		}
		return outcomeHelp
	}

	outcome := outcomeAnswered
	text := ""
	ans, err := s.answerer.Answer(ctx, question)
	if err != nil {
		logger.Error("answer question failed", zap.Error(err))
		text = s.cfg.ApologyMessage
		outcome = outcomeApology
	} else {
		text = ans.Text
		logger.Info("question answered", zap.Strings("sources", ans.Sources))
	}
	if err := s.reply(ctx, ev.ReplyToken, text); err != nil {
		logger.Error("reply answer failed", zap.Error(err))
		return outcomeReplyFailed
	}
	return outcome
}

// Resolve decides what to do with an event and extracts the question.
func (s *ChatService) Resolve(ev model.ChatEvent) (Action, string) {
	text, ok := ev.TextMessage()
	if !ok {
		return ActionSkip, ""
	}
	switch ev.Source.Context() {
	case model.ConversationDirect:
		if strings.TrimSpace(text) == "" {
			return ActionSkip, ""
		}
		return ActionAnswer, text
	case model.ConversationShared:
		rest, matched := s.stripKeyword(text)
		if !matched {
			return ActionSkip, ""
		}
		rest = strings.TrimSpace(rest)
		if rest == "" {
			return ActionHelp, ""
		}
		return ActionAnswer, rest
	default:
		return ActionSkip, ""
	}
}

// stripKeyword matches the configured keywords in order as a
// case-insensitive prefix of the trimmed message.
func (s *ChatService) stripKeyword(text string) (string, bool) {
	text = strings.TrimSpace(text)
	for _, kw := range s.cfg.TriggerKeywords {
		kw = strings.TrimSpace(kw)
		if kw == "" {
			continue
		}
		if n, ok := prefixFold(text, kw); ok {
			return text[n:], true
		}
	}
	return "", false
}

// prefixFold reports whether text starts with prefix under simple case
// folding, returning the byte length of the matched prefix in text.
func prefixFold(text, prefix string) (int, bool) {
	pos := 0
	for _, pr := range prefix {
		if pos >= len(text) {
			return 0, false
		}
		tr, size := utf8.DecodeRuneInString(text[pos:])
		if !strings.EqualFold(string(tr), string(pr)) {
			return 0, false
		}
		pos += size
	}
	return pos, true
}

func (s *ChatService) reply(ctx context.Context, token, text string) error {
	err := s.messenger.Reply(ctx, token, []model.TextMessage{model.NewTextMessage(line.TruncateText(text))})
	if err != nil {
		metrics.MessagingFailure("reply")
	}
	return err
}

// Push sends a message outside any conversation turn.
func (s *ChatService) Push(ctx context.Context, to, text string) error {
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("%w: empty message", appErr.ErrInvalid)
	}
	err := s.messenger.Push(ctx, to, []model.TextMessage{model.NewTextMessage(line.TruncateText(text))})
	if err != nil {
		metrics.MessagingFailure("push")
	}
	return err
}
