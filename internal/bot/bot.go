package bot

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/annko/keiba-bot-go/internal/adapter"
	"github.com/annko/keiba-bot-go/internal/command"
	"github.com/annko/keiba-bot-go/internal/domain"
	"github.com/annko/keiba-bot-go/internal/iris"
	"github.com/annko/keiba-bot-go/internal/line"
	"github.com/annko/keiba-bot-go/internal/metrics"
)

const messageTimeout = 60 * time.Second

// LineReplier sends the reply for one LINE event.
type LineReplier interface {
	Reply(ctx context.Context, replyToken string, texts ...string) error
}

// IrisSender posts a message into a KakaoTalk room.
type IrisSender interface {
	SendMessage(ctx context.Context, room, message string) error
	Ping(ctx context.Context) bool
}

// Dependencies holds what the bot needs. Line and Iris transports are optional.
type Dependencies struct {
	Logger         *zap.Logger
	Metrics        *metrics.Metrics
	MessageAdapter *adapter.MessageAdapter
	Formatter      *adapter.ResponseFormatter
	Races          command.RaceService
	Parser         command.QuestionParser
	OddsSource     string

	Line          LineReplier
	IrisClient    IrisSender
	IrisWebSocket *iris.WebSocket
}

// Bot routes chat messages from every transport through the command pipeline.
// Replies are collected per message and flushed once, since a LINE reply token
// can only be used a single time.
type Bot struct {
	deps       *Dependencies
	logger     *zap.Logger
	registry   *command.Registry
	dispatcher command.Dispatcher

	outboxMu sync.Mutex
	outbox   map[*domain.CommandContext][]string

	unsubscribe func()
	wg          sync.WaitGroup
}

func NewBot(deps *Dependencies) (*Bot, error) {
	if deps == nil {
		return nil, fmt.Errorf("bot dependencies must not be nil")
	}
	if deps.MessageAdapter == nil || deps.Formatter == nil || deps.Races == nil {
		return nil, fmt.Errorf("bot dependencies incomplete")
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	b := &Bot{
		deps:   deps,
		logger: logger,
		outbox: make(map[*domain.CommandContext][]string),
	}

	cmdDeps := &command.Dependencies{
		Races:       deps.Races,
		Parser:      deps.Parser,
		OddsSource:  deps.OddsSource,
		Formatter:   deps.Formatter,
		SendMessage: b.queue,
		SendError: func(cmdCtx *domain.CommandContext, message string) error {
			return b.queue(cmdCtx, deps.Formatter.FormatError(message))
		},
		Logger: logger,
	}
	b.registry = command.NewDefaultRegistry(cmdDeps)
	b.dispatcher = command.NewSequentialDispatcher(b.registry, nil)
	cmdDeps.ExecuteCommand = func(ctx context.Context, cmdCtx *domain.CommandContext, cmdType domain.CommandType, params map[string]any) error {
		_, err := b.dispatcher.Publish(ctx, cmdCtx, command.CommandEvent{Type: cmdType, Params: params})
		return err
	}

	return b, nil
}

// HandleMessage parses and executes one chat message and returns the collected replies.
func (b *Bot) HandleMessage(ctx context.Context, cmdCtx *domain.CommandContext) ([]string, error) {
	parsed := b.deps.MessageAdapter.ParseMessage(cmdCtx.Message)

	// KakaoTalk rooms only answer prefixed messages when a prefix is configured.
	if cmdCtx.Source == domain.SourceKakao && b.deps.MessageAdapter.HasPrefix() && !parsed.Prefixed {
		return nil, nil
	}
	if parsed.Type == domain.CommandUnknown && parsed.Error == "" {
		return nil, nil
	}

	b.countCommand(parsed.Type, cmdCtx.Source)
	if parsed.Error != "" {
		return []string{parsed.Error}, nil
	}

	defer b.drop(cmdCtx)
	_, err := b.dispatcher.Publish(ctx, cmdCtx, command.CommandEvent{Type: parsed.Type, Params: parsed.Params})
	replies := b.drain(cmdCtx)
	if err != nil {
		b.logger.Error("Command failed",
			zap.String("command", parsed.Type.String()),
			zap.String("source", string(cmdCtx.Source)),
			zap.Error(err),
		)
		if len(replies) == 0 {
			replies = []string{b.deps.Formatter.FormatError("処理中にエラーが発生しました。")}
		}
	}
	return replies, nil
}

// HandleLineEvent answers one LINE webhook text event.
func (b *Bot) HandleLineEvent(ctx context.Context, event line.Event) error {
	if b.deps.Line == nil {
		return fmt.Errorf("LINE transport not configured")
	}
	cmdCtx := domain.NewCommandContext(
		domain.SourceLine,
		event.Source.Room(),
		"",
		event.Source.UserID,
		event.Message.Text,
		event.Source.IsGroup(),
	)
	cmdCtx.ReplyToken = event.ReplyToken

	replies, err := b.HandleMessage(ctx, cmdCtx)
	if err != nil || len(replies) == 0 {
		return err
	}
	return b.deps.Line.Reply(ctx, event.ReplyToken, replies...)
}

// HandleIrisMessage answers one KakaoTalk message delivered by Iris.
func (b *Bot) HandleIrisMessage(ctx context.Context, message *iris.Message) error {
	if b.deps.IrisClient == nil {
		return fmt.Errorf("iris transport not configured")
	}
	cmdCtx := domain.NewCommandContext(
		domain.SourceKakao,
		message.ChatID(),
		message.Room,
		message.SenderName(),
		message.Text(),
		true,
	)

	replies, err := b.HandleMessage(ctx, cmdCtx)
	if err != nil || len(replies) == 0 {
		return err
	}
	return b.deps.IrisClient.SendMessage(ctx, cmdCtx.Room, strings.Join(replies, "\n\n"))
}

// Start connects the Iris websocket when configured and blocks until ctx ends.
func (b *Bot) Start(ctx context.Context) error {
	if ws := b.deps.IrisWebSocket; ws != nil && b.deps.IrisClient != nil {
		if !b.deps.IrisClient.Ping(ctx) {
			b.logger.Warn("Iris bridge did not answer; replies may fail until it is up")
		}
		stopStates := ws.OnStateChange(func(state iris.WebSocketState) {
			if state == iris.WSStateFailed {
				b.logger.Error("Iris websocket gave up reconnecting; KakaoTalk messages are no longer received")
			}
		})
		stopMessages := ws.OnMessage(func(message *iris.Message) {
			b.wg.Add(1)
			go func() {
				defer b.wg.Done()
				msgCtx, cancel := context.WithTimeout(ctx, messageTimeout)
				defer cancel()
				if err := b.HandleIrisMessage(msgCtx, message); err != nil {
					b.logger.Error("Failed to handle Iris message", zap.Error(err))
				}
			}()
		})
		b.unsubscribe = func() {
			stopMessages()
			stopStates()
		}
		if err := ws.Connect(ctx); err != nil {
			return fmt.Errorf("connect iris websocket: %w", err)
		}
	}

	b.logger.Info("Bot started", zap.Strings("commands", b.registry.Names()))
	<-ctx.Done()
	return nil
}

// Shutdown disconnects transports and waits for in-flight messages.
func (b *Bot) Shutdown(ctx context.Context) error {
	if b.unsubscribe != nil {
		b.unsubscribe()
	}
	if ws := b.deps.IrisWebSocket; ws != nil {
		if err := ws.Disconnect(); err != nil {
			b.logger.Warn("Failed to disconnect Iris websocket", zap.Error(err))
		}
	}

	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (b *Bot) queue(cmdCtx *domain.CommandContext, message string) error {
	b.outboxMu.Lock()
	defer b.outboxMu.Unlock()
	b.outbox[cmdCtx] = append(b.outbox[cmdCtx], message)
	return nil
}

func (b *Bot) drain(cmdCtx *domain.CommandContext) []string {
	b.outboxMu.Lock()
	defer b.outboxMu.Unlock()
	replies := b.outbox[cmdCtx]
	delete(b.outbox, cmdCtx)
	return replies
}

func (b *Bot) drop(cmdCtx *domain.CommandContext) {
	b.outboxMu.Lock()
	delete(b.outbox, cmdCtx)
	b.outboxMu.Unlock()
}

func (b *Bot) countCommand(cmdType domain.CommandType, source domain.MessageSource) {
	if b.deps.Metrics == nil {
		return
	}
	b.deps.Metrics.Commands.WithLabelValues(cmdType.String(), string(source)).Inc()
}
