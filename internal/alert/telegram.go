package alert

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// ErrQueueFull 发送队列已满
var ErrQueueFull = errors.New("telegram queue full")

// ErrNotifierClosed 渠道已关闭
var ErrNotifierClosed = errors.New("telegram notifier closed")

// Sender Telegram 发送接口，*tgbotapi.BotAPI 满足该接口
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// NewBot 创建 Telegram Bot 并校验 token
func NewBot(token string) (*tgbotapi.BotAPI, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("创建 telegram bot 失败: %w", err)
	}
	bot.Debug = false
	return bot, nil
}

// TelegramNotifier 通过 Telegram 推送告警
// 消息进入有界队列，由后台 goroutine 按最小间隔串行发送，避免触发 429。
type TelegramNotifier struct {
	sender   Sender
	chatID   int64
	interval time.Duration
	logger   *zap.Logger

	queue chan Alert
	mu    sync.RWMutex
	done  bool
	wg    sync.WaitGroup

	lastSend time.Time
}

// NewTelegramNotifier 创建 Telegram 渠道并启动发送 goroutine
// 参数 sender: Telegram 发送接口
// 参数 chatID: 目标会话
// 参数 interval: 两条消息的最小间隔
// 参数 queueSize: 队列容量
func NewTelegramNotifier(sender Sender, chatID int64, interval time.Duration, queueSize int, logger *zap.Logger) *TelegramNotifier {
	if queueSize <= 0 {
		queueSize = 100
	}
	n := &TelegramNotifier{
		sender:   sender,
		chatID:   chatID,
		interval: interval,
		logger:   logger,
		queue:    make(chan Alert, queueSize),
	}
	n.wg.Add(1)
	go n.run()
	return n
}

// Name 实现 Notifier
func (n *TelegramNotifier) Name() string { return "telegram" }

// Notify 实现 Notifier，入队后立即返回
func (n *TelegramNotifier) Notify(_ context.Context, a Alert) error {
	n.mu.RLock()
	defer n.mu.RUnlock()
	if n.done {
		return ErrNotifierClosed
	}
	select {
	case n.queue <- a:
		return nil
	default:
		return ErrQueueFull
	}
}

// QueueLen 返回待发送消息数
func (n *TelegramNotifier) QueueLen() int {
	return len(n.queue)
}

// Close 停止接收新告警并等待队列发送完毕
// 参数 ctx: 等待上限；到期后返回 ctx.Err()，剩余消息由后台继续发送
func (n *TelegramNotifier) Close(ctx context.Context) error {
	n.mu.Lock()
	if !n.done {
		n.done = true
		close(n.queue)
	}
	n.mu.Unlock()

	finished := make(chan struct{})
	go func() {
		n.wg.Wait()
		close(finished)
	}()
	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (n *TelegramNotifier) run() {
	defer n.wg.Done()
	for a := range n.queue {
		n.send(a)
	}
}

func (n *TelegramNotifier) send(a Alert) {
	if wait := n.interval - time.Since(n.lastSend); !n.lastSend.IsZero() && wait > 0 {
		time.Sleep(wait)
	}

	msg := tgbotapi.NewMessage(n.chatID, RenderHTML(a))
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true

	_, err := n.sender.Send(msg)
	n.lastSend = time.Now()
	if err != nil {
		n.logger.Warn("telegram 发送失败",
			zap.String("match_id", a.Match.ID),
			zap.String("rule", a.Result.Rule),
			zap.Error(err),
		)
		return
	}
	n.logger.Debug("telegram 发送成功", zap.String("match_id", a.Match.ID), zap.String("rule", a.Result.Rule))
}

// RenderHTML 渲染 Telegram HTML 消息
func RenderHTML(a Alert) string {
	s := a.Snapshot
	m := s.Metrics()
	esc := html.EscapeString

	var b strings.Builder
	fmt.Fprintf(&b, "<b>%s</b>\n", esc(a.Result.Title))
	if a.Result.Description != "" {
		fmt.Fprintf(&b, "<i>%s</i>\n", esc(a.Result.Description))
	}
	b.WriteString("\n")

	league := a.Match.League
	if a.Match.Country != "" {
		league = fmt.Sprintf("%s (%s)", a.Match.League, a.Match.Country)
	}
	fmt.Fprintf(&b, "🏆 <b>%s</b>\n", esc(league))
	fmt.Fprintf(&b, "🔰 <b>%s</b> x <b>%s</b>\n", esc(nameOr(a.Match.HomeName, s.HomeLabel)), esc(nameOr(a.Match.AwayName, s.AwayLabel)))
	fmt.Fprintf(&b, "⏳ <i>%d min</i>\n\n", s.ElapsedMinutes)

	b.WriteString("📊 <b>Stats (Home vs Away)</b>\n")
	fmt.Fprintf(&b, "🥅 Goals: <b>%d</b> - <b>%d</b>\n", s.HomeScore, s.AwayScore)
	fmt.Fprintf(&b, "🔥 Dangerous attacks: %d - %d\n", s.HomeDangerousAttacks, s.AwayDangerousAttacks)
	fmt.Fprintf(&b, "🎯 On target: %d - %d | ⛔ Off target: %d - %d\n",
		s.HomeShotsOnTarget, s.AwayShotsOnTarget, s.HomeShotsOffTarget, s.AwayShotsOffTarget)
	fmt.Fprintf(&b, "⛳️ Corners: %d - %d\n", s.HomeCorners, s.AwayCorners)
	fmt.Fprintf(&b, "📈 APPM: %.2f - %.2f | CG: %d - %d", m.AttackRateHome, m.AttackRateAway, m.VolumeHome, m.VolumeAway)
	return b.String()
}

func nameOr(name, fallback string) string {
	if name != "" {
		return name
	}
	return fallback
}
