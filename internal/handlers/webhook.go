package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"
	"github.com/line/line-bot-sdk-go/v8/linebot/webhook"
	"github.com/rs/zerolog/log"

	"github.com/ytakahashi/zikr-companion/internal/models"
	"github.com/ytakahashi/zikr-companion/internal/qibla"
	"github.com/ytakahashi/zikr-companion/internal/tracker"
)

// messenger is the part of the LINE Messaging API the webhook uses.
type messenger interface {
	ReplyMessage(replyMessageRequest *messaging_api.ReplyMessageRequest) (*messaging_api.ReplyMessageResponse, error)
}

type WebhookHandler struct {
	bot           messenger
	channelSecret string
	trackers      *tracker.Registry
}

func NewWebhookHandler(bot *messaging_api.MessagingApiAPI, channelSecret string, trackers *tracker.Registry) *WebhookHandler {
	return &WebhookHandler{
		bot:           bot,
		channelSecret: channelSecret,
		trackers:      trackers,
	}
}

func getUserID(source webhook.SourceInterface) string {
	switch s := source.(type) {
	case webhook.UserSource:
		return s.UserId
	case webhook.GroupSource:
		return s.UserId
	case webhook.RoomSource:
		return s.UserId
	default:
		return ""
	}
}

func (h *WebhookHandler) HandleWebhook(c echo.Context) error {
	cb, err := webhook.ParseRequest(h.channelSecret, c.Request())
	if err != nil {
		if errors.Is(err, webhook.ErrInvalidSignature) {
			log.Warn().Msg("invalid webhook signature")
			return c.NoContent(http.StatusBadRequest)
		}
		log.Error().Err(err).Msg("failed to parse webhook request")
		return c.NoContent(http.StatusInternalServerError)
	}

	ctx := c.Request().Context()
	for _, event := range cb.Events {
		switch e := event.(type) {
		case webhook.MessageEvent:
			userID := getUserID(e.Source)
			switch message := e.Message.(type) {
			case webhook.TextMessageContent:
				if err := h.handleTextMessage(ctx, e.ReplyToken, userID, message.Text); err != nil {
					log.Error().Err(err).Str("user", userID).Msg("error handling text message")
				}
			case webhook.LocationMessageContent:
				coord := models.Coordinate{Latitude: message.Latitude, Longitude: message.Longitude}
				if err := h.replyQibla(e.ReplyToken, coord); err != nil {
					log.Error().Err(err).Str("user", userID).Msg("error handling location message")
				}
			}
		case webhook.PostbackEvent:
			userID := getUserID(e.Source)
			if err := h.handlePostback(ctx, e.ReplyToken, userID, e.Postback.Data); err != nil {
				log.Error().Err(err).Str("user", userID).Msg("error handling postback")
			}
		}
	}

	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

var (
	targetPattern = regexp.MustCompile(`^target[\s　]+(\d+)$`)
	modePattern   = regexp.MustCompile(`^mode[\s　]+(target|infinite)$`)
	spacePattern  = regexp.MustCompile(`[\s　]+`)
)

// ignoreSaveError drops persistence failures, which the tracker has
// already logged; the in-memory state is still correct.
func ignoreSaveError(err error) error {
	if errors.Is(err, tracker.ErrSaveFailed) {
		return nil
	}
	return err
}

func (h *WebhookHandler) handleTextMessage(ctx context.Context, replyToken, userID, text string) error {
	if userID == "" {
		log.Debug().Msg("ignoring text message without a user id")
		return nil
	}
	log.Debug().Str("user", userID).Str("text", text).Msg("received text")

	normalized := strings.ToLower(strings.TrimSpace(spacePattern.ReplaceAllString(text, " ")))
	t := h.trackers.Get(ctx, userID)

	switch normalized {
	case "+", "count", "tasbih":
		if _, err := t.IncrementCount(ctx); ignoreSaveError(err) != nil {
			return err
		}
		return h.replyMessage(replyToken, counterText(t.Snapshot()))
	case "reset":
		if err := ignoreSaveError(t.ResetCount(ctx)); err != nil {
			return err
		}
		return h.replyMessage(replyToken, "🔄 Counter reset.\n"+counterText(t.Snapshot()))
	case "list", "tasks":
		return h.showTaskList(ctx, replyToken, t)
	case "streak":
		return h.replyMessage(replyToken, streakText(t.Streak()))
	case "reset tasks":
		if err := ignoreSaveError(t.ResetDailyTasks(ctx)); err != nil {
			return err
		}
		return h.replyMessage(replyToken, "🔄 All task counts reset. Your completion history is kept.")
	case "qibla":
		return h.askForLocation(replyToken)
	case "help":
		return h.showHelp(replyToken)
	}

	if m := targetPattern.FindStringSubmatch(normalized); m != nil {
		n, err := strconv.Atoi(m[1])
		if err != nil {
			return h.replyMessage(replyToken, "Target must be a number.\nExample: target 99")
		}
		if err := ignoreSaveError(t.SetTargetCount(ctx, n)); err != nil {
			return err
		}
		return h.replyMessage(replyToken, fmt.Sprintf("🎯 Target set to %d.", n))
	}

	if m := modePattern.FindStringSubmatch(normalized); m != nil {
		if err := ignoreSaveError(t.SetMode(ctx, models.CounterMode(m[1]))); err != nil {
			return err
		}
		return h.replyMessage(replyToken, fmt.Sprintf("Mode set to %s.", m[1]))
	}

	// unrecognised messages get no reply
	return nil
}

func (h *WebhookHandler) handlePostback(ctx context.Context, replyToken, userID, data string) error {
	if userID == "" {
		log.Debug().Msg("ignoring postback without a user id")
		return nil
	}
	action, taskID, ok := strings.Cut(data, ":")
	if !ok || taskID == "" {
		return nil
	}
	t := h.trackers.Get(ctx, userID)

	var (
		task models.ZikrTask
		err  error
	)
	switch action {
	case "increment":
		task, err = t.IncrementTaskCount(ctx, taskID)
	case "complete":
		task, err = t.CompleteTask(ctx, taskID)
	default:
		return nil
	}

	if errors.Is(err, tracker.ErrTaskNotFound) {
		return h.replyMessage(replyToken, "That task no longer exists.")
	}
	if err := ignoreSaveError(err); err != nil {
		return err
	}

	text := fmt.Sprintf("📿 %s: %d / %d", task.Title, task.CurrentCount, task.TargetCount)
	if task.IsCompleted {
		text = fmt.Sprintf("🎉 %s completed!\n🔥 %s", task.Title, streakText(t.Streak()))
	}
	return h.replyMessage(replyToken, text)
}

func counterText(st *models.TrackerState) string {
	if st.Mode == models.ModeInfinite {
		return fmt.Sprintf("📿 %d", st.CurrentCount)
	}
	text := fmt.Sprintf("📿 %d / %d", st.CurrentCount, st.TargetCount)
	if st.TargetCount > 0 && st.CurrentCount >= st.TargetCount {
		text += "\n✨ Target reached!"
	}
	return text
}

func streakText(days int) string {
	switch days {
	case 0:
		return "No active streak yet. Complete a task today to start one."
	case 1:
		return "Streak: 1 day"
	}
	return fmt.Sprintf("Streak: %d days", days)
}

// quick reply labels are limited to 20 characters
func truncateLabel(s string) string {
	r := []rune(s)
	if len(r) <= 20 {
		return s
	}
	return string(r[:19]) + "…"
}

// quick replies hold at most 13 items
const maxQuickReplyItems = 13

func (h *WebhookHandler) showTaskList(ctx context.Context, replyToken string, t *tracker.Tracker) error {
	st := t.Snapshot()
	if len(st.Tasks) == 0 {
		return h.replyMessage(replyToken, "You have no tasks.")
	}

	var lines []string
	var items []messaging_api.QuickReplyItem
	for i, task := range st.Tasks {
		mark := "⬜"
		if task.IsCompleted {
			mark = "✅"
		}
		lines = append(lines, fmt.Sprintf("%d. %s %s (%d/%d)", i+1, mark, task.Title, task.CurrentCount, task.TargetCount))

		if !task.IsCompleted && len(items) < maxQuickReplyItems {
			items = append(items, messaging_api.QuickReplyItem{
				Action: &messaging_api.PostbackAction{
					Label:       truncateLabel("+1 " + task.Title),
					Data:        fmt.Sprintf("increment:%s", task.ID),
					DisplayText: "+1 " + task.Title,
				},
			})
		}
	}

	p := t.Progress()
	message := &messaging_api.TextMessage{
		Text: fmt.Sprintf("📋 Today's tasks (%d/%d done)\n\n%s", p.Completed, p.Total, strings.Join(lines, "\n")),
	}
	if len(items) > 0 {
		message.QuickReply = &messaging_api.QuickReply{Items: items}
	}
	return h.reply(replyToken, message)
}

func (h *WebhookHandler) askForLocation(replyToken string) error {
	message := &messaging_api.TextMessage{
		Text: "Share your location and I'll show you the Qibla direction.",
		QuickReply: &messaging_api.QuickReply{
			Items: []messaging_api.QuickReplyItem{
				{Action: &messaging_api.LocationAction{Label: "Send location"}},
			},
		},
	}
	return h.reply(replyToken, message)
}

func (h *WebhookHandler) replyQibla(replyToken string, coord models.Coordinate) error {
	if err := coord.Validate(); err != nil {
		return h.replyMessage(replyToken, "That location looks invalid.")
	}
	d := qibla.Find(coord)
	return h.replyMessage(replyToken, fmt.Sprintf(
		"🕋 Qibla: %.1f° from true north (%s)\n📏 Distance to the Kaaba: %.0f km",
		d.Bearing, d.Compass, d.DistanceKm,
	))
}

func (h *WebhookHandler) showHelp(replyToken string) error {
	helpText := `📿 Zikr Bot

Counter:
・+ or count — add one
・reset — start again from zero
・target <n> — e.g. target 99
・mode target / mode infinite

Tasks:
・list — today's tasks (tap to count)
・reset tasks — clear today's counts
・streak — consecutive active days

Qibla:
・qibla, or send your location

・help — show this message`

	return h.replyMessage(replyToken, helpText)
}

func (h *WebhookHandler) replyMessage(replyToken, text string) error {
	return h.reply(replyToken, &messaging_api.TextMessage{Text: text})
}

func (h *WebhookHandler) reply(replyToken string, message messaging_api.MessageInterface) error {
	_, err := h.bot.ReplyMessage(
		&messaging_api.ReplyMessageRequest{
			ReplyToken: replyToken,
			Messages:   []messaging_api.MessageInterface{message},
		},
	)
	if err != nil {
		log.Error().Err(err).Msg("failed to send reply message")
	}
	return err
}
