// Service to send telegram messages - alert delivery, remote queries
// and quick readings ("tent" answers with the tent's latest
// measurements).
package telegram

import (
	"fmt"
	"log"
	"sort"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/j13tw/Mycodo/pubsub"
	"github.com/j13tw/Mycodo/services"
	"github.com/j13tw/Mycodo/util"
)

// Service telegram
type Service struct {
	bot *tgbotapi.BotAPI
}

func (self *Service) ID() string {
	return "telegram"
}

func (self *Service) sendMessage(ev *pubsub.Event, remote int) {
	if filename, ok := ev.Fields["filename"].(string); ok {
		log.Printf("Sending telegram picture: %s", filename)
		msg := tgbotapi.NewPhoto(services.Config.Telegram.Chat_id, tgbotapi.FilePath(filename))
		msg.Caption = ev.StringField("message")
		if remote != 0 {
			msg.ReplyToMessageID = remote
		}
		self.bot.Send(msg)
	} else if message, ok := ev.Fields["message"].(string); ok {
		log.Printf("Sending telegram message: %s", message)
		msg := tgbotapi.NewMessage(services.Config.Telegram.Chat_id, message)
		if remote != 0 {
			msg.ReplyToMessageID = remote
		}
		self.bot.Send(msg)
	}
}

func rewriteTelegramCommands(s string) string {
	// Rewrite "/pid_status ..." -> "pid/status ..."
	s = strings.TrimLeft(s, "/")
	i := strings.Index(s, " ")
	if i == -1 {
		i = len(s)
	}
	return strings.Replace(s[:i], "_", "/", -1) + s[i:]
}

var snapshotSkip = map[string]bool{
	"device":  true,
	"source":  true,
	"repeat":  true,
	"command": true,
}

func formatReading(device string, ev *pubsub.Event, now time.Time) string {
	var parts []string
	if command := ev.Command(); command != "" {
		parts = append(parts, command)
	}
	var fields []string
	for field := range ev.Fields {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	for _, field := range fields {
		if snapshotSkip[field] {
			continue
		}
		if value, ok := ev.Fields[field].(float64); ok {
			parts = append(parts, fmt.Sprintf("%s %v", field, value))
		}
	}
	if len(parts) == 0 {
		return ""
	}
	ago := util.ShortDuration(now.Sub(ev.Timestamp))
	return fmt.Sprintf("%s: %s (%s ago)", device, strings.Join(parts, " "), ago)
}

// snapshot answers a device name fragment with the matching devices'
// latest readings, from the state the api service records.
func snapshot(name string, now time.Time) string {
	nodes, _ := services.Stor.GetRecursive("mycodo/state/devices")
	var lines []string
	for _, node := range nodes {
		device := node.Key[strings.LastIndex(node.Key, "/")+1:]
		if !strings.Contains(device, name) {
			continue
		}
		ev := pubsub.Parse(node.Value, "")
		if ev == nil {
			continue
		}
		if line := formatReading(device, ev, now); line != "" {
			lines = append(lines, line)
		}
	}
	sort.Strings(lines)
	return strings.Join(lines, "\n")
}

func (self *Service) handleMessage(message *tgbotapi.Message) {
	text := message.Text
	remote := fmt.Sprint(message.MessageID)
	if !strings.HasPrefix(text, "/") {
		// bare device name - answer with the latest readings
		if snap := snapshot(strings.TrimSpace(text), time.Now()); snap != "" {
			msg := tgbotapi.NewMessage(services.Config.Telegram.Chat_id, snap)
			msg.ReplyToMessageID = message.MessageID
			self.bot.Send(msg)
			return
		}
	}
	services.SendQuery(rewriteTelegramCommands(text), "telegram", remote, "alert")
}

func (self *Service) Run() error {
	bot, err := tgbotapi.NewBotAPI(services.Config.Telegram.Token)
	if err != nil {
		return err
	}

	self.bot = bot

	go func() {
		u := tgbotapi.NewUpdate(0)
		u.Timeout = 60

		updates := bot.GetUpdatesChan(u)

		for update := range updates {
			if update.Message == nil {
				continue
			}

			if services.Config.Telegram.Chat_id == update.Message.Chat.ID {
				self.handleMessage(update.Message)
			} else {
				text := fmt.Sprintf("This is chat %d, configure this in mycodo telegram->chat_id.", update.Message.Chat.ID)
				msg := tgbotapi.NewMessage(update.Message.Chat.ID, text)
				bot.Send(msg)
			}
		}
	}()

	events := services.Subscriber.Subscribe(pubsub.Prefix("alert"))
	for ev := range events {
		if ev.Target() == "telegram" {
			remote := ev.StringField("remote")
			i, _ := strconv.Atoi(remote)
			self.sendMessage(ev, i)
		}
	}
	return nil
}
