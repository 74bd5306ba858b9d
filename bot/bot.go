package bot

import (
	"context"
	"fmt"
	"log"
	"sync"

	"strava-canteen/config"
	"strava-canteen/services"
	"strava-canteen/strava"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Bot lets Telegram users browse the canteen menu and toggle orders
// through their linked Strava.cz account. Each chat gets its own client
// instance, created lazily from the stored credentials.
type Bot struct {
	api *tgbotapi.BotAPI
	cfg *config.Config

	clients   map[int64]*strava.Client
	clientsMu sync.Mutex

	pendingLink   map[int64]bool // chats we asked for credentials
	pendingLinkMu sync.Mutex
}

func New(cfg *config.Config) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(cfg.Telegram.Token)
	if err != nil {
		return nil, err
	}
	return &Bot{
		api:         api,
		cfg:         cfg,
		clients:     make(map[int64]*strava.Client),
		pendingLink: make(map[int64]bool),
	}, nil
}

func (b *Bot) Start() {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := b.api.GetUpdatesChan(u)

	for update := range updates {
		ctx := context.Background()
		switch {
		case update.Message != nil:
			b.handleMessage(ctx, update.Message)
		case update.CallbackQuery != nil:
			b.handleCallback(ctx, update.CallbackQuery)
		}
	}
}

// client returns the cached logged-in client for the chat or logs in
// from the stored account, honoring the login throttle.
func (b *Bot) client(ctx context.Context, chatID int64) (*strava.Client, error) {
	b.clientsMu.Lock()
	defer b.clientsMu.Unlock()

	if c, ok := b.clients[chatID]; ok && c.User.LoggedIn {
		return c, nil
	}

	wait, err := services.LoginThrottleWaitSeconds(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if wait > 0 {
		return nil, fmt.Errorf("too many failed logins, try again in %d s", wait)
	}

	acc, err := services.GetAccount(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if acc == nil {
		return nil, fmt.Errorf("no linked account, use /link first")
	}

	c, err := strava.Connect(acc.Username, acc.Password, acc.Canteen)
	if err != nil {
		if recErr := services.RecordLoginFailed(ctx, chatID); recErr != nil {
			log.Printf("record login failure chat_id=%d: %v", chatID, recErr)
		}
		return nil, err
	}
	if recErr := services.RecordLoginSuccess(ctx, chatID); recErr != nil {
		log.Printf("record login success chat_id=%d: %v", chatID, recErr)
	}
	b.clients[chatID] = c
	return c, nil
}

// dropClient forgets the cached client for a chat, logging it out.
func (b *Bot) dropClient(chatID int64) {
	b.clientsMu.Lock()
	c, ok := b.clients[chatID]
	delete(b.clients, chatID)
	b.clientsMu.Unlock()
	if ok {
		if err := c.Logout(); err != nil {
			log.Printf("logout chat_id=%d: %v", chatID, err)
		}
	}
}

func (b *Bot) send(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := b.api.Send(msg); err != nil {
		log.Printf("send chat_id=%d: %v", chatID, err)
	}
}

func (b *Bot) sendWithMarkup(chatID int64, text string, kb tgbotapi.InlineKeyboardMarkup) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = kb
	if _, err := b.api.Send(msg); err != nil {
		log.Printf("send chat_id=%d: %v", chatID, err)
	}
}

func (b *Bot) edit(chatID int64, messageID int, text string, kb tgbotapi.InlineKeyboardMarkup) {
	msg := tgbotapi.NewEditMessageTextAndMarkup(chatID, messageID, text, kb)
	if _, err := b.api.Send(msg); err != nil {
		log.Printf("edit chat_id=%d: %v", chatID, err)
	}
}
