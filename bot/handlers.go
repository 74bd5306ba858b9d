package bot

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"

	"strava-canteen/models"
	"strava-canteen/services"
	"strava-canteen/strava"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const helpText = `Canteen bot commands:
/link - link your Strava.cz account
/unlink - remove the linked account
/menu - browse the menu and toggle orders
/order <id> [id...] - order meals by id
/cancel <id> [id...] - cancel meal orders
/ordered - list your ordered meals
/balance - show account info
`

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID

	if !msg.IsCommand() {
		b.pendingLinkMu.Lock()
		pending := b.pendingLink[chatID]
		delete(b.pendingLink, chatID)
		b.pendingLinkMu.Unlock()
		if pending {
			b.handleLinkCredentials(ctx, msg)
		}
		return
	}

	switch msg.Command() {
	case "start", "help":
		b.send(chatID, helpText)
	case "link":
		b.pendingLinkMu.Lock()
		b.pendingLink[chatID] = true
		b.pendingLinkMu.Unlock()
		b.send(chatID, "Send your credentials as: username password [canteen number]")
	case "unlink":
		b.handleUnlink(ctx, chatID)
	case "menu":
		b.handleMenu(ctx, chatID)
	case "order":
		b.handleOrder(ctx, chatID, msg.CommandArguments(), true)
	case "cancel":
		b.handleOrder(ctx, chatID, msg.CommandArguments(), false)
	case "ordered":
		b.handleOrdered(ctx, chatID)
	case "balance":
		b.handleBalance(ctx, chatID)
	default:
		b.send(chatID, "Unknown command, see /help")
	}
}

// handleLinkCredentials consumes the "username password [canteen]"
// message that follows /link. The message is deleted afterwards so the
// password does not stay in the chat history.
func (b *Bot) handleLinkCredentials(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	defer func() {
		if _, err := b.api.Request(tgbotapi.NewDeleteMessage(chatID, msg.MessageID)); err != nil {
			log.Printf("delete credentials message chat_id=%d: %v", chatID, err)
		}
	}()

	fields := strings.Fields(msg.Text)
	if len(fields) < 2 || len(fields) > 3 {
		b.send(chatID, "Expected: username password [canteen number]. Start over with /link.")
		return
	}
	acc := services.Account{
		ChatID:   chatID,
		Username: fields[0],
		Password: fields[1],
	}
	if len(fields) == 3 {
		acc.Canteen = fields[2]
	}

	// Validate against the service before storing anything.
	c, err := strava.Connect(acc.Username, acc.Password, acc.Canteen)
	if err != nil {
		var authErr *strava.AuthError
		if errors.As(err, &authErr) {
			b.send(chatID, "Login rejected: "+authErr.Message)
		} else {
			b.send(chatID, "Could not reach the canteen service, try again later.")
			log.Printf("link login chat_id=%d: %v", chatID, err)
		}
		return
	}

	if err := services.SaveAccount(ctx, acc); err != nil {
		log.Printf("save account chat_id=%d: %v", chatID, err)
		b.send(chatID, "Could not store the account, try again later.")
		return
	}
	b.clientsMu.Lock()
	b.clients[chatID] = c
	b.clientsMu.Unlock()

	b.send(chatID, fmt.Sprintf("Linked %s at %s. Balance: %.2f %s",
		c.User.FullName, c.User.CanteenName, c.User.Balance, c.User.Currency))
}

func (b *Bot) handleUnlink(ctx context.Context, chatID int64) {
	b.dropClient(chatID)
	if err := services.DeleteAccount(ctx, chatID); err != nil {
		log.Printf("delete account chat_id=%d: %v", chatID, err)
		b.send(chatID, "Could not remove the account, try again later.")
		return
	}
	b.send(chatID, "Account unlinked.")
}

func (b *Bot) handleMenu(ctx context.Context, chatID int64) {
	c, err := b.client(ctx, chatID)
	if err != nil {
		b.send(chatID, err.Error())
		return
	}
	if _, err := c.Menu.Fetch(); err != nil {
		b.send(chatID, "Could not fetch the menu: "+err.Error())
		return
	}
	text, kb := menuOverview(c.Menu)
	b.sendWithMarkup(chatID, text, kb)
}

func (b *Bot) handleOrder(ctx context.Context, chatID int64, args string, order bool) {
	ids, err := parseMealIDs(args)
	if err != nil {
		b.send(chatID, err.Error())
		return
	}
	c, err := b.client(ctx, chatID)
	if err != nil {
		b.send(chatID, err.Error())
		return
	}
	if _, err := c.Menu.Fetch(); err != nil {
		b.send(chatID, "Could not fetch the menu: "+err.Error())
		return
	}

	if order {
		err = c.Menu.OrderMeals(ids...)
	} else {
		err = c.Menu.CancelMeals(ids...)
	}
	if err != nil {
		b.send(chatID, orderErrorText(err))
		return
	}
	if order {
		b.send(chatID, fmt.Sprintf("Ordered %d meal(s).", len(ids)))
	} else {
		b.send(chatID, fmt.Sprintf("Canceled %d meal(s).", len(ids)))
	}
}

func (b *Bot) handleOrdered(ctx context.Context, chatID int64) {
	c, err := b.client(ctx, chatID)
	if err != nil {
		b.send(chatID, err.Error())
		return
	}
	if _, err := c.Menu.Fetch(); err != nil {
		b.send(chatID, "Could not fetch the menu: "+err.Error())
		return
	}
	meals := c.Menu.OrderedMeals(true, true)
	if len(meals) == 0 {
		b.send(chatID, "Nothing ordered.")
		return
	}
	var sb strings.Builder
	sb.WriteString("Ordered meals:\n")
	for _, meal := range meals {
		fmt.Fprintf(&sb, "  %s - %d %s (%.2f %s)\n",
			meal.Date, meal.ID, meal.Name, meal.Price, c.User.Currency)
	}
	b.send(chatID, sb.String())
}

func (b *Bot) handleBalance(ctx context.Context, chatID int64) {
	c, err := b.client(ctx, chatID)
	if err != nil {
		b.send(chatID, err.Error())
		return
	}
	b.send(chatID, c.User.String())
}

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	if cb.Message == nil {
		return
	}
	chatID := cb.Message.Chat.ID
	messageID := cb.Message.MessageID
	answer := func(text string) {
		if _, err := b.api.Request(tgbotapi.NewCallback(cb.ID, text)); err != nil {
			log.Printf("answer callback chat_id=%d: %v", chatID, err)
		}
	}

	c, err := b.client(ctx, chatID)
	if err != nil {
		answer(err.Error())
		return
	}
	// A freshly logged-in client has no menu yet (e.g. after a restart).
	if len(c.Menu.Complete) == 0 {
		if _, err := c.Menu.Fetch(); err != nil {
			answer("Could not fetch the menu")
			return
		}
	}

	switch {
	case cb.Data == "overview":
		text, kb := menuOverview(c.Menu)
		b.edit(chatID, messageID, text, kb)
		answer("")
	case strings.HasPrefix(cb.Data, "day:"):
		date := strings.TrimPrefix(cb.Data, "day:")
		text, kb := dayView(c.Menu, date)
		b.edit(chatID, messageID, text, kb)
		answer("")
	case strings.HasPrefix(cb.Data, "toggle:"):
		parts := strings.SplitN(strings.TrimPrefix(cb.Data, "toggle:"), ":", 2)
		if len(parts) != 2 {
			answer("Bad request")
			return
		}
		id, err := strconv.Atoi(parts[0])
		if err != nil {
			answer("Bad meal id")
			return
		}
		date := parts[1]

		if c.Menu.IsOrdered(id, true, true) {
			err = c.Menu.CancelMeals(id)
		} else {
			err = c.Menu.OrderMeals(id)
		}
		if err != nil {
			answer(orderErrorText(err))
		} else {
			answer("Done")
		}
		// Re-render from the re-fetched state either way.
		text, kb := dayView(c.Menu, date)
		b.edit(chatID, messageID, text, kb)
	}
}

// menuOverview renders the complete view (orderable + optional days)
// with one button per day.
func menuOverview(menu *strava.Menu) (string, tgbotapi.InlineKeyboardMarkup) {
	if len(menu.Complete) == 0 {
		return "No menu data available.", tgbotapi.NewInlineKeyboardMarkup()
	}
	var sb strings.Builder
	sb.WriteString("Menu - pick a day:\n")
	var rows [][]tgbotapi.InlineKeyboardButton
	for _, day := range menu.Complete {
		label := day.Date
		if day.Ordered {
			label += " ✓"
		}
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(label, "day:"+day.Date),
		))
	}
	return sb.String(), tgbotapi.NewInlineKeyboardMarkup(rows...)
}

// dayView renders one day from the complete view with a toggle button
// per meal.
func dayView(menu *strava.Menu, date string) (string, tgbotapi.InlineKeyboardMarkup) {
	var found *models.Day
	for i := range menu.Complete {
		if menu.Complete[i].Date == date {
			found = &menu.Complete[i]
			break
		}
	}
	back := tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("« Back", "overview"),
	)
	if found == nil {
		return "Day " + date + " is no longer on the menu.", tgbotapi.NewInlineKeyboardMarkup(back)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Menu for %s:\n", date)
	var rows [][]tgbotapi.InlineKeyboardButton
	for _, meal := range found.Meals {
		fmt.Fprintf(&sb, "  %d %s (%.2f)\n", meal.ID, meal.Name, meal.Price)
		mark := "☐"
		if meal.Ordered {
			mark = "✓"
		}
		label := fmt.Sprintf("%s %d %s", mark, meal.ID, meal.Name)
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(label, fmt.Sprintf("toggle:%d:%s", meal.ID, date)),
		))
	}
	rows = append(rows, back)
	return sb.String(), tgbotapi.NewInlineKeyboardMarkup(rows...)
}

// orderErrorText maps order errors to a short user-facing message.
func orderErrorText(err error) string {
	var balErr *strava.InsufficientBalanceError
	if errors.As(err, &balErr) {
		return fmt.Sprintf("Not enough balance: have %.2f, need %.2f", balErr.Balance, balErr.Required)
	}
	var dupErr *strava.DuplicateMealError
	if errors.As(err, &dupErr) {
		return fmt.Sprintf("Meals %v are the same kind on %s", dupErr.IDs, dupErr.Date)
	}
	var typeErr *strava.InvalidMealTypeError
	if errors.As(err, &typeErr) {
		return fmt.Sprintf("Meal %d can no longer be ordered", typeErr.ID)
	}
	return "Order failed: " + err.Error()
}

// parseMealIDs parses the space-separated id list of /order and /cancel.
func parseMealIDs(args string) ([]int, error) {
	fields := strings.Fields(args)
	if len(fields) == 0 {
		return nil, errors.New("give at least one meal id, e.g. /order 3 6")
	}
	ids := make([]int, 0, len(fields))
	for _, f := range fields {
		id, err := strconv.Atoi(f)
		if err != nil {
			return nil, fmt.Errorf("%q is not a meal id", f)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
