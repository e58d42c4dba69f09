package bot

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"gorm.io/gorm"

	"taskboss/internal/model"
	"taskboss/internal/reminder"
	"taskboss/internal/repository"
	"taskboss/internal/service"
)

type conversationStage int

const (
	stageNone conversationStage = iota
	stageTitle
	stagePIC
	stageLocation
	stageDeadline
	stagePriority
)

const (
	cbCompletePrefix = "complete:"
	cbDeletePrefix   = "delete:"
)

type conversationState struct {
	stage conversationStage
	input service.TaskInput
}

type confirmationAction int

const (
	actionComplete confirmationAction = iota
	actionDelete
)

type confirmationRequest struct {
	taskID string
	action confirmationAction
}

// Bot is the owner console: task management and manual reminder runs over Telegram.
type Bot struct {
	api             *tgbotapi.BotAPI
	userRepo        *repository.UserRepository
	taskSvc         *service.TaskService
	reminderSvc     *service.ReminderService
	ownerID         uint
	// ownerTelegramID is the only Telegram account linked to the owner.
	ownerTelegramID int64
	loc             *time.Location
	clock           service.Clock
	conversations   map[int64]*conversationState
	confirmations   map[int64]confirmationRequest
	mu              sync.Mutex
}

func New(token string, userRepo *repository.UserRepository, taskSvc *service.TaskService, reminderSvc *service.ReminderService, ownerID uint, ownerTelegramID int64, loc *time.Location) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}

	log.Printf("[info] bot authorized on account %s", api.Self.UserName)

	return &Bot{
		api:             api,
		userRepo:        userRepo,
		taskSvc:         taskSvc,
		reminderSvc:     reminderSvc,
		ownerID:         ownerID,
		ownerTelegramID: ownerTelegramID,
		loc:             loc,
		clock:           service.SystemClock(loc),
		conversations:   make(map[int64]*conversationState),
		confirmations:   make(map[int64]confirmationRequest),
	}, nil
}

// Start begins polling updates until ctx is cancelled.
func (b *Bot) Start(ctx context.Context) error {
	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 60
	updates := b.api.GetUpdatesChan(updateConfig)

	log.Println("[info] start polling updates")

	go func() {
		<-ctx.Done()
		b.api.StopReceivingUpdates()
	}()

	for update := range updates {
		switch {
		case update.CallbackQuery != nil:
			if err := b.handleCallback(ctx, update.CallbackQuery); err != nil {
				log.Printf("handle callback: %v", err)
			}
		case update.Message != nil:
			if update.Message.Chat == nil || !update.Message.Chat.IsPrivate() {
				continue
			}
			if err := b.handleMessage(ctx, update.Message); err != nil {
				log.Printf("handle message: %v", err)
			}
		}
	}

	return nil
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) error {
	if msg.From == nil {
		return nil
	}

	if !msg.IsCommand() && isCancelDialogInput(msg.Text) {
		b.clearConversation(msg.From.ID)
		b.clearConfirmation(msg.From.ID)
		return b.sendText(msg.Chat.ID, "⏪ Input cancelled.")
	}

	if !msg.IsCommand() {
		if handled, err := b.handleMenuAlias(ctx, msg); handled {
			return err
		}
	}

	if msg.IsCommand() {
		log.Printf("[info] command from %d: /%s %s", msg.From.ID, msg.Command(), msg.CommandArguments())
		return b.handleCommand(ctx, msg)
	}

	if pending, ok := b.getConfirmation(msg.From.ID); ok {
		return b.handleConfirmationResponse(ctx, msg, pending)
	}

	if b.hasConversation(msg.From.ID) {
		log.Printf("[info] conversation step %d from %d", b.getConversation(msg.From.ID).stage, msg.From.ID)
		return b.handleConversation(ctx, msg)
	}

	return b.sendText(msg.Chat.ID, "I did not get that. Send /newtask to add a task or /help for the command list.")
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) error {
	switch msg.Command() {
	case "start":
		return b.handleStart(ctx, msg)
	case "help":
		return b.handleHelp(msg)
	case "newtask":
		return b.startNewTaskConversation(ctx, msg)
	case "tasks":
		return b.handleListTasks(ctx, msg)
	case "preview":
		return b.handlePreview(ctx, msg)
	case "remind":
		return b.handleRemind(ctx, msg)
	case "cancel":
		b.clearConversation(msg.From.ID)
		b.clearConfirmation(msg.From.ID)
		return b.sendText(msg.Chat.ID, "⏪ Input cancelled.")
	default:
		return b.sendText(msg.Chat.ID, "Unknown command. See /help.")
	}
}

func (b *Bot) handleStart(ctx context.Context, msg *tgbotapi.Message) error {
	if _, err := b.ensureUser(ctx, msg.From); err != nil {
		return err
	}

	name := strings.TrimSpace(msg.From.FirstName)
	if name == "" {
		name = "boss"
	}

	return b.sendText(msg.Chat.ID, fmt.Sprintf("👋 Halo, %s!\n<b>TaskBoss keeps your team's deadlines in check.</b>\n\n%s", escape(name), helpText))
}

const helpText = "Commands:\n" +
	"• /newtask — add a task step by step\n" +
	"• /tasks — open tasks with complete/delete buttons\n" +
	"• /preview daily|advance [n] — show the reminder messages without sending\n" +
	"• /remind daily|advance [n] — send reminder n now over WhatsApp\n" +
	"• /help — this list\n" +
	"• /cancel — cancel the current input"

func (b *Bot) handleHelp(msg *tgbotapi.Message) error {
	return b.sendText(msg.Chat.ID, "ℹ️ <b>Help</b>\n"+helpText)
}

func (b *Bot) startNewTaskConversation(ctx context.Context, msg *tgbotapi.Message) error {
	if _, err := b.ensureUser(ctx, msg.From); err != nil {
		return err
	}
	log.Printf("[info] start new task conversation user=%d", msg.From.ID)
	b.setConversation(msg.From.ID, &conversationState{stage: stageTitle})
	return b.sendWithReplyMarkup(msg.Chat.ID, "🆕 New task.\n<b>Step 1:</b> what is it called?", cancelKeyboard())
}

func (b *Bot) handleConversation(ctx context.Context, msg *tgbotapi.Message) error {
	state := b.getConversation(msg.From.ID)
	if state == nil {
		return nil
	}

	text := strings.TrimSpace(msg.Text)
	switch state.stage {
	case stageTitle:
		if text == "" {
			return b.sendWithReplyMarkup(msg.Chat.ID, "The title cannot be empty.", cancelKeyboard())
		}
		state.input.Title = text
		state.stage = stagePIC
		return b.sendWithReplyMarkup(msg.Chat.ID, "👤 <b>Step 2:</b> who is in charge (PIC)?", cancelKeyboard())
	case stagePIC:
		if text == "" {
			return b.sendWithReplyMarkup(msg.Chat.ID, "The PIC cannot be empty.", cancelKeyboard())
		}
		state.input.PIC = text
		state.stage = stageLocation
		return b.sendWithReplyMarkup(msg.Chat.ID, "📍 <b>Step 3:</b> pick a location or type your own (or skip).", locationKeyboard())
	case stageLocation:
		if !isSkipInput(text) {
			state.input.Location = text
		}
		state.stage = stageDeadline
		return b.sendWithReplyMarkup(msg.Chat.ID, "⏰ <b>Step 4:</b> deadline as <code>2025-11-30</code>.", cancelKeyboard())
	case stageDeadline:
		parsed, err := time.ParseInLocation("2006-01-02", text, b.loc)
		if err != nil {
			return b.sendWithReplyMarkup(msg.Chat.ID, "Cannot read that date. Use <code>2025-11-30</code>.", cancelKeyboard())
		}
		state.input.Deadline = &parsed
		state.stage = stagePriority
		return b.sendWithReplyMarkup(msg.Chat.ID, "🚦 <b>Step 5:</b> priority?", priorityKeyboard())
	case stagePriority:
		if !isSkipInput(text) {
			priority := model.Priority(strings.ToLower(text))
			if !priority.Valid() {
				return b.sendWithReplyMarkup(msg.Chat.ID, "Pick low, medium or high.", priorityKeyboard())
			}
			state.input.Priority = priority
		}
		err := b.finishTaskCreation(ctx, msg.From, state.input, msg.Chat.ID)
		b.clearConversation(msg.From.ID)
		return err
	default:
		b.clearConversation(msg.From.ID)
		return b.sendText(msg.Chat.ID, "Dialog reset. Try again with /newtask.")
	}
}

func (b *Bot) finishTaskCreation(ctx context.Context, from *tgbotapi.User, input service.TaskInput, chatID int64) error {
	user, err := b.ensureUser(ctx, from)
	if err != nil {
		return err
	}

	task, err := b.taskSvc.CreateTask(ctx, user.ID, input)
	if err != nil {
		return b.sendText(chatID, fmt.Sprintf("Could not save the task: %s", escape(err.Error())))
	}

	log.Printf("[info] task created id=%s user=%d pic=%q", task.ID, user.ID, task.PIC)

	msg := tgbotapi.NewMessage(chatID, formatCreated(*task, b.loc))
	msg.ReplyMarkup = tgbotapi.NewRemoveKeyboard(true)
	msg.ParseMode = tgbotapi.ModeHTML
	if _, err := b.api.Send(msg); err != nil {
		return err
	}
	return b.sendTaskList(ctx, chatID, user)
}

func (b *Bot) handleListTasks(ctx context.Context, msg *tgbotapi.Message) error {
	user, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return err
	}

	log.Printf("[info] list tasks for user=%d", user.ID)
	return b.sendTaskList(ctx, msg.Chat.ID, user)
}

func (b *Bot) handlePreview(ctx context.Context, msg *tgbotapi.Message) error {
	kind, slot, err := parseRunArgs(msg.CommandArguments())
	if err != nil {
		return b.sendText(msg.Chat.ID, escape(err.Error()))
	}
	user, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return err
	}

	plan, err := b.reminderSvc.Plan(ctx, user.ID, kind, slot, b.clock())
	if err != nil {
		return b.sendText(msg.Chat.ID, fmt.Sprintf("Could not build the reminder: %s", escape(err.Error())))
	}
	return b.sendText(msg.Chat.ID, formatPlan(plan))
}

func (b *Bot) handleRemind(ctx context.Context, msg *tgbotapi.Message) error {
	kind, slot, err := parseRunArgs(msg.CommandArguments())
	if err != nil {
		return b.sendText(msg.Chat.ID, escape(err.Error()))
	}
	user, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return err
	}

	out, err := b.reminderSvc.Dispatch(ctx, user.ID, kind, slot, b.clock())
	if err != nil {
		var cfgErr *reminder.ConfigurationError
		if errors.As(err, &cfgErr) {
			return b.sendText(msg.Chat.ID, fmt.Sprintf("⚠️ Not sent: %s", escape(cfgErr.Reason)))
		}
		return b.sendText(msg.Chat.ID, fmt.Sprintf("Error: %s", escape(err.Error())))
	}
	log.Printf("[info] manual reminder user=%d kind=%s sent=%d failed=%d", user.ID, kind, out.Sent, out.Failed)
	return b.sendText(msg.Chat.ID, formatDispatch(out))
}

func (b *Bot) handleConfirmationResponse(ctx context.Context, msg *tgbotapi.Message, req confirmationRequest) error {
	text := strings.TrimSpace(msg.Text)
	switch {
	case isConfirmInput(text):
		b.clearConfirmation(msg.From.ID)
		if req.action == actionDelete {
			return b.deleteTaskAndRefresh(ctx, msg.Chat.ID, msg.From, req.taskID)
		}
		return b.completeTaskAndRefresh(ctx, msg.Chat.ID, msg.From, req.taskID)
	case isCancelInput(text):
		b.clearConfirmation(msg.From.ID)
		return b.sendMenuPlaceholder(msg.Chat.ID)
	default:
		prompt := "Confirm or cancel completing the task."
		if req.action == actionDelete {
			prompt = "Confirm or cancel deleting the task."
		}
		return b.sendWithReplyMarkup(msg.Chat.ID, prompt, confirmKeyboard())
	}
}

// ensureUser maps a Telegram account to a user. The first account to talk to
// the bot is linked to the owner; later accounts get users of their own.
func (b *Bot) ensureUser(ctx context.Context, from *tgbotapi.User) (*model.User, error) {
	return resolveTelegramUser(ctx, b.userRepo, b.ownerID, b.ownerTelegramID, from)
}

// resolveTelegramUser maps a Telegram account to a user. Only the configured
// owner account is linked to the seeded owner; every other account gets its
// own user.
func resolveTelegramUser(ctx context.Context, users *repository.UserRepository, ownerID uint, ownerTelegramID int64, from *tgbotapi.User) (*model.User, error) {
	user, err := users.FindByTelegramID(ctx, from.ID)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	if ownerTelegramID != 0 && from.ID == ownerTelegramID {
		owner, err := users.FindByID(ctx, ownerID)
		if err != nil {
			return nil, fmt.Errorf("find owner: %w", err)
		}
		if err := users.LinkTelegram(ctx, owner.ID, from.ID); err != nil {
			return nil, err
		}
		log.Printf("[info] telegram account %d linked to owner user=%d", from.ID, owner.ID)
		id := from.ID
		owner.TelegramID = &id
		return owner, nil
	}

	return users.UpsertFromTelegram(ctx, from.ID, strings.TrimSpace(from.FirstName+" "+from.LastName))
}

func (b *Bot) sendText(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = mainMenuKeyboard()
	_, err := b.api.Send(msg)
	return err
}

func (b *Bot) sendTextWithRemove(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = tgbotapi.NewRemoveKeyboard(true)
	if _, err := b.api.Send(msg); err != nil {
		return err
	}
	return b.sendMenuPlaceholder(chatID)
}

func (b *Bot) sendWithReplyMarkup(chatID int64, text string, markup interface{}) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = markup
	_, err := b.api.Send(msg)
	return err
}

func (b *Bot) sendMenuPlaceholder(chatID int64) error {
	msg := tgbotapi.NewMessage(chatID, "🔹 Main menu")
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = mainMenuKeyboard()
	_, err := b.api.Send(msg)
	return err
}

func (b *Bot) getConfirmation(userID int64) (confirmationRequest, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	req, ok := b.confirmations[userID]
	return req, ok
}

func (b *Bot) setConfirmation(userID int64, req confirmationRequest) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.confirmations[userID] = req
}

func (b *Bot) clearConfirmation(userID int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.confirmations, userID)
}

func (b *Bot) setConversation(userID int64, state *conversationState) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.conversations[userID] = state
}

func (b *Bot) getConversation(userID int64) *conversationState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.conversations[userID]
}

func (b *Bot) hasConversation(userID int64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.conversations[userID]
	return ok
}

func (b *Bot) clearConversation(userID int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.conversations, userID)
}

func (b *Bot) sendTaskList(ctx context.Context, chatID int64, user *model.User) error {
	tasks, err := b.taskSvc.ListTasks(ctx, user.ID, repository.TaskFilter{})
	if err != nil {
		return b.sendText(chatID, fmt.Sprintf("Could not load tasks: %s", escape(err.Error())))
	}

	text, buttons := formatTaskList(tasks, b.clock())
	if len(buttons) == 0 {
		return b.sendText(chatID, text)
	}

	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(buttons...)
	msg.ParseMode = tgbotapi.ModeHTML
	_, err = b.api.Send(msg)
	return err
}

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) error {
	if cb == nil || cb.From == nil || cb.Message == nil {
		return nil
	}
	if _, err := b.api.Request(tgbotapi.NewCallback(cb.ID, "")); err != nil {
		log.Printf("callback ack: %v", err)
	}

	data := cb.Data
	switch {
	case strings.HasPrefix(data, cbCompletePrefix):
		taskID := strings.TrimPrefix(data, cbCompletePrefix)
		log.Printf("[info] callback complete request user=%d task=%s", cb.From.ID, taskID)
		return b.askConfirmation(ctx, cb.Message.Chat.ID, cb.From, taskID, actionComplete)
	case strings.HasPrefix(data, cbDeletePrefix):
		taskID := strings.TrimPrefix(data, cbDeletePrefix)
		log.Printf("[info] callback delete request user=%d task=%s", cb.From.ID, taskID)
		return b.askConfirmation(ctx, cb.Message.Chat.ID, cb.From, taskID, actionDelete)
	default:
		return nil
	}
}

func (b *Bot) askConfirmation(ctx context.Context, chatID int64, from *tgbotapi.User, taskID string, action confirmationAction) error {
	user, err := b.ensureUser(ctx, from)
	if err != nil {
		return err
	}

	task, err := b.taskSvc.GetTask(ctx, user.ID, taskID)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			return b.sendText(chatID, "Task not found.")
		}
		return err
	}

	text := fmt.Sprintf("Delete task «%s»?", escape(task.Title))
	if action == actionComplete {
		if task.Status == model.StatusCompleted {
			return b.sendText(chatID, "The task is already completed.")
		}
		text = fmt.Sprintf("Mark task «%s» as completed?", escape(task.Title))
	}
	b.setConfirmation(from.ID, confirmationRequest{taskID: task.ID, action: action})
	return b.sendWithReplyMarkup(chatID, text, confirmKeyboard())
}

func (b *Bot) completeTaskAndRefresh(ctx context.Context, chatID int64, from *tgbotapi.User, taskID string) error {
	user, err := b.ensureUser(ctx, from)
	if err != nil {
		return err
	}

	task, err := b.taskSvc.SetStatus(ctx, user.ID, taskID, model.StatusCompleted)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			return b.sendTextWithRemove(chatID, "Task not found or already deleted.")
		}
		return b.sendTextWithRemove(chatID, fmt.Sprintf("Error: %s", escape(err.Error())))
	}

	log.Printf("[info] task completed id=%s user=%d", task.ID, user.ID)
	if err := b.sendTextWithRemove(chatID, fmt.Sprintf("✅ Task «%s» completed.", escape(task.Title))); err != nil {
		return err
	}
	return b.sendTaskList(ctx, chatID, user)
}

func (b *Bot) deleteTaskAndRefresh(ctx context.Context, chatID int64, from *tgbotapi.User, taskID string) error {
	user, err := b.ensureUser(ctx, from)
	if err != nil {
		return err
	}

	task, err := b.taskSvc.GetTask(ctx, user.ID, taskID)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			return b.sendTextWithRemove(chatID, "Task not found or already deleted.")
		}
		return b.sendTextWithRemove(chatID, fmt.Sprintf("Error: %s", escape(err.Error())))
	}

	if err := b.taskSvc.DeleteTask(ctx, user.ID, taskID); err != nil {
		return b.sendTextWithRemove(chatID, fmt.Sprintf("Error: %s", escape(err.Error())))
	}

	log.Printf("[info] task deleted id=%s user=%d", task.ID, user.ID)
	if err := b.sendTextWithRemove(chatID, fmt.Sprintf("\U0001F5D1 Task «%s» deleted.", escape(task.Title))); err != nil {
		return err
	}
	return b.sendTaskList(ctx, chatID, user)
}

func (b *Bot) handleMenuAlias(ctx context.Context, msg *tgbotapi.Message) (bool, error) {
	text := strings.TrimSpace(strings.ToLower(msg.Text))
	switch text {
	case strings.ToLower(menuLabelNewTask):
		return true, b.startNewTaskConversation(ctx, msg)
	case strings.ToLower(menuLabelTasks):
		return true, b.handleListTasks(ctx, msg)
	case strings.ToLower(menuLabelPreview):
		return true, b.handlePreview(ctx, msg)
	case strings.ToLower(menuLabelHelp):
		return true, b.handleHelp(msg)
	default:
		return false, nil
	}
}

// parseRunArgs reads "[daily|advance] [n]". The kind defaults to daily and
// the daily reminder number to 1.
func parseRunArgs(args string) (reminder.Kind, int, error) {
	fields := strings.Fields(strings.ToLower(args))
	kind := reminder.KindDaily
	slot := 1
	if len(fields) > 0 {
		kind = reminder.Kind(fields[0])
		if !kind.Valid() {
			return "", 0, fmt.Errorf("unknown reminder %q, use daily or advance", fields[0])
		}
	}
	if len(fields) > 1 {
		n, err := strconv.Atoi(fields[1])
		if err != nil || n < 1 {
			return "", 0, fmt.Errorf("reminder number must be a positive number")
		}
		slot = n
	}
	if kind == reminder.KindAdvance {
		slot = 0
	}
	return kind, slot, nil
}
