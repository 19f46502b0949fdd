package telegram

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"gorm.io/gorm"

	"freshfitapi/models"
	"freshfitapi/pipeline"
	"freshfitapi/services"
)

func EscapeMessage(message string) string {
	r := strings.NewReplacer(
		"_", "\\_",
		"*", "\\*",
		"[", "\\[",
		"`", "\\`",
	)
	return r.Replace(message)
}

// chatState is the per-chat conversation memory. The bot is the one
// surface that keeps a live session between turns.
type chatState struct {
	UserID  string
	Session *pipeline.Session
}

const botHelp = `Hi! I am your wardrobe stylist.
- "outfits <occasion> in <location>" builds today's looks
- reply "<number> <rating 1-5>" to pick one and rate it
- "add <item description>" or "remove <item name>" manages your wardrobe
- "exit" forgets the current session`

func resolveUserID(db *gorm.DB, username string) string {
	if username == "" {
		return "anon"
	}
	var user models.UserAccount
	r := db.Where("telegram_username = ?", username).Limit(1).Find(&user)
	if r.Error != nil || r.RowsAffected == 0 {
		return "anon"
	}
	return user.PipelineUserID()
}

func slateMessage(slate *pipeline.Slate) string {
	builder := strings.Builder{}
	builder.WriteString(fmt.Sprintf("Weather: %s\n\n", slate.Weather.Summary))
	for _, candidate := range slate.Candidates {
		builder.WriteString(fmt.Sprintf("%d. %s\n%s\n\n", candidate.Rank, candidate.Name, candidate.Rationale))
	}
	builder.WriteString(slate.SelectionPrompt)
	return builder.String()
}

// RunStylistBot serves the whole recommend and feedback loop over chat.
func RunStylistBot(db *gorm.DB, runner services.LLMStageRunner) {
	bot, err := tgbotapi.NewBotAPI(os.Getenv("TG_TOKEN"))
	if err != nil {
		println("Error tg bot init")
		log.Panic(err)
	}
	bot.Debug = true

	log.Printf("Authorized on account %s", bot.Self.UserName)

	history, err := services.NewCachedHistoryProvider(services.NewGormHistoryProvider(db))
	if err != nil {
		log.Panic(err)
	}
	executor := pipeline.NewRetryingExecutor(pipeline.DefaultRetryPolicy())
	stylist := pipeline.NewPipeline(
		services.NewGoogleWeatherProvider(runner),
		services.NewWardrobeSnapshotProvider(services.NewGormWardrobeStore(db)),
		history,
		services.NewGeminiExplainer(runner),
		executor,
	)
	registrar := services.NewWardrobeRegistrar(runner, services.NewGormWardrobeStore(db), executor)
	slateStore := services.NewGormSlateStore(db)
	feedbackStore := services.NewGormFeedbackStore(db)
	normalizer := pipeline.NewFeedbackNormalizer()

	chats := map[int64]*chatState{}

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := bot.GetUpdatesChan(u)

	for update := range updates {
		if update.Message == nil {
			continue
		}
		log.Printf("[%s] %s", update.Message.From.UserName, update.Message.Text)
		chatID := update.Message.Chat.ID
		text := strings.TrimSpace(update.Message.Text)
		lower := strings.ToLower(text)

		state, ok := chats[chatID]
		if !ok {
			state = &chatState{UserID: resolveUserID(db, update.Message.From.UserName)}
			chats[chatID] = state
		}

		reply := func(message string) {
			msg := tgbotapi.NewMessage(chatID, message)
			msg.ReplyToMessageID = update.Message.MessageID
			bot.Send(msg)
		}

		switch {
		case update.Message.Command() == "start" || lower == "help":
			reply(botHelp)

		case lower == "exit" || lower == "quit":
			delete(chats, chatID)
			reply("Session closed. Come back any time!")

		case strings.HasPrefix(lower, "outfits"):
			occasion := strings.TrimSpace(text[len("outfits"):])
			location := services.GetEnv("DEFAULT_CITY", "Baku")
			if idx := strings.LastIndex(strings.ToLower(occasion), " in "); idx >= 0 {
				location = strings.TrimSpace(occasion[idx+4:])
				occasion = strings.TrimSpace(occasion[:idx])
			}
			if occasion == "" {
				occasion = "everyday wear"
			}
			if state.Session == nil {
				state.Session = pipeline.NewSession(state.UserID)
			}
			req := &pipeline.Request{
				UserID:             state.UserID,
				Occasion:           occasion,
				Location:           location,
				Date:               time.Now(),
				Mode:               pipeline.ModeDaily,
				LovedComboRequired: true,
			}
			slate, err := stylist.Run(context.Background(), state.Session, req)
			if err != nil {
				reply(fmt.Sprintf("Could not build outfits: %s", err.Error()))
				continue
			}
			if err := slateStore.SaveSlate(context.Background(), state.UserID, state.Session.SessionID, state.Session.Turn, req, slate); err != nil {
				log.Println("Failed to save slate", err)
			}
			reply(slateMessage(slate))

		case strings.HasPrefix(lower, "add ") || strings.HasPrefix(lower, "remove ") || strings.HasPrefix(lower, "delete "):
			answer, err := registrar.Handle(context.Background(), state.UserID, text)
			if err != nil {
				reply(fmt.Sprintf("Sorry, could not update your wardrobe: %s", err.Error()))
				continue
			}
			reply(answer)

		case state.Session != nil && state.Session.LastSlate != nil && len(strings.Fields(lower)) <= 2 && isSelectionReply(lower):
			fields := strings.Fields(lower)
			rank, _ := strconv.Atoi(fields[0])
			slate := state.Session.LastSlate
			if rank < 1 || rank > len(slate.Candidates) {
				reply(fmt.Sprintf("Pick a number between 1 and %d.", len(slate.Candidates)))
				continue
			}
			selected := slate.Candidates[rank-1]
			event := models.FeedbackEventIn{OutfitID: selected.OutfitID, Decision: "accepted"}
			if len(fields) == 2 {
				event.Rating = fields[1]
			}
			normalized := normalizer.Normalize(slate, &pipeline.FeedbackSubmission{
				UserID:           state.UserID,
				SessionTurn:      state.Session.Turn,
				SelectedOutfitID: selected.OutfitID,
				Events:           []models.FeedbackEventIn{event},
			})
			if _, _, err := feedbackStore.SaveNormalized(context.Background(), normalized); err != nil {
				reply("Sorry, could not save your pick, please try again.")
				continue
			}
			history.Invalidate(context.Background(), state.UserID)
			reply(fmt.Sprintf("Noted! %s it is. Enjoy your day.", selected.Name))

		default:
			reply(botHelp)
		}
	}
}

func isSelectionReply(text string) bool {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return false
	}
	for _, field := range fields {
		if _, err := strconv.Atoi(field); err != nil {
			return false
		}
	}
	return true
}
