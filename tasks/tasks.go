package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"freshfitapi/models"
	"freshfitapi/pipeline"
	"freshfitapi/services"

	firebase "firebase.google.com/go/v4"
	"github.com/getsentry/sentry-go"
	"github.com/hibiken/asynq"
	"gorm.io/gorm"
)

const (
	TypeDailySlate    = "slates:daily"
	TypeDailyAlert    = "slates:daily_alert"
	TypeMetricsRollup = "metrics:rollup"
)

const metricsWindow = 30 * 24 * time.Hour

type DailySlatePayload struct {
	UserID uint `json:"user_id"`
}

// Client initializes an asynq client for enqueuing tasks
func NewClient() (*asynq.Client, error) {
	return asynq.NewClient(asynq.RedisClientOpt{Addr: "your-redis-connection-string"}), nil
}

// NewDailySlateTask enqueues a morning slate build for one user.
func NewDailySlateTask(userID uint) (*asynq.Task, error) {
	payload, err := json.Marshal(DailySlatePayload{UserID: userID})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeDailySlate, payload), nil
}

func NewMetricsRollupTask() (*asynq.Task, error) {
	return asynq.NewTask(TypeMetricsRollup, nil), nil
}

func buildPipeline(db *gorm.DB, runner services.LLMStageRunner) (*pipeline.Pipeline, error) {
	history, err := services.NewCachedHistoryProvider(services.NewGormHistoryProvider(db))
	if err != nil {
		return nil, err
	}
	return pipeline.NewPipeline(
		services.NewGoogleWeatherProvider(runner),
		services.NewWardrobeSnapshotProvider(services.NewGormWardrobeStore(db)),
		history,
		services.NewGeminiExplainer(runner),
		pipeline.NewRetryingExecutor(pipeline.DefaultRetryPolicy()),
	), nil
}

// HandleDailySlateTask builds today's slate for one user and pushes the
// top pick. Users without a usable wardrobe are skipped quietly.
func HandleDailySlateTask(ctx context.Context, t *asynq.Task, db *gorm.DB, fbApp *firebase.App, runner services.LLMStageRunner) error {
	var payload DailySlatePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal daily slate payload: %v: %w", err, asynq.SkipRetry)
	}

	var user models.UserAccount
	result := db.First(&user, payload.UserID)
	if result.Error != nil {
		fmt.Printf("[DailySlate: %v] User not found: %v\n", payload.UserID, result.Error)
		return fmt.Errorf("user %v not found: %w", payload.UserID, asynq.SkipRetry)
	}
	if !user.ReceiveNotifications {
		fmt.Printf("[DailySlate: %v] Notifications disabled, skipping\n", user.ID)
		return nil
	}

	recommendPipeline, err := buildPipeline(db, runner)
	if err != nil {
		sentry.CaptureException(err)
		return err
	}

	userID := user.PipelineUserID()
	sess := pipeline.NewSession(userID)
	req := &pipeline.Request{
		UserID:             userID,
		Occasion:           "everyday wear",
		Location:           services.GetEnv("DEFAULT_CITY", "Baku"),
		Date:               time.Now(),
		Mode:               pipeline.ModeDaily,
		LovedComboRequired: true,
	}

	slate, err := recommendPipeline.Run(ctx, sess, req)
	if err != nil {
		var insufficient *pipeline.InsufficientSlateError
		if errors.As(err, &insufficient) {
			fmt.Printf("[DailySlate: %v] Wardrobe too small (%v distinct), skipping push\n", user.ID, insufficient.Distinct)
			return nil
		}
		sentry.CaptureException(err)
		return err
	}

	slateStore := services.NewGormSlateStore(db)
	if err := slateStore.SaveSlate(ctx, userID, sess.SessionID, sess.Turn, req, slate); err != nil {
		sentry.CaptureException(err)
		return err
	}

	top := slate.Candidates[0]
	fmt.Printf("[DailySlate: %v] Built %v outfits, pushing top pick %s\n", user.ID, len(slate.Candidates), top.OutfitID)
	services.SendNotification(fbApp, db, user.ID, "Your outfits for today are ready",
		fmt.Sprintf("Top pick: %s. %s", top.Name, slate.Weather.Summary),
		map[string]string{"session_id": sess.SessionID, "outfit_id": top.OutfitID})
	return nil
}

// ScheduledDailySlateTask fans the morning build out to every opted-in
// user with an active push token.
func ScheduledDailySlateTask(ctx context.Context, t *asynq.Task, db *gorm.DB, asynqClient *asynq.Client) error {
	var userIDs []uint
	result := db.Model(&models.UserPushToken{}).
		Joins("JOIN user_accounts ON user_accounts.id = user_push_tokens.user_account_id").
		Where("user_push_tokens.active = ? AND user_accounts.receive_notifications = ? AND user_accounts.banned = ?", true, true, false).
		Distinct("user_push_tokens.user_account_id").
		Pluck("user_push_tokens.user_account_id", &userIDs)
	if result.Error != nil {
		sentry.CaptureException(fmt.Errorf("[DailyAlert] Error fetching users: %v", result.Error))
		return result.Error
	}

	fmt.Printf("[DailyAlert] Scheduling slates for %d users\n", len(userIDs))
	for _, userID := range userIDs {
		task, err := NewDailySlateTask(userID)
		if err != nil {
			sentry.CaptureException(err)
			continue
		}
		info, err := asynqClient.Enqueue(task, asynq.MaxRetry(3), asynq.Queue("generate"))
		if err != nil {
			sentry.CaptureException(err)
			continue
		}
		fmt.Println("[Queue] Daily slate task submitted, User ID: ", userID, " Task ID: ", info.ID)
	}
	return nil
}

// HandleMetricsRollupTask recomputes the per-user feedback KPIs.
func HandleMetricsRollupTask(ctx context.Context, t *asynq.Task, db *gorm.DB) error {
	metrics := services.NewMetricsService(db)
	if err := metrics.RollupAll(ctx, metricsWindow); err != nil {
		sentry.CaptureException(err)
		return err
	}
	return nil
}
