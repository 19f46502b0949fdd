package main

import (
	"context"
	"freshfitapi/dbhelper"
	"freshfitapi/services"
	"freshfitapi/tasks"
	"log"
	"os"

	firebase "firebase.google.com/go/v4"
	"github.com/hibiken/asynq"
)

func runScheduler() {

	scheduler := asynq.NewScheduler(asynq.RedisClientOpt{Addr: os.Getenv("ASYNC_BROKER_ADDRESS")}, &asynq.SchedulerOpts{
		LogLevel: asynq.InfoLevel,
	})

	metricsTask, err := tasks.NewMetricsRollupTask()
	if err != nil {
		log.Fatalf("Failed to build metrics task: %v", err)
	}
	scheduled := []struct {
		cron string
		task *asynq.Task
		desc string
	}{
		{
			cron: "0 7 * * *", // 7:00 AM daily
			task: asynq.NewTask(tasks.TypeDailyAlert, []byte{}),
			desc: "Morning slate notifications",
		},
		{
			cron: "30 2 * * *", // 2:30 AM daily
			task: metricsTask,
			desc: "Feedback metrics rollup",
		},
	}

	for _, t := range scheduled {
		entryID, err := scheduler.Register(t.cron, t.task)
		if err != nil {
			log.Fatalf("Failed to register task '%s': %v", t.desc, err)
		}
		log.Printf("Registered task '%s' with ID: %s, cron: %s", t.desc, entryID, t.cron)
	}

	log.Println("Starting scheduler...")
	if err := scheduler.Run(); err != nil {
		log.Fatalf("Scheduler failed: %v", err)
	}
}

func main() {
	srv := asynq.NewServer(
		asynq.RedisClientOpt{Addr: os.Getenv("ASYNC_BROKER_ADDRESS")},
		asynq.Config{Concurrency: 10, Queues: map[string]int{
			"generate": 7,
			"default":  3,
		}},
	)
	llmRunner := services.GoogleLLMStageRunner{}
	app, err := firebase.NewApp(context.Background(), nil)
	if err != nil {
		log.Fatalf("error initializing firebase app: %v\n", err)
		return
	}
	asynqClient := asynq.NewClient(asynq.RedisClientOpt{Addr: os.Getenv("ASYNC_BROKER_ADDRESS")})

	mux := asynq.NewServeMux()
	db := dbhelper.SetupDB()
	mux.HandleFunc(tasks.TypeDailySlate, func(ctx context.Context, t *asynq.Task) error {
		return tasks.HandleDailySlateTask(ctx, t, db, app, llmRunner)
	})
	mux.HandleFunc(tasks.TypeDailyAlert, func(ctx context.Context, t *asynq.Task) error {
		return tasks.ScheduledDailySlateTask(ctx, t, db, asynqClient)
	})
	mux.HandleFunc(tasks.TypeMetricsRollup, func(ctx context.Context, t *asynq.Task) error {
		return tasks.HandleMetricsRollupTask(ctx, t, db)
	})

	go runScheduler()
	if err := srv.Run(mux); err != nil {
		log.Fatal(err)
	}
}
