package controllers

import (
	"context"
	"fmt"
	"freshfitapi/models"
	"freshfitapi/pipeline"
	"freshfitapi/services"
	"log"
	"net/http"
	"os"

	firebase "firebase.google.com/go/v4"
	"github.com/go-playground/validator"
	"github.com/hibiken/asynq"
	echojwt "github.com/labstack/echo-jwt"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"gorm.io/gorm"
)

type CustomValidator struct {
	validator *validator.Validate
}

func (cv *CustomValidator) Validate(i interface{}) error {
	if err := cv.validator.Struct(i); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return nil
}

func SetupServer(
	db *gorm.DB,
	googleService services.GoogleServiceProvider,
	awsService services.AWSServiceProvider,
	firebaseApp *firebase.App,
	llmRunner services.LLMStageRunner,
	asynqClient *asynq.Client,
	asynqInspector *asynq.Inspector,
) *echo.Echo {

	fmt.Println(firebaseApp, "Firebase app")
	err := awsService.InitPresignClient(context.Background())
	if err != nil {
		log.Fatal("Failed to initialize AWS provider: S3")
	}

	e := echo.New()
	v := validator.New()
	v.RegisterValidation("platform", models.ValidatePlatform)
	v.RegisterValidation("category", models.ValidateCategory)
	v.RegisterValidation("warmthlevel", models.ValidateWarmthLevel)
	v.RegisterValidation("formality", models.ValidateFormality)
	v.RegisterValidation("bodyzone", models.ValidateBodyZone)
	v.RegisterValidation("decision", models.ValidateDecision)
	v.RegisterValidation("futureintent", models.ValidateFutureIntent)
	e.Validator = &CustomValidator{validator: v}
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Set("__db", db)
			c.Set("__asynqclient", asynqClient)
			c.Set("__asynqinspector", asynqInspector)
			return next(c)
		}
	})

	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept},
	}))

	wardrobeStore := services.NewGormWardrobeStore(db)
	historyProvider, err := services.NewCachedHistoryProvider(services.NewGormHistoryProvider(db))
	if err != nil {
		log.Fatal("Failed to initialize history cache: ", err)
	}
	executor := pipeline.NewRetryingExecutor(pipeline.DefaultRetryPolicy())
	recommendPipeline := pipeline.NewPipeline(
		services.NewGoogleWeatherProvider(llmRunner),
		services.NewWardrobeSnapshotProvider(wardrobeStore),
		historyProvider,
		services.NewGeminiExplainer(llmRunner),
		executor,
	)

	authGroup := e.Group("auth")
	authController := AuthController{Google: googleService, FirebaseApp: firebaseApp}
	authController.AuthRoutes(authGroup)

	meGroup := e.Group("/me", echojwt.JWT([]byte(os.Getenv("JWT_SECRET"))), UserMiddleware)
	authController.ProfileRoutes(meGroup)

	urlCache, err := services.NewURLCacheService(awsService, services.GetEnv("R2_BUCKET_NAME", ""))
	if err != nil {
		log.Fatal("Failed to initialize URL cache: ", err)
	}
	wardrobeController := WardrobeController{AWSService: awsService, URLCache: urlCache, Store: wardrobeStore}
	wardrobeController.WardrobeRoutes(meGroup.Group("/wardrobe"))

	recommendController := RecommendController{
		Pipeline:   recommendPipeline,
		SlateStore: services.NewGormSlateStore(db),
	}
	meGroup.POST("/recommend", recommendController.Recommend)

	feedbackController := FeedbackController{
		SlateStore:    services.NewGormSlateStore(db),
		FeedbackStore: services.NewGormFeedbackStore(db),
		History:       historyProvider,
	}
	meGroup.POST("/feedback", feedbackController.Submit)

	return e
}
