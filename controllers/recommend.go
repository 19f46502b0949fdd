package controllers

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"freshfitapi/models"
	"freshfitapi/pipeline"
	"freshfitapi/services"

	"github.com/getsentry/sentry-go"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"
)

type RecommendController struct {
	Pipeline   *pipeline.Pipeline
	SlateStore services.SlateStoreProvider
}

func (controller *RecommendController) Recommend(c echo.Context) error {
	var req models.RecommendIn
	if err := c.Bind(&req); err != nil {
		fmt.Println(err)
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}
	if err := c.Validate(req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	user, ok := c.Get("currentUser").(models.UserAccount)
	if !ok {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
	}
	db := c.Get("__db").(*gorm.DB)
	userID := user.PipelineUserID()

	date := time.Now()
	if req.Date != "" {
		parsed, err := time.Parse("2006-01-02", req.Date)
		if err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "date must be YYYY-MM-DD"})
		}
		date = parsed
	}

	var categories []models.Category
	for _, raw := range req.RequiredCategories {
		categories = append(categories, models.Category(raw))
	}
	pipelineReq := &pipeline.Request{
		UserID:              userID,
		Occasion:            req.Occasion,
		Location:            req.Location,
		Date:                date,
		Mode:                req.Mode,
		TravelDays:          req.TravelDays,
		BannedItems:         req.BannedItems,
		RequiredCategories:  categories,
		LovedComboRequired:  req.LovedComboRequired == nil || *req.LovedComboRequired,
		ExplorationRequired: req.ExplorationRequired == nil || *req.ExplorationRequired,
	}

	sess := pipeline.NewSession(userID)
	if req.SessionID != "" {
		var lastTurn int
		row := db.Model(&models.OutfitSlate{}).
			Where("user_id = ? and session_id = ?", userID, req.SessionID).
			Select("coalesce(max(session_turn), 0)").Row()
		if err := row.Scan(&lastTurn); err != nil {
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to resume session"})
		}
		sess = pipeline.ResumeSession(userID, req.SessionID, lastTurn)
	}

	slate, err := controller.Pipeline.Run(c.Request().Context(), sess, pipelineReq)
	if err != nil {
		var insufficient *pipeline.InsufficientSlateError
		var exhausted *pipeline.StageExhaustedError
		var violation *pipeline.SchemaViolationError
		switch {
		case errors.As(err, &insufficient):
			return c.JSON(http.StatusUnprocessableEntity, map[string]interface{}{
				"error":    "Not enough distinct wardrobe items for a slate, add a few more pieces",
				"distinct": insufficient.Distinct,
				"required": insufficient.Required,
			})
		case errors.As(err, &exhausted):
			sentry.CaptureException(err)
			return c.JSON(http.StatusBadGateway, map[string]string{
				"error": fmt.Sprintf("The %s stage is unavailable right now, please try again later", exhausted.Stage),
			})
		case errors.As(err, &violation):
			return c.JSON(http.StatusBadRequest, map[string]string{"error": violation.Error()})
		default:
			sentry.CaptureException(err)
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to build recommendations"})
		}
	}

	if err := controller.SlateStore.SaveSlate(c.Request().Context(), userID, sess.SessionID, sess.Turn, pipelineReq, slate); err != nil {
		sentry.CaptureException(err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to save recommendations"})
	}
	fmt.Printf("[User %v] Slate built, session %s turn %v outfits %v\n", user.ID, sess.SessionID, sess.Turn, len(slate.Candidates))

	outfits := make([]models.RecommendOutfitOut, 0, len(slate.Candidates))
	for _, candidate := range slate.Candidates {
		items := make([]models.WardrobeItemOut, 0, len(candidate.Items))
		for _, item := range candidate.Items {
			items = append(items, itemToOut(item, nil))
		}
		outfits = append(outfits, models.RecommendOutfitOut{
			OutfitID:      candidate.OutfitID,
			Rank:          candidate.Rank,
			Name:          candidate.Name,
			Description:   candidate.Description,
			Rationale:     candidate.Rationale,
			Items:         items,
			IsExploration: candidate.IsExploration,
			Score:         candidate.Score.Holistic,
		})
	}

	return c.JSON(http.StatusOK, models.RecommendOut{
		SessionID:       sess.SessionID,
		SessionTurn:     sess.Turn,
		Mode:            req.Mode,
		TempBucket:      string(slate.Weather.Bucket),
		WeatherSummary:  slate.Weather.Summary,
		Outfits:         outfits,
		Trace:           slate.Trace,
		SelectionPrompt: slate.SelectionPrompt,
		Warnings:        slate.Warnings,
	})
}
