package controllers

import (
	"fmt"
	"net/http"

	"freshfitapi/models"
	"freshfitapi/pipeline"
	"freshfitapi/services"

	"github.com/getsentry/sentry-go"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"
)

type FeedbackController struct {
	SlateStore    services.SlateStoreProvider
	FeedbackStore services.FeedbackStoreProvider
	History       *services.CachedHistoryProvider
}

func (controller *FeedbackController) Submit(c echo.Context) error {
	var req models.FeedbackSubmitIn
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

	turn := req.SessionTurn
	if turn == 0 {
		row := db.Model(&models.OutfitSlate{}).
			Where("user_id = ? and session_id = ?", userID, req.SessionID).
			Select("coalesce(max(session_turn), 0)").Row()
		if err := row.Scan(&turn); err != nil {
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to resolve session turn"})
		}
	}

	slate, err := controller.SlateStore.LoadSlate(c.Request().Context(), userID, req.SessionID, turn)
	if err != nil {
		sentry.CaptureException(err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to load recommendations"})
	}
	if slate == nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "No recommendations found for this session"})
	}

	normalizer := pipeline.NewFeedbackNormalizer()
	normalized := normalizer.Normalize(slate, &pipeline.FeedbackSubmission{
		UserID:           userID,
		SessionTurn:      turn,
		SelectedOutfitID: req.SelectedOutfitID,
		Events:           req.Events,
	})

	outfitCount, itemCount, err := controller.FeedbackStore.SaveNormalized(c.Request().Context(), normalized)
	if err != nil {
		sentry.CaptureException(err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to save feedback"})
	}
	controller.History.Invalidate(c.Request().Context(), userID)
	fmt.Printf("[User %v] Feedback saved, session %s turn %v outfits %v items %v\n", user.ID, req.SessionID, turn, outfitCount, itemCount)

	return c.JSON(http.StatusOK, models.FeedbackSubmitOut{
		OutfitRecords: outfitCount,
		ItemRecords:   itemCount,
		Warnings:      normalized.Warnings,
	})
}
