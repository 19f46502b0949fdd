package controllers

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"freshfitapi/models"
	"freshfitapi/services"

	firebase "firebase.google.com/go/v4"
	"github.com/getsentry/sentry-go"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"
)

type AuthController struct {
	Google      services.GoogleServiceProvider
	FirebaseApp *firebase.App
}

func (m *AuthController) AuthRoutes(g *echo.Group) {
	g.POST("/google", m.GoogleSignIn)
}

func (m *AuthController) ProfileRoutes(g *echo.Group) {
	g.GET("/info", m.MeInfo)
	g.POST("/push-token", m.RegisterPushToken)
	g.POST("/settings", m.UpdateSettings)
}

func (m *AuthController) GoogleSignIn(c echo.Context) (err error) {
	googleCreds := new(models.GoogleAuthSignIn)
	if err := c.Bind(googleCreds); err != nil {
		return err
	}
	if err = c.Validate(googleCreds); err != nil {
		return err
	}

	payload, err := m.Google.ValidateIdToken(context.Background(), googleCreds.IdToken, os.Getenv("GOOGLE_CLIENT_ID"))
	if err != nil {
		fmt.Println(err)
		return c.JSON(http.StatusForbidden, map[string]interface{}{"message": "Couldn't verify credentials"})
	}
	sub, ok := payload.Claims["sub"]
	if !ok {
		sentry.CaptureMessage(fmt.Sprintf("Error when fetching user data %s", payload.Claims))
		return c.JSON(http.StatusForbidden, map[string]interface{}{"message": "Couldn't verify credentials"})
	}
	var googleId string = sub.(string)

	googleEmail, ok := payload.Claims["email"]
	if !ok {
		sentry.CaptureMessage(fmt.Sprintf("Error when fetching user data email %s", payload.Claims))
		return c.JSON(http.StatusForbidden, map[string]interface{}{"message": "Couldn't verify credentials"})
	}
	pictureUrl, _ := payload.Claims["picture"].(string)
	googleName, _ := payload.Claims["name"].(string)

	db := c.Get("__db").(*gorm.DB)
	var user *models.UserAccount
	r := db.Where("google_id = ? or email = ?", googleId, googleEmail).Limit(1).Find(&user)
	if r.Error != nil {
		return c.JSON(http.StatusInternalServerError, map[string]interface{}{"message": "Internal server error"})
	}
	isNew := r.RowsAffected == 0
	if isNew {
		user = &models.UserAccount{
			Name:                 googleName,
			Email:                googleEmail.(string),
			GoogleID:             googleId,
			Platform:             models.Platform(googleCreds.Platform),
			LastIp:               c.RealIP(),
			AvatarURL:            pictureUrl,
			ReceiveNotifications: true,
		}
		if err := db.Create(&user).Error; err != nil {
			sentry.CaptureException(err)
			return c.JSON(http.StatusInternalServerError, map[string]interface{}{"message": "Internal server error"})
		}
		fmt.Println("User onboarding finished google: ", googleEmail, googleId)
	} else {
		if user.Banned {
			return echo.ErrForbidden
		}
		user.AvatarURL = pictureUrl
		user.GoogleID = googleId
		user.LastIp = c.RealIP()
		user.Platform = models.Platform(googleCreds.Platform)
		db.Save(&user)
	}

	refreshToken, err := GenerateRefreshToken(fmt.Sprint(user.ID))
	if err != nil {
		fmt.Println(err)
		return echo.ErrInternalServerError
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"id":            user.ID,
		"name":          user.Name,
		"email":         user.Email,
		"new":           isNew,
		"avatar":        user.AvatarURL,
		"access_token":  GenerateUserToken(fmt.Sprint(user.ID), c, 72),
		"refresh_token": refreshToken,
	})
}

func (m *AuthController) MeInfo(c echo.Context) error {
	user, ok := c.Get("currentUser").(models.UserAccount)
	if !ok {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
	}
	db := c.Get("__db").(*gorm.DB)

	var itemCount int64
	if err := db.Model(&models.WardrobeItem{}).Where("user_id = ?", user.PipelineUserID()).Count(&itemCount).Error; err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to fetch wardrobe data"})
	}
	return c.JSON(http.StatusOK, models.UserMeInfoOut{
		Id:                   UIntToStr(user.ID),
		Name:                 user.Name,
		Email:                user.Email,
		AvatarURL:            user.AvatarURL,
		ReceiveNotifications: user.ReceiveNotifications,
		WardrobeItemCount:    itemCount,
	})
}

func (m *AuthController) RegisterPushToken(c echo.Context) error {
	var req models.UserPushIn
	if err := c.Bind(&req); err != nil {
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

	var existing models.UserPushToken
	r := db.Where("user_account_id = ? and token = ?", user.ID, req.Token).Limit(1).Find(&existing)
	if r.Error != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
	}
	if r.RowsAffected > 0 {
		existing.Active = true
		existing.Platform = models.Platform(req.Platform)
		db.Save(&existing)
		return c.JSON(http.StatusOK, map[string]interface{}{"id": existing.ID})
	}
	token := models.UserPushToken{
		UserAccountID: user.ID,
		Platform:      models.Platform(req.Platform),
		Token:         req.Token,
		Active:        true,
	}
	if err := db.Create(&token).Error; err != nil {
		sentry.CaptureException(err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to save push token"})
	}
	return c.JSON(http.StatusCreated, map[string]interface{}{"id": token.ID})
}

func (m *AuthController) UpdateSettings(c echo.Context) error {
	var req models.UserSettingsIn
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}
	user, ok := c.Get("currentUser").(models.UserAccount)
	if !ok {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
	}
	db := c.Get("__db").(*gorm.DB)
	user.ReceiveNotifications = req.ReceiveNotifications
	if err := db.Save(&user).Error; err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to update settings"})
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"receive_notifications": user.ReceiveNotifications})
}
