package controllers

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"freshfitapi/models"
	"freshfitapi/services"

	"github.com/getsentry/sentry-go"
	"github.com/labstack/echo/v4"
)

type WardrobeController struct {
	AWSService services.AWSServiceProvider
	URLCache   services.URLCacheServiceProvider
	Store      services.WardrobeStoreProvider
}

func (controller *WardrobeController) WardrobeRoutes(g *echo.Group) {
	g.POST("/create", controller.CreateItem)
	g.GET("/list", controller.ListItems)
	g.DELETE("/:itemId", controller.DeleteItem)
}

func itemToOut(item models.WardrobeItem, imageUrl *string) models.WardrobeItemOut {
	var lastWorn *string
	if item.LastWornDate != nil {
		lastWorn = StrPointer(item.LastWornDate.Format("2006-01-02"))
	}
	return models.WardrobeItemOut{
		ItemID:       item.ItemID,
		Name:         item.Name,
		Category:     string(item.Category),
		Color:        item.Color,
		WarmthLevel:  string(item.WarmthLevel),
		Formality:    string(item.Formality),
		BodyZone:     string(item.BodyZone),
		LastWornDate: lastWorn,
		ImageURL:     imageUrl,
	}
}

func (controller *WardrobeController) CreateItem(c echo.Context) error {
	var req models.WardrobeItemIn
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

	item := models.WardrobeItem{
		UserID:      user.PipelineUserID(),
		Name:        req.Name,
		Category:    models.Category(req.Category),
		Color:       req.Color,
		WarmthLevel: models.WarmthLevel(req.WarmthLevel),
		Formality:   models.Formality(req.Formality),
		BodyZone:    models.BodyZone(req.BodyZone),
	}
	if req.LastWornDate != nil && *req.LastWornDate != "" {
		lastWorn, err := time.Parse("2006-01-02", *req.LastWornDate)
		if err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "last_worn_date must be YYYY-MM-DD"})
		}
		item.LastWornDate = &lastWorn
	}

	var uploadUrl *string
	if req.WithImage {
		bucketName := services.GetEnv("R2_BUCKET_NAME", "")
		objectKey := fmt.Sprintf("wardrobe/%s/%d-%s", user.PipelineUserID(), time.Now().UnixNano(), req.Name)
		url, presignErr := controller.AWSService.PresignLink(context.Background(), bucketName, objectKey)
		if presignErr != nil {
			log.Printf("Unable to presign upload for %s!, %s", req.Name, presignErr)
			return c.JSON(http.StatusInternalServerError, echo.Map{
				"message": "Error while creating wardrobe item with photo",
			})
		}
		item.ImageObjectKey = &objectKey
		uploadUrl = &url
	}

	if _, err := controller.Store.Add(c.Request().Context(), &item); err != nil {
		sentry.CaptureException(err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to save wardrobe item"})
	}

	return c.JSON(http.StatusCreated, models.WardrobeItemCreatedOut{
		Item:           itemToOut(item, nil),
		ImageUploadURL: uploadUrl,
	})
}

// populateItemImages enriches items with presigned read URLs concurrently,
// falling back to a direct presign call when the cache layer fails.
func (controller *WardrobeController) populateItemImages(ctx context.Context, items []models.WardrobeItem) []models.WardrobeItemOut {
	if len(items) == 0 {
		return []models.WardrobeItemOut{}
	}

	var wg sync.WaitGroup
	processed := make([]models.WardrobeItemOut, len(items))
	bucketName := services.GetEnv("R2_BUCKET_NAME", "")

	for i, wardrobeItem := range items {
		wg.Add(1)
		go func(index int, item models.WardrobeItem) {
			defer wg.Done()

			var imageUrl *string
			if item.ImageObjectKey != nil && *item.ImageObjectKey != "" {
				objectKey := *item.ImageObjectKey
				url, err := controller.URLCache.GetReadURL(ctx, objectKey)
				if err == nil {
					imageUrl = &url
				} else {
					log.Printf("CACHE WARNING: Cache system failed for key '%s': %v. Triggering manual R2 fallback.", objectKey, err)
					sentry.WithScope(func(scope *sentry.Scope) {
						scope.SetTag("failure_type", "cache_system")
						scope.SetExtra("objectKey", objectKey)
						sentry.CaptureException(err)
					})
					fallbackUrl, fallbackErr := controller.AWSService.GetPresignedR2FileReadURL(ctx, bucketName, objectKey)
					if fallbackErr != nil {
						log.Printf("CRITICAL: Manual R2 fallback also failed for key '%s': %v", objectKey, fallbackErr)
						sentry.CaptureException(fallbackErr)
					} else {
						imageUrl = &fallbackUrl
					}
				}
			}
			processed[index] = itemToOut(item, imageUrl)
		}(i, wardrobeItem)
	}

	wg.Wait()
	return processed
}

func (controller *WardrobeController) ListItems(c echo.Context) error {
	user, ok := c.Get("currentUser").(models.UserAccount)
	if !ok {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
	}

	items, err := controller.Store.Fetch(c.Request().Context(), user.PipelineUserID(), nil, 0)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to fetch wardrobe"})
	}

	processed := controller.populateItemImages(c.Request().Context(), items)

	response := models.WardrobeListOut{
		Tops:        []models.WardrobeItemOut{},
		Bottoms:     []models.WardrobeItemOut{},
		Dresses:     []models.WardrobeItemOut{},
		Outerwear:   []models.WardrobeItemOut{},
		Shoes:       []models.WardrobeItemOut{},
		Accessories: []models.WardrobeItemOut{},
	}
	for _, resp := range processed {
		switch resp.Category {
		case "top":
			response.Tops = append(response.Tops, resp)
		case "bottom":
			response.Bottoms = append(response.Bottoms, resp)
		case "dress":
			response.Dresses = append(response.Dresses, resp)
		case "outerwear":
			response.Outerwear = append(response.Outerwear, resp)
		case "shoes":
			response.Shoes = append(response.Shoes, resp)
		case "accessory":
			response.Accessories = append(response.Accessories, resp)
		}
	}

	return c.JSON(http.StatusOK, response)
}

func (controller *WardrobeController) DeleteItem(c echo.Context) error {
	user, ok := c.Get("currentUser").(models.UserAccount)
	if !ok {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
	}
	var itemId uint
	if err := echo.PathParamsBinder(c).Uint("itemId", &itemId).BindError(); err != nil {
		return echo.ErrBadRequest
	}

	deleted, err := controller.Store.Delete(c.Request().Context(), user.PipelineUserID(), itemId)
	if err != nil {
		sentry.CaptureException(err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to delete wardrobe item"})
	}
	if !deleted {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "Wardrobe item not found"})
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "Deleted"})
}
