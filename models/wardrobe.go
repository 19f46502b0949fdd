package models

import "time"

// WardrobeItem is one owned garment. Column names are part of the
// wardrobe collaborator contract, do not rename them.
type WardrobeItem struct {
	ItemID       uint        `gorm:"column:item_id;primarykey" json:"item_id"`
	UserID       string      `gorm:"column:user_id;index" json:"user_id"`
	Name         string      `gorm:"column:name" json:"name"`
	Category     Category    `gorm:"column:category" json:"category"`
	Color        string      `gorm:"column:color" json:"color"`
	WarmthLevel  WarmthLevel `gorm:"column:warmth_level" json:"warmth_level"`
	Formality    Formality   `gorm:"column:formality" json:"formality"`
	BodyZone     BodyZone    `gorm:"column:body_zone" json:"body_zone"`
	LastWornDate *time.Time  `gorm:"column:last_worn_date;type:date" json:"last_worn_date"`

	// optional item photo, stored as an R2 object key
	ImageObjectKey *string   `json:"-"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func (WardrobeItem) TableName() string {
	return "wardrobe_items"
}

type WardrobeItemIn struct {
	Name         string  `json:"name" validate:"required"`
	Category     string  `json:"category" validate:"required,category"`
	Color        string  `json:"color" validate:"required"`
	WarmthLevel  string  `json:"warmth_level" validate:"required,warmthlevel"`
	Formality    string  `json:"formality" validate:"required,formality"`
	BodyZone     string  `json:"body_zone" validate:"required,bodyzone"`
	LastWornDate *string `json:"last_worn_date"`
	WithImage    bool    `json:"with_image"`
}

type WardrobeItemOut struct {
	ItemID       uint    `json:"item_id"`
	Name         string  `json:"name"`
	Category     string  `json:"category"`
	Color        string  `json:"color"`
	WarmthLevel  string  `json:"warmth_level"`
	Formality    string  `json:"formality"`
	BodyZone     string  `json:"body_zone"`
	LastWornDate *string `json:"last_worn_date"`
	ImageURL     *string `json:"image_url"`
}

type WardrobeItemCreatedOut struct {
	Item           WardrobeItemOut `json:"item"`
	ImageUploadURL *string         `json:"image_upload_url"`
}

type WardrobeListOut struct {
	Tops        []WardrobeItemOut `json:"tops"`
	Bottoms     []WardrobeItemOut `json:"bottoms"`
	Dresses     []WardrobeItemOut `json:"dresses"`
	Outerwear   []WardrobeItemOut `json:"outerwear"`
	Shoes       []WardrobeItemOut `json:"shoes"`
	Accessories []WardrobeItemOut `json:"accessories"`
}
