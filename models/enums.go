package models

import (
	"regexp"

	"github.com/go-playground/validator"
)

type Platform string

const (
	PlatformIOS     Platform = "ios"
	PlatformAndroid Platform = "android"
	PlatformWeb     Platform = "web"
)

func (l *Platform) Scan(value interface{}) error {
	*l = Platform(value.(string))
	return nil
}

func (l Platform) Value() string {
	return string(l)
}

func ValidatePlatform(fl validator.FieldLevel) bool {
	matched, _ := regexp.MatchString("^(ios|android|web)$", fl.Field().String())
	return matched
}

type Category string

const (
	CategoryTop       Category = "top"
	CategoryBottom    Category = "bottom"
	CategoryDress     Category = "dress"
	CategoryOuterwear Category = "outerwear"
	CategoryShoes     Category = "shoes"
	CategoryAccessory Category = "accessory"
)

func (c *Category) Scan(value interface{}) error {
	*c = Category(value.(string))
	return nil
}

func (c Category) Value() string {
	return string(c)
}

func ValidateCategory(fl validator.FieldLevel) bool {
	matched, _ := regexp.MatchString("^(top|bottom|dress|outerwear|shoes|accessory)$", fl.Field().String())
	return matched
}

type WarmthLevel string

const (
	WarmthLight  WarmthLevel = "light"
	WarmthMedium WarmthLevel = "medium"
	WarmthHeavy  WarmthLevel = "heavy"
)

func (w *WarmthLevel) Scan(value interface{}) error {
	*w = WarmthLevel(value.(string))
	return nil
}

func (w WarmthLevel) Value() string {
	return string(w)
}

func ValidateWarmthLevel(fl validator.FieldLevel) bool {
	matched, _ := regexp.MatchString("^(light|medium|heavy)$", fl.Field().String())
	return matched
}

type Formality string

const (
	FormalityCasual      Formality = "casual"
	FormalitySmartCasual Formality = "smart_casual"
	FormalityBusiness    Formality = "business"
	FormalityFormal      Formality = "formal"
)

func (f *Formality) Scan(value interface{}) error {
	*f = Formality(value.(string))
	return nil
}

func (f Formality) Value() string {
	return string(f)
}

func ValidateFormality(fl validator.FieldLevel) bool {
	matched, _ := regexp.MatchString("^(casual|smart_casual|business|formal)$", fl.Field().String())
	return matched
}

type BodyZone string

const (
	BodyZoneUpper     BodyZone = "upper"
	BodyZoneLower     BodyZone = "lower"
	BodyZoneFullBody  BodyZone = "full_body"
	BodyZoneShoe      BodyZone = "shoe"
	BodyZoneAccessory BodyZone = "accessory"
)

func (b *BodyZone) Scan(value interface{}) error {
	*b = BodyZone(value.(string))
	return nil
}

func (b BodyZone) Value() string {
	return string(b)
}

func ValidateBodyZone(fl validator.FieldLevel) bool {
	matched, _ := regexp.MatchString("^(upper|lower|full_body|shoe|accessory)$", fl.Field().String())
	return matched
}

// TempBucket buckets an average daily temperature in celsius.
type TempBucket string

const (
	TempCold TempBucket = "cold" // < 10
	TempCool TempBucket = "cool" // 10 - 18
	TempMild TempBucket = "mild" // 18 - 24
	TempWarm TempBucket = "warm" // 24 - 30
	TempHot  TempBucket = "hot"  // > 30
)

func BucketForTemp(celsius float64) TempBucket {
	switch {
	case celsius < 10:
		return TempCold
	case celsius < 18:
		return TempCool
	case celsius < 24:
		return TempMild
	case celsius <= 30:
		return TempWarm
	default:
		return TempHot
	}
}

type Decision string

const (
	DecisionAccepted Decision = "accepted"
	DecisionRejected Decision = "rejected"
	DecisionSkipped  Decision = "skipped"
)

func (d *Decision) Scan(value interface{}) error {
	*d = Decision(value.(string))
	return nil
}

func (d Decision) Value() string {
	return string(d)
}

func ValidateDecision(fl validator.FieldLevel) bool {
	matched, _ := regexp.MatchString("^(accepted|rejected|skipped)$", fl.Field().String())
	return matched
}

type FutureIntent string

const (
	IntentTryAgain       FutureIntent = "try_again"
	IntentMaybeLater     FutureIntent = "maybe_later"
	IntentDoNotRecommend FutureIntent = "do_not_recommend"
)

func (f *FutureIntent) Scan(value interface{}) error {
	*f = FutureIntent(value.(string))
	return nil
}

func (f FutureIntent) Value() string {
	return string(f)
}

func ValidateFutureIntent(fl validator.FieldLevel) bool {
	matched, _ := regexp.MatchString("^(try_again|maybe_later|do_not_recommend)$", fl.Field().String())
	return matched
}
