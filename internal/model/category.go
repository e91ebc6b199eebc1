package model

// Category is a resource classification bucket.
// Classification evaluates categories in the order returned by AllCategories
// and the first match wins, so that order is part of the contract.
type Category string

const (
	// CategoryRecaptchaImagery covers reCAPTCHA logos and challenge images
	// that fake-CAPTCHA pages copy to look legitimate.
	CategoryRecaptchaImagery Category = "recaptcha_imagery"

	// CategoryPayloadFiles covers links to script and executable payloads (.ps1, .hta, ...).
	CategoryPayloadFiles Category = "payload_files"

	// CategoryFontResources covers web fonts.
	CategoryFontResources Category = "font_resources"

	// CategoryCDNScripts covers scripts served from public CDNs.
	CategoryCDNScripts Category = "cdn_scripts"

	// CategoryGoogleResources covers anything else hosted by Google.
	CategoryGoogleResources Category = "google_resources"

	// CategoryOther is the catch-all.
	CategoryOther Category = "other"
)

// AllCategories returns the categories in classification priority order.
func AllCategories() []Category {
	return []Category{
		CategoryRecaptchaImagery,
		CategoryPayloadFiles,
		CategoryFontResources,
		CategoryCDNScripts,
		CategoryGoogleResources,
		CategoryOther,
	}
}

// String returns the category tag.
func (c Category) String() string {
	return string(c)
}

// Label returns the human-readable category name.
func (c Category) Label() string {
	switch c {
	case CategoryRecaptchaImagery:
		return "reCAPTCHA imagery"
	case CategoryPayloadFiles:
		return "Payload files"
	case CategoryFontResources:
		return "Font resources"
	case CategoryCDNScripts:
		return "CDN-hosted scripts"
	case CategoryGoogleResources:
		return "Google resources"
	case CategoryOther:
		return "Other"
	default:
		return "Unknown"
	}
}
