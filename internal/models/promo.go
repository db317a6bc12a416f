package models

// PromoType is derived from the number of active images.
type PromoType string

const (
	PromoSingle   PromoType = "single"
	PromoCarousel PromoType = "carousel"
)

// Defaults filled in when a stored config predates the field.
const (
	DefaultPromoBackground = "#ffffff"
	DefaultPromoTextColor  = "#1a1a1a"
	DefaultPromoLinkText   = "Learn more"
)

// PromoImage is a popup creative. It lives either in PromoConfig.Images or in
// PromoConfig.PastPromos, never both.
type PromoImage struct {
	ID             string `json:"id"`
	ImageURL       string `json:"imageUrl"`
	ObjectKey      string `json:"objectKey,omitempty"`
	Alt            string `json:"alt,omitempty"`
	CreatedDate    Date   `json:"createdDate"`
	ExpirationDate *Date  `json:"expirationDate,omitempty"`
	LastUsedDate   *Date  `json:"lastUsedDate,omitempty"`
	IsArchived     bool   `json:"isArchived"`
	Width          int    `json:"width,omitempty"`
	Height         int    `json:"height,omitempty"`
}

// PromoConfig is the singleton promo popup document.
type PromoConfig struct {
	Enabled         bool         `json:"enabled"`
	Type            PromoType    `json:"type"`
	Images          []PromoImage `json:"images"`
	PastPromos      []PromoImage `json:"pastPromos"`
	LinkURL         string       `json:"linkUrl"`
	LinkText        string       `json:"linkText"`
	BackgroundColor string       `json:"backgroundColor"`
	TextColor       string       `json:"textColor"`
	ForceGoLive     bool         `json:"forceGoLive"`
}

// DefaultPromoConfig returns the config used before anything was saved.
func DefaultPromoConfig() *PromoConfig {
	return &PromoConfig{
		Type:            PromoCarousel,
		Images:          []PromoImage{},
		PastPromos:      []PromoImage{},
		LinkText:        DefaultPromoLinkText,
		BackgroundColor: DefaultPromoBackground,
		TextColor:       DefaultPromoTextColor,
	}
}

// DeriveType sets Type from the active image count.
func (c *PromoConfig) DeriveType() {
	if len(c.Images) == 1 {
		c.Type = PromoSingle
		return
	}
	c.Type = PromoCarousel
}

// Clone returns a deep copy.
func (c *PromoConfig) Clone() *PromoConfig {
	if c == nil {
		return nil
	}
	out := *c
	out.Images = cloneImages(c.Images)
	out.PastPromos = cloneImages(c.PastPromos)
	return &out
}

// ActiveIndex returns the index of id in Images, or -1.
func (c *PromoConfig) ActiveIndex(id string) int {
	return indexOf(c.Images, id)
}

// PastIndex returns the index of id in PastPromos, or -1.
func (c *PromoConfig) PastIndex(id string) int {
	return indexOf(c.PastPromos, id)
}

func indexOf(images []PromoImage, id string) int {
	for i := range images {
		if images[i].ID == id {
			return i
		}
	}
	return -1
}

func cloneImages(in []PromoImage) []PromoImage {
	if in == nil {
		return nil
	}
	out := make([]PromoImage, len(in))
	for i, img := range in {
		out[i] = img
		if img.ExpirationDate != nil {
			out[i].ExpirationDate = img.ExpirationDate.Ptr()
		}
		if img.LastUsedDate != nil {
			out[i].LastUsedDate = img.LastUsedDate.Ptr()
		}
	}
	return out
}
