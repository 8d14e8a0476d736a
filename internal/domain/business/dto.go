// internal/domain/business/dto.go
package business

type UpdateProfileRequest struct {
	Name           *string `json:"name,omitempty"`
	BusinessType   *string `json:"business_type,omitempty"`
	BrandColor     *string `json:"brand_color,omitempty"`
	LogoURL        *string `json:"logo_url,omitempty"`
	WelcomeMessage *string `json:"welcome_message,omitempty"`
	BusinessInfo   *string `json:"business_info,omitempty"`
}

// Profile is the tenant-facing view of a business account.
type Profile struct {
	ID             int64  `json:"id"`
	Email          string `json:"email"`
	Name           string `json:"name"`
	BusinessType   string `json:"business_type,omitempty"`
	Tier           string `json:"tier"`
	BrandColor     string `json:"brand_color,omitempty"`
	LogoURL        string `json:"logo_url,omitempty"`
	WelcomeMessage string `json:"welcome_message,omitempty"`
	BusinessInfo   string `json:"business_info,omitempty"`
}

// ToProfile strips credentials and nullable wrappers for API responses.
func (b *Business) ToProfile() *Profile {
	return &Profile{
		ID:             b.ID,
		Email:          b.Email,
		Name:           b.Name,
		BusinessType:   b.BusinessType.String,
		Tier:           string(b.Tier),
		BrandColor:     b.BrandColor.String,
		LogoURL:        b.LogoURL.String,
		WelcomeMessage: b.WelcomeMessage.String,
		BusinessInfo:   b.BusinessInfo.String,
	}
}
