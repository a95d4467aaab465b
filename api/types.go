package api

// Alias is an alternate contact handle on the account (additional email or
// phone number). One alias per kind may be primary.
type Alias struct {
	ID      int    `json:"id"`
	Kind    string `json:"kind"`
	Value   string `json:"value"`
	Primary bool   `json:"primary"`
}

// Branding is a building's white-label presentation settings.
type Branding struct {
	DisplayName    string `json:"display_name,omitempty"`
	LogoURL        string `json:"logo_url,omitempty"`
	PrimaryColor   string `json:"primary_color,omitempty"`
	SecondaryColor string `json:"secondary_color,omitempty"`
}

// ProfileUpdate carries the editable user fields. Zero-valued fields are
// omitted and left unchanged server-side.
type ProfileUpdate struct {
	DisplayName   string `json:"name,omitempty"`
	Email         string `json:"email,omitempty"`
	PreferredName string `json:"preferred_name,omitempty"`
}

// PasswordChange carries a password-change request. The server validates the
// current password and the confirmation match.
type PasswordChange struct {
	Current      string `json:"current_password"`
	New          string `json:"password"`
	Confirmation string `json:"password_confirmation"`
}
