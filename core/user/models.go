package user

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"github.com/FARHATREKAYA/quran-app/core"
)

// Preferences
const (
	ThemeLight = "light"
	ThemeDark  = "dark"
	ThemeSepia = "sepia"

	LanguageEnglish = "english"
	LanguageArabic  = "arabic"
	LanguageFrench  = "french"
)

// Social providers
const (
	ProviderGoogle   = "google"
	ProviderFacebook = "facebook"
)

// bcrypt only uses the first 72 bytes of a password.
const maxPasswordBytes = 72

type User struct {
	ID                string    `json:"id"`
	Username          string    `json:"username"`
	Email             string    `json:"email,omitempty"`
	PasswordHash      []byte    `json:"-"`
	IsGuest           bool      `json:"is_guest"`
	IsAdmin           bool      `json:"is_admin"`
	IsActive          bool      `json:"is_active"`
	GoogleID          string    `json:"-"`
	FacebookID        string    `json:"-"`
	PreferredTheme    string    `json:"preferred_theme"`
	PreferredLanguage string    `json:"preferred_language"`
	CreatedAt         time.Time `json:"created_at"` // UTC
	UpdatedAt         time.Time `json:"updated_at"` // UTC
	LastLogin         time.Time `json:"last_login"` // UTC
}

func truncatePassword(pwd string) []byte {
	b := []byte(pwd)
	if len(b) > maxPasswordBytes {
		b = b[:maxPasswordBytes]
	}
	return b
}

func (u *User) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword(truncatePassword(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	return nil
}

func (u *User) CheckPassword(pwd string) error {
	if len(u.PasswordHash) == 0 {
		return bcrypt.ErrMismatchedHashAndPassword
	}
	return bcrypt.CompareHashAndPassword(u.PasswordHash, truncatePassword(pwd))
}

// NewUser contains information needed to register a new User.
type NewUser struct {
	Username        string `json:"username" validate:"required,min=3,max=50,alphanum_"`
	Email           string `json:"email" validate:"omitempty,email"`
	Password        string `json:"password" validate:"required"`
	PasswordConfirm string `json:"password_confirm" validate:"omitempty,eqfield=Password"`
}

func (nu *NewUser) Validate(validate *validator.Validate) error {
	nu.Username = core.CleanString(nu.Username, true /* lower */)
	nu.Email = core.CleanString(nu.Email, true /* lower */)
	return validate.Struct(nu)
}

// SocialLogin carries the identity returned by a social provider.
type SocialLogin struct {
	Provider string `json:"provider" validate:"required,oneof=google facebook"`
	Token    string `json:"token" validate:"required"`
	SocialID string `json:"social_id" validate:"required"`
	Email    string `json:"email" validate:"omitempty,email"`
	Name     string `json:"name"`
}

func (sl *SocialLogin) Validate(validate *validator.Validate) error {
	sl.Provider = core.CleanString(sl.Provider, true /* lower */)
	sl.SocialID = core.CleanString(sl.SocialID)
	sl.Email = core.CleanString(sl.Email, true /* lower */)
	sl.Name = core.CleanString(sl.Name)
	return validate.Struct(sl)
}

// baseUsername derives a username from the provider display name or the social id.
func (sl SocialLogin) baseUsername() string {
	if sl.Name != "" {
		return strings.ReplaceAll(strings.ToLower(sl.Name), " ", "_")
	}
	id := sl.SocialID
	if len(id) > 8 {
		id = id[:8]
	}
	return "user_" + id
}

type UpdatePreferences struct {
	PreferredTheme    string `json:"preferred_theme" validate:"omitempty,oneof=light dark sepia"`
	PreferredLanguage string `json:"preferred_language" validate:"omitempty,oneof=english arabic french"`
}

func (up *UpdatePreferences) Validate(validate *validator.Validate) error {
	up.PreferredTheme = core.CleanString(up.PreferredTheme, true /* lower */)
	up.PreferredLanguage = core.CleanString(up.PreferredLanguage, true /* lower */)
	return validate.Struct(up)
}

type ResetUserPassword struct {
	Token           string `json:"token,omitempty" validate:"required"`
	UID             string `json:"uid,omitempty" validate:"required"`
	Password        string `json:"password,omitempty" validate:"required"`
	PasswordConfirm string `json:"password_confirm,omitempty" validate:"required,eqfield=Password"`
}

func (rp ResetUserPassword) Validate(validate *validator.Validate) error { return validate.Struct(rp) }

// GetFilter selects a single User. Only the first non-empty field is used.
type GetFilter struct {
	ID              string
	UsernameOrEmail string
	Email           string
	GoogleID        string
	FacebookID      string
}

type QueryFilter struct {
	Search   string
	IsActive *bool
	IsAdmin  *bool
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
}
