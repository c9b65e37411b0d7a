package user

import (
	"context"
	"net/mail"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/FARHATREKAYA/quran-app/core"
)

const maxUsernameAttempts = 20

var (
	// errors
	ErrNotFound          = core.NewNotFoundError("user")
	ErrEmailExists       = errors.New("a user with this email already exists")
	ErrUsernameExists    = errors.New("a user with this username already exists")
	ErrCannotBlockAdmin  = core.NewAuthorizationError("cannot block admin users")
	ErrCannotDeleteAdmin = core.NewAuthorizationError("cannot delete admin users")
	ErrCannotDeleteSelf  = core.NewAuthorizationError("cannot delete your own account")
)

type (
	Repository interface {
		// CreateUser returns ErrUsernameExists or ErrEmailExists on uniqueness clashes.
		CreateUser(ctx context.Context, usr User) (User, error)
		GetUser(ctx context.Context, filter GetFilter) (User, error)
		UsernameExists(ctx context.Context, username string) (bool, error)
		// QueryUsers applies AND operation on available QueryFilter fields.
		// QueryFilter.Search does a case-insensitive match on User.Username or User.Email.
		QueryUsers(ctx context.Context, filter QueryFilter, page core.Page, ordering ...core.DBOrdering) ([]User, error)
		CountUsers(ctx context.Context, filter QueryFilter) (int, error)
		UpdateUser(ctx context.Context, usr User) (User, error)
		// DeleteUser removes the user and everything they own.
		DeleteUser(ctx context.Context, id string) error
	}

	Service interface {
		Register(ctx context.Context, nu NewUser) (User, error)
		CreateGuest(ctx context.Context) (User, error)
		SocialLogin(ctx context.Context, sl SocialLogin) (User, error)
		GetByID(ctx context.Context, id string) (User, error)
		GetByUsernameOrEmail(ctx context.Context, uname string) (User, error)
		SetLastLogin(ctx context.Context, usr User) (User, error)
		UpdatePreferences(ctx context.Context, usr User, up UpdatePreferences) (User, error)
		Query(ctx context.Context, filter QueryFilter, page core.Page, ordering ...core.DBOrdering) ([]User, error)
		Count(ctx context.Context, filter QueryFilter) (int, error)
		SetActive(ctx context.Context, id string, active bool) (User, error)
		Delete(ctx context.Context, id, requesterID string) error
		RequestPasswordReset(ctx context.Context, email string) error
		ResetPassword(ctx context.Context, data ResetUserPassword) error
	}

	service struct {
		repo    Repository
		mailSvc core.EmailService
		tokens  *tokenGenerator
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, mailSvc core.EmailService, conf *core.Config) Service {
	return &service{
		repo:    repo,
		mailSvc: mailSvc,
		tokens:  newTokenGenerator(conf.SecretKey, conf.Server.PasswordResetTimeoutDelta),
	}
}

func uniquenessError(err error) error {
	switch errors.Cause(err) {
	case ErrUsernameExists:
		return core.NewValidationError(err, core.FieldError{Field: "username", Error: err.Error()})
	case ErrEmailExists:
		return core.NewValidationError(err, core.FieldError{Field: "email", Error: err.Error()})
	}
	return err
}

func newUser(now time.Time) User {
	return User{
		ID:                uuid.NewString(),
		IsActive:          true,
		PreferredTheme:    ThemeLight,
		PreferredLanguage: LanguageEnglish,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
}

func (svc *service) Register(ctx context.Context, nu NewUser) (User, error) {
	usr := newUser(time.Now().UTC())
	usr.Username = nu.Username
	usr.Email = nu.Email
	if err := usr.SetPassword(nu.Password); err != nil {
		return User{}, errors.Wrap(err, "hashing password")
	}
	usr, err := svc.repo.CreateUser(ctx, usr)
	if err != nil {
		return User{}, uniquenessError(err)
	}
	return usr, nil
}

func (svc *service) CreateGuest(ctx context.Context) (User, error) {
	uname, err := svc.freeUsername(ctx, func(int) string {
		return "guest_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	})
	if err != nil {
		return User{}, err
	}

	usr := newUser(time.Now().UTC())
	usr.Username = uname
	usr.IsGuest = true
	return svc.repo.CreateUser(ctx, usr)
}

// SocialLogin returns the user linked to the social identity, creating it on first login.
func (svc *service) SocialLogin(ctx context.Context, sl SocialLogin) (User, error) {
	filter := GetFilter{GoogleID: sl.SocialID}
	if sl.Provider == ProviderFacebook {
		filter = GetFilter{FacebookID: sl.SocialID}
	}

	usr, err := svc.repo.GetUser(ctx, filter)
	if err == nil {
		return svc.SetLastLogin(ctx, usr)
	}
	if errors.Cause(err) != ErrNotFound {
		return User{}, errors.Wrap(err, "finding user by social id")
	}

	base := sl.baseUsername()
	uname, err := svc.freeUsername(ctx, func(attempt int) string {
		if attempt == 0 {
			return base
		}
		return base + "_" + strconv.Itoa(attempt)
	})
	if err != nil {
		return User{}, err
	}

	now := time.Now().UTC()
	usr = newUser(now)
	usr.Username = uname
	usr.Email = sl.Email
	usr.LastLogin = now
	if sl.Provider == ProviderFacebook {
		usr.FacebookID = sl.SocialID
	} else {
		usr.GoogleID = sl.SocialID
	}
	usr, err = svc.repo.CreateUser(ctx, usr)
	if err != nil {
		return User{}, uniquenessError(err)
	}
	return usr, nil
}

func (svc *service) freeUsername(ctx context.Context, candidate func(attempt int) string) (string, error) {
	for attempt := 0; attempt < maxUsernameAttempts; attempt++ {
		uname := candidate(attempt)
		exists, err := svc.repo.UsernameExists(ctx, uname)
		if err != nil {
			return "", errors.Wrap(err, "checking username")
		}
		if !exists {
			return uname, nil
		}
	}
	return "", errors.New("could not find a free username")
}

func (svc *service) GetByID(ctx context.Context, id string) (User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return User{}, ErrNotFound
	}
	return svc.repo.GetUser(ctx, GetFilter{ID: id})
}

func (svc *service) GetByUsernameOrEmail(ctx context.Context, uname string) (User, error) {
	return svc.repo.GetUser(ctx, GetFilter{UsernameOrEmail: core.CleanString(uname, true /* lower */)})
}

func (svc *service) SetLastLogin(ctx context.Context, usr User) (User, error) {
	usr.LastLogin = time.Now().UTC()
	return svc.repo.UpdateUser(ctx, usr)
}

func (svc *service) UpdatePreferences(ctx context.Context, usr User, up UpdatePreferences) (User, error) {
	if up.PreferredTheme != "" {
		usr.PreferredTheme = up.PreferredTheme
	}
	if up.PreferredLanguage != "" {
		usr.PreferredLanguage = up.PreferredLanguage
	}
	usr.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateUser(ctx, usr)
}

func (svc *service) Query(ctx context.Context, filter QueryFilter, page core.Page, ordering ...core.DBOrdering) ([]User, error) {
	filter.Clean()
	page.Clean()
	return svc.repo.QueryUsers(ctx, filter, page, ordering...)
}

func (svc *service) Count(ctx context.Context, filter QueryFilter) (int, error) {
	return svc.repo.CountUsers(ctx, filter)
}

// SetActive blocks (active=false) or unblocks a user. Admins cannot be blocked.
func (svc *service) SetActive(ctx context.Context, id string, active bool) (User, error) {
	usr, err := svc.GetByID(ctx, id)
	if err != nil {
		return User{}, err
	}
	if !active && usr.IsAdmin {
		return User{}, ErrCannotBlockAdmin
	}
	usr.IsActive = active
	usr.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateUser(ctx, usr)
}

// Delete removes a user with all their data. Admins cannot be deleted, and nobody can delete themselves.
func (svc *service) Delete(ctx context.Context, id, requesterID string) error {
	usr, err := svc.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if usr.IsAdmin {
		return ErrCannotDeleteAdmin
	}
	if usr.ID == requesterID {
		return ErrCannotDeleteSelf
	}
	return svc.repo.DeleteUser(ctx, usr.ID)
}

func (svc *service) RequestPasswordReset(ctx context.Context, email string) error {
	usr, err := svc.repo.GetUser(ctx, GetFilter{Email: core.CleanString(email, true /* lower */)})
	if err != nil {
		return err
	}
	if !usr.IsActive {
		return ErrNotFound
	}

	token, err := svc.tokens.makeToken(usr)
	if err != nil {
		return errors.Wrap(err, "making token")
	}
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: usr.Username, Address: usr.Email}},
		Subject:      "Password Reset",
		TemplateName: "password_reset",
		TemplateData: map[string]interface{}{
			"Username": usr.Username,
			"UID":      EncodeUID(usr),
			"Token":    token,
		},
	})
	return nil
}

func (svc *service) ResetPassword(ctx context.Context, data ResetUserPassword) error {
	invalid := func() error {
		return core.NewValidationError(nil, core.FieldError{Field: "token", Error: errInvalidToken.Error()})
	}

	id, err := decodeUID(data.UID)
	if err != nil {
		return invalid()
	}
	usr, err := svc.GetByID(ctx, id)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return invalid()
		}
		return errors.Wrap(err, "finding user by ID")
	}

	if err = svc.tokens.verifyToken(usr, data.Token); err != nil {
		return core.NewValidationError(nil, core.FieldError{Field: "token", Error: err.Error()})
	}

	if err = usr.SetPassword(data.Password); err != nil {
		return errors.Wrap(err, "hashing password")
	}
	usr.UpdatedAt = time.Now().UTC()
	_, err = svc.repo.UpdateUser(ctx, usr)
	return errors.Wrap(err, "updating user")
}
