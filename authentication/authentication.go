package authentication

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	authcontext "github.com/nasermirzaei89/threadline/authentication/context"
	"github.com/nasermirzaei89/threadline/authorization"
	"golang.org/x/crypto/bcrypt"
)

const (
	MinUsernameLength = 5
	MaxUsernameLength = 32
	MinPasswordLength = 8

	// bcrypt ignores everything past 72 bytes.
	maxPasswordBytes = 72

	MaxBioLength            = 500
	MaxEmailLength          = 254
	MaxDisplayPictureLength = 2048

	defaultSessionDuration = 30 * 24 * time.Hour
)

var ErrInvalidCredentials = errors.New("invalid credentials")

type Service struct {
	userRepo    UserRepository
	sessionRepo SessionRepository
	authzClient *authorization.Client
	usernames   *UsernameFilter
	now         func() time.Time
}

func NewService(userRepo UserRepository, sessionRepo SessionRepository, authzClient *authorization.Client) *Service {
	return &Service{
		userRepo:    userRepo,
		sessionRepo: sessionRepo,
		authzClient: authzClient,
		now:         time.Now,
	}
}

// LoadUsernameFilter fills the filter used to answer availability checks for
// free usernames without a store round trip.
func (svc *Service) LoadUsernameFilter(ctx context.Context, minCapacity uint, falsePositiveRate float64) error {
	usernames, err := svc.userRepo.ListUsernames(ctx)
	if err != nil {
		return fmt.Errorf("failed to list usernames for username filter: %w", err)
	}

	filter := NewUsernameFilter(max(uint(len(usernames)), minCapacity), falsePositiveRate)
	for _, username := range usernames {
		filter.Add(username)
	}

	svc.usernames = filter

	return nil
}

func HashPassword(password string) (string, error) {
	bcryptHash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}

	return string(bcryptHash), nil
}

func normalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

func validateUsername(username string) error {
	length := utf8.RuneCountInString(username)

	if length < MinUsernameLength {
		return &ValidationError{Field: "username", Message: fmt.Sprintf("must be at least %d characters", MinUsernameLength)}
	}

	if length > MaxUsernameLength {
		return &ValidationError{Field: "username", Message: fmt.Sprintf("must be at most %d characters", MaxUsernameLength)}
	}

	for _, r := range username {
		if !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r == '_' || r == '.' || r == '-') {
			return &ValidationError{Field: "username", Message: "may only contain letters, digits, '_', '.' and '-'"}
		}
	}

	return nil
}

func validatePassword(password string) error {
	if utf8.RuneCountInString(password) < MinPasswordLength {
		return &ValidationError{Field: "password", Message: fmt.Sprintf("must be at least %d characters", MinPasswordLength)}
	}

	if len(password) > maxPasswordBytes {
		return &ValidationError{Field: "password", Message: fmt.Sprintf("must be at most %d bytes", maxPasswordBytes)}
	}

	return nil
}

func (svc *Service) Register(ctx context.Context, username, password string) (*User, error) {
	username = normalizeUsername(username)

	err := validateUsername(username)
	if err != nil {
		return nil, err
	}

	err = validatePassword(password)
	if err != nil {
		return nil, err
	}

	available, err := svc.IsUsernameAvailable(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("failed to check username availability: %w", err)
	}

	if !available {
		return nil, &UserAlreadyExistsError{Username: username}
	}

	passwordHash, err := HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &User{
		ID:           uuid.NewString(),
		Username:     username,
		PasswordHash: passwordHash,
		RegisteredAt: svc.now().UTC(),
	}

	err = svc.userRepo.Insert(ctx, user)
	if err != nil {
		var alreadyExistsErr *UserAlreadyExistsError
		if errors.As(err, &alreadyExistsErr) {
			svc.rememberUsername(username)

			return nil, alreadyExistsErr
		}

		return nil, fmt.Errorf("failed to register user: %w", err)
	}

	err = svc.authzClient.AddToGroup(ctx, user.ID, authcontext.Authenticated)
	if err != nil {
		err = fmt.Errorf("failed to add user to authenticated group: %w", err)

		deleteErr := svc.userRepo.Delete(ctx, user.ID)
		if deleteErr != nil {
			return nil, errors.Join(err, fmt.Errorf("failed to roll back user: %w", deleteErr))
		}

		return nil, err
	}

	svc.rememberUsername(username)

	user.PasswordHash = ""

	return user, nil
}

func (svc *Service) rememberUsername(username string) {
	if svc.usernames != nil {
		svc.usernames.Add(username)
	}
}

// IsUsernameAvailable answers from the username filter when it can and asks the
// store when the filter reports a possible hit.
func (svc *Service) IsUsernameAvailable(ctx context.Context, username string) (bool, error) {
	username = normalizeUsername(username)

	if svc.usernames != nil && !svc.usernames.MayContain(username) {
		return true, nil
	}

	_, err := svc.userRepo.FindByUsername(ctx, username)
	if err != nil {
		var notFoundErr *UserByUsernameNotFoundError
		if errors.As(err, &notFoundErr) {
			return true, nil
		}

		return false, fmt.Errorf("failed to find user by username: %w", err)
	}

	return false, nil
}

func (svc *Service) Login(ctx context.Context, username, password string) (*Session, error) {
	username = normalizeUsername(username)

	if username == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	user, err := svc.userRepo.FindByUsername(ctx, username)
	if err != nil {
		var notFoundErr *UserByUsernameNotFoundError
		if errors.As(err, &notFoundErr) {
			return nil, ErrInvalidCredentials
		}

		return nil, fmt.Errorf("failed to find user by username: %w", err)
	}

	err = bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password))
	if err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return nil, ErrInvalidCredentials
		}

		return nil, fmt.Errorf("failed to compare password hash: %w", err)
	}

	timeNow := svc.now().UTC()

	session := &Session{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		CreatedAt: timeNow,
		ExpiresAt: timeNow.Add(defaultSessionDuration),
	}

	err = svc.sessionRepo.Insert(ctx, session)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	return session, nil
}

func (svc *Service) Logout(ctx context.Context, sessionID string) error {
	err := svc.sessionRepo.Delete(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	return nil
}

func (svc *Service) GetSession(ctx context.Context, sessionID string) (*Session, error) {
	session, err := svc.sessionRepo.Find(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to find session: %w", err)
	}

	if session.IsExpired(svc.now()) {
		err = svc.sessionRepo.Delete(ctx, sessionID)
		if err != nil {
			slog.ErrorContext(ctx, "failed to delete expired session", "sessionId", sessionID, "error", err)
		}

		return nil, &SessionExpiredError{ID: sessionID}
	}

	return session, nil
}

// SweepExpiredSessions deletes every session that has expired by now.
func (svc *Service) SweepExpiredSessions(ctx context.Context) (int64, error) {
	deleted, err := svc.sessionRepo.DeleteExpired(ctx, svc.now().UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired sessions: %w", err)
	}

	return deleted, nil
}

func (svc *Service) GetUser(ctx context.Context, userID string) (*User, error) {
	user, err := svc.userRepo.Find(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to find user by id: %w", err)
	}

	user.PasswordHash = "" // clear password hash before returning user

	return user, nil
}

func (svc *Service) GetCurrentUser(ctx context.Context) (*User, error) {
	userID, ok := authcontext.UserID(ctx)
	if !ok {
		return nil, ErrCurrentUserNotFound
	}

	user, err := svc.GetUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get current user: %w", err)
	}

	return user, nil
}

func (svc *Service) GetUserByUsername(ctx context.Context, username string) (*User, error) {
	user, err := svc.userRepo.FindByUsername(ctx, normalizeUsername(username))
	if err != nil {
		return nil, fmt.Errorf("failed to find user by username: %w", err)
	}

	user.PasswordHash = ""

	return user, nil
}

// UpdateProfileRequest carries the fields to change; nil leaves a field as is.
type UpdateProfileRequest struct {
	UserID         string
	Username       *string
	Bio            *string
	Email          *string
	DisplayPicture *string
}

func (svc *Service) UpdateProfile(ctx context.Context, req UpdateProfileRequest) (*User, error) {
	user, err := svc.userRepo.Find(ctx, req.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to find user by id: %w", err)
	}

	if req.Username != nil {
		user.Username = normalizeUsername(*req.Username)

		err = validateUsername(user.Username)
		if err != nil {
			return nil, err
		}
	}

	if req.Bio != nil {
		user.Bio = strings.TrimSpace(*req.Bio)

		if utf8.RuneCountInString(user.Bio) > MaxBioLength {
			return nil, &ValidationError{Field: "bio", Message: fmt.Sprintf("must be at most %d characters", MaxBioLength)}
		}
	}

	if req.Email != nil {
		user.Email = strings.TrimSpace(*req.Email)

		err = validateEmail(user.Email)
		if err != nil {
			return nil, err
		}
	}

	if req.DisplayPicture != nil {
		user.DisplayPicture = strings.TrimSpace(*req.DisplayPicture)

		if len(user.DisplayPicture) > MaxDisplayPictureLength {
			return nil, &ValidationError{Field: "display_picture", Message: "reference is too long"}
		}
	}

	err = svc.userRepo.Update(ctx, user)
	if err != nil {
		var alreadyExistsErr *UserAlreadyExistsError
		if errors.As(err, &alreadyExistsErr) {
			return nil, alreadyExistsErr
		}

		return nil, fmt.Errorf("failed to update user: %w", err)
	}

	svc.rememberUsername(user.Username)

	user.PasswordHash = ""

	return user, nil
}

// validateEmail accepts an empty address, which clears it.
func validateEmail(email string) error {
	if email == "" {
		return nil
	}

	if len(email) > MaxEmailLength {
		return &ValidationError{Field: "email", Message: fmt.Sprintf("must be at most %d characters", MaxEmailLength)}
	}

	at := strings.LastIndex(email, "@")
	if at < 1 || at == len(email)-1 || strings.ContainsAny(email, " \t\r\n") {
		return &ValidationError{Field: "email", Message: "must be an email address"}
	}

	return nil
}

// ChangePassword replaces the password of userID after checking oldPassword.
// A wrong old password answers ErrIncorrectPassword.
func (svc *Service) ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) error {
	user, err := svc.userRepo.Find(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to find user by id: %w", err)
	}

	err = bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(oldPassword))
	if err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrIncorrectPassword
		}

		return fmt.Errorf("failed to compare password hash: %w", err)
	}

	err = validatePassword(newPassword)
	if err != nil {
		return err
	}

	passwordHash, err := HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	err = svc.userRepo.UpdatePasswordHash(ctx, userID, passwordHash)
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}

	return nil
}
