package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/sakif/flashdeck/internal/apperror"
	"github.com/sakif/flashdeck/internal/auth"
	"github.com/sakif/flashdeck/internal/model"
	"github.com/sakif/flashdeck/internal/policy"
	"github.com/sakif/flashdeck/internal/repository"
)

// MaxTZUTCDelta bounds the timezone offset a client may report, in seconds.
const MaxTZUTCDelta = 18 * 60 * 60

// MaxUsernameLength bounds usernames.
const MaxUsernameLength = 64

// UserQuery holds the raw search parameters for user listings.
type UserQuery struct {
	Query  string
	Limit  string
	Offset string
}

// UserPatch is a partial user update; nil fields are left alone.
// Changing the password requires CurrentPassword.
type UserPatch struct {
	Username        *string `json:"username"`
	Password        *string `json:"password"`
	CurrentPassword *string `json:"current_password"`
	Admin           *bool   `json:"admin"`
}

// UserService manages accounts and issues tokens on login.
type UserService struct {
	store     repository.Store
	passwords *auth.PasswordService
	tokens    *auth.TokenService
	logger    *slog.Logger
}

func NewUserService(store repository.Store, passwords *auth.PasswordService, tokens *auth.TokenService, logger *slog.Logger) *UserService {
	return &UserService{
		store:     store,
		passwords: passwords,
		tokens:    tokens,
		logger:    logger,
	}
}

// Register creates a regular account.
func (s *UserService) Register(ctx context.Context, username, password string) (*model.User, error) {
	return s.Create(ctx, username, password, false)
}

// Create adds an account. Unlike Register it can make admins; it backs the
// "user create" command.
func (s *UserService) Create(ctx context.Context, username, password string, admin bool) (*model.User, error) {
	username, err := validUsername(username)
	if err != nil {
		return nil, err
	}
	hash, err := s.hashPassword(password)
	if err != nil {
		return nil, err
	}

	user := &model.User{Username: username, PasswordHash: hash, Admin: admin}
	if err := s.store.Users().Create(ctx, user); err != nil {
		return nil, fmt.Errorf("creating user: %w", err)
	}

	s.logger.Info("user created",
		slog.String("id", user.ID),
		slog.String("username", user.Username),
		slog.Bool("admin", user.Admin),
	)
	return user, nil
}

// Authenticate checks the credentials, records the client's timezone offset
// on the account and returns a signed token for it.
func (s *UserService) Authenticate(ctx context.Context, username, password string, tzutcdelta *int) (string, *model.User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return "", nil, apperror.ValidationFailed("username", "username is required")
	}
	if password == "" {
		return "", nil, apperror.ValidationFailed("password", "password is required")
	}
	if tzutcdelta == nil {
		return "", nil, apperror.ValidationFailed("tzutcdelta", "tzutcdelta is required")
	}
	if *tzutcdelta < -MaxTZUTCDelta || *tzutcdelta > MaxTZUTCDelta {
		return "", nil, apperror.ValidationFailed("tzutcdelta",
			fmt.Sprintf("tzutcdelta must be between %d and %d seconds", -MaxTZUTCDelta, MaxTZUTCDelta))
	}

	var user *model.User
	err := s.store.WithTx(ctx, func(tx repository.Tx) error {
		u, err := tx.Users().GetByUsername(ctx, username)
		if err != nil {
			return err
		}
		if err := s.passwords.Verify(u.PasswordHash, password); err != nil {
			if errors.Is(err, auth.ErrPasswordMismatch) {
				return apperror.Unauthenticated("wrong password")
			}
			return err
		}
		u.TZUTCDelta = *tzutcdelta
		if err := tx.Users().Update(ctx, u); err != nil {
			return err
		}
		user = u
		return nil
	})
	if err != nil {
		s.logger.Warn("authentication failed",
			slog.String("username", username),
			slog.String("error", err.Error()),
		)
		return "", nil, fmt.Errorf("authenticating %q: %w", username, err)
	}

	token, err := s.tokens.Generate(user.ID)
	if err != nil {
		return "", nil, fmt.Errorf("issuing token: %w", err)
	}

	s.logger.Info("user authenticated", slog.String("id", user.ID))
	return token, user, nil
}

// Get returns one user. Profiles are public.
func (s *UserService) Get(ctx context.Context, id string) (*model.User, error) {
	return s.store.Users().GetByID(ctx, id)
}

// Search lists users whose username contains q.Query.
func (s *UserService) Search(ctx context.Context, q UserQuery) ([]model.User, error) {
	page, err := parsePage(q.Limit, q.Offset)
	if err != nil {
		return nil, err
	}
	users, err := s.store.Users().Search(ctx, repository.UserFilter{Query: q.Query, Page: page})
	if err != nil {
		return nil, fmt.Errorf("searching users: %w", err)
	}
	return users, nil
}

// Update changes an account. Users may edit themselves; admins may edit
// anyone. Only admins may grant or revoke admin.
func (s *UserService) Update(ctx context.Context, requester *model.User, id string, patch UserPatch) (*model.User, error) {
	var updated *model.User

	err := s.store.WithTx(ctx, func(tx repository.Tx) error {
		user, err := tx.Users().GetByID(ctx, id)
		if err != nil {
			return err
		}
		if !policy.CanAdminUser(requester, user) {
			return apperror.Forbidden("you do not have the right to change this user")
		}

		if patch.Username != nil {
			if user.Username, err = validUsername(*patch.Username); err != nil {
				return err
			}
		}
		if patch.Admin != nil && *patch.Admin != user.Admin {
			if !requester.Admin {
				return apperror.Forbidden("only admins can change admin rights")
			}
			user.Admin = *patch.Admin
		}
		if patch.Password != nil {
			if patch.CurrentPassword == nil || *patch.CurrentPassword == "" {
				return apperror.ValidationFailed("current_password", "current_password is required to change the password")
			}
			if err := s.passwords.Verify(user.PasswordHash, *patch.CurrentPassword); err != nil {
				if errors.Is(err, auth.ErrPasswordMismatch) {
					return apperror.Unauthenticated("wrong current password")
				}
				return err
			}
			if user.PasswordHash, err = s.hashPassword(*patch.Password); err != nil {
				return err
			}
		}

		if err := tx.Users().Update(ctx, user); err != nil {
			return err
		}
		updated = user
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("updating user %s: %w", id, err)
	}

	s.logger.Info("user updated", slog.String("id", updated.ID))
	return updated, nil
}

// Delete removes an account with all its decks and cards and returns it as
// it was.
func (s *UserService) Delete(ctx context.Context, requester *model.User, id string) (*model.User, error) {
	var deleted *model.User

	err := s.store.WithTx(ctx, func(tx repository.Tx) error {
		user, err := tx.Users().GetByID(ctx, id)
		if err != nil {
			return err
		}
		if !policy.CanAdminUser(requester, user) {
			return apperror.Forbidden("you do not have the right to delete this user")
		}
		if err := tx.Users().Delete(ctx, user.ID); err != nil {
			return err
		}
		deleted = user
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("deleting user %s: %w", id, err)
	}

	s.logger.Info("user deleted", slog.String("id", id))
	return deleted, nil
}

func (s *UserService) hashPassword(password string) (string, error) {
	if password == "" {
		return "", apperror.ValidationFailed("password", "password is required")
	}
	hash, err := s.passwords.Hash(password)
	if err != nil {
		if errors.Is(err, auth.ErrPasswordTooLong) {
			return "", apperror.ValidationFailed("password", err.Error())
		}
		return "", fmt.Errorf("hashing password: %w", err)
	}
	return hash, nil
}

func validUsername(username string) (string, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return "", apperror.ValidationFailed("username", "username is required")
	}
	if utf8.RuneCountInString(username) > MaxUsernameLength {
		return "", apperror.ValidationFailed("username",
			fmt.Sprintf("username must be %d characters or less", MaxUsernameLength))
	}
	return username, nil
}
