package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/example/storefront/pkg/auth"
	"github.com/example/storefront/pkg/events"
	"github.com/example/storefront/pkg/models"
	"github.com/example/storefront/pkg/repository"
	"go.uber.org/zap"
)

const maxUsernameLength = 150

type Accounts struct {
	store  repository.Store
	tokens *auth.TokenManager
	events events.Publisher
	logger *zap.Logger
}

type RegisterInput struct {
	Username    string
	Email       string
	Password    string
	DisplayName string
}

// Register creates the user together with its profile and cart.
func (a *Accounts) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	username := strings.TrimSpace(in.Username)
	if username == "" || in.Password == "" || len(username) > maxUsernameLength {
		return nil, ErrInvalidAccount
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	user := &models.User{Username: username, Email: strings.TrimSpace(in.Email), PasswordHash: hash}
	err = a.store.Transaction(ctx, func(tx repository.Store) error {
		if _, err := tx.GetUserByUsername(ctx, username); err == nil {
			return ErrUsernameTaken
		} else if !errors.Is(err, repository.ErrNotFound) {
			return err
		}

		if err := tx.CreateUser(ctx, user); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return ErrUsernameTaken
			}
			return fmt.Errorf("failed to create user: %w", err)
		}
		profile := &models.Profile{UserID: user.ID, DisplayName: in.DisplayName, Image: models.DefaultProfileImage}
		if err := tx.CreateProfile(ctx, profile); err != nil {
			return fmt.Errorf("failed to create profile: %w", err)
		}
		if err := tx.CreateCart(ctx, &models.Cart{CustomerID: user.ID}); err != nil {
			return fmt.Errorf("failed to create cart: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	a.logger.Info("User registered", zap.Uint("user_id", user.ID), zap.String("username", user.Username))
	a.events.Publish(&events.UserRegistered{UserID: user.ID, Username: user.Username})
	return user, nil
}

// Authenticate checks the credentials and returns a signed session token.
func (a *Accounts) Authenticate(ctx context.Context, username, password string) (*models.User, string, error) {
	user, err := a.store.GetUserByUsername(ctx, strings.TrimSpace(username))
	if errors.Is(err, repository.ErrNotFound) {
		return nil, "", ErrInvalidCredentials
	}
	if err != nil {
		return nil, "", fmt.Errorf("failed to load user: %w", err)
	}
	if !auth.CheckPassword(user.PasswordHash, password) {
		return nil, "", ErrInvalidCredentials
	}

	token, err := a.tokens.Issue(auth.Principal{UserID: user.ID, Username: user.Username})
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}
