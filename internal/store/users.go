package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/slateci/slate-federation/internal/kvstore"
	"github.com/slateci/slate-federation/internal/models"
)

const (
	tableUsersByToken      = "users_by_token"
	tableUsersByExternalID = "users_by_external_id"
)

func userToItem(u models.User) kvstore.Item {
	return kvstore.Item{
		Table: tableUsers,
		Key:   u.ID,
		Attrs: map[string]string{
			"name":        u.Name,
			"email":       u.Email,
			"phone":       u.Phone,
			"institution": u.Institution,
			"token":       u.Token,
			"externalId":  u.ExternalID,
			"admin":       strconv.FormatBool(u.Admin),
		},
	}
}

func userFromItem(item kvstore.Item) models.User {
	admin, _ := strconv.ParseBool(item.Attrs["admin"])
	return models.User{
		Valid:       true,
		ID:          item.Key,
		Name:        item.Attrs["name"],
		Email:       item.Attrs["email"],
		Phone:       item.Attrs["phone"],
		Institution: item.Attrs["institution"],
		Token:       item.Attrs["token"],
		ExternalID:  item.Attrs["externalId"],
		Admin:       admin,
	}
}

// AddUser stores a new user record, assigning it an ID. The token and
// external ID (if set) are registered as unique secondary indices; ErrConflict
// is returned if either is already in use.
func (s *Store) AddUser(ctx context.Context, u models.User) (models.User, error) {
	u.ID = s.ids.NewUserID()
	if u.Token == "" {
		u.Token = s.ids.NewToken()
	}

	if err := s.backend.PutIfAbsent(ctx, kvstore.Item{Table: tableUsersByToken, Key: u.Token, Attrs: map[string]string{"userId": u.ID}}); err != nil {
		if errors.Is(err, kvstore.ErrConflict) {
			return models.User{}, ErrConflict
		}
		return models.User{}, fmt.Errorf("%w: %w", ErrStoreFailure, err)
	}
	if u.ExternalID != "" {
		if err := s.backend.PutIfAbsent(ctx, kvstore.Item{Table: tableUsersByExternalID, Key: u.ExternalID, Attrs: map[string]string{"userId": u.ID}}); err != nil {
			if errors.Is(err, kvstore.ErrConflict) {
				return models.User{}, ErrConflict
			}
			return models.User{}, fmt.Errorf("%w: %w", ErrStoreFailure, err)
		}
	}
	if err := s.backend.Put(ctx, userToItem(u)); err != nil {
		return models.User{}, fmt.Errorf("%w: %w", ErrStoreFailure, err)
	}

	s.usersByID.Set(u.ID, u)
	s.usersByToken.Set(u.Token, u.ID)
	if u.ExternalID != "" {
		s.usersByExternalID.Set(u.ExternalID, u.ID)
	}
	return u, nil
}

// GetUser returns the user record for id, or a zero-value (Valid=false)
// user if no such record exists.
func (s *Store) GetUser(ctx context.Context, id string) (models.User, error) {
	if u, ok := s.usersByID.Get(id); ok {
		return u, nil
	}
	item, err := s.backend.Get(ctx, tableUsers, id)
	if errors.Is(err, kvstore.ErrNotFound) {
		return models.User{}, nil
	}
	if err != nil {
		return models.User{}, fmt.Errorf("%w: %w", ErrStoreFailure, err)
	}
	u := userFromItem(item)
	s.usersByID.Set(id, u)
	return u, nil
}

// FindUserByToken resolves an opaque bearer token to its owning user.
// Returns a zero-value user (Valid=false) if the token is unrecognized.
func (s *Store) FindUserByToken(ctx context.Context, token string) (models.User, error) {
	if userID, ok := s.usersByToken.Get(token); ok {
		return s.GetUser(ctx, userID)
	}
	item, err := s.backend.Get(ctx, tableUsersByToken, token)
	if errors.Is(err, kvstore.ErrNotFound) {
		return models.User{}, nil
	}
	if err != nil {
		return models.User{}, fmt.Errorf("%w: %w", ErrStoreFailure, err)
	}
	userID := item.Attrs["userId"]
	s.usersByToken.Set(token, userID)
	return s.GetUser(ctx, userID)
}

// FindUserByExternalID resolves a federated identity provider's subject
// identifier to its linked user, if any.
func (s *Store) FindUserByExternalID(ctx context.Context, externalID string) (models.User, error) {
	if userID, ok := s.usersByExternalID.Get(externalID); ok {
		return s.GetUser(ctx, userID)
	}
	item, err := s.backend.Get(ctx, tableUsersByExternalID, externalID)
	if errors.Is(err, kvstore.ErrNotFound) {
		return models.User{}, nil
	}
	if err != nil {
		return models.User{}, fmt.Errorf("%w: %w", ErrStoreFailure, err)
	}
	userID := item.Attrs["userId"]
	s.usersByExternalID.Set(externalID, userID)
	return s.GetUser(ctx, userID)
}

// UpdateUser writes a changed user record and invalidates its cache entry.
// Token and external ID are treated as immutable by this call; changing
// them requires removing and re-adding the user.
func (s *Store) UpdateUser(ctx context.Context, u models.User) error {
	if err := s.backend.Put(ctx, userToItem(u)); err != nil {
		return fmt.Errorf("%w: %w", ErrStoreFailure, err)
	}
	s.usersByID.Invalidate(u.ID)
	return nil
}

// RemoveUser deletes a user record and its secondary indices, invalidating
// its access token immediately.
func (s *Store) RemoveUser(ctx context.Context, id string) error {
	u, err := s.GetUser(ctx, id)
	if err != nil {
		return err
	}
	if err := s.backend.Delete(ctx, tableUsers, id); err != nil {
		return fmt.Errorf("%w: %w", ErrStoreFailure, err)
	}
	if u.Valid {
		_ = s.backend.Delete(ctx, tableUsersByToken, u.Token)
		if u.ExternalID != "" {
			_ = s.backend.Delete(ctx, tableUsersByExternalID, u.ExternalID)
		}
		s.usersByToken.Invalidate(u.Token)
		if u.ExternalID != "" {
			s.usersByExternalID.Invalidate(u.ExternalID)
		}
	}
	s.usersByID.Invalidate(id)
	return nil
}

// ListUsers returns every user's summary view (id, name, email).
func (s *Store) ListUsers(ctx context.Context) ([]models.UserSummary, error) {
	items, err := s.backend.Scan(ctx, tableUsers)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStoreFailure, err)
	}
	summaries := make([]models.UserSummary, 0, len(items))
	for _, item := range items {
		summaries = append(summaries, userFromItem(item).Summary())
	}
	return summaries, nil
}
