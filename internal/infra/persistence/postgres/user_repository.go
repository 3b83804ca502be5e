// Package postgres contains the concrete implementation of the persistence layer using GORM and PostgreSQL.
package postgres

import (
	"context"

	"authgate/internal/domain/entity"
	domainerrors "authgate/internal/domain/errors"
	"authgate/internal/domain/repository"
	"authgate/internal/errors"
	"authgate/internal/infra/persistence/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// userRepository implements the repository.UserRepository interface using GORM.
type userRepository struct {
	db *gorm.DB
}

// NewUserRepository is the constructor for userRepository.
func NewUserRepository(db *gorm.DB) repository.UserRepository {
	return &userRepository{db: db}
}

// FindByID retrieves a single user by their unique ID.
func (repo *userRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.User, error) {
	return repo.findOne(ctx, "id = ?", id)
}

// FindByAccount retrieves a single user by their login account.
func (repo *userRepository) FindByAccount(ctx context.Context, account string) (*entity.User, error) {
	return repo.findOne(ctx, "account = ?", account)
}

// FindByExternalID retrieves the user linked to a third-party identity.
func (repo *userRepository) FindByExternalID(ctx context.Context, provider, subject string) (*entity.User, error) {
	return repo.findOne(ctx, "provider = ? AND subject = ?", provider, subject)
}

func (repo *userRepository) findOne(ctx context.Context, query string, args ...any) (*entity.User, error) {
	var userM model.UserModel
	if err := repo.db.WithContext(ctx).Where(query, args...).First(&userM).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrUserNotFound
		}

		return nil, domainerrors.NewDatabaseExecuteError(err, "failed to find user")
	}

	return toUserDomain(&userM), nil
}

// Create persists a new user and copies the generated ID and timestamps back.
func (repo *userRepository) Create(ctx context.Context, user *entity.User) error {
	userM := fromUserDomain(user)

	if err := repo.db.WithContext(ctx).Create(userM).Error; err != nil {
		if isUniqueConstraintViolation(err) {
			return domainerrors.ErrFailure.WithDetails("account already exists")
		}
		if isNotNullConstraintViolation(err) {
			return domainerrors.ErrValidationFailed.WithDetails("missing required user information")
		}

		return domainerrors.NewDatabaseExecuteError(err, "failed to create user")
	}

	user.ID = userM.ID
	user.CreatedAt = userM.CreatedAt
	user.UpdatedAt = userM.UpdatedAt

	return nil
}

// UpdatePassword replaces the stored password hash.
func (repo *userRepository) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	result := repo.db.WithContext(ctx).
		Model(&model.UserModel{}).
		Where("id = ?", id).
		Update("password_hash", passwordHash)
	if result.Error != nil {
		return domainerrors.NewDatabaseExecuteError(result.Error, "failed to update password")
	}
	if result.RowsAffected == 0 {
		return repository.ErrUserNotFound
	}

	return nil
}

func toUserDomain(m *model.UserModel) *entity.User {
	user := &entity.User{
		ID:           m.ID,
		Account:      m.Account,
		Name:         m.Name,
		Avatar:       m.Avatar,
		Mobile:       m.Mobile,
		Email:        m.Email,
		PasswordHash: m.PasswordHash,
		Status:       entity.Status(m.Status),
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
	if m.Provider != nil && m.Subject != nil {
		user.External = &entity.ExternalIdentity{Provider: *m.Provider, Subject: *m.Subject}
	}

	return user
}

func fromUserDomain(u *entity.User) *model.UserModel {
	userM := &model.UserModel{
		ID:           u.ID,
		Account:      u.Account,
		Name:         u.Name,
		Avatar:       u.Avatar,
		Mobile:       u.Mobile,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		Status:       int(u.Status),
	}
	if u.External != nil {
		userM.Provider = &u.External.Provider
		userM.Subject = &u.External.Subject
	}

	return userM
}
