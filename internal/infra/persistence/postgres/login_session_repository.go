package postgres

import (
	"context"
	"time"

	"authgate/internal/domain/entity"
	domainerrors "authgate/internal/domain/errors"
	"authgate/internal/domain/repository"
	"authgate/internal/errors"
	"authgate/internal/infra/persistence/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// loginSessionRepository stores sessions in 'login_sessions'.
// Every update is guarded by "status <> Deleted" so deleted rows never change again.
type loginSessionRepository struct {
	db *gorm.DB
}

// NewLoginSessionRepository creates a repository.LoginSessionRepository.
func NewLoginSessionRepository(db *gorm.DB) repository.LoginSessionRepository {
	return &loginSessionRepository{db: db}
}

func (repo *loginSessionRepository) Create(ctx context.Context, session *entity.LoginSession) error {
	sessionM := fromSessionDomain(session)
	if err := repo.db.WithContext(ctx).Create(sessionM).Error; err != nil {
		return domainerrors.NewDatabaseExecuteError(err, "failed to create login session")
	}
	session.CreatedAt = sessionM.CreatedAt

	return nil
}

func (repo *loginSessionRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.LoginSession, error) {
	return repo.findOne(ctx, repo.db.Where("id = ?", id))
}

func (repo *loginSessionRepository) FindByToken(ctx context.Context, token string) (*entity.LoginSession, error) {
	return repo.findOne(ctx, repo.db.Where("token = ?", token))
}

func (repo *loginSessionRepository) FindByRefreshToken(ctx context.Context, refreshToken string) (*entity.LoginSession, error) {
	return repo.findOne(ctx, repo.db.Where("refresh_token = ?", refreshToken))
}

func (repo *loginSessionRepository) FindLatestByUserID(ctx context.Context, userID uuid.UUID) (*entity.LoginSession, error) {
	return repo.findOne(ctx, repo.db.
		Where("user_id = ? AND status <> ?", userID, int(entity.StatusDeleted)).
		Order("last_updated_at DESC"))
}

func (repo *loginSessionRepository) findOne(ctx context.Context, query *gorm.DB) (*entity.LoginSession, error) {
	var sessionM model.LoginSessionModel
	if err := query.WithContext(ctx).First(&sessionM).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrLoginSessionNotFound
		}

		return nil, domainerrors.NewDatabaseExecuteError(err, "failed to find login session")
	}

	return toSessionDomain(&sessionM), nil
}

func (repo *loginSessionRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status entity.Status) (bool, error) {
	return repo.update(ctx, repo.live().Where("id = ?", id), map[string]any{"status": int(status)})
}

func (repo *loginSessionRepository) CompareAndSetStatus(ctx context.Context, id uuid.UUID, expected, next entity.Status) (bool, error) {
	if expected == entity.StatusDeleted {
		return false, nil
	}

	return repo.update(ctx, repo.db.Where("id = ? AND status = ?", id, int(expected)), map[string]any{"status": int(next)})
}

func (repo *loginSessionRepository) UpdateToken(ctx context.Context, id uuid.UUID, token string, updatedAt time.Time) (bool, error) {
	return repo.update(ctx, repo.live().Where("id = ?", id), map[string]any{
		"token":           token,
		"last_updated_at": updatedAt,
	})
}

func (repo *loginSessionRepository) DeleteByUserID(ctx context.Context, userID uuid.UUID) (int64, error) {
	result := repo.live().WithContext(ctx).
		Model(&model.LoginSessionModel{}).
		Where("user_id = ?", userID).
		Update("status", int(entity.StatusDeleted))
	if result.Error != nil {
		return 0, domainerrors.NewDatabaseExecuteError(result.Error, "failed to delete login sessions")
	}

	return result.RowsAffected, nil
}

func (repo *loginSessionRepository) live() *gorm.DB {
	return repo.db.Where("status <> ?", int(entity.StatusDeleted))
}

func (repo *loginSessionRepository) update(ctx context.Context, query *gorm.DB, values map[string]any) (bool, error) {
	result := query.WithContext(ctx).Model(&model.LoginSessionModel{}).Updates(values)
	if result.Error != nil {
		return false, domainerrors.NewDatabaseExecuteError(result.Error, "failed to update login session")
	}

	return result.RowsAffected > 0, nil
}

func toSessionDomain(m *model.LoginSessionModel) *entity.LoginSession {
	return &entity.LoginSession{
		ID:            m.ID,
		UserID:        m.UserID,
		IPAddr:        m.IPAddr,
		Mac:           m.Mac,
		Token:         m.Token,
		RefreshToken:  m.RefreshToken,
		Status:        entity.Status(m.Status),
		CreatedAt:     m.CreatedAt,
		LastUpdatedAt: m.LastUpdatedAt,
	}
}

func fromSessionDomain(s *entity.LoginSession) *model.LoginSessionModel {
	return &model.LoginSessionModel{
		ID:            s.ID,
		UserID:        s.UserID,
		IPAddr:        s.IPAddr,
		Mac:           s.Mac,
		Token:         s.Token,
		RefreshToken:  s.RefreshToken,
		Status:        int(s.Status),
		CreatedAt:     s.CreatedAt,
		LastUpdatedAt: s.LastUpdatedAt,
	}
}
