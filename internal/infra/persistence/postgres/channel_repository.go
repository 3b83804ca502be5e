package postgres

import (
	"context"

	"authgate/internal/domain/entity"
	domainerrors "authgate/internal/domain/errors"
	"authgate/internal/domain/repository"
	"authgate/internal/errors"
	"authgate/internal/infra/persistence/model"

	"gorm.io/gorm"
)

type channelRepository struct {
	db *gorm.DB
}

// NewChannelRepository creates a repository.ChannelRepository.
func NewChannelRepository(db *gorm.DB) repository.ChannelRepository {
	return &channelRepository{db: db}
}

func (repo *channelRepository) FindByCode(ctx context.Context, code int) (*entity.Channel, error) {
	var channelM model.ChannelModel
	if err := repo.db.WithContext(ctx).Where("code = ?", code).First(&channelM).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrChannelNotFound
		}

		return nil, domainerrors.NewDatabaseExecuteError(err, "failed to find channel")
	}

	return &entity.Channel{
		Code:       channelM.Code,
		Name:       channelM.Name,
		Abbr:       channelM.Abbr,
		VerifyType: entity.VerifyType(channelM.VerifyType),
		Status:     entity.Status(channelM.Status),
		Secret:     channelM.Secret,
	}, nil
}

func (repo *channelRepository) FindBackendIDs(ctx context.Context, code int) ([]string, error) {
	var ids []string
	err := repo.db.WithContext(ctx).
		Model(&model.ChannelAuthBackendModel{}).
		Where("channel_code = ?", code).
		Order("priority ASC").
		Pluck("backend_id", &ids).Error
	if err != nil {
		return nil, domainerrors.NewDatabaseExecuteError(err, "failed to load channel backends")
	}

	return ids, nil
}
