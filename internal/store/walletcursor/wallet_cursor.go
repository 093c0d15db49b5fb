package walletcursor

import (
	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/dwarvesf/paywatch/internal/model"
)

type store struct {
}

func New() IStore {
	return &store{}
}

func (s *store) Next(tx *gorm.DB, name string) (uint32, error) {
	if name == "" {
		return 0, errors.New("wallet cursor name is required")
	}

	err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoNothing: true,
	}).Create(&model.WalletCursor{Name: name}).Error
	if err != nil {
		return 0, errors.Wrapf(err, "failed to ensure wallet cursor %s", name)
	}

	cursor := model.WalletCursor{Name: name}
	result := tx.Model(&cursor).
		Clauses(clause.Returning{Columns: []clause.Column{{Name: "next_index"}}}).
		Update("next_index", gorm.Expr("next_index + 1"))
	if result.Error != nil {
		return 0, errors.Wrapf(result.Error, "failed to advance wallet cursor %s", name)
	}
	if result.RowsAffected == 0 || cursor.NextIndex == 0 {
		return 0, errors.Errorf("wallet cursor %s was not advanced", name)
	}

	return cursor.NextIndex - 1, nil
}

func (s *store) Peek(tx *gorm.DB, name string) (uint32, error) {
	var cursor model.WalletCursor
	err := tx.Where("name = ?", name).First(&cursor).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, errors.Wrapf(err, "failed to read wallet cursor %s", name)
	}
	return cursor.NextIndex, nil
}
