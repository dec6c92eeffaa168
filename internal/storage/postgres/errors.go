package postgres

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/gravadigital/community-portal/internal/domain/common"
)

// translate maps gorm errors onto the domain taxonomy. notFound replaces
// gorm.ErrRecordNotFound; other constraint errors keep their driver cause.
func translate(err error, notFound error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	case errors.Is(err, gorm.ErrRecordNotFound):
		return notFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%w: %w", common.ErrConflict, err)
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		return fmt.Errorf("%w: referenced record does not exist: %w", common.ErrInvalid, err)
	case errors.Is(err, gorm.ErrCheckConstraintViolated):
		return fmt.Errorf("%w: %w", common.ErrInvalid, err)
	default:
		return err
	}
}

// affected turns a zero-row update or delete into notFound
func affected(result *gorm.DB, notFound error) error {
	if result.Error != nil {
		return translate(result.Error, notFound)
	}
	if result.RowsAffected == 0 {
		return notFound
	}
	return nil
}
