package repository

import (
	"context"

	"grading-coordinator/internal/domain/model"
)

// ReferenceKeyRepository stores teacher mark schemes. Jobs reference them by
// ID; the coordinator only reads them for bounds validation and answer keys.
type ReferenceKeyRepository interface {
	Save(ctx context.Context, tx Tx, ref *model.ReferenceKey) error
	FindByID(ctx context.Context, refID string) (*model.ReferenceKey, error)
	ListByTeacher(ctx context.Context, teacherID string) ([]*model.ReferenceKey, error)
}
