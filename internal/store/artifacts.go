package store

import (
	"context"
	"fmt"

	"gorm.io/gorm"
)

// DefaultPageSize matches the gallery grid.
const DefaultPageSize = 12

func (s *GormStore) CreateArtifact(ctx context.Context, a *Artifact) error {
	if a.CreatedAt.IsZero() {
		a.CreatedAt = s.now()
	}
	db, cancel := s.op(ctx)
	defer cancel()

	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(a).Error; err != nil {
			return err
		}
		res := tx.Model(&Profile{}).Where("id = ?", a.CreatorID).
			UpdateColumn("total_creations", gorm.Expr("total_creations + ?", 1))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("%w: creator %s", ErrNotFound, a.CreatorID)
		}
		return nil
	})
	return classify(err)
}

func (s *GormStore) GetArtifact(ctx context.Context, id string) (*Artifact, error) {
	db, cancel := s.op(ctx)
	defer cancel()

	var a Artifact
	if err := db.Where("id = ?", id).Take(&a).Error; err != nil {
		return nil, classify(err)
	}
	return &a, nil
}

func (s *GormStore) ListArtifacts(ctx context.Context, q ArtifactQuery) ([]Artifact, error) {
	db, cancel := s.op(ctx)
	defer cancel()

	limit := q.Limit
	if limit <= 0 {
		limit = DefaultPageSize
	}

	tx := db.Model(&Artifact{})
	if q.ViewerID != "" {
		tx = tx.Where("is_private = ? OR creator_id = ?", false, q.ViewerID)
	} else {
		tx = tx.Where("is_private = ?", false)
	}
	if q.CreatorID != "" {
		tx = tx.Where("creator_id = ?", q.CreatorID)
	}
	if q.Style != "" {
		tx = tx.Where("style = ?", q.Style)
	}
	if q.ExcludeID != "" {
		tx = tx.Where("id <> ?", q.ExcludeID)
	}

	switch q.Sort {
	case SortTrending:
		tx = tx.Order("likes_count DESC").Order("created_at DESC")
	default:
		tx = tx.Order("created_at DESC")
	}
	tx = tx.Order("id ASC")

	var out []Artifact
	if err := tx.Limit(limit).Offset(q.Offset).Find(&out).Error; err != nil {
		return nil, classify(err)
	}
	return out, nil
}

func (s *GormStore) SetArtifactPrivacy(ctx context.Context, id string, private bool) error {
	db, cancel := s.op(ctx)
	defer cancel()

	res := db.Model(&Artifact{}).Where("id = ?", id).UpdateColumn("is_private", private)
	if res.Error != nil {
		return classify(res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: artifact %s", ErrNotFound, id)
	}
	return nil
}

func (s *GormStore) DeleteArtifact(ctx context.Context, id string) error {
	db, cancel := s.op(ctx)
	defer cancel()

	err := db.Transaction(func(tx *gorm.DB) error {
		var a Artifact
		if err := tx.Where("id = ?", id).Take(&a).Error; err != nil {
			return err
		}
		if err := tx.Delete(&Artifact{}, "id = ?", id).Error; err != nil {
			return err
		}
		return tx.Model(&Profile{}).Where("id = ?", a.CreatorID).
			UpdateColumn("total_creations", counterExpr(CollectionUsers, "total_creations", -1)).Error
	})
	return classify(err)
}

func (s *GormStore) RenameProfile(ctx context.Context, id, name string) error {
	db, cancel := s.op(ctx)
	defer cancel()

	err := db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&Profile{}).Where("id = ?", id).
			Updates(map[string]interface{}{"display_name": name, "updated_at": s.now()})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return tx.Model(&Artifact{}).Where("creator_id = ?", id).UpdateColumn("creator_name", name).Error
	})
	return classify(err)
}
