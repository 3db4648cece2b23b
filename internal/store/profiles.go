package store

import (
	"context"
	"fmt"
	"slices"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

func (s *GormStore) GetProfile(ctx context.Context, id string) (*Profile, error) {
	db, cancel := s.op(ctx)
	defer cancel()

	var p Profile
	if err := db.Where("id = ?", id).Take(&p).Error; err != nil {
		return nil, classify(err)
	}
	if p.LikedArtifactIDs == nil {
		p.LikedArtifactIDs = datatypes.JSONSlice[string]{}
	}
	return &p, nil
}

func (s *GormStore) UpsertProfile(ctx context.Context, id string, fields ProfileFields) error {
	db, cancel := s.op(ctx)
	defer cancel()

	p := NewProfile(id, s.now())
	fields.applyTo(&p)
	res := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoNothing: true,
	}).Create(&p)
	if res.Error != nil {
		return classify(res.Error)
	}
	if res.RowsAffected == 1 || fields.IsEmpty() {
		return nil
	}
	return classify(db.Model(&Profile{}).Where("id = ?", id).Updates(fields.columns()).Error)
}

// counterExpr floors profile counters at zero. Artifact likesCount is never
// clamped so that a drift stays visible.
func counterExpr(collection Collection, column string, delta int64) clause.Expr {
	if collection == CollectionUsers && delta < 0 {
		return gorm.Expr("CASE WHEN "+column+" + ? < 0 THEN 0 ELSE "+column+" + ? END", delta, delta)
	}
	return gorm.Expr(column+" + ?", delta)
}

func modelFor(collection Collection) interface{} {
	if collection == CollectionGallery {
		return &Artifact{}
	}
	return &Profile{}
}

func (s *GormStore) IncrementCounter(ctx context.Context, collection Collection, docID string, field Field, delta int64) error {
	column, err := counterColumn(collection, field)
	if err != nil {
		return err
	}
	db, cancel := s.op(ctx)
	defer cancel()

	res := db.Model(modelFor(collection)).Where("id = ?", docID).
		UpdateColumn(column, counterExpr(collection, column, delta))
	if res.Error != nil {
		return classify(res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: %s/%s", ErrNotFound, collection, docID)
	}
	return nil
}

func (s *GormStore) CountWhereGreaterThan(ctx context.Context, collection Collection, field Field, value int64) (int64, error) {
	column, err := counterColumn(collection, field)
	if err != nil {
		return 0, err
	}
	db, cancel := s.op(ctx)
	defer cancel()

	var n int64
	if err := db.Model(modelFor(collection)).Where(column+" > ?", value).Count(&n).Error; err != nil {
		return 0, classify(err)
	}
	return n, nil
}

func (s *GormStore) QueryTopNByField(ctx context.Context, field Field, n, offset int) ([]Profile, error) {
	column, err := counterColumn(CollectionUsers, field)
	if err != nil {
		return nil, err
	}
	if n <= 0 {
		return []Profile{}, nil
	}
	db, cancel := s.op(ctx)
	defer cancel()

	var out []Profile
	err = db.Order(column + " DESC").Order("id ASC").Limit(n).Offset(offset).Find(&out).Error
	if err != nil {
		return nil, classify(err)
	}
	return out, nil
}

func (s *GormStore) BatchUpdate(ctx context.Context, updates []ProfileUpdate) error {
	if len(updates) == 0 {
		return nil
	}
	db, cancel := s.op(ctx)
	defer cancel()

	err := db.Transaction(func(tx *gorm.DB) error {
		for _, u := range updates {
			if u.Fields.IsEmpty() {
				continue
			}
			if err := tx.Model(&Profile{}).Where("id = ?", u.ID).Updates(u.Fields.columns()).Error; err != nil {
				return err
			}
		}
		return nil
	})
	return classify(err)
}

func (s *GormStore) ToggleLikedArtifact(ctx context.Context, profileID, artifactID string, coalesceOwnerCounters bool) (bool, error) {
	db, cancel := s.op(ctx)
	defer cancel()

	var liked bool
	err := db.Transaction(func(tx *gorm.DB) error {
		var p Profile
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", profileID).Take(&p).Error
		if err != nil {
			return err
		}

		ids := slices.Clone([]string(p.LikedArtifactIDs))
		if idx := slices.Index(ids, artifactID); idx >= 0 {
			ids = slices.Delete(ids, idx, idx+1)
			liked = false
		} else {
			ids = append(ids, artifactID)
			liked = true
		}
		if ids == nil {
			ids = []string{}
		}

		updates := map[string]interface{}{
			"liked_artifact_ids": datatypes.JSONSlice[string](ids),
		}
		if coalesceOwnerCounters {
			var delta int64 = 1
			if !liked {
				delta = -1
			}
			updates["total_likes"] = counterExpr(CollectionUsers, "total_likes", delta)
			updates["periodic_likes"] = counterExpr(CollectionUsers, "periodic_likes", delta)
		}
		return tx.Model(&Profile{}).Where("id = ?", profileID).Updates(updates).Error
	})
	if err != nil {
		return false, classify(err)
	}
	return liked, nil
}

func (s *GormStore) ListProfileIDs(ctx context.Context, afterID string, limit int) ([]string, error) {
	db, cancel := s.op(ctx)
	defer cancel()

	var ids []string
	q := db.Model(&Profile{}).Order("id ASC").Limit(limit)
	if afterID != "" {
		q = q.Where("id > ?", afterID)
	}
	if err := q.Pluck("id", &ids).Error; err != nil {
		return nil, classify(err)
	}
	return ids, nil
}
