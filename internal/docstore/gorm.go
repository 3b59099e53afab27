package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/oklog/ulid/v2"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// documentRecord is one document in the shared documents table
type documentRecord struct {
	Collection string         `gorm:"primaryKey;size:64"`
	ID         string         `gorm:"primaryKey;size:128"`
	Data       datatypes.JSON `gorm:"not null"`
	UpdatedAt  time.Time
}

func (documentRecord) TableName() string {
	return "documents"
}

var fieldName = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

// GormStore stores documents as JSON rows in a relational database.
// Postgres is the deployment target; SQLite is supported for tests.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore migrates the documents table and returns the store
func NewGormStore(db *gorm.DB) (*GormStore, error) {
	if err := db.AutoMigrate(&documentRecord{}); err != nil {
		return nil, fmt.Errorf("migrate documents table: %w", err)
	}
	return &GormStore{db: db}, nil
}

func (s *GormStore) Get(ctx context.Context, collection, id string) (*Snapshot, error) {
	return s.get(s.db.WithContext(ctx), collection, id)
}

func (s *GormStore) Set(ctx context.Context, collection, id string, data map[string]interface{}) error {
	return s.set(s.db.WithContext(ctx), collection, id, data)
}

func (s *GormStore) Add(ctx context.Context, collection string, data map[string]interface{}) (string, error) {
	id := ulid.Make().String()
	raw, err := json.Marshal(data)
	if err != nil {
		return "", err
	}
	rec := documentRecord{Collection: collection, ID: id, Data: datatypes.JSON(raw)}
	if err := s.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return "", err
	}
	return id, nil
}

func (s *GormStore) Update(ctx context.Context, collection, id string, fields map[string]interface{}) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return s.update(tx, collection, id, fields)
	})
}

func (s *GormStore) Delete(ctx context.Context, collection, id string) error {
	return s.delete(s.db.WithContext(ctx), collection, id)
}

func (s *GormStore) Query(ctx context.Context, q Query) ([]*Snapshot, error) {
	tx := s.db.WithContext(ctx).Where("collection = ?", q.Collection)
	for _, f := range q.Filters {
		if !fieldName.MatchString(f.Field) {
			return nil, fmt.Errorf("invalid field name %q", f.Field)
		}
		tx = tx.Where(datatypes.JSONQuery("data").Equals(f.Value, f.Field))
	}
	if q.OrderBy != "" {
		if !fieldName.MatchString(q.OrderBy) {
			return nil, fmt.Errorf("invalid field name %q", q.OrderBy)
		}
		order := s.jsonField(q.OrderBy)
		if q.Direction == Desc {
			order += " DESC"
		}
		tx = tx.Order(order)
	}
	tx = tx.Order("id")
	if q.Limit > 0 {
		tx = tx.Limit(q.Limit)
	}

	var recs []documentRecord
	if err := tx.Find(&recs).Error; err != nil {
		return nil, err
	}
	out := make([]*Snapshot, 0, len(recs))
	for _, rec := range recs {
		snap, err := rec.snapshot()
		if err != nil {
			return nil, err
		}
		out = append(out, snap)
	}
	return out, nil
}

func (s *GormStore) Batch() Batch {
	return newOpBatch(s.commit)
}

func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *GormStore) commit(ctx context.Context, ops []Op) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, op := range ops {
			var opErr error
			switch op.Kind {
			case OpSet:
				opErr = s.set(tx, op.Collection, op.ID, op.Data)
			case OpUpdate:
				opErr = s.update(tx, op.Collection, op.ID, op.Data)
			case OpDelete:
				opErr = s.delete(tx, op.Collection, op.ID)
			}
			if opErr != nil {
				return fmt.Errorf("%s/%s: %w", op.Collection, op.ID, opErr)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("commit batch: %w", err)
	}
	return nil
}

func (s *GormStore) get(tx *gorm.DB, collection, id string) (*Snapshot, error) {
	var rec documentRecord
	err := tx.Where("collection = ? AND id = ?", collection, id).First(&rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return rec.snapshot()
}

func (s *GormStore) set(tx *gorm.DB, collection, id string, data map[string]interface{}) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}
	rec := documentRecord{Collection: collection, ID: id, Data: datatypes.JSON(raw)}
	return tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(&rec).Error
}

func (s *GormStore) update(tx *gorm.DB, collection, id string, fields map[string]interface{}) error {
	snap, err := s.get(tx, collection, id)
	if err != nil {
		return err
	}
	for k, v := range fields {
		snap.Data[k] = v
	}
	raw, err := json.Marshal(snap.Data)
	if err != nil {
		return err
	}
	return tx.Model(&documentRecord{}).
		Where("collection = ? AND id = ?", collection, id).
		Updates(map[string]interface{}{"data": datatypes.JSON(raw), "updated_at": time.Now()}).Error
}

func (s *GormStore) delete(tx *gorm.DB, collection, id string) error {
	return tx.Where("collection = ? AND id = ?", collection, id).Delete(&documentRecord{}).Error
}

// jsonField renders the SQL expression extracting a top-level field. The
// name has already been checked against fieldName.
func (s *GormStore) jsonField(field string) string {
	if s.db.Dialector.Name() == "postgres" {
		return fmt.Sprintf("data::jsonb ->> '%s'", field)
	}
	return fmt.Sprintf("json_extract(data, '$.%s')", field)
}

func (rec documentRecord) snapshot() (*Snapshot, error) {
	data := make(map[string]interface{})
	if err := json.Unmarshal(rec.Data, &data); err != nil {
		return nil, fmt.Errorf("decode %s/%s: %w", rec.Collection, rec.ID, err)
	}
	return &Snapshot{ID: rec.ID, Data: data}, nil
}
