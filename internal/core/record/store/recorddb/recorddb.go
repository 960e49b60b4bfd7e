package recorddb

import (
	"context"

	"github.com/gowvp/hawk/internal/core/record"
	"github.com/ixugo/goddd/pkg/orm"
	"gorm.io/gorm"
)

var _ record.Storer = DB{}

// DB 录制领域存储实现
type DB struct {
	db *gorm.DB
}

func NewDB(db *gorm.DB) DB {
	return DB{db: db}
}

// AutoMigrate 按需自动建表
func (d DB) AutoMigrate(ok bool) DB {
	if ok {
		if err := d.db.AutoMigrate(&record.Segment{}); err != nil {
			panic(err)
		}
	}
	return d
}

func (d DB) Segment() record.SegmentStorer {
	return SegmentDB{db: d.db}
}

type SegmentDB struct {
	db *gorm.DB
}

func (s SegmentDB) applyOptions(db *gorm.DB, opts ...orm.QueryOption) *gorm.DB {
	for _, opt := range opts {
		db = opt(db)
	}
	return db
}

func (s SegmentDB) Find(ctx context.Context, out *[]*record.Segment, pager orm.Pager, opts ...orm.QueryOption) (int64, error) {
	db := s.applyOptions(s.db.WithContext(ctx).Model(&record.Segment{}), opts...)

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return 0, err
	}
	if pager != nil {
		db = db.Offset(pager.Offset()).Limit(pager.Limit())
	}
	return total, db.Find(out).Error
}

func (s SegmentDB) Get(ctx context.Context, out *record.Segment, opts ...orm.QueryOption) error {
	db := s.applyOptions(s.db.WithContext(ctx), opts...)
	return db.First(out).Error
}

func (s SegmentDB) Add(ctx context.Context, in *record.Segment) error {
	return s.db.WithContext(ctx).Create(in).Error
}

func (s SegmentDB) Del(ctx context.Context, out *record.Segment, opts ...orm.QueryOption) error {
	db := s.applyOptions(s.db.WithContext(ctx), opts...)
	if err := db.First(out).Error; err != nil {
		return err
	}
	return s.db.WithContext(ctx).Delete(out).Error
}

func (s SegmentDB) Count(ctx context.Context, opts ...orm.QueryOption) (int64, error) {
	db := s.applyOptions(s.db.WithContext(ctx).Model(&record.Segment{}), opts...)
	var total int64
	return total, db.Count(&total).Error
}

// Session 在事务中执行一组操作
func (s SegmentDB) Session(ctx context.Context, fns ...func(*gorm.DB) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, fn := range fns {
			if err := fn(tx); err != nil {
				return err
			}
		}
		return nil
	})
}
