package recorddb

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gowvp/hawk/internal/core/record"
	"github.com/ixugo/goddd/pkg/orm"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func generateMockDB() (*gorm.DB, sqlmock.Sqlmock, error) {
	conn, mock, err := sqlmock.New()
	if err != nil {
		return nil, nil, err
	}
	db, err := gorm.Open(postgres.New(postgres.Config{
		Conn:                 conn,
		PreferSimpleProtocol: true,
	}), &gorm.Config{})
	return db, mock, err
}

func TestSegmentGet(t *testing.T) {
	db, mock, err := generateMockDB()
	if err != nil {
		t.Fatal(err)
	}
	segDB := NewDB(db).Segment()

	mock.ExpectQuery(`SELECT \* FROM "segments" WHERE camera=\$1 (.+) LIMIT \$2`).
		WithArgs("livingroom", 1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "camera"}).AddRow(1, "livingroom"))

	var out record.Segment
	if err := segDB.Get(context.Background(), &out, orm.Where("camera=?", "livingroom")); err != nil {
		t.Fatal(err)
	}
	if out.Camera != "livingroom" {
		t.Errorf("camera = %s, want livingroom", out.Camera)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal("ExpectationsWereMet err:", err)
	}
}

func TestSegmentCount(t *testing.T) {
	db, mock, err := generateMockDB()
	if err != nil {
		t.Fatal(err)
	}
	segDB := NewDB(db).Segment()

	mock.ExpectQuery(`SELECT count\(\*\) FROM "segments"`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))

	total, err := segDB.Count(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if total != 3 {
		t.Errorf("total = %d, want 3", total)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal("ExpectationsWereMet err:", err)
	}
}
