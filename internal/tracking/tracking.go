// Package tracking читает и пишет таблицу версий.
package tracking

import (
	"context"
	"errors"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"github.com/Maksumys/migrate/changeset"
	"github.com/Maksumys/migrate/internal/models"
)

var (
	ErrNotFound  = errors.New("version row not found")
	ErrDuplicate = errors.New("version row already exists")
)

const (
	pgUniqueViolation    = "23505"
	mysqlDuplicateEntry  = 1062
	repositoryIDLength   = 255
	repositoryIDColumn   = "repository_id"
	versionColumn        = "version"
	repositoryPathColumn = "repository_path"
)

// Table описывает таблицу версий для changeset.Engine.
func Table(name string) *changeset.Table {
	return changeset.NewTable(name,
		changeset.NewColumn(repositoryIDColumn, changeset.String(repositoryIDLength), changeset.PrimaryKey()),
		changeset.NewColumn(repositoryPathColumn, changeset.Text()),
		changeset.NewColumn(versionColumn, changeset.Integer()),
	)
}

func HasTable(ctx context.Context, db *gorm.DB, table string) bool {
	return db.WithContext(ctx).Migrator().HasTable(table)
}

// CreateTable создает таблицу версий через движок, чтобы DDL соответствовал диалекту.
func CreateTable(ctx context.Context, e *changeset.Engine, table string) error {
	return e.CreateTable(ctx, Table(table))
}

func DropTable(ctx context.Context, e *changeset.Engine, table string) error {
	return e.DropTable(ctx, table)
}

// Insert добавляет строку репозитория. Если строка уже есть, возвращает ErrDuplicate.
func Insert(ctx context.Context, db *gorm.DB, table string, row models.VersionRow) error {
	err := db.WithContext(ctx).Table(table).Create(&row).Error
	if err == nil {
		return nil
	}
	if isDuplicate(err) {
		return ErrDuplicate
	}
	// драйвер не сообщил код ошибки, проверяем наличие строки
	if _, getErr := Get(ctx, db, table, row.RepositoryID); getErr == nil {
		return ErrDuplicate
	}
	return err
}

func isDuplicate(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return true
	}
	var myErr *mysql.MySQLError
	return errors.As(err, &myErr) && myErr.Number == mysqlDuplicateEntry
}

func Get(ctx context.Context, db *gorm.DB, table, repositoryID string) (models.VersionRow, error) {
	var row models.VersionRow
	res := db.WithContext(ctx).Table(table).Where(repositoryIDColumn+" = ?", repositoryID).Limit(1).Find(&row)
	if res.Error != nil {
		return models.VersionRow{}, res.Error
	}
	if res.RowsAffected == 0 {
		return models.VersionRow{}, ErrNotFound
	}
	return row, nil
}

func Count(ctx context.Context, db *gorm.DB, table string) (int64, error) {
	var n int64
	err := db.WithContext(ctx).Table(table).Count(&n).Error
	return n, err
}

// UpdateVersion переводит строку с версии from на to. Возвращает число измененных строк:
// ноль значит, что версия в базе уже не from.
func UpdateVersion(ctx context.Context, db *gorm.DB, table, repositoryID string, from, to int64) (int64, error) {
	res := db.WithContext(ctx).Table(table).
		Where(repositoryIDColumn+" = ? AND "+versionColumn+" = ?", repositoryID, from).
		Update(versionColumn, to)
	return res.RowsAffected, res.Error
}

func Delete(ctx context.Context, db *gorm.DB, table, repositoryID string) (int64, error) {
	res := db.WithContext(ctx).Table(table).Where(repositoryIDColumn+" = ?", repositoryID).Delete(&models.VersionRow{})
	return res.RowsAffected, res.Error
}
