package models

// DefaultVersionTable - таблица версий по умолчанию.
const DefaultVersionTable = "migrate_version"

// VersionRow - строка таблицы версий: какой репозиторий управляет базой и на какой она версии.
// Имя таблицы задается в конфигурации репозитория, поэтому запросы идут через db.Table(name).
type VersionRow struct {
	RepositoryID   string `gorm:"column:repository_id;primaryKey"`
	RepositoryPath string `gorm:"column:repository_path"`
	Version        int64  `gorm:"column:version"`
}

func (v VersionRow) TableName() string {
	return DefaultVersionTable
}
