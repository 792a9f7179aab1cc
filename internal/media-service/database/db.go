package database

import (
	"database/sql"

	sqliteGo "github.com/mattn/go-sqlite3"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const CustomDriverName = "sqlite3_media"

const DefaultFile = "recordings.db"

func init() {
	sql.Register(CustomDriverName,
		&sqliteGo.SQLiteDriver{
			ConnectHook: func(conn *sqliteGo.SQLiteConn) error {
				if _, err := conn.Exec("PRAGMA busy_timeout = 5000", nil); err != nil {
					return err
				}
				_, err := conn.Exec("PRAGMA foreign_keys = ON", nil)
				return err
			},
		},
	)
}

func NewDb(file string) (*gorm.DB, error) {

	conn, err := sql.Open(CustomDriverName, file)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(sqlite.Dialector{
		DriverName: CustomDriverName,
		DSN:        file,
		Conn:       conn,
	}, &gorm.Config{
		Logger:                   logger.Default.LogMode(logger.Warn),
		SkipDefaultTransaction:   true,
		DisableNestedTransaction: true,
	})
	if err != nil {
		return nil, err
	}
	return db, db.AutoMigrate(&Recording{})
}
