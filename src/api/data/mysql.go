package data

import (
	"log"

	"github.com/the80percentbill/pledge-api/src/api/types"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

func MustMySQL(dsn string) *gorm.DB {
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatalf("mysql: %v", err)
	}
	if err := db.AutoMigrate(&types.Signature{}); err != nil {
		log.Fatalf("mysql migrate: %v", err)
	}
	return db
}
