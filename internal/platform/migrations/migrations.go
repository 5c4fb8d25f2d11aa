package migrations

import (
	"gorm.io/gorm"

	orderpostgres "github.com/Apurer/storefront-orders/internal/domains/orders/adapters/persistence/postgres"
)

// Run applies the schema for the orders bounded context. Adapters never automigrate on their own.
func Run(db *gorm.DB) error {
	if db == nil {
		return nil
	}
	return db.AutoMigrate(orderpostgres.Models()...)
}
