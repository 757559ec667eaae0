package database

import (
	"errors"
	"log"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/driver/postgres"
	gormsqlite "gorm.io/driver/sqlite"
	"gorm.io/gorm"

	_ "modernc.org/sqlite"

	"institut/internal/domain"
)

func Connect(dsn string) (*gorm.DB, error) {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		log.Println("Connecting to PostgreSQL...")
		return gorm.Open(postgres.Open(dsn), &gorm.Config{})
	}

	log.Println("Using SQLite for local development:", dsn)

	return gorm.Open(
		gormsqlite.New(gormsqlite.Config{
			DriverName: "sqlite",
			DSN:        dsn,
		}),
		&gorm.Config{},
	)
}

// Migrate creates the schema and the partial unique indexes that turn
// the losing writer of a race into a constraint violation: the second
// booking of an active slot, a duplicate referral code, and a duplicate
// reminder row.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&domain.User{},
		&domain.Service{},
		&domain.WorkingHours{},
		&domain.BlockedSlot{},
		&domain.Reservation{},
		&domain.GiftCard{},
		&domain.Discount{},
		&domain.LoyaltyProfile{},
		&domain.Referral{},
		&domain.NotificationEvent{},
	); err != nil {
		return err
	}

	// Partial index syntax is shared by PostgreSQL and SQLite.
	if err := db.Exec(`
CREATE UNIQUE INDEX IF NOT EXISTS idx_active_slot
ON reservations (date, time)
WHERE status IN ('pending', 'confirmed')
`).Error; err != nil {
		return err
	}

	// Referral codes are assigned lazily, so profiles start with an empty
	// code. The empty value must stay duplicatable.
	if err := db.Exec(`
CREATE UNIQUE INDEX IF NOT EXISTS idx_referral_code
ON loyalty_profiles (referral_code)
WHERE referral_code <> ''
`).Error; err != nil {
		return err
	}

	return db.Exec(`
CREATE UNIQUE INDEX IF NOT EXISTS idx_reminder_once
ON notification_events (reservation_id, date)
WHERE type = 'reservation.reminder'
`).Error
}

// IsUniqueViolation reports whether err is a unique-constraint failure,
// on either the PostgreSQL or the SQLite backend. The losing writer of a
// slot or code race sees exactly this error.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return true
	}

	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate") || strings.Contains(msg, "unique constraint") || strings.Contains(msg, "unique failed")
}
