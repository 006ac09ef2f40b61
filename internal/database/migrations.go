package database

import (
	"errors"
	"time"

	"github.com/toptier-net/staff-verify/internal/roster"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	migrationCreatePresenceIndexes = "2026-08-12_create_presence_indexes"
	migrationRepairStrandedPreJoin = "2026-08-12_repair_stranded_pre_join"
)

type migrationRecord struct {
	Name             string `gorm:"column:name;primaryKey;size:190;not null"`
	AppliedAtSeconds int64  `gorm:"column:applied_at_s;not null"`
}

func (migrationRecord) TableName() string {
	return "db_migrations"
}

type migrationDefinition struct {
	name  string
	apply func(*gorm.DB) error
}

func applyMigrations(db *gorm.DB, logger *zap.Logger) error {
	migrations := []migrationDefinition{
		{name: migrationCreatePresenceIndexes, apply: createPresenceIndexes},
		{name: migrationRepairStrandedPreJoin, apply: repairStrandedPreJoin},
	}

	for _, migration := range migrations {
		var record migrationRecord
		err := db.Where("name = ?", migration.name).Take(&record).Error
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if err := migration.apply(db); err != nil {
			return err
		}
		appliedAt := time.Now().UTC().Unix()
		if err := db.Create(&migrationRecord{Name: migration.name, AppliedAtSeconds: appliedAt}).Error; err != nil {
			return err
		}
		if logger != nil {
			logger.Info("database migration applied", zap.String("migration", migration.name))
		}
	}
	return nil
}

func createPresenceIndexes(db *gorm.DB) error {
	statements := []string{
		"CREATE INDEX IF NOT EXISTS idx_staff_members_online ON staff_members(online);",
		"CREATE INDEX IF NOT EXISTS idx_staff_members_pre_join ON staff_members(pre_join);",
		"CREATE INDEX IF NOT EXISTS idx_staff_members_verified_timestamp ON staff_members(verified_timestamp);",
	}
	for _, statement := range statements {
		if err := db.Exec(statement).Error; err != nil {
			return err
		}
	}
	return nil
}

// repairStrandedPreJoin clears pre_join rows left true for offline players by
// earlier builds that wrote the flag independently of the online read.
func repairStrandedPreJoin(db *gorm.DB) error {
	return db.Model(&roster.StaffMember{}).
		Where("pre_join = ? AND online = ?", true, false).
		Update("pre_join", false).Error
}
