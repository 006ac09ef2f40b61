package roster

import (
	"time"
)

// StaffMember is one row of the staff roster. Records are seeded out of band;
// the service only ever updates identity-cache fields and presence flags.
type StaffMember struct {
	DiscordID         string    `gorm:"column:discord_id;primaryKey;size:32;not null"`
	PlayerName        string    `gorm:"column:player_name;size:190;uniqueIndex;not null"`
	DiscordName       string    `gorm:"column:discord_name;size:320"`
	DiscordAvatar     string    `gorm:"column:discord_avatar;size:512"`
	IPAddress         string    `gorm:"column:ip_address;size:45"`
	Online            bool      `gorm:"column:online;not null;default:false"`
	PreJoin           bool      `gorm:"column:pre_join;not null;default:false"`
	VerifiedTimestamp time.Time `gorm:"column:verified_timestamp"`
	CreatedAt         time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName exposes the table backing the staff roster.
func (StaffMember) TableName() string {
	return "staff_members"
}

// Profile carries the identity-cache fields refreshed by a completed login.
type Profile struct {
	DiscordName string
	AvatarURL   string
	IPAddress   string
}

// PresenceStatus is the result of a presence synchronization pass.
type PresenceStatus struct {
	Online  bool
	PreJoin bool
}
