package roster

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
)

// ErrNotFound indicates no roster row matched the lookup.
var ErrNotFound = errors.New("roster: player not found")

// ErrUnnamed indicates a roster row exists but its player_name is empty, a
// data-integrity state treated as not-found so a half-seeded record never
// reaches the session flow. It matches ErrNotFound under errors.Is.
var ErrUnnamed = fmt.Errorf("%w: empty player name", ErrNotFound)

// ServiceConfig describes the dependencies required by the roster service.
type ServiceConfig struct {
	Database *gorm.DB
	Clock    func() time.Time
}

// Service owns every read and write against the staff_members table. Player
// name lookups are case-insensitive throughout to tolerate client-side casing
// drift; Discord id lookups are exact.
type Service struct {
	db  *gorm.DB
	now func() time.Time
}

// NewService constructs the roster service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Database == nil {
		return nil, fmt.Errorf("roster: database connection required")
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	return &Service{db: cfg.Database, now: clock}, nil
}

// FindByDiscordID returns the roster row keyed by the provider-issued id.
func (s *Service) FindByDiscordID(ctx context.Context, discordID string) (StaffMember, error) {
	var member StaffMember
	err := s.db.WithContext(ctx).
		Where("discord_id = ?", discordID).
		First(&member).
		Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return StaffMember{}, ErrNotFound
	}
	if err != nil {
		return StaffMember{}, err
	}
	if strings.TrimSpace(member.PlayerName) == "" {
		return StaffMember{}, ErrUnnamed
	}
	return member, nil
}

// FindByPlayerName returns the roster row whose player name matches ignoring case.
func (s *Service) FindByPlayerName(ctx context.Context, playerName string) (StaffMember, error) {
	var member StaffMember
	err := s.db.WithContext(ctx).
		Where("LOWER(player_name) = LOWER(?)", playerName).
		First(&member).
		Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return StaffMember{}, ErrNotFound
	}
	if err != nil {
		return StaffMember{}, err
	}
	return member, nil
}

// ListMembers returns every roster row, most recently verified first.
func (s *Service) ListMembers(ctx context.Context) ([]StaffMember, error) {
	var members []StaffMember
	err := s.db.WithContext(ctx).
		Order("verified_timestamp DESC").
		Find(&members).
		Error
	if err != nil {
		return nil, err
	}
	return members, nil
}

// RecordLogin refreshes the identity-cache fields after a verified login and
// returns the verification timestamp it stamped. The caller must not issue a
// session token when this write fails.
func (s *Service) RecordLogin(ctx context.Context, discordID string, profile Profile) (time.Time, error) {
	now := s.now().UTC()
	result := s.db.WithContext(ctx).
		Model(&StaffMember{}).
		Where("discord_id = ?", discordID).
		Updates(map[string]interface{}{
			"discord_name":       profile.DiscordName,
			"discord_avatar":     profile.AvatarURL,
			"ip_address":         profile.IPAddress,
			"verified_timestamp": now,
			"updated_at":         now,
		})
	if result.Error != nil {
		return time.Time{}, result.Error
	}
	if result.RowsAffected == 0 {
		return time.Time{}, ErrNotFound
	}
	return now, nil
}

// SyncPreJoin mirrors the current online flag into pre_join and reports both.
// This is the implicit presence write performed on every poll: a player who is
// online and actively polling is considered ready to join.
func (s *Service) SyncPreJoin(ctx context.Context, playerName string) (PresenceStatus, error) {
	var member StaffMember
	err := s.db.WithContext(ctx).
		Where("LOWER(player_name) = LOWER(?)", playerName).
		First(&member).
		Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return PresenceStatus{}, ErrNotFound
	}
	if err != nil {
		return PresenceStatus{}, err
	}

	result := s.db.WithContext(ctx).
		Model(&StaffMember{}).
		Where("LOWER(player_name) = LOWER(?)", playerName).
		Updates(map[string]interface{}{
			"pre_join":   member.Online,
			"updated_at": s.now().UTC(),
		})
	if result.Error != nil {
		return PresenceStatus{}, result.Error
	}
	if result.RowsAffected == 0 {
		return PresenceStatus{}, ErrNotFound
	}
	return PresenceStatus{Online: member.Online, PreJoin: member.Online}, nil
}

// SetPreJoin persists an explicit pre-join request. The stored value is clamped
// to the online flag read in the same operation: pre_join can never be left
// true for a player who is offline.
func (s *Service) SetPreJoin(ctx context.Context, playerName string, desired bool) (bool, error) {
	var member StaffMember
	err := s.db.WithContext(ctx).
		Where("LOWER(player_name) = LOWER(?)", playerName).
		First(&member).
		Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, ErrNotFound
	}
	if err != nil {
		return false, err
	}

	effective := desired && member.Online
	result := s.db.WithContext(ctx).
		Model(&StaffMember{}).
		Where("LOWER(player_name) = LOWER(?)", playerName).
		Updates(map[string]interface{}{
			"pre_join":   effective,
			"updated_at": s.now().UTC(),
		})
	if result.Error != nil {
		return false, result.Error
	}
	if result.RowsAffected == 0 {
		return false, ErrNotFound
	}
	return effective, nil
}

// SetOffline clears both presence flags for a logout by player name.
func (s *Service) SetOffline(ctx context.Context, playerName string) error {
	result := s.db.WithContext(ctx).
		Model(&StaffMember{}).
		Where("LOWER(player_name) = LOWER(?)", playerName).
		Updates(map[string]interface{}{
			"online":     false,
			"pre_join":   false,
			"updated_at": s.now().UTC(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ForceOfflineByDiscordID clears both presence flags keyed by Discord id. The
// bearer token the player may still hold is not revoked; only the flags reset.
func (s *Service) ForceOfflineByDiscordID(ctx context.Context, discordID string) error {
	result := s.db.WithContext(ctx).
		Model(&StaffMember{}).
		Where("discord_id = ?", discordID).
		Updates(map[string]interface{}{
			"online":     false,
			"pre_join":   false,
			"updated_at": s.now().UTC(),
		})
	return result.Error
}
