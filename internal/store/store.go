// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package internal_store

import (
	"context"
	"fmt"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gorm_logger "gorm.io/gorm/logger"

	internal_entity "github.com/rapidaai/meetscribe/internal/entity"
	"github.com/rapidaai/meetscribe/pkg/commons"
)

// Store is the durable gateway for meetings, transcript segments and
// settings. Write failures are propagated to callers; the transcript
// processor in particular must surface persistence errors rather than
// swallow them.
type Store interface {
	// CreateMeeting inserts a new meeting with the given title, started now.
	// Returns the generated meeting id.
	CreateMeeting(ctx context.Context, title string) (uint64, error)

	// EndMeeting stamps ended_at on an active meeting. Ending an already
	// ended meeting overwrites the stamp; callers guard against that via
	// the session state machine.
	EndMeeting(ctx context.Context, meetingID uint64) error

	// SetSummary writes the generated summary onto a meeting.
	SetSummary(ctx context.Context, meetingID uint64, summary string) error

	// GetMeeting fetches one meeting by id.
	GetMeeting(ctx context.Context, meetingID uint64) (*internal_entity.Meeting, error)

	// ListMeetings returns meetings newest-first.
	ListMeetings(ctx context.Context, limit, offset int) ([]internal_entity.Meeting, error)

	// DeleteMeeting removes a meeting and cascades its transcript segments.
	DeleteMeeting(ctx context.Context, meetingID uint64) error

	// SearchMeetings matches the query against meeting titles, summaries
	// and transcript text.
	SearchMeetings(ctx context.Context, query string) ([]internal_entity.Meeting, error)

	// InsertSegment persists one final transcript segment and returns its id.
	// The referenced meeting must exist at persist time.
	InsertSegment(ctx context.Context, segment *internal_entity.TranscriptSegment) (uint64, error)

	// GetTranscript returns all segments of a meeting ordered by
	// timestamp_ms ascending.
	GetTranscript(ctx context.Context, meetingID uint64) ([]internal_entity.TranscriptSegment, error)

	// GetSetting returns the value for a key, or "" when absent.
	GetSetting(ctx context.Context, key string) (string, error)

	// SetSetting upserts one key/value setting.
	SetSetting(ctx context.Context, key, value string) error

	// GetSettings returns every stored setting as a map.
	GetSettings(ctx context.Context) (map[string]string, error)

	// Close releases the underlying database handle.
	Close() error
}

type sqliteStore struct {
	db     *gorm.DB
	logger commons.Logger
}

// NewSqliteStore opens (or creates) the sqlite database at path, enables
// WAL mode and migrates the schema.
func NewSqliteStore(logger commons.Logger, path string) (Store, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gorm_logger.Default.LogMode(gorm_logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database %s: %w", path, err)
	}

	// WAL keeps concurrent reads (shell queries) from blocking segment writes.
	if err := db.Exec("PRAGMA journal_mode = WAL").Error; err != nil {
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	if err := db.AutoMigrate(
		&internal_entity.Meeting{},
		&internal_entity.TranscriptSegment{},
		&internal_entity.Setting{},
	); err != nil {
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}

	logger.Infof("sqlite store ready: path=%s", path)
	return &sqliteStore{db: db, logger: logger}, nil
}

func (s *sqliteStore) CreateMeeting(ctx context.Context, title string) (uint64, error) {
	meeting := &internal_entity.Meeting{
		Title:     title,
		StartedAt: time.Now(),
	}
	if err := s.db.WithContext(ctx).Create(meeting).Error; err != nil {
		return 0, fmt.Errorf("failed to create meeting %q: %w", title, err)
	}

	s.logger.Infof("created meeting: id=%d, title=%q", meeting.Id, title)
	return meeting.Id, nil
}

func (s *sqliteStore) EndMeeting(ctx context.Context, meetingID uint64) error {
	result := s.db.WithContext(ctx).
		Model(&internal_entity.Meeting{}).
		Where("id = ?", meetingID).
		Update("ended_at", time.Now())

	if result.Error != nil {
		return fmt.Errorf("failed to end meeting %d: %w", meetingID, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("meeting %d not found", meetingID)
	}

	s.logger.Debugf("ended meeting: id=%d", meetingID)
	return nil
}

func (s *sqliteStore) SetSummary(ctx context.Context, meetingID uint64, summary string) error {
	result := s.db.WithContext(ctx).
		Model(&internal_entity.Meeting{}).
		Where("id = ?", meetingID).
		Update("summary", summary)

	if result.Error != nil {
		return fmt.Errorf("failed to set summary on meeting %d: %w", meetingID, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("meeting %d not found", meetingID)
	}

	s.logger.Debugf("stored summary: meeting=%d, length=%d", meetingID, len(summary))
	return nil
}

func (s *sqliteStore) GetMeeting(ctx context.Context, meetingID uint64) (*internal_entity.Meeting, error) {
	var meeting internal_entity.Meeting
	if err := s.db.WithContext(ctx).First(&meeting, meetingID).Error; err != nil {
		return nil, fmt.Errorf("meeting not found: %d: %w", meetingID, err)
	}
	return &meeting, nil
}

func (s *sqliteStore) ListMeetings(ctx context.Context, limit, offset int) ([]internal_entity.Meeting, error) {
	if limit <= 0 {
		limit = 50
	}
	var meetings []internal_entity.Meeting
	err := s.db.WithContext(ctx).
		Order("started_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&meetings).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list meetings: %w", err)
	}
	return meetings, nil
}

// DeleteMeeting removes the meeting row and its segments in one
// transaction. Cascade is done explicitly because sqlite only honours
// FK cascades when foreign_keys is switched on per connection.
func (s *sqliteStore) DeleteMeeting(ctx context.Context, meetingID uint64) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("meeting_id = ?", meetingID).
			Delete(&internal_entity.TranscriptSegment{}).Error; err != nil {
			return err
		}
		return tx.Delete(&internal_entity.Meeting{}, meetingID).Error
	})
	if err != nil {
		return fmt.Errorf("failed to delete meeting %d: %w", meetingID, err)
	}

	s.logger.Infof("deleted meeting: id=%d", meetingID)
	return nil
}

func (s *sqliteStore) SearchMeetings(ctx context.Context, query string) ([]internal_entity.Meeting, error) {
	term := "%" + query + "%"
	var meetings []internal_entity.Meeting
	err := s.db.WithContext(ctx).
		Distinct("meetings.*").
		Joins("LEFT JOIN transcript_segments ON meetings.id = transcript_segments.meeting_id").
		Where("meetings.title LIKE ? OR meetings.summary LIKE ? OR transcript_segments.text LIKE ?",
			term, term, term).
		Order("meetings.started_at DESC").
		Limit(50).
		Find(&meetings).Error
	if err != nil {
		return nil, fmt.Errorf("failed to search meetings: %w", err)
	}
	return meetings, nil
}

func (s *sqliteStore) InsertSegment(ctx context.Context, segment *internal_entity.TranscriptSegment) (uint64, error) {
	if err := s.db.WithContext(ctx).Create(segment).Error; err != nil {
		return 0, fmt.Errorf("failed to insert segment for meeting %d: %w", segment.MeetingId, err)
	}

	s.logger.Debugf("inserted segment: id=%d, meeting=%d, speaker=%s, ts=%dms",
		segment.Id, segment.MeetingId, segment.Speaker, segment.TimestampMs)
	return segment.Id, nil
}

func (s *sqliteStore) GetTranscript(ctx context.Context, meetingID uint64) ([]internal_entity.TranscriptSegment, error) {
	var segments []internal_entity.TranscriptSegment
	err := s.db.WithContext(ctx).
		Where("meeting_id = ?", meetingID).
		Order("timestamp_ms ASC").
		Find(&segments).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load transcript for meeting %d: %w", meetingID, err)
	}
	return segments, nil
}

func (s *sqliteStore) GetSetting(ctx context.Context, key string) (string, error) {
	var setting internal_entity.Setting
	err := s.db.WithContext(ctx).Where("key = ?", key).First(&setting).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return "", nil
		}
		return "", fmt.Errorf("failed to read setting %q: %w", key, err)
	}
	return setting.Value, nil
}

func (s *sqliteStore) SetSetting(ctx context.Context, key, value string) error {
	setting := internal_entity.Setting{Key: key, Value: value}
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value"}),
		}).
		Create(&setting).Error
	if err != nil {
		return fmt.Errorf("failed to store setting %q: %w", key, err)
	}
	return nil
}

func (s *sqliteStore) GetSettings(ctx context.Context) (map[string]string, error) {
	var rows []internal_entity.Setting
	if err := s.db.WithContext(ctx).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}

	settings := make(map[string]string, len(rows))
	for _, row := range rows {
		settings[row.Key] = row.Value
	}
	return settings, nil
}

func (s *sqliteStore) Close() error {
	db, err := s.db.DB()
	if err != nil {
		return err
	}
	return db.Close()
}
