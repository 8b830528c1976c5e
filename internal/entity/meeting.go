// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package internal_entity

import (
	"time"

	"gorm.io/gorm"
)

// Meeting is one recorded session. EndedAt stays NULL while the session is
// active; at most one row may be in that state at any time (enforced by
// the session controller's state machine, not by a database constraint).
// Summary stays NULL until the asynchronous summarization lands.
type Meeting struct {
	Id          uint64     `json:"id" gorm:"column:id;primaryKey;autoIncrement"`
	Title       string     `json:"title" gorm:"column:title;type:text;not null"`
	StartedAt   time.Time  `json:"startedAt" gorm:"column:started_at;not null"`
	EndedAt     *time.Time `json:"endedAt" gorm:"column:ended_at"`
	Summary     *string    `json:"summary" gorm:"column:summary;type:text"`
	CreatedDate time.Time  `json:"createdDate" gorm:"column:created_at;not null;<-:create"`
}

func (Meeting) TableName() string {
	return "meetings"
}

func (m *Meeting) BeforeCreate(tx *gorm.DB) (err error) {
	now := time.Now()
	if m.StartedAt.IsZero() {
		m.StartedAt = now
	}
	if m.CreatedDate.IsZero() {
		m.CreatedDate = now
	}
	return nil
}

// IsActive returns true while the meeting has not been ended.
func (m *Meeting) IsActive() bool {
	return m.EndedAt == nil
}

// Duration returns the recorded span. Undefined (zero, false) while active.
func (m *Meeting) Duration() (time.Duration, bool) {
	if m.EndedAt == nil {
		return 0, false
	}
	return m.EndedAt.Sub(m.StartedAt), true
}

// TranscriptSegment is one final recognition result placed on the session
// timeline. Rows are immutable once created. TimestampMs is elapsed
// milliseconds since session start; insertion order is the arrival order
// of final events from the provider, which may differ from timestamp order
// when the provider reorders overlapping utterances.
type TranscriptSegment struct {
	Id          uint64    `json:"id" gorm:"column:id;primaryKey;autoIncrement"`
	MeetingId   uint64    `json:"meetingId" gorm:"column:meeting_id;not null;index:idx_segments_meeting"`
	Speaker     string    `json:"speaker" gorm:"column:speaker;type:text;not null;default:Unknown"`
	Text        string    `json:"text" gorm:"column:text;type:text;not null"`
	TimestampMs int64     `json:"timestampMs" gorm:"column:timestamp_ms;not null;index:idx_segments_timestamp"`
	IsUser      bool      `json:"isUser" gorm:"column:is_user;not null;default:false"`
	Confidence  float64   `json:"confidence" gorm:"column:confidence;not null;default:1.0"`
	CreatedDate time.Time `json:"createdDate" gorm:"column:created_at;not null;<-:create"`
}

func (TranscriptSegment) TableName() string {
	return "transcript_segments"
}

func (s *TranscriptSegment) BeforeCreate(tx *gorm.DB) (err error) {
	if s.CreatedDate.IsZero() {
		s.CreatedDate = time.Now()
	}
	return nil
}

// Setting is one key/value application setting (API keys, provider
// selection). Values are plain text; callers own any interpretation.
type Setting struct {
	Key   string `json:"key" gorm:"column:key;primaryKey;type:text"`
	Value string `json:"value" gorm:"column:value;type:text"`
}

func (Setting) TableName() string {
	return "settings"
}
