package segments

import (
	"strconv"
	"strings"
	"time"
	"unicode"
)

// Segment is a named, prioritized query whose result defines a set of members.
type Segment struct {
	ID         uint   `gorm:"primaryKey" json:"id"`
	Name       string `gorm:"size:255;not null" json:"name"`
	Slug       string `gorm:"size:255;uniqueIndex" json:"slug"`
	Priority   int    `gorm:"not null;default:0;index" json:"priority"`
	Definition string `gorm:"type:text;not null" json:"definition"`

	// MembersCount is the cardinality recorded by the last successful refresh.
	MembersCount   int64      `gorm:"not null;default:0" json:"members_count"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
	RecalculatedAt *time.Time `json:"recalculated_at"`
}

// TableName overrides the table name.
func (Segment) TableName() string {
	return "segments"
}

// Key returns the identifier used for the segment's index keys.
func (s Segment) Key() string {
	return strconv.FormatUint(uint64(s.ID), 10)
}

// Input is the writable part of a Segment.
type Input struct {
	Name       string `json:"name"`
	Slug       string `json:"slug"`
	Priority   int    `json:"priority"`
	Definition string `json:"definition"`
}

// Slugify lowercases name and joins its alphanumeric runs with dashes.
func Slugify(name string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(name) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if dash && b.Len() > 0 {
				b.WriteByte('-')
			}
			b.WriteRune(r)
			dash = false
			continue
		}
		dash = true
	}
	return b.String()
}
