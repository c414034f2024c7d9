// Package poll defines the poll data model and the on-disk poll library.
package poll

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// MaxOptions is the platform's hard ceiling on poll choices.
const MaxOptions = 4

// ErrInvalidPollData marks a definition that fails validation. It is
// always raised before any network call is made on its behalf.
var ErrInvalidPollData = errors.New("invalid poll data")

// Definition is one poll as read from the polls file. Definitions are
// value types and never mutated after load; formatting helpers return new
// strings.
type Definition struct {
	Title   string   `json:"title"`
	Options []string `json:"options"`

	// DurationHours is the voting window. Zero means "use the configured
	// default". Fractional hours are allowed.
	DurationHours float64 `json:"duration_hours,omitempty"`

	// ImagePath, when set, turns the poll into a reply thread: an image
	// post carrying the title, answered by the poll post.
	ImagePath string `json:"image,omitempty"`

	// Hashtags are appended to the title at formatting time.
	Hashtags []string `json:"hashtags,omitempty"`

	// Schedule is consumed by the schedule command: either an RFC3339
	// timestamp (one-shot) or a cron spec (recurring). Empty definitions
	// are only posted on demand.
	Schedule string `json:"schedule,omitempty"`
}

// Validate checks the invariants the composer relies on: a non-empty
// title and between 1 and MaxOptions options.
func (d Definition) Validate() error {
	if strings.TrimSpace(d.Title) == "" {
		return fmt.Errorf("%w: title is empty", ErrInvalidPollData)
	}
	if len(d.Options) == 0 {
		return fmt.Errorf("%w: no options", ErrInvalidPollData)
	}
	if len(d.Options) > MaxOptions {
		return fmt.Errorf("%w: %d options, platform maximum is %d", ErrInvalidPollData, len(d.Options), MaxOptions)
	}
	for i, opt := range d.Options {
		if strings.TrimSpace(opt) == "" {
			return fmt.Errorf("%w: option %d is empty", ErrInvalidPollData, i)
		}
	}
	if d.DurationHours < 0 {
		return fmt.Errorf("%w: negative duration", ErrInvalidPollData)
	}
	return nil
}

// FormattedTitle returns the title with hashtags appended. Tags gain a
// leading '#' unless they already carry one. The receiver is not touched.
func (d Definition) FormattedTitle() string {
	if len(d.Hashtags) == 0 {
		return d.Title
	}
	var b strings.Builder
	b.WriteString(d.Title)
	for _, tag := range d.Hashtags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		b.WriteByte(' ')
		if !strings.HasPrefix(tag, "#") {
			b.WriteByte('#')
		}
		b.WriteString(tag)
	}
	return b.String()
}

// DurationMinutes converts the voting window to the wire unit
// (hours x 60), falling back to defaultHours when the definition has no
// duration of its own.
func (d Definition) DurationMinutes(defaultHours float64) int {
	hours := d.DurationHours
	if hours == 0 {
		hours = defaultHours
	}
	return int(math.Round(hours * 60))
}
