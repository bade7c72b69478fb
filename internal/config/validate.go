package config

import (
	"fmt"
	"strings"
	"time"
)

// Validate performs business-rule validation on the loaded configuration.
// It must be called after loading; Load calls it automatically.
func (c *Config) Validate() error {
	if err := c.Drive.validate(); err != nil {
		return fmt.Errorf("drive: %w", err)
	}
	if err := c.Calendar.validate(); err != nil {
		return fmt.Errorf("calendar: %w", err)
	}
	if c.Tasks.MaxConcurrent < 1 {
		return fmt.Errorf("tasks: max_concurrent must be >= 1 (got %d)", c.Tasks.MaxConcurrent)
	}
	if err := c.Log.validate(); err != nil {
		return fmt.Errorf("log: %w", err)
	}
	return nil
}

func (d *DriveConfig) validate() error {
	if d.RecordsFolderName == "" {
		return fmt.Errorf("records_folder_name must not be empty")
	}
	if d.LedgerFileName == "" || d.HistoryFileName == "" {
		return fmt.Errorf("ledger_file_name and history_file_name must not be empty")
	}
	if d.LedgerFileName == d.HistoryFileName {
		return fmt.Errorf("ledger_file_name and history_file_name must differ (got %q)", d.LedgerFileName)
	}
	return nil
}

func (c *CalendarConfig) validate() error {
	if c.EventHour < 0 || c.EventHour > 23 {
		return fmt.Errorf("event_hour must be between 0 and 23 (got %d)", c.EventHour)
	}
	if c.EventDuration <= 0 {
		return fmt.Errorf("event_duration must be > 0 (got %v)", c.EventDuration)
	}
	if c.SubjectPrefix == "" {
		return fmt.Errorf("subject_prefix must not be empty")
	}
	if _, err := time.LoadLocation(c.TimeZone); err != nil {
		return fmt.Errorf("time_zone: %w", err)
	}
	return nil
}

func (l *LogConfig) validate() error {
	switch strings.ToLower(l.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("level must be one of debug, info, warn, error (got %q)", l.Level)
	}
	switch strings.ToLower(l.Format) {
	case "json", "text":
	default:
		return fmt.Errorf("format must be json or text (got %q)", l.Format)
	}
	return nil
}

// Location returns the parsed event time zone. Validate must have succeeded.
func (c *CalendarConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.TimeZone)
	if err != nil {
		return time.UTC
	}
	return loc
}
