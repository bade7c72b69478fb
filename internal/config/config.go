package config

import "time"

// Config is the root application configuration.
type Config struct {
	Drive    DriveConfig    `yaml:"drive"`
	Calendar CalendarConfig `yaml:"calendar"`
	Cache    CacheConfig    `yaml:"cache"`
	Tasks    TasksConfig    `yaml:"tasks"`
	Log      LogConfig      `yaml:"log"`
}

// DriveConfig holds remote store settings. The record file names are part of
// the on-Drive data layout; changing them orphans the existing ledger.
type DriveConfig struct {
	CredentialsFile   string `yaml:"credentials_file"    env:"DRIVE_CREDENTIALS_FILE"   env-default:"credentials.json"`
	TokenFile         string `yaml:"token_file"          env:"DRIVE_TOKEN_FILE"         env-default:"token.json"`
	RootFolderID      string `yaml:"root_folder_id"      env:"DRIVE_ROOT_FOLDER_ID"     env-required:"true"`
	RecordsFolderName string `yaml:"records_folder_name" env:"DRIVE_RECORDS_FOLDER"     env-default:"records"`
	LedgerFileName    string `yaml:"ledger_file_name"    env:"DRIVE_LEDGER_FILE"        env-default:"review_log.csv"`
	HistoryFileName   string `yaml:"history_file_name"   env:"DRIVE_HISTORY_FILE"       env-default:"study_log.csv"`
}

// CalendarConfig holds reminder event settings.
type CalendarConfig struct {
	CalendarID    string        `yaml:"calendar_id"    env:"CALENDAR_ID"             env-required:"true"`
	TimeZone      string        `yaml:"time_zone"      env:"CALENDAR_TIME_ZONE"      env-default:"Europe/Rome"`
	EventHour     int           `yaml:"event_hour"     env:"CALENDAR_EVENT_HOUR"     env-default:"9"`
	EventDuration time.Duration `yaml:"event_duration" env:"CALENDAR_EVENT_DURATION" env-default:"30m"`
	SubjectPrefix string        `yaml:"subject_prefix" env:"CALENDAR_SUBJECT_PREFIX" env-default:"Review: "`
}

// CacheConfig holds local file cache settings. The cache is derived state:
// it is safe to delete the directory and let a sync rebuild it.
type CacheConfig struct {
	Dir string `yaml:"dir" env:"CACHE_DIR" env-default:"local_records"`
}

// TasksConfig holds background worker pool settings.
type TasksConfig struct {
	MaxConcurrent int64 `yaml:"max_concurrent" env:"TASKS_MAX_CONCURRENT" env-default:"4"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level      string `yaml:"level"       env:"LOG_LEVEL"       env-default:"info"`
	Format     string `yaml:"format"      env:"LOG_FORMAT"      env-default:"text"`
	File       string `yaml:"file"        env:"LOG_FILE"`
	MaxSizeMB  int    `yaml:"max_size_mb" env:"LOG_MAX_SIZE_MB" env-default:"10"`
	MaxBackups int    `yaml:"max_backups" env:"LOG_MAX_BACKUPS" env-default:"3"`
}
