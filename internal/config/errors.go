package config

import "errors"

var (
	// ErrNoSites is returned when no sites are configured
	ErrNoSites = errors.New("at least one site must be configured")
	// ErrInvalidSiteURL is returned when a site url is not an absolute http(s) url
	ErrInvalidSiteURL = errors.New("site url must be an absolute http or https url")
	// ErrDuplicateSite is returned when two sites share the same url
	ErrDuplicateSite = errors.New("site url configured more than once")
	// ErrInvalidWorkers is returned when crawl_workers is not greater than 0
	ErrInvalidWorkers = errors.New("crawl_workers must be greater than 0")
	// ErrInvalidTimeout is returned when request timeout is not greater than 0
	ErrInvalidTimeout = errors.New("request_timeout must be greater than 0")
	// ErrInvalidDelay is returned when request delay is negative
	ErrInvalidDelay = errors.New("request_delay cannot be negative")
	// ErrInvalidRatio is returned when too_frequent_ratio is outside (0, 1]
	ErrInvalidRatio = errors.New("search.too_frequent_ratio must be in (0, 1]")
	// ErrInvalidPattern is returned when an exclude pattern does not compile
	ErrInvalidPattern = errors.New("invalid exclude pattern")
	// ErrUnknownDriver is returned for database drivers other than sqlite and postgres
	ErrUnknownDriver = errors.New("database.driver must be sqlite or postgres")
	// ErrEmptyDatabasePath is returned when the sqlite path is empty
	ErrEmptyDatabasePath = errors.New("database.path cannot be empty")
	// ErrEmptyDatabaseDSN is returned when the postgres dsn is empty
	ErrEmptyDatabaseDSN = errors.New("database.dsn cannot be empty")
)
