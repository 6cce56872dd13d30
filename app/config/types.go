package config

// Schedule is one regulator's daily pipeline schedule.
type Schedule struct {
	Regulator string `yaml:"regulator"`
	Enabled   bool   `yaml:"enabled"`
	Hour      int    `yaml:"hour"`
	Minute    int    `yaml:"minute"`
}

// RSSFeed is one press-release feed polled alongside the scraped sources.
type RSSFeed struct {
	Name      string `yaml:"name"`
	URL       string `yaml:"url"`
	Regulator string `yaml:"regulator"`
	Category  string `yaml:"category"`
}

// File is the on-disk schedule configuration.
type File struct {
	Schedules []Schedule `yaml:"schedules"`
	RSSFeeds  []RSSFeed  `yaml:"rss_feeds"`
}
