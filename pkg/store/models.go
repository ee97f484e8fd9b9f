// Package store holds the persistence models and repository for the bot.
// The models are mapped by GORM; UniqueID is the stable external user id the
// chat platform assigns and is the upsert key everywhere.
package store

// Registered is one finished (or being-finished) registration.
type Registered struct {
	UniqueID string `gorm:"column:unique_id;type:TEXT NOT NULL;primaryKey"`
	Name     string `gorm:"type:TEXT NOT NULL"`
	Email    string `gorm:"type:TEXT NOT NULL"`
	Studying string `gorm:"type:TEXT"`
	Done     string `gorm:"type:TEXT"`
	Type     string `gorm:"type:TEXT"`
}

// TableName implements the GORM tabler interface.
func (Registered) TableName() string { return "registered" }

// Greeted marks a user that already received the one-time greeting.
type Greeted struct {
	UniqueID string `gorm:"column:unique_id;type:TEXT NOT NULL;primaryKey"`
}

// TableName implements the GORM tabler interface.
func (Greeted) TableName() string { return "greeted" }

// Job is one scraped job listing, maintained by an external scraper.
type Job struct {
	URL        string `gorm:"type:TEXT NOT NULL;primaryKey"`
	Title      string `gorm:"type:TEXT NOT NULL"`
	JobType    string `gorm:"column:jobtype;type:TEXT"`
	Location   string `gorm:"type:TEXT"`
	Date       string `gorm:"type:TEXT"`
	Department string `gorm:"type:TEXT"`
}

// TableName implements the GORM tabler interface.
func (Job) TableName() string { return "jobs" }
