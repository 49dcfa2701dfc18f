// internal/domain/models/loginhistory.go
package models

// LoginLogEntry captures a single successful login event.
// Entries are embedded in the owning user's login_history array, appended
// once and never edited or removed. Field names match the JSON returned by
// the login endpoint.
type LoginLogEntry struct {
	Log        string `bson:"log" json:"log"`                 // "log1", "log2", ...
	Date       string `bson:"date" json:"date"`               // "June 11, 2025" in the user's zone
	UserTime   string `bson:"user_time" json:"user_time"`     // "15:32:00 Asia/Tokyo"
	ServerTime string `bson:"server_time" json:"server_time"` // "08:32:00 America/Los_Angeles"
	IP         string `bson:"ip" json:"ip"`
	Location   string `bson:"location" json:"location"`
	UserAgent  string `bson:"userAgent" json:"userAgent"`
}
