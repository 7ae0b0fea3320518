package settings

// DefaultStoreID is the scope shared by all stores without an override.
const DefaultStoreID int64 = 0

// Settings is the LINE Pay channel configuration for one store scope.
// Empty fields fall through to the next scope.
type Settings struct {
	ChannelID     string
	ChannelSecret string
	PictureURL    string
	Locale        string
}

// merge fills empty fields of s from fallback.
func (s Settings) merge(fallback Settings) Settings {
	if s.ChannelID == "" {
		s.ChannelID = fallback.ChannelID
	}
	if s.ChannelSecret == "" {
		s.ChannelSecret = fallback.ChannelSecret
	}
	if s.PictureURL == "" {
		s.PictureURL = fallback.PictureURL
	}
	if s.Locale == "" {
		s.Locale = fallback.Locale
	}
	return s
}
