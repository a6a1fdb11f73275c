package domain

import (
	"fmt"
	"strings"
)

// Platform identifies one of the automated websites
type Platform string

const (
	PlatformSuno       Platform = "suno"
	PlatformSoundCloud Platform = "soundcloud"
)

// RootDomain returns the cookie domain restored sessions are scoped to
func (p Platform) RootDomain() string {
	switch p {
	case PlatformSuno:
		return ".suno.ai"
	case PlatformSoundCloud:
		return ".soundcloud.com"
	}
	return ""
}

// Account represents a set of credentials for one platform.
// Identity is (Platform, Username).
type Account struct {
	Platform Platform
	Username string
	Password string
}

// Key returns the identity of the account as "platform/username"
func (a Account) Key() string {
	return fmt.Sprintf("%s/%s", a.Platform, a.Username)
}

// Same reports whether both accounts share an identity
func (a Account) Same(other Account) bool {
	return a.Platform == other.Platform && a.Username == other.Username
}

func (a Account) String() string {
	return a.Key()
}

// Prompt is a single generation prompt tagged with its genre
type Prompt struct {
	Genre string
	Text  string
}

// GeneratedItem is one downloaded track produced by a generation worker
type GeneratedItem struct {
	Account   string   `json:"account"`
	Title     string   `json:"title"`
	Genre     string   `json:"genre"`
	Tags      []string `json:"tag_list"`
	MediaPath string   `json:"media_path"`
	ImagePath string   `json:"image_path"`
}

// TagString joins the tags the way the upload form expects them
func (g GeneratedItem) TagString() string {
	return strings.Join(g.Tags, " ")
}
