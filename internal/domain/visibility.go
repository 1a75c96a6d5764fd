package domain

import "time"

// VisibilityWindow is how long after its photo time a post can be seen clear.
const VisibilityWindow = 24 * time.Hour

// WithinWindow reports whether photoTime lies inside the visibility window
// ending at now. Photo times after now count as inside.
func WithinWindow(photoTime, now time.Time) bool {
	return now.Sub(photoTime) < VisibilityWindow
}

// WindowStart is the exclusive lower bound of the window ending at now.
func WindowStart(now time.Time) time.Time {
	return now.Add(-VisibilityWindow)
}

// Blurred reports whether p must be hidden from a requester. A post is clear
// only when the requester has posted inside the window and p itself is
// inside the window.
func Blurred(requesterHasPosted bool, p Post, now time.Time) bool {
	return !requesterHasPosted || !WithinWindow(p.PhotoTime(), now)
}

// FeedEntry is one feed item as presented to a requester.
type FeedEntry struct {
	Post
	Width   int    `json:"width"`
	Height  int    `json:"height"`
	Format  string `json:"format"`
	Blurred bool   `json:"blurred"`
}
