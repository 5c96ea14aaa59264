package feed

import (
	"crypto/md5"
	"encoding/hex"
)

// ArticleID derives a stable content-addressed identifier for an entry.
// The first present of the explicit id, the guid, the link, or the title
// concatenated with the published date is hashed; the hex digest is the
// article's primary key, so repeated fetches of the same feed never create
// duplicate rows. When every field is empty the digest of the empty string
// is returned; callers may treat that as a low-confidence id but the
// function never fails.
func ArticleID(e Entry) string {
	unique := e.ID
	if unique == "" {
		unique = e.GUID
	}
	if unique == "" {
		unique = e.Link
	}
	if unique == "" {
		unique = e.Title + e.Published
	}
	sum := md5.Sum([]byte(unique))
	return hex.EncodeToString(sum[:])
}
