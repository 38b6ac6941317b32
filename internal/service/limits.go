package service

import (
	"net/url"
	"unicode/utf8"
)

// Column widths of the free-text fields, in characters.
const (
	maxTitleLen    = 100
	maxReasonLen   = 255
	maxLocNameLen  = 100
	maxAddressLen  = 255
	maxImageURLLen = 500
)

func tooLong(s string, max int) bool { return utf8.RuneCountInString(s) > max }

// ValidProfileImage reports whether s is an absolute http(s) URL that fits
// the profile_image column.
func ValidProfileImage(s string) bool {
	if s == "" || tooLong(s, maxImageURLLen) {
		return false
	}
	u, err := url.Parse(s)
	if err != nil || u.Host == "" {
		return false
	}
	return u.Scheme == "http" || u.Scheme == "https"
}
