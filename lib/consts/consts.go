// Package consts houses some constants needed across gradepush
package consts

import "strings"

// Version contains the current semantic version of gradepush.
const Version = "0.4.0"

// Banner returns the ASCII gradepush banner.
func Banner() string {
	banner := []string{
		"  __ _ _ _ __ _ __| |___ _ __ _  _ __| |_  ",
		" / _` | '_/ _` / _` / -_) '_ \\ || (_-< ' \\ ",
		" \\__, |_| \\__,_\\__,_\\___| .__/\\_,_/__/_||_|",
		" |___/                  |_|                ",
	}
	return strings.Join(banner, "\n")
}
