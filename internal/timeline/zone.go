// Package timeline keeps the rendered message log of a chat room consistent
// across initial history, backward pagination and live delivery.
package timeline

import (
	"strings"
	"time"
)

// DefaultZoneName is the deployment timezone of the chat-room service.
const DefaultZoneName = "Asia/Shanghai"

// fallbackZone is used when the tz database is not available on the host.
var fallbackZone = time.FixedZone("CST", 8*60*60)

// LoadZone resolves a timezone name. Empty names and names unknown to the
// local tz database resolve to UTC+8, which is what the server uses.
func LoadZone(name string) *time.Location {
	name = strings.TrimSpace(name)
	if name == "" || name == DefaultZoneName {
		if loc, err := time.LoadLocation(DefaultZoneName); err == nil {
			return loc
		}
		return fallbackZone
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return fallbackZone
	}
	return loc
}
