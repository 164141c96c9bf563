package syncer

import (
	"os"
	"strings"
	"time"
)

var (
	localtimePath = "/etc/localtime"
	lookupTZ      = func() (string, bool) { return os.LookupEnv("TZ") }
)

// requestTimeZone picks the zone sent with event listings. An explicit
// setting wins over the cache's zone; time.Local is sent by IANA name, or not
// at all when no name can be found.
func requestTimeZone(configured string, loc *time.Location) string {
	if configured != "" {
		return configured
	}
	if loc != nil && loc != time.Local {
		return loc.String()
	}
	return localZoneName()
}

// localZoneName names time.Local the way the API expects. It follows Go's own
// lookup order: $TZ first, then the /etc/localtime symlink.
func localZoneName() string {
	if tz, ok := lookupTZ(); ok {
		if tz == "" {
			return "UTC"
		}
		return zoneFromPath(strings.TrimPrefix(tz, ":"))
	}
	target, err := os.Readlink(localtimePath)
	if err != nil {
		return ""
	}
	return zoneFromPath(target)
}

func zoneFromPath(name string) string {
	if i := strings.LastIndex(name, "zoneinfo/"); i >= 0 {
		name = name[i+len("zoneinfo/"):]
	}
	if name == "" || name == "Local" || strings.HasPrefix(name, "/") {
		return ""
	}
	if _, err := time.LoadLocation(name); err != nil {
		return ""
	}
	return name
}
