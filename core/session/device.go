package session

import "strings"

type uaToken struct {
	marker string
	name   string
}

// order matters: Edge and Opera UAs also contain Chrome, Chrome UAs also contain Safari.
var (
	browsers = []uaToken{
		{"Edg", "Edge"}, {"OPR", "Opera"}, {"Opera", "Opera"}, {"YaBrowser", "Yandex Browser"},
		{"Firefox", "Firefox"}, {"Chrome", "Chrome"}, {"Safari", "Safari"}, {"MSIE", "IE"}, {"Trident", "IE"},
		{"curl", "curl"}, {"TelegramBot", "Telegram"},
	}
	systems = []uaToken{
		{"Android", "Android"}, {"iPhone", "iOS"}, {"iPad", "iPadOS"}, {"Windows", "Windows"},
		{"Mac OS X", "macOS"}, {"CrOS", "Chrome OS"}, {"Linux", "Linux"},
	}
)

// Device summarizes a user agent as "<browser> on <os>"; "-" when empty.
func Device(userAgent string) string {
	userAgent = strings.TrimSpace(userAgent)
	if userAgent == "" {
		return "-"
	}
	browser := match(userAgent, browsers)
	system := match(userAgent, systems)
	switch {
	case browser != "" && system != "":
		return browser + " on " + system
	case browser != "":
		return browser
	case system != "":
		return system
	}
	if len(userAgent) > 40 {
		return userAgent[:40] + "..."
	}
	return userAgent
}

func match(ua string, tokens []uaToken) string {
	for _, t := range tokens {
		if strings.Contains(ua, t.marker) {
			return t.name
		}
	}
	return ""
}
