// Package uaparse classifies raw user-agent strings into the structured
// device, browser, OS and engine fields stored on click events.
package uaparse

import (
	ua "github.com/mileusna/useragent"
)

// Device categories stored on click events.
const (
	DeviceDesktop = "desktop"
	DeviceMobile  = "mobile"
	DeviceTablet  = "tablet"
	DeviceBot     = "bot"
)

// Rendering engines inferred from the browser family.
const (
	EngineBlink  = "Blink"
	EngineGecko  = "Gecko"
	EngineWebKit = "WebKit"
)

// engineByBrowser is a fixed lookup from browser family to engine family.
// Chromium-based browsers ship Blink, Firefox ships Gecko, and Safari that
// is not Chrome-based ships WebKit. Unknown browsers get no engine.
var engineByBrowser = map[string]string{
	ua.Chrome:         EngineBlink,
	ua.HeadlessChrome: EngineBlink,
	ua.Edge:           EngineBlink,
	ua.Opera:          EngineBlink,
	ua.OperaMini:      EngineBlink,
	ua.OperaTouch:     EngineBlink,
	ua.Vivaldi:        EngineBlink,
	"Samsung Browser": EngineBlink,
	ua.Firefox:        EngineGecko,
	ua.Safari:         EngineWebKit,
}

// Classification holds the parsed user-agent fields. Every field is optional:
// nil means the value could not be determined. Fields are either all nil
// (unparsable input) or populated as far as the agent string allows.
type Classification struct {
	DeviceCategory *string
	BrowserName    *string
	BrowserVersion *string
	OSName         *string
	OSVersion      *string
	Engine         *string
}

// Classify parses a raw user-agent string. It never fails: empty or
// unrecognizable input yields an all-nil classification.
func Classify(raw string) Classification {
	if raw == "" {
		return Classification{}
	}

	agent := ua.Parse(raw)
	if agent.Name == "" && agent.OS == "" && !agent.Bot {
		return Classification{}
	}

	var c Classification
	c.DeviceCategory = strPtr(deviceCategory(agent))
	c.BrowserName = optional(agent.Name)
	c.BrowserVersion = optional(agent.Version)
	c.OSName = optional(agent.OS)
	c.OSVersion = optional(agent.OSVersion)
	if engine, ok := engineByBrowser[agent.Name]; ok {
		c.Engine = strPtr(engine)
	}
	return c
}

// deviceCategory applies the precedence bot > mobile > tablet > desktop.
// Anything that parsed but matched no form factor is treated as desktop.
func deviceCategory(agent ua.UserAgent) string {
	switch {
	case agent.Bot:
		return DeviceBot
	case agent.Mobile:
		return DeviceMobile
	case agent.Tablet:
		return DeviceTablet
	default:
		return DeviceDesktop
	}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func strPtr(s string) *string { return &s }
