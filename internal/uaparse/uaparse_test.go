package uaparse

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	chromeDesktopUA = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	firefoxMobileUA = "Mozilla/5.0 (Android 11; Mobile; rv:109.0) Gecko/109.0 Firefox/109.0"
	safariTabletUA  = "Mozilla/5.0 (iPad; CPU OS 17_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Mobile/15E148 Safari/604.1"
	googlebotUA     = "Mozilla/5.0 (compatible; Googlebot/2.1; +http://www.google.com/bot.html)"
)

func TestClassify_EmptyInput(t *testing.T) {
	c := Classify("")

	assert.Nil(t, c.DeviceCategory)
	assert.Nil(t, c.BrowserName)
	assert.Nil(t, c.BrowserVersion)
	assert.Nil(t, c.OSName)
	assert.Nil(t, c.OSVersion)
	assert.Nil(t, c.Engine)
}

func TestClassify_GarbageInput(t *testing.T) {
	c := Classify("definitely not a user agent")

	assert.Nil(t, c.DeviceCategory)
	assert.Nil(t, c.BrowserName)
	assert.Nil(t, c.Engine)
}

func TestClassify_ChromeDesktop(t *testing.T) {
	c := Classify(chromeDesktopUA)

	require.NotNil(t, c.DeviceCategory)
	assert.Equal(t, DeviceDesktop, *c.DeviceCategory)

	require.NotNil(t, c.BrowserName)
	assert.Equal(t, "Chrome", *c.BrowserName)

	require.NotNil(t, c.BrowserVersion)
	assert.NotEmpty(t, *c.BrowserVersion)

	require.NotNil(t, c.OSName)
	require.NotNil(t, c.Engine)
	assert.Equal(t, EngineBlink, *c.Engine)
}

func TestClassify_FirefoxMobile(t *testing.T) {
	c := Classify(firefoxMobileUA)

	require.NotNil(t, c.DeviceCategory)
	assert.Equal(t, DeviceMobile, *c.DeviceCategory)

	require.NotNil(t, c.BrowserName)
	assert.Equal(t, "Firefox", *c.BrowserName)

	require.NotNil(t, c.Engine)
	assert.Equal(t, EngineGecko, *c.Engine)
}

func TestClassify_SafariTablet(t *testing.T) {
	c := Classify(safariTabletUA)

	require.NotNil(t, c.DeviceCategory)
	assert.Equal(t, DeviceTablet, *c.DeviceCategory)

	require.NotNil(t, c.BrowserName)
	assert.Equal(t, "Safari", *c.BrowserName)

	require.NotNil(t, c.Engine)
	assert.Equal(t, EngineWebKit, *c.Engine)
}

func TestClassify_Bot(t *testing.T) {
	c := Classify(googlebotUA)

	require.NotNil(t, c.DeviceCategory)
	assert.Equal(t, DeviceBot, *c.DeviceCategory)
}

func TestClassify_UnknownBrowserHasNoEngine(t *testing.T) {
	// Parses as a platform but the browser family is not in the fixed lookup.
	c := Classify("Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:11.0) like Gecko")

	if c.BrowserName != nil {
		assert.NotContains(t, []string{"Chrome", "Firefox", "Safari"}, *c.BrowserName)
	}
	assert.Nil(t, c.Engine)
}

func TestClassify_NeverPanics(t *testing.T) {
	for _, raw := range []string{
		"",
		" ",
		"Mozilla/5.0",
		"()()()",
		"\x00\x01\x02",
	} {
		assert.NotPanics(t, func() { Classify(raw) })
	}
}
