package main

// Linux input event types and codes (from <linux/input.h>)
const (
	EV_SYN = 0x00
	EV_KEY = 0x01
	EV_REL = 0x02

	KEY_ZOOMIN    = 0x1a2 // 418
	KEY_ZOOMOUT   = 0x1a3 // 419
	KEY_ZOOMRESET = 0x1a4 // 420

	// Relative pointer axes
	REL_X     = 0x00
	REL_Y     = 0x01
	REL_WHEEL = 0x08
)

// Input event value constants
const (
	evValueRelease = 0
	evValuePress   = 1
	evValueRepeat  = 2
)

// Daemon defaults
const (
	defaultRenderFPS    = 60
	defaultSourceWidth  = 1920
	defaultSourceHeight = 1080
	defaultScreenWidth  = 1920
	defaultScreenHeight = 1080

	defaultIPCSocket    = "/tmp/zoomd.sock"
	defaultHTTPAddr     = "127.0.0.1:3001"
	defaultSettingsFile = "~/.config/zoomd/settings.yaml"

	// Settings store flush cadence (ms)
	defaultFlushIntervalMS = 1000

	// Wheel zoom: a streak of this many same-direction detents, each within
	// the window of the previous one, steps rotaryFastMultiplier clicks each.
	rotaryWindowMS       = 200
	rotaryFastThreshold  = 3
	rotaryFastMultiplier = 3

	// Broadcast resolution: scale at 0.01, centre at whole pixels.
	broadcastScaleStep  = 0.01
	broadcastCenterStep = 1.0
)
