package config

// Embedded per-board defaults, keyed by board name.

const cfgPico = `{
  "board": "pico",
  "can": {
    "bitrate": 500000,
    "clock_hz": 8000000
  },
  "pins": {
    "ig1": 2,
    "brake": 3,
    "ev_ready": 4,
    "charge_lock": 5,
    "relay_ig3": 6,
    "led_ignition": 25,
    "acu_crash": 7,
    "scu_park": 8,
    "invert_inputs": false
  }
}`

const cfgHost = `{
  "board": "host",
  "can": {
    "interface": "can0"
  }
}`

const cfgSim = `{
  "board": "sim",
  "log_level": "debug"
}`

var embeddedConfigs = map[string][]byte{
	"pico": []byte(cfgPico),
	"host": []byte(cfgHost),
	"sim":  []byte(cfgSim),
}

// EmbeddedConfigLookup resolves a board's embedded defaults. Tests may
// replace it.
var EmbeddedConfigLookup = func(board string) ([]byte, bool) {
	b, ok := embeddedConfigs[board]
	return b, ok
}
