package led

import (
	"os"
)

// FileSink drives an LED exposed under Linux's /sys/class/leds/<name>/brightness
// sysfs path, writing "1\n"/"0\n" directly — the way
// original_source/led.c's __set_state fopens the LED path and fputs the
// level, rather than delegating blinking to a kernel trigger.
type FileSink struct {
	devicePath string // e.g. /sys/class/leds/status/brightness
}

// NewFileSink creates a sink for the LED device at devicePath.
func NewFileSink(devicePath string) *FileSink {
	return &FileSink{devicePath: devicePath}
}

// SetLevel implements Sink.
func (f *FileSink) SetLevel(on bool) error {
	v := "0\n"
	if on {
		v = "1\n"
	}
	return os.WriteFile(f.devicePath, []byte(v), 0644)
}
