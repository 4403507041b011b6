//go:build darwin

package platform

import "os/exec"

// OpenPrivacySettings opens the macOS calendar privacy pane, where a
// previously denied grant can be changed.
func OpenPrivacySettings() error {
	return exec.Command("open",
		"x-apple.systempreferences:com.apple.preference.security?Privacy_Calendars").Start()
}
