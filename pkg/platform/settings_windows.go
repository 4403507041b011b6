//go:build windows

package platform

import "os/exec"

// OpenPrivacySettings opens the Windows calendar privacy page.
func OpenPrivacySettings() error {
	return exec.Command("cmd", "/c", "start", "ms-settings:privacy-calendar").Start()
}
