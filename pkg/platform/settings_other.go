//go:build !darwin && !windows

package platform

import "errors"

// OpenPrivacySettings is not supported on this platform; there is no
// common settings deep link to a calendar privacy pane.
func OpenPrivacySettings() error {
	return errors.New("opening system settings is not supported on this platform")
}
