package device

import (
	"errors"
	"strings"

	"go.bug.st/serial/enumerator"
)

// ErrPortNotFound is returned when no serial port matches the discovery
// hints and no explicit port name is configured.
var ErrPortNotFound = errors.New("device: no matching serial port found")

// DiscoverPort scans the attached serial ports for one whose product
// description contains any of the hints (case-insensitive substring match,
// e.g. "Arduino", "USB-SERIAL"). An explicitly configured port name takes
// precedence over scanning.
func DiscoverPort(configuredName string, hints []string) (string, error) {
	if configuredName != "" {
		return configuredName, nil
	}

	ports, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return "", err
	}
	for _, port := range ports {
		for _, hint := range hints {
			if hint == "" {
				continue
			}
			if strings.Contains(strings.ToLower(port.Product), strings.ToLower(hint)) {
				return port.Name, nil
			}
		}
	}
	return "", ErrPortNotFound
}
