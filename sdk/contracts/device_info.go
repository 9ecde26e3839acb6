package contracts

import "fmt"

// DeviceInfo describes one input a ClientMIDI can select. The looper passes its
// index in ListDevices to SelectDevice.
type DeviceInfo struct {
	Name         string // Device name, or the device path for serial ports.
	Manufacturer string // Device manufacturer, or the transport when there is none.
	EntityName   string // Name of the entity to which the device belongs.
}

// String renders the device for port listings.
func (d DeviceInfo) String() string {
	switch {
	case d.Manufacturer == "":
		return d.Name
	case d.EntityName != "" && d.EntityName != d.Name:
		return fmt.Sprintf("%s / %s (%s)", d.EntityName, d.Name, d.Manufacturer)
	}
	return fmt.Sprintf("%s (%s)", d.Name, d.Manufacturer)
}
