//go:build linux

// Package linuxinput reads hotkeys straight from /dev/input event devices and injects
// mouse buttons through a uinput device. It works under Wayland and on the console,
// where X11 grabs are unavailable.
package linuxinput

import (
	"fmt"
	"os"
	"slices"
	"sort"
	"strings"

	evdev "github.com/holoplot/go-evdev"
)

// DeviceName is the uinput device this package creates. Readers skip it so injected
// clicks never loop back as hotkeys.
const DeviceName = "s-trade-executor"

type DeviceInfo struct {
	Path      string
	Name      string
	IsVirtual bool
	IsPointer bool
	HasKeys   bool
}

// probedDevice is an open device together with what it reported about itself.
type probedDevice struct {
	dev  *evdev.InputDevice
	info DeviceInfo
}

func probeDevice(path, listedName string) (probedDevice, error) {
	dev, err := evdev.OpenWithFlags(path, os.O_RDONLY)
	if err != nil {
		return probedDevice{}, err
	}
	name := listedName
	if reported, err := dev.Name(); err == nil && reported != "" {
		name = reported
	}
	return probedDevice{
		dev: dev,
		info: DeviceInfo{
			Path:      path,
			Name:      name,
			IsVirtual: deviceIsVirtual(dev, name),
			IsPointer: deviceIsPointer(dev),
			HasKeys:   len(dev.CapableEvents(evdev.EV_KEY)) > 0,
		},
	}, nil
}

// probeAll opens every readable event device in path order. Unreadable ones are skipped.
func probeAll() ([]probedDevice, error) {
	paths, err := evdev.ListDevicePaths()
	if err != nil {
		return nil, err
	}
	sort.Slice(paths, func(i, j int) bool { return paths[i].Path < paths[j].Path })

	out := make([]probedDevice, 0, len(paths))
	for _, p := range paths {
		probed, err := probeDevice(p.Path, p.Name)
		if err != nil {
			continue
		}
		out = append(out, probed)
	}
	return out, nil
}

func ListInputDevices() ([]DeviceInfo, error) {
	probed, err := probeAll()
	if err != nil {
		return nil, err
	}
	infos := make([]DeviceInfo, 0, len(probed))
	for _, p := range probed {
		infos = append(infos, p.info)
		_ = p.dev.Close()
	}
	return infos, nil
}

// openKeyDevices opens devicePath, or every physical device with key capabilities when
// it is empty, in non-blocking mode.
func openKeyDevices(devicePath string) ([]*evdev.InputDevice, error) {
	if devicePath != "" {
		p, err := probeDevice(devicePath, "")
		if err != nil {
			return nil, err
		}
		if !p.info.HasKeys {
			_ = p.dev.Close()
			return nil, fmt.Errorf("%s does not expose key/button events", devicePath)
		}
		if err := p.dev.NonBlock(); err != nil {
			_ = p.dev.Close()
			return nil, fmt.Errorf("failed to set nonblocking mode for %s: %w", devicePath, err)
		}
		return []*evdev.InputDevice{p.dev}, nil
	}

	probed, err := probeAll()
	if err != nil {
		return nil, err
	}
	devices := make([]*evdev.InputDevice, 0, len(probed))
	for _, p := range probed {
		if p.info.IsVirtual || !p.info.HasKeys || p.dev.NonBlock() != nil {
			_ = p.dev.Close()
			continue
		}
		devices = append(devices, p.dev)
	}
	if len(devices) == 0 {
		return nil, fmt.Errorf("no readable input devices with key/button events found; check /dev/input permissions")
	}
	return devices, nil
}

func closeInputDevices(devices []*evdev.InputDevice) {
	for _, dev := range devices {
		_ = dev.Close()
	}
}

// deviceIsVirtual also matches our own uinput pointer so injected clicks are not read back.
func deviceIsVirtual(device *evdev.InputDevice, name string) bool {
	if id, err := device.InputID(); err == nil && id.BusType == uint16(evdev.BUS_VIRTUAL) {
		return true
	}
	lower := strings.ToLower(name)
	return slices.ContainsFunc([]string{"virtual", "uinput", "ydotool", DeviceName}, func(token string) bool {
		return strings.Contains(lower, token)
	})
}

func deviceIsPointer(device *evdev.InputDevice) bool {
	rel := device.CapableEvents(evdev.EV_REL)
	if slices.Contains(rel, evdev.REL_X) && slices.Contains(rel, evdev.REL_Y) {
		return true
	}
	return len(device.CapableEvents(evdev.EV_ABS)) > 0
}
