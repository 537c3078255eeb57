// SPDX-License-Identifier: EPL-2.0

// Package malgo implements capture.Device with miniaudio through
// github.com/gen2brain/malgo.
//
// Capture runs in float32 at the requested rate. miniaudio's data callback
// copies every period into a device.Ring, and the capture session polls
// the ring's write position like any other device:
//
//	dev, err := malgo.New()
//	if err != nil {
//	    return err
//	}
//	defer dev.Close()
//
//	coord := recorder.New(dev)
//
// Devices are addressed by the name miniaudio reports. An empty id given
// to the recorder selects the first listed device.
package malgo
