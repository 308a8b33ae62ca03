package transport

import (
	"context"
	"time"

	"github.com/google/gousb"

	"cktap/ckerr"
)

// ccidInterfaceClass is the USB-IF class code for Smart Card / CCID
// devices.
const ccidInterfaceClass = 0x0B

// USBTransport drives a single claimed CCID-class USB interface with a
// paired bulk-out/bulk-in endpoint. It is not re-entrant: the caller must
// serialize access.
type USBTransport struct {
	ctx     *gousb.Context
	device  *gousb.Device
	config  *gousb.Config
	intf    *gousb.Interface
	epOut   *gousb.OutEndpoint
	epIn    *gousb.InEndpoint
	timeout time.Duration
}

// OpenFirstCCID enumerates attached USB devices, selects the first
// interface whose class is CCID (0x0B), claims it and opens its bulk
// endpoints.
func OpenFirstCCID(timeout time.Duration) (*USBTransport, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	ctx := gousb.NewContext()

	devices, err := ctx.OpenDevices(func(desc *gousb.DeviceDesc) bool {
		for _, cfg := range desc.Configs {
			for _, intf := range cfg.Interfaces {
				for _, alt := range intf.AltSettings {
					if alt.Class == gousb.Class(ccidInterfaceClass) {
						return true
					}
				}
			}
		}
		return false
	})
	if err != nil {
		ctx.Close()
		return nil, ckerr.Wrap(ckerr.TransportIo, err, "enumerate USB devices")
	}
	if len(devices) == 0 {
		ctx.Close()
		return nil, ckerr.New(ckerr.DeviceNotFound, "no CCID-class USB device found")
	}
	// Close every candidate but the first; OpenDevices already opened them all.
	for _, d := range devices[1:] {
		d.Close()
	}
	device := devices[0]

	ifaceNum, cfgNum, err := findCCIDInterface(device)
	if err != nil {
		device.Close()
		ctx.Close()
		return nil, err
	}

	device.SetAutoDetach(true)

	config, err := device.Config(cfgNum)
	if err != nil {
		device.Close()
		ctx.Close()
		return nil, ckerr.Wrap(ckerr.TransportIo, err, "select USB configuration %d", cfgNum)
	}

	intf, err := config.Interface(ifaceNum, 0)
	if err != nil {
		config.Close()
		device.Close()
		ctx.Close()
		return nil, ckerr.Wrap(ckerr.NotCcidDevice, err, "claim CCID interface %d", ifaceNum)
	}

	epOutAddr, epInAddr, err := firstBulkPair(intf.Setting)
	if err != nil {
		intf.Close()
		config.Close()
		device.Close()
		ctx.Close()
		return nil, err
	}

	epOut, err := intf.OutEndpoint(epOutAddr)
	if err != nil {
		intf.Close()
		config.Close()
		device.Close()
		ctx.Close()
		return nil, ckerr.Wrap(ckerr.TransportIo, err, "open bulk OUT endpoint")
	}
	epIn, err := intf.InEndpoint(epInAddr)
	if err != nil {
		intf.Close()
		config.Close()
		device.Close()
		ctx.Close()
		return nil, ckerr.Wrap(ckerr.TransportIo, err, "open bulk IN endpoint")
	}

	return &USBTransport{
		ctx:     ctx,
		device:  device,
		config:  config,
		intf:    intf,
		epOut:   epOut,
		epIn:    epIn,
		timeout: timeout,
	}, nil
}

// findCCIDInterface returns the (interface number, config number) of the
// first CCID-class interface on device.
func findCCIDInterface(device *gousb.Device) (iface, cfgNum int, err error) {
	for _, cfg := range device.Desc.Configs {
		for _, intf := range cfg.Interfaces {
			for _, alt := range intf.AltSettings {
				if alt.Class == gousb.Class(ccidInterfaceClass) {
					return intf.Number, cfg.Number, nil
				}
			}
		}
	}
	return 0, 0, ckerr.New(ckerr.NotCcidDevice, "device has no CCID-class interface")
}

// firstBulkPair returns the first bulk OUT and bulk IN endpoint
// addresses on the given interface setting.
func firstBulkPair(setting gousb.InterfaceSetting) (out, in gousb.EndpointAddress, err error) {
	var haveOut, haveIn bool
	for _, ep := range setting.Endpoints {
		if ep.TransferType != gousb.TransferTypeBulk {
			continue
		}
		if ep.Direction == gousb.EndpointDirectionOut && !haveOut {
			out, haveOut = ep.Address, true
		}
		if ep.Direction == gousb.EndpointDirectionIn && !haveIn {
			in, haveIn = ep.Address, true
		}
	}
	if !haveOut || !haveIn {
		return 0, 0, ckerr.New(ckerr.NotCcidDevice, "CCID interface missing bulk endpoint pair")
	}
	return out, in, nil
}

// Write sends one bulk OUT transfer.
func (t *USBTransport) Write(p []byte) error {
	ctx, cancel := context.WithTimeout(context.Background(), t.timeout)
	defer cancel()

	_, err := t.epOut.WriteContext(ctx, p)
	if err != nil {
		if ctx.Err() != nil {
			return timeoutError("USB bulk write")
		}
		return ckerr.Wrap(ckerr.TransportIo, err, "USB bulk write")
	}
	return nil
}

// Read returns one bulk IN transfer, up to MaxPacket bytes.
func (t *USBTransport) Read() ([]byte, error) {
	ctx, cancel := context.WithTimeout(context.Background(), t.timeout)
	defer cancel()

	buf := make([]byte, MaxPacket)
	n, err := t.epIn.ReadContext(ctx, buf)
	if err != nil {
		if ctx.Err() != nil {
			return nil, timeoutError("USB bulk read")
		}
		return nil, ckerr.Wrap(ckerr.TransportIo, err, "USB bulk read")
	}
	return buf[:n], nil
}

// Close releases the interface, configuration, device and context on
// every exit path.
func (t *USBTransport) Close() error {
	if t.intf != nil {
		t.intf.Close()
		t.intf = nil
	}
	if t.config != nil {
		t.config.Close()
		t.config = nil
	}
	if t.device != nil {
		t.device.Close()
		t.device = nil
	}
	if t.ctx != nil {
		t.ctx.Close()
		t.ctx = nil
	}
	return nil
}

var _ Transport = (*USBTransport)(nil)
