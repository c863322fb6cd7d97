//go:build linux

/*
 Licensed under the Apache License, Version 2.0 (the "License");
 you may not use this file except in compliance with the License.
 You may obtain a copy of the License at

     https://www.apache.org/licenses/LICENSE-2.0

 Unless required by applicable law or agreed to in writing, software
 distributed under the License is distributed on an "AS IS" BASIS,
 WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 See the License for the specific language governing permissions and
 limitations under the License.
*/

package ble

import (
	"context"
	"strings"
	"sync"

	"github.com/paypal/gatt"

	deviceifc "jinr.ru/greenlab/go-hrm/pkg/device/ifc"
	"jinr.ru/greenlab/go-hrm/pkg/device/link"
	"jinr.ru/greenlab/go-hrm/pkg/log"
)

var (
	HeartRateService     = gatt.UUID16(HeartRateServiceID)
	HeartRateMeasurement = gatt.UUID16(HeartRateMeasurementID)
)

// Device connects to the first BLE heart rate sensor matching Name
// (local name or peripheral ID, empty matches any) on the HCI adapter.
type Device struct {
	Name string
	HCI  int
}

var _ deviceifc.Connector = &Device{}

func NewDevice(name string, hci int) *Device {
	return &Device{
		Name: name,
		HCI:  hci,
	}
}

func (d *Device) matches(p gatt.Peripheral, a *gatt.Advertisement) bool {
	if d.Name == "" {
		return true
	}
	return strings.EqualFold(a.LocalName, d.Name) || strings.EqualFold(p.ID(), d.Name)
}

func (d *Device) Connect(ctx context.Context) (deviceifc.Session, error) {
	dev, err := gatt.NewDevice(gatt.LnxMaxConnections(1), gatt.LnxDeviceID(d.HCI, true))
	if err != nil {
		return nil, err
	}

	var (
		mu         sync.Mutex
		found      bool
		peripheral gatt.Peripheral
		session    *link.Link
	)
	connected := make(chan error, 1)

	dev.Handle(
		gatt.PeripheralDiscovered(func(p gatt.Peripheral, a *gatt.Advertisement, rssi int) {
			if !d.matches(p, a) {
				return
			}
			mu.Lock()
			defer mu.Unlock()
			if found {
				return
			}
			found = true
			log.Info("Heart rate sensor found: id: %s name: %s rssi: %d", p.ID(), a.LocalName, rssi)
			p.Device().StopScanning()
			p.Device().Connect(p)
		}),
		gatt.PeripheralConnected(func(p gatt.Peripheral, err error) {
			if err != nil {
				connected <- err
				return
			}
			l := link.New(p.ID(), func() error {
				p.Device().CancelConnection(p)
				return stopDevice(p.Device())
			})
			if err := subscribe(p, l); err != nil {
				p.Device().CancelConnection(p)
				connected <- err
				return
			}
			mu.Lock()
			peripheral, session = p, l
			mu.Unlock()
			connected <- nil
		}),
		gatt.PeripheralDisconnected(func(p gatt.Peripheral, err error) {
			if err != nil {
				log.Warning("Peripheral disconnected with error: id: %s error: %s", p.ID(), err)
			}
			mu.Lock()
			l := session
			mu.Unlock()
			if l != nil {
				l.Disconnect()
			}
		}),
	)

	err = dev.Init(func(dev gatt.Device, s gatt.State) {
		log.Debug("BLE adapter state: %s", s)
		switch s {
		case gatt.StatePoweredOn:
			log.Info("Scanning for heart rate sensors")
			dev.Scan([]gatt.UUID{HeartRateService}, false)
		default:
			dev.StopScanning()
		}
	})
	if err != nil {
		stopDevice(dev)
		return nil, err
	}

	select {
	case <-ctx.Done():
		dev.StopScanning()
		mu.Lock()
		if peripheral != nil {
			dev.CancelConnection(peripheral)
		}
		mu.Unlock()
		stopDevice(dev)
		return nil, ctx.Err()
	case err := <-connected:
		if err != nil {
			stopDevice(dev)
			return nil, err
		}
	}
	mu.Lock()
	defer mu.Unlock()
	return session, nil
}

// stopDevice releases the HCI socket when the gatt build provides Stop
func stopDevice(dev interface{}) error {
	if s, ok := dev.(interface{ Stop() error }); ok {
		if err := s.Stop(); err != nil {
			log.Warning("Error while stopping BLE adapter: %s", err)
			return err
		}
	}
	return nil
}

// subscribe enables notifications of the Heart Rate Measurement characteristic
func subscribe(p gatt.Peripheral, l *link.Link) error {
	services, err := p.DiscoverServices([]gatt.UUID{HeartRateService})
	if err != nil {
		return err
	}
	for _, s := range services {
		if !s.UUID().Equal(HeartRateService) {
			continue
		}
		chars, err := p.DiscoverCharacteristics([]gatt.UUID{HeartRateMeasurement}, s)
		if err != nil {
			return err
		}
		for _, c := range chars {
			if !c.UUID().Equal(HeartRateMeasurement) {
				continue
			}
			if _, err := p.DiscoverDescriptors(nil, c); err != nil {
				return err
			}
			err := p.SetNotifyValue(c, func(_ *gatt.Characteristic, data []byte, err error) {
				if err != nil {
					log.Error("Notification error: id: %s error: %s", p.ID(), err)
					return
				}
				l.Push(data)
			})
			if err != nil {
				return err
			}
			log.Info("Subscribed to heart rate measurements: id: %s", p.ID())
			return nil
		}
	}
	return ErrNoHeartRate{ID: p.ID()}
}
