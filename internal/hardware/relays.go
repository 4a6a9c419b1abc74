// Package hardware adapts the controller's transport interfaces onto
// GPIO relay boards for Raspberry Pi hosts. Everything here is glue:
// the core never imports it.
package hardware

import (
	"fmt"
	"log/slog"
	"time"

	"gobot.io/x/gobot/v2/drivers/gpio"
	"gobot.io/x/gobot/v2/platforms/raspi"

	"github.com/secretengineer/GreenOS/internal/safety"
)

// DefaultPins is the stock relay wiring, matching the reference build.
var DefaultPins = map[safety.ActuatorID]string{
	safety.HeaterPrimary:   "26",
	safety.HeaterSecondary: "27",
	safety.FanExhaust:      "14",
	safety.FanCirculation:  "12",
	safety.Pump:            "13",
	safety.Light:           "15",
}

// RelayBank drives one relay per actuator and implements
// safety.ActuatorTransport.
type RelayBank struct {
	adaptor *raspi.Adaptor
	relays  map[safety.ActuatorID]*gpio.RelayDriver
	logger  *slog.Logger
}

// NewRelayBank connects the Pi adaptor and prepares one relay driver
// per actuator. pins may be nil to use the default wiring.
func NewRelayBank(pins map[safety.ActuatorID]string, logger *slog.Logger) (*RelayBank, error) {
	if pins == nil {
		pins = DefaultPins
	}
	if logger == nil {
		logger = slog.Default()
	}

	adaptor := raspi.NewAdaptor()
	if err := adaptor.Connect(); err != nil {
		return nil, fmt.Errorf("connect raspi adaptor: %w", err)
	}

	bank := &RelayBank{
		adaptor: adaptor,
		relays:  make(map[safety.ActuatorID]*gpio.RelayDriver, len(pins)),
		logger:  logger.With("component", "hardware"),
	}
	for id, pin := range pins {
		relay := gpio.NewRelayDriver(adaptor, pin)
		if err := relay.Start(); err != nil {
			return nil, fmt.Errorf("start relay %s on pin %s: %w", id, pin, err)
		}
		// All relays open on boot.
		if err := relay.Off(); err != nil {
			return nil, fmt.Errorf("reset relay %s on pin %s: %w", id, pin, err)
		}
		bank.relays[id] = relay
	}
	return bank, nil
}

// Write drives the relay for one actuator.
func (b *RelayBank) Write(id safety.ActuatorID, on bool) error {
	relay, ok := b.relays[id]
	if !ok {
		return fmt.Errorf("no relay wired for actuator %q", id)
	}
	if on {
		return relay.On()
	}
	return relay.Off()
}

// Close opens every relay and releases the adaptor.
func (b *RelayBank) Close() error {
	for id, relay := range b.relays {
		if err := relay.Off(); err != nil {
			b.logger.Error("relay off failed during shutdown", "actuator", string(id), "error", err)
		}
	}
	return b.adaptor.Finalize()
}

// Buzzer is an optional audible alarm on a spare GPIO pin. It is not
// interlocked; the responder pulses it directly.
type Buzzer struct {
	driver *gpio.BuzzerDriver
}

// NewBuzzer prepares the buzzer driver on the given pin of an already
// connected bank.
func NewBuzzer(bank *RelayBank, pin string) (*Buzzer, error) {
	driver := gpio.NewBuzzerDriver(bank.adaptor, pin)
	if err := driver.Start(); err != nil {
		return nil, fmt.Errorf("start buzzer on pin %s: %w", pin, err)
	}
	return &Buzzer{driver: driver}, nil
}

// Pulse sounds count short beeps.
func (b *Buzzer) Pulse(count int) error {
	for i := 0; i < count; i++ {
		if err := b.driver.Tone(gpio.C5, gpio.Quarter); err != nil {
			return err
		}
		time.Sleep(300 * time.Millisecond)
	}
	return nil
}
