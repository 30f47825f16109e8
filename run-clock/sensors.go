package main

import (
	"fmt"
	"log"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/net/trace"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/devices/v3/bmxx80"
)

var (
	roomTemperature = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "room_temperature_celsius",
		Help: "Temperature at the bedside, from the BME280.",
	})
	roomHumidity = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "room_humidity_percent",
		Help: "Relative humidity at the bedside, from the BME280.",
	})
	roomPressure = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "room_pressure_pascal",
		Help: "Barometric pressure at the bedside, from the BME280.",
	})
)

// monitorSensors starts reading the environmental sensor in the background.
func monitorSensors(bus i2c.Bus, addr uint16) error {
	dev, err := bmxx80.NewI2C(bus, addr, &bmxx80.Opts{Temperature: bmxx80.O16x, Pressure: bmxx80.O16x, Humidity: bmxx80.O16x})
	if err != nil {
		return fmt.Errorf("init bme280 at %#x: %w", addr, err)
	}
	go func() {
		l := trace.NewEventLog("sensor", "environment")
		defer l.Finish()
		log.Printf("starting bme280 loop")
		first := true
		for {
			if first {
				first = false
			} else {
				time.Sleep(30 * time.Second)
			}
			var e physic.Env
			if err := dev.Sense(&e); err != nil {
				l.Errorf("read environment: %v", err)
				continue
			}
			l.Printf("temperature: %v, humidity: %v, pressure: %v", e.Temperature, e.Humidity, e.Pressure)
			roomTemperature.Set(e.Temperature.Celsius())
			roomHumidity.Set(float64(e.Humidity) / float64(physic.PercentRH))
			roomPressure.Set(float64(e.Pressure) / float64(physic.Pascal))
		}
	}()
	return nil
}
