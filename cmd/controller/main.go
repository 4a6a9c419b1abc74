package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/secretengineer/GreenOS/internal/anomaly"
	"github.com/secretengineer/GreenOS/internal/calibration"
	"github.com/secretengineer/GreenOS/internal/controller"
	"github.com/secretengineer/GreenOS/internal/hardware"
	"github.com/secretengineer/GreenOS/internal/httpapi"
	"github.com/secretengineer/GreenOS/internal/models"
	"github.com/secretengineer/GreenOS/internal/mqtt"
	"github.com/secretengineer/GreenOS/internal/response"
	"github.com/secretengineer/GreenOS/internal/safety"
	"github.com/secretengineer/GreenOS/internal/sensors"
	"github.com/secretengineer/GreenOS/pkg/config"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)
	logger.Info("GreenOS controller starting")

	cfg := config.Load()
	thresholds, err := config.LoadThresholds(cfg.ThresholdsPath)
	if err != nil {
		logger.Error("thresholds file rejected", "error", err)
		os.Exit(1)
	}

	// Monotonic tick source. The core only ever sees these ticks, never
	// wall-clock time.
	start := time.Now()
	tick := func() int64 { return time.Since(start).Milliseconds() }

	// Calibration is loaded once at boot; corruption falls back to the
	// default record inside the store.
	calStore := calibration.NewStore(cfg.CalibrationPath, logger)
	calRecord := calStore.Load()
	converter := calibration.NewConverter(calRecord, cfg.ADCMaxValue)

	validator := sensors.NewValidator(thresholds, cfg.MaxConsecutiveErrors, converter, logger)
	classifier := anomaly.NewClassifier(thresholds, logger)

	var actuatorTransport safety.ActuatorTransport = safety.NopTransport{}
	var relayBank *hardware.RelayBank
	var alarm response.AlarmTransport
	if cfg.HardwareEnabled {
		relayBank, err = hardware.NewRelayBank(nil, logger)
		if err != nil {
			logger.Error("relay bank init failed", "error", err)
			os.Exit(1)
		}
		actuatorTransport = relayBank
		if cfg.BuzzerPin != "" {
			buzzer, err := hardware.NewBuzzer(relayBank, cfg.BuzzerPin)
			if err != nil {
				logger.Error("buzzer init failed", "error", err)
				os.Exit(1)
			}
			alarm = buzzer
		}
	} else {
		logger.Info("hardware disabled, relay writes are log-only")
	}

	engine := safety.NewEngine(cfg.MinCycleTimeMs, cfg.MaxPumpRunMs, actuatorTransport, logger)
	responder := response.NewResponder(engine, alarm, logger)
	ctrl := controller.New(validator, classifier, engine, responder, logger)

	// Input boundary: raw readings arrive from field nodes over MQTT.
	// Without a broker the controller runs in bench mode on a steady
	// scripted profile.
	var sensorTransport sensors.Transport
	var cloud *mqtt.Client
	if cfg.MQTTBroker != "" {
		cloud, err = mqtt.NewClient(mqtt.ClientConfig{
			Broker:         cfg.MQTTBroker,
			ClientID:       cfg.MQTTClientID,
			Username:       cfg.MQTTUsername,
			Password:       cfg.MQTTPassword,
			GreenhouseID:   cfg.GreenhouseID,
			TelemetryTopic: cfg.MQTTTopicTelemetry,
			AlertsTopic:    cfg.MQTTTopicAlerts,
			StatusTopic:    cfg.MQTTTopicStatus,
			CommandsTopic:  cfg.MQTTTopicCommands,
			ReadingsTopic:  cfg.MQTTTopicReadings,
			ConfigTopic:    cfg.MQTTTopicConfig,
		}, logger)
		if err != nil {
			logger.Error("MQTT init failed", "error", err)
			os.Exit(1)
		}
		defer cloud.Close()

		cloud.SetHandlers(mqtt.Handlers{
			OnCommand: func(id safety.ActuatorID, desired safety.State) {
				res := ctrl.Override(id, desired, tick())
				logger.Info("remote command handled",
					"actuator", string(id), "desired", string(desired),
					"applied", res.Applied, "reason", string(res.Reason))
			},
			OnConfig: func(payload []byte) {
				t, err := config.ParseThresholds(payload)
				if err != nil {
					logger.Warn("remote threshold update rejected", "error", err)
					return
				}
				ctrl.UpdateThresholds(t)
			},
		})
		if err := cloud.Subscribe(); err != nil {
			logger.Error("MQTT subscribe failed", "error", err)
			os.Exit(1)
		}

		ctrl.SetAlertFunc(func(c anomaly.Classification, snap models.Snapshot) {
			go func() {
				if err := cloud.PublishAlert(c.String(), c.Detail, snap); err != nil {
					logger.Warn("alert publish failed", "error", err)
				}
			}()
		})
		sensorTransport = cloud
	} else {
		logger.Info("no MQTT broker configured, running in bench mode")
		sensorTransport = &sensors.ScriptedTransport{Inputs: []models.RawInputs{{
			Climate: &models.ClimateRaw{CO2PPM: 450, TempC: 21, HumidityPct: 55},
			Soil:    &models.SoilRaw{MoisturePct: 35, TempC: 19, ECMSCm: 1.2, PH: 6.4},
		}}}
	}

	server := httpapi.New(cfg.HTTPAddr, ctrl, tick, logger)
	go func() {
		if err := server.Start(); err != nil {
			logger.Error("status API failed", "error", err)
		}
	}()

	pollTicker := time.NewTicker(time.Duration(cfg.SensorPollIntervalMs) * time.Millisecond)
	anomalyTicker := time.NewTicker(time.Duration(cfg.AnomalyCheckIntervalMs) * time.Millisecond)
	syncTicker := time.NewTicker(time.Duration(cfg.TelemetrySyncIntervalMs) * time.Millisecond)
	defer pollTicker.Stop()
	defer anomalyTicker.Stop()
	defer syncTicker.Stop()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	logger.Info("GreenOS controller running",
		"greenhouse", cfg.GreenhouseID, "http", cfg.HTTPAddr,
		"hardware", cfg.HardwareEnabled)

	for {
		select {
		case <-pollTicker.C:
			now := tick()
			raw, err := sensorTransport.Poll(now)
			if err != nil {
				// No data yet is not a failed transaction; skip the cycle.
				logger.Debug("sensor poll skipped", "error", err)
				continue
			}
			raw.HourUTC = time.Now().UTC().Hour()
			ctrl.Poll(raw)

		case <-anomalyTicker.C:
			ctrl.Evaluate(tick())

		case <-syncTicker.C:
			if cloud == nil {
				continue
			}
			if err := cloud.PublishTelemetry(ctrl.Snapshot()); err != nil {
				logger.Warn("telemetry publish failed", "error", err)
			}
			if err := cloud.PublishStatus(ctrl.Actuators(), ctrl.Commands()); err != nil {
				logger.Warn("status publish failed", "error", err)
			}

		case <-sigChan:
			logger.Info("shutting down")
			ctrl.StopAll(tick())
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			_ = server.Shutdown(ctx)
			cancel()
			if relayBank != nil {
				_ = relayBank.Close()
			}
			return
		}
	}
}
