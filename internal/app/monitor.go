package app

import (
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/gnss_computer/internal/config"
	"github.com/relabs-tech/gnss_computer/internal/gnss"
	"github.com/relabs-tech/gnss_computer/internal/transport"
)

// RunMonitor reads NMEA sentences from the configured receiver, feeds them
// through the multi-constellation decoder, periodically fuses the
// per-constellation fixes and publishes both the fused position and the full
// constellation snapshot as JSON over MQTT.
func RunMonitor() error {
	cfg := config.Get()

	// ---- 1) Connect to MQTT broker ----
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTTBroker).
		SetClientID(cfg.MQTTClientIDMonitor)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	log.Printf("GNSS monitor connected to MQTT broker at %s", cfg.MQTTBroker)
	defer client.Disconnect(250)

	// ---- 2) Open the receiver ----
	source, err := openSource(cfg)
	if err != nil {
		return err
	}
	defer source.Close()

	parser := gnss.NewParser()
	applyAccuracyOverrides(parser, cfg)

	// The decode loop and the fusion ticker share the parser.
	var mu sync.Mutex

	done := make(chan struct{})
	defer close(done)

	ticker := time.NewTicker(time.Duration(cfg.FusionIntervalMS) * time.Millisecond)
	defer ticker.Stop()

	go func() {
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				mu.Lock()
				fuseAndPublish(client, cfg, parser)
				mu.Unlock()
			}
		}
	}()

	// ---- 3) Decode loop ----
	for {
		line, err := source.ReadSentence()
		if err != nil {
			log.Printf("GNSS read error: %v", err)
			return err
		}

		if cfg.StrictChecksum && !transport.ValidSentence(line) {
			continue
		}

		mu.Lock()
		parser.Feed(line)
		mu.Unlock()
	}
}

// openSource picks the receiver transport configured in GNSS_TRANSPORT.
func openSource(cfg *config.Config) (transport.Source, error) {
	switch cfg.GNSSTransport {
	case "serial":
		log.Printf("opening GNSS serial port %s at %d baud", cfg.GNSSSerialPort, cfg.GNSSBaudRate)
		return transport.OpenSerial(cfg.GNSSSerialPort, uint(cfg.GNSSBaudRate))
	case "i2c":
		log.Printf("opening GNSS receiver on I2C bus %q addr 0x%02X", cfg.GNSSI2CBus, cfg.GNSSI2CAddr)
		return transport.OpenI2C(cfg.GNSSI2CBus, cfg.GNSSI2CAddr)
	case "file":
		log.Printf("replaying GNSS trace from %s", cfg.GNSSReplayFile)
		return transport.OpenFile(cfg.GNSSReplayFile)
	default:
		return nil, fmt.Errorf("unknown GNSS transport %q", cfg.GNSSTransport)
	}
}

// applyAccuracyOverrides installs the per-constellation and global accuracy
// values from the config file; zero values keep the built-in defaults.
func applyAccuracyOverrides(parser *gnss.Parser, cfg *config.Config) {
	overrides := map[gnss.Constellation]float64{
		gnss.GPS:     cfg.AccuracyGPS,
		gnss.GLONASS: cfg.AccuracyGLONASS,
		gnss.GALILEO: cfg.AccuracyGALILEO,
		gnss.BEIDOU:  cfg.AccuracyBEIDOU,
	}
	for _, c := range gnss.Constellations() {
		meters := overrides[c]
		if meters <= 0 {
			continue
		}
		parser.SetNominalAccuracy(c.String(), meters)
	}
	if cfg.GlobalAccuracy > 0 {
		parser.SetFusedAccuracy(cfg.GlobalAccuracy)
	}
}

// fuseAndPublish runs the configured fusion algorithm once and publishes the
// fused position and the constellation snapshot. Callers hold the parser lock.
func fuseAndPublish(client mqtt.Client, cfg *config.Config, parser *gnss.Parser) {
	if cfg.FusionAlgorithm == "advanced" {
		parser.FuseAdvanced()
	} else {
		parser.FuseSimple()
	}

	snapshot := parser.Snapshot()
	if payload, err := json.Marshal(snapshot); err != nil {
		log.Printf("snapshot JSON marshal error: %v", err)
	} else {
		token := client.Publish(cfg.TopicConstellations, 0, true, payload)
		token.Wait()
		if token.Error() != nil {
			log.Printf("snapshot publish error: %v", token.Error())
		}
	}

	fused, ok := parser.Fused()
	if !ok {
		log.Println("no fused position yet")
		return
	}

	payload, err := json.Marshal(fused)
	if err != nil {
		log.Printf("fused JSON marshal error: %v", err)
		return
	}

	token := client.Publish(cfg.TopicFused, 0, true, payload)
	token.Wait()
	if token.Error() != nil {
		log.Printf("fused publish error: %v", token.Error())
		return
	}

	log.Printf("published fused position: lat=%.6f lon=%.6f hAcc=%.2fm vAcc=%.2fm (%v)",
		fused.Latitude, fused.Longitude,
		fused.HorizontalAccuracy, fused.VerticalAccuracy, fused.Constellations)
	logDivergence(snapshot, fused)
}
