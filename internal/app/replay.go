package app

import (
	"errors"
	"fmt"
	"io"
	"log"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/gnss_computer/internal/config"
	"github.com/relabs-tech/gnss_computer/internal/gnss"
	"github.com/relabs-tech/gnss_computer/internal/transport"
)

// RunReplay feeds a recorded NMEA trace through the decoder, runs the
// configured fusion algorithm over the final state and publishes the result
// once. Useful for regression-checking receiver logs without hardware.
// An empty path falls back to GNSS_REPLAY_FILE.
func RunReplay(path string) error {
	cfg := config.Get()

	if path == "" {
		path = cfg.GNSSReplayFile
	}
	if path == "" {
		return fmt.Errorf("no replay file given and GNSS_REPLAY_FILE is not set")
	}

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTTBroker).
		SetClientID(cfg.MQTTClientIDReplay)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	log.Printf("replay connected to MQTT broker at %s", cfg.MQTTBroker)
	defer client.Disconnect(250)

	source, err := transport.OpenFile(path)
	if err != nil {
		return err
	}
	defer source.Close()
	log.Printf("replaying GNSS trace from %s", path)

	parser := gnss.NewParser()
	applyAccuracyOverrides(parser, cfg)

	lines := 0
	for {
		line, err := source.ReadSentence()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return err
		}
		if cfg.StrictChecksum && !transport.ValidSentence(line) {
			continue
		}
		parser.Feed(line)
		lines++
	}
	log.Printf("replayed %d sentences", lines)

	fuseAndPublish(client, cfg, parser)
	return nil
}
