package app

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/gnss_computer/internal/config"
	"github.com/relabs-tech/gnss_computer/internal/gnss"
)

// printFusedBox renders one fused-position report.
func printFusedBox(f gnss.FusedPosition) {
	fmt.Println("┌─ FUSED POSITION ──────────────────────────────────────────────┐")
	fmt.Printf("│ Latitude:         %.7f°\n", f.Latitude)
	fmt.Printf("│ Longitude:        %.7f°\n", f.Longitude)
	fmt.Printf("│ Altitude:         %.2f m\n", f.Altitude)
	fmt.Printf("│ Horizontal Acc:   %.2f m\n", f.HorizontalAccuracy)
	fmt.Printf("│ Vertical Acc:     %.2f m\n", f.VerticalAccuracy)
	fmt.Printf("│ Contributing:     %v\n", f.Constellations)
	fmt.Println("└───────────────────────────────────────────────────────────────┘")
}

// RunConsole subscribes to the fused-position and constellation topics and
// prints live updates until interrupted.
func RunConsole() error {
	cfg := config.Get()

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTTBroker).
		SetClientID(cfg.MQTTClientIDConsole)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	log.Printf("console: connected to MQTT broker at %s", cfg.MQTTBroker)

	// Subscribe to fused positions
	fusedToken := client.Subscribe(cfg.TopicFused, 0, func(_ mqtt.Client, msg mqtt.Message) {
		var f gnss.FusedPosition
		if err := json.Unmarshal(msg.Payload(), &f); err != nil {
			log.Printf("console: fused unmarshal error: %v", err)
			return
		}

		printFusedBox(f)
	})
	fusedToken.Wait()
	if fusedToken.Error() != nil {
		return fusedToken.Error()
	}
	log.Printf("console: subscribed to %s", cfg.TopicFused)

	// Subscribe to constellation snapshots
	snapToken := client.Subscribe(cfg.TopicConstellations, 0, func(_ mqtt.Client, msg mqtt.Message) {
		var s gnss.Snapshot
		if err := json.Unmarshal(msg.Payload(), &s); err != nil {
			log.Printf("console: snapshot unmarshal error: %v", err)
			return
		}

		for _, sys := range s.Systems {
			if sys.Latitude == nil || sys.Longitude == nil {
				fmt.Printf("[GNSS]  %-8s sats=%2d  no fix\n",
					sys.Constellation, len(sys.Satellites))
				continue
			}
			hdop := "-"
			if sys.HDOP != nil {
				hdop = fmt.Sprintf("%.1f", *sys.HDOP)
			}
			fmt.Printf(
				"[GNSS]  %-8s sats=%2d  lat=%.6f lon=%.6f  hdop=%s  nom=%.1fm\n",
				sys.Constellation, len(sys.Satellites),
				*sys.Latitude, *sys.Longitude, hdop, sys.NominalAccuracy,
			)
		}
	})
	snapToken.Wait()
	if snapToken.Error() != nil {
		return snapToken.Error()
	}
	log.Printf("console: subscribed to %s", cfg.TopicConstellations)

	// Wait for Ctrl+C
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	log.Println("console: shutting down")
	client.Disconnect(250)
	return nil
}
