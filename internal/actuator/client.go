package actuator

import (
	"fmt"
	"log"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// ClientConfig holds MQTT broker connection settings.
type ClientConfig struct {
	Broker   string
	ClientID string
	Username string
	Password string
}

// Connect opens an auto-reconnecting connection to the broker.
func Connect(cfg ClientConfig) (mqtt.Client, error) {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)
	opts.SetUsername(cfg.Username)
	opts.SetPassword(cfg.Password)
	opts.SetOnConnectHandler(func(mqtt.Client) {
		log.Println("MQTT: Connection established")
	})
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		log.Printf("MQTT: Connection lost: %v", err)
	})
	opts.SetAutoReconnect(true)
	opts.SetKeepAlive(60 * time.Second)
	opts.SetPingTimeout(10 * time.Second)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("connecting to MQTT broker %s: %w", cfg.Broker, token.Error())
	}

	log.Printf("MQTT: Connected to broker %s", cfg.Broker)
	return client, nil
}
