package mqtt

import (
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"luminaria-extractor/config"
	"luminaria-extractor/internal/core/models"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	log "github.com/sirupsen/logrus"
)

const (
	statusOnline  = "online"
	statusOffline = "offline"
)

// Client veröffentlicht konsolidierte Datensätze an einen MQTT-Broker
type Client struct {
	config      config.MQTTConfig
	client      mqtt.Client
	isConnected atomic.Bool
}

// LuminariaMessage ist die veröffentlichte Form eines Datensatzes
type LuminariaMessage struct {
	ID             string              `json:"id"`
	Coincidencia   models.Coincidencia `json:"coincidencia"`
	TipoIluminaria *string             `json:"tipoIluminaria"`
	Watts          *int                `json:"watts"`
	Aprobado       bool                `json:"aprobado"`
	Codes          []string            `json:"codes"`
	ImageIDs       []string            `json:"imageIds"`
	SourceURLs     []string            `json:"sourceUrls"`
	Timestamp      time.Time           `json:"timestamp"`
}

// NewClient erstellt einen neuen MQTT-Client
func NewClient(cfg config.MQTTConfig) *Client {
	return &Client{config: cfg}
}

// Topic liefert ein Unterthema des konfigurierten Basisthemas
func (c *Client) Topic(sub string) string {
	return fmt.Sprintf("%s/%s", c.config.Topic, sub)
}

// Start startet den MQTT-Client und verbindet ihn mit dem Broker
func (c *Client) Start() error {
	if !c.config.Enabled {
		log.Info("MQTT client is disabled in configuration")
		return nil
	}

	opts := mqtt.NewClientOptions()

	brokerURL := fmt.Sprintf("tcp://%s:%d", c.config.Broker, c.config.Port)
	opts.AddBroker(brokerURL)
	opts.SetClientID(c.config.ClientID)

	if c.config.Username != "" {
		opts.SetUsername(c.config.Username)
		opts.SetPassword(c.config.Password)
	}

	// Broker meldet "offline", wenn die Verbindung abreißt
	opts.SetWill(c.Topic("status"), statusOffline, 1, true)

	opts.SetOnConnectHandler(c.onConnectHandler)
	opts.SetConnectionLostHandler(c.connectionLostHandler)

	opts.SetAutoReconnect(true)
	opts.SetMaxReconnectInterval(1 * time.Minute)

	c.client = mqtt.NewClient(opts)

	log.Infof("Connecting to MQTT broker at %s", brokerURL)
	if token := c.client.Connect(); token.Wait() && token.Error() != nil {
		log.Errorf("Failed to connect to MQTT broker: %v", token.Error())
		return token.Error()
	}

	log.Info("MQTT client connected successfully")
	return nil
}

// Stop beendet den MQTT-Client
func (c *Client) Stop() {
	if c.client != nil && c.client.IsConnected() {
		log.Info("Disconnecting MQTT client...")
		if err := c.PublishRetain(c.Topic("status"), statusOffline); err != nil {
			log.Warnf("Failed to publish offline status: %v", err)
		}
		c.client.Disconnect(250) // 250ms Wartezeit
		c.isConnected.Store(false)
		log.Info("MQTT client disconnected")
	}
}

// IsConnected prüft, ob der Client verbunden ist
func (c *Client) IsConnected() bool {
	return c.client != nil && c.client.IsConnected()
}

func (c *Client) onConnectHandler(client mqtt.Client) {
	log.Infof("Connected to MQTT broker at %s:%d", c.config.Broker, c.config.Port)
	c.isConnected.Store(true)

	token := client.Publish(c.Topic("status"), 1, true, statusOnline)
	if token.Wait() && token.Error() != nil {
		log.Errorf("Failed to publish online status: %v", token.Error())
	}
}

func (c *Client) connectionLostHandler(client mqtt.Client, err error) {
	log.Errorf("MQTT connection lost: %v", err)
	c.isConnected.Store(false)
}

// PublishLuminaria veröffentlicht einen Datensatz unter <topic>/luminarias.
// Ist MQTT deaktiviert, passiert nichts.
func (c *Client) PublishLuminaria(l models.Luminaria) error {
	if !c.config.Enabled {
		return nil
	}
	return c.Publish(c.Topic("luminarias"), NewLuminariaMessage(l, time.Now()))
}

// NewLuminariaMessage baut die Nachricht für einen Datensatz
func NewLuminariaMessage(l models.Luminaria, now time.Time) LuminariaMessage {
	msg := LuminariaMessage{
		ID:             l.ID,
		Coincidencia:   l.Coincidencia,
		TipoIluminaria: l.TipoIluminaria,
		Watts:          l.Watts,
		Aprobado:       l.Aprobado,
		Codes:          make([]string, 0, len(l.Images)),
		ImageIDs:       make([]string, 0, len(l.Images)),
		SourceURLs:     make([]string, 0, len(l.Images)),
		Timestamp:      now,
	}
	for _, img := range l.Images {
		code := ""
		if img.ExtractedCode != nil {
			code = *img.ExtractedCode
		}
		msg.Codes = append(msg.Codes, code)
		msg.ImageIDs = append(msg.ImageIDs, img.ID)
		msg.SourceURLs = append(msg.SourceURLs, img.SourceURL)
	}
	return msg
}

// PublishMessage veröffentlicht eine Nachricht an ein MQTT-Topic
func (c *Client) PublishMessage(topic string, payload interface{}, retain bool) error {
	if !c.IsConnected() {
		return fmt.Errorf("MQTT client is not connected")
	}

	var payloadBytes []byte
	var err error

	switch p := payload.(type) {
	case string:
		payloadBytes = []byte(p)
	case []byte:
		payloadBytes = p
	default:
		payloadBytes, err = json.Marshal(p)
		if err != nil {
			return fmt.Errorf("failed to marshal payload to JSON: %w", err)
		}
	}

	token := c.client.Publish(topic, 1, retain, payloadBytes)
	if token.Wait() && token.Error() != nil {
		return fmt.Errorf("failed to publish message to topic %s: %w", topic, token.Error())
	}

	log.Debugf("Published message to topic: %s", topic)
	return nil
}

// PublishRetain veröffentlicht eine Nachricht mit dem Retain-Flag
func (c *Client) PublishRetain(topic string, payload interface{}) error {
	return c.PublishMessage(topic, payload, true)
}

// Publish veröffentlicht eine Nachricht ohne Retain-Flag
func (c *Client) Publish(topic string, payload interface{}) error {
	return c.PublishMessage(topic, payload, false)
}
