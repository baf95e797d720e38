//go:build integration

package mqtt

import (
	"encoding/json"
	"testing"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
)

// These tests require a running MQTT broker at 127.0.0.1:1883.
//
// Run with:
//   go test -tags=integration -count=1 -v ./internal/infrastructure/mqtt/...

func TestIntegration_PublishEvent(t *testing.T) {
	cfg := testConfig()
	cfg.Broker.ClientID = "pmdesk-int-pub"

	client, err := Connect(cfg)
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer client.Close()

	if err := client.HealthCheck(t.Context()); err != nil {
		t.Fatalf("HealthCheck() error = %v", err)
	}

	subOpts := pahomqtt.NewClientOptions().AddBroker("tcp://127.0.0.1:1883").SetClientID("pmdesk-int-sub")
	sub := pahomqtt.NewClient(subOpts)
	if token := sub.Connect(); !token.WaitTimeout(5*time.Second) || token.Error() != nil {
		t.Fatalf("subscriber connect failed: %v", token.Error())
	}
	defer sub.Disconnect(250)

	received := make(chan []byte, 1)
	topic := client.Topics().Event("task", "update")
	token := sub.Subscribe(client.Topics().AllEvents(), 1, func(_ pahomqtt.Client, m pahomqtt.Message) {
		if m.Topic() == topic {
			select {
			case received <- m.Payload():
			default:
			}
		}
	})
	if !token.WaitTimeout(5*time.Second) || token.Error() != nil {
		t.Fatalf("subscribe failed: %v", token.Error())
	}

	if err := client.PublishJSON(topic, map[string]string{"id": "tsk-1"}, false); err != nil {
		t.Fatalf("PublishJSON() error = %v", err)
	}

	select {
	case payload := <-received:
		var got map[string]string
		if err := json.Unmarshal(payload, &got); err != nil || got["id"] != "tsk-1" {
			t.Errorf("payload = %s, %v", payload, err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for event")
	}
}

func TestIntegration_Callbacks(t *testing.T) {
	cfg := testConfig()
	cfg.Broker.ClientID = "pmdesk-int-callbacks"

	connected := make(chan struct{}, 1)
	client, err := Connect(cfg)
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	client.SetOnConnect(func() {
		select {
		case connected <- struct{}{}:
		default:
		}
	})
	client.SetOnDisconnect(func(error) {})

	if err := client.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	if client.IsConnected() {
		t.Error("IsConnected() = true after Close()")
	}
}
