// Package mqtt provides MQTT client connectivity for the device viewer.
//
// Viewer instances that share a device database use the broker to tell each
// other when the device list changes, so every instance's scene stays in sync.
//
// This package manages:
//   - Connection to the broker with auto-reconnect
//   - Message publishing with QoS guarantees
//   - Topic subscriptions with wildcard support
//   - Last Will and Testament (LWT) for offline detection
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	err = client.Subscribe(mqtt.Topics{}.DeviceChanged(), 1,
//	    func(topic string, payload []byte) error {
//	        return feed.HandleMessage(ctx, payload)
//	    })
//
// TLS should be enabled outside local development (cfg.Broker.TLS=true).
package mqtt
