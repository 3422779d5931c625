// Package mqtt provides MQTT client connectivity for the cast bridge.
//
// This package manages:
//   - Connection to the broker with auto-reconnect
//   - Message publishing with QoS
//   - Topic subscriptions, restored after every reconnect
//   - Last Will and Testament (LWT) on the bridge status topic
//
// The bridge talks to the home-automation hub exclusively over this client:
//
//	Cast HTTP service ↔ Cast Bridge ↔ MQTT Broker ↔ Hub
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	err = client.Subscribe(commandTopic, 1, func(topic string, payload []byte) error {
//	    return router.Handle(topic, payload)
//	})
package mqtt
