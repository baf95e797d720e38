// Package mqtt publishes pmdesk activity events to an MQTT broker.
//
// The connection is optional: the server runs without it, and when enabled
// every mutating API call is published as a JSON event so that other systems
// (chat bots, dashboards, integrations) can follow project activity.
//
// # Topics
//
//	{prefix}/events/{entity}/{action}   activity events, QoS from config
//	{prefix}/system/status              retained online/offline status (LWT)
//
// The prefix defaults to "pmdesk".
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	topic := client.Topics().Event("task", "update")
//	err = client.PublishJSON(topic, event, false)
//
// Reconnection uses paho's auto-reconnect with the configured delays.
package mqtt
