// Package mqtt provides the worker's long-lived session to the message bus.
//
// It wraps github.com/eclipse/paho.mqtt.golang with:
//
//   - Connection management with auto-reconnect and exponential backoff
//   - Subscription tracking and automatic re-subscription after reconnect
//   - Panic-isolated message handlers (a failing handler never terminates
//     the session or affects other messages)
//   - Publish with acknowledgment timeout
//   - Last Will and Testament plus retained online/offline status on
//     sentinel/worker/status
//   - Topic builders for the worker's topic tree (see topics.go)
//
// Message delivery is callback-driven: handlers run in paho goroutines and
// may be invoked concurrently, including during backlog replay after a
// reconnect. Handlers must be safe for concurrent use.
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	topics := mqtt.Topics{}
//	client.Subscribe(topics.Motion(), 1, router.Handle)
package mqtt
