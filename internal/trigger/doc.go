// Package trigger receives sensor triggers over MQTT.
//
// Decode turns a message body into a Payload of optional telemetry; anything
// that is not a JSON object is a malformed trigger. Subscriber keeps a paho
// client subscribed to the trigger topic across reconnects and hands every
// message body to a MessageHandler. Publish sends a single trigger, which the
// CLI uses to exercise a running daemon.
package trigger
