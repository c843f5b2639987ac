// Package mqtt provides the MQTT transport for StackPark Core.
//
// The core publishes a retained state snapshot and alerts for the
// operator dashboard, and consumes operator commands and field input
// updates. Connection loss is handled with automatic reconnection and
// subscription restoration; a Last Will message flags unexpected
// offline transitions on the system status topic.
package mqtt
