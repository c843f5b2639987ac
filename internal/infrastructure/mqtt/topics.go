package mqtt

import "fmt"

// Topic prefixes for the StackPark MQTT hierarchy.
//
// Dashboard-facing topics live under stackpark/core, field-side topics
// under stackpark/field, process topics under stackpark/system.
const (
	// TopicPrefixCore is the base for core-published state and alerts.
	TopicPrefixCore = "stackpark/core"

	// TopicPrefixField is the base for field input and interlock topics.
	TopicPrefixField = "stackpark/field"

	// TopicPrefixSystem is the base for process status topics.
	TopicPrefixSystem = "stackpark/system"
)

// Topics provides builders for StackPark MQTT topics. Using these helpers
// keeps topic naming consistent across publisher and subscribers.
type Topics struct{}

// CoreSnapshot returns the retained state snapshot topic.
//
// Example: stackpark/core/snapshot
func (Topics) CoreSnapshot() string {
	return fmt.Sprintf("%s/snapshot", TopicPrefixCore)
}

// CoreCommand returns the topic operators publish commands to.
//
// Example: stackpark/core/command
func (Topics) CoreCommand() string {
	return fmt.Sprintf("%s/command", TopicPrefixCore)
}

// CoreCommandResult returns the topic command acknowledgements are
// published on.
//
// Example: stackpark/core/command/result
func (Topics) CoreCommandResult() string {
	return fmt.Sprintf("%s/command/result", TopicPrefixCore)
}

// CoreAlert returns the topic for safety and transaction alerts.
//
// Example: stackpark/core/alert/emergency
func (Topics) CoreAlert(kind string) string {
	return fmt.Sprintf("%s/alert/%s", TopicPrefixCore, kind)
}

// CoreTransaction returns the per-transaction event topic.
//
// Example: stackpark/core/transaction/9f6a…/completed
func (Topics) CoreTransaction(txID, event string) string {
	return fmt.Sprintf("%s/transaction/%s/%s", TopicPrefixCore, txID, event)
}

// SystemStatus returns the core process status topic (online/offline,
// Last Will target).
//
// Example: stackpark/system/status
func (Topics) SystemStatus() string {
	return fmt.Sprintf("%s/status", TopicPrefixSystem)
}

// AllFieldInputs returns the subscription pattern covering every field
// bridge topic. Bridges publish partial input updates on their own
// subtopics and the core merges them all.
//
// Pattern: stackpark/field/#
func (Topics) AllFieldInputs() string {
	return fmt.Sprintf("%s/#", TopicPrefixField)
}
