package mqtt

import "fmt"

// TopicPrefixViewer is the base for every topic the viewer publishes or consumes.
const TopicPrefixViewer = "graylogic/viewer"

// Topics provides builders for viewer MQTT topics.
//
//	topic := mqtt.Topics{}.DeviceChanged()
//	// Returns: "graylogic/viewer/devices/changed"
type Topics struct{}

// ViewerStatus is the retained online/offline status topic (also the LWT).
//
// Example: graylogic/viewer/status
func (Topics) ViewerStatus() string {
	return fmt.Sprintf("%s/status", TopicPrefixViewer)
}

// DeviceChanged carries device create/update/delete notifications between
// viewer instances sharing one device database.
//
// Example: graylogic/viewer/devices/changed
func (Topics) DeviceChanged() string {
	return fmt.Sprintf("%s/devices/changed", TopicPrefixViewer)
}

// ViewerEvent returns the topic for named viewer events such as camera
// transitions or asset load failures.
//
// Example: graylogic/viewer/event/asset_fallback
func (Topics) ViewerEvent(eventType string) string {
	return fmt.Sprintf("%s/event/%s", TopicPrefixViewer, eventType)
}

// AllViewerEvents matches every ViewerEvent topic.
//
// Pattern: graylogic/viewer/event/+
func (Topics) AllViewerEvents() string {
	return fmt.Sprintf("%s/event/+", TopicPrefixViewer)
}
