package config

const (
	// TopicMonitorResult is the NSQ topic carrying one delivery result per
	// processed monitor item.
	TopicMonitorResult = "monitor.result"
)
