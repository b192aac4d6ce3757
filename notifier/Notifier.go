package notifier

// Notification carries an event from the central system towards whatever
// transport the configured notifier publishes on.
type Notification struct {
	Topic string
	Data  map[string]interface{}
}
