package model

// A Webhook represents a database record.
// Only its configuration is stored, deliveries are handled elsewhere.
type Webhook struct {
	Base `msgpack:",inline" storm:"inline"`

	Name        string `json:"name"        msgpack:"name"        storm:"unique"`
	Description string `json:"description" msgpack:"description"`
	URL         string `json:"url"         msgpack:"url"`
}
