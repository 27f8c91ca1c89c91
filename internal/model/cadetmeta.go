package model

// A CadetMeta represents a database record.
// It holds free-form staff notes about a cadet.
type CadetMeta struct {
	Base `msgpack:",inline" storm:"inline"`

	Login string `json:"login" msgpack:"login" storm:"unique"`
	Note  string `json:"note"  msgpack:"note"`
}
