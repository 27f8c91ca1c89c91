package structs

import (
	"github.com/oleiade/reflections"
	"github.com/pkg/errors"
)

// GetField returns the value of the provided obj field. obj can whether be a structure or pointer to structure.
func GetField(obj any, name string) (any, error) {
	v, err := reflections.GetField(obj, name)
	return v, errors.Wrapf(err, "could not get field %s", name)
}

// HasField returns true if obj has the given field, embedded structures included.
func HasField(obj any, name string) bool {
	ok, err := reflections.HasField(obj, name)
	return err == nil && ok
}

// Fields returns the exported field names of obj, embedded structures flattened.
func Fields(obj any) ([]string, error) {
	fields, err := reflections.FieldsDeep(obj)
	return fields, errors.Wrap(err, "could not list fields")
}

// Pick returns the given fields of obj.
func Pick(obj any, names ...string) (map[string]any, error) {
	values := make(map[string]any, len(names))
	for _, name := range names {
		v, err := GetField(obj, name)
		if err != nil {
			return nil, err
		}
		values[name] = v
	}
	return values, nil
}
