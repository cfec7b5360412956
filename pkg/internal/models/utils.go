package models

import jsoniter "github.com/json-iterator/go"

// FitStruct converts src into out through their json representation.
func FitStruct(src any, out any) error {
	raw, err := jsoniter.Marshal(src)
	if err != nil {
		return err
	}
	return jsoniter.Unmarshal(raw, out)
}
