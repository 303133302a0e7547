package session

import jsoniter "github.com/json-iterator/go"

var json = jsoniter.ConfigCompatibleWithStandardLibrary

func decodeJSON(payload []byte, v interface{}) error {
	return json.Unmarshal(payload, v)
}
