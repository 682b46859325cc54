package devkit

import (
	"encoding/json"
	"fmt"
)

// JSON scripts a response with a JSON body. body may be a string holding raw
// JSON or any value encoding/json can marshal.
func JSON(status int, body any) TransportScript {
	var raw []byte
	switch typed := body.(type) {
	case nil:
	case string:
		raw = []byte(typed)
	case []byte:
		raw = typed
	default:
		encoded, err := json.Marshal(typed)
		if err != nil {
			panic(fmt.Sprintf("devkit: marshal fixture body: %v", err))
		}
		raw = encoded
	}
	return TransportScript{Response: coreResponse(status, raw)}
}

// Status scripts an empty response with the given status code.
func Status(status int) TransportScript {
	return TransportScript{Response: coreResponse(status, nil)}
}

// Failure scripts a transport-level error.
func Failure(err error) TransportScript {
	return TransportScript{Err: err}
}
