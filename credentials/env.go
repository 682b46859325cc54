package credentials

import (
	"os"
	"strings"
)

type Environment interface {
	LookupEnv(key string) (string, bool)
}

type OSEnvironment struct{}

func (OSEnvironment) LookupEnv(key string) (string, bool) {
	return os.LookupEnv(key)
}

// MapEnvironment is a fixed environment, used by tests and bindings.
type MapEnvironment map[string]string

func (m MapEnvironment) LookupEnv(key string) (string, bool) {
	value, ok := m[key]
	return value, ok
}

func lookupNonEmpty(env Environment, key string) (string, bool) {
	if env == nil {
		return "", false
	}
	value, ok := env.LookupEnv(key)
	if !ok {
		return "", false
	}
	value = strings.TrimSpace(value)
	return value, value != ""
}
