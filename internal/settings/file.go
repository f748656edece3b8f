package settings

import (
	"context"
	"fmt"

	"github.com/spf13/viper"
)

// FileSource serves overrides from a YAML file. Keys use ":" as the nesting delimiter, so
// SLA:CM:P1:ResponseMinutes maps to
//
//	SLA:
//	  CM:
//	    P1:
//	      ResponseMinutes: 90
type FileSource struct {
	v *viper.Viper
}

// NewFileSource loads path once. An empty path yields a source that defines nothing.
func NewFileSource(path string) (*FileSource, error) {
	v := viper.NewWithOptions(viper.KeyDelimiter(":"))
	if path == "" {
		return &FileSource{v: v}, nil
	}
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read settings file failed: %w", err)
	}
	return &FileSource{v: v}, nil
}

func (s *FileSource) Lookup(_ context.Context, key string) (string, bool, error) {
	if !s.v.IsSet(key) {
		return "", false, nil
	}
	return s.v.GetString(key), true, nil
}
