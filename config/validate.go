package config

import (
	"errors"
	"fmt"

	"go.uber.org/multierr"
)

// ErrNilConfig 配置为空
var ErrNilConfig = errors.New("config: config is nil")

type section struct {
	name     string
	validate func() error
}

func validateSections(sections ...section) error {
	var err error
	for _, s := range sections {
		if e := s.validate(); e != nil {
			err = multierr.Append(err, fmt.Errorf("%s: %w", s.name, e))
		}
	}
	return err
}

// ValidateAll 验证整个配置的有效性
//
// 这是 Config.Validate() 的别名，额外处理 nil 配置。
func ValidateAll(c *Config) error {
	if c == nil {
		return ErrNilConfig
	}
	return c.Validate()
}

// Problems 返回配置的所有问题，配置有效时返回 nil
func Problems(c *Config) []error {
	return multierr.Errors(ValidateAll(c))
}
