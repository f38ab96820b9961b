/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package config provides the event-service configuration. The configuration
// is an explicit struct handed to the hub and connection constructors rather
// than process-wide settings.
package config

import (
	"io"
	"reflect"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/op/go-logging"
	"github.com/pkg/errors"
	"github.com/spf13/cast"
	"github.com/spf13/viper"
	"google.golang.org/grpc/keepalive"
)

var logger = logging.MustGetLogger("eventhub")

const (
	defaultConnectTimeout  = 3 * time.Second
	defaultResponseTimeout = 5 * time.Second
	defaultBufferSize      = 100
)

// EventConfig holds the timeouts and transport settings of one event hub.
type EventConfig struct {
	// ConnectTimeout is the time allowed for the deliver server to produce
	// the first response after a connect. Zero disables the timer.
	ConnectTimeout time.Duration `mapstructure:"connectTimeout"`

	// ReadTimeout cancels a connection that stops producing data.
	// Zero (the default) disables the timer.
	ReadTimeout time.Duration `mapstructure:"readTimeout"`

	// ResponseTimeout is the time to wait for a response to a local
	// request, such as stopping the dispatch loop.
	ResponseTimeout time.Duration `mapstructure:"responseTimeout"`

	// EventBufferSize is the size of the inbound stream event channel.
	EventBufferSize uint `mapstructure:"eventBufferSize"`

	// KeepAliveTime and KeepAliveTimeout are the GRPC keep-alive parameters.
	KeepAliveTime    time.Duration `mapstructure:"keepAliveTime"`
	KeepAliveTimeout time.Duration `mapstructure:"keepAliveTimeout"`

	// FailFast sets the GRPC fail-fast behavior on the deliver stream.
	FailFast bool `mapstructure:"failFast"`
}

// Default returns an EventConfig with default values
func Default() *EventConfig {
	return &EventConfig{
		ConnectTimeout:  defaultConnectTimeout,
		ResponseTimeout: defaultResponseTimeout,
		EventBufferSize: defaultBufferSize,
		FailFast:        true,
	}
}

// KeepAliveParams returns the GRPC keep-alive parameters derived from the config
func (c *EventConfig) KeepAliveParams() keepalive.ClientParameters {
	return keepalive.ClientParameters{
		Time:                c.KeepAliveTime,
		Timeout:             c.KeepAliveTimeout,
		PermitWithoutStream: true,
	}
}

// FromFile loads an EventConfig from the eventService section of the given
// YAML file. Missing keys retain their default values.
func FromFile(path string) (*EventConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, errors.Wrapf(err, "error reading config file %s", path)
	}
	return fromViper(v)
}

// FromReader loads an EventConfig from the eventService section of the given
// reader containing configuration in the specified format (e.g. "yaml").
func FromReader(in io.Reader, format string) (*EventConfig, error) {
	v := viper.New()
	v.SetConfigType(format)
	if err := v.ReadConfig(in); err != nil {
		return nil, errors.Wrap(err, "error reading config")
	}
	return fromViper(v)
}

func fromViper(v *viper.Viper) (*EventConfig, error) {
	cfg := Default()

	section := v.GetStringMap("eventService")
	if len(section) == 0 {
		logger.Debug("No eventService section found in config. Using defaults.")
		return cfg, nil
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			durationHook,
		),
		Result: cfg,
	})
	if err != nil {
		return nil, errors.Wrap(err, "error creating config decoder")
	}

	if err := decoder.Decode(section); err != nil {
		return nil, errors.Wrap(err, "error decoding eventService config")
	}
	return cfg, nil
}

// durationHook accepts numeric duration values (interpreted as milliseconds)
// in addition to the standard duration strings. Values already converted to
// a time.Duration by an earlier hook pass through unchanged.
func durationHook(from, to reflect.Type, data interface{}) (interface{}, error) {
	durationType := reflect.TypeOf(time.Duration(0))
	if to != durationType || from == durationType {
		return data, nil
	}
	switch from.Kind() {
	case reflect.Int, reflect.Int32, reflect.Int64, reflect.Float64:
		ms, err := cast.ToInt64E(data)
		if err != nil {
			return nil, err
		}
		return time.Duration(ms) * time.Millisecond, nil
	default:
		return data, nil
	}
}
