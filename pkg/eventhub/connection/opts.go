/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package connection

import (
	"crypto/tls"
	"time"

	"google.golang.org/grpc/keepalive"

	"github.com/securekey/fabric-channel-events/pkg/common/options"
)

type params struct {
	connectTimeout  time.Duration
	keepAliveParams keepalive.ClientParameters
	failFast        bool
	insecure        bool
	tlsConfig       *tls.Config
}

func defaultParams() *params {
	return &params{
		connectTimeout: 3 * time.Second,
		failFast:       true,
		insecure:       true,
	}
}

// WithConnectTimeout sets the timeout for establishing the gRPC connection
func WithConnectTimeout(value time.Duration) options.Opt {
	return func(p options.Params) {
		if setter, ok := p.(connectTimeoutSetter); ok {
			setter.SetConnectTimeout(value)
		}
	}
}

// WithKeepAliveParams sets the gRPC keep-alive parameters
func WithKeepAliveParams(value keepalive.ClientParameters) options.Opt {
	return func(p options.Params) {
		if setter, ok := p.(keepAliveParamsSetter); ok {
			setter.SetKeepAliveParams(value)
		}
	}
}

// WithFailFast sets the gRPC fail-fast parameter
func WithFailFast(value bool) options.Opt {
	return func(p options.Params) {
		if setter, ok := p.(failFastSetter); ok {
			setter.SetFailFast(value)
		}
	}
}

// WithTLSConfig sets the TLS configuration used to dial the peer. If not
// provided then the connection is insecure.
func WithTLSConfig(value *tls.Config) options.Opt {
	return func(p options.Params) {
		if setter, ok := p.(tlsConfigSetter); ok {
			setter.SetTLSConfig(value)
		}
	}
}

type connectTimeoutSetter interface {
	SetConnectTimeout(value time.Duration)
}

type keepAliveParamsSetter interface {
	SetKeepAliveParams(value keepalive.ClientParameters)
}

type failFastSetter interface {
	SetFailFast(value bool)
}

type tlsConfigSetter interface {
	SetTLSConfig(value *tls.Config)
}

func (p *params) SetConnectTimeout(value time.Duration) {
	logger.Debugf("ConnectTimeout: %s", value)
	p.connectTimeout = value
}

func (p *params) SetKeepAliveParams(value keepalive.ClientParameters) {
	logger.Debugf("KeepAliveParams: %#v", value)
	p.keepAliveParams = value
}

func (p *params) SetFailFast(value bool) {
	logger.Debugf("FailFast: %t", value)
	p.failFast = value
}

func (p *params) SetTLSConfig(value *tls.Config) {
	p.tlsConfig = value
	p.insecure = value == nil
}
