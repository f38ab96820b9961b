/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package connection manages the gRPC stream to the peer's event delivery
// service. A connection is single-use; after it is closed a new one must be
// created.
package connection

import (
	"context"
	"io"
	"strings"
	"sync/atomic"

	cb "github.com/hyperledger/fabric-protos-go/common"
	pb "github.com/hyperledger/fabric-protos-go/peer"
	"github.com/op/go-logging"
	"github.com/pkg/errors"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"

	"github.com/securekey/fabric-channel-events/pkg/common/options"
	"github.com/securekey/fabric-channel-events/pkg/eventhub/api"
)

var logger = logging.MustGetLogger("eventhub")

// deliverStream is satisfied by both the Deliver and DeliverFiltered client
// streams
type deliverStream interface {
	grpc.ClientStream
	Send(env *cb.Envelope) error
	Recv() (*pb.DeliverResponse, error)
}

// Connection is a gRPC connection to the peer's deliver service
type Connection struct {
	channelID string
	url       string
	conn      *grpc.ClientConn
	stream    deliverStream
	cancel    context.CancelFunc
	done      int32
}

// New dials the event delivery endpoint of the given peer and opens a
// deliver stream. If fullBlock is true then the stream delivers full blocks,
// otherwise filtered blocks.
func New(channelID string, peer api.Peer, fullBlock bool, opts ...options.Opt) (api.Connection, error) {
	if peer == nil || peer.URL() == "" {
		return nil, errors.New("peer is required")
	}

	p := defaultParams()
	options.Apply(p, opts)

	url := peer.URL()
	logger.Debugf("Connecting to %s...", url)

	ctx, cancel := context.WithCancel(context.Background())

	conn, err := dial(ctx, url, p)
	if err != nil {
		cancel()
		return nil, errors.WithMessage(err, "could not connect to "+url)
	}

	stream, err := newStream(ctx, conn, fullBlock)
	if err != nil {
		cancel()
		if errConn := conn.Close(); errConn != nil {
			logger.Warningf("Error closing gRPC connection: %s", errConn)
		}
		return nil, errors.WithMessage(err, "could not create stream to "+url)
	}

	return &Connection{
		channelID: channelID,
		url:       url,
		conn:      conn,
		stream:    stream,
		cancel:    cancel,
	}, nil
}

func dial(ctx context.Context, url string, p *params) (*grpc.ClientConn, error) {
	grpcOpts := []grpc.DialOption{
		grpc.WithBlock(),
		grpc.WithDefaultCallOptions(grpc.WaitForReady(!p.failFast)),
	}
	if p.keepAliveParams.Time > 0 || p.keepAliveParams.Timeout > 0 {
		grpcOpts = append(grpcOpts, grpc.WithKeepaliveParams(p.keepAliveParams))
	}
	if p.insecure {
		grpcOpts = append(grpcOpts, grpc.WithInsecure())
	} else {
		grpcOpts = append(grpcOpts, grpc.WithTransportCredentials(credentials.NewTLS(p.tlsConfig)))
	}

	dialCtx, dialCancel := context.WithTimeout(ctx, p.connectTimeout)
	defer dialCancel()

	return grpc.DialContext(dialCtx, toAddress(url), grpcOpts...)
}

func newStream(ctx context.Context, conn *grpc.ClientConn, fullBlock bool) (deliverStream, error) {
	client := pb.NewDeliverClient(conn)
	if fullBlock {
		return client.Deliver(ctx)
	}
	return client.DeliverFiltered(ctx)
}

// Send sends the given signed seek envelope to the deliver server
func (c *Connection) Send(env *cb.Envelope) error {
	if c.Closed() {
		return errors.New("connection is closed")
	}
	return c.stream.Send(env)
}

// Receive reads deliver responses from the stream and posts them to eventch
// until the stream ends. Stream failures are posted as *api.Disconnected.
func (c *Connection) Receive(eventch chan<- interface{}) {
	for {
		in, err := c.stream.Recv()
		if c.Closed() {
			logger.Debugf("The connection to %s has closed. Terminating stream listener.", c.url)
			return
		}
		if err == io.EOF {
			// The server closed the stream without a terminating status
			eventch <- &api.Disconnected{Err: errors.New("event stream has closed")}
			return
		}
		if err != nil {
			logger.Warningf("Received error from stream: [%s]. Sending disconnected event.", err)
			eventch <- &api.Disconnected{Err: err}
			return
		}
		eventch <- in
	}
}

// Close closes the connection. Close is idempotent.
func (c *Connection) Close() {
	if !atomic.CompareAndSwapInt32(&c.done, 0, 1) {
		logger.Debug("Already closed")
		return
	}

	logger.Debugf("Closing connection to %s...", c.url)

	if err := c.stream.CloseSend(); err != nil {
		logger.Warningf("Error closing stream: %s", err)
	}
	c.cancel()
	if err := c.conn.Close(); err != nil {
		logger.Warningf("Error closing gRPC connection: %s", err)
	}
}

// Closed returns true if the connection has been closed
func (c *Connection) Closed() bool {
	return atomic.LoadInt32(&c.done) == 1
}

func toAddress(url string) string {
	if strings.HasPrefix(url, "grpc://") {
		return url[len("grpc://"):]
	}
	if strings.HasPrefix(url, "grpcs://") {
		return url[len("grpcs://"):]
	}
	return url
}
