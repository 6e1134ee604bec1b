// internal/common/camunda/client_test.go
package camunda

import (
	"context"
	"testing"
	"time"

	"loan-risk-service/internal/common/config"

	"github.com/camunda/zeebe/clients/go/v8/pkg/commands"
	"github.com/camunda/zeebe/clients/go/v8/pkg/pb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
)

// topologyGateway answers Topology and remembers the deadline it was given.
type topologyGateway struct {
	pb.GatewayClient

	brokers  []*pb.BrokerInfo
	block    bool
	deadline time.Time
}

func (g *topologyGateway) Topology(ctx context.Context, _ *pb.TopologyRequest, _ ...grpc.CallOption) (*pb.TopologyResponse, error) {
	g.deadline, _ = ctx.Deadline()
	if g.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return &pb.TopologyResponse{Brokers: g.brokers}, nil
}

func (g *topologyGateway) NewTopologyCommand() *commands.TopologyCommand {
	return commands.NewTopologyCommand(g, func(context.Context, error) bool { return false })
}

func testClient(gw *topologyGateway, requestTimeout time.Duration) *Client {
	return &Client{
		topology: gw,
		config: &ClientConfig{
			GatewayAddress:    "zeebe:26500",
			ConnectionTimeout: time.Hour,
			RequestTimeout:    requestTimeout,
		},
	}
}

func TestConfigFrom(t *testing.T) {
	cfg := ConfigFrom(config.CamundaConfig{BrokerAddress: "zeebe:26500", RequestTimeout: 5000})
	assert.Equal(t, "zeebe:26500", cfg.GatewayAddress)
	assert.True(t, cfg.UsePlaintextConnection)
	assert.Equal(t, 5*time.Second, cfg.RequestTimeout)
	assert.Equal(t, defaultConnectTimeout, cfg.ConnectionTimeout)

	cfg = ConfigFrom(config.CamundaConfig{BrokerAddress: "zeebe:26500"})
	assert.Equal(t, defaultRequestTimeout, cfg.RequestTimeout)
}

func TestNewClientWithConfig_EmptyAddress(t *testing.T) {
	_, err := NewClientWithConfig(&ClientConfig{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "address is empty")
}

func TestHealthCheck(t *testing.T) {
	gw := &topologyGateway{brokers: []*pb.BrokerInfo{{NodeId: 0}}}
	c := testClient(gw, 2*time.Second)

	before := time.Now()
	require.NoError(t, c.HealthCheck(context.Background()))

	require.False(t, gw.deadline.IsZero())
	assert.WithinDuration(t, before.Add(2*time.Second), gw.deadline, time.Second)
}

func TestHealthCheck_NoBrokers(t *testing.T) {
	err := testClient(&topologyGateway{}, time.Second).HealthCheck(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reports no brokers")
}

func TestHealthCheck_RequestTimeout(t *testing.T) {
	c := testClient(&topologyGateway{block: true}, 30*time.Millisecond)

	start := time.Now()
	err := c.HealthCheck(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), time.Second)
}

func TestBrokerCount(t *testing.T) {
	assert.Equal(t, 0, brokerCount(nil))
	assert.Equal(t, 0, brokerCount(&pb.TopologyResponse{}))
	assert.Equal(t, 2, brokerCount(&pb.TopologyResponse{Brokers: []*pb.BrokerInfo{{NodeId: 0}, {NodeId: 1}}}))
}
