// internal/common/camunda/client.go
package camunda

import (
	"context"
	"fmt"
	"time"

	"loan-risk-service/internal/common/config"

	"github.com/camunda/zeebe/clients/go/v8/pkg/commands"
	"github.com/camunda/zeebe/clients/go/v8/pkg/pb"
	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"
)

const (
	defaultConnectTimeout = 10 * time.Second
	defaultRequestTimeout = 30 * time.Second
)

type topologyClient interface {
	NewTopologyCommand() *commands.TopologyCommand
}

// Client owns the gateway connection the apply worker polls through.
type Client struct {
	client   zbc.Client
	topology topologyClient
	config   *ClientConfig
}

type ClientConfig struct {
	GatewayAddress         string
	UsePlaintextConnection bool
	// ConnectionTimeout bounds the first topology call made while dialling.
	ConnectionTimeout time.Duration
	// RequestTimeout bounds every later gateway request.
	RequestTimeout time.Duration
}

// ConfigFrom maps the camunda config section onto a plaintext ClientConfig.
func ConfigFrom(cfg config.CamundaConfig) *ClientConfig {
	return &ClientConfig{
		GatewayAddress:         cfg.BrokerAddress,
		UsePlaintextConnection: true,
		ConnectionTimeout:      defaultConnectTimeout,
		RequestTimeout:         RequestTimeout(cfg),
	}
}

// RequestTimeout is camunda.request_timeout, or 30s when unset.
func RequestTimeout(cfg config.CamundaConfig) time.Duration {
	if d := config.GetDuration(cfg.RequestTimeout); d > 0 {
		return d
	}
	return defaultRequestTimeout
}

// NewClientWithConfig dials the gateway and fails unless the topology
// reports at least one broker within ConnectionTimeout.
func NewClientWithConfig(cfg *ClientConfig) (*Client, error) {
	if cfg.GatewayAddress == "" {
		return nil, fmt.Errorf("zeebe gateway address is empty")
	}
	if cfg.ConnectionTimeout <= 0 {
		cfg.ConnectionTimeout = defaultConnectTimeout
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = defaultRequestTimeout
	}

	zeebeClient, err := zbc.NewClient(&zbc.ClientConfig{
		GatewayAddress:         cfg.GatewayAddress,
		UsePlaintextConnection: cfg.UsePlaintextConnection,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Zeebe client: %w", err)
	}

	c := &Client{client: zeebeClient, topology: zeebeClient, config: cfg}
	if err := c.checkTopology(context.Background(), cfg.ConnectionTimeout); err != nil {
		zeebeClient.Close()
		return nil, err
	}
	return c, nil
}

func (c *Client) GetClient() zbc.Client {
	return c.client
}

func (c *Client) Close() error {
	return c.client.Close()
}

// HealthCheck backs the zeebe readiness probe. It is bounded by
// RequestTimeout as well as ctx.
func (c *Client) HealthCheck(ctx context.Context) error {
	return c.checkTopology(ctx, c.config.RequestTimeout)
}

func (c *Client) checkTopology(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	topology, err := c.topology.NewTopologyCommand().Send(ctx)
	if err != nil {
		return fmt.Errorf("zeebe gateway %s unreachable: %w", c.config.GatewayAddress, err)
	}
	if n := brokerCount(topology); n == 0 {
		return fmt.Errorf("zeebe gateway %s reports no brokers", c.config.GatewayAddress)
	}
	return nil
}

func brokerCount(topology *pb.TopologyResponse) int {
	if topology == nil {
		return 0
	}
	return len(topology.GetBrokers())
}
