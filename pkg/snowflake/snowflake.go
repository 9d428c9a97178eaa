package snowflake

import (
	"strconv"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"

	"github.com/railzwaylabs/tier-orchestrator/internal/config"
)

var Module = fx.Module("snowflake",
	fx.Provide(NewNodeFromConfig),
)

// Node wraps snowflake.Node to abstract dependency
type Node struct {
	*snowflake.Node
}

// NewNodeFromConfig uses NODE_ID, which must differ between instances.
func NewNodeFromConfig(cfg *config.Config) (*Node, error) {
	return NewNode(cfg.NodeID)
}

func NewNode(nodeID int64) (*Node, error) {
	node, err := snowflake.NewNode(nodeID)
	if err != nil {
		return nil, err
	}
	return &Node{node}, nil
}

// GenerateID returns a new snowflake ID as int64
func (n *Node) GenerateID() int64 {
	return n.Generate().Int64()
}

// ParseID parses a string ID into an int64
func ParseID(id string) (int64, error) {
	nid, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return 0, err
	}
	return nid, nil
}
