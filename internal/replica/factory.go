package replica

import (
	"context"
	"fmt"

	"mbak/internal/backup"
	"mbak/internal/config"
)

// NewReplicaFromConfig creates a Replica implementation based on the replica
// config type. An empty type means replication is disabled and returns nil.
func NewReplicaFromConfig(ctx context.Context, cfg config.ReplicaConfig) (backup.Replica, error) {
	switch cfg.Type {
	case "":
		return nil, nil
	case "memory":
		return NewMemoryReplica(), nil
	case "s3":
		return NewS3Replica(ctx, cfg)
	case "filesystem":
		if cfg.FSRoot == "" {
			return nil, fmt.Errorf("filesystem replica requires fs_root to be set")
		}
		return NewFileSystemReplica(cfg.FSRoot)
	default:
		return nil, fmt.Errorf("unknown replica type: %s", cfg.Type)
	}
}
