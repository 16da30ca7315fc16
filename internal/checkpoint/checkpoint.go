// Package checkpoint saves and restores value function parameters by name.
package checkpoint

import (
	"context"
	"fmt"
	"time"

	"github.com/mitchelldurbincs/selfplay-rl/internal/valuefn"
)

// Save encodes vf's snapshot and stores it under name
func Save(ctx context.Context, store Store, name string, vf valuefn.ValueFunction) error {
	data, err := Encode(Checkpoint{Snapshot: vf.Snapshot(), SavedAt: time.Now().UTC()})
	if err != nil {
		return err
	}
	return store.Put(ctx, name, data)
}

// Load restores vf from the checkpoint stored under name and returns when it
// was saved. vf must have the same kind and shape as the saved one.
func Load(ctx context.Context, store Store, name string, vf valuefn.ValueFunction) (time.Time, error) {
	c, err := Read(ctx, store, name)
	if err != nil {
		return time.Time{}, err
	}
	if err := vf.Restore(c.Snapshot); err != nil {
		return time.Time{}, fmt.Errorf("checkpoint %s: %w", name, err)
	}
	return c.SavedAt, nil
}

// Read fetches and decodes a checkpoint without restoring it
func Read(ctx context.Context, store Store, name string) (Checkpoint, error) {
	data, err := store.Get(ctx, name)
	if err != nil {
		return Checkpoint{}, err
	}
	c, err := Decode(data)
	if err != nil {
		return Checkpoint{}, fmt.Errorf("checkpoint %s: %w", name, err)
	}
	return c, nil
}

// AgentName is the name under which agent i of a run is saved
func AgentName(prefix string, agent int) string {
	return fmt.Sprintf("%s-agent%d", prefix, agent)
}
