// Package containers annotates process records with the name of the
// Docker container they run in. Everything here is best-effort: a missing
// socket, an unreachable daemon or a failed inspect all degrade to "no
// annotation".
package containers

import (
	"context"
	"os"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/docker/docker/api/types"
	"github.com/docker/docker/client"

	"github.com/fastkill/fastkill/internal/procs"
)

const dockerSocket = "/var/run/docker.sock"

// Annotator maps container top-level PIDs to container names. It
// implements procs.Annotator.
type Annotator struct {
	cli *client.Client
}

var _ procs.Annotator = (*Annotator)(nil)

// NewAnnotator dials the Docker daemon if its socket exists. It returns
// nil when Docker is unavailable; callers treat nil as "no annotation".
func NewAnnotator() *Annotator {
	if _, err := os.Stat(dockerSocket); err != nil {
		return nil
	}
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		log.Debug("docker client unavailable", "err", err)
		return nil
	}
	return &Annotator{cli: cli}
}

// Names lists running containers and resolves each one's top-level PID.
// The map is rebuilt per snapshot; failures yield an empty map.
func (a *Annotator) Names(ctx context.Context) map[int32]string {
	names := make(map[int32]string)
	if a == nil || a.cli == nil {
		return names
	}

	list, err := a.cli.ContainerList(ctx, types.ContainerListOptions{})
	if err != nil {
		log.Debug("docker container list failed", "err", err)
		return names
	}

	for _, c := range list {
		inspect, err := a.cli.ContainerInspect(ctx, c.ID)
		if err != nil || inspect.State == nil || inspect.State.Pid == 0 {
			continue
		}
		name := ""
		if len(c.Names) > 0 {
			name = strings.TrimPrefix(c.Names[0], "/")
		}
		if name == "" {
			name = c.ID[:12]
		}
		names[int32(inspect.State.Pid)] = name
	}
	return names
}

// Close releases the Docker client.
func (a *Annotator) Close() error {
	if a == nil || a.cli == nil {
		return nil
	}
	return a.cli.Close()
}
