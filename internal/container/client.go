// SPDX-License-Identifier: MPL-2.0

package container

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/charmbracelet/log"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/api/types/mount"
	"github.com/docker/docker/client"
	"github.com/docker/go-connections/nat"
)

// NativeClient drives Docker through its API socket instead of the CLI.
// Only the Docker runtime has this path; everything else goes through
// subprocess execution. Mount modes survive end to end here because
// VolumeMount serializes straight into mount.Mount.
type NativeClient struct {
	client *client.Client
	logger *log.Logger
}

// NewNativeClient connects to the Docker daemon from the environment and
// verifies it responds.
func NewNativeClient(ctx context.Context) (*NativeClient, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("creating docker client: %w", err)
	}
	if _, err := cli.Ping(ctx); err != nil {
		return nil, fmt.Errorf("docker daemon not reachable: %w", err)
	}
	return &NativeClient{
		client: cli,
		logger: log.NewWithOptions(os.Stderr, log.Options{Prefix: "docker"}),
	}, nil
}

// PullImage pulls an image through the daemon, discarding the progress
// stream.
func (c *NativeClient) PullImage(ctx context.Context, ref string) error {
	reader, err := c.client.ImagePull(ctx, ref, image.PullOptions{})
	if err != nil {
		return fmt.Errorf("pulling %s: %w", ref, err)
	}
	defer reader.Close()

	if _, err := io.Copy(io.Discard, reader); err != nil {
		return fmt.Errorf("streaming pull of %s: %w", ref, err)
	}
	return nil
}

// RunDetached creates and starts a named background container. Volume modes
// are preserved through mount.Mount rather than flattened into -v strings.
func (c *NativeClient) RunDetached(ctx context.Context, spec RunSpec) (string, error) {
	if err := spec.Validate(); err != nil {
		return "", err
	}

	mounts := make([]mount.Mount, 0, len(spec.Volumes))
	for _, v := range spec.Volumes {
		mounts = append(mounts, mount.Mount{
			Type:     mount.TypeBind,
			Source:   v.HostPath,
			Target:   v.ContainerPath,
			ReadOnly: v.EffectiveMode() == ModeReadOnly,
		})
	}

	portBindings := nat.PortMap{}
	exposed := nat.PortSet{}
	for _, p := range spec.Ports {
		port, err := nat.NewPort("tcp", strconv.Itoa(int(p.ContainerPort)))
		if err != nil {
			return "", fmt.Errorf("invalid container port %d: %w", p.ContainerPort, err)
		}
		exposed[port] = struct{}{}
		portBindings[port] = []nat.PortBinding{{HostPort: strconv.Itoa(int(p.HostPort))}}
	}

	env := make([]string, 0, len(spec.Env))
	for k, v := range spec.Env {
		env = append(env, k+"="+v)
	}

	var cmd []string
	if spec.Command != "" {
		cmd = []string{"sh", "-c", spec.Command}
	}

	containerConfig := &container.Config{
		Image:        spec.Image,
		Cmd:          cmd,
		Env:          env,
		WorkingDir:   spec.WorkDir,
		ExposedPorts: exposed,
	}
	hostConfig := &container.HostConfig{
		Mounts:       mounts,
		PortBindings: portBindings,
		AutoRemove:   spec.Remove,
	}

	resp, err := c.client.ContainerCreate(ctx, containerConfig, hostConfig, nil, nil, spec.Name)
	if err != nil {
		return "", fmt.Errorf("creating container %s: %w", spec.Name, err)
	}

	if err := c.client.ContainerStart(ctx, resp.ID, container.StartOptions{}); err != nil {
		if removeErr := c.client.ContainerRemove(ctx, resp.ID, container.RemoveOptions{Force: true}); removeErr != nil {
			c.logger.Error("removing container after failed start", "id", resp.ID, "error", removeErr)
		}
		return "", fmt.Errorf("starting container %s: %w", spec.Name, err)
	}
	return resp.ID, nil
}

// Logs returns the full log output of a container.
func (c *NativeClient) Logs(ctx context.Context, id string) (string, error) {
	reader, err := c.client.ContainerLogs(ctx, id, container.LogsOptions{
		ShowStdout: true,
		ShowStderr: true,
	})
	if err != nil {
		return "", fmt.Errorf("fetching logs for %s: %w", id, err)
	}
	defer reader.Close()

	out, err := io.ReadAll(reader)
	if err != nil {
		return "", fmt.Errorf("reading logs for %s: %w", id, err)
	}
	return string(out), nil
}

// Stop stops a running container.
func (c *NativeClient) Stop(ctx context.Context, id string) error {
	if err := c.client.ContainerStop(ctx, id, container.StopOptions{}); err != nil {
		return fmt.Errorf("stopping container %s: %w", id, err)
	}
	return nil
}

// Close releases the API connection.
func (c *NativeClient) Close() error {
	return c.client.Close()
}
