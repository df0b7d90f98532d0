// Package browserpool launches one disposable Chrome container per session
// for the local dev service. Each container exposes a browser-level CDP
// endpoint on a random host port.
package browserpool

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/client"
	"github.com/docker/go-connections/nat"
)

const chromeImage = "browserless/chrome:latest"

// Instance is one running browser container.
type Instance struct {
	ContainerID string
	SessionID   string
	ConnectURL  string
	Port        string
}

// Pool creates and stops browser containers through the docker daemon.
type Pool struct {
	client *client.Client
}

// NewPool connects to the local docker daemon.
func NewPool() (*Pool, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("failed to create docker client: %w", err)
	}
	return &Pool{client: cli}, nil
}

// Launch starts a fresh browser container for the session and waits until
// its CDP endpoint answers.
func (p *Pool) Launch(ctx context.Context, sessionID string) (*Instance, error) {
	containerConfig := &container.Config{
		Image: chromeImage,
		Labels: map[string]string{
			"session-id": sessionID,
			"managed-by": "steeld",
		},
		Env: []string{
			"CONNECTION_TIMEOUT=-1",
			"MAX_CONCURRENT_SESSIONS=1",
			"PREBOOT_CHROME=true",
			"KEEP_ALIVE=true",
		},
		ExposedPorts: nat.PortSet{
			"3000/tcp": struct{}{},
		},
	}

	hostConfig := &container.HostConfig{
		PortBindings: nat.PortMap{
			"3000/tcp": []nat.PortBinding{
				{HostIP: "0.0.0.0", HostPort: "0"},
			},
		},
	}

	name := "steeld-" + sessionID
	if len(sessionID) > 8 {
		name = "steeld-" + sessionID[:8]
	}

	resp, err := p.client.ContainerCreate(ctx, containerConfig, hostConfig, nil, nil, name)
	if err != nil {
		return nil, fmt.Errorf("failed to create container: %w", err)
	}

	if err := p.client.ContainerStart(ctx, resp.ID, container.StartOptions{}); err != nil {
		return nil, fmt.Errorf("failed to start container: %w", err)
	}

	inspect, err := p.client.ContainerInspect(ctx, resp.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to inspect container: %w", err)
	}

	bindings := inspect.NetworkSettings.Ports["3000/tcp"]
	if len(bindings) == 0 {
		return nil, fmt.Errorf("container %s exposed no CDP port", resp.ID[:12])
	}
	port := bindings[0].HostPort

	if err := p.waitForBrowserReady(ctx, port); err != nil {
		return nil, fmt.Errorf("browser failed to become ready: %w", err)
	}

	return &Instance{
		ContainerID: resp.ID,
		SessionID:   sessionID,
		ConnectURL:  fmt.Sprintf("ws://localhost:%s", port),
		Port:        port,
	}, nil
}

// Stop stops and removes a session's container.
func (p *Pool) Stop(ctx context.Context, containerID string) error {
	timeout := 10
	if err := p.client.ContainerStop(ctx, containerID, container.StopOptions{Timeout: &timeout}); err != nil {
		return fmt.Errorf("failed to stop container: %w", err)
	}
	if err := p.client.ContainerRemove(ctx, containerID, container.RemoveOptions{}); err != nil {
		return fmt.Errorf("failed to remove container: %w", err)
	}
	return nil
}

// EnsureImage pulls the Chrome image if it isn't present locally.
func (p *Pool) EnsureImage(ctx context.Context) error {
	images, err := p.client.ImageList(ctx, image.ListOptions{})
	if err != nil {
		return err
	}
	for _, img := range images {
		for _, tag := range img.RepoTags {
			if tag == chromeImage {
				return nil
			}
		}
	}

	reader, err := p.client.ImagePull(ctx, chromeImage, image.PullOptions{})
	if err != nil {
		return fmt.Errorf("failed to pull image: %w", err)
	}
	defer reader.Close()

	_, err = io.Copy(io.Discard, reader)
	return err
}

// Close releases the docker client.
func (p *Pool) Close() error {
	return p.client.Close()
}

// waitForBrowserReady polls the container's /json/version endpoint until
// the browser answers.
func (p *Pool) waitForBrowserReady(ctx context.Context, port string) error {
	url := fmt.Sprintf("http://localhost:%s/json/version", port)
	maxRetries := 20

	for i := 0; i < maxRetries; i++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return err
		}
		resp, err := http.DefaultClient.Do(req)
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				// Give the websocket endpoint a moment to follow.
				time.Sleep(500 * time.Millisecond)
				return nil
			}
		}

		select {
		case <-time.After(500 * time.Millisecond):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	return fmt.Errorf("browser did not become ready after %d retries", maxRetries)
}
