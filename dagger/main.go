// Package main provides a Dagger module for building and running Sentinel.
//
// The bot, the REST API and the database tool ship in one image; the
// entrypoint picks the binary from RUN_TYPE.
package main

import (
	"context"
	"dagger/sentinel/internal/dagger"
	"fmt"
	"strings"
)

const goImage = "golang:1.24.2-alpine"

// binaries are built from ./cmd into /app/bin.
var binaries = []string{"bot", "rest", "db", "entrypoint"} //nolint:gochecknoglobals // build list

type Sentinel struct{}

// BuildContainer creates a container image for the project.
func (m *Sentinel) BuildContainer(
	ctx context.Context,
	// Source code directory
	// +required
	src *dagger.Directory,
	// Platform to build for
	// +optional
	// +default="linux/amd64"
	platform *dagger.Platform,
) (*dagger.Container, error) {
	buildPlatform := dagger.Platform("linux/amd64")
	if platform != nil {
		buildPlatform = *platform
	}

	platformArch, err := dag.Containerd().ArchitectureOf(ctx, buildPlatform)
	if err != nil {
		return nil, fmt.Errorf("failed to get architecture: %w", err)
	}

	// The SQLite driver is pure Go, so the binaries build without cgo
	buildCtr := goContainer(src).
		WithEnvVariable("GOOS", "linux").
		WithEnvVariable("GOARCH", platformArch).
		WithExec([]string{"apk", "add", "--no-cache", "upx", "ca-certificates"}).
		WithExec([]string{"mkdir", "-p", "/src/bin", "/src/logs", "/src/data"})

	for _, binary := range binaries {
		buildCtr = buildCtr.
			WithExec([]string{"go", "build", "-ldflags=-s -w", "-o", "/src/bin/" + binary, "./cmd/" + binary}).
			WithExec([]string{"upx", "--best", "--lzma", "/src/bin/" + binary})
	}

	return dag.Container(dagger.ContainerOpts{Platform: buildPlatform}).
		From("gcr.io/distroless/static-debian12:latest").
		WithDirectory("/app/bin", buildCtr.Directory("/src/bin")).
		WithDirectory("/app/logs", buildCtr.Directory("/src/logs")).
		WithDirectory("/app/data", buildCtr.Directory("/src/data")).
		WithFile("/etc/ssl/certs/ca-certificates.crt", buildCtr.File("/etc/ssl/certs/ca-certificates.crt")).
		WithWorkdir("/app").
		WithEntrypoint([]string{"/app/bin/entrypoint"}).
		WithEnvVariable("RUN_TYPE", "bot"), nil
}

// Test runs the unit tests of every package.
func (m *Sentinel) Test(
	ctx context.Context,
	// Source code directory
	// +required
	src *dagger.Directory,
) (string, error) {
	return goContainer(src).
		WithExec([]string{"go", "test", "./..."}).
		Stdout(ctx)
}

// Publish the application container after building it for every platform.
func (m *Sentinel) Publish(
	ctx context.Context,
	// Source code directory
	// +required
	src *dagger.Directory,
	// Docker image name (e.g. "username/repo:tag")
	// +required
	imageName string,
	// Platforms to build for (comma-separated, e.g. "linux/amd64,linux/arm64")
	// +optional
	// +default="linux/amd64"
	platforms string,
) (string, error) {
	if _, err := m.Test(ctx, src); err != nil {
		return "", fmt.Errorf("tests failed: %w", err)
	}

	platformList := []dagger.Platform{"linux/amd64"}
	if platforms != "" {
		platformList = platformList[:0]
		for _, p := range strings.Split(platforms, ",") {
			platformList = append(platformList, dagger.Platform(strings.TrimSpace(p)))
		}
	}

	platformVariants := make([]*dagger.Container, 0, len(platformList))
	for _, platform := range platformList {
		container, err := m.BuildContainer(ctx, src, &platform)
		if err != nil {
			return "", fmt.Errorf("failed to build container for %s: %w", platform, err)
		}
		platformVariants = append(platformVariants, container)
	}

	ref, err := dag.Container().Publish(ctx, imageName, dagger.ContainerPublishOpts{
		PlatformVariants: platformVariants,
	})
	if err != nil {
		return "", fmt.Errorf("failed to publish image: %w", err)
	}

	return ref, nil
}

// Run builds and runs one binary against the given config directory.
func (m *Sentinel) Run(
	// Source code directory
	// +required
	src *dagger.Directory,
	// Config directory path
	// +required
	configDir *dagger.Directory,
	// Command to run: "bot", "rest" or "db"
	// +required
	cmd string,
	// Arguments for the db tool (e.g. "migrate" or "export 1234")
	// +optional
	args string,
) *dagger.Container {
	runCtr := goContainer(src).
		WithDirectory("/etc/sentinel/config", configDir).
		WithExec([]string{"apk", "add", "--no-cache", "ca-certificates"}).
		WithExec([]string{"go", "build", "-o", "/src/bin/sentinel", "./cmd/" + cmd})

	execArgs := []string{"/src/bin/sentinel"}
	if cmd == "db" && args != "" {
		execArgs = append(execArgs, strings.Fields(args)...)
	}

	return runCtr.WithExec(execArgs)
}

// goContainer returns a Go toolchain container with the source mounted and
// module caches shared between runs.
func goContainer(src *dagger.Directory) *dagger.Container {
	return dag.Container().
		From(goImage).
		WithMountedCache("/go/pkg/mod", dag.CacheVolume("go-mod")).
		WithMountedCache("/root/.cache/go-build", dag.CacheVolume("go-build")).
		WithDirectory("/src", src).
		WithWorkdir("/src").
		WithEnvVariable("CGO_ENABLED", "0")
}
