// SPDX-License-Identifier: MPL-2.0

package container

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

const (
	// ModeReadWrite is the implicit mount mode when none is stated.
	ModeReadWrite = "rw"
	// ModeReadOnly marks a bind mount the container must not write to.
	ModeReadOnly = "ro"
)

var (
	// ErrInvalidVolumeMount is the sentinel error wrapped by InvalidVolumeMountError.
	ErrInvalidVolumeMount = errors.New("invalid volume mount")

	// ErrInvalidPortMapping is the sentinel error wrapped by InvalidPortMappingError.
	ErrInvalidPortMapping = errors.New("invalid port mapping")
)

type (
	// VolumeMount is the single internal representation of a bind mount.
	// Wire shapes are derived from it only at the serialization boundary,
	// Flag() for subprocess argument building and mount.Mount construction
	// in the native Docker client, so the mode is never lost in between.
	VolumeMount struct {
		HostPath      string
		ContainerPath string
		// Mode is "rw" or "ro"; empty means "rw".
		Mode string
	}

	// InvalidVolumeMountError is returned when a VolumeMount has an empty
	// path or an unrecognized mode.
	InvalidVolumeMountError struct {
		Value VolumeMount
	}

	// PortMapping maps a host port to a container port.
	PortMapping struct {
		HostPort      uint16
		ContainerPort uint16
	}

	// InvalidPortMappingError is returned when a PortMapping has a zero port.
	InvalidPortMappingError struct {
		Value PortMapping
	}
)

// Error implements the error interface.
func (e *InvalidVolumeMountError) Error() string {
	return fmt.Sprintf("invalid volume mount %s:%s (mode %q)",
		e.Value.HostPath, e.Value.ContainerPath, e.Value.Mode)
}

// Unwrap returns ErrInvalidVolumeMount for errors.Is compatibility.
func (e *InvalidVolumeMountError) Unwrap() error { return ErrInvalidVolumeMount }

// Validate returns an error if either path is empty or the mode is neither
// empty, "rw", nor "ro".
func (v VolumeMount) Validate() error {
	if strings.TrimSpace(v.HostPath) == "" || strings.TrimSpace(v.ContainerPath) == "" {
		return &InvalidVolumeMountError{Value: v}
	}
	switch v.Mode {
	case "", ModeReadWrite, ModeReadOnly:
		return nil
	default:
		return &InvalidVolumeMountError{Value: v}
	}
}

// EffectiveMode returns the mount mode, defaulting to read-write.
func (v VolumeMount) EffectiveMode() string {
	if v.Mode == "" {
		return ModeReadWrite
	}
	return v.Mode
}

// Flag returns the mount in the "host:container[:ro]" form used by -v and
// --bind flags. The default read-write mode is omitted.
func (v VolumeMount) Flag() string {
	s := v.HostPath + ":" + v.ContainerPath
	if v.EffectiveMode() == ModeReadOnly {
		s += ":" + ModeReadOnly
	}
	return s
}

// ParseVolumeFlag parses "host:container[:mode]" into a VolumeMount.
func ParseVolumeFlag(flag string) (VolumeMount, error) {
	parts := strings.SplitN(flag, ":", 3)
	if len(parts) < 2 {
		return VolumeMount{}, &InvalidVolumeMountError{Value: VolumeMount{HostPath: flag}}
	}
	mount := VolumeMount{HostPath: parts[0], ContainerPath: parts[1]}
	if len(parts) == 3 {
		mount.Mode = parts[2]
	}
	if err := mount.Validate(); err != nil {
		return VolumeMount{}, err
	}
	return mount, nil
}

// Error implements the error interface.
func (e *InvalidPortMappingError) Error() string {
	return fmt.Sprintf("invalid port mapping %d:%d: ports must be greater than zero",
		e.Value.HostPort, e.Value.ContainerPort)
}

// Unwrap returns ErrInvalidPortMapping for errors.Is compatibility.
func (e *InvalidPortMappingError) Unwrap() error { return ErrInvalidPortMapping }

// Validate returns an error if either port is zero.
func (p PortMapping) Validate() error {
	if p.HostPort == 0 || p.ContainerPort == 0 {
		return &InvalidPortMappingError{Value: p}
	}
	return nil
}

// Flag returns the mapping in the "host:container" form used by -p flags.
func (p PortMapping) Flag() string {
	return fmt.Sprintf("%d:%d", p.HostPort, p.ContainerPort)
}

// ParsePortFlag parses "hostPort:containerPort" into a PortMapping.
func ParsePortFlag(flag string) (PortMapping, error) {
	parts := strings.SplitN(flag, ":", 2)
	if len(parts) != 2 {
		return PortMapping{}, fmt.Errorf("invalid port mapping %q: must contain ':' separator", flag)
	}
	hostPort, err := strconv.ParseUint(parts[0], 10, 16)
	if err != nil {
		return PortMapping{}, fmt.Errorf("invalid host port %q: %w", parts[0], err)
	}
	containerPort, err := strconv.ParseUint(parts[1], 10, 16)
	if err != nil {
		return PortMapping{}, fmt.Errorf("invalid container port %q: %w", parts[1], err)
	}
	mapping := PortMapping{HostPort: uint16(hostPort), ContainerPort: uint16(containerPort)}
	if err := mapping.Validate(); err != nil {
		return PortMapping{}, err
	}
	return mapping, nil
}
