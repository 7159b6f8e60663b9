// Package config loads and validates the run configuration. A Config is
// built once at startup, checked, and passed by value to the components
// that need it; nothing reads mutable process-wide state afterwards.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/jmreppsUWGrad/2D-Research/mesh"
	"github.com/jmreppsUWGrad/2D-Research/props"
)

// PropertySpec is a YAML-level material property: either a bare number
// (constant) or {blend: [v0, v1]} (two-phase blend). It resolves to a
// props.Property at load time.
type PropertySpec struct {
	Resolved props.Property
}

type blendNode struct {
	Blend []float64 `yaml:"blend"`
}

// UnmarshalYAML accepts a scalar or a blend mapping.
func (p *PropertySpec) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		var v float64
		if err := value.Decode(&v); err != nil {
			return fmt.Errorf("config: property must be a number or blend: %w", err)
		}
		p.Resolved = props.Constant(v)
		return nil
	}
	var b blendNode
	if err := value.Decode(&b); err != nil {
		return fmt.Errorf("config: property must be a number or blend: %w", err)
	}
	if len(b.Blend) != 2 {
		return fmt.Errorf("config: blend needs exactly two values, got %d", len(b.Blend))
	}
	p.Resolved = props.TwoPhaseBlend(b.Blend[0], b.Blend[1])
	return nil
}

// BCKind names a boundary-condition type on a physical edge.
type BCKind string

const (
	BCFixedTemp  BCKind = "fixed_temp"
	BCFlux       BCKind = "flux"
	BCConvective BCKind = "convective"
)

// BC is one edge boundary condition. An empty Type is an adiabatic
// wall: no boundary term is applied to that edge.
type BC struct {
	Type  BCKind  `yaml:"type"`
	Value float64 `yaml:"value,omitempty"` // temperature or flux, by Type
	H     float64 `yaml:"h,omitempty"`     // convective coefficient
	TInf  float64 `yaml:"t_inf,omitempty"` // convective far-field temperature
}

// BCSet holds the four physical-edge boundary conditions.
type BCSet struct {
	North BC `yaml:"bc_north"`
	South BC `yaml:"bc_south"`
	East  BC `yaml:"bc_east"`
	West  BC `yaml:"bc_west"`
}

// Ignition is the global criterion that triggers the one-time switch of
// the north boundary condition to the east one.
type Ignition struct {
	Field     string  `yaml:"field"` // "eta" or "temp"
	Threshold float64 `yaml:"threshold"`
}

// SpeciesSpec configures one species slot's initial mass.
type SpeciesSpec struct {
	Name        string  `yaml:"name"`
	InitialMass float64 `yaml:"initial_mass"`
}

// Config is the immutable run configuration.
type Config struct {
	Length float64 `yaml:"length"`
	Width  float64 `yaml:"width"`
	NodesX int     `yaml:"nodes_x"`
	NodesY int     `yaml:"nodes_y"`

	BiasTypeX mesh.BiasType `yaml:"bias_type_x,omitempty"`
	BiasSizeX float64       `yaml:"bias_size_x,omitempty"`
	BiasTypeY mesh.BiasType `yaml:"bias_type_y,omitempty"`
	BiasSizeY float64       `yaml:"bias_size_y,omitempty"`

	K   PropertySpec `yaml:"k"`
	Rho PropertySpec `yaml:"rho"`
	Cp  PropertySpec `yaml:"cp"`

	TotalTime      *float64 `yaml:"total_time,omitempty"`
	TotalTimeSteps *int     `yaml:"total_time_steps,omitempty"`
	DataOutputs    int      `yaml:"number_data_output"`

	Workers     int     `yaml:"workers"`
	Restart     string  `yaml:"restart,omitempty"`
	InitialTemp float64 `yaml:"initial_temp"`

	Ignition Ignition      `yaml:"ignition"`
	Species  []SpeciesSpec `yaml:"species,omitempty"`

	BCs BCSet `yaml:",inline"`
}

// Load reads and validates a YAML configuration file.
func Load(path string) (Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(raw)
}

// Parse decodes and validates YAML configuration bytes.
func Parse(raw []byte) (Config, error) {
	cfg := Config{
		Workers:     1,
		DataOutputs: 1,
		InitialTemp: 300,
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports the first configuration-fatal problem.
func (c Config) Validate() error {
	if c.Length <= 0 || c.Width <= 0 {
		return fmt.Errorf("config: domain dimensions must be positive (length=%g width=%g)", c.Length, c.Width)
	}
	if c.NodesX < 3 || c.NodesY < 3 {
		return fmt.Errorf("config: need at least 3 nodes per axis (nodes_x=%d nodes_y=%d)", c.NodesX, c.NodesY)
	}
	for _, p := range []struct {
		name string
		spec PropertySpec
	}{{"k", c.K}, {"rho", c.Rho}, {"cp", c.Cp}} {
		v0, v1 := p.spec.Resolved.Endpoints()
		if v0 <= 0 || v1 <= 0 {
			return fmt.Errorf("config: %s must be positive (got %g, %g)", p.name, v0, v1)
		}
	}
	switch c.BiasTypeX {
	case mesh.BiasNone, mesh.BiasOneWayUp, mesh.BiasOneWayDown, mesh.BiasTwoWayEnd, mesh.BiasTwoWayMid:
	default:
		return fmt.Errorf("config: unknown bias_type_x %q", c.BiasTypeX)
	}
	switch c.BiasTypeY {
	case mesh.BiasNone, mesh.BiasOneWayUp, mesh.BiasOneWayDown, mesh.BiasTwoWayEnd, mesh.BiasTwoWayMid:
	default:
		return fmt.Errorf("config: unknown bias_type_y %q", c.BiasTypeY)
	}
	if (c.TotalTime == nil) == (c.TotalTimeSteps == nil) {
		return fmt.Errorf("config: exactly one of total_time and total_time_steps must be set")
	}
	if c.TotalTime != nil && *c.TotalTime <= 0 {
		return fmt.Errorf("config: total_time must be positive")
	}
	if c.TotalTimeSteps != nil && *c.TotalTimeSteps <= 0 {
		return fmt.Errorf("config: total_time_steps must be positive")
	}
	if c.DataOutputs < 1 {
		return fmt.Errorf("config: number_data_output must be at least 1")
	}
	if c.Workers < 1 {
		return fmt.Errorf("config: workers must be at least 1")
	}
	switch c.Ignition.Field {
	case "eta", "temp":
		if c.Ignition.Threshold <= 0 {
			return fmt.Errorf("config: ignition threshold must be positive")
		}
	case "":
		// no ignition criterion configured
	default:
		return fmt.Errorf("config: unknown ignition field %q", c.Ignition.Field)
	}
	if len(c.Species) > props.NumSpecies {
		return fmt.Errorf("config: at most %d species slots, got %d", props.NumSpecies, len(c.Species))
	}
	for _, e := range []struct {
		name string
		bc   BC
	}{
		{"bc_north", c.BCs.North},
		{"bc_south", c.BCs.South},
		{"bc_east", c.BCs.East},
		{"bc_west", c.BCs.West},
	} {
		switch e.bc.Type {
		case BCFixedTemp, BCFlux, BCConvective:
		case "":
			// adiabatic wall
		default:
			return fmt.Errorf("config: %s: unknown type %q", e.name, e.bc.Type)
		}
	}
	return nil
}

// Model builds the material property model from the resolved specs.
func (c Config) Model() props.Model {
	return props.Model{K: c.K.Resolved, Rho: c.Rho.Resolved, Cv: c.Cp.Resolved}
}

// StepBudget returns the step-count bound and whether output cadence is
// step-driven. When the run is time-bounded the step budget is
// effectively unbounded, mirroring the settings convention of treating
// the unset budget as a huge number.
func (c Config) StepBudget() (steps int, byStep bool) {
	if c.TotalTimeSteps != nil {
		return *c.TotalTimeSteps, true
	}
	return int(1e18), false
}

// TimeBudget returns the elapsed-time bound.
func (c Config) TimeBudget() float64 {
	if c.TotalTime != nil {
		return *c.TotalTime
	}
	return 1e18
}
