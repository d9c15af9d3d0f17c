// Package scenario loads measurement-scenario files: one design, one
// instrument configuration, and one loading profile, ready to run
// through the pipeline.
package scenario

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/signalsfoundry/auxetic-sensor/design"
	"github.com/signalsfoundry/auxetic-sensor/instrument"
	"github.com/signalsfoundry/auxetic-sensor/pipeline"
)

var (
	ErrUnknownFormat  = errors.New("unknown scenario format")
	ErrUnknownProfile = errors.New("unknown load profile type")
)

// Scenario is a fully validated measurement setup. Instrument.Sensitivity
// is filled in from the design's derived properties, so the loaded value
// is always consistent with the design section of the file.
type Scenario struct {
	Params design.CellParameters
	Props  design.MechanicalProperties
	Inst   instrument.Config
	Steps  []pipeline.LoadStep
	Window int
	Seed   uint64
}

// Wire shapes stay unexported so the file format can evolve without
// touching the public API.
type scenarioWire struct {
	Design     designWire     `json:"design" yaml:"design"`
	Instrument instrumentWire `json:"instrument" yaml:"instrument"`
	Profile    profileWire    `json:"profile" yaml:"profile"`
	Window     int            `json:"window" yaml:"window"`
	Seed       uint64         `json:"seed" yaml:"seed"`
}

type designWire struct {
	CellSize       float64 `json:"cell_size" yaml:"cell_size"`
	WallThickness  float64 `json:"wall_thickness" yaml:"wall_thickness"`
	ReentrantAngle float64 `json:"reentrant_angle" yaml:"reentrant_angle"`
	ArrayRows      int     `json:"array_rows" yaml:"array_rows"`
	ArrayCols      int     `json:"array_cols" yaml:"array_cols"`
	// CapacitiveGain overrides the default calibration constant K;
	// nil keeps design.DefaultCapacitiveGain.
	CapacitiveGain *float64 `json:"capacitive_gain" yaml:"capacitive_gain"`
}

type instrumentWire struct {
	BaselineCapacitance float64 `json:"baseline_capacitance" yaml:"baseline_capacitance"`
	DriftRate           float64 `json:"drift_rate" yaml:"drift_rate"`
	NoiseSigma          float64 `json:"noise_sigma" yaml:"noise_sigma"`
}

type profileWire struct {
	Type      string              `json:"type" yaml:"type"` // "ramp" | "hold" | "cyclic" | "explicit"
	Steps     int                 `json:"steps" yaml:"steps"`
	MaxStrain float64             `json:"max_strain" yaml:"max_strain"`
	Strain    float64             `json:"strain" yaml:"strain"`
	Cycles    int                 `json:"cycles" yaml:"cycles"`
	Dt        float64             `json:"dt" yaml:"dt"`
	Explicit  []pipeline.LoadStep `json:"explicit" yaml:"explicit"`
}

// Load parses a scenario from r in the given format ("json" or "yaml")
// and validates every section through the regular constructors, so a
// file can never produce a setup that direct API use would reject.
func Load(r io.Reader, format string) (*Scenario, error) {
	var wire scenarioWire
	switch strings.ToLower(format) {
	case "json":
		dec := json.NewDecoder(r)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&wire); err != nil {
			return nil, fmt.Errorf("decode scenario json: %w", err)
		}
	case "yaml", "yml":
		dec := yaml.NewDecoder(r)
		dec.KnownFields(true)
		if err := dec.Decode(&wire); err != nil {
			return nil, fmt.Errorf("decode scenario yaml: %w", err)
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
	return build(wire)
}

// LoadFile loads a scenario from disk, picking the format from the file
// extension.
func LoadFile(path string) (*Scenario, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open scenario: %w", err)
	}
	defer func() { _ = f.Close() }()

	format := strings.TrimPrefix(filepath.Ext(path), ".")
	return Load(f, format)
}

func build(wire scenarioWire) (*Scenario, error) {
	rows, cols := wire.Design.ArrayRows, wire.Design.ArrayCols
	if rows == 0 {
		rows = 1
	}
	if cols == 0 {
		cols = 1
	}
	params, err := design.NewCellParameters(
		wire.Design.CellSize,
		wire.Design.WallThickness,
		wire.Design.ReentrantAngle,
		rows, cols,
	)
	if err != nil {
		return nil, fmt.Errorf("scenario design: %w", err)
	}

	gain := design.DefaultCapacitiveGain
	if wire.Design.CapacitiveGain != nil {
		gain = *wire.Design.CapacitiveGain
	}
	props, err := design.PropertiesWithGain(params, gain)
	if err != nil {
		return nil, fmt.Errorf("scenario design: %w", err)
	}

	steps, err := buildProfile(wire.Profile)
	if err != nil {
		return nil, err
	}

	window := wire.Window
	if window == 0 {
		window = 1
	}
	if window < 1 {
		return nil, fmt.Errorf("scenario window: %w", pipeline.ErrBadWindow)
	}

	return &Scenario{
		Params: params,
		Props:  props,
		Inst: instrument.Config{
			BaselineCapacitance: wire.Instrument.BaselineCapacitance,
			DriftRate:           wire.Instrument.DriftRate,
			NoiseSigma:          wire.Instrument.NoiseSigma,
			Sensitivity:         props.Sensitivity,
		},
		Steps:  steps,
		Window: window,
		Seed:   wire.Seed,
	}, nil
}

func buildProfile(wire profileWire) ([]pipeline.LoadStep, error) {
	switch strings.ToLower(wire.Type) {
	case "ramp":
		return pipeline.RampProfile(wire.Steps, wire.MaxStrain, wire.Dt)
	case "hold":
		return pipeline.HoldProfile(wire.Steps, wire.Strain, wire.Dt)
	case "cyclic":
		return pipeline.CyclicProfile(wire.Steps, wire.Cycles, wire.MaxStrain, wire.Dt)
	case "explicit":
		if len(wire.Explicit) == 0 {
			return nil, pipeline.ErrNoLoadSteps
		}
		return wire.Explicit, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProfile, wire.Type)
	}
}
