package config

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

func TestDefaultParamsValidate(t *testing.T) {
	if err := DefaultParams().Validate(); err != nil {
		t.Fatalf("default params should validate: %v", err)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Params)
	}{
		{"zero frame rate", func(p *Params) { p.FrameRate = 0 }},
		{"negative frame rate", func(p *Params) { p.FrameRate = -1 }},
		{"zero vector spacing", func(p *Params) { p.VectorSpacing = 0 }},
		{"zero intensity scale", func(p *Params) { p.IntensityScale = 0 }},
		{"inverted density band", func(p *Params) { p.DensityMin = 10; p.DensityMax = 5 }},
		{"negative workers", func(p *Params) { p.Workers = -2 }},
		{"negative delta tolerance", func(p *Params) { p.DeltaTolerancePx = -1 }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			p := DefaultParams()
			tc.mutate(&p)
			if err := p.Validate(); err == nil {
				t.Error("expected validation error, got nil")
			}
		})
	}
}

func TestEffectiveWorkers(t *testing.T) {
	p := DefaultParams()
	if got := p.EffectiveWorkers(); got != runtime.NumCPU() {
		t.Errorf("EffectiveWorkers() = %d, want NumCPU %d", got, runtime.NumCPU())
	}
	p.Workers = 3
	if got := p.EffectiveWorkers(); got != 3 {
		t.Errorf("EffectiveWorkers() = %d, want 3", got)
	}
}

func TestLoadAndApplyOverlay(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pipeline.json")
	body := `{"frame_rate": 30.0, "density_min": 1000, "workers": 2}`
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	fc, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	p := fc.Apply(DefaultParams())

	if p.FrameRate != 30.0 {
		t.Errorf("FrameRate = %v, want 30.0", p.FrameRate)
	}
	if p.DensityMin != 1000 {
		t.Errorf("DensityMin = %d, want 1000", p.DensityMin)
	}
	if p.Workers != 2 {
		t.Errorf("Workers = %d, want 2", p.Workers)
	}
	// Unset fields keep defaults.
	if p.DeltaCeiling != 10.0 {
		t.Errorf("DeltaCeiling = %v, want default 10.0", p.DeltaCeiling)
	}
	if p.VectorSpacing != 16 {
		t.Errorf("VectorSpacing = %d, want default 16", p.VectorSpacing)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.json")); err == nil {
		t.Error("expected error for missing config file")
	}
}

func TestApplyNilOverlay(t *testing.T) {
	var fc *FileConfig
	p := fc.Apply(DefaultParams())
	if p != DefaultParams() {
		t.Error("nil overlay should leave params untouched")
	}
}
