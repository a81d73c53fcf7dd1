package profile

import (
	"path/filepath"
	"testing"

	"github.com/jugvid/jugtrack/internal/camera"
)

func TestManager_SaveLoad(t *testing.T) {
	dir := t.TempDir()

	m, err := NewManager(dir)
	if err != nil {
		t.Fatalf("creating manager: %v", err)
	}

	p := New("orange")
	p.SetColorModel([][3]float64{
		{15, 220, 220},
		{17, 225, 230},
		{13, 215, 210},
	})
	p.SetSizeModel(22, 1.1, &camera.Intrinsics{Fx: 620})
	m.Add(p)

	if err = m.Save(); err != nil {
		t.Fatalf("saving profiles: %v", err)
	}

	reloaded, err := NewManager(dir)
	if err != nil {
		t.Fatalf("reloading manager: %v", err)
	}

	all := reloaded.All()
	if len(all) != 1 {
		t.Fatalf("expected 1 profile after reload, got %d", len(all))
	}

	got := reloaded.ByID(p.ID)
	if got == nil {
		t.Fatalf("profile %s not found after reload", p.ID)
	}
	if got.Name != "orange" || !got.HasColor || got.RadiusM != p.RadiusM {
		t.Error("reloaded profile does not match saved state")
	}
}

func TestManager_MissingFileIsEmpty(t *testing.T) {
	m, err := NewManager(filepath.Join(t.TempDir(), "fresh"))
	if err != nil {
		t.Fatalf("creating manager: %v", err)
	}
	if len(m.All()) != 0 {
		t.Errorf("expected no profiles, got %d", len(m.All()))
	}
}

func TestManager_Remove(t *testing.T) {
	m, err := NewManager(t.TempDir())
	if err != nil {
		t.Fatalf("creating manager: %v", err)
	}

	a, b := New("a"), New("b")
	m.Add(a)
	m.Add(b)

	m.Remove(a.ID)

	if m.ByID(a.ID) != nil {
		t.Error("removed profile still present")
	}
	if m.ByID(b.ID) == nil {
		t.Error("unrelated profile was removed")
	}
}
