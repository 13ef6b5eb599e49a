package browser

import "testing"

func TestOptionsHeadlessAddsGPUFlag(t *testing.T) {
	t.Parallel()
	visible := Options(false)
	headless := Options(true)
	if len(headless) != len(visible)+1 {
		t.Fatalf("len(headless)=%d len(visible)=%d", len(headless), len(visible))
	}
}
