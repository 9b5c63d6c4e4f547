package conversion

import "testing"

func TestParseTrigger(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want Trigger
	}{
		{in: "share", want: TriggerShare},
		{in: " LIKE ", want: TriggerLike},
		{in: "my-view", want: TriggerMyView},
		{in: "rate-limit", want: TriggerRateLimit},
		{in: "watermark", want: TriggerWatermark},
		{in: "default", want: TriggerDefault},
		{in: "", want: TriggerDefault},
		{in: "checkout", want: TriggerDefault},
	}
	for _, tt := range tests {
		if got := ParseTrigger(tt.in); got != tt.want {
			t.Errorf("ParseTrigger(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestDecideCoversEveryTrigger(t *testing.T) {
	t.Parallel()

	seen := make(map[string]Trigger)
	for _, tr := range Triggers {
		p := DecideTrigger(tr)
		if p.Trigger != tr {
			t.Errorf("DecideTrigger(%q).Trigger = %q", tr, p.Trigger)
		}
		if p.Title == "" || p.Subtitle == "" || p.CTALabel == "" || p.Description == "" {
			t.Errorf("DecideTrigger(%q) has empty copy: %+v", tr, p)
		}
		if len(p.Benefits) != 4 {
			t.Errorf("DecideTrigger(%q) has %d benefits, want 4", tr, len(p.Benefits))
		}
		if other, dup := seen[p.Title]; dup {
			t.Errorf("triggers %q and %q share the title %q", other, tr, p.Title)
		}
		seen[p.Title] = tr
	}
}

func TestDecideUnknownTriggerUsesDefault(t *testing.T) {
	t.Parallel()

	got := Decide(Context{Trigger: "totally-new-button", VisionID: "v1"})
	want := DecideTrigger(TriggerDefault)
	if got.Title != want.Title || got.Trigger != TriggerDefault {
		t.Errorf("Decide(unknown) = %q/%q, want %q/%q", got.Trigger, got.Title, want.Trigger, want.Title)
	}
	if got.VisionID != "v1" {
		t.Errorf("Decide() VisionID = %q, want v1", got.VisionID)
	}
}

func TestDecideCarriesVisionDetails(t *testing.T) {
	t.Parallel()

	got := Decide(Context{Trigger: TriggerLike, VisionID: "abc", ThumbnailURL: "https://img/abc.png"})
	if got.Title != "Boost This Vision" {
		t.Errorf("Decide(like).Title = %q", got.Title)
	}
	if got.VisionID != "abc" || got.ThumbnailURL != "https://img/abc.png" {
		t.Errorf("Decide(like) vision = %q %q", got.VisionID, got.ThumbnailURL)
	}
}

func TestDecideReturnsFreshBenefits(t *testing.T) {
	t.Parallel()

	first := DecideTrigger(TriggerShare)
	first.Benefits[0] = "changed"
	if DecideTrigger(TriggerShare).Benefits[0] == "changed" {
		t.Error("Decide() shares benefit slices between calls")
	}
}
