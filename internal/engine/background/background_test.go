package background

import (
	"encoding/json"
	"testing"
)

func TestHex(t *testing.T) {
	tests := []struct {
		in   [3]float64
		want string
	}{
		{[3]float64{1, 0, 0.5}, "#ff0080"},
		{[3]float64{0, 0, 0}, "#000000"},
		{[3]float64{1, 1, 1}, "#ffffff"},
		{[3]float64{0.2, 0.4, 0.6}, "#336699"},
		{[3]float64{-0.5, 2, 0.001}, "#00ff00"},
	}

	for _, tt := range tests {
		if got := Hex(tt.in); got != tt.want {
			t.Errorf("Hex(%v) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestFromExtensions(t *testing.T) {
	tests := []struct {
		name   string
		ext    map[string]any
		wantOK bool
		want   Gradient
	}{
		{
			name:   "raw json",
			ext:    map[string]any{ExtSceneBackground: json.RawMessage(`{"topcolor":[1,0,0.5],"bottomcolor":[0,0,0]}`)},
			wantOK: true,
			want:   Gradient{Top: [3]float64{1, 0, 0.5}},
		},
		{
			name: "decoded map",
			ext: map[string]any{ExtSceneBackground: map[string]any{
				"topcolor":    []any{0.0, 1.0, 0.0},
				"bottomcolor": []any{0.0, 0.0, 1.0},
			}},
			wantOK: true,
			want:   Gradient{Top: [3]float64{0, 1, 0}, Bottom: [3]float64{0, 0, 1}},
		},
		{name: "absent", ext: map[string]any{"OTHER": 1}},
		{name: "nil map"},
		{
			name: "short colour",
			ext:  map[string]any{ExtSceneBackground: json.RawMessage(`{"topcolor":[1,0],"bottomcolor":[0,0,0]}`)},
		},
		{
			name: "missing bottom",
			ext:  map[string]any{ExtSceneBackground: json.RawMessage(`{"topcolor":[1,0,0]}`)},
		},
		{
			name: "malformed",
			ext:  map[string]any{ExtSceneBackground: json.RawMessage(`"red"`)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, ok := FromExtensions(tt.ext)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if ok && g != tt.want {
				t.Errorf("got %+v, want %+v", g, tt.want)
			}
		})
	}
}

func TestCSS(t *testing.T) {
	g := Gradient{Top: [3]float64{1, 0, 0.5}, Bottom: [3]float64{0, 0, 0}}
	want := "linear-gradient(#ff0080 0%, #000000 100%)"
	if got := g.CSS(); got != want {
		t.Errorf("CSS() = %s, want %s", got, want)
	}

	top, bottom := g.Stops()
	if top[0] != 1 || top[1] != 0 || top[2] != 128.0/255 {
		t.Errorf("unexpected top stop %v", top)
	}
	if bottom[0] != 0 || bottom[1] != 0 || bottom[2] != 0 {
		t.Errorf("unexpected bottom stop %v", bottom)
	}
}
