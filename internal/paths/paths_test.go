package paths

import (
	"os"
	"path/filepath"
	"testing"
)

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory available")
	}

	tests := []struct {
		in   string
		want string
	}{
		{"~", home},
		{"~/data", filepath.Join(home, "data")},
		{"/abs/path", "/abs/path"},
		{"relative/path", "relative/path"},
		{"~user/data", "~user/data"},
	}
	for _, tt := range tests {
		if got := ExpandHome(tt.in); got != tt.want {
			t.Errorf("ExpandHome(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestQueueFile(t *testing.T) {
	got := QueueFile("/var/lib/openclawd")
	want := filepath.Join("/var/lib/openclawd", QueueFileName)
	if got != want {
		t.Errorf("QueueFile = %q, want %q", got, want)
	}
}

func TestBanditDB_ExpandsHome(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory available")
	}
	got := BanditDB("~/.local/share/openclawd")
	want := filepath.Join(home, ".local", "share", "openclawd", BanditDBName)
	if got != want {
		t.Errorf("BanditDB = %q, want %q", got, want)
	}
}
