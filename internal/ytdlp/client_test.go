package ytdlp

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func fakeYTDLP(t *testing.T, script string) *CommandClient {
	t.Helper()
	fakeBin := filepath.Join(t.TempDir(), "yt-dlp")
	if err := os.WriteFile(fakeBin, []byte(script), 0755); err != nil {
		t.Fatal(err)
	}
	return &CommandClient{BinaryPath: fakeBin}
}

func TestTitles(t *testing.T) {
	client := fakeYTDLP(t, `#!/bin/sh
echo '{"title":"Arctic Monkeys - Do I Wanna Know?","id":"bpOSxM0rNPM"}'
echo '{"title":"  ","id":"deleted"}'
echo '{"title":"Radiohead - Creep (Official Video)","id":"XFkzRNyygfk"}'
`)

	titles, err := client.Titles(context.Background(), "https://www.youtube.com/playlist?list=test")
	if err != nil {
		t.Fatalf("Titles() error = %v", err)
	}

	want := []string{"Arctic Monkeys - Do I Wanna Know?", "Radiohead - Creep (Official Video)"}
	if len(titles) != len(want) {
		t.Fatalf("expected %d titles, got %d: %v", len(want), len(titles), titles)
	}
	for i := range want {
		if titles[i] != want[i] {
			t.Errorf("titles[%d] = %q, want %q", i, titles[i], want[i])
		}
	}
}

func TestTitlesFlags(t *testing.T) {
	// The fake echoes its arguments back as a title.
	client := fakeYTDLP(t, `#!/bin/sh
printf '{"title":"%s"}\n' "$*"
`)

	titles, err := client.Titles(context.Background(), "https://www.youtube.com/playlist?list=abc")
	if err != nil {
		t.Fatal(err)
	}
	if want := "--dump-json --no-warnings --flat-playlist https://www.youtube.com/playlist?list=abc"; titles[0] != want {
		t.Errorf("args = %q, want %q", titles[0], want)
	}

	titles, err = client.Titles(context.Background(), "https://youtu.be/abc")
	if err != nil {
		t.Fatal(err)
	}
	if want := "--dump-json --no-warnings --no-playlist https://youtu.be/abc"; titles[0] != want {
		t.Errorf("args = %q, want %q", titles[0], want)
	}
}

func TestTitlesError(t *testing.T) {
	client := fakeYTDLP(t, `#!/bin/sh
echo "ERROR: Invalid URL" >&2
exit 1
`)

	if _, err := client.Titles(context.Background(), "https://example.com/x"); err == nil {
		t.Fatal("expected error, got nil")
	}
}

func TestTitlesEmpty(t *testing.T) {
	client := fakeYTDLP(t, `#!/bin/sh
# Empty playlist, no output
`)

	titles, err := client.Titles(context.Background(), "https://www.youtube.com/playlist?list=empty")
	if err != nil {
		t.Fatalf("Titles() error = %v", err)
	}
	if len(titles) != 0 {
		t.Fatalf("expected 0 titles, got %d", len(titles))
	}
}

func TestTitlesUnsupportedURL(t *testing.T) {
	client := fakeYTDLP(t, "#!/bin/sh\nexit 0\n")

	for _, u := range []string{"not-a-url", "file:///etc/passwd", "--exec=rm"} {
		if _, err := client.Titles(context.Background(), u); !errors.Is(err, ErrUnsupportedURL) {
			t.Errorf("Titles(%q) err = %v, want ErrUnsupportedURL", u, err)
		}
	}
}

func TestTitlesContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client := fakeYTDLP(t, "#!/bin/sh\nsleep 5\n")
	if _, err := client.Titles(ctx, "https://www.youtube.com/playlist?list=test"); err == nil {
		t.Fatal("expected error for canceled context, got nil")
	}
}
