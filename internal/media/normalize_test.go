package media

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	goaudio "github.com/go-audio/audio"
)

type fakeDecoder struct {
	calls int
	kinds []Container
	err   error
}

func (f *fakeDecoder) Decode(_ context.Context, _ string, c Container) (*goaudio.IntBuffer, error) {
	f.calls++
	f.kinds = append(f.kinds, c)
	if f.err != nil {
		return nil, f.err
	}
	return &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: 1, SampleRate: 16000},
		Data:           []int{0, 100, -100, 200},
		SourceBitDepth: 16,
	}, nil
}

func listDir(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func TestContainerOf(t *testing.T) {
	cases := map[string]Container{
		"a.mp3":           MP3,
		"B.WAV":           WAV,
		"dir.x/c.WebM":    WEBM,
		"/tmp/clip.Mp4":   MP4,
		"archive.mp3.wav": WAV,
	}
	for path, want := range cases {
		got, err := ContainerOf(path)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", path, err)
		}
		if got != want {
			t.Fatalf("%s: expected %s, got %s", path, want, got)
		}
	}
	for _, path := range []string{"input.ogg", "noext", "song.mp3.bak"} {
		if _, err := ContainerOf(path); !errors.Is(err, ErrUnsupportedFormat) {
			t.Fatalf("%s: expected ErrUnsupportedFormat, got %v", path, err)
		}
	}
}

func TestWAVSibling(t *testing.T) {
	if got := WAVSibling("/data/talk.mp3.mp3"); got != "/data/talk.mp3.wav" {
		t.Fatalf("unexpected sibling %s", got)
	}
	if got := WAVSibling("Speech.MP4"); got != "Speech.wav" {
		t.Fatalf("unexpected sibling %s", got)
	}
}

func TestNormalizeWAVIsIdentity(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "voice.WAV")
	if err := os.WriteFile(src, []byte("RIFF"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	dec := &fakeDecoder{}
	got, err := NewNormalizer(dec).Normalize(context.Background(), src)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Path != src || got.Temporary() {
		t.Fatalf("expected identity, got %+v", got)
	}
	if dec.calls != 0 {
		t.Fatal("decoder must not run for wav input")
	}
	if names := listDir(t, dir); len(names) != 1 {
		t.Fatalf("expected no new files, got %v", names)
	}
}

func TestNormalizeConvertsToSibling(t *testing.T) {
	for _, ext := range []string{".mp3", ".webm", ".mp4"} {
		dir := t.TempDir()
		src := filepath.Join(dir, "speech"+ext)
		if err := os.WriteFile(src, []byte("encoded"), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
		dec := &fakeDecoder{}
		got, err := NewNormalizer(dec).Normalize(context.Background(), src)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", ext, err)
		}
		want := filepath.Join(dir, "speech.wav")
		if got.Path != want || !got.Temporary() {
			t.Fatalf("%s: unexpected result %+v", ext, got)
		}
		if dec.kinds[0] != Container(ext[1:]) {
			t.Fatalf("%s: decoder got container %s", ext, dec.kinds[0])
		}
		info, err := os.Stat(want)
		if err != nil {
			t.Fatalf("%s: expected wav sibling: %v", ext, err)
		}
		if info.Size() <= 44 {
			t.Fatalf("%s: wav sibling has no payload (%d bytes)", ext, info.Size())
		}
	}
}

func TestNormalizeOverwritesExistingSibling(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "talk.mp3")
	sibling := filepath.Join(dir, "talk.wav")
	_ = os.WriteFile(src, []byte("encoded"), 0o644)
	_ = os.WriteFile(sibling, []byte("stale"), 0o644)

	if _, err := NewNormalizer(&fakeDecoder{}).Normalize(context.Background(), src); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	data, err := os.ReadFile(sibling)
	if err != nil {
		t.Fatalf("read sibling: %v", err)
	}
	if string(data) == "stale" {
		t.Fatal("expected sibling to be overwritten")
	}
}

func TestNormalizeConversionError(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "broken.webm")
	_ = os.WriteFile(src, []byte("garbage"), 0o644)

	cause := errors.New("invalid data found when processing input")
	_, err := NewNormalizer(&fakeDecoder{err: cause}).Normalize(context.Background(), src)
	if !errors.Is(err, ErrConversion) || !errors.Is(err, cause) {
		t.Fatalf("expected conversion error wrapping cause, got %v", err)
	}
	if names := listDir(t, dir); len(names) != 1 {
		t.Fatalf("expected no wav left behind, got %v", names)
	}
}

func TestNormalizeUnsupported(t *testing.T) {
	dec := &fakeDecoder{}
	_, err := NewNormalizer(dec).Normalize(context.Background(), filepath.Join(t.TempDir(), "does-not-exist.ogg"))
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}
	if dec.calls != 0 {
		t.Fatal("decoder must not run for unsupported input")
	}
}

func TestFFmpegDecoderArgs(t *testing.T) {
	d, err := NewFFmpegDecoder(`ffmpeg -threads 2`, 0, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	args := d.args("in put.webm", WEBM)
	if args[0] != "-threads" || args[1] != "2" {
		t.Fatalf("expected configured args first, got %v", args)
	}
	joined := map[string]string{}
	for i := 0; i+1 < len(args); i++ {
		joined[args[i]] = args[i+1]
	}
	if joined["-i"] != "in put.webm" || joined["-ar"] != "16000" || joined["-ac"] != "1" {
		t.Fatalf("unexpected args %v", args)
	}
	if args[len(args)-1] != "pipe:1" {
		t.Fatalf("expected stdout output, got %v", args)
	}

	if _, err := NewFFmpegDecoder("", 16000, 1); err == nil {
		t.Fatal("expected error for empty command")
	}
}
