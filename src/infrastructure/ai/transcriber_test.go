package ai

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"video-linker/src/infrastructure/retry"
)

// TestTranscribe проверяет отправку аудио и разбор verbose_json
func TestTranscribe(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/audio/transcriptions", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "whisper-1", r.FormValue("model"))
		assert.Equal(t, "verbose_json", r.FormValue("response_format"))
		assert.Equal(t, "en", r.FormValue("language"))

		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		data, _ := io.ReadAll(file)
		assert.Equal(t, "audio.mp3", header.Filename)
		assert.Equal(t, "fake audio", string(data))

		w.Write([]byte(`{"text":"hello world","segments":[
			{"start":0,"end":2.5,"text":" hello "},
			{"start":2.5,"end":3,"text":"  "},
			{"start":31,"end":33,"text":"world"}]}`))
	}))
	defer server.Close()

	path := filepath.Join(t.TempDir(), "audio.mp3")
	require.NoError(t, os.WriteFile(path, []byte("fake audio"), 0o644))

	frags, err := NewWhisperTranscriber(newTestClient(server.URL), "en").Transcribe(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, frags, 2)
	assert.Equal(t, "hello", frags[0].Text)
	assert.InDelta(t, 2.5, frags[0].End, 1e-9)
	assert.InDelta(t, 31.0, frags[1].Start, 1e-9)
}

// TestTranscribeTextOnly проверяет ответ без сегментов
func TestTranscribeTextOnly(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"text":"just text"}`))
	}))
	defer server.Close()

	path := filepath.Join(t.TempDir(), "audio.mp3")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

	frags, err := NewWhisperTranscriber(newTestClient(server.URL), "").Transcribe(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, frags, 1)
	assert.Equal(t, 0.0, frags[0].Start)
	assert.Equal(t, "just text", frags[0].Text)
}

// TestTranscribeMissingFile проверяет ошибку при отсутствии файла
func TestTranscribeMissingFile(t *testing.T) {
	_, err := NewWhisperTranscriber(newTestClient("http://127.0.0.1:0"), "").Transcribe(context.Background(), "/nonexistent/audio.mp3")
	assert.Error(t, err)
}

func slowTranscriptionServer(delay time.Duration, calls *int32) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(calls, 1)
		io.Copy(io.Discard, r.Body)
		select {
		case <-time.After(delay):
		case <-r.Context().Done():
			return
		}
		w.Write([]byte(`{"text":"slow","segments":[{"start":0,"end":1,"text":"slow"}]}`))
	}))
}

func shortTimeoutClient(url string) *AIClient {
	return NewAIClient(Config{
		BaseURL:            url,
		TranscriptionModel: "whisper-1",
		Timeout:            50 * time.Millisecond,
		Retry:              retry.Config{MaxRetries: 3, InitialWait: time.Millisecond, MaxWait: time.Millisecond, Multiplier: 1},
	})
}

// Распознавание дольше ai.timeout укладывается в срок контекста
func TestTranscribeOutlivesClientTimeout(t *testing.T) {
	var calls int32
	server := slowTranscriptionServer(300*time.Millisecond, &calls)
	defer server.Close()

	path := filepath.Join(t.TempDir(), "audio.mp3")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	frags, err := NewWhisperTranscriber(shortTimeoutClient(server.URL), "").Transcribe(ctx, path)
	require.NoError(t, err)
	require.Len(t, frags, 1)
	assert.Equal(t, "slow", frags[0].Text)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

// Истекший срок контекста не приводит к повторной загрузке файла
func TestTranscribeDeadlineNotRetried(t *testing.T) {
	var calls int32
	server := slowTranscriptionServer(2*time.Second, &calls)
	defer server.Close()

	path := filepath.Join(t.TempDir(), "audio.mp3")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	_, err := NewWhisperTranscriber(shortTimeoutClient(server.URL), "").Transcribe(ctx, path)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}
