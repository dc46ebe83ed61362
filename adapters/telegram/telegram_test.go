package telegram_test

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imgvault/imgvault/adapters/telegram"
	"github.com/imgvault/imgvault/fault"
	"github.com/imgvault/imgvault/upload"
)

func newBotServer(t *testing.T, fail bool) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/bottest-token/sendDocument", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(32<<20))
		assert.Equal(t, "chat-1", r.FormValue("chat_id"))

		file, header, err := r.FormFile("document")
		require.NoError(t, err)
		defer func() { _ = file.Close() }()
		payload, err := io.ReadAll(file)
		require.NoError(t, err)

		if fail {
			w.WriteHeader(http.StatusBadRequest)
			fmt.Fprint(w, `{"ok":false,"error_code":400,"description":"Bad Request: file must be non-empty"}`)
			return
		}
		fmt.Fprintf(w, `{"ok":true,"result":{"message_id":10,"document":{"file_id":"doc-%s","file_size":%d}}}`,
			header.Filename, len(payload))
	})
	mux.HandleFunc("/bottest-token/getFile", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"ok":true,"result":{"file_id":%q,"file_path":"documents/file_7.png"}}`, r.URL.Query().Get("file_id"))
	})
	return httptest.NewServer(mux)
}

func testClient(srvURL string) *telegram.Client {
	return telegram.New(telegram.Config{
		Token:         "test-token",
		ChatID:        "chat-1",
		BaseURL:       srvURL,
		RatePerSecond: 1000,
	})
}

func TestPutStoresDocument(t *testing.T) {
	srv := newBotServer(t, false)
	defer srv.Close()

	var mu sync.Mutex
	var sent []int64
	item := upload.Item{Name: "cat.png", Data: []byte("pretend png bytes")}

	obj, err := testClient(srv.URL).Put(context.Background(), item, func(n int64) {
		mu.Lock()
		sent = append(sent, n)
		mu.Unlock()
	})

	require.NoError(t, err)
	assert.Equal(t, "doc-cat.png", obj.FileRef)
	assert.Contains(t, obj.URL, "/file/bottest-token/documents/file_7.png")

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, sent)
	assert.Equal(t, item.Size(), sent[len(sent)-1], "final progress must equal the payload size")
}

func TestPutSurfacesDescription(t *testing.T) {
	srv := newBotServer(t, true)
	defer srv.Close()

	_, err := testClient(srv.URL).Put(context.Background(), upload.Item{Name: "cat.png", Data: []byte("x")}, nil)

	require.Error(t, err)
	f, ok := err.(fault.Fault)
	require.True(t, ok)
	assert.Equal(t, "Bad Request: file must be non-empty", f.FetchMessage())
	assert.Equal(t, fault.Terminal, f.FetchKind())
}

func TestFloodWaitIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		fmt.Fprint(w, `{"ok":false,"error_code":429,"description":"Too Many Requests: retry after 5"}`)
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).Put(context.Background(), upload.Item{Name: "cat.png", Data: []byte("x")}, nil)

	require.Error(t, err)
	f, ok := err.(fault.Fault)
	require.True(t, ok)
	assert.True(t, f.IsRetryable())
	assert.Equal(t, "Too Many Requests: retry after 5", f.FetchMessage())
}

func TestOpenBreakerReleasesBodyWriter(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprint(w, `{"ok":false,"error_code":500,"description":"Internal Server Error"}`)
	}))
	defer srv.Close()

	client := testClient(srv.URL)
	item := upload.Item{Name: "cat.png", Data: make([]byte, 64<<10)}

	// Six consecutive failures open the breaker.
	for i := 0; i < 6; i++ {
		_, err := client.Put(context.Background(), item, nil)
		require.Error(t, err)
	}

	before := runtime.NumGoroutine()
	for i := 0; i < 20; i++ {
		_, err := client.Put(context.Background(), item, nil)
		require.Error(t, err)
		f, ok := err.(fault.Fault)
		require.True(t, ok)
		assert.Equal(t, "storage-breaker-open", f.FetchCode())
	}

	deadline := time.Now().Add(2 * time.Second)
	for runtime.NumGoroutine() > before && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	assert.LessOrEqual(t, runtime.NumGoroutine(), before+5,
		"rejected calls must not leave body writers blocked on the pipe")
}

func TestResolveURL(t *testing.T) {
	srv := newBotServer(t, false)
	defer srv.Close()

	url, err := testClient(srv.URL).ResolveURL(context.Background(), "doc-1")
	require.NoError(t, err)
	assert.Equal(t, srv.URL+"/file/bottest-token/documents/file_7.png", url)
}
